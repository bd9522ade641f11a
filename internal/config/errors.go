package config

import "errors"

var (
	// ErrInvalidLogFormat is returned when log_format is neither json nor text
	ErrInvalidLogFormat = errors.New("log_format must be json or text")

	// ErrListenRequired is returned when the listen address is empty
	ErrListenRequired = errors.New("listen address is required")

	// ErrInvalidRequestLimit is returned when max_request_bytes is not positive
	ErrInvalidRequestLimit = errors.New("max_request_bytes must be positive")

	// ErrInvalidMetricsPath is returned when metrics.path is not an absolute URL path
	ErrInvalidMetricsPath = errors.New("metrics.path must start with /")
)
