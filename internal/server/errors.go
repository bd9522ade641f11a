package server

import "errors"

var (
	// ErrNoDebugLog is returned by New when no debug log is supplied
	ErrNoDebugLog = errors.New("server requires a debug log")

	// ErrNoRegistry is returned by New when metrics are enabled without a registry
	ErrNoRegistry = errors.New("metrics enabled but no registry supplied")
)

var (
	// ErrUnsupportedMediaType is returned for bodies that are neither text nor JSON
	ErrUnsupportedMediaType = errors.New("unsupported media type")

	// ErrMultilineEntry is returned when a JSON entry would span several lines
	ErrMultilineEntry = errors.New("entry contains a line break")
)
