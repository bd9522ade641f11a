package linelog

import "errors"

// ErrClosed is reported by Err once Close has been called on an open logger
var ErrClosed = errors.New("linelog: logger closed")
