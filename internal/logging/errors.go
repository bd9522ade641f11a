package logging

import "errors"

// ErrInvalidMirrorLevel is returned when the mirror level is not a logrus level
var ErrInvalidMirrorLevel = errors.New("invalid mirror level")
