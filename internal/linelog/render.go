package linelog

import (
	"bytes"
	"fmt"
)

// MaxLineBytes is the capacity of a single rendered line, terminator slot included.
const MaxLineBytes = 4096

// maxTextBytes is the longest message text that survives rendering.
const maxTextBytes = MaxLineBytes - 1

// render formats the message into a fresh buffer and appends the terminator.
// The second return value reports whether the text was cut at maxTextBytes.
func render(format string, args ...any) ([]byte, bool) {
	var b bytes.Buffer
	_, _ = fmt.Fprintf(&b, format, args...)

	truncated := false
	if b.Len() > maxTextBytes {
		b.Truncate(maxTextBytes)
		truncated = true
	}

	_, _ = b.WriteString(lineTerminator)
	return b.Bytes(), truncated
}
