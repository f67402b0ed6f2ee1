//go:build !statsview

package statsview

import "io"

const Address = ""

// Launch does nothing without the statsview build tag.
func Launch(output io.Writer) {
	io.WriteString(output, "stats server not available: rebuild with -tags statsview\n")
}

// Available reports whether Launch does anything in this build.
func Available() bool {
	return false
}
