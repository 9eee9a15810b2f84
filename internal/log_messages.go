package internal

import (
	"fmt"
	"io"
	"os"
)

// LogPrefix is the prefix the client puts on every log line.
const LogPrefix = "[analytics]"

// Where LogErrorNilPointerMethod writes. Tests may replace it.
var nilPointerOutput io.Writer = os.Stderr //nolint:gochecknoglobals

// LogErrorNilPointerMethod reports that the application called a method on a nil pointer receiver.
// It writes straight to stderr because a nil receiver has no configured loggers.
func LogErrorNilPointerMethod(typeName string) {
	fmt.Fprintf(nilPointerOutput, "%s ERROR: tried to call a method on a nil pointer of type *%s\n", LogPrefix, typeName)
}
