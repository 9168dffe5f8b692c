package computer

import (
	"github.com/LauWien/genno/internal"
)

var logger = internal.NewLogger()

// SetLogLevel sets the logging level to the given level
func SetLogLevel(level int) {
	logger.SetLogLevel(internal.LogLevel(level))
}
