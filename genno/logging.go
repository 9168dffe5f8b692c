package genno

import (
	"github.com/LauWien/genno/genno/cache"
	"github.com/LauWien/genno/genno/compute"
	"github.com/LauWien/genno/genno/computer"
	"github.com/LauWien/genno/genno/config"
	"github.com/LauWien/genno/genno/units"
	"github.com/LauWien/genno/internal"
)

var logger = internal.NewLogger()

// Levels accepted by SetLogLevel, least to most verbose.
const (
	LevelFatal = int(internal.LevelFatal)
	LevelError = int(internal.LevelError)
	LevelWarn  = int(internal.LevelWarn)
	LevelInfo  = int(internal.LevelInfo)
	LevelDebug = int(internal.LevelDebug)
)

// SetLogLevel sets the logging level of every genno package.
func SetLogLevel(level int) {
	logger.SetLogLevel(internal.LogLevel(level))
	cache.SetLogLevel(level)
	compute.SetLogLevel(level)
	computer.SetLogLevel(level)
	config.SetLogLevel(level)
	units.SetLogLevel(level)
}
