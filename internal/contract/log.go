package contract

import (
	"os"

	charmlog "github.com/charmbracelet/log"
)

// Logger is the application-wide structured logger (writes to stderr).
var Logger = charmlog.NewWithOptions(os.Stderr, charmlog.Options{
	ReportTimestamp: false,
	Prefix:          "triad",
	Level:           charmlog.WarnLevel,
})

// SetVerbose switches the logger between warnings only and informational output.
func SetVerbose(verbose bool) {
	if verbose {
		Logger.SetLevel(charmlog.DebugLevel)
		return
	}
	Logger.SetLevel(charmlog.WarnLevel)
}

// LogFatal logs an error and exits the program.
func LogFatal(msg string, err error) {
	Logger.Error(msg, "err", err)
	os.Exit(1)
}

// LogWarn logs a warning message to stderr.
func LogWarn(msg string, err error) {
	Logger.Warn(msg, "err", err)
}
