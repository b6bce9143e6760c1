package main

import (
	stdlog "log"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

// newLogger returns the leveled logger a command writes to stderr. The root
// --verbose flag enables debug output.
func newLogger(cmd *cobra.Command, timestamps bool) *log.Logger {
	logger := log.NewWithOptions(cmd.ErrOrStderr(), log.Options{
		Prefix:          "secretq",
		ReportTimestamp: timestamps,
	})
	if verbose, err := cmd.Flags().GetBool("verbose"); err == nil && verbose {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}

// stdLogger adapts logger for the engine and HTTP handlers, which take a
// *log.Logger from the standard library. Their lines are logged as warnings.
func stdLogger(logger *log.Logger) *stdlog.Logger {
	return logger.StandardLog(log.StandardLogOptions{ForceLevel: log.WarnLevel})
}
