package app

import "github.com/calebmorten/shiftrelief/pkg/logger"

// ConfigureLogging initialises the global structured logger at the configured level.
func ConfigureLogging(level string) error {
	return logger.Init(level)
}
