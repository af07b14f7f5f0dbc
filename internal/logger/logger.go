// Package logger builds the shared zap logger.
package logger

import (
	"go.uber.org/zap"
)

// New creates a production zap logger at the given textual level.
func New(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}

	zapcfg := zap.NewProductionConfig()
	zapcfg.Level = lvl

	return zapcfg.Build()
}
