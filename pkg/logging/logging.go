// Package logging builds the zap logger used by host side programs.
package logging

import (
	"fmt"

	"go.uber.org/zap"
)

// New instantiates a development logger at info level, or debug level
// with caller annotations when debug is set.
func New(debug bool) (*zap.SugaredLogger, error) {
	level := zap.InfoLevel
	if debug {
		level = zap.DebugLevel
	}

	logCfg := zap.NewDevelopmentConfig()
	logCfg.DisableStacktrace = true
	logCfg.DisableCaller = level > zap.DebugLevel
	logCfg.Level.SetLevel(level)
	zapLogger, err := logCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to instantiate logger: %w", err)
	}

	return zapLogger.Sugar(), nil
}
