// Package zapadapter lets a host process route barrel's package-level
// log records through go.uber.org/zap instead of the default stderr
// logger, by implementing the log.ExternalLogger hook.
//
// Grounded on _examples/iamNilotpal-ignite's use of *zap.SugaredLogger
// as the engine's logging dependency; this package doesn't embed barrel
// itself, it only adapts barrel's logging seam to zap's API.
package zapadapter

import (
	"go.uber.org/zap"

	"github.com/barreldb/barrel/log"
)

// Adapter implements log.ExternalLogger on top of a *zap.SugaredLogger.
type Adapter struct {
	sugar *zap.SugaredLogger
}

// New wraps l for registration via log.Register.
func New(l *zap.Logger) *Adapter {
	return &Adapter{sugar: l.Sugar()}
}

// Log implements log.ExternalLogger.
func (a *Adapter) Log(level log.Level, msg string) {
	switch level {
	case log.DebugLevel:
		a.sugar.Debug(msg)
	case log.InfoLevel:
		a.sugar.Info(msg)
	case log.ErrorLevel:
		a.sugar.Error(msg)
	default:
		a.sugar.Info(msg)
	}
}

// Flush implements log.ExternalLogger by syncing the underlying zap core.
func (a *Adapter) Flush() {
	_ = a.sugar.Sync()
}
