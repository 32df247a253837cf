package logsvc

import (
	"github.com/rollbar/rollbar-go"
	rollbarerrs "github.com/rollbar/rollbar-go/errors"

	"github.com/d2718/camp-demo/core"
)

// RollbarLogger forwards everything to rollbar as well as a wrapped logger.
// The registry uses it as the alert channel for cross-store consistency
// hazards.
type RollbarLogger struct {
	log core.Logger
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(log core.Logger, cfg *core.Config) *RollbarLogger {
	rollbar.SetToken(cfg.RollbarToken)
	rollbar.SetEnvironment(cfg.Env)
	rollbar.SetCodeVersion(cfg.AppName)
	rollbar.SetStackTracer(rollbarerrs.StackTracer)
	return &RollbarLogger{log: log}
}

func (l RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) {
	rollbar.Debug(prepend(msg, args)...)
	l.log.Debug(msg, args...)
}

func (l RollbarLogger) Info(msg string, args ...interface{}) {
	rollbar.Info(prepend(msg, args)...)
	l.log.Info(msg, args...)
}

func (l RollbarLogger) Warn(msg string, args ...interface{}) {
	rollbar.Warning(prepend(msg, args)...)
	l.log.Warn(msg, args...)
}

func (l RollbarLogger) Error(msg string, args ...interface{}) {
	rollbar.Error(prepend(msg, args)...)
	l.log.Error(msg, args...)
}

func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	rollbar.Critical(prepend(msg, args)...)
	rollbar.Wait()
	l.log.Fatal(msg, args...)
}

func prepend(msg string, args []interface{}) []interface{} {
	out := make([]interface{}, 0, len(args)+1)
	out = append(out, msg)
	return append(out, args...)
}
