// Package logsvc provides core.Logger implementations: a zap-backed standard
// logger and a rollbar-backed alerter for errors that need operator
// attention.
package logsvc

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/d2718/camp-demo/core"
)

type zapLogger struct {
	sugar *zap.SugaredLogger
}

var _ core.Logger = (*zapLogger)(nil)

// NewZapLogger builds the application logger: development encoding with
// debug enabled when cfg.Debug is set, production JSON otherwise.
func NewZapLogger(cfg *core.Config) (core.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if cfg.Debug {
		zcfg = zap.NewDevelopmentConfig()
		zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	zcfg.InitialFields = map[string]interface{}{"app": cfg.AppName, "env": cfg.Env}

	logger, err := zcfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, err
	}
	return &zapLogger{sugar: logger.Sugar()}, nil
}

func (l *zapLogger) Debug(msg string, args ...interface{}) { l.sugar.Debugw(msg, pairs(args)...) }
func (l *zapLogger) Info(msg string, args ...interface{})  { l.sugar.Infow(msg, pairs(args)...) }
func (l *zapLogger) Warn(msg string, args ...interface{})  { l.sugar.Warnw(msg, pairs(args)...) }
func (l *zapLogger) Error(msg string, args ...interface{}) { l.sugar.Errorw(msg, pairs(args)...) }
func (l *zapLogger) Fatal(msg string, args ...interface{}) { l.sugar.Fatalw(msg, pairs(args)...) }

// pairs pads the argument list so zap's key-value form always gets an even
// count; a dangling value is logged under "detail".
func pairs(args []interface{}) []interface{} {
	if len(args)%2 == 0 {
		return args
	}
	padded := make([]interface{}, 0, len(args)+1)
	padded = append(padded, "detail")
	padded = append(padded, args...)
	return padded
}
