// Package errutil provides helpers for logging and asserting coded errors.
package errutil

import (
	"github.com/samber/oops"
	"go.uber.org/zap"
)

// LogError logs an error with structured context if it's an oops error.
// For oops errors, it extracts and logs the message, code and context.
// For standard errors, it logs the error string.
func LogError(logger *zap.SugaredLogger, msg string, err error) {
	if oopsErr, ok := oops.AsOops(err); ok {
		kv := []any{
			"error", oopsErr.Error(),
		}
		if code := oopsErr.Code(); code != nil {
			kv = append(kv, "code", code)
		}
		if ctx := oopsErr.Context(); len(ctx) > 0 {
			kv = append(kv, "context", ctx)
		}
		logger.Errorw(msg, kv...)
		return
	}
	logger.Errorw(msg, "error", err)
}

// Code returns the oops code of err, or nil when err carries none.
func Code(err error) any {
	if oopsErr, ok := oops.AsOops(err); ok {
		return oopsErr.Code()
	}
	return nil
}
