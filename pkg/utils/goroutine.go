package utils

import (
	"runtime/debug"

	"github.com/parm-bits/stress-admin-backend/pkg/logger"

	"go.uber.org/zap"
)

// SafeGoWithName starts a named goroutine that recovers and logs panics,
// tagging log entries with the name for traceability.
func SafeGoWithName(name string, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("goroutine panic recovered",
					zap.String("goroutine", name),
					zap.Any("panic", r),
					zap.ByteString("stack", debug.Stack()))
			}
		}()
		fn()
	}()
}
