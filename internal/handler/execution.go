package handler

import (
	"bufio"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/parm-bits/stress-admin-backend/internal/engine"
	"github.com/parm-bits/stress-admin-backend/internal/svc"
	"github.com/parm-bits/stress-admin-backend/pkg/logger"
	"github.com/parm-bits/stress-admin-backend/pkg/response"
	"github.com/parm-bits/stress-admin-backend/pkg/types"
	"github.com/parm-bits/stress-admin-backend/pkg/utils"
)

const streamInterval = 2 * time.Second

// executionSnapshot is one live view of the supervisor.
type executionSnapshot struct {
	Running []engine.RunningProcess `json:"running"`
	Stats   engine.RunStatsSnapshot `json:"stats"`
	Time    types.DateTime          `json:"time"`
}

func snapshotExecutions() executionSnapshot {
	return executionSnapshot{
		Running: svc.Ctx.Supervisor.ListRunning(),
		Stats:   svc.Ctx.Supervisor.Stats(),
		Time:    types.Now(),
	}
}

// ExecutionListRunning lists live engine processes.
// GET /api/executions/running
func ExecutionListRunning(c *fiber.Ctx) error {
	return response.Success(c, svc.Ctx.Supervisor.ListRunning())
}

// ExecutionStats returns the run duration distribution.
// GET /api/executions/stats
func ExecutionStats(c *fiber.Ctx) error {
	return response.Success(c, svc.Ctx.Supervisor.Stats())
}

// ExecutionStream pushes live run snapshots as server-sent events until the
// client goes away.
// GET /api/executions/stream
func ExecutionStream(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, "text/event-stream; charset=utf-8")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("execution stream panic", zap.Any("panic", r))
			}
		}()

		ticker := time.NewTicker(streamInterval)
		defer ticker.Stop()

		for {
			if err := writeExecutionEvent(w); err != nil {
				return
			}
			<-ticker.C
		}
	}))
	return nil
}

// writeExecutionEvent emits one SSE frame; an error means the client is
// gone.
func writeExecutionEvent(w *bufio.Writer) error {
	payload, err := utils.MarshalString(snapshotExecutions())
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: executions\ndata: %s\n\n", payload); err != nil {
		return err
	}
	return w.Flush()
}
