package dashboard

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/interviewer/internal/session"
)

// handleSSE streams session snapshots. A "sessions" event is sent on connect
// and whenever the snapshot changes; heartbeats keep idle connections open.
func handleSSE(src SessionSource, poll time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Header("X-Accel-Buffering", "no")

		writeSSE(c.Writer, "connected", map[string]string{"type": "connected"})
		last := src.Snapshot()
		writeSSE(c.Writer, "sessions", last)
		c.Writer.Flush()

		ctx := c.Request.Context()
		ticker := time.NewTicker(poll)
		heartbeat := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		defer heartbeat.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-heartbeat.C:
				writeSSE(c.Writer, "heartbeat", map[string]string{
					"timestamp": time.Now().UTC().Format(time.RFC3339),
				})
				c.Writer.Flush()
			case <-ticker.C:
				cur := src.Snapshot()
				if sameSnapshot(last, cur) {
					continue
				}
				last = cur
				writeSSE(c.Writer, "sessions", cur)
				c.Writer.Flush()
			}
		}
	}
}

func sameSnapshot(a, b []session.Status) bool {
	return slices.Equal(a, b)
}

// writeSSE writes a single SSE event to the writer.
func writeSSE(w io.Writer, event string, data any) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, string(jsonData))
}
