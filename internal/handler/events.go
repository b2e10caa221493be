package handler

import (
	"io"
	"time"

	"github.com/gin-gonic/gin"
)

// eventsHeartbeat SSE 保活间隔
var eventsHeartbeat = 25 * time.Second

// Events SSE：推送 document.changed 与 list-modal.open
// 订阅随连接结束而取消。
func (h *Handler) Events(c *gin.Context) {
	events, cancel := h.Store.Notifier().Subscribe()
	defer cancel()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	c.SSEvent("ready", gin.H{"at": time.Now()})
	c.Writer.Flush()

	ticker := time.NewTicker(eventsHeartbeat)
	defer ticker.Stop()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case e, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent(string(e.Type), e)
			return true
		case t := <-ticker.C:
			c.SSEvent("ping", gin.H{"at": t})
			return true
		case <-ctx.Done():
			return false
		}
	})
}
