package events

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// SSEHandler streams change notifications to admin panel clients as
// server-sent events. Each connection subscribes to the pub/sub pattern
// covering all tables, or a single table when ?table= is given.
type SSEHandler struct {
	rdb *redis.Client
}

// NewSSEHandler creates the SSE streaming handler.
func NewSSEHandler(rdb *redis.Client) *SSEHandler {
	return &SSEHandler{rdb: rdb}
}

// Stream handles GET /admin/events. The connection stays open until the
// client disconnects or the request context is canceled.
func (h *SSEHandler) Stream(c echo.Context) error {
	ctx := c.Request().Context()

	pattern := channelPrefix + "*"
	if table := c.QueryParam("table"); table != "" {
		pattern = channelPrefix + table
	}

	sub := h.rdb.PSubscribe(ctx, pattern)
	defer sub.Close()

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set(echo.HeaderCacheControl, "no-cache")
	res.Header().Set(echo.HeaderConnection, "keep-alive")
	res.WriteHeader(http.StatusOK)
	res.Flush()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			table := strings.TrimPrefix(msg.Channel, channelPrefix)
			if _, err := fmt.Fprintf(res, "event: %s\ndata: %s\n\n", table, msg.Payload); err != nil {
				return nil
			}
			res.Flush()
		}
	}
}
