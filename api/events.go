package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const sseKeepAliveInterval = 30 * time.Second

// Track listing bid events
// (GET /listings/{id}/events)
func (impl *ServerImpl) GetListingEvents(c *gin.Context) {
	const op = "GetListingEvents"
	id, ok := pathID(c)
	if !ok {
		return
	}
	// 檢查商品是否存在
	listing, err := impl.store.GetListing(c, id)
	if err != nil {
		impl.abortWithError(c, op, err)
		return
	}
	// 檢查拍賣是否已經結束
	if !listing.Active {
		c.AbortWithStatusJSON(http.StatusGone, ErrorResponse{Message: "This auction is closed."})
		return
	}
	// SSE請求合法，開始初始化串流
	channel := id.String()
	ch, err := impl.sseManager.Subscribe(channel)
	if err != nil {
		impl.abortWithError(c, op, err)
		return
	}
	defer impl.sseManager.Unsubscribe(channel, ch)

	w := c.Writer
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	w.Flush()

	keepAlive := time.NewTicker(sseKeepAliveInterval)
	defer keepAlive.Stop()
	for {
		select {
		case <-c.Request.Context().Done():
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			c.SSEvent("bid", event)
			w.Flush()
		// 30秒沒有事件就發送一個空行，確保瀏覽器和Cloudflare不會斷開連線
		case <-keepAlive.C:
			_, _ = w.WriteString("\n\n")
			w.Flush()
		}
	}
}
