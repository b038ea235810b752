package sse_test

import (
	"io"
	"log/slog"
	"time"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// Message 表示一個 SSE 訊息，包含資料字段。
type Message struct {
	Data string `json:"data" msgpack:"data"`
}

func receive[T any](ch <-chan T) (T, bool) {
	select {
	case msg, ok := <-ch:
		return msg, ok
	case <-time.After(2 * time.Second):
		var zero T
		return zero, false
	}
}
