package redis

import (
	"encoding/base64"
	"errors"
	"fmt"
	"reflect"

	"github.com/vmihailenco/msgpack/v5"
)

var (
	ErrPointerType = errors.New("pointer type is not allowed")
	ErrEmptyField  = errors.New("payload field not found or invalid type")
)

// payloadField 是 stream entry 中存放序列化資料的欄位
const payloadField = "payload"

// EncodeMessage 將資料以 msgpack 序列化並 base64 編碼，放進 stream entry 的 payload 欄位
func EncodeMessage[T any](data T) (map[string]any, error) {
	if reflect.TypeOf(data).Kind() == reflect.Ptr {
		return nil, ErrPointerType
	}
	raw, err := msgpack.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("msgpack marshal error: %w", err)
	}
	return map[string]any{
		payloadField: base64.StdEncoding.EncodeToString(raw),
	}, nil
}

// DecodeMessage 是 EncodeMessage 的反向操作
func DecodeMessage[T any](values map[string]any) (T, error) {
	var result T
	if reflect.TypeOf(&result).Elem().Kind() == reflect.Ptr {
		return result, ErrPointerType
	}
	if len(values) == 0 {
		return result, nil
	}
	encoded, ok := values[payloadField].(string)
	if !ok {
		return result, ErrEmptyField
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return result, fmt.Errorf("base64 decode error: %w", err)
	}
	if err := msgpack.Unmarshal(raw, &result); err != nil {
		return result, fmt.Errorf("msgpack unmarshal error: %w", err)
	}
	return result, nil
}
