package redis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeMessage(t *testing.T) {
	in := testEvent{ListingID: "l-1", Amount: 10050, Note: "first"}

	values, err := EncodeMessage(in)
	require.NoError(t, err)
	require.Contains(t, values, "payload")

	out, err := DecodeMessage[testEvent](values)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestEncodeMessage_RejectsPointer(t *testing.T) {
	_, err := EncodeMessage(&testEvent{})
	assert.ErrorIs(t, err, ErrPointerType)

	_, err = DecodeMessage[*testEvent](map[string]any{"payload": ""})
	assert.ErrorIs(t, err, ErrPointerType)
}

func TestDecodeMessage_Errors(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]any
		errIs  error
	}{
		{name: "missing field", values: map[string]any{"data": "x"}, errIs: ErrEmptyField},
		{name: "wrong type", values: map[string]any{"payload": 12}, errIs: ErrEmptyField},
		{name: "bad base64", values: map[string]any{"payload": "!!"}},
		{name: "bad msgpack", values: map[string]any{"payload": "wQ=="}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeMessage[testEvent](tt.values)
			require.Error(t, err)
			if tt.errIs != nil {
				assert.ErrorIs(t, err, tt.errIs)
			}
		})
	}

	empty, err := DecodeMessage[testEvent](nil)
	require.NoError(t, err)
	assert.Equal(t, testEvent{}, empty)
}
