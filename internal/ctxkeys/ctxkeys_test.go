package ctxkeys

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestIDRoundTrip(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-123")
	id, ok := RequestID(ctx)
	assert.True(t, ok)
	assert.Equal(t, "req-123", id)
}

func TestRequestIDMissing(t *testing.T) {
	_, ok := RequestID(context.Background())
	assert.False(t, ok)

	_, ok = RequestID(WithRequestID(context.Background(), ""))
	assert.False(t, ok)
}

func TestRunIDRoundTrip(t *testing.T) {
	ctx := WithRunID(context.Background(), "run-7")
	id, ok := RunID(ctx)
	assert.True(t, ok)
	assert.Equal(t, "run-7", id)
}

func TestKeysAreIndependent(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req")
	_, ok := RunID(ctx)
	assert.False(t, ok)
}
