package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestIDRoundTrip(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-1")
	assert.Equal(t, "req-1", RequestID(ctx))
	assert.Empty(t, RequestID(context.Background()))
}

func TestFromContext_FallsBackToGlobal(t *testing.T) {
	InitLogger("debug")
	assert.Same(t, L, FromContext(context.Background()))
	assert.NotSame(t, L, FromContext(WithRequestID(context.Background(), "x")))
}
