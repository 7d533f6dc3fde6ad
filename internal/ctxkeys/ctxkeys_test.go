package ctxkeys

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextHelpers(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	_, ok := RequestID(ctx)
	assert.False(t, ok)

	ctx = WithTraceID(ctx, "t1")
	ctx = WithRequestID(ctx, "r1")
	ctx = WithClientIP(ctx, "10.0.0.1")
	ctx = WithSubject(ctx, "alice")

	got, ok := TraceID(ctx)
	assert.True(t, ok)
	assert.Equal(t, "t1", got)

	got, _ = RequestID(ctx)
	assert.Equal(t, "r1", got)

	got, _ = ClientIP(ctx)
	assert.Equal(t, "10.0.0.1", got)

	got, _ = Subject(ctx)
	assert.Equal(t, "alice", got)

	_, ok = RequestID(WithRequestID(context.Background(), ""))
	assert.False(t, ok, "empty values are treated as absent")
}
