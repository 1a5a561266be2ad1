package requestctx

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestRequestID(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-1")
	assert.Equal(t, "req-1", RequestID(ctx))
	assert.Empty(t, RequestID(context.Background()))
}

func TestActor(t *testing.T) {
	id := uuid.New()
	ctx := WithActor(WithRequestID(context.Background(), "req-2"), id)

	assert.Equal(t, id, Actor(ctx))
	assert.Equal(t, "req-2", RequestID(ctx))
	assert.Equal(t, uuid.Nil, Actor(context.Background()))
}
