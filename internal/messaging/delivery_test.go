package messaging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeliveryAttempt(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, uint64(0), DeliveryAttempt(ctx))
	assert.False(t, IsRedelivery(ctx))

	assert.False(t, IsRedelivery(WithDeliveryAttempt(ctx, 1)))

	redelivered := WithDeliveryAttempt(ctx, 3)
	assert.Equal(t, uint64(3), DeliveryAttempt(redelivered))
	assert.True(t, IsRedelivery(redelivered))
}
