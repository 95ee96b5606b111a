package jetstream

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-transfer-indexer/internal/adapter"
	"github.com/feral-file/ff-transfer-indexer/internal/messaging"
)

func TestDispatcher_DrainsWorkBeforeToken(t *testing.T) {
	workCh := make(chan adapter.Message, 3)
	tokenCh := make(chan adapter.Message, 3)
	for range 3 {
		tokenCh <- nil
	}
	for range 2 {
		workCh <- nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var order []messaging.Queue
	d := &dispatcher{
		workCh:  workCh,
		tokenCh: tokenCh,
		submit: func(queue messaging.Queue, _ adapter.Message) {
			order = append(order, queue)
			if len(order) == 1 {
				// work arriving while the first batch is dispatched still wins
				workCh <- nil
			}
			if len(order) == 6 {
				cancel()
			}
		},
	}

	done := make(chan struct{})
	go func() {
		d.run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("dispatcher did not stop")
	}

	require.Len(t, order, 6)
	assert.Equal(t, []messaging.Queue{
		messaging.QueueWork, messaging.QueueWork, messaging.QueueWork,
		messaging.QueueToken, messaging.QueueToken, messaging.QueueToken,
	}, order)
}

func TestDispatcher_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := &dispatcher{
		workCh:  make(chan adapter.Message),
		tokenCh: make(chan adapter.Message),
		submit: func(messaging.Queue, adapter.Message) {
			t.Fatal("nothing should be dispatched")
		},
	}
	d.run(ctx)
}
