package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-transfer-indexer/internal/adapter"
	"github.com/feral-file/ff-transfer-indexer/internal/domain"
	"github.com/feral-file/ff-transfer-indexer/internal/extractor"
	"github.com/feral-file/ff-transfer-indexer/internal/logger"
	"github.com/feral-file/ff-transfer-indexer/internal/messaging"
	mockspkg "github.com/feral-file/ff-transfer-indexer/internal/mocks"
	"github.com/feral-file/ff-transfer-indexer/internal/ownership"
	"github.com/feral-file/ff-transfer-indexer/internal/pipeline"
	"github.com/feral-file/ff-transfer-indexer/internal/reconciler"
	"github.com/feral-file/ff-transfer-indexer/internal/store/schema"
)

func TestMain(m *testing.M) {
	// Initialize logger for tests
	err := logger.Initialize(logger.Config{
		Debug: false,
	})
	if err != nil {
		panic(err)
	}

	code := m.Run()
	os.Exit(code)
}

const kitties = "0x06012c8cf97BEaD5deAe237070F9587f8E7A266d"

var now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// testRouterMocks contains all the mocks needed for testing the router
type testRouterMocks struct {
	ctrl       *gomock.Controller
	extractor  *mockspkg.MockExtractor
	reconciler *mockspkg.MockReconciler
	projector  *mockspkg.MockProjector
	publisher  *mockspkg.MockPublisher
	store      *mockspkg.MockStore
	chain      *mockspkg.MockEthereumClient
	locker     *mockspkg.MockLocker
	clock      *mockspkg.MockClock
	handler    messaging.Handler
}

func setupTestRouter(t *testing.T, cfg pipeline.Config) *testRouterMocks {
	ctrl := gomock.NewController(t)

	tm := &testRouterMocks{
		ctrl:       ctrl,
		extractor:  mockspkg.NewMockExtractor(ctrl),
		reconciler: mockspkg.NewMockReconciler(ctrl),
		projector:  mockspkg.NewMockProjector(ctrl),
		publisher:  mockspkg.NewMockPublisher(ctrl),
		store:      mockspkg.NewMockStore(ctrl),
		chain:      mockspkg.NewMockEthereumClient(ctrl),
		locker:     mockspkg.NewMockLocker(ctrl),
		clock:      mockspkg.NewMockClock(ctrl),
	}
	tm.clock.EXPECT().Now().Return(now).AnyTimes()
	tm.locker.EXPECT().
		WithLock(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ string, fn func(context.Context) error) error {
			return fn(ctx)
		}).
		AnyTimes()

	tm.handler = pipeline.NewRouter(cfg, pipeline.Dependencies{
		Extractor:  tm.extractor,
		Reconciler: tm.reconciler,
		Projector:  tm.projector,
		Publisher:  tm.publisher,
		Store:      tm.store,
		Chain:      tm.chain,
		Locker:     tm.locker,
		JSON:       adapter.NewJSON(),
		Clock:      tm.clock,
	})
	return tm
}

func envelope(t *testing.T, command messaging.Command, payload interface{}) *messaging.Envelope {
	env, err := messaging.NewEnvelope(adapter.NewJSON(), command, payload, now)
	require.NoError(t, err)
	return env
}

// expectBlocksQueued expects one PROCESS_BLOCK per block number, in order
func (m *testRouterMocks) expectBlocksQueued(numbers ...uint64) {
	calls := make([]*gomock.Call, 0, len(numbers))
	for _, n := range numbers {
		calls = append(calls, m.publisher.EXPECT().
			Publish(gomock.Any(), messaging.CommandProcessBlock, messaging.ProcessBlockPayload{BlockNumber: n}).
			Return(nil))
	}
	gomock.InOrder(calls...)
}

func TestRouter_ProcessBlock(t *testing.T) {
	changed := []domain.TokenKey{
		domain.NewTokenKey(kitties, "1"),
		domain.NewTokenKey(kitties, "2"),
	}
	extraction := &extractor.Result{Header: domain.BlockHeader{Number: 100}}

	t.Run("queues ownership updates for changed tokens", func(t *testing.T) {
		mocks := setupTestRouter(t, pipeline.Config{})
		defer mocks.ctrl.Finish()

		mocks.extractor.EXPECT().Extract(gomock.Any(), uint64(100)).Return(extraction, nil)
		mocks.reconciler.EXPECT().Reconcile(gomock.Any(), extraction).
			Return(&reconciler.Result{BlockNumber: 100, Inserted: 2, ChangedTokens: changed}, nil)
		gomock.InOrder(
			mocks.publisher.EXPECT().Publish(gomock.Any(), messaging.CommandUpdateTokenOwnership,
				messaging.UpdateTokenOwnershipPayload{CollectionAddress: kitties, TokenID: "1"}).Return(nil),
			mocks.publisher.EXPECT().Publish(gomock.Any(), messaging.CommandUpdateTokenOwnership,
				messaging.UpdateTokenOwnershipPayload{CollectionAddress: kitties, TokenID: "2"}).Return(nil),
		)

		err := mocks.handler.Handle(context.Background(),
			envelope(t, messaging.CommandProcessBlock, messaging.ProcessBlockPayload{BlockNumber: 100}))
		assert.NoError(t, err)
	})

	t.Run("skip flag suppresses ownership updates", func(t *testing.T) {
		mocks := setupTestRouter(t, pipeline.Config{})
		defer mocks.ctrl.Finish()

		mocks.extractor.EXPECT().Extract(gomock.Any(), uint64(100)).Return(extraction, nil)
		mocks.reconciler.EXPECT().Reconcile(gomock.Any(), extraction).
			Return(&reconciler.Result{BlockNumber: 100, ChangedTokens: changed}, nil)

		err := mocks.handler.Handle(context.Background(), envelope(t, messaging.CommandProcessBlock,
			messaging.ProcessBlockPayload{BlockNumber: 100, ShouldSkipProcessingTokens: true}))
		assert.NoError(t, err)
	})

	t.Run("unchanged block queues nothing", func(t *testing.T) {
		mocks := setupTestRouter(t, pipeline.Config{})
		defer mocks.ctrl.Finish()

		mocks.extractor.EXPECT().Extract(gomock.Any(), uint64(100)).Return(extraction, nil)
		mocks.reconciler.EXPECT().Reconcile(gomock.Any(), extraction).Return(&reconciler.Result{BlockNumber: 100}, nil)

		err := mocks.handler.Handle(context.Background(),
			envelope(t, messaging.CommandProcessBlock, messaging.ProcessBlockPayload{BlockNumber: 100}))
		assert.NoError(t, err)
	})

	t.Run("extraction failure aborts before reconciling", func(t *testing.T) {
		mocks := setupTestRouter(t, pipeline.Config{})
		defer mocks.ctrl.Finish()

		mocks.extractor.EXPECT().Extract(gomock.Any(), uint64(101)).
			Return(nil, fmt.Errorf("%w: 101", domain.ErrBlockNotFound))

		err := mocks.handler.Handle(context.Background(),
			envelope(t, messaging.CommandProcessBlock, messaging.ProcessBlockPayload{BlockNumber: 101}))
		assert.ErrorIs(t, err, domain.ErrBlockNotFound)
		assert.False(t, domain.IsPermanent(err))
	})

	t.Run("publish failure is returned", func(t *testing.T) {
		mocks := setupTestRouter(t, pipeline.Config{})
		defer mocks.ctrl.Finish()

		mocks.extractor.EXPECT().Extract(gomock.Any(), uint64(100)).Return(extraction, nil)
		mocks.reconciler.EXPECT().Reconcile(gomock.Any(), extraction).
			Return(&reconciler.Result{BlockNumber: 100, ChangedTokens: changed}, nil)
		mocks.publisher.EXPECT().Publish(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("nats: timeout"))

		err := mocks.handler.Handle(context.Background(),
			envelope(t, messaging.CommandProcessBlock, messaging.ProcessBlockPayload{BlockNumber: 100}))
		assert.Error(t, err)
	})
}

func TestRouter_ProcessBlock_RedeliveryAfterPublishFailure(t *testing.T) {
	mocks := setupTestRouter(t, pipeline.Config{})
	defer mocks.ctrl.Finish()

	extraction := &extractor.Result{
		Header: domain.BlockHeader{Number: 100},
		Transfers: []domain.Transfer{
			{CollectionAddress: kitties, TokenID: "2", BlockNumber: 100},
			{CollectionAddress: kitties, TokenID: "1", BlockNumber: 100},
			{CollectionAddress: kitties, TokenID: "1", BlockNumber: 100, LogIndex: 3},
		},
	}
	msg := envelope(t, messaging.CommandProcessBlock, messaging.ProcessBlockPayload{BlockNumber: 100})
	ownershipUpdate := func(tokenID string) messaging.UpdateTokenOwnershipPayload {
		return messaging.UpdateTokenOwnershipPayload{CollectionAddress: kitties, TokenID: tokenID}
	}

	mocks.extractor.EXPECT().Extract(gomock.Any(), uint64(100)).Return(extraction, nil).Times(2)
	gomock.InOrder(
		// first delivery commits the block, then fails to queue the first update
		mocks.reconciler.EXPECT().Reconcile(gomock.Any(), extraction).
			Return(&reconciler.Result{
				BlockNumber:   100,
				Inserted:      3,
				ChangedTokens: []domain.TokenKey{domain.NewTokenKey(kitties, "1"), domain.NewTokenKey(kitties, "2")},
			}, nil),
		mocks.publisher.EXPECT().Publish(gomock.Any(), messaging.CommandUpdateTokenOwnership, ownershipUpdate("1")).
			Return(errors.New("nats: timeout")),

		// the redelivery finds nothing left to write but still queues every token of the block
		mocks.reconciler.EXPECT().Reconcile(gomock.Any(), extraction).
			Return(&reconciler.Result{BlockNumber: 100}, nil),
		mocks.publisher.EXPECT().Publish(gomock.Any(), messaging.CommandUpdateTokenOwnership, ownershipUpdate("1")).
			Return(nil),
		mocks.publisher.EXPECT().Publish(gomock.Any(), messaging.CommandUpdateTokenOwnership, ownershipUpdate("2")).
			Return(nil),
	)

	err := mocks.handler.Handle(messaging.WithDeliveryAttempt(context.Background(), 1), msg)
	require.Error(t, err)

	err = mocks.handler.Handle(messaging.WithDeliveryAttempt(context.Background(), 2), msg)
	assert.NoError(t, err)
}

func TestRouter_ReceiveNewBlocks(t *testing.T) {
	receive := func(t *testing.T) *messaging.Envelope {
		return envelope(t, messaging.CommandReceiveNewBlocks, messaging.ReceiveNewBlocksPayload{})
	}

	t.Run("queues from the cursor up to the head", func(t *testing.T) {
		mocks := setupTestRouter(t, pipeline.Config{MaxBlocksPerRun: 10})
		defer mocks.ctrl.Finish()

		mocks.chain.EXPECT().GetLatestBlockNumber(gomock.Any()).Return(uint64(503), nil)
		mocks.store.EXPECT().GetBlockCursor(gomock.Any(), domain.BLOCK_CURSOR_KEY).Return(uint64(500), true, nil)
		mocks.expectBlocksQueued(501, 502, 503)
		mocks.store.EXPECT().SetBlockCursor(gomock.Any(), domain.BLOCK_CURSOR_KEY, uint64(503)).Return(nil)

		assert.NoError(t, mocks.handler.Handle(context.Background(), receive(t)))
	})

	t.Run("caps the run at max blocks", func(t *testing.T) {
		mocks := setupTestRouter(t, pipeline.Config{MaxBlocksPerRun: 2})
		defer mocks.ctrl.Finish()

		mocks.chain.EXPECT().GetLatestBlockNumber(gomock.Any()).Return(uint64(900), nil)
		mocks.store.EXPECT().GetBlockCursor(gomock.Any(), domain.BLOCK_CURSOR_KEY).Return(uint64(500), true, nil)
		mocks.expectBlocksQueued(501, 502)
		mocks.store.EXPECT().SetBlockCursor(gomock.Any(), domain.BLOCK_CURSOR_KEY, uint64(502)).Return(nil)

		assert.NoError(t, mocks.handler.Handle(context.Background(), receive(t)))
	})

	t.Run("no cursor starts at the configured block", func(t *testing.T) {
		mocks := setupTestRouter(t, pipeline.Config{MaxBlocksPerRun: 3, StartBlock: 4605167})
		defer mocks.ctrl.Finish()

		mocks.chain.EXPECT().GetLatestBlockNumber(gomock.Any()).Return(uint64(19000000), nil)
		mocks.store.EXPECT().GetBlockCursor(gomock.Any(), domain.BLOCK_CURSOR_KEY).Return(uint64(0), false, nil)
		mocks.expectBlocksQueued(4605167, 4605168, 4605169)
		mocks.store.EXPECT().SetBlockCursor(gomock.Any(), domain.BLOCK_CURSOR_KEY, uint64(4605169)).Return(nil)

		assert.NoError(t, mocks.handler.Handle(context.Background(), receive(t)))
	})

	t.Run("no cursor and no start block starts at the head", func(t *testing.T) {
		mocks := setupTestRouter(t, pipeline.Config{MaxBlocksPerRun: 50})
		defer mocks.ctrl.Finish()

		mocks.chain.EXPECT().GetLatestBlockNumber(gomock.Any()).Return(uint64(800), nil)
		mocks.store.EXPECT().GetBlockCursor(gomock.Any(), domain.BLOCK_CURSOR_KEY).Return(uint64(0), false, nil)
		mocks.expectBlocksQueued(800)
		mocks.store.EXPECT().SetBlockCursor(gomock.Any(), domain.BLOCK_CURSOR_KEY, uint64(800)).Return(nil)

		assert.NoError(t, mocks.handler.Handle(context.Background(), receive(t)))
	})

	t.Run("caught up queues nothing", func(t *testing.T) {
		mocks := setupTestRouter(t, pipeline.Config{MaxBlocksPerRun: 50})
		defer mocks.ctrl.Finish()

		mocks.chain.EXPECT().GetLatestBlockNumber(gomock.Any()).Return(uint64(800), nil)
		mocks.store.EXPECT().GetBlockCursor(gomock.Any(), domain.BLOCK_CURSOR_KEY).Return(uint64(800), true, nil)

		assert.NoError(t, mocks.handler.Handle(context.Background(), receive(t)))
	})

	t.Run("publish failure keeps the cursor", func(t *testing.T) {
		mocks := setupTestRouter(t, pipeline.Config{MaxBlocksPerRun: 50})
		defer mocks.ctrl.Finish()

		mocks.chain.EXPECT().GetLatestBlockNumber(gomock.Any()).Return(uint64(802), nil)
		mocks.store.EXPECT().GetBlockCursor(gomock.Any(), domain.BLOCK_CURSOR_KEY).Return(uint64(800), true, nil)
		gomock.InOrder(
			mocks.publisher.EXPECT().Publish(gomock.Any(), messaging.CommandProcessBlock,
				messaging.ProcessBlockPayload{BlockNumber: 801}).Return(nil),
			mocks.publisher.EXPECT().Publish(gomock.Any(), messaging.CommandProcessBlock,
				messaging.ProcessBlockPayload{BlockNumber: 802}).Return(errors.New("nats: timeout")),
		)

		assert.Error(t, mocks.handler.Handle(context.Background(), receive(t)))
	})

	t.Run("chain failure", func(t *testing.T) {
		mocks := setupTestRouter(t, pipeline.Config{MaxBlocksPerRun: 50})
		defer mocks.ctrl.Finish()

		mocks.chain.EXPECT().GetLatestBlockNumber(gomock.Any()).Return(uint64(0), errors.New("429 too many requests"))

		assert.Error(t, mocks.handler.Handle(context.Background(), receive(t)))
	})
}

func TestRouter_ReceiveNewBlocks_HoldsCursorLock(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	locker := mockspkg.NewMockLocker(ctrl)
	locker.EXPECT().
		WithLock(gomock.Any(), domain.BLOCK_CURSOR_LOCK, gomock.Any()).
		Return(fmt.Errorf("%w: %s after 30s", domain.ErrLockTimeout, domain.BLOCK_CURSOR_LOCK))

	handler := pipeline.NewRouter(pipeline.Config{}, pipeline.Dependencies{
		Locker: locker,
		JSON:   adapter.NewJSON(),
	})

	err := handler.Handle(context.Background(), envelope(t, messaging.CommandReceiveNewBlocks, nil))
	assert.True(t, domain.IsRetryLater(err))
}

func TestRouter_ReprocessOldBlocks(t *testing.T) {
	cfg := pipeline.Config{
		ReprocessWindow:    time.Hour,
		ReprocessThreshold: 2 * time.Minute,
		ReprocessLimit:     100,
	}

	t.Run("requeues selected blocks", func(t *testing.T) {
		mocks := setupTestRouter(t, cfg)
		defer mocks.ctrl.Finish()

		mocks.store.EXPECT().
			GetBlocksForReprocessing(gomock.Any(), now.Add(-time.Hour), 2*time.Minute, 100).
			Return([]*schema.Block{{BlockNumber: 7}, {BlockNumber: 9}}, nil)
		mocks.expectBlocksQueued(7, 9)

		err := mocks.handler.Handle(context.Background(),
			envelope(t, messaging.CommandReprocessOldBlocks, messaging.ReprocessOldBlocksPayload{}))
		assert.NoError(t, err)
	})

	t.Run("nothing to reprocess", func(t *testing.T) {
		mocks := setupTestRouter(t, cfg)
		defer mocks.ctrl.Finish()

		mocks.store.EXPECT().GetBlocksForReprocessing(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil)

		err := mocks.handler.Handle(context.Background(),
			envelope(t, messaging.CommandReprocessOldBlocks, messaging.ReprocessOldBlocksPayload{}))
		assert.NoError(t, err)
	})
}

func TestRouter_UpdateTokenOwnership(t *testing.T) {
	t.Run("projects the normalized token", func(t *testing.T) {
		mocks := setupTestRouter(t, pipeline.Config{})
		defer mocks.ctrl.Finish()

		mocks.projector.EXPECT().
			Project(gomock.Any(), domain.TokenKey{CollectionAddress: kitties, TokenID: "42"}).
			Return(&ownership.Result{Path: "single", Outcome: "updated"}, nil)

		err := mocks.handler.Handle(context.Background(), envelope(t, messaging.CommandUpdateTokenOwnership,
			messaging.UpdateTokenOwnershipPayload{CollectionAddress: "0x06012c8cf97bead5deae237070f9587f8e7a266d", TokenID: "42"}))
		assert.NoError(t, err)
	})

	t.Run("no ownership is permanent", func(t *testing.T) {
		mocks := setupTestRouter(t, pipeline.Config{})
		defer mocks.ctrl.Finish()

		mocks.projector.EXPECT().Project(gomock.Any(), gomock.Any()).Return(nil, domain.ErrNoOwnership)

		err := mocks.handler.Handle(context.Background(), envelope(t, messaging.CommandUpdateTokenOwnership,
			messaging.UpdateTokenOwnershipPayload{CollectionAddress: kitties, TokenID: "42"}))
		assert.True(t, domain.IsPermanent(err))
	})

	t.Run("invalid token key is rejected", func(t *testing.T) {
		mocks := setupTestRouter(t, pipeline.Config{})
		defer mocks.ctrl.Finish()

		err := mocks.handler.Handle(context.Background(), envelope(t, messaging.CommandUpdateTokenOwnership,
			messaging.UpdateTokenOwnershipPayload{CollectionAddress: "not-an-address", TokenID: "42"}))
		assert.ErrorIs(t, err, domain.ErrInvalidMessage)
	})
}

func TestRouter_RejectsUnknownPayloadFields(t *testing.T) {
	mocks := setupTestRouter(t, pipeline.Config{})
	defer mocks.ctrl.Finish()

	env := &messaging.Envelope{
		ID:      "01HX",
		Command: messaging.CommandProcessBlock,
		Payload: []byte(`{"blockNumber":1,"chain":"tezos"}`),
	}
	err := mocks.handler.Handle(context.Background(), env)
	assert.ErrorIs(t, err, domain.ErrInvalidMessage)
	assert.True(t, domain.IsPermanent(err))
}
