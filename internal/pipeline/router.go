package pipeline

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/feral-file/ff-transfer-indexer/internal/adapter"
	"github.com/feral-file/ff-transfer-indexer/internal/domain"
	"github.com/feral-file/ff-transfer-indexer/internal/extractor"
	"github.com/feral-file/ff-transfer-indexer/internal/lock"
	"github.com/feral-file/ff-transfer-indexer/internal/logger"
	"github.com/feral-file/ff-transfer-indexer/internal/messaging"
	"github.com/feral-file/ff-transfer-indexer/internal/metrics"
	"github.com/feral-file/ff-transfer-indexer/internal/ownership"
	"github.com/feral-file/ff-transfer-indexer/internal/providers/ethereum"
	"github.com/feral-file/ff-transfer-indexer/internal/reconciler"
	"github.com/feral-file/ff-transfer-indexer/internal/store"
)

// Config holds the block scheduling settings of the router
type Config struct {
	// StartBlock is where ingestion begins when no cursor exists; zero means the chain head
	StartBlock uint64
	// MaxBlocksPerRun caps how many blocks one RECEIVE_NEW_BLOCKS queues
	MaxBlocksPerRun uint64
	// ReprocessWindow is how far back REPROCESS_OLD_BLOCKS looks at created blocks
	ReprocessWindow time.Duration
	// ReprocessThreshold is the reconciliation lag under which a block counts as possibly incomplete
	ReprocessThreshold time.Duration
	// ReprocessLimit caps how many blocks one REPROCESS_OLD_BLOCKS queues
	ReprocessLimit int
}

// Dependencies groups the collaborators of the router
type Dependencies struct {
	Extractor  extractor.Extractor
	Reconciler reconciler.Reconciler
	Projector  ownership.Projector
	Publisher  messaging.Publisher
	Store      store.Store
	Chain      ethereum.EthereumClient
	Locker     lock.Locker
	JSON       adapter.JSON
	Clock      adapter.Clock
}

type router struct {
	config Config
	deps   Dependencies
}

// NewRouter creates the handler that routes every pipeline command to its stage
func NewRouter(cfg Config, deps Dependencies) messaging.Handler {
	if cfg.MaxBlocksPerRun == 0 {
		cfg.MaxBlocksPerRun = 1
	}
	return &router{
		config: cfg,
		deps:   deps,
	}
}

// Handle runs the stage named by the envelope's command
func (r *router) Handle(ctx context.Context, env *messaging.Envelope) error {
	switch env.Command {
	case messaging.CommandProcessBlock:
		payload, err := messaging.DecodePayload[messaging.ProcessBlockPayload](r.deps.JSON, env)
		if err != nil {
			return err
		}
		return r.processBlock(ctx, payload)

	case messaging.CommandReceiveNewBlocks:
		if _, err := messaging.DecodePayload[messaging.ReceiveNewBlocksPayload](r.deps.JSON, env); err != nil {
			return err
		}
		return r.receiveNewBlocks(ctx)

	case messaging.CommandReprocessOldBlocks:
		if _, err := messaging.DecodePayload[messaging.ReprocessOldBlocksPayload](r.deps.JSON, env); err != nil {
			return err
		}
		return r.reprocessOldBlocks(ctx)

	case messaging.CommandUpdateTokenOwnership:
		payload, err := messaging.DecodePayload[messaging.UpdateTokenOwnershipPayload](r.deps.JSON, env)
		if err != nil {
			return err
		}
		if err := payload.Validate(); err != nil {
			return fmt.Errorf("%w: %w", domain.ErrInvalidMessage, err)
		}
		return r.updateTokenOwnership(ctx, payload.TokenKey())

	default:
		return fmt.Errorf("%w: %s", domain.ErrUnknownCommand, env.Command)
	}
}

// processBlock extracts and reconciles one block, then queues an ownership update per changed token
func (r *router) processBlock(ctx context.Context, payload messaging.ProcessBlockPayload) error {
	extraction, err := r.deps.Extractor.Extract(ctx, payload.BlockNumber)
	if err != nil {
		return fmt.Errorf("failed to extract block %d: %w", payload.BlockNumber, err)
	}

	result, err := r.deps.Reconciler.Reconcile(ctx, extraction)
	if err != nil {
		return err
	}

	if payload.ShouldSkipProcessingTokens {
		logger.DebugCtx(ctx, "Skipping ownership updates",
			zap.Uint64("block_number", payload.BlockNumber),
			zap.Int("changed_tokens", len(result.ChangedTokens)),
		)
		return nil
	}

	keys := result.ChangedTokens
	if messaging.IsRedelivery(ctx) {
		// A previous attempt may have committed the block and then failed to queue
		// its updates, so the empty diff of this attempt cannot be trusted
		keys = mergeTokenKeys(keys, extraction.Transfers)
		logger.InfoCtx(ctx, "Requeueing ownership updates for every token of a redelivered block",
			zap.Uint64("block_number", payload.BlockNumber),
			zap.Int("tokens", len(keys)),
		)
	}

	for _, key := range keys {
		err := r.deps.Publisher.Publish(ctx, messaging.CommandUpdateTokenOwnership, messaging.UpdateTokenOwnershipPayload{
			CollectionAddress: key.CollectionAddress,
			TokenID:           key.TokenID,
		})
		if err != nil {
			return fmt.Errorf("failed to queue ownership update for %s: %w", key, err)
		}
	}

	return nil
}

// mergeTokenKeys returns the sorted union of keys and the token keys of transfers
func mergeTokenKeys(keys []domain.TokenKey, transfers []domain.Transfer) []domain.TokenKey {
	set := make(map[domain.TokenKey]struct{}, len(keys)+len(transfers))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	for _, t := range transfers {
		set[t.TokenKey()] = struct{}{}
	}

	merged := make([]domain.TokenKey, 0, len(set))
	for k := range set {
		merged = append(merged, k)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Less(merged[j]) })
	return merged
}

// receiveNewBlocks queues the blocks mined since the cursor and advances it.
// The cursor lock keeps concurrent triggers from queueing the same range twice.
func (r *router) receiveNewBlocks(ctx context.Context) error {
	return r.deps.Locker.WithLock(ctx, domain.BLOCK_CURSOR_LOCK, func(ctx context.Context) error {
		head, err := r.deps.Chain.GetLatestBlockNumber(ctx)
		if err != nil {
			return fmt.Errorf("failed to get chain head: %w", err)
		}
		metrics.ChainHead.Set(float64(head))

		cursor, ok, err := r.deps.Store.GetBlockCursor(ctx, domain.BLOCK_CURSOR_KEY)
		if err != nil {
			return err
		}

		from := cursor + 1
		if !ok {
			from = head
			if r.config.StartBlock > 0 {
				from = r.config.StartBlock
			}
		}
		if from > head {
			logger.DebugCtx(ctx, "No new blocks", zap.Uint64("cursor", cursor), zap.Uint64("head", head))
			return nil
		}
		to := min(head, from+r.config.MaxBlocksPerRun-1)

		for n := from; n <= to; n++ {
			if err := r.deps.Publisher.Publish(ctx, messaging.CommandProcessBlock, messaging.ProcessBlockPayload{BlockNumber: n}); err != nil {
				return fmt.Errorf("failed to queue block %d: %w", n, err)
			}
		}

		if err := r.deps.Store.SetBlockCursor(ctx, domain.BLOCK_CURSOR_KEY, to); err != nil {
			return err
		}
		metrics.BlockCursor.Set(float64(to))

		logger.InfoCtx(ctx, "Queued new blocks",
			zap.Uint64("from", from),
			zap.Uint64("to", to),
			zap.Uint64("head", head),
		)
		return nil
	})
}

// reprocessOldBlocks queues again the recent blocks that were reconciled suspiciously close to their block date
func (r *router) reprocessOldBlocks(ctx context.Context) error {
	createdAfter := r.deps.Clock.Now().Add(-r.config.ReprocessWindow)
	blocks, err := r.deps.Store.GetBlocksForReprocessing(ctx, createdAfter, r.config.ReprocessThreshold, r.config.ReprocessLimit)
	if err != nil {
		return err
	}

	for _, block := range blocks {
		if err := r.deps.Publisher.Publish(ctx, messaging.CommandProcessBlock, messaging.ProcessBlockPayload{BlockNumber: block.BlockNumber}); err != nil {
			return fmt.Errorf("failed to requeue block %d: %w", block.BlockNumber, err)
		}
	}

	if len(blocks) > 0 {
		logger.InfoCtx(ctx, "Requeued blocks for reprocessing",
			zap.Int("count", len(blocks)),
			zap.Uint64("first", blocks[0].BlockNumber),
			zap.Uint64("last", blocks[len(blocks)-1].BlockNumber),
		)
	}
	return nil
}

func (r *router) updateTokenOwnership(ctx context.Context, key domain.TokenKey) error {
	_, err := r.deps.Projector.Project(ctx, key)
	return err
}
