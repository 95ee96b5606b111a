package reconciler

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/feral-file/ff-transfer-indexer/internal/domain"
	"github.com/feral-file/ff-transfer-indexer/internal/extractor"
	"github.com/feral-file/ff-transfer-indexer/internal/logger"
	"github.com/feral-file/ff-transfer-indexer/internal/metrics"
	"github.com/feral-file/ff-transfer-indexer/internal/store"
	"github.com/feral-file/ff-transfer-indexer/internal/store/schema"
)

// Result reports what a reconciliation changed
type Result struct {
	BlockNumber uint64
	// Created is true when the block was seen for the first time
	Created bool
	// Reorged is true when the stored block hash differed from the fetched one
	Reorged  bool
	Inserted int
	Deleted  int
	// ChangedTokens holds every token touched by an insert or a delete, sorted
	ChangedTokens []domain.TokenKey
}

// Reconciler persists the transfer set of a block as a minimal delta
//
//go:generate mockgen -source=reconciler.go -destination=../mocks/reconciler.go -package=mocks -mock_names=Reconciler=MockReconciler
type Reconciler interface {
	// Reconcile replaces the stored transfers of the block with the extracted ones.
	// Rows present in both sets are left untouched. Everything happens in one transaction.
	Reconcile(ctx context.Context, extraction *extractor.Result) (*Result, error)
}

type reconciler struct {
	store store.Store
}

// NewReconciler creates a new block reconciler
func NewReconciler(st store.Store) Reconciler {
	return &reconciler{store: st}
}

// Reconcile diffs the extracted transfers against the stored ones by uniqueness key
func (r *reconciler) Reconcile(ctx context.Context, extraction *extractor.Result) (*Result, error) {
	header := extraction.Header
	result := &Result{BlockNumber: header.Number}

	err := r.store.WithTransaction(ctx, func(tx store.Store) error {
		// Upsert first so the block row is locked for the rest of the transaction
		upsert, err := tx.UpsertBlock(ctx, store.UpsertBlockInput{
			BlockNumber: header.Number,
			BlockHash:   header.Hash,
			BlockDate:   header.Timestamp,
		})
		if err != nil {
			return fmt.Errorf("failed to upsert block: %w", err)
		}

		existing, err := tx.GetTransfersByBlockNumber(ctx, header.Number)
		if err != nil {
			return fmt.Errorf("failed to get existing transfers: %w", err)
		}

		toDelete, toInsert := diff(existing, extraction.Transfers)

		changed := make(map[domain.TokenKey]struct{})
		if len(toDelete) > 0 {
			ids := make([]uint64, 0, len(toDelete))
			for _, t := range toDelete {
				ids = append(ids, t.ID)
				changed[t.TokenKey()] = struct{}{}
			}
			if err := tx.DeleteTransfersByIDs(ctx, ids); err != nil {
				return fmt.Errorf("failed to delete transfers: %w", err)
			}
		}

		if len(toInsert) > 0 {
			for _, t := range toInsert {
				changed[t.TokenKey()] = struct{}{}
			}
			if err := tx.CreateTransfers(ctx, toInsert); err != nil {
				return fmt.Errorf("failed to insert transfers: %w", err)
			}
		}

		result.Created = upsert.Created
		result.Reorged = upsert.HashChanged
		result.Deleted = len(toDelete)
		result.Inserted = len(toInsert)
		result.ChangedTokens = sortedKeys(changed)

		if upsert.HashChanged {
			logger.WarnCtx(ctx, "Block hash changed, transfers re-extracted",
				zap.Uint64("blockNumber", header.Number),
				zap.String("previousHash", upsert.PreviousHash),
				zap.String("hash", header.Hash))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to reconcile block %d: %w", header.Number, err)
	}

	metrics.BlocksProcessed.Inc()
	metrics.TransfersInserted.Add(float64(result.Inserted))
	metrics.TransfersDeleted.Add(float64(result.Deleted))
	if result.Reorged {
		metrics.ReorgCount.Inc()
	}

	logger.InfoCtx(ctx, "Block reconciled",
		zap.Uint64("blockNumber", header.Number),
		zap.Bool("created", result.Created),
		zap.Int("inserted", result.Inserted),
		zap.Int("deleted", result.Deleted),
		zap.Int("changedTokens", len(result.ChangedTokens)))

	return result, nil
}

// diff returns the stored rows missing from the extraction and the extracted
// transfers missing from storage, keyed by the full uniqueness tuple.
// Extracted transfers sharing a key collapse into the first one.
func diff(existing []*schema.TokenTransfer, retrieved []domain.Transfer) ([]*schema.TokenTransfer, []*schema.TokenTransfer) {
	existingKeys := make(map[domain.TransferKey]struct{}, len(existing))
	for _, t := range existing {
		existingKeys[t.Key()] = struct{}{}
	}

	retrievedKeys := make(map[domain.TransferKey]struct{}, len(retrieved))
	var toInsert []*schema.TokenTransfer
	for _, t := range retrieved {
		key := t.Key()
		if _, seen := retrievedKeys[key]; seen {
			continue
		}
		retrievedKeys[key] = struct{}{}
		if _, ok := existingKeys[key]; !ok {
			toInsert = append(toInsert, schema.NewTokenTransfer(t))
		}
	}

	var toDelete []*schema.TokenTransfer
	for _, t := range existing {
		if _, ok := retrievedKeys[t.Key()]; !ok {
			toDelete = append(toDelete, t)
		}
	}

	return toDelete, toInsert
}

func sortedKeys(set map[domain.TokenKey]struct{}) []domain.TokenKey {
	keys := make([]domain.TokenKey, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	return keys
}
