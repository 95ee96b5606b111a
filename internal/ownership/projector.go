package ownership

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/feral-file/ff-transfer-indexer/internal/domain"
	"github.com/feral-file/ff-transfer-indexer/internal/lock"
	"github.com/feral-file/ff-transfer-indexer/internal/logger"
	"github.com/feral-file/ff-transfer-indexer/internal/metrics"
	"github.com/feral-file/ff-transfer-indexer/internal/store"
	"github.com/feral-file/ff-transfer-indexer/internal/store/schema"
)

// Result reports what a projection did
type Result struct {
	// Path is metrics.PathSingle or metrics.PathMulti
	Path string
	// Outcome is one of the metrics.Result* values
	Outcome  string
	Inserted int
	Deleted  int
}

// Projector derives the current ownership of a token from its transfer ledger
//
//go:generate mockgen -source=projector.go -destination=../mocks/projector.go -package=mocks -mock_names=Projector=MockProjector
type Projector interface {
	// Project recomputes the ownership of a token while holding its lock.
	// It returns domain.ErrNoOwnership when the token has no transfer.
	Project(ctx context.Context, key domain.TokenKey) (*Result, error)
}

type projector struct {
	store  store.Store
	locker lock.Locker
}

// NewProjector creates a new ownership projector
func NewProjector(st store.Store, locker lock.Locker) Projector {
	return &projector{
		store:  st,
		locker: locker,
	}
}

// Project recomputes the ownership of a token
func (p *projector) Project(ctx context.Context, key domain.TokenKey) (*Result, error) {
	var result *Result
	err := p.locker.WithLock(ctx, key.LockName(), func(ctx context.Context) error {
		return p.store.WithTransaction(ctx, func(tx store.Store) error {
			latest, err := tx.GetLatestTransferForToken(ctx, key)
			if err != nil {
				return err
			}
			if latest == nil {
				return fmt.Errorf("%w: %s", domain.ErrNoOwnership, key)
			}

			state, err := tx.GetTokenLedgerState(ctx, key)
			if err != nil {
				return err
			}

			if latest.TokenType.MultiOwner() {
				result, err = projectMulti(ctx, tx, key, *state)
			} else {
				result, err = projectSingle(ctx, tx, key, latest, *state)
			}
			return err
		})
	})
	if err != nil {
		return nil, err
	}

	metrics.OwnershipRecomputations.WithLabelValues(result.Path, result.Outcome).Inc()
	logger.DebugCtx(ctx, "Ownership projected",
		zap.String("token", key.String()),
		zap.String("path", result.Path),
		zap.String("outcome", result.Outcome),
		zap.Int("inserted", result.Inserted),
		zap.Int("deleted", result.Deleted))

	return result, nil
}

// projectSingle takes the owner from the latest transfer
func projectSingle(ctx context.Context, tx store.Store, key domain.TokenKey, latest *schema.TokenTransfer, state store.LedgerState) (*Result, error) {
	result := &Result{Path: metrics.PathSingle}

	existing, err := tx.GetTokenOwnership(ctx, key)
	if err != nil {
		return nil, err
	}
	if existing != nil && isStale(existing.TransferUpdatedDate, existing.TransferCount, state) {
		result.Outcome = metrics.ResultSkipped
		logger.InfoCtx(ctx, "Skipping ownership projection, stored record reflects a newer ledger",
			zap.String("token", key.String()),
			zap.Time("storedUpdatedDate", existing.TransferUpdatedDate),
			zap.Time("ledgerUpdatedDate", state.LatestUpdatedAt))
		return result, nil
	}

	ownership := &schema.TokenOwnership{
		CollectionAddress:       key.CollectionAddress,
		TokenID:                 key.TokenID,
		OwnerAddress:            latest.ToAddress,
		TransferDate:            latest.BlockDate,
		TransferValue:           latest.Value,
		TransferTransactionHash: latest.TransactionHash,
		TransferUpdatedDate:     state.LatestUpdatedAt,
		TransferCount:           state.Count,
	}

	if existing != nil && sameOwnership(existing, ownership) {
		result.Outcome = metrics.ResultUnchanged
		return result, nil
	}

	if err := tx.UpsertTokenOwnership(ctx, ownership); err != nil {
		return nil, err
	}
	result.Outcome = metrics.ResultUpdated
	result.Inserted = 1
	return result, nil
}

// projectMulti replays the whole ledger and writes the holder delta
func projectMulti(ctx context.Context, tx store.Store, key domain.TokenKey, state store.LedgerState) (*Result, error) {
	result := &Result{Path: metrics.PathMulti}

	existing, err := tx.GetTokenMultiOwnerships(ctx, key)
	if err != nil {
		return nil, err
	}
	if newest := newestRow(existing); newest != nil && isStale(newest.TransferUpdatedDate, newest.TransferCount, state) {
		result.Outcome = metrics.ResultSkipped
		logger.InfoCtx(ctx, "Skipping multi ownership projection, stored rows reflect a newer ledger",
			zap.String("token", key.String()),
			zap.Time("storedUpdatedDate", newest.TransferUpdatedDate),
			zap.Time("ledgerUpdatedDate", state.LatestUpdatedAt))
		return result, nil
	}

	transfers, err := tx.GetTransfersForToken(ctx, key)
	if err != nil {
		return nil, err
	}

	desired := make(map[domain.MultiOwnershipKey]*schema.TokenMultiOwnership)
	var order []domain.MultiOwnershipKey
	for _, h := range Replay(transfers) {
		row := &schema.TokenMultiOwnership{
			CollectionAddress:             key.CollectionAddress,
			TokenID:                       key.TokenID,
			OwnerAddress:                  h.OwnerAddress,
			Quantity:                      h.Quantity.String(),
			AverageTransferValue:          h.FlooredAverage().String(),
			LatestTransferDate:            h.LatestTransferDate,
			LatestTransferTransactionHash: h.LatestTransferTxHash,
			TransferUpdatedDate:           state.LatestUpdatedAt,
			TransferCount:                 state.Count,
		}
		k := row.Key()
		desired[k] = row
		order = append(order, k)
	}

	existingKeys := make(map[domain.MultiOwnershipKey]struct{}, len(existing))
	var toDelete []uint64
	for _, row := range existing {
		k := row.Key()
		existingKeys[k] = struct{}{}
		if _, ok := desired[k]; !ok {
			toDelete = append(toDelete, row.ID)
		}
	}

	var toInsert []*schema.TokenMultiOwnership
	for _, k := range order {
		if _, ok := existingKeys[k]; !ok {
			toInsert = append(toInsert, desired[k])
		}
	}

	if len(toDelete) == 0 && len(toInsert) == 0 {
		if len(existing) == 0 {
			result.Outcome = metrics.ResultUnchanged
			return result, nil
		}
		if err := tx.TouchTokenMultiOwnership(ctx, existing[0].ID, state); err != nil {
			return nil, err
		}
		result.Outcome = metrics.ResultTouched
		return result, nil
	}

	// Deletes go first: a holder whose row changed keeps the same (collection, token, owner) index entry
	if len(toDelete) > 0 {
		if err := tx.DeleteTokenMultiOwnershipsByIDs(ctx, toDelete); err != nil {
			return nil, err
		}
	}
	if len(toInsert) > 0 {
		if err := tx.CreateTokenMultiOwnerships(ctx, toInsert); err != nil {
			return nil, err
		}
	}

	result.Outcome = metrics.ResultUpdated
	result.Deleted = len(toDelete)
	result.Inserted = len(toInsert)
	return result, nil
}

// isStale reports whether a stored record already reflects a newer version of a ledger of the same size
func isStale(storedUpdatedDate time.Time, storedCount int64, state store.LedgerState) bool {
	return storedUpdatedDate.After(state.LatestUpdatedAt) && storedCount == state.Count
}

func newestRow(rows []*schema.TokenMultiOwnership) *schema.TokenMultiOwnership {
	var newest *schema.TokenMultiOwnership
	for _, row := range rows {
		if newest == nil || row.TransferUpdatedDate.After(newest.TransferUpdatedDate) {
			newest = row
		}
	}
	return newest
}

func sameOwnership(a, b *schema.TokenOwnership) bool {
	return a.OwnerAddress == b.OwnerAddress &&
		a.TransferDate.Equal(b.TransferDate) &&
		a.TransferValue == b.TransferValue &&
		a.TransferTransactionHash == b.TransferTransactionHash &&
		a.TransferUpdatedDate.Equal(b.TransferUpdatedDate) &&
		a.TransferCount == b.TransferCount
}
