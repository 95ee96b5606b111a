package store

import (
	"context"
	"time"

	"github.com/feral-file/ff-transfer-indexer/internal/domain"
	"github.com/feral-file/ff-transfer-indexer/internal/store/schema"
)

// UpsertBlockInput represents the header of a freshly fetched block
type UpsertBlockInput struct {
	BlockNumber uint64
	BlockHash   string
	BlockDate   time.Time
}

// UpsertBlockResult reports how the stored block row changed
type UpsertBlockResult struct {
	// Created is true when the block number was seen for the first time
	Created bool
	// HashChanged is true when the stored hash differed from the fetched one (reorg)
	HashChanged bool
	// PreviousHash is the stored hash before the upsert, empty when Created
	PreviousHash string
}

// LedgerState summarizes the transfer ledger of one token
type LedgerState struct {
	// Count is the number of ledger rows for the token
	Count int64
	// LatestUpdatedAt is the newest updated_at among the token's ledger rows
	LatestUpdatedAt time.Time
}

// Store defines the interface for database operations
//
//go:generate mockgen -source=store.go -destination=../mocks/store.go -package=mocks -mock_names=Store=MockStore
type Store interface {
	// WithTransaction runs fn with a store bound to a single database transaction.
	// The transaction is rolled back when fn returns an error.
	WithTransaction(ctx context.Context, fn func(tx Store) error) error
	// Ping checks the database connection
	Ping(ctx context.Context) error

	// GetBlock retrieves a block by number, nil if it was never reconciled
	GetBlock(ctx context.Context, blockNumber uint64) (*schema.Block, error)
	// UpsertBlock inserts a block or refreshes its hash and date
	UpsertBlock(ctx context.Context, input UpsertBlockInput) (*UpsertBlockResult, error)
	// GetBlocksForReprocessing retrieves blocks created after createdAfter whose last
	// reconciliation happened less than maxLag after the block date
	GetBlocksForReprocessing(ctx context.Context, createdAfter time.Time, maxLag time.Duration, limit int) ([]*schema.Block, error)

	// GetTransfersByBlockNumber retrieves all ledger rows of a block
	GetTransfersByBlockNumber(ctx context.Context, blockNumber uint64) ([]*schema.TokenTransfer, error)
	// CreateTransfers inserts ledger rows; a uniqueness violation returns domain.ErrDuplicate
	CreateTransfers(ctx context.Context, transfers []*schema.TokenTransfer) error
	// DeleteTransfersByIDs deletes ledger rows by id
	DeleteTransfersByIDs(ctx context.Context, ids []uint64) error
	// GetLatestTransferForToken retrieves the transfer with the highest block number for a token, nil if none
	GetLatestTransferForToken(ctx context.Context, key domain.TokenKey) (*schema.TokenTransfer, error)
	// GetTransfersForToken retrieves all transfers of a token in ascending block order
	GetTransfersForToken(ctx context.Context, key domain.TokenKey) ([]*schema.TokenTransfer, error)
	// GetTokenLedgerState retrieves the row count and newest write of a token's ledger
	GetTokenLedgerState(ctx context.Context, key domain.TokenKey) (*LedgerState, error)

	// GetTokenOwnership retrieves the single-owner row of a token, nil if none
	GetTokenOwnership(ctx context.Context, key domain.TokenKey) (*schema.TokenOwnership, error)
	// UpsertTokenOwnership creates or replaces the single-owner row of a token
	UpsertTokenOwnership(ctx context.Context, ownership *schema.TokenOwnership) error
	// GetTokenMultiOwnerships retrieves the holder rows of a token ordered by id
	GetTokenMultiOwnerships(ctx context.Context, key domain.TokenKey) ([]*schema.TokenMultiOwnership, error)
	// CreateTokenMultiOwnerships inserts holder rows; a uniqueness violation returns domain.ErrDuplicate
	CreateTokenMultiOwnerships(ctx context.Context, rows []*schema.TokenMultiOwnership) error
	// DeleteTokenMultiOwnershipsByIDs deletes holder rows by id
	DeleteTokenMultiOwnershipsByIDs(ctx context.Context, ids []uint64) error
	// TouchTokenMultiOwnership rewrites the freshness markers of a holder row
	TouchTokenMultiOwnership(ctx context.Context, id uint64, state LedgerState) error

	// CreateLock inserts a lock row and reports whether it was inserted
	CreateLock(ctx context.Context, lock *schema.Lock) (bool, error)
	// GetLock retrieves a lock row, nil if absent
	GetLock(ctx context.Context, name string) (*schema.Lock, error)
	// DeleteExpiredLock deletes a lock row only if its expiry time still matches
	DeleteExpiredLock(ctx context.Context, name string, expiryTime time.Time) (bool, error)
	// DeleteLock deletes a lock row owned by holder and reports whether it existed
	DeleteLock(ctx context.Context, name string, holder string) (bool, error)

	// GetBlockCursor retrieves a block cursor and whether it has been set
	GetBlockCursor(ctx context.Context, key string) (uint64, bool, error)
	// SetBlockCursor stores a block cursor
	SetBlockCursor(ctx context.Context, key string, blockNumber uint64) error
}
