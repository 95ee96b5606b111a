package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/plugin/dbresolver"

	"github.com/feral-file/ff-transfer-indexer/internal/domain"
	"github.com/feral-file/ff-transfer-indexer/internal/store/schema"
)

// pgUniqueViolation is the SQLSTATE of a unique constraint violation
const pgUniqueViolation = "23505"

// Parameters bound per inserted row, used to size insert batches
const (
	tokenTransferFields       = 22
	tokenMultiOwnershipFields = 11
)

type pgStore struct {
	db *gorm.DB
}

// NewPGStore creates a new PostgreSQL store instance
func NewPGStore(db *gorm.DB) Store {
	return &pgStore{db: db}
}

// ConfigureConnectionPool configures the connection pool settings for a GORM database connection.
// Zero values fall back to the defaults of NormalizeConnectionPoolSettings.
func ConfigureConnectionPool(db *gorm.DB, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime =
		NormalizeConnectionPoolSettings(maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime)

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	return nil
}

// NormalizeConnectionPoolSettings applies defaults and clamps pool settings into safe values.
//
// Defaults (when zero):
//   - MaxOpenConns: 20
//   - MaxIdleConns: 5
//   - ConnMaxLifetime: 5 minutes
//   - ConnMaxIdleTime: 10 minutes
func NormalizeConnectionPoolSettings(maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) (int, int, time.Duration, time.Duration) {
	if maxOpenConns == 0 {
		maxOpenConns = 20
	}
	if maxIdleConns == 0 {
		maxIdleConns = 5
	}
	if connMaxLifetime == 0 {
		connMaxLifetime = 5 * time.Minute
	}
	if connMaxIdleTime == 0 {
		connMaxIdleTime = 10 * time.Minute
	}

	// Ensure MaxIdleConns doesn't exceed MaxOpenConns
	if maxIdleConns > maxOpenConns {
		maxIdleConns = maxOpenConns
	}

	return maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime
}

// calculateSafeBatchSize computes the batch size for bulk inserts that stays under
// PostgreSQL's limit of 65535 bound parameters per statement.
func calculateSafeBatchSize(totalRecords int, fieldsPerRecord int) int {
	const maxParams = 65535
	const totalHeadroom = 1000 // ON CONFLICT and timestamp parameters added by GORM

	availableParams := maxParams - totalHeadroom
	safeBatchSize := max(availableParams/fieldsPerRecord, 1)

	if safeBatchSize > totalRecords {
		return totalRecords
	}

	return safeBatchSize
}

// translateError maps unique violations to domain.ErrDuplicate
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %w", domain.ErrDuplicate, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return fmt.Errorf("%w: %w", domain.ErrDuplicate, err)
	}
	return err
}

// WithTransaction runs fn inside a transaction, or a savepoint when already inside one
func (s *pgStore) WithTransaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&pgStore{db: tx})
	})
}

// Ping checks the database connection
func (s *pgStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// GetBlock retrieves a block by number
func (s *pgStore) GetBlock(ctx context.Context, blockNumber uint64) (*schema.Block, error) {
	var block schema.Block
	err := s.db.WithContext(ctx).Where("block_number = ?", blockNumber).First(&block).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get block: %w", err)
	}
	return &block, nil
}

// UpsertBlock inserts a block or refreshes its hash and date.
// updated_at is bumped on every call so the row records the latest reconciliation.
func (s *pgStore) UpsertBlock(ctx context.Context, input UpsertBlockInput) (*UpsertBlockResult, error) {
	var result UpsertBlockResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		block := schema.Block{
			BlockNumber: input.BlockNumber,
			BlockHash:   input.BlockHash,
			BlockDate:   input.BlockDate,
		}

		// Use ON CONFLICT DO NOTHING so concurrent first sightings don't fail
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "block_number"}},
			DoNothing: true,
		}).Create(&block)
		if res.Error != nil {
			return fmt.Errorf("failed to create block: %w", res.Error)
		}
		if res.RowsAffected == 1 {
			result.Created = true
			return nil
		}

		// Lock the existing row to compare hashes
		var existing schema.Block
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("block_number = ?", input.BlockNumber).
			First(&existing).Error; err != nil {
			return fmt.Errorf("failed to lock block: %w", err)
		}
		result.PreviousHash = existing.BlockHash
		result.HashChanged = existing.BlockHash != input.BlockHash

		if err := tx.Model(&schema.Block{}).
			Where("block_number = ?", input.BlockNumber).
			Updates(map[string]interface{}{
				"block_hash": input.BlockHash,
				"block_date": input.BlockDate,
				"updated_at": time.Now(),
			}).Error; err != nil {
			return fmt.Errorf("failed to update block: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// GetBlocksForReprocessing retrieves recently created blocks whose last reconciliation
// happened shortly after the block was mined
func (s *pgStore) GetBlocksForReprocessing(ctx context.Context, createdAfter time.Time, maxLag time.Duration, limit int) ([]*schema.Block, error) {
	var blocks []*schema.Block
	err := s.db.WithContext(ctx).
		Where("created_at >= ?", createdAfter).
		Where("updated_at - block_date < ? * interval '1 second'", maxLag.Seconds()).
		Order("block_number ASC").
		Limit(limit).
		Find(&blocks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get blocks for reprocessing: %w", err)
	}
	return blocks, nil
}

// GetTransfersByBlockNumber retrieves all ledger rows of a block
func (s *pgStore) GetTransfersByBlockNumber(ctx context.Context, blockNumber uint64) ([]*schema.TokenTransfer, error) {
	var transfers []*schema.TokenTransfer
	err := s.db.WithContext(ctx).
		Where("block_number = ?", blockNumber).
		Order("log_index ASC, id ASC").
		Find(&transfers).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get transfers by block number: %w", err)
	}
	return transfers, nil
}

// CreateTransfers inserts ledger rows in batches
func (s *pgStore) CreateTransfers(ctx context.Context, transfers []*schema.TokenTransfer) error {
	if len(transfers) == 0 {
		return nil
	}

	// Ownership skip checks compare updated_at across workers, so every row takes the database clock
	var now time.Time
	if err := s.db.WithContext(ctx).Raw("SELECT now()").Scan(&now).Error; err != nil {
		return fmt.Errorf("failed to read database clock: %w", err)
	}
	for _, transfer := range transfers {
		transfer.CreatedAt = now
		transfer.UpdatedAt = now
	}

	batchSize := calculateSafeBatchSize(len(transfers), tokenTransferFields)
	if err := s.db.WithContext(ctx).CreateInBatches(transfers, batchSize).Error; err != nil {
		return fmt.Errorf("failed to create transfers: %w", translateError(err))
	}
	return nil
}

// DeleteTransfersByIDs deletes ledger rows by id
func (s *pgStore) DeleteTransfersByIDs(ctx context.Context, ids []uint64) error {
	if len(ids) == 0 {
		return nil
	}

	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Delete(&schema.TokenTransfer{}).Error; err != nil {
		return fmt.Errorf("failed to delete transfers: %w", err)
	}
	return nil
}

// GetLatestTransferForToken retrieves the transfer with the highest block number for a token
func (s *pgStore) GetLatestTransferForToken(ctx context.Context, key domain.TokenKey) (*schema.TokenTransfer, error) {
	var transfer schema.TokenTransfer
	err := s.db.WithContext(ctx).
		Where("collection_address = ? AND token_id = ?", key.CollectionAddress, key.TokenID).
		Order("block_number DESC, log_index DESC, id DESC").
		First(&transfer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest transfer: %w", err)
	}
	return &transfer, nil
}

// GetTransfersForToken retrieves all transfers of a token in ascending block order
func (s *pgStore) GetTransfersForToken(ctx context.Context, key domain.TokenKey) ([]*schema.TokenTransfer, error) {
	var transfers []*schema.TokenTransfer
	err := s.db.WithContext(ctx).
		Where("collection_address = ? AND token_id = ?", key.CollectionAddress, key.TokenID).
		Order("block_number ASC, log_index ASC, id ASC").
		Find(&transfers).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get transfers for token: %w", err)
	}
	return transfers, nil
}

// GetTokenLedgerState retrieves the row count and newest write of a token's ledger
func (s *pgStore) GetTokenLedgerState(ctx context.Context, key domain.TokenKey) (*LedgerState, error) {
	var row struct {
		Count           int64
		LatestUpdatedAt *time.Time
	}
	err := s.db.WithContext(ctx).
		Model(&schema.TokenTransfer{}).
		Select("COUNT(*) AS count, MAX(updated_at) AS latest_updated_at").
		Where("collection_address = ? AND token_id = ?", key.CollectionAddress, key.TokenID).
		Scan(&row).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get token ledger state: %w", err)
	}

	state := &LedgerState{Count: row.Count}
	if row.LatestUpdatedAt != nil {
		state.LatestUpdatedAt = *row.LatestUpdatedAt
	}
	return state, nil
}

// GetTokenOwnership retrieves the single-owner row of a token
func (s *pgStore) GetTokenOwnership(ctx context.Context, key domain.TokenKey) (*schema.TokenOwnership, error) {
	var ownership schema.TokenOwnership
	err := s.db.WithContext(ctx).
		Where("collection_address = ? AND token_id = ?", key.CollectionAddress, key.TokenID).
		First(&ownership).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get token ownership: %w", err)
	}
	return &ownership, nil
}

// UpsertTokenOwnership creates or replaces the single-owner row of a token
func (s *pgStore) UpsertTokenOwnership(ctx context.Context, ownership *schema.TokenOwnership) error {
	ownership.UpdatedAt = time.Now()
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "collection_address"}, {Name: "token_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"owner_address",
			"transfer_date",
			"transfer_value",
			"transfer_transaction_hash",
			"transfer_updated_date",
			"transfer_count",
			"updated_at",
		}),
	}).Create(ownership).Error
	if err != nil {
		return fmt.Errorf("failed to upsert token ownership: %w", err)
	}
	return nil
}

// GetTokenMultiOwnerships retrieves the holder rows of a token
func (s *pgStore) GetTokenMultiOwnerships(ctx context.Context, key domain.TokenKey) ([]*schema.TokenMultiOwnership, error) {
	var rows []*schema.TokenMultiOwnership
	err := s.db.WithContext(ctx).
		Where("collection_address = ? AND token_id = ?", key.CollectionAddress, key.TokenID).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get token multi ownerships: %w", err)
	}
	return rows, nil
}

// CreateTokenMultiOwnerships inserts holder rows in batches
func (s *pgStore) CreateTokenMultiOwnerships(ctx context.Context, rows []*schema.TokenMultiOwnership) error {
	if len(rows) == 0 {
		return nil
	}

	batchSize := calculateSafeBatchSize(len(rows), tokenMultiOwnershipFields)
	if err := s.db.WithContext(ctx).CreateInBatches(rows, batchSize).Error; err != nil {
		return fmt.Errorf("failed to create token multi ownerships: %w", translateError(err))
	}
	return nil
}

// DeleteTokenMultiOwnershipsByIDs deletes holder rows by id
func (s *pgStore) DeleteTokenMultiOwnershipsByIDs(ctx context.Context, ids []uint64) error {
	if len(ids) == 0 {
		return nil
	}

	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Delete(&schema.TokenMultiOwnership{}).Error; err != nil {
		return fmt.Errorf("failed to delete token multi ownerships: %w", err)
	}
	return nil
}

// TouchTokenMultiOwnership rewrites the freshness markers of a holder row
func (s *pgStore) TouchTokenMultiOwnership(ctx context.Context, id uint64, state LedgerState) error {
	err := s.db.WithContext(ctx).
		Model(&schema.TokenMultiOwnership{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"transfer_updated_date": state.LatestUpdatedAt,
			"transfer_count":        state.Count,
			"updated_at":            time.Now(),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to touch token multi ownership: %w", err)
	}
	return nil
}

// CreateLock inserts a lock row and reports whether it was inserted
func (s *pgStore) CreateLock(ctx context.Context, lock *schema.Lock) (bool, error) {
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).Create(lock)
	if res.Error != nil {
		return false, fmt.Errorf("failed to create lock: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// GetLock retrieves a lock row from the primary
func (s *pgStore) GetLock(ctx context.Context, name string) (*schema.Lock, error) {
	var lock schema.Lock
	err := s.db.WithContext(ctx).
		Clauses(dbresolver.Write).
		Where("name = ?", name).
		First(&lock).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get lock: %w", err)
	}
	return &lock, nil
}

// DeleteExpiredLock deletes a lock row only if its expiry time still matches,
// so a lock re-acquired by another worker in the meantime is left alone
func (s *pgStore) DeleteExpiredLock(ctx context.Context, name string, expiryTime time.Time) (bool, error) {
	res := s.db.WithContext(ctx).
		Where("name = ? AND expiry_time = ?", name, expiryTime).
		Delete(&schema.Lock{})
	if res.Error != nil {
		return false, fmt.Errorf("failed to delete expired lock: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// DeleteLock deletes a lock row owned by holder
func (s *pgStore) DeleteLock(ctx context.Context, name string, holder string) (bool, error) {
	res := s.db.WithContext(ctx).
		Where("name = ? AND holder = ?", name, holder).
		Delete(&schema.Lock{})
	if res.Error != nil {
		return false, fmt.Errorf("failed to delete lock: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}
