package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/plugin/dbresolver"

	"github.com/feral-file/ff-transfer-indexer/internal/store/schema"
)

// GetBlockCursor retrieves a block cursor from the primary
func (s *pgStore) GetBlockCursor(ctx context.Context, key string) (uint64, bool, error) {
	var kv schema.KeyValueStore
	err := s.db.WithContext(ctx).
		Clauses(dbresolver.Write).
		Where("key = ?", key).
		First(&kv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to get block cursor: %w", err)
	}

	blockNumber, err := strconv.ParseUint(kv.Value, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("failed to parse block cursor: %w", err)
	}

	return blockNumber, true, nil
}

// SetBlockCursor stores a block cursor
func (s *pgStore) SetBlockCursor(ctx context.Context, key string, blockNumber uint64) error {
	kv := schema.KeyValueStore{
		Key:       key,
		Value:     strconv.FormatUint(blockNumber, 10),
		UpdatedAt: time.Now(),
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&kv).Error
	if err != nil {
		return fmt.Errorf("failed to set block cursor: %w", err)
	}

	return nil
}
