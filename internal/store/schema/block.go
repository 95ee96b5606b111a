package schema

import "time"

// Block represents the blocks table - one row per block number the pipeline has reconciled
type Block struct {
	// BlockNumber is the height of the block and the primary key
	BlockNumber uint64 `gorm:"column:block_number;primaryKey;autoIncrement:false"`
	// BlockHash is the hash seen on the latest fetch; it changes on a reorg
	BlockHash string `gorm:"column:block_hash;not null;type:text"`
	// BlockDate is the block timestamp
	BlockDate time.Time `gorm:"column:block_date;not null;type:timestamptz"`
	// CreatedAt is the timestamp when the block was first seen
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz;index:idx_blocks_created_at"`
	// UpdatedAt is the timestamp when the block was last reconciled
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the Block model
func (Block) TableName() string {
	return "blocks"
}
