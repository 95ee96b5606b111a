package schema

import (
	"time"

	"github.com/feral-file/ff-transfer-indexer/internal/domain"
)

// TokenMultiOwnership represents the token_multi_ownerships table - one row per holder of a multi-owner token
type TokenMultiOwnership struct {
	ID                uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	CollectionAddress string `gorm:"column:collection_address;not null;type:text;uniqueIndex:idx_token_multi_ownerships_holder,priority:1"`
	TokenID           string `gorm:"column:token_id;not null;type:text;uniqueIndex:idx_token_multi_ownerships_holder,priority:2"`
	OwnerAddress      string `gorm:"column:owner_address;not null;type:text;uniqueIndex:idx_token_multi_ownerships_holder,priority:3"`
	// Quantity is the number of units held (numeric to support up to 78 digits)
	Quantity string `gorm:"column:quantity;not null;type:numeric(78,0)"`
	// AverageTransferValue is the running average value paid per unit, floored to wei
	AverageTransferValue          string    `gorm:"column:average_transfer_value;not null;type:numeric(78,0)"`
	LatestTransferDate            time.Time `gorm:"column:latest_transfer_date;not null;type:timestamptz"`
	LatestTransferTransactionHash string    `gorm:"column:latest_transfer_transaction_hash;not null;type:text"`
	// TransferUpdatedDate is the newest ledger write reflected when this row was last written
	TransferUpdatedDate time.Time `gorm:"column:transfer_updated_date;not null;type:timestamptz"`
	// TransferCount is the number of ledger rows reflected when this row was last written
	TransferCount int64     `gorm:"column:transfer_count;not null;default:0"`
	CreatedAt     time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	UpdatedAt     time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the TokenMultiOwnership model
func (TokenMultiOwnership) TableName() string {
	return "token_multi_ownerships"
}

// Key returns the uniqueness tuple of the holder row
func (o *TokenMultiOwnership) Key() domain.MultiOwnershipKey {
	return domain.MultiOwnershipKey{
		CollectionAddress:    o.CollectionAddress,
		TokenID:              o.TokenID,
		OwnerAddress:         o.OwnerAddress,
		Quantity:             o.Quantity,
		AverageTransferValue: o.AverageTransferValue,
		LatestTransferDate:   o.LatestTransferDate.UnixMicro(),
		LatestTransferTxHash: o.LatestTransferTransactionHash,
	}
}
