package schema

import "time"

// TokenOwnership represents the token_ownerships table - the current owner of a single-owner token
type TokenOwnership struct {
	// ID is the internal database primary key
	ID uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	// CollectionAddress is the checksummed contract address
	CollectionAddress string `gorm:"column:collection_address;not null;type:text;uniqueIndex:idx_token_ownerships_token,priority:1"`
	// TokenID is the token id as a base-10 string
	TokenID string `gorm:"column:token_id;not null;type:text;uniqueIndex:idx_token_ownerships_token,priority:2"`
	// OwnerAddress is the receiver of the latest transfer
	OwnerAddress string `gorm:"column:owner_address;not null;type:text;index:idx_token_ownerships_owner"`
	// TransferDate is the block date of the latest transfer
	TransferDate time.Time `gorm:"column:transfer_date;not null;type:timestamptz"`
	// TransferValue is the attributed value of the latest transfer in wei
	TransferValue string `gorm:"column:transfer_value;not null;type:numeric(78,0)"`
	// TransferTransactionHash is the transaction of the latest transfer
	TransferTransactionHash string `gorm:"column:transfer_transaction_hash;not null;type:text"`
	// TransferUpdatedDate is the newest ledger write reflected by this row
	TransferUpdatedDate time.Time `gorm:"column:transfer_updated_date;not null;type:timestamptz"`
	// TransferCount is the number of ledger rows reflected by this row
	TransferCount int64 `gorm:"column:transfer_count;not null;default:0"`
	// CreatedAt is the timestamp when this row was created
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	// UpdatedAt is the timestamp of the last recomputation
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the TokenOwnership model
func (TokenOwnership) TableName() string {
	return "token_ownerships"
}
