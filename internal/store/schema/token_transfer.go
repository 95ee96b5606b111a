package schema

import (
	"time"

	"github.com/feral-file/ff-transfer-indexer/internal/domain"
)

// TokenTransfer represents the token_transfers table - the append/delete-only transfer ledger.
// Rows are never updated in place; the unique index covers the whole uniqueness tuple.
type TokenTransfer struct {
	// ID is the internal database primary key
	ID uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	// TransactionHash is the hash of the transaction that emitted the transfer
	TransactionHash string `gorm:"column:transaction_hash;not null;type:text;uniqueIndex:idx_token_transfers_unique,priority:1"`
	// CollectionAddress is the checksummed contract address
	CollectionAddress string `gorm:"column:collection_address;not null;type:text;uniqueIndex:idx_token_transfers_unique,priority:2;index:idx_token_transfers_token,priority:1"`
	// TokenID is the token id as a base-10 string
	TokenID string `gorm:"column:token_id;not null;type:text;uniqueIndex:idx_token_transfers_unique,priority:3;index:idx_token_transfers_token,priority:2"`
	// FromAddress is the sender, the zero address for mints
	FromAddress string `gorm:"column:from_address;not null;type:text;uniqueIndex:idx_token_transfers_unique,priority:4"`
	// ToAddress is the receiver, the zero address for burns
	ToAddress string `gorm:"column:to_address;not null;type:text;uniqueIndex:idx_token_transfers_unique,priority:5"`
	// BlockNumber is the block the transfer was mined in
	BlockNumber uint64 `gorm:"column:block_number;not null;type:bigint;uniqueIndex:idx_token_transfers_unique,priority:6;index:idx_token_transfers_block_number"`
	// Amount is the quantity moved
	Amount string `gorm:"column:amount;not null;type:numeric(78,0);uniqueIndex:idx_token_transfers_unique,priority:7"`
	// Value is the attributed payment in wei
	Value string `gorm:"column:value;not null;type:numeric(78,0);uniqueIndex:idx_token_transfers_unique,priority:8"`
	// TokenType is erc721, erc1155-single or erc1155-batch
	TokenType domain.TokenType `gorm:"column:token_type;not null;type:text;uniqueIndex:idx_token_transfers_unique,priority:9"`
	// Attribution flags set by the extractor
	IsMultiAddress bool `gorm:"column:is_multi_address;not null;default:false;uniqueIndex:idx_token_transfers_unique,priority:10"`
	IsInterstitial bool `gorm:"column:is_interstitial;not null;default:false;uniqueIndex:idx_token_transfers_unique,priority:11"`
	IsBatch        bool `gorm:"column:is_batch;not null;default:false;uniqueIndex:idx_token_transfers_unique,priority:12"`
	IsSwap         bool `gorm:"column:is_swap;not null;default:false;uniqueIndex:idx_token_transfers_unique,priority:13"`
	// OperatorAddress is the msg.sender of the transfer, the tx sender for legacy contracts
	OperatorAddress string `gorm:"column:operator_address;not null;type:text;uniqueIndex:idx_token_transfers_unique,priority:14"`
	GasLimit        uint64 `gorm:"column:gas_limit;not null;type:bigint"`
	GasPrice        string `gorm:"column:gas_price;not null;type:numeric(78,0)"`
	GasUsed         uint64 `gorm:"column:gas_used;not null;type:bigint"`
	// BlockDate is the timestamp of the block
	BlockDate time.Time `gorm:"column:block_date;not null;type:timestamptz"`
	// LogIndex orders transfers within a block
	LogIndex uint `gorm:"column:log_index;not null;type:integer"`
	// CreatedAt is the timestamp when this row was inserted
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	// UpdatedAt equals CreatedAt since rows are never mutated
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the TokenTransfer model
func (TokenTransfer) TableName() string {
	return "token_transfers"
}

// Key returns the uniqueness tuple of the stored transfer
func (t *TokenTransfer) Key() domain.TransferKey {
	return domain.TransferKey{
		TransactionHash:   t.TransactionHash,
		CollectionAddress: t.CollectionAddress,
		TokenID:           t.TokenID,
		FromAddress:       t.FromAddress,
		ToAddress:         t.ToAddress,
		BlockNumber:       t.BlockNumber,
		Amount:            t.Amount,
		Value:             t.Value,
		TokenType:         t.TokenType,
		IsMultiAddress:    t.IsMultiAddress,
		IsInterstitial:    t.IsInterstitial,
		IsBatch:           t.IsBatch,
		IsSwap:            t.IsSwap,
		OperatorAddress:   t.OperatorAddress,
	}
}

// TokenKey returns the token moved by the stored transfer
func (t *TokenTransfer) TokenKey() domain.TokenKey {
	return domain.TokenKey{CollectionAddress: t.CollectionAddress, TokenID: t.TokenID}
}

// NewTokenTransfer converts an extracted transfer into a ledger row
func NewTokenTransfer(t domain.Transfer) *TokenTransfer {
	return &TokenTransfer{
		TransactionHash:   t.TransactionHash,
		CollectionAddress: t.CollectionAddress,
		TokenID:           t.TokenID,
		FromAddress:       t.FromAddress,
		ToAddress:         t.ToAddress,
		BlockNumber:       t.BlockNumber,
		Amount:            t.Amount,
		Value:             t.Value,
		TokenType:         t.TokenType,
		IsMultiAddress:    t.IsMultiAddress,
		IsInterstitial:    t.IsInterstitial,
		IsBatch:           t.IsBatch,
		IsSwap:            t.IsSwap,
		OperatorAddress:   t.OperatorAddress,
		GasLimit:          t.GasLimit,
		GasPrice:          t.GasPrice,
		GasUsed:           t.GasUsed,
		BlockDate:         t.BlockDate,
		LogIndex:          t.LogIndex,
	}
}
