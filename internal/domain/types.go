package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// TokenType represents the token standard and transfer shape of a transfer
type TokenType string

const (
	TokenTypeERC721        TokenType = "erc721"
	TokenTypeERC1155Single TokenType = "erc1155-single"
	TokenTypeERC1155Batch  TokenType = "erc1155-batch"
)

// IsValidTokenType checks if a token type is valid
func IsValidTokenType(t TokenType) bool {
	return t == TokenTypeERC721 ||
		t == TokenTypeERC1155Single ||
		t == TokenTypeERC1155Batch
}

// MultiOwner reports whether tokens of this type can have more than one holder
func (t TokenType) MultiOwner() bool {
	return t == TokenTypeERC1155Single || t == TokenTypeERC1155Batch
}

// NormalizeAddress returns the checksummed form of an ethereum address
func NormalizeAddress(address string) string {
	if address == "" {
		return ""
	}
	return common.HexToAddress(address).Hex()
}

// IsZeroAddress checks if an address is the zero/burn address
func IsZeroAddress(address string) bool {
	return strings.EqualFold(address, ETHEREUM_ZERO_ADDRESS)
}

// TokenKey identifies a token within its collection
type TokenKey struct {
	CollectionAddress string `json:"collectionAddress"`
	TokenID           string `json:"tokenId"`
}

// NewTokenKey creates a token key with a normalized collection address
func NewTokenKey(collectionAddress, tokenID string) TokenKey {
	return TokenKey{
		CollectionAddress: NormalizeAddress(collectionAddress),
		TokenID:           tokenID,
	}
}

func (k TokenKey) String() string {
	return fmt.Sprintf("%s:%s", k.CollectionAddress, k.TokenID)
}

// LockName returns the distributed lock name guarding the token's ownership rows
func (k TokenKey) LockName() string {
	return fmt.Sprintf("%s:%s:%s", OWNERSHIP_LOCK_PREFIX, k.CollectionAddress, k.TokenID)
}

// Less orders token keys by collection then token id
func (k TokenKey) Less(o TokenKey) bool {
	if k.CollectionAddress != o.CollectionAddress {
		return k.CollectionAddress < o.CollectionAddress
	}
	return k.TokenID < o.TokenID
}

// BlockHeader is the subset of a block header the pipeline needs
type BlockHeader struct {
	Number    uint64    `json:"number"`
	Hash      string    `json:"hash"`
	Timestamp time.Time `json:"timestamp"`
}

// Transfer represents a normalized, value-attributed token transfer extracted from a block.
// Amount, Value and GasPrice are base-10 integer strings.
type Transfer struct {
	TransactionHash   string    `json:"transactionHash"`
	CollectionAddress string    `json:"collectionAddress"`
	TokenID           string    `json:"tokenId"`
	FromAddress       string    `json:"fromAddress"`
	ToAddress         string    `json:"toAddress"`
	OperatorAddress   string    `json:"operatorAddress"`
	TokenType         TokenType `json:"tokenType"`
	Amount            string    `json:"amount"`
	Value             string    `json:"value"`
	GasLimit          uint64    `json:"gasLimit"`
	GasPrice          string    `json:"gasPrice"`
	GasUsed           uint64    `json:"gasUsed"`
	BlockNumber       uint64    `json:"blockNumber"`
	BlockDate         time.Time `json:"blockDate"`
	LogIndex          uint      `json:"logIndex"`
	IsMultiAddress    bool      `json:"isMultiAddress"`
	IsInterstitial    bool      `json:"isInterstitial"`
	IsBatch           bool      `json:"isBatch"`
	IsSwap            bool      `json:"isSwap"`
}

// TransferKey is the uniqueness tuple of a transfer.
// Two transfers are the same record only if every field matches.
type TransferKey struct {
	TransactionHash   string
	CollectionAddress string
	TokenID           string
	FromAddress       string
	ToAddress         string
	BlockNumber       uint64
	Amount            string
	Value             string
	TokenType         TokenType
	IsMultiAddress    bool
	IsInterstitial    bool
	IsBatch           bool
	IsSwap            bool
	OperatorAddress   string
}

// Key returns the uniqueness tuple of the transfer
func (t Transfer) Key() TransferKey {
	return TransferKey{
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

// TokenKey returns the token moved by the transfer
func (t Transfer) TokenKey() TokenKey {
	return TokenKey{CollectionAddress: t.CollectionAddress, TokenID: t.TokenID}
}

// IsMint checks if the transfer originates from the zero address
func (t Transfer) IsMint() bool {
	return IsZeroAddress(t.FromAddress)
}

// IsBurn checks if the transfer ends at the zero address
func (t Transfer) IsBurn() bool {
	return IsZeroAddress(t.ToAddress)
}

// MultiOwnershipKey is the uniqueness tuple of a multi-ownership holder row
type MultiOwnershipKey struct {
	CollectionAddress    string
	TokenID              string
	OwnerAddress         string
	Quantity             string
	AverageTransferValue string
	LatestTransferDate   int64 // unix micro
	LatestTransferTxHash string
}
