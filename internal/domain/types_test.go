package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidTokenType(t *testing.T) {
	tests := []struct {
		name      string
		tokenType TokenType
		expected  bool
	}{
		{
			name:      "erc721",
			tokenType: TokenTypeERC721,
			expected:  true,
		},
		{
			name:      "erc1155 single",
			tokenType: TokenTypeERC1155Single,
			expected:  true,
		},
		{
			name:      "erc1155 batch",
			tokenType: TokenTypeERC1155Batch,
			expected:  true,
		},
		{
			name:      "empty",
			tokenType: TokenType(""),
			expected:  false,
		},
		{
			name:      "bare erc1155 is not a transfer shape",
			tokenType: TokenType("erc1155"),
			expected:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsValidTokenType(tt.tokenType))
		})
	}
}

func TestTokenType_MultiOwner(t *testing.T) {
	assert.False(t, TokenTypeERC721.MultiOwner())
	assert.True(t, TokenTypeERC1155Single.MultiOwner())
	assert.True(t, TokenTypeERC1155Batch.MultiOwner())
}

func TestNormalizeAddress(t *testing.T) {
	tests := []struct {
		name     string
		address  string
		expected string
	}{
		{
			name:     "lowercase",
			address:  "0x396343362be2a4da1ce0c1c210945346fb82aa49",
			expected: "0x396343362be2A4dA1cE0C1C210945346fb82Aa49",
		},
		{
			name:     "already checksummed",
			address:  "0x396343362be2A4dA1cE0C1C210945346fb82Aa49",
			expected: "0x396343362be2A4dA1cE0C1C210945346fb82Aa49",
		},
		{
			name:     "zero address",
			address:  ETHEREUM_ZERO_ADDRESS,
			expected: ETHEREUM_ZERO_ADDRESS,
		},
		{
			name:     "empty address unchanged",
			address:  "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeAddress(tt.address))
		})
	}
}

func TestTokenKey(t *testing.T) {
	key := NewTokenKey("0x396343362be2a4da1ce0c1c210945346fb82aa49", "42")

	assert.Equal(t, "0x396343362be2A4dA1cE0C1C210945346fb82Aa49", key.CollectionAddress)
	assert.Equal(t, "0x396343362be2A4dA1cE0C1C210945346fb82Aa49:42", key.String())
	assert.Equal(t, "ownership:0x396343362be2A4dA1cE0C1C210945346fb82Aa49:42", key.LockName())

	other := NewTokenKey("0x396343362be2a4da1ce0c1c210945346fb82aa49", "43")
	assert.True(t, key.Less(other))
	assert.False(t, other.Less(key))
}

func TestTransfer_Key(t *testing.T) {
	base := Transfer{
		TransactionHash:   "0xabc",
		CollectionAddress: "0x396343362be2A4dA1cE0C1C210945346fb82Aa49",
		TokenID:           "1",
		FromAddress:       ETHEREUM_ZERO_ADDRESS,
		ToAddress:         "0x0000000000000000000000000000000000000001",
		TokenType:         TokenTypeERC721,
		Amount:            "1",
		Value:             "0",
		BlockNumber:       100,
		LogIndex:          3,
	}

	t.Run("log index and gas are not part of the key", func(t *testing.T) {
		other := base
		other.LogIndex = 9
		other.GasUsed = 21000
		other.GasPrice = "1000"
		assert.Equal(t, base.Key(), other.Key())
	})

	t.Run("any flag changes the key", func(t *testing.T) {
		other := base
		other.IsBatch = true
		assert.NotEqual(t, base.Key(), other.Key())
	})

	t.Run("value changes the key", func(t *testing.T) {
		other := base
		other.Value = "1"
		assert.NotEqual(t, base.Key(), other.Key())
	})

	t.Run("mint and burn", func(t *testing.T) {
		assert.True(t, base.IsMint())
		assert.False(t, base.IsBurn())
	})
}

func TestIsPermanent(t *testing.T) {
	assert.True(t, IsPermanent(fmt.Errorf("failed to project: %w", ErrNoOwnership)))
	assert.True(t, IsPermanent(ErrInvalidMessage))
	assert.True(t, IsPermanent(ErrUnknownCommand))
	assert.False(t, IsPermanent(ErrLockTimeout))
	assert.False(t, IsPermanent(ErrBlockNotFound))
	assert.False(t, IsPermanent(errors.New("rpc timeout")))

	assert.True(t, IsRetryLater(fmt.Errorf("wrap: %w", ErrLockTimeout)))
	assert.False(t, IsRetryLater(ErrDuplicate))
}
