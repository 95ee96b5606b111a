package extractor

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"

	"github.com/feral-file/ff-transfer-indexer/internal/domain"
)

const (
	legacyKitties = "0x06012c8cf97BEaD5deAe237070F9587f8E7A266d"
	legacyPunks   = "0xb47e3cd837dDF8e4c57F05d70Ab865de6e193BBB"
)

func topicOf(address string) common.Hash {
	return common.BytesToHash(common.HexToAddress(address).Bytes())
}

func uint256Topic(v int64) common.Hash {
	return common.BigToHash(big.NewInt(v))
}

func uint256Word(v int64) []byte {
	return common.LeftPadBytes(big.NewInt(v).Bytes(), 32)
}

func transferLog(collection, from, to string, tokenID int64) types.Log {
	return types.Log{
		Address: common.HexToAddress(collection),
		Topics:  []common.Hash{transferEventSig, topicOf(from), topicOf(to), uint256Topic(tokenID)},
	}
}

func TestLegacyContract_Decode(t *testing.T) {
	punks := common.HexToAddress(legacyPunks)
	zeroBuyer := types.Log{
		Address: punks,
		Topics:  []common.Hash{punkBoughtEventSig, uint256Topic(12), topicOf(seller), topicOf(domain.ETHEREUM_ZERO_ADDRESS)},
		Data:    uint256Word(0),
	}

	tests := []struct {
		name     string
		contract LegacyContract
		log      types.Log
		previous *types.Log
		ok       bool
	}{
		{
			name:     "punk bought without preceding transfer",
			contract: LegacyPunks,
			log:      zeroBuyer,
			ok:       false,
		},
		{
			name:     "punk bought after a transfer from someone else",
			contract: LegacyPunks,
			log:      zeroBuyer,
			previous: &types.Log{Topics: []common.Hash{transferEventSig, topicOf(partyZ), topicOf(buyer)}},
			ok:       false,
		},
		{
			name:     "punk balance transfer alone",
			contract: LegacyPunks,
			log:      types.Log{Topics: []common.Hash{transferEventSig, topicOf(seller), topicOf(buyer)}, Data: uint256Word(1)},
			ok:       false,
		},
		{
			name:     "kitties with indexed topics",
			contract: LegacyKitties,
			log:      transferLog(legacyKitties, seller, buyer, 1),
			ok:       false,
		},
		{
			name:     "kitties with short payload",
			contract: LegacyKitties,
			log:      types.Log{Topics: []common.Hash{transferEventSig}, Data: uint256Word(1)},
			ok:       false,
		},
		{
			name:     "no decoder",
			contract: LegacyNone,
			log:      transferLog(collA, seller, buyer, 1),
			ok:       false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := tt.contract.Decode(tt.log, tt.previous)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestLegacyRegistry(t *testing.T) {
	r := NewLegacyRegistry(legacyKitties, "")
	assert.Equal(t, LegacyKitties, r.Lookup(common.HexToAddress(legacyKitties)))
	assert.Equal(t, LegacyNone, r.Lookup(common.HexToAddress(legacyPunks)))
	assert.Equal(t, "kitties", LegacyKitties.String())
	assert.Equal(t, "punks", LegacyPunks.String())
}
