package extractor

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/feral-file/ff-transfer-indexer/internal/domain"
)

// LegacyContract identifies a pre-standard NFT contract that needs its own log decoding
type LegacyContract int

const (
	// LegacyNone is any contract decoded through the standard ERC-721/1155 path
	LegacyNone LegacyContract = iota
	// LegacyKitties emits Transfer(from, to, tokenId) with nothing indexed
	LegacyKitties
	// LegacyPunks tracks ownership through its own market events
	LegacyPunks
)

func (c LegacyContract) String() string {
	switch c {
	case LegacyKitties:
		return "kitties"
	case LegacyPunks:
		return "punks"
	default:
		return "none"
	}
}

// LegacyTransfer is a transfer recovered from a legacy contract log
type LegacyTransfer struct {
	From    string
	To      string
	TokenID string
	// Price is the sale price carried by the event, nil when the event has none
	Price *big.Int
}

// Decode recovers a transfer from a log of this contract.
// previous is the closest earlier log of the same contract in the same transaction, nil if none.
// It returns false for logs that do not move a token.
func (c LegacyContract) Decode(l types.Log, previous *types.Log) (LegacyTransfer, bool) {
	if len(l.Topics) == 0 {
		return LegacyTransfer{}, false
	}

	switch c {
	case LegacyKitties:
		return decodeKitties(l)
	case LegacyPunks:
		return decodePunks(l, previous)
	default:
		return LegacyTransfer{}, false
	}
}

// decodeKitties decodes Transfer(address from, address to, uint256 tokenId) with a fully non-indexed payload
func decodeKitties(l types.Log) (LegacyTransfer, bool) {
	if l.Topics[0] != transferEventSig || len(l.Topics) != 1 || len(l.Data) < 96 {
		return LegacyTransfer{}, false
	}

	return LegacyTransfer{
		From:    common.BytesToAddress(l.Data[0:32]).Hex(),
		To:      common.BytesToAddress(l.Data[32:64]).Hex(),
		TokenID: new(big.Int).SetBytes(l.Data[64:96]).String(),
	}, true
}

// decodePunks decodes the market events that move a punk. The plain
// Transfer(from, to, 1) event only moves a balance and is ignored.
func decodePunks(l types.Log, previous *types.Log) (LegacyTransfer, bool) {
	switch l.Topics[0] {
	case punkAssignEventSig:
		// Assign(address indexed to, uint256 punkIndex)
		if len(l.Topics) < 2 || len(l.Data) < 32 {
			return LegacyTransfer{}, false
		}
		return LegacyTransfer{
			From:    domain.ETHEREUM_ZERO_ADDRESS,
			To:      common.BytesToAddress(l.Topics[1].Bytes()).Hex(),
			TokenID: new(big.Int).SetBytes(l.Data[0:32]).String(),
		}, true

	case punkTransferEventSig:
		// PunkTransfer(address indexed from, address indexed to, uint256 punkIndex)
		if len(l.Topics) < 3 || len(l.Data) < 32 {
			return LegacyTransfer{}, false
		}
		return LegacyTransfer{
			From:    common.BytesToAddress(l.Topics[1].Bytes()).Hex(),
			To:      common.BytesToAddress(l.Topics[2].Bytes()).Hex(),
			TokenID: new(big.Int).SetBytes(l.Data[0:32]).String(),
		}, true

	case punkBoughtEventSig:
		// PunkBought(uint indexed punkIndex, uint value, address indexed fromAddress, address indexed toAddress)
		if len(l.Topics) < 4 || len(l.Data) < 32 {
			return LegacyTransfer{}, false
		}
		from := common.BytesToAddress(l.Topics[2].Bytes())
		to := common.BytesToAddress(l.Topics[3].Bytes())

		// acceptBidForPunk clears the bid before emitting, so the buyer is only
		// found in the balance Transfer emitted just before
		if to == (common.Address{}) {
			buyer, ok := punkBuyerFromTransfer(previous, from)
			if !ok {
				return LegacyTransfer{}, false
			}
			to = buyer
		}

		t := LegacyTransfer{
			From:    from.Hex(),
			To:      to.Hex(),
			TokenID: new(big.Int).SetBytes(l.Topics[1].Bytes()).String(),
		}
		if price := new(big.Int).SetBytes(l.Data[0:32]); price.Sign() > 0 {
			t.Price = price
		}
		return t, true

	default:
		return LegacyTransfer{}, false
	}
}

// punkBuyerFromTransfer returns the recipient of a punks Transfer(seller, buyer, 1) log
func punkBuyerFromTransfer(previous *types.Log, seller common.Address) (common.Address, bool) {
	if previous == nil || len(previous.Topics) != 3 || previous.Topics[0] != transferEventSig {
		return common.Address{}, false
	}
	if common.BytesToAddress(previous.Topics[1].Bytes()) != seller {
		return common.Address{}, false
	}
	buyer := common.BytesToAddress(previous.Topics[2].Bytes())
	if buyer == (common.Address{}) {
		return common.Address{}, false
	}
	return buyer, true
}

// LegacyRegistry maps contract addresses to their legacy decoder
type LegacyRegistry map[common.Address]LegacyContract

// NewLegacyRegistry creates a registry for the configured legacy contract addresses.
// Empty addresses are skipped.
func NewLegacyRegistry(kittiesAddress, punksAddress string) LegacyRegistry {
	r := LegacyRegistry{}
	if kittiesAddress != "" {
		r[common.HexToAddress(kittiesAddress)] = LegacyKitties
	}
	if punksAddress != "" {
		r[common.HexToAddress(punksAddress)] = LegacyPunks
	}
	return r
}

// Lookup returns the legacy decoder of a contract, LegacyNone for standard contracts
func (r LegacyRegistry) Lookup(address common.Address) LegacyContract {
	if c, ok := r[address]; ok {
		return c
	}
	return LegacyNone
}
