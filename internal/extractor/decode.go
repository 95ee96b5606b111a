package extractor

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/feral-file/ff-transfer-indexer/internal/domain"
	"github.com/feral-file/ff-transfer-indexer/internal/logger"
)

// leg is a single token movement decoded from a log, before value attribution
type leg struct {
	logIndex   uint
	collection string
	tokenID    string
	from       string
	to         string
	// operator is empty when the event does not name one
	operator  string
	amount    *big.Int
	tokenType domain.TokenType
	// price is a sale price carried by the event itself, nil when unknown
	price *big.Int
}

func (l leg) tokenKey() domain.TokenKey {
	return domain.TokenKey{CollectionAddress: l.collection, TokenID: l.tokenID}
}

func (l leg) isBurn() bool {
	return domain.IsZeroAddress(l.to)
}

// decodeLog decodes the token movements of a log. Logs that do not carry an NFT
// transfer, or carry fewer indexed topics than their event requires, yield nothing.
func decodeLog(registry LegacyRegistry, l types.Log, previous *types.Log) []leg {
	if len(l.Topics) == 0 {
		return nil
	}

	collection := l.Address.Hex()

	if kind := registry.Lookup(l.Address); kind != LegacyNone {
		t, ok := kind.Decode(l, previous)
		if !ok {
			return nil
		}
		return []leg{{
			logIndex:   l.Index,
			collection: collection,
			tokenID:    t.TokenID,
			from:       t.From,
			to:         t.To,
			amount:     big.NewInt(1),
			tokenType:  domain.TokenTypeERC721,
			price:      t.Price,
		}}
	}

	switch l.Topics[0] {
	case transferEventSig:
		// Transfer(address indexed from, address indexed to, uint256 indexed tokenId)
		if len(l.Topics) != 4 {
			return nil
		}
		return []leg{{
			logIndex:   l.Index,
			collection: collection,
			tokenID:    l.Topics[3].Big().String(),
			from:       topicAddress(l.Topics[1]),
			to:         topicAddress(l.Topics[2]),
			amount:     big.NewInt(1),
			tokenType:  domain.TokenTypeERC721,
		}}

	case transferSingleEventSig:
		// TransferSingle(address indexed operator, address indexed from, address indexed to, uint256 id, uint256 value)
		if len(l.Topics) != 4 || len(l.Data) < 64 {
			return nil
		}
		return []leg{{
			logIndex:   l.Index,
			collection: collection,
			tokenID:    new(big.Int).SetBytes(l.Data[0:32]).String(),
			from:       topicAddress(l.Topics[2]),
			to:         topicAddress(l.Topics[3]),
			operator:   topicAddress(l.Topics[1]),
			amount:     new(big.Int).SetBytes(l.Data[32:64]),
			tokenType:  domain.TokenTypeERC1155Single,
		}}

	case transferBatchEventSig:
		// TransferBatch(address indexed operator, address indexed from, address indexed to, uint256[] ids, uint256[] values)
		if len(l.Topics) != 4 {
			return nil
		}
		values, err := batchArguments.Unpack(l.Data)
		if err != nil || len(values) != 2 {
			logger.Warn("Failed to unpack TransferBatch payload",
				zap.String("txHash", l.TxHash.Hex()),
				zap.Uint("logIndex", l.Index),
				zap.Error(err))
			return nil
		}
		ids, okIDs := values[0].([]*big.Int)
		amounts, okAmounts := values[1].([]*big.Int)
		if !okIDs || !okAmounts || len(ids) != len(amounts) {
			return nil
		}

		legs := make([]leg, 0, len(ids))
		for i := range ids {
			legs = append(legs, leg{
				logIndex:   l.Index,
				collection: collection,
				tokenID:    ids[i].String(),
				from:       topicAddress(l.Topics[2]),
				to:         topicAddress(l.Topics[3]),
				operator:   topicAddress(l.Topics[1]),
				amount:     amounts[i],
				tokenType:  domain.TokenTypeERC1155Batch,
			})
		}
		return legs

	default:
		return nil
	}
}

func topicAddress(topic common.Hash) string {
	return common.BytesToAddress(topic.Bytes()).Hex()
}
