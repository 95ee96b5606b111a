package ethereum

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/feral-file/ff-transfer-indexer/internal/adapter"
	"github.com/feral-file/ff-transfer-indexer/internal/domain"
	"github.com/feral-file/ff-transfer-indexer/internal/logger"
	"github.com/feral-file/ff-transfer-indexer/internal/ratelimit"
)

// Block is a block header together with all of its logs
type Block struct {
	Header domain.BlockHeader
	Logs   []types.Log
}

// Transaction holds the fields of a transaction used for value attribution
type Transaction struct {
	Hash     string
	From     string
	Gas      uint64
	GasPrice *big.Int
	Value    *big.Int
}

// Receipt holds the fields of a transaction receipt used for value attribution
type Receipt struct {
	GasUsed           uint64
	EffectiveGasPrice *big.Int
	Status            uint64
	Logs              []types.Log
}

// EthereumClient reads blocks, transactions and receipts from an Ethereum node.
// All calls are idempotent reads and are neither retried nor cached.
//
//go:generate mockgen -source=client.go -destination=../../mocks/ethereum_client.go -package=mocks -mock_names=EthereumClient=MockEthereumClient
type EthereumClient interface {
	// GetLatestBlockNumber returns the chain head
	GetLatestBlockNumber(ctx context.Context) (uint64, error)

	// GetBlock returns the header and logs of a block
	GetBlock(ctx context.Context, number uint64) (*Block, error)

	// GetTransaction returns a mined transaction
	GetTransaction(ctx context.Context, hash string) (*Transaction, error)

	// GetTransactionReceipt returns the receipt of a mined transaction
	GetTransactionReceipt(ctx context.Context, hash string) (*Receipt, error)

	// Close closes the connection
	Close()
}

type ethereumClient struct {
	client  adapter.EthClient
	limiter ratelimit.Limiter
	clock   adapter.Clock
}

// NewClient creates a chain client. A nil limiter disables rate limiting.
func NewClient(client adapter.EthClient, limiter ratelimit.Limiter, clock adapter.Clock) EthereumClient {
	return &ethereumClient{client: client, limiter: limiter, clock: clock}
}

// GetLatestBlockNumber returns the chain head
func (c *ethereumClient) GetLatestBlockNumber(ctx context.Context) (uint64, error) {
	number, err := ratelimit.Do(ctx, c.limiter, ratelimit.ProviderEthereum, c.client.BlockNumber)
	if err != nil {
		return 0, fmt.Errorf("failed to get latest block number: %w", err)
	}
	return number, nil
}

// GetBlock returns the header and logs of a block.
// Logs are filtered by block hash so they always belong to the returned header.
func (c *ethereumClient) GetBlock(ctx context.Context, number uint64) (*Block, error) {
	header, err := ratelimit.Do(ctx, c.limiter, ratelimit.ProviderEthereum, func(ctx context.Context) (*types.Header, error) {
		return c.client.HeaderByNumber(ctx, new(big.Int).SetUint64(number))
	})
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return nil, fmt.Errorf("%w: %d", domain.ErrBlockNotFound, number)
		}
		return nil, fmt.Errorf("failed to get block header %d: %w", number, err)
	}

	hash := header.Hash()
	logs, err := ratelimit.Do(ctx, c.limiter, ratelimit.ProviderEthereum, func(ctx context.Context) ([]types.Log, error) {
		return c.client.FilterLogs(ctx, ethereum.FilterQuery{BlockHash: &hash})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get logs of block %d: %w", number, err)
	}

	kept := logs[:0]
	for _, l := range logs {
		if l.Removed {
			continue
		}
		kept = append(kept, l)
	}

	logger.DebugCtx(ctx, "Fetched block",
		zap.Uint64("blockNumber", number),
		zap.String("blockHash", hash.Hex()),
		zap.Int("logs", len(kept)))

	return &Block{
		Header: domain.BlockHeader{
			Number:    number,
			Hash:      hash.Hex(),
			Timestamp: c.clock.Unix(int64(header.Time), 0).UTC(), //nolint:gosec,G115
		},
		Logs: kept,
	}, nil
}

// GetTransaction returns a mined transaction
func (c *ethereumClient) GetTransaction(ctx context.Context, hash string) (*Transaction, error) {
	tx, err := ratelimit.Do(ctx, c.limiter, ratelimit.ProviderEthereum, func(ctx context.Context) (*types.Transaction, error) {
		tx, pending, err := c.client.TransactionByHash(ctx, common.HexToHash(hash))
		if err != nil {
			return nil, err
		}
		if pending {
			return nil, ethereum.NotFound
		}
		return tx, nil
	})
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrTransactionNotFound, hash)
		}
		return nil, fmt.Errorf("failed to get transaction %s: %w", hash, err)
	}

	var from string
	if sender, err := types.Sender(types.LatestSignerForChainID(tx.ChainId()), tx); err == nil {
		from = sender.Hex()
	} else {
		logger.WarnCtx(ctx, "Failed to recover transaction sender", zap.String("txHash", hash), zap.Error(err))
	}

	return &Transaction{
		Hash:     tx.Hash().Hex(),
		From:     from,
		Gas:      tx.Gas(),
		GasPrice: tx.GasPrice(),
		Value:    tx.Value(),
	}, nil
}

// GetTransactionReceipt returns the receipt of a mined transaction
func (c *ethereumClient) GetTransactionReceipt(ctx context.Context, hash string) (*Receipt, error) {
	receipt, err := ratelimit.Do(ctx, c.limiter, ratelimit.ProviderEthereum, func(ctx context.Context) (*types.Receipt, error) {
		return c.client.TransactionReceipt(ctx, common.HexToHash(hash))
	})
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return nil, fmt.Errorf("%w: receipt %s", domain.ErrTransactionNotFound, hash)
		}
		return nil, fmt.Errorf("failed to get transaction receipt %s: %w", hash, err)
	}

	logs := make([]types.Log, 0, len(receipt.Logs))
	for _, l := range receipt.Logs {
		if l != nil {
			logs = append(logs, *l)
		}
	}

	return &Receipt{
		GasUsed:           receipt.GasUsed,
		EffectiveGasPrice: receipt.EffectiveGasPrice,
		Status:            receipt.Status,
		Logs:              logs,
	}, nil
}

// Close closes the connection
func (c *ethereumClient) Close() {
	c.client.Close()
}
