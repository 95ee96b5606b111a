package extractor

import (
	"context"
	"fmt"
	"math/big"
	"sort"

	"github.com/alitto/pond/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/feral-file/ff-transfer-indexer/internal/domain"
	"github.com/feral-file/ff-transfer-indexer/internal/logger"
	"github.com/feral-file/ff-transfer-indexer/internal/providers/ethereum"
)

// Result is the classified transfer set of one block
type Result struct {
	Header    domain.BlockHeader
	Transfers []domain.Transfer
}

// Extractor turns a block into normalized, value-attributed transfers
//
//go:generate mockgen -source=extractor.go -destination=../mocks/extractor.go -package=mocks -mock_names=Extractor=MockExtractor
type Extractor interface {
	// Extract fetches a block and returns its transfers.
	// Any chain client failure fails the whole block.
	Extract(ctx context.Context, blockNumber uint64) (*Result, error)

	// Close stops the receipt fetch pool
	Close()
}

// Config holds the extractor settings
type Config struct {
	// ReceiptConcurrency bounds concurrent transaction and receipt fetches
	ReceiptConcurrency int
	KittiesAddress     string
	PunksAddress       string
}

type extractor struct {
	client   ethereum.EthereumClient
	registry LegacyRegistry
	pool     pond.Pool
}

// NewExtractor creates a new extractor
func NewExtractor(client ethereum.EthereumClient, cfg Config) Extractor {
	return &extractor{
		client:   client,
		registry: NewLegacyRegistry(cfg.KittiesAddress, cfg.PunksAddress),
		pool:     pond.NewPool(max(cfg.ReceiptConcurrency, 1)),
	}
}

// txLegs holds the decoded legs of one transaction and its fetched data
type txLegs struct {
	hash    common.Hash
	legs    []leg
	tx      *ethereum.Transaction
	receipt *ethereum.Receipt
}

// Extract fetches a block and returns its transfers in log order
func (e *extractor) Extract(ctx context.Context, blockNumber uint64) (*Result, error) {
	block, err := e.client.GetBlock(ctx, blockNumber)
	if err != nil {
		return nil, err
	}

	txs := e.decodeBlockLogs(block.Logs)
	if len(txs) == 0 {
		return &Result{Header: block.Header}, nil
	}

	if err := e.fetchTransactions(ctx, txs); err != nil {
		return nil, fmt.Errorf("failed to fetch transactions of block %d: %w", blockNumber, err)
	}

	var transfers []domain.Transfer
	for _, t := range txs {
		transfers = append(transfers, buildTransfers(block.Header, t)...)
	}

	logger.DebugCtx(ctx, "Extracted block transfers",
		zap.Uint64("blockNumber", blockNumber),
		zap.Int("transactions", len(txs)),
		zap.Int("transfers", len(transfers)))

	return &Result{Header: block.Header, Transfers: transfers}, nil
}

// decodeBlockLogs decodes the logs of a block grouped by transaction, in log order.
// Transactions without any token movement are left out.
func (e *extractor) decodeBlockLogs(logs []types.Log) []*txLegs {
	sorted := make([]types.Log, len(logs))
	copy(sorted, logs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Index < sorted[j].Index })

	var order []*txLegs
	byHash := make(map[common.Hash]*txLegs)
	// closest earlier log per (transaction, contract)
	previous := make(map[common.Hash]map[common.Address]*types.Log)

	for i := range sorted {
		l := &sorted[i]

		prevByAddress := previous[l.TxHash]
		if prevByAddress == nil {
			prevByAddress = make(map[common.Address]*types.Log)
			previous[l.TxHash] = prevByAddress
		}
		legs := decodeLog(e.registry, *l, prevByAddress[l.Address])
		prevByAddress[l.Address] = l

		if len(legs) == 0 {
			continue
		}

		t, ok := byHash[l.TxHash]
		if !ok {
			t = &txLegs{hash: l.TxHash}
			byHash[l.TxHash] = t
			order = append(order, t)
		}
		t.legs = append(t.legs, legs...)
	}

	return order
}

// fetchTransactions loads the transaction and receipt of every entry concurrently.
// The first failure cancels the remaining fetches.
func (e *extractor) fetchTransactions(ctx context.Context, txs []*txLegs) error {
	fetchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	group := e.pool.NewGroup()
	for _, t := range txs {
		group.SubmitErr(func() error {
			tx, err := e.client.GetTransaction(fetchCtx, t.hash.Hex())
			if err != nil {
				cancel()
				return err
			}
			receipt, err := e.client.GetTransactionReceipt(fetchCtx, t.hash.Hex())
			if err != nil {
				cancel()
				return err
			}
			t.tx = tx
			t.receipt = receipt
			return nil
		})
	}
	return group.Wait()
}

// buildTransfers attributes the legs of one transaction and normalizes them
func buildTransfers(header domain.BlockHeader, t *txLegs) []domain.Transfer {
	attributions := attribute(t.legs, t.tx.Value)

	gasPrice := t.receipt.EffectiveGasPrice
	if gasPrice == nil {
		gasPrice = t.tx.GasPrice
	}
	if gasPrice == nil {
		gasPrice = new(big.Int)
	}

	transfers := make([]domain.Transfer, 0, len(t.legs))
	for i, l := range t.legs {
		operator := l.operator
		if operator == "" {
			operator = t.tx.From
		}

		a := attributions[i]
		transfers = append(transfers, domain.Transfer{
			TransactionHash:   t.hash.Hex(),
			CollectionAddress: domain.NormalizeAddress(l.collection),
			TokenID:           l.tokenID,
			FromAddress:       domain.NormalizeAddress(l.from),
			ToAddress:         domain.NormalizeAddress(l.to),
			OperatorAddress:   domain.NormalizeAddress(operator),
			TokenType:         l.tokenType,
			Amount:            l.amount.String(),
			Value:             a.value.String(),
			GasLimit:          t.tx.Gas,
			GasPrice:          gasPrice.String(),
			GasUsed:           t.receipt.GasUsed,
			BlockNumber:       header.Number,
			BlockDate:         header.Timestamp,
			LogIndex:          l.logIndex,
			IsMultiAddress:    a.isMultiAddress,
			IsInterstitial:    a.isInterstitial,
			IsBatch:           a.isBatch,
			IsSwap:            a.isSwap,
		})
	}
	return transfers
}

// Close stops the receipt fetch pool
func (e *extractor) Close() {
	e.pool.StopAndWait()
}
