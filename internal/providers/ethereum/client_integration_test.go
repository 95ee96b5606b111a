package ethereum

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-transfer-indexer/internal/adapter"
	"github.com/feral-file/ff-transfer-indexer/internal/logger"
)

func TestGetBlock_Integration(t *testing.T) {
	rpcURL := os.Getenv("ETHEREUM_RPC_URL")
	if rpcURL == "" {
		t.Skip("Skipping integration test: ETHEREUM_RPC_URL not set")
	}
	require.NoError(t, logger.Initialize(logger.Config{Debug: true}))

	testCases := []struct {
		name         string
		blockNumber  uint64
		expectedHash string
	}{
		{
			name:         "merge block",
			blockNumber:  15_537_394,
			expectedHash: "0x56a9bb0302da44b8c0b3df540781424684c3af04d0b7a38d72842b762076a664",
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	dialer := adapter.NewEthClientDialer()
	ethClient, err := dialer.Dial(ctx, rpcURL)
	require.NoError(t, err)

	client := NewClient(ethClient, nil, adapter.NewClock())
	t.Cleanup(client.Close)

	head, err := client.GetLatestBlockNumber(ctx)
	require.NoError(t, err)

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Less(t, tc.blockNumber, head)

			block, err := client.GetBlock(ctx, tc.blockNumber)
			require.NoError(t, err)
			require.Equal(t, tc.expectedHash, block.Header.Hash)
			require.NotEmpty(t, block.Logs)

			for _, l := range block.Logs {
				require.Equal(t, tc.blockNumber, l.BlockNumber)
			}

			receipt, err := client.GetTransactionReceipt(ctx, block.Logs[0].TxHash.Hex())
			require.NoError(t, err)
			require.NotZero(t, receipt.GasUsed)
		})
	}
}
