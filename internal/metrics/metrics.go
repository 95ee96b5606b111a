package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ChainHead = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ff_transfer_indexer_chain_head",
		Help: "The latest block number reported by the RPC source",
	})

	BlockCursor = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ff_transfer_indexer_block_cursor",
		Help: "The highest block number queued for processing",
	})

	BlocksProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ff_transfer_indexer_blocks_processed_total",
		Help: "Total number of blocks reconciled",
	})

	ReorgCount = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ff_transfer_indexer_reorg_count",
		Help: "Total number of blocks whose stored hash differed from the fetched hash",
	})

	TransfersInserted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ff_transfer_indexer_transfers_inserted_total",
		Help: "Total number of transfer rows inserted by reconciliation",
	})

	TransfersDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ff_transfer_indexer_transfers_deleted_total",
		Help: "Total number of transfer rows deleted by reconciliation",
	})

	OwnershipRecomputations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ff_transfer_indexer_ownership_recomputations_total",
		Help: "Total number of ownership recomputations by path and result",
	}, []string{"path", "result"})

	LockWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ff_transfer_indexer_lock_wait_seconds",
		Help:    "Time spent acquiring distributed locks",
		Buckets: []float64{0.005, 0.05, 0.25, 1, 5, 15, 30, 60},
	})

	LockTimeouts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ff_transfer_indexer_lock_timeouts_total",
		Help: "Total number of lock acquisitions that timed out",
	})

	MessagesHandled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ff_transfer_indexer_messages_handled_total",
		Help: "Total number of queue messages by queue, command and outcome",
	}, []string{"queue", "command", "outcome"})

	MessageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ff_transfer_indexer_message_duration_seconds",
		Help:    "Time spent handling queue messages",
		Buckets: prometheus.DefBuckets,
	}, []string{"queue", "command"})
)

// Ownership recomputation paths and results
const (
	PathSingle = "single"
	PathMulti  = "multi"

	ResultUpdated   = "updated"
	ResultUnchanged = "unchanged"
	ResultSkipped   = "skipped"
	ResultTouched   = "touched"
)
