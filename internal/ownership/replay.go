package ownership

import (
	"math/big"
	"sort"
	"time"

	"github.com/feral-file/ff-transfer-indexer/internal/domain"
	"github.com/feral-file/ff-transfer-indexer/internal/store/schema"
)

// Holding is the replayed position of one holder of a multi-owner token
type Holding struct {
	OwnerAddress string
	Quantity     *big.Int
	// AverageTransferValue is the running average kept exact until it is stored
	AverageTransferValue   *big.Rat
	LatestTransferDate     time.Time
	LatestTransferTxHash   string
	latestTransferBlock    uint64
	latestTransferLogIndex uint
}

// Replay folds the transfers of one token, in ledger order, into per-holder positions.
// The zero address never holds a balance. A holder cannot go below zero.
// Holders whose quantity ends at zero are dropped; the rest are sorted by address.
func Replay(transfers []*schema.TokenTransfer) []Holding {
	holders := make(map[string]*Holding)

	get := func(address string) *Holding {
		h, ok := holders[address]
		if !ok {
			h = &Holding{
				OwnerAddress:         address,
				Quantity:             new(big.Int),
				AverageTransferValue: new(big.Rat),
			}
			holders[address] = h
		}
		return h
	}

	for _, t := range transfers {
		amount, ok := new(big.Int).SetString(t.Amount, 10)
		if !ok || amount.Sign() <= 0 {
			continue
		}
		value, ok := new(big.Int).SetString(t.Value, 10)
		if !ok {
			value = new(big.Int)
		}

		if !domain.IsZeroAddress(t.FromAddress) {
			h := get(t.FromAddress)
			h.apply(new(big.Int).Neg(amount), new(big.Int).Neg(value))
			h.observe(t)
		}
		if !domain.IsZeroAddress(t.ToAddress) {
			h := get(t.ToAddress)
			h.apply(amount, value)
			h.observe(t)
		}
	}

	result := make([]Holding, 0, len(holders))
	for _, h := range holders {
		if h.Quantity.Sign() > 0 {
			result = append(result, *h)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].OwnerAddress < result[j].OwnerAddress })
	return result
}

// apply moves delta units carrying deltaValue in or out of the holding:
// newAverage = (oldAverage*oldQty + deltaValue) / newQty, 0 when newQty is 0
func (h *Holding) apply(delta *big.Int, deltaValue *big.Int) {
	oldQty := h.Quantity
	newQty := new(big.Int).Add(oldQty, delta)
	if newQty.Sign() <= 0 {
		h.Quantity = new(big.Int)
		h.AverageTransferValue = new(big.Rat)
		return
	}

	total := new(big.Rat).Mul(h.AverageTransferValue, new(big.Rat).SetInt(oldQty))
	total.Add(total, new(big.Rat).SetInt(deltaValue))
	average := total.Quo(total, new(big.Rat).SetInt(newQty))
	if average.Sign() < 0 {
		average = new(big.Rat)
	}

	h.Quantity = newQty
	h.AverageTransferValue = average
}

// observe records t as the latest transfer of the holding when it is newer in ledger order
func (h *Holding) observe(t *schema.TokenTransfer) {
	if h.LatestTransferTxHash != "" &&
		(t.BlockNumber < h.latestTransferBlock ||
			(t.BlockNumber == h.latestTransferBlock && t.LogIndex < h.latestTransferLogIndex)) {
		return
	}
	h.LatestTransferDate = t.BlockDate
	h.LatestTransferTxHash = t.TransactionHash
	h.latestTransferBlock = t.BlockNumber
	h.latestTransferLogIndex = t.LogIndex
}

// FlooredAverage returns the average transfer value rounded down to whole wei
func (h Holding) FlooredAverage() *big.Int {
	return new(big.Int).Quo(h.AverageTransferValue.Num(), h.AverageTransferValue.Denom())
}
