package extractor

import (
	"math/big"

	"github.com/feral-file/ff-transfer-indexer/internal/domain"
)

// attribution is the classification and attributed value of one leg
type attribution struct {
	value          *big.Int
	isInterstitial bool
	isBatch        bool
	isSwap         bool
	isMultiAddress bool
}

// attribute classifies the legs of one transaction, in log order, and splits
// the transaction's payment across them.
//
//   - A leg whose recipient forwards the same token in a later leg is interstitial and gets 0.
//   - Burns get 0.
//   - In a swap, the payment is split evenly over the legs paid to counterparties that are
//     not themselves swapping; legs returning to a swapper share what is left of the payment.
//   - Otherwise, including a swap where every party is a swapper, the payment is split
//     evenly over the remaining legs.
//   - A price carried by the event itself overrides the computed share.
func attribute(legs []leg, payment *big.Int) []attribution {
	result := make([]attribution, len(legs))
	if len(legs) == 0 {
		return result
	}
	if payment == nil {
		payment = new(big.Int)
	}

	collections := make(map[string]struct{})
	tokens := make(map[domain.TokenKey]struct{})
	for _, l := range legs {
		collections[l.collection] = struct{}{}
		tokens[l.tokenKey()] = struct{}{}
	}
	isMultiAddress := len(collections) > 1
	isBatch := len(tokens) > 1

	interstitial := make([]bool, len(legs))
	for i, l := range legs {
		if domain.IsZeroAddress(l.to) {
			continue
		}
		for _, later := range legs[i+1:] {
			if later.tokenKey() == l.tokenKey() && later.from == l.to {
				interstitial[i] = true
				break
			}
		}
	}

	swappers := findSwappers(legs)
	isSwap := len(swappers) > 0

	var payees, counterparties, returns []int
	for i, l := range legs {
		if interstitial[i] || l.isBurn() {
			continue
		}
		payees = append(payees, i)
		if _, ok := swappers[l.to]; ok {
			returns = append(returns, i)
		} else {
			counterparties = append(counterparties, i)
		}
	}

	values := make([]*big.Int, len(legs))
	if isSwap && len(counterparties) > 0 {
		share := split(payment, len(counterparties), values, counterparties)
		remainder := new(big.Int).Sub(payment, new(big.Int).Mul(share, big.NewInt(int64(len(counterparties)))))
		split(remainder, len(returns), values, returns)
	} else {
		split(payment, len(payees), values, payees)
	}

	for i, l := range legs {
		value := values[i]
		if value == nil {
			value = new(big.Int)
		}
		if l.price != nil && !interstitial[i] {
			value = new(big.Int).Set(l.price)
		}

		result[i] = attribution{
			value:          value,
			isInterstitial: interstitial[i],
			isBatch:        isBatch,
			isSwap:         isSwap,
			isMultiAddress: isMultiAddress,
		}
	}

	return result
}

// split assigns amount/n to values[idx] for every index and returns the share
func split(amount *big.Int, n int, values []*big.Int, indexes []int) *big.Int {
	if n == 0 {
		return new(big.Int)
	}
	share := new(big.Int).Quo(amount, big.NewInt(int64(n)))
	for _, i := range indexes {
		values[i] = new(big.Int).Set(share)
	}
	return share
}

// findSwappers returns the non-zero addresses that both send and receive within
// the transaction, where the sent and received token sets differ
func findSwappers(legs []leg) map[string]struct{} {
	sent := make(map[string]map[domain.TokenKey]struct{})
	received := make(map[string]map[domain.TokenKey]struct{})
	for _, l := range legs {
		if !domain.IsZeroAddress(l.from) {
			addKey(sent, l.from, l.tokenKey())
		}
		if !domain.IsZeroAddress(l.to) {
			addKey(received, l.to, l.tokenKey())
		}
	}

	swappers := make(map[string]struct{})
	for address, sentKeys := range sent {
		receivedKeys, ok := received[address]
		if !ok {
			continue
		}
		// An address that forwards exactly what it received is a pass-through, not a swapper
		if hasKeyMissingFrom(sentKeys, receivedKeys) || hasKeyMissingFrom(receivedKeys, sentKeys) {
			swappers[address] = struct{}{}
		}
	}
	return swappers
}

// hasKeyMissingFrom reports whether a holds a key that b does not
func hasKeyMissingFrom(a, b map[domain.TokenKey]struct{}) bool {
	for key := range a {
		if _, ok := b[key]; !ok {
			return true
		}
	}
	return false
}

func addKey(m map[string]map[domain.TokenKey]struct{}, address string, key domain.TokenKey) {
	if m[address] == nil {
		m[address] = make(map[domain.TokenKey]struct{})
	}
	m[address][key] = struct{}{}
}
