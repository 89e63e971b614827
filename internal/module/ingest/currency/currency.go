// Package currency is the Currency Converter (C4): converts an original
// amount into GBP, sharing one FX rate per source currency across an
// entire normalization run.
package currency

import (
	"context"
	"sync"

	"txledger/internal/money"
	"txledger/internal/module/ingest/ports"
	"txledger/internal/module/ingest/retry"
)

// Snapshot holds the rates captured so far in one run. Rates are immutable
// once captured (spec section 4.4): the first reader populates the map
// under the lock, every other caller waits and reuses it.
type Snapshot struct {
	mu    sync.Mutex
	rates map[string]money.Rate
}

func NewSnapshot() *Snapshot {
	return &Snapshot{rates: make(map[string]money.Rate)}
}

// Converter implements convert(amount, src_ccy, run_context) -> (gbp_amount, rate, snapshot_id).
type Converter struct {
	port   ports.ExchangeRatePort
	policy retry.Policy
	target string
}

func NewConverter(port ports.ExchangeRatePort, target string) *Converter {
	return &Converter{port: port, policy: retry.DefaultPolicy(), target: target}
}

// Result is the (gbp_amount, rate, snapshot_id) triple. SnapshotID is empty
// for the GBP fast-path, matching the port's null-snapshot contract.
type Result struct {
	GBPAmount  money.Amount
	Rate       *money.Rate
	SnapshotID string
}

// Convert implements C4's public contract. snapshot is the run-local rate
// cache shared across all transactions in one normalization run.
func (c *Converter) Convert(ctx context.Context, amount money.Amount, srcCurrency string, snapshot *Snapshot) (Result, error) {
	if srcCurrency == c.target {
		return Result{GBPAmount: amount}, nil
	}

	rate, err := c.rateFor(ctx, srcCurrency, snapshot)
	if err != nil {
		return Result{}, err
	}

	gbp := amount.Mul(rate)
	return Result{GBPAmount: gbp, Rate: &rate, SnapshotID: srcCurrency}, nil
}

func (c *Converter) rateFor(ctx context.Context, srcCurrency string, snapshot *Snapshot) (money.Rate, error) {
	snapshot.mu.Lock()
	defer snapshot.mu.Unlock()
	if r, ok := snapshot.rates[srcCurrency]; ok {
		return r, nil
	}

	var rate money.Rate
	err := retry.Do(ctx, c.policy, func(ctx context.Context) error {
		r, err := c.port.GetRate(ctx, srcCurrency, c.target)
		if err != nil {
			return err
		}
		rate = r
		return nil
	})
	if err != nil {
		return money.Rate{}, err
	}

	snapshot.rates[srcCurrency] = rate
	return rate, nil
}
