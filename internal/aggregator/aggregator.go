/*

This file sums the vault's position across its underlying sources into one
total. Each source reports independently and is trusted as-is; there is no
partial-failure mode. If any single balance query fails, the whole aggregate
call fails, because every downstream rate computation needs a complete view.

*/

package aggregator

import (
	"context"
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/elys-network/mvault/internal/source"
)

// Error definitions for zero-tolerance error handling
var (
	ErrNoSources     = errors.New("no underlying sources configured")
	ErrNilSource     = errors.New("underlying source is nil")
	ErrInvalidHolder = errors.New("holder address is invalid")
	ErrSourceQuery   = errors.New("underlying source query failed")
)

// SourceBalance is one source's reported balance within a consistent pass.
type SourceBalance struct {
	SourceID string
	Assets   sdkmath.Int
}

// Aggregator sums the holder's position across a fixed, ordered source list.
// Read-only; safe to call nested inside a mutating vault operation.
type Aggregator struct {
	sources []source.Source
	holder  string
}

// New validates the source list and returns an Aggregator for the given
// holder (the vault's own custody address).
func New(sources []source.Source, holder string) (*Aggregator, error) {
	if len(sources) == 0 {
		return nil, ErrNoSources
	}
	if holder == "" {
		return nil, ErrInvalidHolder
	}
	for i, s := range sources {
		if s == nil {
			return nil, fmt.Errorf("%w: index %d", ErrNilSource, i)
		}
	}
	return &Aggregator{sources: sources, holder: holder}, nil
}

// TotalAssets returns the sum of the holder's balance across all sources.
func (a *Aggregator) TotalAssets(ctx context.Context) (sdkmath.Int, error) {
	_, total, err := a.Balances(ctx)
	return total, err
}

// Balances returns the per-source balance vector and its sum from one pass.
// The withdraw path needs the vector so all N proportional allocations are
// computed against the same snapshot.
func (a *Aggregator) Balances(ctx context.Context) ([]SourceBalance, sdkmath.Int, error) {
	balances := make([]SourceBalance, 0, len(a.sources))
	total := sdkmath.ZeroInt()

	for _, s := range a.sources {
		bal, err := s.AssetsOf(ctx, a.holder)
		if err != nil {
			return nil, sdkmath.Int{}, fmt.Errorf("%w: source %s: %w", ErrSourceQuery, s.ID(), err)
		}
		if bal.IsNil() || bal.IsNegative() {
			return nil, sdkmath.Int{}, fmt.Errorf("%w: source %s reported invalid balance", ErrSourceQuery, s.ID())
		}
		balances = append(balances, SourceBalance{SourceID: s.ID(), Assets: bal})
		total = total.Add(bal)
	}

	return balances, total, nil
}

// Sources returns the ordered source list. The slice is shared; callers must
// not mutate it.
func (a *Aggregator) Sources() []source.Source {
	return a.sources
}

// Count returns the number of underlying sources.
func (a *Aggregator) Count() int {
	return len(a.sources)
}
