package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// StaticHistorySource serves fixed bars from memory and counts its calls.
// It implements exchange.HistorySource.
type StaticHistorySource struct {
	mu            sync.Mutex
	bars          map[string][]types.Bar
	granularities []time.Duration
	calls         int
}

// NewStaticHistorySource creates a source accepting the given granularities.
func NewStaticHistorySource(granularities ...time.Duration) *StaticHistorySource {
	return &StaticHistorySource{
		mu:            sync.Mutex{},
		bars:          make(map[string][]types.Bar),
		granularities: granularities,
		calls:         0,
	}
}

// Add registers bars for symbol. Bars must be sorted by time.
func (s *StaticHistorySource) Add(symbol string, bars ...types.Bar) *StaticHistorySource {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.bars[symbol] = append(s.bars[symbol], bars...)

	return s
}

// GetProductHistory returns the registered rows in [start, end), ignoring granularity.
func (s *StaticHistorySource) GetProductHistory(_ context.Context, symbol string, start, end time.Time, _ time.Duration) ([]types.Bar, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++

	var out []types.Bar

	for _, bar := range s.bars[symbol] {
		if !bar.Time.Before(start) && bar.Time.Before(end) {
			out = append(out, bar)
		}
	}

	return out, nil
}

func (s *StaticHistorySource) Granularities() []time.Duration {
	return s.granularities
}

// Calls returns how many times GetProductHistory ran.
func (s *StaticHistorySource) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.calls
}
