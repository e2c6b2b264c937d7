package aax

import (
	"sort"
	"sync"

	"aax-connector/internal/core"
)

// MarketLookup is the read side of the market metadata table.
type MarketLookup interface {
	MarketBySymbol(symbol string) (core.Market, bool)
	MarketByID(id string) (core.Market, bool)
}

// Markets is the in-memory market table. It is replaced wholesale on reload.
type Markets struct {
	mu       sync.RWMutex
	bySymbol map[string]core.Market
	byID     map[string]core.Market
}

func NewMarkets(markets []core.Market) *Markets {
	m := &Markets{}
	m.Replace(markets)
	return m
}

func (m *Markets) Replace(markets []core.Market) {
	bySymbol := make(map[string]core.Market, len(markets))
	byID := make(map[string]core.Market, len(markets))
	for _, market := range markets {
		bySymbol[market.Symbol] = market
		byID[market.ID] = market
	}
	m.mu.Lock()
	m.bySymbol = bySymbol
	m.byID = byID
	m.mu.Unlock()
}

func (m *Markets) Loaded() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byID) > 0
}

func (m *Markets) MarketBySymbol(symbol string) (core.Market, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	market, ok := m.bySymbol[symbol]
	return market, ok
}

func (m *Markets) MarketByID(id string) (core.Market, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	market, ok := m.byID[id]
	return market, ok
}

// All returns the markets ordered by symbol.
func (m *Markets) All() []core.Market {
	m.mu.RLock()
	out := make([]core.Market, 0, len(m.bySymbol))
	for _, market := range m.bySymbol {
		out = append(out, market)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}
