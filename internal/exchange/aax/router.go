package aax

import (
	"fmt"
	"strings"

	"aax-connector/internal/core"
)

// FuturesMarker is the contract code appended to a spot pair to name its
// futures contract, both in market symbols (BTC/USDFP) and wire ids (BTCUSDFP).
const FuturesMarker = "FP"

var (
	tradingVenues = []core.Venue{core.VenueSpot, core.VenueFutures}
	purseVenues   = []core.Venue{core.VenueSpot, core.VenueFutures, core.VenueOTC, core.VenueSavings}
)

// Route is the outcome of resolving a logical symbol for one call.
type Route struct {
	Venue core.Venue
	// Symbol is the caller-facing symbol, never carrying the marker.
	Symbol string
	// MarketSymbol is the key into the market table; carries the marker for contracts.
	MarketSymbol string
}

// Futures reports whether the route addresses a futures contract, either by
// venue or because the market symbol names one.
func (r Route) Futures() bool {
	return r.Venue == core.VenueFutures || HasMarker(r.MarketSymbol)
}

type Router struct {
	defaultVenue core.Venue
}

func NewRouter(defaultVenue core.Venue) (*Router, error) {
	v := normalizeVenue(defaultVenue)
	if v == "" {
		v = core.VenueSpot
	}
	if !venueIn(v, tradingVenues) {
		return nil, fmt.Errorf("%w: default venue must be spot or futures, got %q", core.ErrInvalidConfiguration, defaultVenue)
	}
	return &Router{defaultVenue: v}, nil
}

func (r *Router) DefaultVenue() core.Venue { return r.defaultVenue }

// Venue picks the venue for a call that does not depend on a symbol.
func (r *Router) Venue(explicit core.Venue, allowed []core.Venue) (core.Venue, error) {
	v := normalizeVenue(explicit)
	if v == "" {
		return r.defaultVenue, nil
	}
	if !venueIn(v, allowed) {
		return "", fmt.Errorf("%w: venue must be one of %s, got %q", core.ErrBadRequest, joinVenues(allowed), explicit)
	}
	return v, nil
}

// Resolve maps a logical symbol to its route. An explicit venue wins, then a
// symbol carrying the futures marker, then the configured default.
func (r *Router) Resolve(symbol string, explicit core.Venue) (Route, error) {
	symbol = strings.TrimSpace(symbol)
	v := normalizeVenue(explicit)
	if v != "" && !venueIn(v, tradingVenues) {
		return Route{}, fmt.Errorf("%w: venue must be one of %s, got %q", core.ErrBadRequest, joinVenues(tradingVenues), explicit)
	}
	marked := HasMarker(symbol)
	if v == "" {
		if marked {
			v = core.VenueFutures
		} else {
			v = r.defaultVenue
		}
	}
	route := Route{Venue: v}
	if symbol == "" {
		return route, nil
	}
	route.MarketSymbol = symbol
	if v == core.VenueFutures && !marked {
		route.MarketSymbol = symbol + FuturesMarker
	}
	route.Symbol = StripMarker(route.MarketSymbol)
	return route, nil
}

// WireSymbol looks the route up in the market table and returns the venue id.
func (r *Router) WireSymbol(markets MarketLookup, route Route) (string, error) {
	if route.MarketSymbol == "" {
		return "", fmt.Errorf("%w: symbol is empty", core.ErrArgumentsRequired)
	}
	m, ok := markets.MarketBySymbol(route.MarketSymbol)
	if !ok {
		return "", fmt.Errorf("%w: %s", core.ErrUnknownSymbol, route.MarketSymbol)
	}
	return m.ID, nil
}

func HasMarker(symbol string) bool {
	return symbol != "" && strings.HasSuffix(symbol, FuturesMarker)
}

// StripMarker removes a trailing futures marker.
func StripMarker(symbol string) string {
	return strings.TrimSuffix(symbol, FuturesMarker)
}

func normalizeVenue(v core.Venue) core.Venue {
	s := strings.ToLower(strings.TrimSpace(string(v)))
	switch s {
	case "future":
		return core.VenueFutures
	case "saving":
		return core.VenueSavings
	}
	return core.Venue(s)
}

func venueIn(v core.Venue, set []core.Venue) bool {
	for _, allowed := range set {
		if v == allowed {
			return true
		}
	}
	return false
}

func joinVenues(set []core.Venue) string {
	parts := make([]string, 0, len(set))
	for _, v := range set {
		parts = append(parts, string(v))
	}
	return strings.Join(parts, ",")
}
