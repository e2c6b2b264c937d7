package aax

import (
	"context"
	"net/http"

	"aax-connector/internal/core"
)

// purseIDs are the venue identifiers of each balance purse.
var purseIDs = map[core.Venue]string{
	core.VenueSpot:    "SPTP",
	core.VenueFutures: "FUTP",
	core.VenueOTC:     "F2CP",
	core.VenueSavings: "VLTP",
}

// FetchBalance returns the balances of one purse; an empty purse selects the
// default venue.
func (c *Client) FetchBalance(ctx context.Context, purse core.Venue) (core.Balances, error) {
	const op = "fetchBalance"
	v, err := c.router.Venue(purse, purseVenues)
	if err != nil {
		return core.Balances{}, wrapOp(op, err)
	}
	if err := c.requireCredentials(op); err != nil {
		return core.Balances{}, err
	}
	if err := c.ensureMarkets(ctx); err != nil {
		return core.Balances{}, err
	}
	purseID := purseIDs[v]
	env, err := c.private(ctx, op, http.MethodGet, "/v2/account/balances", Params{"purseType": purseID})
	if err != nil {
		return core.Balances{}, err
	}
	balances, err := parseBalances(v, purseID, env.Data)
	return balances, wrapOp(op, err)
}
