package models

import (
	"fmt"
	"strings"
	"time"
)

// ContractType represents the right carried by an option contract.
type ContractType string

const (
	Call ContractType = "call"
	Put  ContractType = "put"
)

// ParseContractType accepts call/put in any case, plus the CE/PE exchange codes.
func ParseContractType(s string) (ContractType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "call", "c", "ce":
		return Call, nil
	case "put", "p", "pe":
		return Put, nil
	default:
		return "", fmt.Errorf("unknown contract type %q (want call or put)", s)
	}
}

// Action represents the side of a strategy leg.
type Action string

const (
	Buy  Action = "buy"
	Sell Action = "sell"
)

// ParseAction accepts buy/sell in any case.
func ParseAction(s string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "buy", "b", "long":
		return Buy, nil
	case "sell", "s", "short":
		return Sell, nil
	default:
		return "", fmt.Errorf("unknown action %q (want buy or sell)", s)
	}
}

// ExpirationLayout is the calendar-date format used for expirations.
const ExpirationLayout = "2006-01-02"

// ParseExpiration parses an ISO calendar date as 00:00 UTC.
func ParseExpiration(s string) (time.Time, error) {
	t, err := time.Parse(ExpirationLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid expiration %q: %w", s, err)
	}
	return t.UTC(), nil
}

// OptionGreeks represents option Greeks.
type OptionGreeks struct {
	Delta float64 `json:"delta"`
	Gamma float64 `json:"gamma"`
	Theta float64 `json:"theta"`
	Vega  float64 `json:"vega"`
	Rho   float64 `json:"rho"`
}

// OptionContract is an immutable snapshot of a listed option.
// CachedGreeks are whatever the data provider last reported and are only
// used when live pricing fails.
type OptionContract struct {
	UnderlyingTicker  string       `json:"underlying_ticker"`
	Ticker            string       `json:"ticker"`
	Strike            float64      `json:"strike"`
	Expiration        time.Time    `json:"expiration"`
	Type              ContractType `json:"type"`
	LastPrice         float64      `json:"last_price"`
	ImpliedVolatility float64      `json:"implied_volatility"`
	Volume            int64        `json:"volume"`
	OpenInterest      int64        `json:"open_interest"`
	CachedGreeks      OptionGreeks `json:"cached_greeks"`
}

// IsCall reports whether the contract is a call.
func (c OptionContract) IsCall() bool {
	return c.Type == Call
}

// Intrinsic returns the exercise value of the contract at the given spot.
func (c OptionContract) Intrinsic(spot float64) float64 {
	if c.IsCall() {
		if spot > c.Strike {
			return spot - c.Strike
		}
		return 0
	}
	if c.Strike > spot {
		return c.Strike - spot
	}
	return 0
}

// IsIlliquid reports a contract with neither volume nor open interest.
func (c OptionContract) IsIlliquid() bool {
	return c.Volume == 0 && c.OpenInterest == 0
}

// Label returns a short human-readable identifier.
func (c OptionContract) Label() string {
	if c.Ticker != "" {
		return c.Ticker
	}
	return fmt.Sprintf("%s %s %.2f %s", c.UnderlyingTicker, c.Expiration.Format(ExpirationLayout), c.Strike, strings.ToUpper(string(c.Type)))
}

// Validate checks the snapshot invariants.
func (c OptionContract) Validate() error {
	if c.Strike <= 0 {
		return fmt.Errorf("contract %s: strike must be > 0", c.Label())
	}
	if c.ImpliedVolatility < 0 {
		return fmt.Errorf("contract %s: implied volatility must be >= 0", c.Label())
	}
	if c.Type != Call && c.Type != Put {
		return fmt.Errorf("contract %s: unknown type %q", c.Label(), c.Type)
	}
	if c.Expiration.IsZero() {
		return fmt.Errorf("contract %s: expiration is required", c.Label())
	}
	return nil
}

// StrategyLeg is one contract plus a side and a size.
type StrategyLeg struct {
	Contract OptionContract `json:"contract"`
	Action   Action         `json:"action"`
	Quantity int            `json:"quantity"`
}

// Sign is +1 for long legs and -1 for short legs.
func (l StrategyLeg) Sign() float64 {
	if l.Action == Sell {
		return -1
	}
	return 1
}

// GreeksData is a freshly computed set of Greeks for one contract.
type GreeksData struct {
	Delta             float64 `json:"delta"`
	Gamma             float64 `json:"gamma"`
	Theta             float64 `json:"theta"`
	Vega              float64 `json:"vega"`
	Rho               float64 `json:"rho"`
	TheoreticalPrice  float64 `json:"theoretical_price"`
	ImpliedVolatility float64 `json:"implied_volatility"`
}

// GreeksFromCache builds GreeksData from a contract's cached fields.
func GreeksFromCache(c OptionContract) GreeksData {
	return GreeksData{
		Delta:             c.CachedGreeks.Delta,
		Gamma:             c.CachedGreeks.Gamma,
		Theta:             c.CachedGreeks.Theta,
		Vega:              c.CachedGreeks.Vega,
		Rho:               c.CachedGreeks.Rho,
		TheoreticalPrice:  c.LastPrice,
		ImpliedVolatility: c.ImpliedVolatility,
	}
}
