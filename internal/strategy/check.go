package strategy

import (
	"fmt"

	"github.com/shopspring/decimal"

	"optionsim/internal/models"
)

var multiplier = decimal.NewFromFloat(models.SharesPerContract)

// check carries one validation run: the leg set (sorted by strike) and the
// result being built.
type check struct {
	res  *models.ValidationResult
	legs []models.StrategyLeg
}

// structure runs the checks shared by every shape: leg count, positive
// quantities, contract invariants, shared underlying and expiration,
// and distinct contracts. It reports whether the shape rule should run.
func (c *check) structure(def Definition) bool {
	n := len(c.legs)
	if n == 0 {
		c.res.AddError("no legs supplied")
		return false
	}
	if n < def.MinLegs || n > def.MaxLegs {
		c.res.AddError("%s requires %s legs, got %d", def.Name, def.LegCount(), n)
		return false
	}

	first := c.legs[0].Contract
	seen := make(map[string]bool, n)
	for i, leg := range c.legs {
		if leg.Quantity <= 0 {
			c.res.AddError("leg %d: quantity must be positive, got %d", i+1, leg.Quantity)
		}
		if leg.Action != models.Buy && leg.Action != models.Sell {
			c.res.AddError("leg %d: unknown action %q", i+1, leg.Action)
		}
		if err := leg.Contract.Validate(); err != nil {
			c.res.AddError("leg %d: %v", i+1, err)
		}
		if leg.Contract.UnderlyingTicker != first.UnderlyingTicker {
			c.res.AddError("all legs must share an underlying: %s vs %s", first.UnderlyingTicker, leg.Contract.UnderlyingTicker)
		}
		if !leg.Contract.Expiration.Equal(first.Expiration) {
			c.res.AddError("all legs must share an expiration: %s vs %s",
				first.Expiration.Format(models.ExpirationLayout), leg.Contract.Expiration.Format(models.ExpirationLayout))
		}
		key := contractKey(leg.Contract)
		if seen[key] && !def.repeats {
			c.res.AddError("duplicate contract %s", leg.Contract.Label())
		}
		seen[key] = true
		if leg.Contract.IsIlliquid() {
			c.res.AddWarning("%s has no volume and no open interest", leg.Contract.Label())
		}
	}
	return len(c.res.Errors) == 0
}

func contractKey(k models.OptionContract) string {
	if k.Ticker != "" {
		return k.Ticker
	}
	return fmt.Sprintf("%s|%s|%s|%g", k.UnderlyingTicker, k.Expiration.Format(models.ExpirationLayout), k.Type, k.Strike)
}

// byType splits legs into calls and puts, preserving strike order.
func (c *check) byType() (calls, puts []models.StrategyLeg) {
	for _, leg := range c.legs {
		if leg.Contract.IsCall() {
			calls = append(calls, leg)
		} else {
			puts = append(puts, leg)
		}
	}
	return calls, puts
}

func (c *check) requireType(t models.ContractType) bool {
	ok := true
	for i, leg := range c.legs {
		if leg.Contract.Type != t {
			c.res.AddError("leg %d: expected a %s, got a %s", i+1, t, leg.Contract.Type)
			ok = false
		}
	}
	return ok
}

func (c *check) requireEqualQuantities() bool {
	q := c.legs[0].Quantity
	for _, leg := range c.legs[1:] {
		if leg.Quantity != q {
			c.res.AddError("all legs must have the same quantity, got %d and %d", q, leg.Quantity)
			return false
		}
	}
	return true
}

// split returns the single bought and single sold leg of a two-leg spread.
func (c *check) split() (buy, sell models.StrategyLeg, ok bool) {
	var buys, sells []models.StrategyLeg
	for _, leg := range c.legs {
		if leg.Action == models.Buy {
			buys = append(buys, leg)
		} else {
			sells = append(sells, leg)
		}
	}
	if len(buys) != 1 || len(sells) != 1 {
		c.res.AddError("expected exactly one buy and one sell, got %d buys and %d sells", len(buys), len(sells))
		return buy, sell, false
	}
	return buys[0], sells[0], true
}

func (c *check) requireAllBuys() bool {
	for i, leg := range c.legs {
		if leg.Action != models.Buy {
			c.res.AddError("leg %d: %s legs must all be bought", i+1, c.res.StrategyName)
			return false
		}
	}
	return true
}

func (c *check) setDebit(debit decimal.Decimal) {
	if debit.IsNegative() {
		c.res.NetCredit = debit.Neg().InexactFloat64()
		return
	}
	c.res.NetDebit = debit.InexactFloat64()
}

func (c *check) setCredit(credit decimal.Decimal) {
	c.setDebit(credit.Neg())
}

func price(leg models.StrategyLeg) decimal.Decimal {
	return decimal.NewFromFloat(leg.Contract.LastPrice)
}

func strike(leg models.StrategyLeg) decimal.Decimal {
	return decimal.NewFromFloat(leg.Contract.Strike)
}

func qty(leg models.StrategyLeg) decimal.Decimal {
	return decimal.NewFromInt(int64(leg.Quantity))
}

// cash scales a per-share amount to dollars for q contracts.
func cash(perShare, q decimal.Decimal) decimal.Decimal {
	return perShare.Mul(q).Mul(multiplier)
}

func bounded(d decimal.Decimal) *models.Bound {
	b := models.Bounded(d.InexactFloat64())
	return &b
}

func unlimited() *models.Bound {
	b := models.Unlimited()
	return &b
}
