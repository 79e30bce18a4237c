package strategy

import (
	"github.com/shopspring/decimal"

	"optionsim/internal/models"
)

// single returns the only leg, warning when it does not have the expected
// right and side. A mismatched leg still reports its net premium but no
// closed-form profit or loss.
func (c *check) single(t models.ContractType, a models.Action) (models.StrategyLeg, bool) {
	leg := c.legs[0]
	if leg.Contract.Type == t && leg.Action == a {
		return leg, true
	}
	c.res.AddWarning("%s expects a %s %s, got a %s %s", c.res.StrategyName, a, t, leg.Action, leg.Contract.Type)
	c.setDebit(cash(price(leg).Mul(decimal.NewFromFloat(leg.Sign())), qty(leg)))
	return leg, false
}

func longCall(c *check) {
	leg, ok := c.single(models.Call, models.Buy)
	if !ok {
		return
	}
	debit := cash(price(leg), qty(leg))
	c.setDebit(debit)
	c.res.MaxProfit = unlimited()
	c.res.MaxLoss = bounded(debit)
	c.res.BreakEvenPoints = []float64{strike(leg).Add(price(leg)).InexactFloat64()}
}

func longPut(c *check) {
	leg, ok := c.single(models.Put, models.Buy)
	if !ok {
		return
	}
	debit := cash(price(leg), qty(leg))
	perShare := strike(leg).Sub(price(leg))
	c.setDebit(debit)
	c.res.MaxProfit = bounded(cash(perShare, qty(leg)))
	c.res.MaxLoss = bounded(debit)
	c.res.BreakEvenPoints = []float64{perShare.InexactFloat64()}
	if !perShare.IsPositive() {
		c.res.AddWarning("premium exceeds strike; no profit potential")
	}
}

func coveredCall(c *check) {
	leg, ok := c.single(models.Call, models.Sell)
	if !ok {
		return
	}
	c.setCredit(cash(price(leg), qty(leg)))
	c.res.AddWarning("max profit and loss depend on the cost basis of the %d shares held", leg.Quantity*int(models.SharesPerContract))
}

func cashSecuredPut(c *check) {
	leg, ok := c.single(models.Put, models.Sell)
	if !ok {
		return
	}
	credit := cash(price(leg), qty(leg))
	perShare := strike(leg).Sub(price(leg))
	c.setCredit(credit)
	c.res.MaxProfit = bounded(credit)
	c.res.MaxLoss = bounded(cash(perShare, qty(leg)))
	c.res.BreakEvenPoints = []float64{perShare.InexactFloat64()}
}

// vertical validates the shared shape of two-leg spreads and returns the
// bought and sold legs.
func (c *check) vertical(t models.ContractType) (buy, sell models.StrategyLeg, ok bool) {
	if !c.requireType(t) || !c.requireEqualQuantities() {
		return buy, sell, false
	}
	return c.split()
}

func bullCallSpread(c *check) {
	buy, sell, ok := c.vertical(models.Call)
	if !ok {
		return
	}
	if buy.Contract.Strike >= sell.Contract.Strike {
		c.res.AddError("bought call strike %.2f must be below sold call strike %.2f", buy.Contract.Strike, sell.Contract.Strike)
		return
	}
	debitSpread(c, buy, sell, strike(sell).Sub(strike(buy)), strike(buy).Add(price(buy).Sub(price(sell))))
}

func bearPutSpread(c *check) {
	buy, sell, ok := c.vertical(models.Put)
	if !ok {
		return
	}
	if buy.Contract.Strike <= sell.Contract.Strike {
		c.res.AddError("bought put strike %.2f must be above sold put strike %.2f", buy.Contract.Strike, sell.Contract.Strike)
		return
	}
	debitSpread(c, buy, sell, strike(buy).Sub(strike(sell)), strike(buy).Sub(price(buy).Sub(price(sell))))
}

func debitSpread(c *check, buy, sell models.StrategyLeg, width, breakEven decimal.Decimal) {
	q := qty(buy)
	debit := cash(price(buy).Sub(price(sell)), q)
	maxProfit := cash(width, q).Sub(debit)

	c.setDebit(debit)
	c.res.MaxProfit = bounded(maxProfit)
	c.res.MaxLoss = bounded(debit)
	c.res.BreakEvenPoints = []float64{breakEven.InexactFloat64()}

	if !maxProfit.IsPositive() {
		c.res.AddWarning("debit of %s leaves no profit potential", debit.StringFixed(2))
	}
	if !debit.IsPositive() {
		c.res.AddWarning("debit spread prices for a credit; check leg premiums")
	}
}

func bearCallSpread(c *check) {
	buy, sell, ok := c.vertical(models.Call)
	if !ok {
		return
	}
	if sell.Contract.Strike >= buy.Contract.Strike {
		c.res.AddError("sold call strike %.2f must be below bought call strike %.2f", sell.Contract.Strike, buy.Contract.Strike)
		return
	}
	creditPerShare := price(sell).Sub(price(buy))
	creditSpread(c, buy, sell, strike(buy).Sub(strike(sell)), strike(sell).Add(creditPerShare))
}

func bullPutSpread(c *check) {
	buy, sell, ok := c.vertical(models.Put)
	if !ok {
		return
	}
	if sell.Contract.Strike <= buy.Contract.Strike {
		c.res.AddError("sold put strike %.2f must be above bought put strike %.2f", sell.Contract.Strike, buy.Contract.Strike)
		return
	}
	creditPerShare := price(sell).Sub(price(buy))
	creditSpread(c, buy, sell, strike(sell).Sub(strike(buy)), strike(sell).Sub(creditPerShare))
}

func creditSpread(c *check, buy, sell models.StrategyLeg, width, breakEven decimal.Decimal) {
	q := qty(sell)
	credit := cash(price(sell).Sub(price(buy)), q)

	c.setCredit(credit)
	c.res.MaxProfit = bounded(credit)
	c.res.MaxLoss = bounded(cash(width, q).Sub(credit))
	c.res.BreakEvenPoints = []float64{breakEven.InexactFloat64()}

	if !credit.IsPositive() {
		c.res.AddWarning("credit spread collects no net credit")
	}
}

// pair returns the call and put of a two-leg long volatility position.
func (c *check) pair() (call, put models.StrategyLeg, ok bool) {
	if !c.requireAllBuys() || !c.requireEqualQuantities() {
		return call, put, false
	}
	calls, puts := c.byType()
	if len(calls) != 1 || len(puts) != 1 {
		c.res.AddError("%s requires one call and one put, got %d calls and %d puts", c.res.StrategyName, len(calls), len(puts))
		return call, put, false
	}
	return calls[0], puts[0], true
}

func straddle(c *check) {
	call, put, ok := c.pair()
	if !ok {
		return
	}
	if call.Contract.Strike != put.Contract.Strike {
		c.res.AddError("straddle legs must share a strike: call %.2f, put %.2f", call.Contract.Strike, put.Contract.Strike)
		return
	}
	longVolatility(c, call, put)
}

func strangle(c *check) {
	call, put, ok := c.pair()
	if !ok {
		return
	}
	switch {
	case call.Contract.Strike < put.Contract.Strike:
		c.res.AddError("strangle call strike %.2f must be above put strike %.2f", call.Contract.Strike, put.Contract.Strike)
		return
	case call.Contract.Strike == put.Contract.Strike:
		c.res.AddWarning("call and put share strike %.2f; this is a straddle", call.Contract.Strike)
	}
	longVolatility(c, call, put)
}

func longVolatility(c *check, call, put models.StrategyLeg) {
	combined := price(call).Add(price(put))
	debit := cash(combined, qty(call))

	c.setDebit(debit)
	c.res.MaxProfit = unlimited()
	c.res.MaxLoss = bounded(debit)
	c.res.BreakEvenPoints = []float64{
		strike(put).Sub(combined).InexactFloat64(),
		strike(call).Add(combined).InexactFloat64(),
	}
}

func ironCondor(c *check) {
	calls, puts := c.byType()
	if len(calls) != 2 || len(puts) != 2 {
		c.res.AddError("iron condor requires two puts and two calls, got %d puts and %d calls", len(puts), len(calls))
		return
	}
	if !c.requireEqualQuantities() {
		return
	}
	lowPut, highPut := puts[0], puts[1]
	lowCall, highCall := calls[0], calls[1]

	if lowPut.Action != models.Buy || highPut.Action != models.Sell {
		c.res.AddError("put spread must buy the lower strike and sell the higher strike")
	}
	if lowCall.Action != models.Sell || highCall.Action != models.Buy {
		c.res.AddError("call spread must sell the lower strike and buy the higher strike")
	}
	if lowPut.Contract.Strike >= highPut.Contract.Strike || lowCall.Contract.Strike >= highCall.Contract.Strike {
		c.res.AddError("each spread needs two distinct strikes")
	}
	if highPut.Contract.Strike >= lowCall.Contract.Strike {
		c.res.AddError("put spread (%.2f) must sit entirely below call spread (%.2f)", highPut.Contract.Strike, lowCall.Contract.Strike)
	}
	if len(c.res.Errors) > 0 {
		return
	}

	q := qty(lowPut)
	creditPerShare := price(highPut).Sub(price(lowPut)).Add(price(lowCall)).Sub(price(highCall))
	credit := cash(creditPerShare, q)
	width := decimal.Max(strike(highPut).Sub(strike(lowPut)), strike(highCall).Sub(strike(lowCall)))

	c.setCredit(credit)
	c.res.MaxProfit = bounded(credit)
	c.res.MaxLoss = bounded(cash(width, q).Sub(credit))
	c.res.BreakEvenPoints = []float64{
		strike(highPut).Sub(creditPerShare).InexactFloat64(),
		strike(lowCall).Add(creditPerShare).InexactFloat64(),
	}
	if !credit.IsPositive() {
		c.res.AddWarning("iron condor collects no net credit")
	}
}

func butterfly(c *check) {
	t := c.legs[0].Contract.Type
	if !c.requireType(t) {
		return
	}
	strikes := make(map[float64]bool)
	for _, leg := range c.legs {
		strikes[leg.Contract.Strike] = true
	}
	if len(strikes) != 3 {
		c.res.AddError("butterfly requires exactly 3 distinct strikes, got %d", len(strikes))
		return
	}

	net := decimal.Zero
	for _, leg := range c.legs {
		net = net.Add(cash(price(leg).Mul(decimal.NewFromFloat(leg.Sign())), qty(leg)))
	}
	c.setDebit(net)
	c.res.MaxProfit = bounded(net.Abs())
	c.res.MaxLoss = bounded(net.Abs())
	c.res.AddWarning("butterfly max profit and loss are approximated by the net premium; use the payoff curve for exact figures")
}
