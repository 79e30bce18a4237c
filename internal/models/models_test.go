package models

import (
	"encoding/json"
	"math"
	"testing"
	"time"
)

func TestBound(t *testing.T) {
	if b := Bounded(150); b.Float64() != 150 || b.String() != "150.00" {
		t.Errorf("Bounded(150) = %v / %q", b.Float64(), b.String())
	}
	if u := Unlimited(); !math.IsInf(u.Float64(), 1) || u.String() != "unlimited" {
		t.Errorf("Unlimited() = %v / %q", u.Float64(), u.String())
	}

	raw, err := json.Marshal(StrategyPayoff{MaxProfit: Unlimited(), MaxLoss: Bounded(350)})
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded["max_profit"] != "unlimited" {
		t.Errorf("max_profit = %v", decoded["max_profit"])
	}
	if decoded["max_loss"] != 350.0 {
		t.Errorf("max_loss = %v", decoded["max_loss"])
	}
}

func TestParseContractType(t *testing.T) {
	tests := []struct {
		in      string
		want    ContractType
		wantErr bool
	}{
		{"call", Call, false},
		{"CE", Call, false},
		{" Put ", Put, false},
		{"pe", Put, false},
		{"straddle", "", true},
	}
	for _, tt := range tests {
		got, err := ParseContractType(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseContractType(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestParseAction(t *testing.T) {
	for in, want := range map[string]Action{"buy": Buy, "LONG": Buy, "sell": Sell, "s": Sell} {
		got, err := ParseAction(in)
		if err != nil || got != want {
			t.Errorf("ParseAction(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseAction("hold"); err == nil {
		t.Error("expected error for unknown action")
	}
}

func TestParseExpiration(t *testing.T) {
	got, err := ParseExpiration("2026-12-18")
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(time.Date(2026, 12, 18, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("ParseExpiration = %v", got)
	}
	if _, err := ParseExpiration("18/12/2026"); err == nil {
		t.Error("expected error for non-ISO date")
	}
}

func TestOptionContract(t *testing.T) {
	call := OptionContract{UnderlyingTicker: "SPY", Strike: 100, Type: Call, Expiration: time.Date(2026, 12, 18, 0, 0, 0, 0, time.UTC)}
	put := call
	put.Type = Put

	if call.Intrinsic(110) != 10 || call.Intrinsic(90) != 0 {
		t.Error("call intrinsic wrong")
	}
	if put.Intrinsic(90) != 10 || put.Intrinsic(110) != 0 {
		t.Error("put intrinsic wrong")
	}
	if !call.IsIlliquid() {
		t.Error("zero volume and open interest should be illiquid")
	}
	if call.Label() != "SPY 2026-12-18 100.00 CALL" {
		t.Errorf("Label = %q", call.Label())
	}
	if err := call.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}

	bad := call
	bad.Strike = 0
	if err := bad.Validate(); err == nil {
		t.Error("expected error for zero strike")
	}
	bad = call
	bad.ImpliedVolatility = -0.1
	if err := bad.Validate(); err == nil {
		t.Error("expected error for negative IV")
	}
}

func TestLegSignAndTradeWin(t *testing.T) {
	if (StrategyLeg{Action: Buy}).Sign() != 1 || (StrategyLeg{Action: Sell}).Sign() != -1 {
		t.Error("leg sign convention broken")
	}
	if !(Trade{PnL: 10}).IsWin() || (Trade{PnL: 0}).IsWin() {
		t.Error("IsWin should require positive P&L")
	}
}
