package negotiation

import "testing"

func TestEvaluateAcceptsAtOrBelowThreshold(t *testing.T) {
	d := Evaluate(1000, 700, 650)
	if d.Kind != DecideAccept {
		t.Fatalf("expected %s, got %s", DecideAccept, d.Kind)
	}
	if d.Offer != 650 {
		t.Errorf("expected offer 650, got %v", d.Offer)
	}

	// Exactly at the threshold still accepts.
	if d := Evaluate(1000, 700, 700); d.Kind != DecideAccept {
		t.Errorf("offer equal to minAcceptable should accept, got %s", d.Kind)
	}
}

func TestEvaluateCountersAtMidpoint(t *testing.T) {
	d := Evaluate(1000, 700, 800)
	if d.Kind != DecideNegotiate {
		t.Fatalf("expected %s, got %s", DecideNegotiate, d.Kind)
	}
	if d.Counter != 750 {
		t.Errorf("expected counter 750, got %v", d.Counter)
	}
	if d.Offer != 800 {
		t.Errorf("expected offer 800, got %v", d.Offer)
	}
}

func TestEvaluateBudgetCeilingNegotiatesNotAccepts(t *testing.T) {
	d := Evaluate(1000, 700, 1000)
	if d.Kind != DecideNegotiate {
		t.Fatalf("offer equal to maxPrice must negotiate, got %s", d.Kind)
	}
	if d.Counter != 850 {
		t.Errorf("expected counter 850, got %v", d.Counter)
	}
}

func TestEvaluateRejectsOverBudget(t *testing.T) {
	d := Evaluate(1000, 700, 1500)
	if d.Kind != DecideRejectHigh {
		t.Fatalf("expected %s, got %s", DecideRejectHigh, d.Kind)
	}
	// 1500 * 0.85 = 1275, capped at the budget.
	if d.Counter != 1000 {
		t.Errorf("expected counter capped at 1000, got %v", d.Counter)
	}
}

func TestEvaluateRejectCounterBelowCapWhenCloser(t *testing.T) {
	d := Evaluate(1000, 700, 1100)
	if d.Kind != DecideRejectHigh {
		t.Fatalf("expected %s, got %s", DecideRejectHigh, d.Kind)
	}
	// 1100 * 0.85 = 935, already under budget so no capping.
	if d.Counter != 935 {
		t.Errorf("expected counter 935, got %v", d.Counter)
	}
}

func TestEvaluateCounterNeverExceedsQuote(t *testing.T) {
	// Midpoint of 701 and 700 rounds up to 701; the clamp keeps the counter
	// at or under the provider's own quote.
	d := Evaluate(1000, 700, 701)
	if d.Kind != DecideNegotiate {
		t.Fatalf("expected %s, got %s", DecideNegotiate, d.Kind)
	}
	if d.Counter > d.Offer {
		t.Errorf("counter %v exceeds quote %v", d.Counter, d.Offer)
	}
	if d.Counter > 1000 {
		t.Errorf("counter %v exceeds budget", d.Counter)
	}
}

func TestEvaluateRoundsToWholeUnits(t *testing.T) {
	d := Evaluate(1000, 700, 799)
	if d.Counter != float64(int64(d.Counter)) {
		t.Errorf("counter %v is not a whole amount", d.Counter)
	}

	d = Evaluate(1000, 700, 1333)
	if d.Counter != float64(int64(d.Counter)) {
		t.Errorf("counter %v is not a whole amount", d.Counter)
	}
}

func TestEvaluateMessage(t *testing.T) {
	d := EvaluateMessage(1000, 700, "I can do it for ₹800")
	if d.Kind != DecideNegotiate || d.Offer != 800 {
		t.Errorf("expected negotiate at 800, got %s at %v", d.Kind, d.Offer)
	}

	d = EvaluateMessage(1000, 700, "let me check with my brother")
	if d.Kind != DecideNoPrice {
		t.Errorf("expected %s, got %s", DecideNoPrice, d.Kind)
	}
	if d.Offer != 0 || d.Counter != 0 {
		t.Errorf("no-price decision must not carry amounts, got %+v", d)
	}
}
