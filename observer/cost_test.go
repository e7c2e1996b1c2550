package observer

import "testing"

func TestCostCalculator(t *testing.T) {
	c := NewCostCalculator(nil)

	got := c.Calculate("gpt-4o-mini", 1_000_000, 1_000_000)
	want := 0.15 + 0.60
	if diff := got - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("Calculate = %v, want %v", got, want)
	}

	if got := c.Calculate("unknown-model", 1000, 1000); got != 0 {
		t.Errorf("unknown model cost = %v, want 0", got)
	}
}

func TestCostCalculatorOverrides(t *testing.T) {
	c := NewCostCalculator(map[string]ModelPricing{
		"gpt-4o-mini": {1.00, 2.00},
		"my-model":    {0.50, 0.50},
	})
	if got := c.Calculate("gpt-4o-mini", 1_000_000, 0); got != 1.00 {
		t.Errorf("override not applied: %v", got)
	}
	if got := c.Calculate("my-model", 2_000_000, 0); got != 1.00 {
		t.Errorf("custom model cost = %v", got)
	}
	if got := c.Calculate("gpt-4o", 1_000_000, 0); got != 2.50 {
		t.Errorf("default pricing lost: %v", got)
	}
}
