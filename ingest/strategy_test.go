package ingest

import (
	"context"
	"testing"
)

func TestStrategyString(t *testing.T) {
	tests := []struct {
		s    Strategy
		want string
	}{
		{StrategyRecursive, "recursive"},
		{StrategyFixed, "fixed-size"},
		{StrategySemantic, "semantic"},
		{Strategy(42), "Strategy(42)"},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		in   string
		want Strategy
	}{
		{"recursive", StrategyRecursive},
		{"", StrategyRecursive},
		{"fixed-size", StrategyFixed},
		{"fixed", StrategyFixed},
		{"semantic", StrategySemantic},
	}
	for _, tt := range tests {
		got, err := ParseStrategy(tt.in)
		if err != nil {
			t.Errorf("ParseStrategy(%q) error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseStrategy(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if _, err := ParseStrategy("telepathic"); err == nil {
		t.Error("expected error for unknown strategy")
	}
}

func TestNewChunkerDispatch(t *testing.T) {
	embed := func(context.Context, []string) ([][]float32, error) { return nil, nil }

	c, err := NewChunker(StrategyRecursive, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := c.(*RecursiveChunker); !ok {
		t.Errorf("got %T, want *RecursiveChunker", c)
	}

	c, err = NewChunker(StrategyFixed, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := c.(*FixedChunker); !ok {
		t.Errorf("got %T, want *FixedChunker", c)
	}

	c, err = NewChunker(StrategySemantic, embed)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := c.(*SemanticChunker); !ok {
		t.Errorf("got %T, want *SemanticChunker", c)
	}

	if _, err := NewChunker(StrategySemantic, nil); err == nil {
		t.Error("expected error for semantic strategy without embed function")
	}
	if _, err := NewChunker(Strategy(9), nil); err == nil {
		t.Error("expected error for unknown strategy")
	}
}
