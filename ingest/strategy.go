package ingest

import "fmt"

// Strategy selects a chunking algorithm. The zero value is StrategyRecursive,
// the general-purpose default.
type Strategy int

const (
	// StrategyRecursive splits on separators coarsest-first, descending a
	// level for fragments that do not fit. The default.
	StrategyRecursive Strategy = iota
	// StrategyFixed packs separator fragments into fixed-size chunks with
	// overlap carried between neighbors.
	StrategyFixed
	// StrategySemantic groups sentences by embedding similarity. Requires
	// an embedding function.
	StrategySemantic
)

// String returns the strategy tag stored on chunks and used in config files.
func (s Strategy) String() string {
	switch s {
	case StrategyRecursive:
		return "recursive"
	case StrategyFixed:
		return "fixed-size"
	case StrategySemantic:
		return "semantic"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// ParseStrategy converts a strategy tag back to its Strategy value.
func ParseStrategy(s string) (Strategy, error) {
	switch s {
	case "recursive", "":
		return StrategyRecursive, nil
	case "fixed-size", "fixed":
		return StrategyFixed, nil
	case "semantic":
		return StrategySemantic, nil
	default:
		return 0, fmt.Errorf("ingest: unknown chunking strategy %q", s)
	}
}

// NewChunker constructs the chunker for a strategy. The embed function is
// required for StrategySemantic and ignored otherwise.
func NewChunker(strategy Strategy, embed EmbedFunc, opts ...ChunkerOption) (Chunker, error) {
	switch strategy {
	case StrategyRecursive:
		return NewRecursiveChunker(opts...)
	case StrategyFixed:
		return NewFixedChunker(opts...)
	case StrategySemantic:
		return NewSemanticChunker(embed, opts...)
	default:
		return nil, fmt.Errorf("ingest: unknown chunking strategy %d", strategy)
	}
}
