package ingest

import (
	"strings"

	rag "github.com/asedra/arketic-rag"
)

func isBlank(s string) bool { return strings.TrimSpace(s) == "" }

func containsSep(s, sep string) bool { return strings.Contains(s, sep) }

// splitSpans splits the region sp of src on sep, keeping each separator
// attached to the fragment it terminates. Fragment spans are contiguous and
// cover sp exactly, which is what makes offset reconstruction possible.
func splitSpans(src string, sp span, sep string) []span {
	if sep == "" {
		return []span{sp}
	}
	var out []span
	start := sp.start
	for start < sp.end {
		idx := strings.Index(src[start:sp.end], sep)
		if idx < 0 {
			out = append(out, span{start, sp.end})
			break
		}
		end := start + idx + len(sep)
		out = append(out, span{start, end})
		start = end
	}
	if len(out) == 0 {
		out = []span{sp}
	}
	return out
}

// mergeBlankSpans folds whitespace-only fragments into the preceding
// fragment (or the following one at the start) so no chunk is ever blank.
func mergeBlankSpans(src string, spans []span) []span {
	var out []span
	for _, sp := range spans {
		if isBlank(sp.text(src)) && len(out) > 0 {
			out[len(out)-1].end = sp.end
			continue
		}
		if isBlank(sp.text(src)) && len(out) == 0 {
			// Leading whitespace attaches to the first real fragment.
			out = append(out, sp)
			continue
		}
		if len(out) == 1 && isBlank(out[0].text(src)) {
			out[0].end = sp.end
			continue
		}
		out = append(out, sp)
	}
	return out
}

// packSpans greedily merges adjacent spans into groups whose text measures
// at most maxSize. A single span already over maxSize forms its own group.
func packSpans(src string, spans []span, maxSize int, length LengthFunc) []span {
	var out []span
	var cur span
	curLen := 0
	open := false
	for _, sp := range spans {
		l := length(sp.text(src))
		if open && curLen+l <= maxSize {
			cur.end = sp.end
			curLen = length(cur.text(src))
			continue
		}
		if open {
			out = append(out, cur)
		}
		cur = sp
		curLen = l
		open = true
	}
	if open {
		out = append(out, cur)
	}
	return out
}

// forceSplitSpan splits a span that no separator can reduce, cutting at word
// boundaries into pieces of at most maxSize length units. Used as the escape
// hatch that keeps chunk sizes bounded for pathological inputs.
func forceSplitSpan(src string, sp span, maxSize int, length LengthFunc) []span {
	text := sp.text(src)
	var out []span
	start := 0
	for start < len(text) {
		end := advanceByLength(text, start, maxSize, length)
		if end <= start {
			end = start + 1
			for end < len(text) && !isRuneStart(text[end]) {
				end++
			}
		}
		out = append(out, span{sp.start + start, sp.start + end})
		start = end
	}
	if len(out) == 0 {
		out = []span{sp}
	}
	return out
}

// advanceByLength finds the largest word-aligned end position such that
// text[start:end] measures at most maxSize. Falls back to a mid-word cut
// when a single word exceeds the budget.
func advanceByLength(text string, start, maxSize int, length LengthFunc) int {
	if length(text[start:]) <= maxSize {
		return len(text)
	}
	end := start
	for {
		next := nextWordEnd(text, end)
		if next == end {
			break
		}
		if length(text[start:next]) > maxSize {
			break
		}
		end = next
	}
	if end == start {
		// Single word over budget: cut by bytes at a rune boundary.
		end = start + 1
		for end < len(text) && length(text[start:end+1]) <= maxSize {
			end++
		}
		for end > start+1 && !isRuneStart(text[end]) {
			end--
		}
	}
	return end
}

// nextWordEnd returns the position just past the next whitespace run
// following pos, so consumed words keep their trailing whitespace.
func nextWordEnd(text string, pos int) int {
	i := pos
	for i < len(text) && !isSpaceByte(text[i]) {
		i++
	}
	for i < len(text) && isSpaceByte(text[i]) {
		i++
	}
	return i
}

func isSpaceByte(b byte) bool {
	return b == ' ' || b == '\n' || b == '\t' || b == '\r'
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }

// suffixByLength returns the trailing portion of s measuring at most n
// length units, starting at a word boundary. Used for fixed-size overlap.
func suffixByLength(s string, n int, length LengthFunc) string {
	if n <= 0 || s == "" {
		return ""
	}
	if length(s) <= n {
		return s
	}
	// Walk word starts from the back until the suffix fits.
	i := len(s)
	best := ""
	for i > 0 {
		j := prevWordStart(s, i)
		if j == i {
			break
		}
		if length(s[j:]) > n {
			break
		}
		best = s[j:]
		i = j
	}
	return best
}

// prevWordStart returns the start of the word whose run of trailing
// whitespace ends at pos.
func prevWordStart(s string, pos int) int {
	i := pos
	for i > 0 && isSpaceByte(s[i-1]) {
		i--
	}
	for i > 0 && !isSpaceByte(s[i-1]) {
		i--
	}
	return i
}

// flagChunkSize sets advisory size flags and logs them. Oversized and
// undersized chunks are kept; the flags exist so callers can audit strategy
// tuning without re-measuring every chunk.
func flagChunkSize(c *rag.Chunk, cfg chunkerConfig) {
	over := c.Size > cfg.maxSize+cfg.maxSize/5
	under := c.Size > 0 && c.Size < cfg.maxSize*3/10
	if !over && !under {
		return
	}
	if c.Meta == nil {
		c.Meta = &rag.ChunkMeta{}
	}
	c.Meta.Oversized = over
	c.Meta.Undersized = under
	if over {
		cfg.logger.Warn("chunk exceeds size ceiling", "size", c.Size, "max", cfg.maxSize, "strategy", c.Strategy)
	}
	if under {
		cfg.logger.Debug("chunk below 30% of target size", "size", c.Size, "target", cfg.maxSize, "strategy", c.Strategy)
	}
}
