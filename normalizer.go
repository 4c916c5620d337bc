package testforge

import (
	"fmt"
	"regexp"
	"strings"
)

// Segmentation boundaries: numbered list markers and sentence-final
// punctuation followed by a capital letter.
var (
	numberedItem     = regexp.MustCompile(`^[ \t]*(\d+)[.)][ \t]+`)
	sentenceBoundary = regexp.MustCompile(`[.!?][ \t]+[A-Z]`)
)

// NormalizeRequirements segments raw requirement text into ordered,
// addressable units. It is a pure function: deterministic, no side
// effects, and total for non-empty input (at least one unit is always
// produced). Blank or whitespace-only input fails with ErrEmptyInput.
//
// Segmentation policy: a numbered list item ("1." or "1)") becomes one
// unit keeping its number as the ID; other text is split into blocks at
// blank lines and further into sentences at sentence-final punctuation
// followed by a capital letter, with sequential fallback IDs R1, R2, ….
// Offsets index into the raw input so units trace back to their source.
func NormalizeRequirements(text string) ([]RequirementUnit, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: requirements text is blank", ErrEmptyInput)
	}

	var units []RequirementUnit
	seen := make(map[string]int)
	seq := 0

	for _, b := range splitBlocks(text) {
		if m := numberedItem.FindStringSubmatchIndex(b.text); m != nil {
			id := b.text[m[2]:m[3]]
			if u, ok := trimUnit(id, b.text[m[1]:], b.start+m[1]); ok {
				units = append(units, dedupeID(u, seen))
			}
			continue
		}
		for _, span := range splitSentences(b.text) {
			seq++
			id := fmt.Sprintf("R%d", seq)
			if u, ok := trimUnit(id, b.text[span[0]:span[1]], b.start+span[0]); ok {
				units = append(units, dedupeID(u, seen))
			} else {
				seq--
			}
		}
	}

	return units, nil
}

type block struct {
	start int
	text  string
}

// splitBlocks cuts the input into candidate blocks: blank lines end a
// block, and every numbered list marker starts a new one even without a
// preceding blank line.
func splitBlocks(text string) []block {
	var blocks []block
	var cur strings.Builder
	curStart := -1

	flush := func() {
		if curStart >= 0 && strings.TrimSpace(cur.String()) != "" {
			blocks = append(blocks, block{start: curStart, text: cur.String()})
		}
		cur.Reset()
		curStart = -1
	}

	offset := 0
	for offset <= len(text) {
		end := strings.IndexByte(text[offset:], '\n')
		var line string
		if end == -1 {
			line = text[offset:]
			end = len(text)
		} else {
			end = offset + end
			line = text[offset:end]
		}

		switch {
		case strings.TrimSpace(line) == "":
			flush()
		case numberedItem.MatchString(line):
			flush()
			curStart = offset
			cur.WriteString(line)
		default:
			if curStart < 0 {
				curStart = offset
			} else {
				cur.WriteByte('\n')
			}
			cur.WriteString(line)
		}

		offset = end + 1
		if end == len(text) {
			break
		}
	}
	flush()

	return blocks
}

// splitSentences returns [start,end) spans of sentences within s.
func splitSentences(s string) [][2]int {
	var spans [][2]int
	start := 0
	for _, m := range sentenceBoundary.FindAllStringIndex(s, -1) {
		// m[0] is the punctuation, m[1]-1 the capital opening the next
		// sentence.
		spans = append(spans, [2]int{start, m[0] + 1})
		start = m[1] - 1
	}
	spans = append(spans, [2]int{start, len(s)})
	return spans
}

// trimUnit strips surrounding whitespace, keeping offsets pointing at the
// trimmed span in the raw input. Blank spans yield no unit.
func trimUnit(id, raw string, base int) (RequirementUnit, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return RequirementUnit{}, false
	}
	lead := len(raw) - len(strings.TrimLeft(raw, " \t\r\n"))
	return RequirementUnit{
		ID:    id,
		Text:  trimmed,
		Start: base + lead,
		End:   base + lead + len(trimmed),
	}, true
}

// dedupeID keeps IDs unique within one run. A colliding ID gets a
// deterministic ordinal suffix, e.g. a second "1" becomes "1.2".
func dedupeID(u RequirementUnit, seen map[string]int) RequirementUnit {
	seen[u.ID]++
	if n := seen[u.ID]; n > 1 {
		u.ID = fmt.Sprintf("%s.%d", u.ID, n)
		seen[u.ID]++
	}
	return u
}
