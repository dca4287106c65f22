// Package layout word-wraps text into a bounded block of display lines.
package layout

import (
	"strings"
	"unicode/utf8"
)

// Ellipsis marks truncated content unless the metrics supply their own.
const Ellipsis = "…"

// Metrics measures rendered text in pixels.
type Metrics interface {
	Width(s string) int
	LineHeight() int
}

// EllipsisMetrics is implemented by fonts that lack the "…" glyph.
type EllipsisMetrics interface {
	Ellipsis() string
}

// Monospace gives every rune the same advance.
type Monospace struct {
	Advance int
	Height  int
}

func (m Monospace) Width(s string) int { return utf8.RuneCountInString(s) * m.Advance }
func (m Monospace) LineHeight() int    { return m.Height }

func ellipsisFor(m Metrics) string {
	if em, ok := m.(EllipsisMetrics); ok {
		return em.Ellipsis()
	}
	return Ellipsis
}

// MaxLines is the line budget for a block maxHeight pixels tall, at least 1.
func MaxLines(m Metrics, maxHeight int) int {
	lh := m.LineHeight()
	if lh <= 0 {
		lh = 1
	}
	return max(1, maxHeight/lh)
}

// Wrap splits text into at most MaxLines lines, none wider than maxWidth.
//
// Paragraphs (explicit line breaks) are packed greedily word by word. A word
// that is wider than maxWidth on its own is cut and ended with an ellipsis on
// a line of its own. When the budget runs out while content remains, the last
// line is re-cut to end in an ellipsis; a block that fits exactly gets none.
func Wrap(text string, m Metrics, maxWidth, maxHeight int) []string {
	if text == "" || maxWidth <= 0 || maxHeight <= 0 {
		return nil
	}
	maxLines := MaxLines(m, maxHeight)
	ell := ellipsisFor(m)

	paragraphs := splitParagraphs(text)
	out := make([]string, 0, maxLines)
	dropped := false

	for pi, para := range paragraphs {
		if len(out) >= maxLines {
			dropped = hasContent(paragraphs[pi:])
			break
		}

		words := strings.Fields(para)
		if len(words) == 0 {
			out = append(out, "")
			continue
		}

		line := ""
		for wi := 0; wi < len(words); wi++ {
			w := words[wi]
			candidate := w
			if line != "" {
				candidate = line + " " + w
			}
			if m.Width(candidate) <= maxWidth {
				line = candidate
				continue
			}

			if line == "" {
				out = append(out, truncate(w, m, maxWidth, ell))
			} else {
				out = append(out, line)
				wi-- // retry w on a fresh line
			}
			line = ""

			if len(out) >= maxLines {
				if wi+1 < len(words) {
					dropped = true
				}
				break
			}
		}
		if line != "" {
			out = append(out, line)
		}
	}

	if len(out) > maxLines {
		out = out[:maxLines]
		dropped = true
	}
	if dropped && len(out) > 0 {
		out[len(out)-1] = withEllipsis(out[len(out)-1], m, maxWidth, ell)
	}
	return out
}

// splitParagraphs splits on \r\n, \n or \r and drops trailing empty
// paragraphs, so "hi\n" is one line, not two.
func splitParagraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	paras := strings.Split(text, "\n")
	for len(paras) > 0 && paras[len(paras)-1] == "" {
		paras = paras[:len(paras)-1]
	}
	return paras
}

func hasContent(paras []string) bool {
	for _, p := range paras {
		if strings.TrimSpace(p) != "" {
			return true
		}
	}
	return false
}

// truncate returns s unchanged when it fits, otherwise the longest prefix
// that still fits with the ellipsis appended.
func truncate(s string, m Metrics, maxWidth int, ell string) string {
	if m.Width(s) <= maxWidth {
		return s
	}
	return withEllipsis(s, m, maxWidth, ell)
}

// withEllipsis always ends the result in ell, cutting s rune by rune until
// prefix+ell fits. If not even ell fits, the line is left empty.
func withEllipsis(s string, m Metrics, maxWidth int, ell string) string {
	if m.Width(ell) > maxWidth {
		return ""
	}
	var b strings.Builder
	for _, r := range s {
		next := b.String() + string(r)
		if m.Width(next+ell) > maxWidth {
			break
		}
		b.WriteRune(r)
	}
	return strings.TrimRight(b.String(), " ") + ell
}
