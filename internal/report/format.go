package report

import (
	"fmt"
	"strconv"
	"strings"
)

// Scale breakpoints for Chinese numeric units.
const (
	yiScale  = 1e8 // 亿 (hundred million)
	wanScale = 1e4 // 万 (ten thousand)
)

// formatNumber renders a provider cell as human-readable Chinese financial
// notation: 亿 for hundreds of millions, 万 for tens of thousands, thousands
// separators otherwise. Missing values render as "N/A" instead of failing,
// since provider rows routinely carry nulls.
func formatNumber(v any) string {
	if v == nil {
		return "N/A"
	}
	f, ok := v.(float64)
	if !ok {
		return "N/A"
	}

	abs := f
	if abs < 0 {
		abs = -abs
	}

	switch {
	case abs >= yiScale:
		return fmt.Sprintf("%.2f亿", f/yiScale)
	case abs >= wanScale:
		return fmt.Sprintf("%.2f万", f/wanScale)
	default:
		return groupThousands(f)
	}
}

// groupThousands renders at most 2 decimal places with comma separators,
// trimming trailing zeros ("1,234.5" not "1,234.50").
func groupThousands(f float64) string {
	s := strconv.FormatFloat(f, 'f', 2, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")

	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}

	intPart := s
	fracPart := ""
	if dot := strings.IndexByte(s, '.'); dot >= 0 {
		intPart, fracPart = s[:dot], s[dot:]
	}

	var sb strings.Builder
	for i, digit := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			sb.WriteByte(',')
		}
		sb.WriteRune(digit)
	}

	out := sb.String() + fracPart
	if neg {
		out = "-" + out
	}
	return out
}

// formatPercent renders a ratio (0.23 → "23.00") as a percentage figure
// without the sign, or "N/A" when the cell is missing.
func formatPercent(v any) string {
	f, ok := v.(float64)
	if v == nil || !ok {
		return "N/A"
	}
	return fmt.Sprintf("%.2f", f*100)
}
