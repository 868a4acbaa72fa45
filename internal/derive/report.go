package derive

import (
	"fmt"
	"io"
	"strings"
)

// PrintReport writes a formatted derivation result to w.
func PrintReport(w io.Writer, result *Result) {
	if result == nil {
		fmt.Fprintln(w, "No derivation data available")
		return
	}

	fmt.Fprintln(w, strings.Repeat("=", 72))
	fmt.Fprintln(w, "                    DERIVATION HYPOTHESIS TEST")
	fmt.Fprintln(w, strings.Repeat("=", 72))
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Field:          %s\n", result.Field)
	fmt.Fprintf(w, "Segment Width:  %d\n", result.SegmentWidth)
	fmt.Fprintf(w, "Positions:      %d\n", len(result.Positions))
	fmt.Fprintln(w)

	fmt.Fprintln(w, strings.Repeat("-", 72))
	fmt.Fprintln(w, "PER-POSITION RESULTS")
	fmt.Fprintln(w, strings.Repeat("-", 72))
	for _, p := range result.Positions {
		switch p.Status {
		case StatusMatched:
			fmt.Fprintf(w, "  pos %2d  %s  <- %s\n", p.Position, shortSegment(p.Segment), p.Matched)
		case StatusDegenerate:
			fmt.Fprintf(w, "  pos %2d  %s  <- %s\n", p.Position, shortSegment(p.Segment), p.Matched)
			fmt.Fprintf(w, "          ! also matched: %s (overlapping formulas, prune the set)\n",
				strings.Join(p.Degenerate, ", "))
		default:
			fmt.Fprintf(w, "  pos %2d  %s  UNRESOLVED\n", p.Position, shortSegment(p.Segment))
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, strings.Repeat("=", 72))
	if result.FullyResolved {
		fmt.Fprintln(w, "RESULT: FULLY RESOLVED - the opaque field is reproducible from")
		fmt.Fprintln(w, "known session material; the scheme's secrecy guarantee is broken")
	} else {
		matched := 0
		for _, p := range result.Positions {
			if p.Status == StatusMatched {
				matched++
			}
		}
		fmt.Fprintf(w, "RESULT: %d/%d positions resolved\n", matched, len(result.Positions))
	}
	fmt.Fprintln(w, strings.Repeat("=", 72))
}

func shortSegment(s string) string {
	if len(s) <= 16 {
		return s
	}
	return s[:8] + ".." + s[len(s)-6:]
}
