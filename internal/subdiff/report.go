package subdiff

import (
	"fmt"
	"io"
	"strings"
)

// PrintReport writes a formatted diff report to w.
func PrintReport(w io.Writer, report *DiffReport) {
	if report == nil {
		fmt.Fprintln(w, "No diff data available")
		return
	}

	fmt.Fprintln(w, strings.Repeat("=", 72))
	fmt.Fprintln(w, "                    SUBMISSION FIELD DIFF")
	fmt.Fprintln(w, strings.Repeat("=", 72))
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Capture A:      %s\n", report.LabelA)
	fmt.Fprintf(w, "Capture B:      %s\n", report.LabelB)
	fmt.Fprintf(w, "Shared Fields:  %d\n", len(report.SharedFields))
	fmt.Fprintln(w)

	printFieldList(w, fmt.Sprintf("ONLY IN A (%s)", report.LabelA), report.OnlyInA)
	printFieldList(w, fmt.Sprintf("ONLY IN B (%s)", report.LabelB), report.OnlyInB)

	if len(report.Divergences) > 0 {
		fmt.Fprintln(w, strings.Repeat("-", 72))
		fmt.Fprintf(w, "!!! VALUE DIVERGENCES (%d, length-changing first)\n", len(report.Divergences))
		fmt.Fprintln(w, strings.Repeat("-", 72))
		for _, d := range report.Divergences {
			printDivergence(w, d)
		}
		fmt.Fprintln(w)
	}

	if len(report.ExpectedDivergences) > 0 {
		fmt.Fprintln(w, strings.Repeat("-", 72))
		fmt.Fprintf(w, "EXPECTED DIVERGENCES (%d, denylisted fields)\n", len(report.ExpectedDivergences))
		fmt.Fprintln(w, strings.Repeat("-", 72))
		for _, d := range report.ExpectedDivergences {
			printDivergence(w, d)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, strings.Repeat("=", 72))
	if len(report.Divergences) == 0 {
		fmt.Fprintln(w, "RESULT: no unexplained divergence between the two input methods")
	} else {
		fmt.Fprintf(w, "RESULT: %d unexplained divergent field(s) to investigate\n", len(report.Divergences))
	}
	fmt.Fprintln(w, strings.Repeat("=", 72))
}

func printFieldList(w io.Writer, title string, names []string) {
	if len(names) == 0 {
		return
	}
	fmt.Fprintln(w, strings.Repeat("-", 72))
	fmt.Fprintf(w, "%s: %d field(s)\n", title, len(names))
	fmt.Fprintln(w, strings.Repeat("-", 72))
	for _, name := range names {
		fmt.Fprintf(w, "  %s\n", name)
	}
	fmt.Fprintln(w)
}

func printDivergence(w io.Writer, d ValueDivergence) {
	fmt.Fprintf(w, "  %-20s len %d vs %d (delta %d)\n", d.Field, d.LengthA, d.LengthB, d.LengthDelta())
	fmt.Fprintf(w, "    A: %s\n", truncate(d.ValueA, 60))
	fmt.Fprintf(w, "    B: %s\n", truncate(d.ValueB, 60))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
