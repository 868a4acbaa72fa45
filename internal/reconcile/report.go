package reconcile

import (
	"fmt"
	"io"
	"strings"
)

// PrintReport writes a formatted mapping report to w.
func PrintReport(w io.Writer, report *MappingReport) {
	if report == nil {
		fmt.Fprintln(w, "No mapping data available")
		return
	}

	fmt.Fprintln(w, strings.Repeat("=", 72))
	fmt.Fprintln(w, "                    KEYPAD LAYOUT RECONCILIATION")
	fmt.Fprintln(w, strings.Repeat("=", 72))
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Session:        %s\n", report.SessionID)
	fmt.Fprintf(w, "Offset Policy:  %s (assumed, not transmitted)\n", report.OffsetPolicy)
	fmt.Fprintf(w, "Page Height:    %d px\n", report.PageHeight)
	fmt.Fprintf(w, "Pages:          %d\n", len(report.PageOffsets))
	for _, p := range report.PageOffsets {
		fmt.Fprintf(w, "  %-12s offset y=%d\n", p.LayoutID, p.OffsetY)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, strings.Repeat("-", 72))
	fmt.Fprintf(w, "MAPPED REGIONS (%d)\n", len(report.Regions))
	fmt.Fprintln(w, strings.Repeat("-", 72))
	for _, r := range report.Regions {
		fmt.Fprintf(w, "  %s  %-10s page=%-10s %s\n",
			r.Token, r.Mask.Describe(), r.LayoutID, r.AbsoluteSourceBox)
	}
	fmt.Fprintln(w)

	if len(report.OutOfBounds) > 0 {
		fmt.Fprintln(w, strings.Repeat("-", 72))
		fmt.Fprintf(w, "GEOMETRY OUT OF BOUNDS (%d, excluded from mapping)\n", len(report.OutOfBounds))
		fmt.Fprintln(w, strings.Repeat("-", 72))
		for _, o := range report.OutOfBounds {
			fmt.Fprintf(w, "  %s  page=%s %s box %s\n", o.Token, o.LayoutID, o.Which, o.Box)
		}
		fmt.Fprintln(w)
	}

	if len(report.Conflicts) > 0 {
		fmt.Fprintln(w, strings.Repeat("-", 72))
		fmt.Fprintf(w, "!!! TOKEN CLASS CONFLICTS (%d)\n", len(report.Conflicts))
		fmt.Fprintln(w, strings.Repeat("-", 72))
		for _, c := range report.Conflicts {
			var names []string
			for _, m := range c.Classes {
				names = append(names, m.Describe())
			}
			fmt.Fprintf(w, "  %s  seen as: %s\n", c.Token, strings.Join(names, ", "))
		}
		fmt.Fprintln(w, "Conflicting tokens are excluded from the candidate mapping.")
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, strings.Repeat("=", 72))
	fmt.Fprintf(w, "CANDIDATE MAPPING: %d tokens classified, %d conflicted, %d out of bounds\n",
		len(report.Classes), len(report.Conflicts), len(report.OutOfBounds))
	fmt.Fprintln(w, strings.Repeat("=", 72))
}
