package report

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// Sentence is the one-line forecast summary shown on the dashboard.
func (r *Report) Sentence() string {
	return fmt.Sprintf("The forecast for %s shows an estimated %d EVs by %s, reflecting a %.2f%% increase from the current total.",
		r.County, int64(r.Summary.Projected), r.Summary.Through.Format(dateLayout), r.Summary.GrowthPct)
}

// WriteMarkdown writes a summary report with the forecast table.
func (r *Report) WriteMarkdown(w io.Writer, generated time.Time) error {
	var b strings.Builder

	fmt.Fprintf(&b, "# EV Forecast Summary: %s\n\n", r.County)
	b.WriteString(r.Sentence())
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "- **Current EV Count**: %s\n", FormatCount(r.Summary.Current))
	fmt.Fprintf(&b, "- **Projected EV Count**: %s\n", FormatCount(r.Summary.Projected))
	fmt.Fprintf(&b, "- **Growth**: %.2f%%\n", r.Summary.GrowthPct)
	fmt.Fprintf(&b, "- **Horizon**: %d months\n", r.Summary.Horizon)

	b.WriteString("\n## Monthly Forecast\n\n")
	b.WriteString("| Date | Predicted EV Total | Cumulative | Monthly % Change |\n")
	b.WriteString("|------|--------------------|------------|------------------|\n")
	for _, p := range r.Forecast {
		change := "-"
		if p.ChangePct != nil {
			change = fmt.Sprintf("%.2f%%", *p.ChangePct)
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s |\n",
			p.Date.Format(dateLayout), FormatCount(float64(p.Predicted)), FormatCount(p.Cumulative), change)
	}

	fmt.Fprintf(&b, "\n---\n*Generated %s*\n", generated.Format("2 January 2006"))

	_, err := io.WriteString(w, b.String())
	return err
}
