package scenario

import (
	"fmt"
	"io"
	"text/tabwriter"
)

// WriteReport prints a summary table of results, one row per scenario,
// mirroring the column layout of original_source/code/protocole.py's
// __main__ summary printout.
func WriteReport(w io.Writer, results []Result) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SCENARIO\tSUCCESS\tSENT\tRETRANS\tACKS\tDURATION")
	for _, r := range results {
		fmt.Fprintf(tw, "%s\t%v\t%d\t%d\t%d\t%s\n", r.Name, r.Success, r.Sent, r.Retransmitted, r.AcksReceived, r.Duration)
	}
	tw.Flush()
}
