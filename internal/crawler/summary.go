package crawler

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/SYNC-360/kravet-scraper/internal/models"
)

// Summary writes the human-readable end-of-crawl report.
func Summary(w io.Writer, stats *models.CrawlStats) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "=== CRAWL SUMMARY ===")
	fmt.Fprintf(tw, "Session:\t%s\n", orDash(stats.SessionState))
	fmt.Fprintf(tw, "Scraped:\t%d\n", stats.Scraped)
	fmt.Fprintf(tw, "Saved:\t%d\n", stats.Saved)
	fmt.Fprintf(tw, "Errors:\t%d\n", stats.Errors)

	kinds := make([]string, 0, len(stats.ErrorsByKind))
	for kind := range stats.ErrorsByKind {
		if kind != KindPersistence {
			kinds = append(kinds, kind)
		}
	}
	sort.Strings(kinds)
	for _, kind := range kinds {
		fmt.Fprintf(tw, "  %s:\t%d\n", kind, stats.ErrorsByKind[kind])
	}
	if n := stats.ErrorsByKind[KindPersistence]; n > 0 {
		fmt.Fprintf(tw, "Save failures:\t%d\n", n)
	}

	if !stats.FinishedAt.IsZero() {
		fmt.Fprintf(tw, "Duration:\t%s\n", stats.FinishedAt.Sub(stats.StartedAt).Round(time.Second))
	}

	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "BRAND\tSCRAPED\tSAVED\tERRORS")
	for _, b := range stats.Brands {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\n", b.Name, b.Scraped, b.Saved, b.Errors)
	}

	return tw.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
