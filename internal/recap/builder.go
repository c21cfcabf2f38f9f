// Package recap aggregates a day's committed activities into a
// human-approved summary for the public channel.
package recap

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/amirulm/aidlog/internal/domain/activity"
	"github.com/amirulm/aidlog/internal/parse"
	"github.com/amirulm/aidlog/internal/repository"
)

// TypeSummary aggregates one activity type.
type TypeSummary struct {
	Type activity.Type
	// Activities is the number of records of this type.
	Activities int
	// Reached sums the numeric counts.
	Reached int64
	// Unquantified counts records whose count stayed qualitative.
	Unquantified int
}

// Summary is one day's aggregated activity.
type Summary struct {
	Date   time.Time
	Total  int
	ByType []TypeSummary
}

// Build aggregates the records of the day containing ts, in ts's
// location.
func Build(ctx context.Context, repo repository.ActivityRepository, ts time.Time) (*Summary, error) {
	from := time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, ts.Location())
	to := from.Add(24 * time.Hour)

	recs, err := repo.ListBetween(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("listing day's activities: %w", err)
	}

	byType := make(map[activity.Type]*TypeSummary)
	var order []activity.Type
	for i := range recs {
		rec := &recs[i]
		ts, ok := byType[rec.Type]
		if !ok {
			ts = &TypeSummary{Type: rec.Type}
			byType[rec.Type] = ts
			order = append(order, rec.Type)
		}
		ts.Activities++
		addCount(ts, rec.Count)
	}

	summary := &Summary{Date: from, Total: len(recs)}
	for _, t := range order {
		summary.ByType = append(summary.ByType, *byType[t])
	}
	return summary, nil
}

// addCount folds one count into the summary, re-attempting numeric
// extraction on qualitative counts.
func addCount(ts *TypeSummary, c activity.Count) {
	switch {
	case c.Number != nil:
		ts.Reached += *c.Number
	case c.Text != "":
		if extracted := parse.Count(c.Text); extracted.Number != nil {
			ts.Reached += *extracted.Number
		} else {
			ts.Unquantified++
		}
	}
}

// Render formats a summary for the public channel.
func Render(s *Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 Daily recap — %s\n\n", s.Date.Format("2 Jan 2006"))
	if s.Total == 0 {
		b.WriteString("No activities were logged today.")
		return b.String()
	}

	fmt.Fprintf(&b, "%d activities logged.\n", s.Total)
	for _, ts := range s.ByType {
		fmt.Fprintf(&b, "• %s: %d", ts.Type, ts.Activities)
		if ts.Reached > 0 {
			fmt.Fprintf(&b, " (reached %d)", ts.Reached)
		}
		if ts.Unquantified > 0 {
			fmt.Fprintf(&b, " (+%d unquantified)", ts.Unquantified)
		}
		b.WriteByte('\n')
	}
	return b.String()
}
