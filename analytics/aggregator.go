// Package analytics derives bureau performance and SLA statistics from
// dispute records. Everything is a pure reduction: no side effects, and empty
// input yields zeros and empty slices rather than errors.
package analytics

import (
	"sort"
	"time"

	"creditflow/dispute"
)

// BureauStat summarizes outcomes for one bureau. SuccessRate is favorable
// outcomes over resolved disputes, where favorable means the item was deleted
// or corrected.
type BureauStat struct {
	Bureau      dispute.Bureau
	Total       int
	Resolved    int
	Favorable   int
	SuccessRate float64
}

func isFavorable(o *dispute.Outcome) bool {
	return o != nil && (o.Result == dispute.ResultDeleted || o.Result == dispute.ResultCorrected)
}

// BureauStats groups disputes by bureau. Disputes without a bureau are
// skipped; furnisher and validation disputes have none.
func BureauStats(disputes []dispute.Dispute) []BureauStat {
	byBureau := map[dispute.Bureau]*BureauStat{}
	for i := range disputes {
		d := &disputes[i]
		if d.Bureau == "" {
			continue
		}
		st, ok := byBureau[d.Bureau]
		if !ok {
			st = &BureauStat{Bureau: d.Bureau}
			byBureau[d.Bureau] = st
		}
		st.Total++
		if d.Outcome != nil {
			st.Resolved++
			if isFavorable(d.Outcome) {
				st.Favorable++
			}
		}
	}

	out := make([]BureauStat, 0, len(byBureau))
	for _, st := range byBureau {
		if st.Resolved > 0 {
			st.SuccessRate = float64(st.Favorable) / float64(st.Resolved)
		}
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Bureau < out[j].Bureau })
	return out
}

// AverageResolutionDays is the mean number of days between creation and the
// recorded outcome, over disputes that have one. Zero when none do.
func AverageResolutionDays(disputes []dispute.Dispute) float64 {
	var sum float64
	n := 0
	for i := range disputes {
		d := &disputes[i]
		if d.Outcome == nil || d.Outcome.RecordedAt.IsZero() || d.Outcome.RecordedAt.Before(d.CreatedAt) {
			continue
		}
		sum += d.Outcome.RecordedAt.Sub(d.CreatedAt).Hours() / 24
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// SLAWindow is one rolling lookback over recently filed disputes.
type SLAWindow struct {
	Days         int
	Filed        int
	Resolved     int
	Overdue      int
	ResolvedRate float64
}

var slaLookbacks = []int{30, 60, 90}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func isOverdue(d *dispute.Dispute, now time.Time) bool {
	return !d.Status.IsTerminal() && startOfDay(d.ResponseDeadline).Before(startOfDay(now))
}

// SLAWindows computes the rolling 30/60/90-day windows over filing dates.
func SLAWindows(disputes []dispute.Dispute, now time.Time) []SLAWindow {
	out := make([]SLAWindow, 0, len(slaLookbacks))
	for _, days := range slaLookbacks {
		w := SLAWindow{Days: days}
		cutoff := now.AddDate(0, 0, -days)
		for i := range disputes {
			d := &disputes[i]
			if d.CreatedAt.Before(cutoff) || d.CreatedAt.After(now) {
				continue
			}
			w.Filed++
			if d.Outcome != nil {
				w.Resolved++
			}
			if isOverdue(d, now) {
				w.Overdue++
			}
		}
		if w.Filed > 0 {
			w.ResolvedRate = float64(w.Resolved) / float64(w.Filed)
		}
		out = append(out, w)
	}
	return out
}

// VolumeBucket counts activity within one calendar period. Filed buckets by
// creation date; Due buckets by response deadline.
type VolumeBucket struct {
	Start time.Time
	Filed int
	Due   int
}

// WeeklyVolume returns the last n weeks, oldest first. Weeks start on Monday.
func WeeklyVolume(disputes []dispute.Dispute, now time.Time, n int) []VolumeBucket {
	if n <= 0 {
		return []VolumeBucket{}
	}
	day := startOfDay(now)
	offset := (int(day.Weekday()) + 6) % 7
	thisWeek := day.AddDate(0, 0, -offset)

	buckets := make([]VolumeBucket, n)
	for i := 0; i < n; i++ {
		buckets[i].Start = thisWeek.AddDate(0, 0, -7*(n-1-i))
	}
	fill(disputes, buckets, func(start time.Time) time.Time { return start.AddDate(0, 0, 7) })
	return buckets
}

// MonthlyVolume returns the last n calendar months, oldest first.
func MonthlyVolume(disputes []dispute.Dispute, now time.Time, n int) []VolumeBucket {
	if n <= 0 {
		return []VolumeBucket{}
	}
	thisMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	buckets := make([]VolumeBucket, n)
	for i := 0; i < n; i++ {
		buckets[i].Start = thisMonth.AddDate(0, -(n - 1 - i), 0)
	}
	fill(disputes, buckets, func(start time.Time) time.Time { return start.AddDate(0, 1, 0) })
	return buckets
}

func fill(disputes []dispute.Dispute, buckets []VolumeBucket, next func(time.Time) time.Time) {
	for i := range buckets {
		end := next(buckets[i].Start)
		for j := range disputes {
			d := &disputes[j]
			if !d.CreatedAt.Before(buckets[i].Start) && d.CreatedAt.Before(end) {
				buckets[i].Filed++
			}
			if !d.ResponseDeadline.Before(buckets[i].Start) && d.ResponseDeadline.Before(end) {
				buckets[i].Due++
			}
		}
	}
}
