// internal/domain/stats.go
package domain

import (
	"sort"
	"time"
)

// PenaltyAmount is the fixed size of an OpSec violation transfer.
const PenaltyAmount int64 = 20000

// DayLayout is the calendar-day key used by DailyStat.
const DayLayout = "2006-01-02"

// VictimStat counts the penalties paid by one account.
type VictimStat struct {
	Username    string `json:"username"`
	VictimCount int    `json:"victimCount"`
	TotalLost   int64  `json:"totalLost"`
}

// DailyStat is one point of the activity time series.
type DailyStat struct {
	Date      string `json:"date"`
	Transfers int    `json:"transfers"`
	Volume    int64  `json:"volume"`
}

// AggregateVictims groups penalty-sized records by paying account and
// orders the result by count descending. Records of any other amount are
// ignored. Equal counts keep first-seen order.
func AggregateVictims(records []ActivityView, penalty int64) []VictimStat {
	index := make(map[string]int)
	stats := []VictimStat{}
	for _, r := range records {
		if r.Amount != penalty {
			continue
		}
		i, ok := index[r.FromUsername]
		if !ok {
			i = len(stats)
			index[r.FromUsername] = i
			stats = append(stats, VictimStat{Username: r.FromUsername})
		}
		stats[i].VictimCount++
		stats[i].TotalLost += r.Amount
	}
	sort.SliceStable(stats, func(a, b int) bool {
		return stats[a].VictimCount > stats[b].VictimCount
	})
	return stats
}

// WindowStart returns midnight UTC of the first day in a trailing window of
// days calendar days ending on now's day.
func WindowStart(now time.Time, days int) time.Time {
	if days < 1 {
		days = 1
	}
	y, m, d := now.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -(days - 1))
}

// AggregateDaily buckets records into calendar days (UTC) across the
// trailing window. Every day of the window is present, ascending; days
// without transfers carry zeros. Records outside the window are dropped.
func AggregateDaily(records []Activity, now time.Time, days int) []DailyStat {
	start := WindowStart(now, days)
	if days < 1 {
		days = 1
	}
	series := make([]DailyStat, days)
	index := make(map[string]int, days)
	for i := range series {
		key := start.AddDate(0, 0, i).Format(DayLayout)
		series[i].Date = key
		index[key] = i
	}
	for _, r := range records {
		i, ok := index[r.Timestamp.UTC().Format(DayLayout)]
		if !ok {
			continue
		}
		series[i].Transfers++
		series[i].Volume += r.Amount
	}
	return series
}
