package domain

import "time"

// PrayerEntry is the completion state of one prayer on one day.
type PrayerEntry struct {
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// PrayerLog is the ledger for a single day, keyed by ISO date.
type PrayerLog struct {
	SyncMeta

	Prayers map[Prayer]PrayerEntry `json:"prayers"`
}

// NewPrayerLog returns an empty ledger day with all five prayers present.
func NewPrayerLog(date string) PrayerLog {
	l := PrayerLog{Prayers: make(map[Prayer]PrayerEntry, 5)}
	l.ClientID = date
	for _, p := range Prayers() {
		l.Prayers[p] = PrayerEntry{}
	}
	return l
}

func (l PrayerLog) Date() string { return l.ClientID }

func (l *PrayerLog) NaturalKey() string { return l.ClientID }

// CompletedCount returns how many prayers are completed on this day.
func (l PrayerLog) CompletedCount() int {
	n := 0
	for _, p := range Prayers() {
		if l.Prayers[p].Completed {
			n++
		}
	}
	return n
}

// IsComplete reports whether all five prayers are completed.
func (l PrayerLog) IsComplete() bool { return l.CompletedCount() == len(Prayers()) }

// PrayerStat is the completion count of one prayer over a window.
type PrayerStat struct {
	Prayer    Prayer  `json:"prayer"`
	Completed int     `json:"completed"`
	Rate      float64 `json:"rate"`
}

// PrayerStats summarizes a trailing window of the ledger.
type PrayerStats struct {
	Days        int          `json:"days"`
	PerPrayer   []PrayerStat `json:"per_prayer"`
	Completed   int          `json:"completed"`
	OverallRate float64      `json:"overall_rate"`
	PerfectDays int          `json:"perfect_days"`
}
