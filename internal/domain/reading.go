package domain

import "time"

// SingletonKey is the client id of per-user singleton records.
const SingletonKey = "current"

// ReadingProgress is the singleton reading position and streak counter.
type ReadingProgress struct {
	SyncMeta

	LastSurahID        int      `json:"last_surah_id"`
	LastAyahNumber     int      `json:"last_ayah_number"`
	LastScrollPosition *float64 `json:"last_scroll_position,omitempty"`
	TotalAyahsRead     int      `json:"total_ayahs_read"`
	CurrentStreak      int      `json:"current_streak"`
	LongestStreak      int      `json:"longest_streak"`
	LastReadDate       string   `json:"last_read_date,omitempty"`
}

func (p *ReadingProgress) NaturalKey() string { return SingletonKey }

// AyahRead is one verse read on a given day.
type AyahRead struct {
	SurahID    int       `json:"surah_id"`
	AyahNumber int       `json:"ayah_number"`
	Timestamp  time.Time `json:"timestamp"`
}

// ReadingHistory aggregates a single day of reading, keyed by ISO date.
type ReadingHistory struct {
	SyncMeta

	AyahsRead   []AyahRead `json:"ayahs_read"`
	TotalAyahs  int        `json:"total_ayahs"`
	TotalTimeMs int64      `json:"total_time_ms"`
}

// Date returns the ISO date the record covers.
func (h ReadingHistory) Date() string { return h.ClientID }

func (h *ReadingHistory) NaturalKey() string { return h.ClientID }

// HasAyah reports whether the verse was already recorded for the day.
func (h ReadingHistory) HasAyah(surahID, ayahNumber int) bool {
	for _, a := range h.AyahsRead {
		if a.SurahID == surahID && a.AyahNumber == ayahNumber {
			return true
		}
	}
	return false
}
