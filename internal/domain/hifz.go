package domain

import "time"

// MaxConfidenceHistory bounds the stored rating trail of a verse.
const MaxConfidenceHistory = 20

// ConfidenceEntry is one self-assessed rating.
type ConfidenceEntry struct {
	Confidence Confidence `json:"confidence"`
	ReviewedAt time.Time  `json:"reviewed_at"`
}

// HifzProgress is the memorization state of one verse, keyed by "S:A".
type HifzProgress struct {
	SyncMeta

	ChapterID          int               `json:"chapter_id"`
	VerseNumber        int               `json:"verse_number"`
	Status             HifzStatus        `json:"status"`
	ConfidenceHistory  []ConfidenceEntry `json:"confidence_history,omitempty"`
	EaseFactor         float64           `json:"ease_factor"`
	IntervalDays       int               `json:"interval_days"`
	DueAt              time.Time         `json:"due_at"`
	LastReviewedAt     *time.Time        `json:"last_reviewed_at,omitempty"`
	ReviewCount        int               `json:"review_count"`
	ConsecutiveSuccess int               `json:"consecutive_success"`
}

// VerseKey returns the "S:A" key of the verse.
func (p HifzProgress) VerseKey() string { return VerseKey(p.ChapterID, p.VerseNumber) }

func (p *HifzProgress) NaturalKey() string { return p.ClientID }

// AppendConfidence records a rating, keeping the newest MaxConfidenceHistory entries.
func (p *HifzProgress) AppendConfidence(c Confidence, at time.Time) {
	p.ConfidenceHistory = append(p.ConfidenceHistory, ConfidenceEntry{Confidence: c, ReviewedAt: at})
	if over := len(p.ConfidenceHistory) - MaxConfidenceHistory; over > 0 {
		p.ConfidenceHistory = append([]ConfidenceEntry(nil), p.ConfidenceHistory[over:]...)
	}
}

// IsDue reports whether the verse should be reviewed at now.
func (p HifzProgress) IsDue(now time.Time) bool {
	return p.Status != HifzStatusNotStarted && !p.DueAt.After(now)
}

// HifzStatusCounts counts verses per status.
type HifzStatusCounts struct {
	NotStarted    int `json:"not_started"`
	Learning      int `json:"learning"`
	Memorized     int `json:"memorized"`
	NeedsRevision int `json:"needs_revision"`
}

// Started returns the number of verses with any progress.
func (c HifzStatusCounts) Started() int { return c.Learning + c.Memorized + c.NeedsRevision }

// HifzTotalProgress summarizes memorization over the whole mushaf.
type HifzTotalProgress struct {
	HifzStatusCounts
	TotalVerses      int     `json:"total_verses"`
	TotalSurahs      int     `json:"total_surahs"`
	SurahsMemorized  int     `json:"surahs_memorized"`
	PercentMemorized float64 `json:"percent_memorized"`
}

// HifzSurahProgress summarizes memorization of a single surah.
type HifzSurahProgress struct {
	HifzStatusCounts
	SurahID          int     `json:"surah_id"`
	TotalVerses      int     `json:"total_verses"`
	PercentMemorized float64 `json:"percent_memorized"`
}

// SRSConfig holds the memorization policy constants.
type SRSConfig struct {
	DefaultEaseFactor  float64
	MinEaseFactor      float64
	FailIntervalDays   int
	FirstIntervalDays  int
	SecondIntervalDays int
	MaxIntervalDays    int
	// GraceDays is how long a review may stay overdue before the verse needs revision.
	GraceDays int
	// MemorizedAfter is the number of consecutive successful reviews that
	// promote a learning verse to memorized.
	MemorizedAfter int
}

// DefaultSRSConfig returns the SM-2 defaults.
func DefaultSRSConfig() SRSConfig {
	return SRSConfig{
		DefaultEaseFactor:  2.5,
		MinEaseFactor:      1.3,
		FailIntervalDays:   1,
		FirstIntervalDays:  1,
		SecondIntervalDays: 6,
		MaxIntervalDays:    365,
		GraceDays:          7,
		MemorizedAfter:     2,
	}
}
