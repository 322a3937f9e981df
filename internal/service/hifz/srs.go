package hifz

import (
	"math"
	"time"

	"github.com/heartmarshall/myquran/internal/domain"
)

// SRSInput holds all data needed for SRS calculation. Pure value, no side effects.
type SRSInput struct {
	CurrentStatus      domain.HifzStatus
	CurrentInterval    int
	CurrentEase        float64
	ConsecutiveSuccess int
	Confidence         domain.Confidence
	Now                time.Time
	Config             domain.SRSConfig
}

// SRSOutput is the result of SRS calculation.
type SRSOutput struct {
	NewStatus             domain.HifzStatus
	NewInterval           int
	NewEase               float64
	NewConsecutiveSuccess int
	DueAt                 time.Time
}

// Quality maps a confidence rating to its SM-2 quality score.
func Quality(c domain.Confidence) int {
	switch c {
	case domain.ConfidenceSolid:
		return 5
	case domain.ConfidenceGood:
		return 4
	case domain.ConfidenceShaky:
		return 2
	default:
		return 0
	}
}

// CalculateSRS is a pure function. No DB, no context, no logger.
// All decisions are deterministic based on input parameters.
func CalculateSRS(input SRSInput) SRSOutput {
	cfg := input.Config
	ease := input.CurrentEase
	if ease <= 0 {
		ease = cfg.DefaultEaseFactor
	}

	newEase := nextEase(ease, input.Confidence, cfg.MinEaseFactor)

	if !input.Confidence.IsSuccess() {
		// Lapse: short interval, success run restarts.
		interval := min(max(cfg.FailIntervalDays, 1), cfg.MaxIntervalDays)
		status := domain.HifzStatusNeedsRevision
		if input.CurrentStatus == domain.HifzStatusNotStarted || input.CurrentStatus == "" {
			status = domain.HifzStatusLearning
		}
		return SRSOutput{
			NewStatus:             status,
			NewInterval:           interval,
			NewEase:               newEase,
			NewConsecutiveSuccess: 0,
			DueAt:                 input.Now.AddDate(0, 0, interval),
		}
	}

	run := input.ConsecutiveSuccess + 1

	var interval int
	switch run {
	case 1:
		interval = cfg.FirstIntervalDays
	case 2:
		interval = cfg.SecondIntervalDays
	default:
		interval = int(math.Round(float64(max(input.CurrentInterval, 1)) * newEase))
	}
	interval = min(max(interval, 1), cfg.MaxIntervalDays)

	return SRSOutput{
		NewStatus:             nextStatus(input.CurrentStatus, run, cfg.MemorizedAfter),
		NewInterval:           interval,
		NewEase:               newEase,
		NewConsecutiveSuccess: run,
		DueAt:                 input.Now.AddDate(0, 0, interval),
	}
}

// nextEase applies the SM-2 ease update. A forgotten verse never gains ease.
func nextEase(ease float64, c domain.Confidence, minEase float64) float64 {
	q := float64(5 - Quality(c))
	next := ease + (0.1 - q*(0.08+q*0.02))
	if c == domain.ConfidenceNew {
		next = math.Min(next, ease)
	}
	return math.Max(minEase, next)
}

func nextStatus(cur domain.HifzStatus, run, memorizedAfter int) domain.HifzStatus {
	switch cur {
	case domain.HifzStatusMemorized:
		return domain.HifzStatusMemorized
	case domain.HifzStatusNeedsRevision:
		return domain.HifzStatusLearning
	}
	if run >= memorizedAfter {
		return domain.HifzStatusMemorized
	}
	return domain.HifzStatusLearning
}
