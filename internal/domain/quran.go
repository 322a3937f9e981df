package domain

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// TotalSurahs is the number of surahs in the mushaf.
	TotalSurahs = 114
	// TotalVerses is the number of verses in the mushaf.
	TotalVerses = 6236
)

var verseCounts = [TotalSurahs]int{
	7, 286, 200, 176, 120, 165, 206, 75, 129, 109,
	123, 111, 43, 52, 99, 128, 111, 110, 98, 135,
	112, 78, 118, 64, 77, 227, 93, 88, 69, 60,
	34, 30, 73, 54, 45, 83, 182, 88, 75, 85,
	54, 53, 89, 59, 37, 35, 38, 29, 18, 45,
	60, 49, 62, 55, 78, 96, 29, 22, 24, 13,
	14, 11, 11, 18, 12, 12, 30, 52, 52, 44,
	28, 28, 20, 56, 40, 31, 50, 40, 46, 42,
	29, 19, 36, 25, 22, 17, 19, 26, 30, 20,
	15, 21, 11, 8, 8, 19, 5, 8, 8, 11,
	11, 8, 3, 9, 5, 4, 7, 3, 6, 3,
	5, 4, 5, 6,
}

// VerseCount returns the number of verses in a surah, or 0 if out of range.
func VerseCount(surahID int) int {
	if surahID < 1 || surahID > TotalSurahs {
		return 0
	}
	return verseCounts[surahID-1]
}

// VerseKey formats a verse reference as "S:A".
func VerseKey(surahID, ayahNumber int) string {
	return strconv.Itoa(surahID) + ":" + strconv.Itoa(ayahNumber)
}

// ValidateVerse checks that the surah and ayah exist.
func ValidateVerse(surahID, ayahNumber int) error {
	if errs := VerseFieldErrors(surahID, ayahNumber); len(errs) > 0 {
		return NewValidationErrors(errs)
	}
	return nil
}

// VerseFieldErrors returns the field errors for an invalid verse reference.
func VerseFieldErrors(surahID, ayahNumber int) []FieldError {
	n := VerseCount(surahID)
	if n == 0 {
		return []FieldError{{Field: "surah_id", Message: fmt.Sprintf("must be between 1 and %d", TotalSurahs)}}
	}
	if ayahNumber < 1 || ayahNumber > n {
		return []FieldError{{Field: "ayah_number", Message: fmt.Sprintf("must be between 1 and %d", n)}}
	}
	return nil
}

// ParseVerseKey parses and validates an "S:A" reference.
func ParseVerseKey(key string) (surahID, ayahNumber int, err error) {
	s, a, ok := strings.Cut(strings.TrimSpace(key), ":")
	if !ok {
		return 0, 0, NewValidationError("verse_key", "must be in S:A form")
	}
	surahID, err1 := strconv.Atoi(s)
	ayahNumber, err2 := strconv.Atoi(a)
	if err1 != nil || err2 != nil {
		return 0, 0, NewValidationError("verse_key", "must be in S:A form")
	}
	if err := ValidateVerse(surahID, ayahNumber); err != nil {
		return 0, 0, err
	}
	return surahID, ayahNumber, nil
}
