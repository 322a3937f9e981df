package reading

import "github.com/heartmarshall/myquran/internal/domain"

// MaxHistoryDays bounds GetHistory windows.
const MaxHistoryDays = 365

// UpdatePositionInput holds parameters for UpdatePosition.
type UpdatePositionInput struct {
	SurahID        int
	AyahNumber     int
	ScrollPosition *float64
}

// Validate validates the position input.
func (i UpdatePositionInput) Validate() error {
	var errs []domain.FieldError

	errs = append(errs, domain.VerseFieldErrors(i.SurahID, i.AyahNumber)...)
	if i.ScrollPosition != nil && *i.ScrollPosition < 0 {
		errs = append(errs, domain.FieldError{Field: "scroll_position", Message: "must not be negative"})
	}

	if len(errs) > 0 {
		return &domain.ValidationError{Errors: errs}
	}
	return nil
}
