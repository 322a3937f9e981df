package library

import (
	"strings"
	"unicode/utf8"

	"github.com/heartmarshall/myquran/internal/domain"
)

const (
	maxLabelLength = 200
	maxNameLength  = 100
	maxColorLength = 32
)

// AddBookmarkInput holds parameters for AddBookmark.
type AddBookmarkInput struct {
	SurahID      int
	AyahNumber   int
	Label        string
	Color        string
	CollectionID string
}

// Validate validates the add bookmark input.
func (i AddBookmarkInput) Validate() error {
	errs := domain.VerseFieldErrors(i.SurahID, i.AyahNumber)
	errs = append(errs, validateLabel(&i.Label)...)
	errs = append(errs, validateColor(&i.Color)...)

	if len(errs) > 0 {
		return &domain.ValidationError{Errors: errs}
	}
	return nil
}

// UpdateBookmarkInput holds parameters for UpdateBookmark.
// All fields except ClientID are optional (nil = don't change).
type UpdateBookmarkInput struct {
	ClientID     string
	Label        *string
	Color        *string
	CollectionID *string
}

// Validate validates the update bookmark input.
func (i UpdateBookmarkInput) Validate() error {
	var errs []domain.FieldError

	if i.ClientID == "" {
		errs = append(errs, domain.FieldError{Field: "client_id", Message: "required"})
	}
	if i.Label == nil && i.Color == nil && i.CollectionID == nil {
		errs = append(errs, domain.FieldError{Field: "input", Message: "nothing to update"})
	}
	errs = append(errs, validateLabel(i.Label)...)
	errs = append(errs, validateColor(i.Color)...)

	if len(errs) > 0 {
		return &domain.ValidationError{Errors: errs}
	}
	return nil
}

// CreateCollectionInput holds parameters for CreateCollection.
type CreateCollectionInput struct {
	Name  string
	Color string
}

// Validate validates the create collection input.
func (i CreateCollectionInput) Validate() error {
	errs := validateName(i.Name)
	errs = append(errs, validateColor(&i.Color)...)

	if len(errs) > 0 {
		return &domain.ValidationError{Errors: errs}
	}
	return nil
}

// RenameCollectionInput holds parameters for RenameCollection.
type RenameCollectionInput struct {
	ClientID string
	Name     string
	Color    *string
}

// Validate validates the rename collection input.
func (i RenameCollectionInput) Validate() error {
	var errs []domain.FieldError

	if i.ClientID == "" {
		errs = append(errs, domain.FieldError{Field: "client_id", Message: "required"})
	}
	errs = append(errs, validateName(i.Name)...)
	errs = append(errs, validateColor(i.Color)...)

	if len(errs) > 0 {
		return &domain.ValidationError{Errors: errs}
	}
	return nil
}

func validateName(name string) []domain.FieldError {
	switch {
	case strings.TrimSpace(name) == "":
		return []domain.FieldError{{Field: "name", Message: "required"}}
	case utf8.RuneCountInString(name) > maxNameLength:
		return []domain.FieldError{{Field: "name", Message: "too long"}}
	}
	return nil
}

func validateLabel(label *string) []domain.FieldError {
	if label != nil && utf8.RuneCountInString(*label) > maxLabelLength {
		return []domain.FieldError{{Field: "label", Message: "too long"}}
	}
	return nil
}

func validateColor(color *string) []domain.FieldError {
	if color != nil && len(*color) > maxColorLength {
		return []domain.FieldError{{Field: "color", Message: "too long"}}
	}
	return nil
}
