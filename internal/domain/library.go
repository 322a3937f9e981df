package domain

import (
	"fmt"
	"time"
)

// Bookmark marks a single ayah, optionally inside a collection.
type Bookmark struct {
	SyncMeta

	SurahID      int       `json:"surah_id"`
	AyahNumber   int       `json:"ayah_number"`
	Label        string    `json:"label,omitempty"`
	Color        string    `json:"color,omitempty"`
	CollectionID string    `json:"collection_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// VerseKey returns the "surah:ayah" key of the bookmarked verse.
func (b Bookmark) VerseKey() string { return VerseKey(b.SurahID, b.AyahNumber) }

// NaturalKey makes standalone bookmarks unique per verse across devices.
// Bookmarks inside collections are identified by client id only.
func (b *Bookmark) NaturalKey() string {
	if b.CollectionID != "" {
		return ""
	}
	return b.VerseKey()
}

// Collection groups bookmarks under a name.
type Collection struct {
	SyncMeta

	Name      string    `json:"name"`
	Color     string    `json:"color,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (c *Collection) NaturalKey() string { return "" }

func (c Collection) String() string { return fmt.Sprintf("%s (%s)", c.Name, c.ClientID) }
