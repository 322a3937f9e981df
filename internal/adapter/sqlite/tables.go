package sqlite

import (
	"database/sql"

	"github.com/heartmarshall/myquran/internal/domain"
	"github.com/heartmarshall/myquran/internal/store"
)

type (
	CollectionTable      = Table[domain.Collection, *domain.Collection]
	BookmarkTable        = Table[domain.Bookmark, *domain.Bookmark]
	ReadingProgressTable = Table[domain.ReadingProgress, *domain.ReadingProgress]
	ReadingHistoryTable  = Table[domain.ReadingHistory, *domain.ReadingHistory]
	PrayerLogTable       = Table[domain.PrayerLog, *domain.PrayerLog]
	SettingsTable        = Table[domain.UserSettings, *domain.UserSettings]
	HifzTable            = Table[domain.HifzProgress, *domain.HifzProgress]
)

// Tables bundles every local table.
type Tables struct {
	Collections     *CollectionTable
	Bookmarks       *BookmarkTable
	ReadingProgress *ReadingProgressTable
	ReadingHistory  *ReadingHistoryTable
	PrayerLogs      *PrayerLogTable
	Settings        *SettingsTable
	Hifz            *HifzTable
	Meta            *Metadata
}

// NewTables creates accessors for all local tables on db.
func NewTables(db *sql.DB, hub *store.Hub) *Tables {
	return &Tables{
		Collections: NewTable[domain.Collection](db, hub, Schema[domain.Collection]{
			Table: "collections",
			Kind:  domain.EntityKindCollection,
			Columns: []Column[domain.Collection]{
				{Name: "name", Value: func(c *domain.Collection) any { return c.Name }},
				{Name: "created_at", Value: func(c *domain.Collection) any { return c.CreatedAt }},
			},
			Indexes: map[string][]string{
				store.IndexName: {"name"},
			},
		}),
		Bookmarks: NewTable[domain.Bookmark](db, hub, Schema[domain.Bookmark]{
			Table: "bookmarks",
			Kind:  domain.EntityKindBookmark,
			Columns: []Column[domain.Bookmark]{
				{Name: "surah_id", Value: func(b *domain.Bookmark) any { return b.SurahID }},
				{Name: "ayah_number", Value: func(b *domain.Bookmark) any { return b.AyahNumber }},
				{Name: "collection_id", Value: func(b *domain.Bookmark) any { return b.CollectionID }},
				{Name: "created_at", Value: func(b *domain.Bookmark) any { return b.CreatedAt }},
			},
			Indexes: map[string][]string{
				store.IndexSurahAyah:  {"surah_id", "ayah_number"},
				store.IndexCollection: {"collection_id", "created_at"},
			},
		}),
		ReadingProgress: NewTable[domain.ReadingProgress](db, hub, Schema[domain.ReadingProgress]{
			Table: "reading_progress",
			Kind:  domain.EntityKindReadingProgress,
		}),
		ReadingHistory: NewTable[domain.ReadingHistory](db, hub, Schema[domain.ReadingHistory]{
			Table: "reading_history",
			Kind:  domain.EntityKindReadingHistory,
		}),
		PrayerLogs: NewTable[domain.PrayerLog](db, hub, Schema[domain.PrayerLog]{
			Table: "prayer_logs",
			Kind:  domain.EntityKindPrayerLog,
		}),
		Settings: NewTable[domain.UserSettings](db, hub, Schema[domain.UserSettings]{
			Table: "user_settings",
			Kind:  domain.EntityKindSettings,
		}),
		Hifz: NewTable[domain.HifzProgress](db, hub, Schema[domain.HifzProgress]{
			Table: "hifz_progress",
			Kind:  domain.EntityKindHifz,
			Columns: []Column[domain.HifzProgress]{
				{Name: "chapter_id", Value: func(p *domain.HifzProgress) any { return p.ChapterID }},
				{Name: "verse_number", Value: func(p *domain.HifzProgress) any { return p.VerseNumber }},
				{Name: "status", Value: func(p *domain.HifzProgress) any { return p.Status }},
				{Name: "due_at", Value: func(p *domain.HifzProgress) any { return p.DueAt }},
			},
			Indexes: map[string][]string{
				store.IndexChapterVerse: {"chapter_id", "verse_number"},
				store.IndexStatus:       {"status", "due_at"},
				store.IndexDue:          {"due_at", "chapter_id", "verse_number"},
			},
		}),
		Meta: NewMetadata(db),
	}
}
