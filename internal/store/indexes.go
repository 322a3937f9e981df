package store

// Index names declared by the local tables.
const (
	// IndexKey is the implicit index over the primary key.
	IndexKey = "key"

	IndexSurahAyah    = "surah_ayah"
	IndexCollection   = "collection"
	IndexName         = "name"
	IndexChapterVerse = "chapter_verse"
	IndexStatus       = "status"
	IndexDue          = "due"
)
