package domain

// PendingOperation is the remote operation a dirty record still owes the sync engine.
type PendingOperation string

const (
	PendingNone   PendingOperation = ""
	PendingCreate PendingOperation = "create"
	PendingUpdate PendingOperation = "update"
	PendingDelete PendingOperation = "delete"
)

func (p PendingOperation) String() string { return string(p) }

func (p PendingOperation) IsValid() bool {
	switch p {
	case PendingNone, PendingCreate, PendingUpdate, PendingDelete:
		return true
	}
	return false
}

// EntityKind identifies a syncable table, both locally and on the remote store.
type EntityKind string

const (
	EntityKindCollection      EntityKind = "collections"
	EntityKindBookmark        EntityKind = "bookmarks"
	EntityKindReadingProgress EntityKind = "reading_progress"
	EntityKindReadingHistory  EntityKind = "reading_history"
	EntityKindPrayerLog       EntityKind = "prayer_logs"
	EntityKindSettings        EntityKind = "user_settings"
	EntityKindHifz            EntityKind = "hifz_progress"
)

func (k EntityKind) String() string { return string(k) }

func (k EntityKind) IsValid() bool {
	for _, known := range EntityKinds() {
		if k == known {
			return true
		}
	}
	return false
}

// EntityKinds lists every syncable kind in push order: collections precede the
// bookmarks that reference them.
func EntityKinds() []EntityKind {
	return []EntityKind{
		EntityKindCollection,
		EntityKindBookmark,
		EntityKindReadingProgress,
		EntityKindReadingHistory,
		EntityKindPrayerLog,
		EntityKindSettings,
		EntityKindHifz,
	}
}

// HifzStatus is the memorization state of a single verse.
type HifzStatus string

const (
	HifzStatusNotStarted    HifzStatus = "not_started"
	HifzStatusLearning      HifzStatus = "learning"
	HifzStatusMemorized     HifzStatus = "memorized"
	HifzStatusNeedsRevision HifzStatus = "needs_revision"
)

func (s HifzStatus) String() string { return string(s) }

func (s HifzStatus) IsValid() bool {
	switch s {
	case HifzStatusNotStarted, HifzStatusLearning, HifzStatusMemorized, HifzStatusNeedsRevision:
		return true
	}
	return false
}

// Confidence is the user's self-assessed recall quality for a verse.
type Confidence string

const (
	ConfidenceNew   Confidence = "new"
	ConfidenceShaky Confidence = "shaky"
	ConfidenceGood  Confidence = "good"
	ConfidenceSolid Confidence = "solid"
)

func (c Confidence) String() string { return string(c) }

func (c Confidence) IsValid() bool {
	switch c {
	case ConfidenceNew, ConfidenceShaky, ConfidenceGood, ConfidenceSolid:
		return true
	}
	return false
}

// IsSuccess reports whether the rating counts as a successful recall.
func (c Confidence) IsSuccess() bool {
	return c == ConfidenceGood || c == ConfidenceSolid
}

// Prayer names one of the five daily prayers.
type Prayer string

const (
	PrayerFajr    Prayer = "Fajr"
	PrayerDhuhr   Prayer = "Dhuhr"
	PrayerAsr     Prayer = "Asr"
	PrayerMaghrib Prayer = "Maghrib"
	PrayerIsha    Prayer = "Isha"
)

func (p Prayer) String() string { return string(p) }

func (p Prayer) IsValid() bool {
	switch p {
	case PrayerFajr, PrayerDhuhr, PrayerAsr, PrayerMaghrib, PrayerIsha:
		return true
	}
	return false
}

// Prayers returns the daily prayers in chronological order.
func Prayers() []Prayer {
	return []Prayer{PrayerFajr, PrayerDhuhr, PrayerAsr, PrayerMaghrib, PrayerIsha}
}

// SyncState is the coarse outcome of a sync pass.
type SyncState string

const (
	SyncStateIdle    SyncState = "idle"
	SyncStateSyncing SyncState = "syncing"
	SyncStateSuccess SyncState = "success"
	SyncStateError   SyncState = "error"
)

func (s SyncState) String() string { return string(s) }

// AuthState is the readiness signal supplied by the authentication provider.
type AuthState string

const (
	AuthStateUnauthenticated AuthState = "unauthenticated"
	AuthStateReady           AuthState = "ready"
	AuthStateSignedOut       AuthState = "signed_out"
)

func (s AuthState) String() string { return string(s) }
