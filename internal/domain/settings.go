package domain

import "maps"

// UserSettings is the singleton key/value bag of user preferences.
type UserSettings struct {
	SyncMeta

	Values map[string]any `json:"values"`
}

func (s *UserSettings) NaturalKey() string { return SingletonKey }

// DefaultSettings returns the preference defaults. New keys added here appear
// for existing users on the next read.
func DefaultSettings() map[string]any {
	return map[string]any{
		"theme":              "system",
		"arabic_font":        "uthmani",
		"arabic_font_size":   28,
		"translation_id":     131,
		"show_translation":   true,
		"reciter_id":         7,
		"daily_goal_ayahs":   10,
		"hifz_reviews_limit": 20,
		"prayer_reminders":   false,
	}
}

// Merged returns the defaults overlaid with stored values.
func (s UserSettings) Merged() map[string]any {
	out := DefaultSettings()
	maps.Copy(out, s.Values)
	return out
}
