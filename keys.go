package stamp

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// DefaultVersionKey stores the stamped VersionTag.
	DefaultVersionKey = "appVersion"
	// DefaultCleanupKey stores the unix-millisecond time of the last
	// version-triggered cleanup.
	DefaultCleanupKey = "lastVersionCleanup"
)

// Feature keys owned by the SpendSentinel client.
const (
	KeyExpenses              = "expenses"
	KeyDailyCheckInProgress  = "dailyCheckInProgress"
	KeyCheckInHistory        = "checkInHistory"
	KeySelfAssessmentResults = "selfAssessmentResults"
	KeyAssessmentProgress    = "selfAssessmentProgress"
	KeyPartsJournal          = "partsJournalEntries"
	KeyJournalProgress       = "partsJournalProgress"
	KeyVisionBoardItems      = "visionBoardItems"
	KeyReturnContext         = "flowReturnContext"
	KeyUserPreferences       = "userPreferences"
)

var (
	// ErrEmptyKey indicates a blank storage key.
	ErrEmptyKey = errors.New("stamp: key must not be empty")
	// ErrReservedKey indicates a feature key collides with the version tag or
	// cleanup record.
	ErrReservedKey = errors.New("stamp: key is reserved")
)

// Registry is the fixed set of storage keys the application owns. The
// version tag and cleanup record are reserved and never treated as feature
// keys.
type Registry struct {
	versionKey string
	cleanupKey string
	features   []string
}

// DefaultRegistry returns the SpendSentinel key layout.
func DefaultRegistry() Registry {
	return Registry{
		versionKey: DefaultVersionKey,
		cleanupKey: DefaultCleanupKey,
		features: []string{
			KeyExpenses,
			KeyDailyCheckInProgress,
			KeyCheckInHistory,
			KeySelfAssessmentResults,
			KeyAssessmentProgress,
			KeyPartsJournal,
			KeyJournalProgress,
			KeyVisionBoardItems,
			KeyReturnContext,
			KeyUserPreferences,
		},
	}
}

// NewRegistry builds a registry. Blank keys are rejected, duplicate feature
// keys are collapsed and declaration order is preserved.
func NewRegistry(versionKey, cleanupKey string, features ...string) (Registry, error) {
	versionKey = strings.TrimSpace(versionKey)
	cleanupKey = strings.TrimSpace(cleanupKey)
	if versionKey == "" || cleanupKey == "" {
		return Registry{}, ErrEmptyKey
	}
	if versionKey == cleanupKey {
		return Registry{}, fmt.Errorf("%w: version and cleanup keys are both %q", ErrReservedKey, versionKey)
	}
	seen := make(map[string]struct{}, len(features))
	out := make([]string, 0, len(features))
	for _, key := range features {
		key = strings.TrimSpace(key)
		if key == "" {
			return Registry{}, ErrEmptyKey
		}
		if key == versionKey || key == cleanupKey {
			return Registry{}, fmt.Errorf("%w: %q", ErrReservedKey, key)
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return Registry{versionKey: versionKey, cleanupKey: cleanupKey, features: out}, nil
}

// VersionKey returns the key holding the VersionTag.
func (r Registry) VersionKey() string {
	if r.versionKey == "" {
		return DefaultVersionKey
	}
	return r.versionKey
}

// CleanupKey returns the key holding the CleanupRecord.
func (r Registry) CleanupKey() string {
	if r.cleanupKey == "" {
		return DefaultCleanupKey
	}
	return r.cleanupKey
}

// FeatureKeys returns a copy of the feature keys in declaration order.
func (r Registry) FeatureKeys() []string {
	return append([]string(nil), r.features...)
}

// Contains reports whether key is a feature key of the registry.
func (r Registry) Contains(key string) bool {
	for _, feature := range r.features {
		if feature == key {
			return true
		}
	}
	return false
}

// Reserved reports whether key is the version tag or cleanup record.
func (r Registry) Reserved(key string) bool {
	return key == r.VersionKey() || key == r.CleanupKey()
}
