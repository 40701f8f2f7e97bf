package stamp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-stamp/pkg/storage"
)

var fixedNow = time.Date(2025, time.March, 4, 12, 0, 0, 0, time.UTC)

func TestNewEngineValidation(t *testing.T) {
	identity := TransformFunc(func(_ TransformContext, value any) (any, error) { return value, nil })
	cases := []struct {
		name string
		rule Rule
		want error
	}{
		{"empty threshold", RemoveKeys("", KeyExpenses), ErrInvalidRule},
		{"no keys", RemoveKeys("2.0.0"), ErrInvalidRule},
		{"blank key", RemoveKeys("2.0.0", " "), ErrEmptyKey},
		{"version key", RemoveKeys("2.0.0", DefaultVersionKey), ErrReservedKey},
		{"cleanup key", TransformKeys("2.0.0", identity, DefaultCleanupKey), ErrReservedKey},
		{"missing transform", Rule{Threshold: "2.0.0", Keys: []string{KeyExpenses}, Action: ActionTransform}, ErrInvalidRule},
		{"unknown action", Rule{Threshold: "2.0.0", Keys: []string{KeyExpenses}, Action: "rename"}, ErrInvalidRule},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewEngine(tc.rule)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}

	if _, err := NewEngine(RemoveKeys("2.0.0", KeyExpenses), TransformKeys("2.1.0", identity, KeyUserPreferences)); err != nil {
		t.Fatalf("unexpected error for valid rules: %v", err)
	}
}

func TestEngineValidateAgainstCustomRegistry(t *testing.T) {
	engine, err := NewEngine(RemoveKeys("2.0.0", "settings"))
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	registry, err := NewRegistry("settings", "cleanup", "expenses")
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	if err := engine.Validate(registry); !errors.Is(err, ErrReservedKey) {
		t.Fatalf("expected ErrReservedKey, got %v", err)
	}
}

func TestPendingSelectsThresholdWindow(t *testing.T) {
	engine, err := NewEngine(
		RemoveKeys("1.8.0", "a"),
		RemoveKeys("2.0.0", "b"),
		RemoveKeys("2.1.0", "c"),
		RemoveKeys("2.10.0", "d"),
		RemoveKeys("3.0.0", "e"),
	)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	cases := []struct {
		old, new string
		want     []string
	}{
		{"1.5.0", "2.1.0", []string{"a", "b", "c"}},
		{"2.0.0", "2.1.0", []string{"c"}},
		{"2.0.5", "2.0.9", nil},
		{"2.9.0", "2.10.0", []string{"d"}},
		{"2.1.0", "2.1.0", nil},
		{"0.1.0", "9.0.0", []string{"a", "b", "c", "d", "e"}},
	}
	for _, tc := range cases {
		var got []string
		for _, rule := range engine.Pending(tc.old, tc.new) {
			got = append(got, rule.Keys...)
		}
		if diff := cmp.Diff(tc.want, got); diff != "" {
			t.Errorf("Pending(%q, %q) mismatch (-want +got):\n%s", tc.old, tc.new, diff)
		}
	}
}

func TestApplyRemoveRule(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory(storage.WithEntries(map[string]string{
		KeyDailyCheckInProgress: `{"step":3}`,
		KeyExpenses:             `[{"amount":4}]`,
	}))
	engine, err := NewEngine(RemoveKeys("2.1.0", KeyDailyCheckInProgress, KeyReturnContext))
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	report := engine.Apply(ctx, store, "2.0.5", "2.1.0", fixedNow)

	if report.Rules != 1 {
		t.Fatalf("expected one rule applied, got %d", report.Rules)
	}
	if diff := cmp.Diff([]string{KeyDailyCheckInProgress, KeyReturnContext}, report.Keys(KeyRemoved)); diff != "" {
		t.Fatalf("removed keys mismatch (-want +got):\n%s", diff)
	}
	want := map[string]string{KeyExpenses: `[{"amount":4}]`}
	if diff := cmp.Diff(want, store.Snapshot()); diff != "" {
		t.Fatalf("store mismatch (-want +got):\n%s", diff)
	}
}

func TestApplyTransformOutcomes(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory(storage.WithEntries(map[string]string{
		"rewrite": `{"amount":"12.50"}`,
		"corrupt": `{not json`,
		"fails":   `{"amount":1}`,
		"panics":  `{"amount":1}`,
		"drop":    `{"amount":1}`,
	}))

	transform := TransformFunc(func(ctx TransformContext, value any) (any, error) {
		switch ctx.Key {
		case "fails":
			return nil, fmt.Errorf("cannot convert")
		case "panics":
			var m map[string]any
			m["boom"] = true
		case "drop":
			return nil, nil
		}
		entry := value.(map[string]any)
		entry["currency"] = "USD"
		entry["migrated_to"] = ctx.NewVersion
		return entry, nil
	})
	engine, err := NewEngine(TransformKeys("2.0.0", transform, "rewrite", "corrupt", "missing", "fails", "panics", "drop"))
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	report := engine.Apply(ctx, store, "1.0.0", "2.0.0", fixedNow)

	got := map[string]KeyStatus{}
	for _, outcome := range report.Outcomes {
		got[outcome.Key] = outcome.Status
	}
	want := map[string]KeyStatus{
		"rewrite": KeyRewritten,
		"corrupt": KeyFallbackRemoved,
		"missing": KeySkipped,
		"fails":   KeyFallbackRemoved,
		"panics":  KeyFallbackRemoved,
		"drop":    KeyRemoved,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("key statuses mismatch (-want +got):\n%s", diff)
	}
	if len(report.Errors()) != 3 {
		t.Fatalf("expected 3 errors, got %v", report.Errors())
	}
	for _, err := range report.Errors() {
		if !strings.Contains(err.Error(), "stamp: transform") {
			t.Fatalf("unexpected error text: %v", err)
		}
	}

	snapshot := store.Snapshot()
	if diff := cmp.Diff(map[string]string{
		"rewrite": `{"amount":"12.50","currency":"USD","migrated_to":"2.0.0"}`,
	}, snapshot); diff != "" {
		t.Fatalf("store mismatch (-want +got):\n%s", diff)
	}
}

func TestApplyContinuesAfterStorageFailure(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory(storage.WithQuota(64), storage.WithEntries(map[string]string{
		"grow":  `"x"`,
		"other": `1`,
	}))
	grow := TransformFunc(func(TransformContext, any) (any, error) {
		return strings.Repeat("y", 128), nil
	})
	engine, err := NewEngine(
		TransformKeys("2.0.0", grow, "grow"),
		RemoveKeys("2.0.0", "other"),
	)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	report := engine.Apply(ctx, store, "1.0.0", "2.0.0", fixedNow)

	if len(report.Outcomes) != 2 {
		t.Fatalf("expected 2 outcomes, got %+v", report.Outcomes)
	}
	if report.Outcomes[0].Status != KeyFallbackRemoved || !errors.Is(report.Outcomes[0].Err, storage.ErrQuotaExceeded) {
		t.Fatalf("expected quota failure to fall back to removal, got %+v", report.Outcomes[0])
	}
	if report.Outcomes[1].Status != KeyRemoved {
		t.Fatalf("expected later rule to still run, got %+v", report.Outcomes[1])
	}
	if len(store.Snapshot()) != 0 {
		t.Fatalf("expected store to be empty, got %v", store.Snapshot())
	}
}

type failingGetStore struct {
	*storage.Memory
	key string
	err error
}

func (s failingGetStore) Get(ctx context.Context, key string) (string, bool, error) {
	if key == s.key {
		return "", false, s.err
	}
	return s.Memory.Get(ctx, key)
}

func TestApplyRemovesKeyWhenReadFails(t *testing.T) {
	ctx := context.Background()
	readErr := errors.New("serialization error")
	store := failingGetStore{
		Memory: storage.NewMemory(storage.WithEntries(map[string]string{
			KeyExpenses:         `[{"amount":4}]`,
			KeyVisionBoardItems: `["trip"]`,
		})),
		key: KeyExpenses,
		err: readErr,
	}
	identity := TransformFunc(func(_ TransformContext, value any) (any, error) { return value, nil })
	engine, err := NewEngine(TransformKeys("2.1.0", identity, KeyExpenses, KeyVisionBoardItems))
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	report := engine.Apply(ctx, store, "2.0.5", "2.1.0", fixedNow)

	if len(report.Outcomes) != 2 {
		t.Fatalf("expected 2 outcomes, got %+v", report.Outcomes)
	}
	if got := report.Outcomes[0]; got.Status != KeyFallbackRemoved || !errors.Is(got.Err, readErr) {
		t.Fatalf("expected unreadable key to fall back to removal, got %+v", got)
	}
	if report.Outcomes[1].Status != KeyRewritten {
		t.Fatalf("expected readable key to be rewritten, got %+v", report.Outcomes[1])
	}
	if _, ok := store.Snapshot()[KeyExpenses]; ok {
		t.Fatalf("unreadable key %q left in storage: %v", KeyExpenses, store.Snapshot())
	}
}

func TestTypedTransform(t *testing.T) {
	type preferences struct {
		Theme    string `json:"theme"`
		FontSize int    `json:"fontSize"`
	}
	ctx := context.Background()
	store := storage.NewMemory(storage.WithEntries(map[string]string{
		KeyUserPreferences: `{"theme":"dark","fontSize":14}`,
		"legacy":           `["not","an","object"]`,
	}))

	transform := TypedTransform(func(_ TransformContext, prefs preferences) (any, error) {
		if prefs.Theme == "dark" {
			prefs.Theme = "night"
		}
		return prefs, nil
	})
	engine, err := NewEngine(TransformKeys("3.0.0", transform, KeyUserPreferences, "legacy"))
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	report := engine.Apply(ctx, store, "2.4.0", "3.0.0", fixedNow)

	if diff := cmp.Diff([]string{KeyUserPreferences}, report.Keys(KeyRewritten)); diff != "" {
		t.Fatalf("rewritten mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"legacy"}, report.Keys(KeyFallbackRemoved)); diff != "" {
		t.Fatalf("fallback mismatch (-want +got):\n%s", diff)
	}
	value, _, _ := store.Get(ctx, KeyUserPreferences)
	if value != `{"theme":"night","fontSize":14}` {
		t.Fatalf("unexpected rewritten value %s", value)
	}
}
