package usersink_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-stamp/pkg/activity"
	"github.com/goliatone/go-stamp/pkg/activity/usersink"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

type recordingSink struct {
	records []usertypes.ActivityRecord
	err     error
}

func (s *recordingSink) Log(_ context.Context, record usertypes.ActivityRecord) error {
	s.records = append(s.records, record)
	return s.err
}

func TestHookNotifyMapsUpdateEvent(t *testing.T) {
	sink := &recordingSink{}
	tenantID := uuid.New()
	hook := usersink.Hook{Sink: sink, TenantID: tenantID.String()}

	now := time.Date(2026, 10, 16, 8, 0, 0, 0, time.UTC)
	userID := uuid.New()

	event := activity.BuildAppUpdatedEvent(activity.UpdateInput{
		UserID:     userID.String(),
		ActorID:    "not-a-uuid",
		Channel:    "app",
		OldVersion: "2.0.5",
		NewVersion: "2.1.0",
		OccurredAt: now,
	})
	event.ID = "evt-42"

	if err := hook.Notify(context.Background(), event); err != nil {
		t.Fatalf("notify: %v", err)
	}

	if len(sink.records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(sink.records))
	}
	record := sink.records[0]
	if record.UserID != userID {
		t.Fatalf("expected user %s got %s", userID, record.UserID)
	}
	if record.ActorID != uuid.Nil {
		t.Fatalf("expected invalid actor to map to uuid.Nil, got %s", record.ActorID)
	}
	if record.TenantID != tenantID {
		t.Fatalf("expected tenant %s got %s", tenantID, record.TenantID)
	}
	if record.Verb != activity.VerbAppUpdated || record.ObjectType != activity.ObjectTypeAppVersion || record.ObjectID != "2.1.0" {
		t.Fatalf("unexpected record payload: %+v", record)
	}
	if record.OccurredAt != now {
		t.Fatalf("expected occurred_at %v got %v", now, record.OccurredAt)
	}
	if record.Data["old_version"] != "2.0.5" || record.Data["event_id"] != "evt-42" {
		t.Fatalf("unexpected data: %+v", record.Data)
	}
}

func TestHookNotifySkipsIncompleteEvents(t *testing.T) {
	sink := &recordingSink{}
	hook := usersink.Hook{Sink: sink}

	if err := hook.Notify(context.Background(), activity.Event{Verb: "app.updated"}); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(sink.records) != 0 {
		t.Fatalf("expected no records, got %d", len(sink.records))
	}
}

func TestHookNotifyPropagatesSinkError(t *testing.T) {
	boom := errors.New("sink down")
	hook := usersink.Hook{Sink: &recordingSink{err: boom}}

	err := hook.Notify(context.Background(), activity.BuildMajorUpdateEvent(activity.UpdateInput{NewVersion: "2.0.0"}))
	if !errors.Is(err, boom) {
		t.Fatalf("expected sink error, got %v", err)
	}
}

func TestHookWithoutSinkIsNoop(t *testing.T) {
	if err := (usersink.Hook{}).Notify(context.Background(), activity.BuildAppUpdatedEvent(activity.UpdateInput{NewVersion: "2.1.0"})); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}

func TestHookNotifyKeepsRawActorAndIgnoresForeignVerbs(t *testing.T) {
	sink := &recordingSink{}
	hook := usersink.Hook{Sink: sink}

	foreign := activity.Event{Verb: "user.login", ObjectType: "user", ObjectID: "42"}
	if err := hook.Notify(context.Background(), foreign); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(sink.records) != 0 {
		t.Fatalf("expected foreign verb to be ignored, got %d records", len(sink.records))
	}

	event := activity.BuildMajorUpdateEvent(activity.UpdateInput{ActorID: "pixel-8", OldVersion: "1.4.2", NewVersion: "2.0.0"})
	if err := hook.Notify(context.Background(), event); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(sink.records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(sink.records))
	}
	data := sink.records[0].Data
	if data["actor"] != "pixel-8" || data["new_version"] != "2.0.0" {
		t.Fatalf("unexpected data: %+v", data)
	}
}
