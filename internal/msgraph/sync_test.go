package msgraph_test

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/Tiliavir/timescribe/internal/model"
	"github.com/Tiliavir/timescribe/internal/msgraph"
	"github.com/Tiliavir/timescribe/internal/resolve"
	"github.com/Tiliavir/timescribe/internal/storage"
)

var syncNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.Local)

func makeEvent(id, subject, start, end string) msgraph.CalendarEvent {
	return msgraph.CalendarEvent{
		ID:          id,
		Subject:     subject,
		Sensitivity: "normal",
		ShowAs:      "busy",
		Start:       msgraph.EventTime{DateTime: start},
		End:         msgraph.EventTime{DateTime: end},
	}
}

func newSyncer(t *testing.T) (msgraph.Syncer, *storage.Store) {
	t.Helper()
	store, err := storage.Open(filepath.Join(t.TempDir(), "timescribe.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return msgraph.Syncer{Store: store, Commit: resolve.Resolver{Store: store}}, store
}

func syncOpts() msgraph.SyncOptions {
	return msgraph.SyncOptions{Project: "Meetings", Now: syncNow, Out: &bytes.Buffer{}}
}

func dayIntervals(t *testing.T, store *storage.Store) []model.Interval {
	t.Helper()
	day := time.Date(2026, 2, 27, 0, 0, 0, 0, time.Local)
	ivs, err := store.Range(context.Background(), day, day.Add(24*time.Hour-time.Second))
	if err != nil {
		t.Fatalf("Range: %v", err)
	}
	return ivs
}

func TestMapEvent(t *testing.T) {
	event := makeEvent("ext-id-1", "Sprint Planning", "2026-02-27T09:00:00", "2026-02-27T10:30:00")
	pid := int64(4)
	c, err := msgraph.MapEvent(event, "UTC", &pid)
	if err != nil {
		t.Fatalf("MapEvent: %v", err)
	}
	if c.ExternalID != "ext-id-1" {
		t.Errorf("ExternalID = %q, want %q", c.ExternalID, "ext-id-1")
	}
	if c.Description != "Sprint Planning" {
		t.Errorf("Description = %q, want %q", c.Description, "Sprint Planning")
	}
	if c.ProjectID == nil || *c.ProjectID != 4 {
		t.Errorf("ProjectID = %v, want 4", c.ProjectID)
	}
	if c.Source != "outlook" {
		t.Errorf("Source = %q, want %q", c.Source, "outlook")
	}
	if c.Category != model.Work {
		t.Errorf("Category = %q, want work", c.Category)
	}
	if c.Seconds() != 5400 {
		t.Errorf("Seconds = %d, want 5400", c.Seconds())
	}
	if c.Start.Location() != time.Local {
		t.Errorf("start not converted to local time")
	}
}

func TestMapEvent_WithLocation(t *testing.T) {
	event := makeEvent("ext-id-2", "Standup", "2026-02-27T10:00:00", "2026-02-27T10:15:00")
	event.BodyPreview = "Daily standup"
	event.Location.DisplayName = "Zoom"

	c, err := msgraph.MapEvent(event, "", nil)
	if err != nil {
		t.Fatalf("MapEvent: %v", err)
	}
	if c.Description != "Standup\nDaily standup\nZoom" {
		t.Errorf("Description = %q, want %q", c.Description, "Standup\nDaily standup\nZoom")
	}
}

func TestMapEvent_RejectsInvertedEvent(t *testing.T) {
	event := makeEvent("bad", "Backwards", "2026-02-27T10:00:00", "2026-02-27T09:00:00")
	if _, err := msgraph.MapEvent(event, "", nil); err == nil {
		t.Fatal("expected error for inverted event")
	}
}

func TestSyncEvents_Import(t *testing.T) {
	s, store := newSyncer(t)
	events := []msgraph.CalendarEvent{
		makeEvent("ext-1", "Architecture Board", "2026-02-27T09:00:00", "2026-02-27T10:30:00"),
	}

	result, err := s.SyncEvents(context.Background(), events, syncOpts())
	if err != nil {
		t.Fatalf("SyncEvents: %v", err)
	}
	if result.Imported != 1 {
		t.Errorf("Imported = %d, want 1", result.Imported)
	}
	if result.Skipped != 0 {
		t.Errorf("Skipped = %d, want 0", result.Skipped)
	}

	ivs := dayIntervals(t, store)
	if len(ivs) != 1 {
		t.Fatalf("intervals = %d, want 1", len(ivs))
	}
	if ivs[0].ExternalID != "ext-1" {
		t.Errorf("ExternalID = %q, want %q", ivs[0].ExternalID, "ext-1")
	}
	if ivs[0].ProjectName != "Meetings" {
		t.Errorf("ProjectName = %q, want Meetings (created on demand)", ivs[0].ProjectName)
	}
	if ivs[0].Source != "outlook" {
		t.Errorf("Source = %q, want outlook", ivs[0].Source)
	}
}

func TestSyncEvents_Idempotent(t *testing.T) {
	s, store := newSyncer(t)
	events := []msgraph.CalendarEvent{
		makeEvent("ext-1", "Architecture Board", "2026-02-27T09:00:00", "2026-02-27T10:30:00"),
	}

	r1, err := s.SyncEvents(context.Background(), events, syncOpts())
	if err != nil {
		t.Fatalf("first SyncEvents: %v", err)
	}
	if r1.Imported != 1 {
		t.Errorf("first sync: Imported = %d, want 1", r1.Imported)
	}

	r2, err := s.SyncEvents(context.Background(), events, syncOpts())
	if err != nil {
		t.Fatalf("second SyncEvents: %v", err)
	}
	if r2.Imported != 0 {
		t.Errorf("second sync: Imported = %d, want 0 (idempotent)", r2.Imported)
	}
	if r2.Skipped != 1 {
		t.Errorf("second sync: Skipped = %d, want 1", r2.Skipped)
	}
	if r2.Conflicts != 0 {
		t.Errorf("second sync: Conflicts = %d, want 0", r2.Conflicts)
	}

	if n := len(dayIntervals(t, store)); n != 1 {
		t.Fatalf("intervals = %d after 2 syncs, want 1", n)
	}
}

func TestSyncEvents_Update(t *testing.T) {
	s, store := newSyncer(t)
	event := makeEvent("ext-1", "Architecture Board", "2026-02-27T09:00:00", "2026-02-27T10:30:00")

	if _, err := s.SyncEvents(context.Background(), []msgraph.CalendarEvent{event}, syncOpts()); err != nil {
		t.Fatalf("first SyncEvents: %v", err)
	}

	event.Subject = "Architecture Board (updated)"
	event.End.DateTime = "2026-02-27T11:00:00"

	r2, err := s.SyncEvents(context.Background(), []msgraph.CalendarEvent{event}, syncOpts())
	if err != nil {
		t.Fatalf("second SyncEvents: %v", err)
	}
	if r2.Updated != 1 {
		t.Errorf("Updated = %d, want 1", r2.Updated)
	}

	ivs := dayIntervals(t, store)
	if len(ivs) != 1 {
		t.Fatalf("intervals = %d, want 1", len(ivs))
	}
	if ivs[0].Description != "Architecture Board (updated)" {
		t.Errorf("Description = %q, want updated", ivs[0].Description)
	}
	if ivs[0].EndedAt == nil || ivs[0].EndedAt.Hour() != 11 {
		t.Errorf("EndedAt = %v, want 11:00", ivs[0].EndedAt)
	}
}

func TestSyncEvents_SkipFiltered(t *testing.T) {
	s, _ := newSyncer(t)

	tests := []struct {
		name  string
		event msgraph.CalendarEvent
	}{
		{
			name: "cancelled",
			event: func() msgraph.CalendarEvent {
				e := makeEvent("c1", "Cancelled", "2026-02-27T09:00:00", "2026-02-27T10:00:00")
				e.IsCancelled = true
				return e
			}(),
		},
		{
			name: "all-day",
			event: func() msgraph.CalendarEvent {
				e := makeEvent("c2", "All Day", "2026-02-27T00:00:00", "2026-02-28T00:00:00")
				e.IsAllDay = true
				return e
			}(),
		},
		{
			name: "private",
			event: func() msgraph.CalendarEvent {
				e := makeEvent("c3", "Private", "2026-02-27T09:00:00", "2026-02-27T10:00:00")
				e.Sensitivity = "private"
				return e
			}(),
		},
		{
			name: "free",
			event: func() msgraph.CalendarEvent {
				e := makeEvent("c4", "Free Block", "2026-02-27T09:00:00", "2026-02-27T10:00:00")
				e.ShowAs = "free"
				return e
			}(),
		},
		{
			name:  "future",
			event: makeEvent("c5", "Tomorrow", "2026-03-02T09:00:00", "2026-03-02T10:00:00"),
		},
		{
			name:  "cross-midnight",
			event: makeEvent("c6", "Night shift", "2026-02-27T23:00:00", "2026-02-28T01:00:00"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := s.SyncEvents(context.Background(), []msgraph.CalendarEvent{tt.event}, syncOpts())
			if err != nil {
				t.Fatalf("SyncEvents: %v", err)
			}
			if r.Imported != 0 {
				t.Errorf("expected 0 imported for %s event, got %d", tt.name, r.Imported)
			}
		})
	}
}

func TestSyncEvents_DryRun(t *testing.T) {
	s, store := newSyncer(t)
	events := []msgraph.CalendarEvent{
		makeEvent("ext-dry", "Dry Run Event", "2026-02-27T09:00:00", "2026-02-27T10:00:00"),
	}
	opts := syncOpts()
	opts.DryRun = true

	result, err := s.SyncEvents(context.Background(), events, opts)
	if err != nil {
		t.Fatalf("SyncEvents dry-run: %v", err)
	}
	if result.Imported != 1 {
		t.Errorf("dry-run Imported = %d, want 1", result.Imported)
	}

	n, err := store.Count(context.Background())
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 0 {
		t.Errorf("dry-run wrote %d intervals, want 0", n)
	}
	projects, err := store.ListProjects(context.Background())
	if err != nil {
		t.Fatalf("ListProjects: %v", err)
	}
	if len(projects) != 0 {
		t.Errorf("dry-run created %d projects, want 0", len(projects))
	}
}

func TestSyncEvents_ExternalIDPreservesManualEntries(t *testing.T) {
	s, store := newSyncer(t)
	start := time.Date(2026, 2, 27, 9, 0, 0, 0, time.Local)
	end := start.Add(time.Hour)
	manualID, err := store.Insert(context.Background(), model.Interval{
		Category: model.Work, StartedAt: start, EndedAt: &end, LastActivityAt: &end, Source: "manual",
	})
	if err != nil {
		t.Fatalf("inserting manual interval: %v", err)
	}

	events := []msgraph.CalendarEvent{
		makeEvent("ext-1", "Meeting", "2026-02-27T11:00:00", "2026-02-27T12:00:00"),
	}
	if _, err := s.SyncEvents(context.Background(), events, syncOpts()); err != nil {
		t.Fatalf("SyncEvents: %v", err)
	}

	ivs := dayIntervals(t, store)
	if len(ivs) != 2 {
		t.Fatalf("intervals = %d, want 2 (manual + imported)", len(ivs))
	}
	if ivs[0].ID != manualID || ivs[0].Source != "manual" {
		t.Errorf("manual interval changed: %+v", ivs[0])
	}
}

func TestSyncEvents_OverlapNeedsCarve(t *testing.T) {
	s, store := newSyncer(t)
	start := time.Date(2026, 2, 27, 9, 0, 0, 0, time.Local)
	end := start.Add(2 * time.Hour)
	if _, err := store.Insert(context.Background(), model.Interval{
		Category: model.Work, StartedAt: start, EndedAt: &end, LastActivityAt: &end, Source: "manual",
	}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	events := []msgraph.CalendarEvent{
		makeEvent("ext-1", "Meeting", "2026-02-27T10:00:00", "2026-02-27T12:00:00"),
	}

	r1, err := s.SyncEvents(context.Background(), events, syncOpts())
	if err != nil {
		t.Fatalf("SyncEvents: %v", err)
	}
	if r1.Conflicts != 1 || r1.Imported != 0 {
		t.Fatalf("without --carve: conflicts=%d imported=%d, want 1/0", r1.Conflicts, r1.Imported)
	}
	if n := len(dayIntervals(t, store)); n != 1 {
		t.Fatalf("intervals = %d after conflict, want 1", n)
	}

	opts := syncOpts()
	opts.Carve = true
	r2, err := s.SyncEvents(context.Background(), events, opts)
	if err != nil {
		t.Fatalf("SyncEvents --carve: %v", err)
	}
	if r2.Imported != 1 {
		t.Fatalf("with --carve: Imported = %d, want 1", r2.Imported)
	}

	ivs := dayIntervals(t, store)
	if len(ivs) != 2 {
		t.Fatalf("intervals = %d, want 2", len(ivs))
	}
	if ivs[0].EndedAt == nil || ivs[0].EndedAt.Hour() != 10 {
		t.Errorf("manual interval end = %v, want trimmed to 10:00", ivs[0].EndedAt)
	}
	if ivs[1].ExternalID != "ext-1" || ivs[1].Source != "outlook" {
		t.Errorf("carved interval = %+v, want outlook ext-1", ivs[1])
	}
}
