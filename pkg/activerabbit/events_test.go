package activerabbit

import (
	"context"
	"testing"
	"time"

	"github.com/activerabbit-ai/activerabbit-ai/pkg/activerabbit/transport"
)

func TestEventTracker_Track_QueuesRecord(t *testing.T) {
	c, q := newTestClient(t, nil)

	c.TrackEvent(context.Background(), "checkout.completed",
		map[string]any{"plan": "pro", "seats": 3},
		WithUserID("u-17"))

	reqs := q.queued()
	if len(reqs) != 1 {
		t.Fatalf("queued %d requests, want 1", len(reqs))
	}
	if reqs[0].Kind != transport.KindEvent {
		t.Errorf("Kind = %q, want %q", reqs[0].Kind, transport.KindEvent)
	}
	if reqs[0].Path != transport.PathEvents {
		t.Errorf("Path = %q, want %q", reqs[0].Path, transport.PathEvents)
	}

	rec, ok := reqs[0].Payload.(*EventRecord)
	if !ok {
		t.Fatalf("payload type = %T, want *EventRecord", reqs[0].Payload)
	}
	if rec.ID == "" {
		t.Error("ID should be set")
	}
	if rec.EventType != EventTypeEvent {
		t.Errorf("EventType = %q, want %q", rec.EventType, EventTypeEvent)
	}
	if rec.Name != "checkout.completed" {
		t.Errorf("Name = %q, want checkout.completed", rec.Name)
	}
	if rec.Timestamp.IsZero() {
		t.Error("Timestamp should be set")
	}
	if rec.Environment != "test" || rec.Release != "1.0.0" || rec.ServerName != "test-host" {
		t.Errorf("deployment identity = %q/%q/%q", rec.Environment, rec.Release, rec.ServerName)
	}
	if rec.UserID != "u-17" {
		t.Errorf("UserID = %q, want u-17", rec.UserID)
	}
	if rec.Properties["plan"] != "pro" {
		t.Errorf("Properties[plan] = %v, want pro", rec.Properties["plan"])
	}
	if rec.Properties["seats"] != 3 {
		t.Errorf("Properties[seats] = %v, want 3", rec.Properties["seats"])
	}
}

func TestEventTracker_Unconfigured_NoOp(t *testing.T) {
	c, q := newTestClient(t, func(cfg *Config) {
		cfg.APIKey = ""
	})

	c.TrackEvent(context.Background(), "signup", nil)

	if got := len(q.queued()); got != 0 {
		t.Errorf("queued %d requests, want 0", got)
	}
}

func TestEventTracker_WithTimestamp(t *testing.T) {
	c, q := newTestClient(t, nil)
	ts := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

	c.TrackEvent(context.Background(), "replayed", nil, WithTimestamp(ts))

	reqs := q.queued()
	if len(reqs) != 1 {
		t.Fatalf("queued %d requests, want 1", len(reqs))
	}
	rec := reqs[0].Payload.(*EventRecord)
	if !rec.Timestamp.Equal(ts) {
		t.Errorf("Timestamp = %v, want %v", rec.Timestamp, ts)
	}
}

func TestEventTracker_BeforeSendEvent_Veto(t *testing.T) {
	c, q := newTestClient(t, func(cfg *Config) {
		cfg.BeforeSendEvent = func(rec *EventRecord) *EventRecord {
			if rec.Name == "drop.me" {
				return nil
			}
			return rec
		}
	})
	ctx := context.Background()

	c.TrackEvent(ctx, "drop.me", nil)
	c.TrackEvent(ctx, "keep.me", nil)

	reqs := q.queued()
	if len(reqs) != 1 {
		t.Fatalf("queued %d requests, want 1", len(reqs))
	}
	if rec := reqs[0].Payload.(*EventRecord); rec.Name != "keep.me" {
		t.Errorf("Name = %q, want keep.me", rec.Name)
	}
}

func TestEventTracker_BeforeSendEvent_Mutates(t *testing.T) {
	c, q := newTestClient(t, func(cfg *Config) {
		cfg.BeforeSendEvent = func(rec *EventRecord) *EventRecord {
			if rec.Properties == nil {
				rec.Properties = map[string]any{}
			}
			rec.Properties["region"] = "eu-west"
			return rec
		}
	})

	c.TrackEvent(context.Background(), "signup", map[string]any{"plan": "pro"})

	reqs := q.queued()
	if len(reqs) != 1 {
		t.Fatalf("queued %d requests, want 1", len(reqs))
	}
	rec := reqs[0].Payload.(*EventRecord)
	if rec.Properties["region"] != "eu-west" {
		t.Errorf("Properties[region] = %v, want eu-west", rec.Properties["region"])
	}
	if rec.Properties["plan"] != "pro" {
		t.Errorf("Properties[plan] = %v, want pro", rec.Properties["plan"])
	}
}

func TestEventTracker_ScrubsProperties(t *testing.T) {
	c, q := newTestClient(t, nil)

	c.TrackEvent(context.Background(), "signup", map[string]any{
		"password": "hunter2",
		"note":     "ping bob@example.com",
	})

	reqs := q.queued()
	if len(reqs) != 1 {
		t.Fatalf("queued %d requests, want 1", len(reqs))
	}
	rec := reqs[0].Payload.(*EventRecord)
	if rec.Properties["password"] != Redacted {
		t.Errorf("Properties[password] = %v, want %q", rec.Properties["password"], Redacted)
	}
	if rec.Properties["note"] != "ping "+Redacted {
		t.Errorf("Properties[note] = %v, want email redacted", rec.Properties["note"])
	}
}

func TestEventTracker_AttachesAmbientContext(t *testing.T) {
	c, q := newTestClient(t, nil)

	ctx := WithRequestContext(context.Background(), RequestContext{
		Method:        "GET",
		Path:          "/orders",
		CorrelationID: "req-1",
		Params:        map[string]string{"token": "abc123"},
	})
	ctx = WithJobContext(ctx, JobContext{
		JobName: "mailer",
		Queue:   "default",
		JobID:   "j-9",
		Attempt: 2,
	})

	c.TrackEvent(ctx, "mail.sent", nil)

	reqs := q.queued()
	if len(reqs) != 1 {
		t.Fatalf("queued %d requests, want 1", len(reqs))
	}
	rec := reqs[0].Payload.(*EventRecord)

	if rec.Request == nil {
		t.Fatal("Request snapshot should be attached")
	}
	if rec.Request.Method != "GET" || rec.Request.Path != "/orders" {
		t.Errorf("Request = %+v", rec.Request)
	}
	if rec.Request.Params["token"] != Redacted {
		t.Errorf("Params[token] = %q, want %q", rec.Request.Params["token"], Redacted)
	}

	if rec.Job == nil {
		t.Fatal("Job snapshot should be attached")
	}
	if rec.Job.JobName != "mailer" || rec.Job.Attempt != 2 {
		t.Errorf("Job = %+v", rec.Job)
	}
}

func TestEventTracker_PanickingHookIsContained(t *testing.T) {
	c, q := newTestClient(t, func(cfg *Config) {
		cfg.BeforeSendEvent = func(*EventRecord) *EventRecord {
			panic("hook bug")
		}
	})

	// Must not escape to the caller.
	c.TrackEvent(context.Background(), "signup", nil)

	if got := len(q.queued()); got != 0 {
		t.Errorf("queued %d requests, want 0", got)
	}
}
