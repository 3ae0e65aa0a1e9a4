package reconcile

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"tubewatch/internal/events"
	"tubewatch/internal/store"
)

func sseBody(t *testing.T, evts ...events.Event) string {
	t.Helper()
	var body string
	for _, event := range evts {
		payload, err := json.Marshal(event)
		if err != nil {
			t.Fatal(err)
		}
		body += fmt.Sprintf("data: %s\n\n", payload)
	}
	return body
}

func TestStreamClientAppliesEvents(t *testing.T) {
	body := sseBody(t,
		events.Event{Type: events.TypeNewVideos, Videos: []store.Video{{ID: "abc", Title: "T"}}},
		events.Event{Type: events.TypeState, State: &events.Snapshot{
			Downloading: map[string]bool{"abc": true},
			Summarizing: map[string]bool{},
		}},
		events.Event{
			Type:       events.TypeDownloaded,
			VideoID:    "abc",
			Downloaded: store.BoolPtr(true),
			Video:      &store.Video{ID: "abc", Location: "/x.mp4", Format: "mp4"},
		},
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") != "text/event-stream" {
			t.Errorf("accept header = %q", r.Header.Get("Accept"))
		}
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, body)
	}))
	defer server.Close()

	session := NewSession(nil)
	var seen []events.Type
	client := NewStreamClient(server.URL, session, func(event events.Event) {
		seen = append(seen, event.Type)
	})

	if err := client.consume(context.Background()); err != nil {
		t.Fatalf("consume: %v", err)
	}

	record, ok := session.Get("abc")
	if !ok {
		t.Fatal("video not reconciled")
	}
	if !record.Downloaded || record.Location != "/x.mp4" || record.Downloading {
		t.Fatalf("record = %+v", record)
	}
	if len(seen) != 3 || seen[2] != events.TypeDownloaded {
		t.Fatalf("observer calls = %v", seen)
	}
}

func TestStreamClientSkipsMalformedData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "data: {not json}\n\n: comment line\n\n")
		fmt.Fprint(w, sseBody(t, events.Event{Type: events.TypeNewVideos, Videos: []store.Video{{ID: "abc"}}}))
	}))
	defer server.Close()

	session := NewSession(nil)
	client := NewStreamClient(server.URL, session, nil)
	if err := client.consume(context.Background()); err != nil {
		t.Fatalf("consume: %v", err)
	}
	if _, ok := session.Get("abc"); !ok {
		t.Fatal("valid event after malformed data not applied")
	}
}

func TestStreamClientRejectsBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewStreamClient(server.URL, NewSession(nil), nil)
	if err := client.consume(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
