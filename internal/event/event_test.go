package event

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"

	"github.com/doridoridoriand/netsav-go/internal/config"
	"github.com/doridoridoriand/netsav-go/internal/state"
)

func testTarget() config.TargetConfig {
	return config.TargetConfig{
		Name:        "web",
		Address:     "10.0.0.1",
		Port:        8080,
		Interval:    30,
		MinRetry:    2,
		MaxRetry:    5,
		TCPTimeout:  3,
		QueryMethod: "HEAD",
	}
}

func TestNewFillsMessage(t *testing.T) {
	evt := New(testTarget(), state.Unknown, state.Available)

	if evt.ID == uuid.Nil {
		t.Fatalf("expected event id to be set")
	}
	if evt.Time.IsZero() {
		t.Fatalf("expected event time to be set")
	}
	if evt.Msg != "The network status of [web] at 10.0.0.1:8080 change to AVAILABLE" {
		t.Fatalf("unexpected msg %q", evt.Msg)
	}
	if evt.Brief != "Turn to AVAILABLE" {
		t.Fatalf("unexpected brief %q", evt.Brief)
	}
	if evt.Tag != "web" {
		t.Fatalf("unexpected tag %q", evt.Tag)
	}
}

func TestFieldsUseWireNames(t *testing.T) {
	fields := New(testTarget(), state.Available, state.Unavailable).Fields()

	want := map[string]string{
		"name":               "web",
		"address":            "10.0.0.1",
		"port":               "8080",
		"interval":           "30",
		"min_retry":          "2",
		"max_retry":          "5",
		"tcp_timeout":        "3",
		"current_state":      "0",
		"current_state_str":  "UNAVAILABLE",
		"previous_state":     "1",
		"previous_state_str": "AVAILABLE",
		"brief":              "Turn to UNAVAILABLE",
		"tag":                "web",
	}
	for key, value := range want {
		if fields[key] != value {
			t.Fatalf("field %s: expected %q, got %q", key, value, fields[key])
		}
	}
	if len(fields) != len(want)+1 {
		t.Fatalf("expected %d fields, got %d", len(want)+1, len(fields))
	}
}

func TestPayloadJSON(t *testing.T) {
	evt := New(testTarget(), state.Unknown, state.Unavailable)
	data, err := json.Marshal(evt.Payload())
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if decoded["previous_state_str"] != "UNKNOWN" || decoded["current_state"] != float64(0) {
		t.Fatalf("unexpected payload %s", data)
	}
	if decoded["id"] != evt.ID.String() {
		t.Fatalf("expected id %s in payload", evt.ID)
	}
}
