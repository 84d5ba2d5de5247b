package model

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestResponseEnvelopeOmitsEmptyFields(t *testing.T) {
	ok, err := json.Marshal(Response{Status: "success", RequestID: "req_1", Data: Stats{}})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if strings.Contains(string(ok), `"error"`) {
		t.Errorf("success envelope should omit error, got: %s", ok)
	}

	failed, err := json.Marshal(Response{
		Status:    "error",
		RequestID: "req_2",
		Error:     &APIError{Code: "not_found", Message: "no such run"},
	})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if strings.Contains(string(failed), `"data"`) {
		t.Errorf("error envelope should omit data, got: %s", failed)
	}
	if !strings.Contains(string(failed), `"code":"not_found"`) {
		t.Errorf("expected error code in envelope, got: %s", failed)
	}
}

func TestEventOmitsEmptyDetail(t *testing.T) {
	b, err := json.Marshal(Event{Seq: 1, Tick: 4, Kind: EventYielded, ThreadID: 2, Thread: "a"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if strings.Contains(string(b), `"detail"`) {
		t.Errorf("empty detail should be omitted, got: %s", b)
	}
	if !strings.Contains(string(b), `"kind":"yielded"`) {
		t.Errorf("expected kind in output, got: %s", b)
	}
}

func TestThreadInfoOmitsZeroWakeTick(t *testing.T) {
	running, err := json.Marshal(ThreadInfo{ID: 1, Name: "main", Status: "running", Current: true})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if strings.Contains(string(running), `"wake_tick"`) {
		t.Errorf("running thread should omit wake_tick, got: %s", running)
	}

	blocked, err := json.Marshal(ThreadInfo{ID: 2, Name: "sleeper", Status: "blocked", WakeTick: 15})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !strings.Contains(string(blocked), `"wake_tick":15`) {
		t.Errorf("blocked thread should carry wake_tick, got: %s", blocked)
	}
	if strings.Contains(string(blocked), `"current"`) {
		t.Errorf("non-current thread should omit current, got: %s", blocked)
	}
}
