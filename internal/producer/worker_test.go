package producer

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"

	"fraud-detection-service/internal/util"
)

func newTestWorker() *Worker {
	return NewWorker(nil, 0, util.Get())
}

func TestToggleHandler(t *testing.T) {
	worker := newTestWorker()

	cases := []struct {
		query   string
		running bool
	}{
		{"state=true", true},
		{"state=false", false},
		{"", false},
		{"state=yes", false},
	}

	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, "/toggle?"+tc.query, nil)
		rec := httptest.NewRecorder()
		worker.ToggleHandler(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("query %q: status %d", tc.query, rec.Code)
		}
		if worker.IsRunning() != tc.running {
			t.Errorf("query %q: running=%v, want %v", tc.query, worker.IsRunning(), tc.running)
		}

		var body map[string]any
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("query %q: decode body: %v", tc.query, err)
		}
		if body["isRunning"] != tc.running {
			t.Errorf("query %q: body isRunning=%v", tc.query, body["isRunning"])
		}
	}
}

func TestStatusHandlerReflectsState(t *testing.T) {
	worker := newTestWorker()
	worker.SetRunning(true)

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	worker.StatusHandler(rec, req)

	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["isRunning"] != true {
		t.Errorf("expected running status, got %v", body["isRunning"])
	}
}

func TestGenerateTransactionShape(t *testing.T) {
	for i := 0; i < 100; i++ {
		tx := generateTransaction()

		if tx.Amount.IsNegative() {
			t.Fatalf("negative amount: %s", tx.Amount)
		}
		if tx.AccountID < 1000 || tx.AccountID >= 4000 {
			t.Errorf("account id out of range: %d", tx.AccountID)
		}
		if !slices.Contains(locations, tx.Location) {
			t.Errorf("unknown location %q", tx.Location)
		}
		if !slices.Contains(devices, tx.Device) {
			t.Errorf("unknown device %q", tx.Device)
		}
		if !slices.Contains(categories, tx.Category) {
			t.Errorf("unknown category %q", tx.Category)
		}
		if tx.IsFraud || tx.FraudReason != "" {
			t.Error("generated transactions must not be pre-flagged")
		}
	}
}
