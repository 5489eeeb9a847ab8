package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"wellness-companion/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (Client, *httptest.Server) {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return NewClient(&config.Config{BackendBaseURL: ts.URL}), ts
}

func TestStartPlanning(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/manager/schedule/start" {
				t.Errorf("Unexpected path %s", r.URL.Path)
			}
			var req StartPlanningRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Fatalf("Failed to decode request: %v", err)
			}
			if req.Days != 7 || req.User != "Dae" {
				t.Errorf("Unexpected request: %+v", req)
			}
			json.NewEncoder(w).Encode(map[string]interface{}{
				"finished":   false,
				"session_id": "abc123",
				"raw_text":   "analysis <payload>{}</payload>",
			})
		})

		res, err := client.StartPlanning(context.Background(), StartPlanningRequest{
			Email: "dae@example.com", User: "Dae", Days: 7,
		})
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if res.SessionID != "abc123" {
			t.Errorf("Expected session id 'abc123', got '%s'", res.SessionID)
		}
		if res.Finished {
			t.Error("Expected finished=false")
		}
	})

	t.Run("FinishedWithoutSession", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]interface{}{
				"finished": true,
				"message":  "No suggestions at this time.",
			})
		})

		res, err := client.StartPlanning(context.Background(), StartPlanningRequest{Days: 7})
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if !res.Finished || res.Message == "" {
			t.Errorf("Expected finished result with message, got %+v", res)
		}
	})

	t.Run("ServerError", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})

		_, err := client.StartPlanning(context.Background(), StartPlanningRequest{Days: 7})
		if err == nil {
			t.Fatal("Expected an error for status 500, got nil")
		}
	})
}

func TestDecide(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/manager/schedule/decision" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		var body map[string]interface{}
		json.NewDecoder(r.Body).Decode(&body)
		if body["session_id"] != "abc123" || body["accept"] != true {
			t.Errorf("Unexpected body: %v", body)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"result":   map[string]string{"status": "scheduled"},
			"finished": false,
		})
	})

	res, err := client.Decide(context.Background(), "abc123", true)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if res.Result.Status != "scheduled" {
		t.Errorf("Expected status 'scheduled', got '%s'", res.Result.Status)
	}
}

func TestNextQuestionAndAnswer(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/manager/checkin/next":
			json.NewEncoder(w).Encode(map[string]string{"qid": "q3", "text": "I feel dissatisfied..."})
		case "/api/manager/checkin/answer":
			json.NewEncoder(w).Encode(map[string]interface{}{"bs": 0.42, "next_interval_min": 150})
		default:
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
	})

	q, err := client.NextQuestion(context.Background())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if q.QID != "q3" {
		t.Errorf("Expected qid 'q3', got '%s'", q.QID)
	}

	res, err := client.Answer(context.Background(), "q3", 4)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if res.BS == nil || *res.BS != 0.42 {
		t.Errorf("Expected bs 0.42, got %v", res.BS)
	}
	if res.NextIntervalMin != 150 {
		t.Errorf("Expected next interval 150, got %d", res.NextIntervalMin)
	}
}

func TestSupport(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["message"] != "I feel overwhelmed" {
			t.Errorf("Unexpected message: %s", body["message"])
		}
		json.NewEncoder(w).Encode(map[string]string{"text": "That sounds hard. 💜"})
	})

	text, err := client.Support(context.Background(), "Dae", "I feel overwhelmed")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if text != "That sounds hard. 💜" {
		t.Errorf("Unexpected support text: %s", text)
	}
}

func TestCancelSession(t *testing.T) {
	called := false
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
		if r.URL.Path != "/api/manager/schedule/cancel" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]bool{"ok": true})
	})

	if err := client.CancelSession(context.Background(), "abc123"); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !called {
		t.Error("Expected cancel endpoint to be called")
	}
}
