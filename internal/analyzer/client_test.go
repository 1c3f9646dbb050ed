package analyzer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func tempWAVFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "window.wav")
	if err := os.WriteFile(path, []byte("RIFFdata"), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func TestASRClientTranscribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transcribe" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		if _, _, err := r.FormFile("file"); err != nil {
			t.Errorf("file part missing: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]string{"text": "hello world"})
	}))
	defer srv.Close()

	c := NewASRClient(srv.URL, 2)
	got, err := c.Transcribe(context.Background(), tempWAVFile(t))
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if got != "hello world" {
		t.Errorf("text = %q", got)
	}
}

func TestASRClientErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewASRClient(srv.URL, 2)
	_, err := c.Transcribe(context.Background(), tempWAVFile(t))
	if err == nil || !strings.Contains(err.Error(), "asr status 503") {
		t.Fatalf("err = %v, want status error", err)
	}
}

func TestTextScoreClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/analyze" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var req map[string]string
		json.NewDecoder(r.Body).Decode(&req)
		if req["text"] != "a good day" {
			t.Errorf("text = %q", req["text"])
		}
		json.NewEncoder(w).Encode(TextScore{
			Emotions:       map[string]float64{"joy": 0.7},
			SentimentScore: 0.5,
			SentimentLabel: "positive",
			Themes:         []string{"gratitude"},
		})
	}))
	defer srv.Close()

	c := NewTextScoreClient(srv.URL, 2)
	got, err := c.Score(context.Background(), "a good day")
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if got.Emotions["joy"] != 0.7 || got.SentimentLabel != "positive" {
		t.Errorf("score = %+v", got)
	}
}

func TestTextScoreClientNilEmotions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"sentiment_score": 0}`))
	}))
	defer srv.Close()

	c := NewTextScoreClient(srv.URL, 2)
	got, err := c.Score(context.Background(), "anything")
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if got.Emotions == nil {
		t.Error("emotions map is nil")
	}
}

func TestProsodyClientRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Hume-Api-Key") != "k123" {
			t.Errorf("api key header = %q", r.Header.Get("X-Hume-Api-Key"))
		}
		switch {
		case r.Method == "POST" && r.URL.Path == "/":
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				t.Errorf("parse multipart: %v", err)
			}
			var cfg map[string]any
			if err := json.Unmarshal([]byte(r.FormValue("json")), &cfg); err != nil {
				t.Errorf("config part not json: %v", err)
			}
			if _, ok := cfg["models"]; !ok {
				t.Error("config missing models block")
			}
			json.NewEncoder(w).Encode(map[string]string{"job_id": "job-9"})
		case r.Method == "GET" && r.URL.Path == "/job-9":
			w.Write([]byte(`{"state": {"status": "COMPLETED"}}`))
		case r.Method == "GET" && r.URL.Path == "/job-9/predictions":
			w.Write([]byte(`[]`))
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewProsodyClient(srv.URL, "k123", 2)
	ctx := context.Background()

	jobID, err := c.SubmitJob(ctx, tempWAVFile(t))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if jobID != "job-9" {
		t.Errorf("job id = %q", jobID)
	}

	status, err := c.GetStatus(ctx, jobID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.Status != "COMPLETED" {
		t.Errorf("status = %q", status.Status)
	}

	raw, err := c.GetPredictions(ctx, jobID)
	if err != nil {
		t.Fatalf("predictions: %v", err)
	}
	if string(raw) != "[]" {
		t.Errorf("predictions = %q", raw)
	}
}
