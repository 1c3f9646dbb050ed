package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/calmloop/voicejournal/internal/audio"
	"github.com/calmloop/voicejournal/internal/insight"
	"github.com/calmloop/voicejournal/internal/models"
	"github.com/calmloop/voicejournal/internal/session"
	"github.com/calmloop/voicejournal/internal/ws"
)

type scriptedAnalyzer struct {
	entries func(sessionID string) []models.SegmentEntry
	err     error
}

func (s scriptedAnalyzer) Name() string { return "scripted" }

func (s scriptedAnalyzer) Analyze(_ context.Context, sessionID string, _ *audio.Clip, _ string) ([]models.SegmentEntry, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.entries == nil {
		return nil, nil
	}
	return s.entries(sessionID), nil
}

func newTestServer(t *testing.T, anlz session.Analyzer) *httptest.Server {
	t.Helper()
	store := session.NewMemoryStore()
	svc := session.NewService(store, anlz, insight.NewGenerator(nil), t.TempDir())
	mux := http.NewServeMux()
	registerRoutes(mux, deps{svc: svc, wsHandler: ws.NewHandler(svc, 4)})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func wavPayload(t *testing.T, seconds float64) []byte {
	t.Helper()
	path, err := audio.WriteTempWAV(make([]float32, int(seconds*16000)), 16000)
	if err != nil {
		t.Fatalf("write wav: %v", err)
	}
	defer os.Remove(path)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read wav: %v", err)
	}
	return data
}

func createSession(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	body := bytes.NewBufferString(`{"owner": "ada", "title": "morning walk"}`)
	resp, err := http.Post(srv.URL+"/api/sessions", "application/json", body)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d", resp.StatusCode)
	}
	var sess models.Session
	if err := json.NewDecoder(resp.Body).Decode(&sess); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return sess.ID
}

func uploadAudio(t *testing.T, srv *httptest.Server, id string, data []byte) *http.Response {
	t.Helper()
	resp, err := http.Post(srv.URL+"/api/sessions/"+id+"/audio", "audio/wav", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	return resp
}

func waitForTerminal(t *testing.T, srv *httptest.Server, id string) models.Session {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, err := http.Get(srv.URL + "/api/sessions/" + id + "/result")
		if err != nil {
			t.Fatalf("result: %v", err)
		}
		var sess models.Session
		json.NewDecoder(resp.Body).Decode(&sess)
		resp.Body.Close()
		if sess.Status.Terminal() {
			return sess
		}
		if time.Now().After(deadline) {
			t.Fatalf("session %s never reached a terminal state (status %s)", id, sess.Status)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestCreateUploadAndPoll(t *testing.T) {
	anlz := scriptedAnalyzer{entries: func(sessionID string) []models.SegmentEntry {
		return []models.SegmentEntry{{
			ID: "e1", SessionID: sessionID, StartTime: 0,
			Transcript: "walked by the river",
			Emotions:   map[string]float64{"joy": 0.75},
			Intensity:  0.6, SentimentScore: 0.75,
			IsSpike: true, SpikeType: "positive",
		}}
	}}
	srv := newTestServer(t, anlz)
	id := createSession(t, srv)

	resp := uploadAudio(t, srv, id, wavPayload(t, 5))
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("upload status = %d, want 202", resp.StatusCode)
	}

	sess := waitForTerminal(t, srv, id)
	if sess.Status != models.StatusCompleted {
		t.Fatalf("status = %s, want COMPLETED (reason %q)", sess.Status, sess.FailureReason)
	}
	if sess.Transcript != "walked by the river" {
		t.Errorf("transcript = %q", sess.Transcript)
	}
	if sess.OverallSentiment == nil || sess.OverallSentiment.DominantEmotion != "joy" {
		t.Errorf("overall = %+v", sess.OverallSentiment)
	}
	if len(sess.EmotionSpikes) != 1 {
		t.Errorf("spikes = %+v", sess.EmotionSpikes)
	}

	entriesResp, err := http.Get(srv.URL + "/api/sessions/" + id + "/entries")
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	defer entriesResp.Body.Close()
	var entriesBody struct {
		Count int `json:"count"`
	}
	json.NewDecoder(entriesResp.Body).Decode(&entriesBody)
	if entriesBody.Count != 1 {
		t.Errorf("entry count = %d, want 1", entriesBody.Count)
	}
}

func TestUploadRejectsBadPayloads(t *testing.T) {
	srv := newTestServer(t, scriptedAnalyzer{})
	id := createSession(t, srv)

	resp, err := http.Post(srv.URL+"/api/sessions/"+id+"/audio", "text/plain", bytes.NewBufferString("hi"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("non-audio upload status = %d, want 400", resp.StatusCode)
	}

	resp = uploadAudio(t, srv, id, []byte("not audio at all"))
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("garbage upload status = %d, want 400", resp.StatusCode)
	}
}

func TestSecondUploadConflicts(t *testing.T) {
	srv := newTestServer(t, scriptedAnalyzer{})
	id := createSession(t, srv)
	data := wavPayload(t, 2)

	resp := uploadAudio(t, srv, id, data)
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("first upload status = %d", resp.StatusCode)
	}

	waitForTerminal(t, srv, id)
	resp = uploadAudio(t, srv, id, data)
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("second upload status = %d, want 409", resp.StatusCode)
	}
}

func TestShortRecordingCompletesNeutral(t *testing.T) {
	srv := newTestServer(t, scriptedAnalyzer{})
	id := createSession(t, srv)

	resp := uploadAudio(t, srv, id, wavPayload(t, 0.5))
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("upload status = %d", resp.StatusCode)
	}

	sess := waitForTerminal(t, srv, id)
	if sess.Status != models.StatusCompleted {
		t.Fatalf("status = %s, want COMPLETED", sess.Status)
	}
	if sess.OverallSentiment == nil || sess.OverallSentiment.DominantEmotion != "neutral" {
		t.Errorf("overall = %+v, want neutral", sess.OverallSentiment)
	}
	if sess.SuggestedExercise != "Gentle Calm Breathing" {
		t.Errorf("suggested exercise = %q", sess.SuggestedExercise)
	}
}

func TestListAndDelete(t *testing.T) {
	srv := newTestServer(t, scriptedAnalyzer{})
	id := createSession(t, srv)
	createSession(t, srv)

	resp, err := http.Get(srv.URL + "/api/sessions?owner=ada")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var listBody struct {
		Count int `json:"count"`
	}
	json.NewDecoder(resp.Body).Decode(&listBody)
	resp.Body.Close()
	if listBody.Count != 2 {
		t.Errorf("list count = %d, want 2", listBody.Count)
	}

	req, _ := http.NewRequest("DELETE", srv.URL+"/api/sessions/"+id, nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("delete status = %d, want 204", resp.StatusCode)
	}

	resp, _ = http.Get(srv.URL + "/api/sessions/" + id)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", resp.StatusCode)
	}
}

func TestResultWhileRecording(t *testing.T) {
	srv := newTestServer(t, scriptedAnalyzer{})
	id := createSession(t, srv)

	resp, err := http.Get(srv.URL + "/api/sessions/" + id + "/result")
	if err != nil {
		t.Fatalf("result: %v", err)
	}
	defer resp.Body.Close()
	var body struct {
		Status models.Status `json:"status"`
	}
	json.NewDecoder(resp.Body).Decode(&body)
	if body.Status != models.StatusRecording {
		t.Errorf("status = %s, want RECORDING", body.Status)
	}
}
