package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/jobhunter/internal/common"
	"github.com/ternarybob/jobhunter/internal/interfaces"
	"github.com/ternarybob/jobhunter/internal/models"
)

// fakeKV is an in-memory KeyValueStorage
type fakeKV struct {
	values map[string]string
}

func newFakeKV() *fakeKV { return &fakeKV{values: map[string]string{}} }

func (f *fakeKV) Get(_ context.Context, key string) (string, error) { return f.values[key], nil }
func (f *fakeKV) Set(_ context.Context, key, value string) error {
	f.values[key] = value
	return nil
}

func TestParseCallbackData(t *testing.T) {
	tests := []struct {
		data       string
		wantAction models.FeedbackAction
		wantJobID  string
		wantOK     bool
	}{
		{"applied:abc123", models.FeedbackApplied, "abc123", true},
		{"skip:abc123", models.FeedbackSkipped, "abc123", true},
		{"not_relevant:abc123", models.FeedbackNotRelevant, "abc123", true},
		{"unknown:abc123", "", "", false},
		{"applied:", "", "", false},
		{"garbage", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.data, func(t *testing.T) {
			event, ok := parseCallbackData(tt.data)
			assert.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, tt.wantAction, event.Action)
				assert.Equal(t, tt.wantJobID, event.JobID)
			}
		})
	}
}

func TestTelegramDisabledIsNoOp(t *testing.T) {
	tg := NewTelegram(&common.TelegramConfig{}, newFakeKV(), common.GetLogger())
	assert.False(t, tg.Enabled())

	require.NoError(t, tg.SendMatch(context.Background(), &interfaces.MatchMessage{
		Job:   &models.Job{ID: "x"},
		Score: &models.ScoredJob{Score: 90},
	}))
	require.NoError(t, tg.SendHealthAlert(context.Background(), "test"))

	events, err := tg.PollFeedback(context.Background())
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestSendMatchPayload(t *testing.T) {
	var sent map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/bottoken123/sendMessage", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &sent))
		w.Write([]byte(`{"ok": true}`))
	}))
	defer server.Close()

	tg := NewTelegram(&common.TelegramConfig{BotToken: "token123", ChatID: "42", BaseURL: server.URL}, newFakeKV(), common.GetLogger())

	msg := &interfaces.MatchMessage{
		Job: &models.Job{
			ID: "jobid1", Title: "Cloud Architect", Company: "Acme", Location: "Sydney",
			URL: "https://example.com/jobs/1",
		},
		Score: &models.ScoredJob{Score: 87, Reasoning: "Strong skills overlap"},
		PriorApplications: []*models.Application{
			{Role: "Platform Engineer", Status: models.StatusRejected},
		},
	}
	require.NoError(t, tg.SendMatch(context.Background(), msg))

	text := sent["text"].(string)
	assert.Contains(t, text, "*Match Score: 87/100*")
	assert.Contains(t, text, "*Cloud Architect* — Acme")
	assert.Contains(t, text, "_Strong skills overlap_")
	assert.Contains(t, text, "⚠️ *Prior applications at this company:*")
	assert.Contains(t, text, "  • Platform Engineer (rejected)")

	markup, _ := json.Marshal(sent["reply_markup"])
	assert.Contains(t, string(markup), "applied:jobid1")
	assert.Contains(t, string(markup), "skip:jobid1")
	assert.Contains(t, string(markup), "not_relevant:jobid1")
}

func TestFormatMatchTextLayout(t *testing.T) {
	msg := &interfaces.MatchMessage{
		Job: &models.Job{
			Title: "Go Engineer", Company: "Acme", Location: "Sydney",
			Salary: "$180k", URL: "https://example.com/jobs/1",
		},
		Score: &models.ScoredJob{Score: 91, Reasoning: "Deep Go background"},
		PriorApplications: []*models.Application{
			{Role: "Platform Engineer", Status: models.StatusRejected},
		},
	}

	want := "*Match Score: 91/100*\n\n" +
		"*Go Engineer* — Acme\n" +
		"Sydney\n" +
		"$180k\n" +
		"\n_Deep Go background_\n" +
		"\n⚠️ *Prior applications at this company:*\n" +
		"  • Platform Engineer (rejected)\n" +
		"\n[View Listing](https://example.com/jobs/1)\n"
	assert.Equal(t, want, formatMatchText(msg))
}

func TestFormatMatchTextOmitsEmptySections(t *testing.T) {
	msg := &interfaces.MatchMessage{
		Job:   &models.Job{Title: "Go Engineer", Company: "Acme", Location: "Sydney"},
		Score: &models.ScoredJob{Score: 82},
	}

	text := formatMatchText(msg)
	assert.Equal(t, "*Match Score: 82/100*\n\n*Go Engineer* — Acme\nSydney\n", text)
	assert.NotContains(t, text, "⚠️")
	assert.NotContains(t, text, "View Listing")
}

func TestPollFeedbackAdvancesCursor(t *testing.T) {
	var acked []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/bottoken123/getUpdates":
			w.Write([]byte(`{"ok": true, "result": [
				{"update_id": 10, "callback_query": {"id": "cb1", "data": "applied:job-a"}},
				{"update_id": 11, "message": {"text": "not a button"}},
				{"update_id": 12, "callback_query": {"id": "cb2", "data": "skip:job-b"}}
			]}`))
		case "/bottoken123/answerCallbackQuery":
			body, _ := io.ReadAll(r.Body)
			var payload map[string]string
			json.Unmarshal(body, &payload)
			acked = append(acked, payload["callback_query_id"])
			w.Write([]byte(`{"ok": true}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	kv := newFakeKV()
	tg := NewTelegram(&common.TelegramConfig{BotToken: "token123", ChatID: "42", BaseURL: server.URL}, kv, common.GetLogger())

	events, err := tg.PollFeedback(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, models.FeedbackApplied, events[0].Action)
	assert.Equal(t, "job-a", events[0].JobID)
	assert.Equal(t, models.FeedbackSkipped, events[1].Action)

	assert.Equal(t, []string{"cb1", "cb2"}, acked)
	assert.Equal(t, "13", kv.values[updateOffsetKey], "cursor advanced past the last update")
}
