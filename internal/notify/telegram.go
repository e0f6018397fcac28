// Package notify routes scored matches to the user: instant Telegram
// messages with reaction buttons, an end-of-run digest mail, and log-only
// entries for the middle band.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/jobhunter/internal/common"
	"github.com/ternarybob/jobhunter/internal/interfaces"
	"github.com/ternarybob/jobhunter/internal/models"
)

// kv key holding the Telegram getUpdates offset cursor
const updateOffsetKey = "telegram_update_offset"

// Telegram is the synchronous facade over the bot API. When credentials are
// missing every method is a no-op so the pipeline runs unchanged without a
// bot configured.
type Telegram struct {
	config     *common.TelegramConfig
	httpClient *http.Client
	kv         interfaces.KeyValueStorage
	logger     arbor.ILogger
}

// NewTelegram creates the Telegram messenger
func NewTelegram(cfg *common.TelegramConfig, kv interfaces.KeyValueStorage, logger arbor.ILogger) *Telegram {
	return &Telegram{
		config:     cfg,
		httpClient: &http.Client{},
		kv:         kv,
		logger:     logger,
	}
}

// Enabled reports whether bot credentials are configured
func (t *Telegram) Enabled() bool {
	return t.config.BotToken != "" && t.config.ChatID != ""
}

// SendMatch sends the match message with reaction buttons, then the resume
// PDF as a separate document message when one exists.
func (t *Telegram) SendMatch(ctx context.Context, msg *interfaces.MatchMessage) error {
	if !t.Enabled() {
		t.logger.Debug().Msg("Telegram not configured, skipping match message")
		return nil
	}

	keyboard := map[string]interface{}{
		"inline_keyboard": [][]map[string]string{{
			{"text": "✅ Applied", "callback_data": "applied:" + msg.Job.ID},
			{"text": "⏭ Skip", "callback_data": "skip:" + msg.Job.ID},
			{"text": "\U0001f6ab Not relevant", "callback_data": "not_relevant:" + msg.Job.ID},
		}},
	}

	payload := map[string]interface{}{
		"chat_id":      t.config.ChatID,
		"text":         formatMatchText(msg),
		"parse_mode":   "Markdown",
		"reply_markup": keyboard,
	}
	if err := t.call(ctx, "sendMessage", payload); err != nil {
		return fmt.Errorf("failed to send match message: %w", err)
	}

	if msg.PDFPath != "" {
		if err := t.sendDocument(ctx, msg.PDFPath); err != nil {
			// The match message already went out; the attachment is extra
			t.logger.Warn().Str("path", msg.PDFPath).Err(err).Msg("Failed to attach resume PDF")
		}
	}
	return nil
}

// SendHealthAlert sends a plain operational message
func (t *Telegram) SendHealthAlert(ctx context.Context, text string) error {
	if !t.Enabled() {
		t.logger.Debug().Msg("Telegram not configured, skipping health alert")
		return nil
	}
	return t.call(ctx, "sendMessage", map[string]interface{}{
		"chat_id": t.config.ChatID,
		"text":    text,
	})
}

// PollFeedback drains pending button presses: each callback query is parsed
// as action:job_id, acknowledged, and the update cursor advanced past it.
func (t *Telegram) PollFeedback(ctx context.Context) ([]interfaces.FeedbackEvent, error) {
	if !t.Enabled() {
		return nil, nil
	}

	offset, _ := t.kv.Get(ctx, updateOffsetKey)
	payload := map[string]interface{}{"timeout": 0}
	if offset != "" {
		if n, err := strconv.ParseInt(offset, 10, 64); err == nil {
			payload["offset"] = n
		}
	}

	body, err := t.callRaw(ctx, "getUpdates", payload)
	if err != nil {
		return nil, fmt.Errorf("failed to poll updates: %w", err)
	}

	var events []interfaces.FeedbackEvent
	var lastUpdateID int64

	gjson.GetBytes(body, "result").ForEach(func(_, update gjson.Result) bool {
		updateID := update.Get("update_id").Int()
		if updateID > lastUpdateID {
			lastUpdateID = updateID
		}

		callback := update.Get("callback_query")
		if !callback.Exists() {
			return true
		}

		callbackID := callback.Get("id").String()
		if err := t.call(ctx, "answerCallbackQuery", map[string]interface{}{"callback_query_id": callbackID}); err != nil {
			t.logger.Warn().Str("callback_id", callbackID).Err(err).Msg("Failed to acknowledge callback")
		}

		event, ok := parseCallbackData(callback.Get("data").String())
		if !ok {
			t.logger.Warn().Str("data", callback.Get("data").String()).Msg("Unrecognized callback payload")
			return true
		}
		events = append(events, event)
		return true
	})

	if lastUpdateID > 0 {
		if err := t.kv.Set(ctx, updateOffsetKey, strconv.FormatInt(lastUpdateID+1, 10)); err != nil {
			t.logger.Warn().Err(err).Msg("Failed to advance update cursor")
		}
	}
	return events, nil
}

// parseCallbackData splits an action:job_id button payload
func parseCallbackData(data string) (interfaces.FeedbackEvent, bool) {
	action, jobID, found := strings.Cut(data, ":")
	if !found || jobID == "" {
		return interfaces.FeedbackEvent{}, false
	}

	var mapped models.FeedbackAction
	switch action {
	case "applied":
		mapped = models.FeedbackApplied
	case "skip":
		mapped = models.FeedbackSkipped
	case "not_relevant":
		mapped = models.FeedbackNotRelevant
	default:
		return interfaces.FeedbackEvent{}, false
	}
	return interfaces.FeedbackEvent{Action: mapped, JobID: jobID}, true
}

// formatMatchText builds the Markdown body of the match message: score
// header, role line, location and salary, italic reasoning, the prior
// applications warning when the company was seen before, and the listing
// link last.
func formatMatchText(msg *interfaces.MatchMessage) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*Match Score: %d/100*\n\n", msg.Score.Score)
	fmt.Fprintf(&b, "*%s* — %s\n", msg.Job.Title, msg.Job.Company)
	fmt.Fprintf(&b, "%s\n", msg.Job.Location)
	if msg.Job.Salary != "" {
		fmt.Fprintf(&b, "%s\n", msg.Job.Salary)
	}
	if msg.Score.Reasoning != "" {
		fmt.Fprintf(&b, "\n_%s_\n", msg.Score.Reasoning)
	}
	if len(msg.PriorApplications) > 0 {
		b.WriteString("\n⚠️ *Prior applications at this company:*\n")
		for _, app := range msg.PriorApplications {
			fmt.Fprintf(&b, "  • %s (%s)\n", app.Role, app.Status)
		}
	}
	if msg.Job.URL != "" {
		fmt.Fprintf(&b, "\n[View Listing](%s)\n", msg.Job.URL)
	}
	return b.String()
}

// sendDocument uploads a file with a multipart sendDocument request
func (t *Telegram) sendDocument(ctx context.Context, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open document: %w", err)
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if err := writer.WriteField("chat_id", t.config.ChatID); err != nil {
		return err
	}
	part, err := writer.CreateFormFile("document", filepath.Base(path))
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("failed to read document: %w", err)
	}
	if err := writer.Close(); err != nil {
		return err
	}

	url := fmt.Sprintf("%s/bot%s/sendDocument", t.config.BaseURL, t.config.BotToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	return checkBotResponse(resp)
}

// call posts a JSON bot API method and discards the response body
func (t *Telegram) call(ctx context.Context, method string, payload map[string]interface{}) error {
	_, err := t.callRaw(ctx, method, payload)
	return err
}

// callRaw posts a JSON bot API method and returns the response body
func (t *Telegram) callRaw(ctx context.Context, method string, payload map[string]interface{}) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/%s", t.config.BaseURL, t.config.BotToken, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("bot API %s returned status %d: %s", method, resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if ok := gjson.GetBytes(raw, "ok"); ok.Exists() && !ok.Bool() {
		return nil, fmt.Errorf("bot API %s failed: %s", method, gjson.GetBytes(raw, "description").String())
	}
	return raw, nil
}

func checkBotResponse(resp *http.Response) error {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("bot API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if ok := gjson.GetBytes(raw, "ok"); ok.Exists() && !ok.Bool() {
		return fmt.Errorf("bot API failed: %s", gjson.GetBytes(raw, "description").String())
	}
	return nil
}
