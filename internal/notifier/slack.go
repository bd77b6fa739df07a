package notifier

import (
	"bytes"
	"cmp"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/amishk599/autocareer/internal/model"
)

var _ model.Notifier = (*SlackNotifier)(nil)

// jobsPerMessage keeps each digest well under Slack's 50 block limit.
const jobsPerMessage = 20

// SlackNotifier posts a digest of newly added jobs to an Incoming Webhook.
type SlackNotifier struct {
	webhookURL string
	httpClient *http.Client
	logger     *slog.Logger
	sleep      func(time.Duration)
}

func NewSlackNotifier(webhookURL string, httpClient *http.Client, logger *slog.Logger) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		httpClient: httpClient,
		logger:     logger,
		sleep:      time.Sleep,
	}
}

// Notify sends the jobs as one or more digest messages, best score first.
// It returns an error only if every message fails.
func (s *SlackNotifier) Notify(jobs []model.Job) error {
	if len(jobs) == 0 {
		return nil
	}

	sorted := byScore(jobs)
	var chunks [][]model.Job
	for chunk := range slices.Chunk(sorted, jobsPerMessage) {
		chunks = append(chunks, chunk)
	}

	failures := 0
	for i, chunk := range chunks {
		if i > 0 {
			s.sleep(time.Second)
		}
		payload := buildDigest(chunk, len(sorted), i+1, len(chunks))
		if err := s.post(payload); err != nil {
			s.logger.Error("slack digest failed", "part", i+1, "jobs", len(chunk), "error", err)
			failures++
		}
	}

	if failures == len(chunks) {
		return fmt.Errorf("all %d slack messages failed", failures)
	}
	s.logger.Info("slack digest sent", "jobs", len(sorted), "messages", len(chunks)-failures, "failed", failures)
	return nil
}

// post sends one payload, retrying once after a 429.
func (s *SlackNotifier) post(payload slackPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	for attempt := 0; ; attempt++ {
		resp, err := s.httpClient.Post(s.webhookURL, "application/json", bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("post to slack: %w", err)
		}
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
			return nil
		case resp.StatusCode == http.StatusTooManyRequests && attempt == 0:
			secs, _ := strconv.Atoi(resp.Header.Get("Retry-After"))
			if secs <= 0 {
				secs = 1
			}
			s.logger.Warn("slack rate limited, retrying", "retry_after_secs", secs)
			s.sleep(time.Duration(secs) * time.Second)
		default:
			return fmt.Errorf("slack returned %d", resp.StatusCode)
		}
	}
}

// Block Kit payload types.

type slackPayload struct {
	Text   string       `json:"text"`
	Blocks []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type      string          `json:"type"`
	Text      *slackText      `json:"text,omitempty"`
	Accessory *slackAccessory `json:"accessory,omitempty"`
	Elements  []slackText     `json:"elements,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type slackAccessory struct {
	Type string    `json:"type"`
	Text slackText `json:"text"`
	URL  string    `json:"url"`
}

// SendTestMessage sends a sample match to verify the integration.
func SendTestMessage(n model.Notifier) error {
	return n.Notify([]model.Job{{
		Company:   "Autocareer",
		Title:     "Test notification",
		URL:       "https://example.com/jobs/test",
		Score:     model.IntPtr(100),
		Status:    model.StatusSuggested,
		CreatedAt: time.Now(),
	}})
}

func buildDigest(jobs []model.Job, total, part, parts int) slackPayload {
	title := fmt.Sprintf("%d new job match", total)
	if total != 1 {
		title += "es"
	}
	if parts > 1 {
		title += fmt.Sprintf(" (%d/%d)", part, parts)
	}

	blocks := []slackBlock{{
		Type: "header",
		Text: &slackText{Type: "plain_text", Text: title},
	}}
	for _, j := range jobs {
		blocks = append(blocks, slackBlock{
			Type: "section",
			Text: &slackText{Type: "mrkdwn", Text: jobLine(j)},
			Accessory: &slackAccessory{
				Type: "button",
				Text: slackText{Type: "plain_text", Text: "Open"},
				URL:  j.URL,
			},
		})
	}
	blocks = append(blocks, slackBlock{Type: "divider"})

	return slackPayload{Text: title, Blocks: blocks}
}

func jobLine(j model.Job) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*<%s|%s>*", j.URL, escape(j.Title))
	if j.Company != "" {
		fmt.Fprintf(&b, "\n%s", escape(j.Company))
	}
	if j.Score != nil {
		fmt.Fprintf(&b, "\nScore: *%d*/100", *j.Score)
	}
	return b.String()
}

// escape applies Slack's mrkdwn control character escaping.
func escape(s string) string {
	return strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;").Replace(s)
}

// byScore returns a copy of jobs ordered by descending score; unscored jobs
// sort last.
func byScore(jobs []model.Job) []model.Job {
	out := slices.Clone(jobs)
	slices.SortStableFunc(out, func(a, b model.Job) int {
		return cmp.Compare(scoreOf(b), scoreOf(a))
	})
	return out
}

func scoreOf(j model.Job) int {
	if j.Score == nil {
		return -1
	}
	return *j.Score
}
