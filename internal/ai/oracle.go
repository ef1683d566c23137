// Package ai talks to the external comment-scoring oracle: a chat-style
// completion endpoint returning a verdict plus numeric sub-scores.
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"workguard/internal/httpx"
)

// Verdicts returned by the oracle.
const (
	VerdictPass = "PASS"
	VerdictFail = "FAIL"
)

// ErrContentFiltered marks a request the oracle refused to score. This is
// a "skip this item" signal, never retried and never a violation.
var ErrContentFiltered = errors.New("oracle rejected request (content filter)")

type Config struct {
	URL   string
	Model string

	MaxAttempts  int           // oracle-level attempts on transport failure
	RetryDelay   time.Duration // fixed delay between oracle attempts
	HTTPAttempts int           // attempt budget handed to the HTTP client
}

func (c Config) withDefaults() Config {
	if c.URL == "" {
		c.URL = "https://text.pollinations.ai/openai"
	}
	if c.Model == "" {
		c.Model = "openai"
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 2 * time.Second
	}
	if c.HTTPAttempts <= 0 {
		c.HTTPAttempts = 5
	}
	return c
}

// Request carries the comment plus enough metadata for the oracle to judge
// whether the description plausibly covers the logged hours.
type Request struct {
	Comment  string
	Hours    float64
	Position string
	TaskName string
}

// Result is the oracle's scoring of one comment.
type Result struct {
	RealismScore  int     `json:"realism_score"`
	ConcreteScore int     `json:"concrete_score"`
	TotalScore    float64 `json:"total_score"`
	Verdict       string  `json:"verdict"`
	Reason        string  `json:"reason"`
}

type Client struct {
	cfg    Config
	client *httpx.Client
	log    zerolog.Logger
}

func NewClient(cfg Config, client *httpx.Client, log zerolog.Logger) *Client {
	return &Client{cfg: cfg.withDefaults(), client: client, log: log}
}

// Analyze scores one comment. Transport failures are retried up to
// MaxAttempts with a fixed delay; a content-filter rejection surfaces as
// ErrContentFiltered immediately.
func (c *Client) Analyze(ctx context.Context, req Request) (*Result, error) {
	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		res, err := c.analyzeOnce(ctx, req)
		if err == nil {
			return res, nil
		}
		if errors.Is(err, ErrContentFiltered) || ctx.Err() != nil {
			return nil, err
		}
		lastErr = err
		if attempt < c.cfg.MaxAttempts {
			c.log.Warn().Err(err).Int("attempt", attempt).Int("max", c.cfg.MaxAttempts).Msg("oracle call failed, retrying")
			t := time.NewTimer(c.cfg.RetryDelay)
			select {
			case <-ctx.Done():
				t.Stop()
				return nil, ctx.Err()
			case <-t.C:
			}
		}
	}
	return nil, fmt.Errorf("oracle failed after %d attempts: %w", c.cfg.MaxAttempts, lastErr)
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *Client) analyzeOnce(ctx context.Context, req Request) (*Result, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt(req)},
		},
	})
	if err != nil {
		return nil, err
	}

	h := http.Header{}
	h.Set("Content-Type", "application/json; charset=UTF-8")
	h.Set("Accept", "application/json")

	resp, err := c.client.ExecuteWithRetry(ctx, httpx.Request{
		Method: http.MethodPost,
		URL:    c.cfg.URL,
		Header: h,
		Body:   body,
	}, c.cfg.HTTPAttempts)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusBadRequest {
		return nil, ErrContentFiltered
	}
	if !resp.Success() {
		return nil, fmt.Errorf("oracle status %d", resp.StatusCode)
	}

	return parseResult(resp.Body)
}

// parseResult unwraps choices[0].message.content, itself a JSON document
// carrying the scores and verdict.
func parseResult(body []byte) (*Result, error) {
	var cr chatResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		return nil, fmt.Errorf("oracle response: %w", err)
	}
	if len(cr.Choices) == 0 {
		return nil, errors.New("oracle response: no choices")
	}

	content := strings.TrimSpace(cr.Choices[0].Message.Content)
	// Some backends wrap the JSON in a markdown fence.
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var res Result
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &res); err != nil {
		return nil, fmt.Errorf("oracle verdict payload: %w", err)
	}
	if res.Verdict != VerdictPass && res.Verdict != VerdictFail {
		return nil, fmt.Errorf("oracle verdict payload: unexpected verdict %q", res.Verdict)
	}
	return &res, nil
}
