package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joseph-ayodele/form-filler/internal/common"
	"github.com/joseph-ayodele/form-filler/internal/llm"
)

var _ llm.Completer = (*Client)(nil)

// Complete implements llm.Completer using chat/completions.
// Transport errors, 429 and 5xx responses are retried with exponential backoff.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.logger.Debug("llm.complete.start",
		"req_id", rid,
		"run_id", common.RunIDFromContext(ctx),
		"model", c.cfg.Model,
		"deployment", c.cfg.Deployment,
		"temp", c.cfg.Temperature,
		"prompt_len", len(systemPrompt)+len(userPrompt),
	)

	body := map[string]any{
		"temperature": c.cfg.Temperature,
		"messages": []map[string]any{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": userPrompt},
		},
	}
	if c.cfg.Deployment == "" {
		body["model"] = c.cfg.Model
	}

	endpoint, headers := c.endpoint()
	headers["X-Request-Id"] = rid
	var lastErr error
	backoff := c.cfg.RetryBackoff
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			c.logger.Warn("llm.complete.retry", "req_id", rid, "attempt", attempt, "error", lastErr, "backoff_ms", backoff.Milliseconds())
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		raw, status, err := llm.SendJSON(ctx, c.http, endpoint, body, headers, c.logger)
		if err != nil {
			lastErr = fmt.Errorf("openai status %d: %w", status, err)
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			if !retryable(status) {
				break
			}
			continue
		}

		content, err := decodeContent(raw)
		if err != nil {
			c.logger.Error("llm.complete.decode_error",
				"req_id", rid, "error", err, "raw_bytes", len(raw),
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return "", err
		}
		c.logger.Debug("llm.complete.ok",
			"req_id", rid,
			"attempts", attempt+1,
			"content_len", len(content),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return content, nil
	}

	c.logger.Error("llm.complete.failed",
		"req_id", rid, "error", lastErr,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return "", lastErr
}

func (c *Client) endpoint() (string, map[string]string) {
	base := strings.TrimRight(c.cfg.BaseURL, "/")
	if c.cfg.Deployment != "" {
		u := fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
			base, url.PathEscape(c.cfg.Deployment), url.QueryEscape(c.cfg.APIVersion))
		return u, map[string]string{"api-key": c.cfg.APIKey}
	}
	return base + "/chat/completions", map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}
}

// retryable reports whether a failed call may succeed on retry; status 0 means a transport error.
func retryable(status int) bool {
	return status == 0 || status == 429 || status >= 500
}

func decodeContent(raw []byte) (string, error) {
	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		return "", fmt.Errorf("decode openai response: %w", err)
	}
	if len(cc.Choices) == 0 {
		return "", errors.New("no choices in openai response")
	}
	return strings.TrimSpace(cc.Choices[0].Message.Content), nil
}
