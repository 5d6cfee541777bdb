package ollama

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/SelahattinNazli/OCR-Service/internal/common"
	"github.com/SelahattinNazli/OCR-Service/internal/llm"
)

// generateResponse is the envelope returned by the generation endpoint. The
// reply text lives either at the top-level "response" key or one level down
// under a list-valued "data" key, depending on the deployment in front of
// the model.
type generateResponse struct {
	Response string `json:"response"`
	Data     []struct {
		Response string `json:"response"`
	} `json:"data"`
}

// Generate sends one blocking request to the generation endpoint and returns
// the textual payload of its reply. Exactly one network attempt per call; a
// transport failure, non-success status, or timeout surfaces as a
// GenerationAPIError. A reply envelope with no recognizable payload is an
// empty string, not an error.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	start := time.Now()

	body := map[string]any{
		"model":  c.cfg.Model,
		"prompt": prompt,
		"stream": false,
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/api/generate"

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	raw, status, err := llm.SendJSON(ctx, c.http, endpoint, body, nil, c.log)
	if err != nil {
		c.log.Error("ollama.generate.failed",
			"model", c.cfg.Model,
			"status", status,
			"error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", &common.GenerationAPIError{Cause: err}
	}

	var env generateResponse
	if err := json.Unmarshal(raw, &env); err != nil {
		c.log.Error("ollama.generate.decode_error",
			"model", c.cfg.Model,
			"raw_bytes", len(raw),
			"error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", &common.GenerationAPIError{Cause: err}
	}

	reply := env.Response
	if reply == "" && len(env.Data) > 0 {
		reply = env.Data[0].Response
	}

	c.log.Info("ollama.generate.ok",
		"model", c.cfg.Model,
		"reply_bytes", len(reply),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return reply, nil
}
