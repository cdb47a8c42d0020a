package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dwesselviax/EstateLogger/internal/common"
	"github.com/dwesselviax/EstateLogger/internal/llm"
)

type chatCompletion struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// ExtractItems implements llm.ItemExtractor. The transcript is sent as the
// user message; the response must be a JSON array of item objects.
func (c *Client) ExtractItems(ctx context.Context, transcript string) ([]llm.ExtractedItem, []byte, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.log.Info("llm.extract.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"temp", c.cfg.ExtractionTemperature,
		"text_len", len(transcript),
	)

	content, err := c.complete(ctx, rid, "extract", llm.BuildExtractionSystemPrompt(), transcript,
		c.cfg.ExtractionTemperature, c.cfg.ExtractionMaxTokens, "[]")
	if err != nil {
		c.log.Error("llm.extract.http_error", "req_id", rid, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, nil, err
	}

	cleaned := llm.StripCodeFences(content)
	normalized, isArray, dropped, err := llm.NormalizeItemsJSON([]byte(cleaned))
	if err != nil {
		c.log.Error("llm.extract.parse_failed",
			"req_id", rid, "error", err, "content", content,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, []byte(content), common.MalformedError("failed to parse extraction", err)
	}
	if !isArray {
		c.log.Warn("llm.extract.not_array", "req_id", rid, "content", content)
	}
	if len(dropped) > 0 {
		c.log.Warn("llm.extract.lenient_sanitize_applied", "req_id", rid, "dropped", dropped)
	}

	if err := llm.ValidateJSON(c.itemsSchema, normalized); err != nil {
		c.log.Error("llm.extract.schema_validation_failed",
			"req_id", rid, "error", err, "content", content,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, []byte(content), common.MalformedError("extraction does not match schema", err)
	}

	var out []llm.ExtractedItem
	if err := json.Unmarshal(normalized, &out); err != nil {
		c.log.Error("llm.extract.unmarshal_failed", "req_id", rid, "error", err)
		return nil, normalized, common.MalformedError("failed to decode items", err)
	}

	c.log.Info("llm.extract.ok",
		"req_id", rid,
		"items", len(out),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, normalized, nil
}

// EnrichItem implements llm.ItemEnricher.
func (c *Client) EnrichItem(ctx context.Context, item llm.ItemContext) (llm.ItemEnrichment, []byte, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.log.Info("llm.enrich.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"temp", c.cfg.EnrichmentTemperature,
		"item", item.Name,
		"category", item.Category,
	)

	content, err := c.complete(ctx, rid, "enrich", llm.BuildEnrichmentSystemPrompt(), llm.BuildEnrichmentUserPrompt(item),
		c.cfg.EnrichmentTemperature, c.cfg.EnrichmentMaxTokens, "{}")
	if err != nil {
		c.log.Error("llm.enrich.http_error", "req_id", rid, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return llm.ItemEnrichment{}, nil, err
	}

	cleaned := llm.StripCodeFences(content)
	normalized, _, err := llm.NormalizeEnrichmentJSON([]byte(cleaned), c.log.With("req_id", rid))
	if err != nil {
		c.log.Error("llm.enrich.parse_failed",
			"req_id", rid, "error", err, "content", content,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.ItemEnrichment{}, []byte(content), common.MalformedError("failed to parse enrichment", err)
	}
	if err := llm.ValidateJSON(c.enrichmentSchema, normalized); err != nil {
		c.log.Error("llm.enrich.schema_validation_failed",
			"req_id", rid, "error", err, "content", content,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.ItemEnrichment{}, []byte(content), common.MalformedError("enrichment does not match schema", err)
	}

	var out llm.ItemEnrichment
	if err := json.Unmarshal(normalized, &out); err != nil {
		c.log.Error("llm.enrich.unmarshal_failed", "req_id", rid, "error", err)
		return llm.ItemEnrichment{}, normalized, common.MalformedError("failed to decode enrichment", err)
	}

	c.log.Info("llm.enrich.ok",
		"req_id", rid,
		"item", item.Name,
		"confidence", out.Confidence,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, normalized, nil
}

// complete runs one chat completion and returns the first choice's content,
// or fallback when the model returned no choices.
func (c *Client) complete(ctx context.Context, rid, op, system, user string, temp float32, maxTokens int, fallback string) (string, error) {
	body := map[string]any{
		"model":       c.cfg.Model,
		"temperature": temp,
		"max_tokens":  maxTokens,
		"messages": []map[string]any{
			{"role": "system", "content": system},
			{"role": "user", "content": user},
		},
	}
	headers := map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"

	raw, err := llm.SendJSON(ctx, c.httpClient, endpoint, body, headers, rid, c.log)
	if err != nil {
		var se *llm.StatusError
		if errors.As(err, &se) {
			c.log.Error("llm."+op+".upstream_status", "req_id", rid, "status", se.Status, "body", se.Body)
		}
		return "", common.UpstreamError(fmt.Sprintf("%s: chat completion failed", op), err)
	}

	var cc chatCompletion
	if err := json.Unmarshal(raw, &cc); err != nil {
		c.log.Error("llm."+op+".decode_error", "req_id", rid, "error", err, "raw_bytes", len(raw))
		return "", common.MalformedError("decode chat completion", err)
	}
	if len(cc.Choices) == 0 {
		c.log.Warn("llm."+op+".no_choices", "req_id", rid, "raw", string(raw))
		return fallback, nil
	}
	return strings.TrimSpace(cc.Choices[0].Message.Content), nil
}
