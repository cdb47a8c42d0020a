package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dwesselviax/EstateLogger/internal/common"
	"github.com/dwesselviax/EstateLogger/internal/llm"
)

func fakeCompletions(t *testing.T, status int, content string, seen func(body map[string]any)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if seen != nil {
			seen(body)
		}
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":"overloaded"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]any{"content": content}}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(url string) *Client {
	return NewClient(Config{
		APIKey:                "sk-test",
		BaseURL:               url,
		ExtractionTemperature: 0.1,
		EnrichmentTemperature: 0.2,
	}, nil)
}

func TestExtractItemsParsesFencedArray(t *testing.T) {
	t.Parallel()

	content := "```json\n" + `[{"name":"Mahogany Bookcase","description":"Six feet tall","category":"Furniture","condition":"good","location":"Living Room"}]` + "\n```"
	var sent map[string]any
	srv := fakeCompletions(t, http.StatusOK, content, func(b map[string]any) { sent = b })

	items, raw, err := newTestClient(srv.URL).ExtractItems(context.Background(), "a mahogany bookcase in the living room")
	require.NoError(t, err)
	require.NotEmpty(t, raw)
	require.Len(t, items, 1)
	require.Equal(t, "Mahogany Bookcase", items[0].Name)
	require.Equal(t, "Living Room", *items[0].Location)

	require.Equal(t, "deepseek-chat", sent["model"])
	require.InDelta(t, 0.1, sent["temperature"], 1e-6)
	require.EqualValues(t, 4096, sent["max_tokens"])
}

func TestExtractItemsNonArrayIsEmpty(t *testing.T) {
	t.Parallel()

	srv := fakeCompletions(t, http.StatusOK, `{"note":"nothing here"}`, nil)
	items, _, err := newTestClient(srv.URL).ExtractItems(context.Background(), "hello")
	require.NoError(t, err)
	require.Empty(t, items)
}

func TestExtractItemsMalformed(t *testing.T) {
	t.Parallel()

	srv := fakeCompletions(t, http.StatusOK, `Sure! Here are the items: bookcase`, nil)
	_, raw, err := newTestClient(srv.URL).ExtractItems(context.Background(), "bookcase")
	require.ErrorIs(t, err, common.ErrMalformedResponse)
	require.Contains(t, string(raw), "Sure!")

	srv = fakeCompletions(t, http.StatusOK, `[{"category":"Furniture"}]`, nil)
	_, _, err = newTestClient(srv.URL).ExtractItems(context.Background(), "bookcase")
	require.ErrorIs(t, err, common.ErrMalformedResponse)
}

func TestUpstreamFailureIsClassified(t *testing.T) {
	t.Parallel()

	srv := fakeCompletions(t, http.StatusServiceUnavailable, "", nil)
	_, _, err := newTestClient(srv.URL).ExtractItems(context.Background(), "bookcase")
	require.ErrorIs(t, err, common.ErrUpstream)

	var se *llm.StatusError
	require.ErrorAs(t, err, &se)
	require.Equal(t, http.StatusServiceUnavailable, se.Status)

	_, _, err = newTestClient("http://127.0.0.1:1").EnrichItem(context.Background(), llm.ItemContext{Name: "x"})
	require.ErrorIs(t, err, common.ErrUpstream)
}

func TestEnrichItem(t *testing.T) {
	t.Parallel()

	content := `{"product_match":"Stickley Mission bookcase","manufacturer":"Stickley","estimated_value_low":400,"estimated_value_high":"$900","recommended_start_bid":250,"enhanced_description":"A handsome bookcase.","notable_details":"Quartersawn oak","confidence":"High"}`
	var sent map[string]any
	srv := fakeCompletions(t, http.StatusOK, content, func(b map[string]any) { sent = b })

	got, _, err := newTestClient(srv.URL).EnrichItem(context.Background(), llm.ItemContext{Name: "Bookcase", Category: "Furniture"})
	require.NoError(t, err)
	require.Equal(t, "Stickley", *got.Manufacturer)
	require.InDelta(t, 900.0, *got.EstimatedValueHigh, 1e-9)
	require.Equal(t, "high", got.Confidence)

	require.EqualValues(t, 2048, sent["max_tokens"])
	msgs := sent["messages"].([]any)
	user := msgs[1].(map[string]any)["content"].(string)
	require.Contains(t, user, "Description: No description")
}

func TestEnrichItemMalformed(t *testing.T) {
	t.Parallel()

	srv := fakeCompletions(t, http.StatusOK, `[1,2,3]`, nil)
	_, _, err := newTestClient(srv.URL).EnrichItem(context.Background(), llm.ItemContext{Name: "x"})
	require.ErrorIs(t, err, common.ErrMalformedResponse)
}
