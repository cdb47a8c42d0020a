package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	mcpgo "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/require"

	"github.com/dwesselviax/EstateLogger/constants"
	"github.com/dwesselviax/EstateLogger/internal/common"
	"github.com/dwesselviax/EstateLogger/internal/enrichment"
	"github.com/dwesselviax/EstateLogger/internal/entity"
	"github.com/dwesselviax/EstateLogger/internal/extraction"
	"github.com/dwesselviax/EstateLogger/internal/gate"
	"github.com/dwesselviax/EstateLogger/internal/llm"
	"github.com/dwesselviax/EstateLogger/internal/repository"
	"github.com/dwesselviax/EstateLogger/internal/repository/repotest"
	"github.com/dwesselviax/EstateLogger/internal/services/item"
)

type stubModel struct {
	mu      sync.Mutex
	failing bool
}

func (m *stubModel) ExtractItems(_ context.Context, transcript string) ([]llm.ExtractedItem, []byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return nil, nil, common.UpstreamError("openai returned 503", errors.New("unavailable"))
	}
	return []llm.ExtractedItem{{Name: transcript, Category: "Furniture", Condition: "good"}}, nil, nil
}

func (m *stubModel) EnrichItem(context.Context, llm.ItemContext) (llm.ItemEnrichment, []byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return llm.ItemEnrichment{}, nil, common.UpstreamError("openai returned 503", errors.New("unavailable"))
	}
	low, high := 200.0, 400.0
	return llm.ItemEnrichment{EstimatedValueLow: &low, EstimatedValueHigh: &high, Confidence: "high"}, nil, nil
}

func newTestServer(t *testing.T) (*mcpserver.MCPServer, *repository.Repositories, *stubModel) {
	t.Helper()
	_, repos := repotest.New(t)
	model := &stubModel{}
	enrich := enrichment.NewService(model, repos.Items, repos.Enrichments, nil)
	s := NewServer(Services{
		Extraction:   extraction.NewService(model, repos.Estates, repos.Sessions, repos.Items, nil),
		Enrichment:   enrich,
		Orchestrator: enrichment.NewOrchestrator(enrich, repos.Estates, repos.Items, nil),
		Gate:         gate.NewService(repos.Estates, repos.Items, nil),
		Items:        item.NewService(repos.Items, repos.Enrichments, repos.Images, nil),
	}, "test", nil)
	return s, repos, model
}

func call(t *testing.T, s *mcpserver.MCPServer, tool string, args map[string]any) *mcpgo.CallToolResult {
	t.Helper()
	st := s.GetTool(tool)
	require.NotNil(t, st, tool)
	var req mcpgo.CallToolRequest
	req.Params.Name = tool
	req.Params.Arguments = args
	res, err := st.Handler(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, res)
	return res
}

func text(t *testing.T, res *mcpgo.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	tc, ok := mcpgo.AsTextContent(res.Content[0])
	require.True(t, ok)
	return tc.Text
}

func TestToolsAreRegistered(t *testing.T) {
	t.Parallel()
	s, _, _ := newTestServer(t)
	names := make([]string, 0)
	for name := range s.ListTools() {
		names = append(names, name)
	}
	require.ElementsMatch(t, []string{"extract_items", "enrich_item", "enrich_estate", "publish_estate", "list_items"}, names)
}

func TestCatalogThroughTools(t *testing.T) {
	t.Parallel()
	s, repos, _ := newTestServer(t)
	est := repotest.Estate(t, repos, "Okafor")

	res := call(t, s, "extract_items", map[string]any{"transcript": "oak hall tree", "estate_id": est.ID.String()})
	require.False(t, res.IsError, text(t, res))
	var extracted struct {
		Items []*entity.Item `json:"items"`
	}
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &extracted))
	require.Len(t, extracted.Items, 1)
	require.Equal(t, constants.ItemCaptured, extracted.Items[0].Status)
	itemID := extracted.Items[0].ID

	res = call(t, s, "enrich_estate", map[string]any{"estate_id": est.ID.String()})
	require.True(t, res.IsError, "captured items need confirming first")

	res = call(t, s, "enrich_item", map[string]any{"item_id": itemID.String()})
	require.False(t, res.IsError, text(t, res))
	require.Contains(t, text(t, res), `"confidence":"high"`)

	res = call(t, s, "list_items", map[string]any{"estate_id": est.ID.String(), "status": "enriched"})
	require.False(t, res.IsError)
	var listed struct {
		Items []*entity.ItemWithEnrichment `json:"items"`
	}
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &listed))
	require.Len(t, listed.Items, 1)
	require.NotNil(t, listed.Items[0].Enrichment)

	res = call(t, s, "extract_items", map[string]any{"transcript": "walnut sideboard", "estate_id": est.ID.String()})
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &extracted))
	_, err := gate.NewService(repos.Estates, repos.Items, nil).ConfirmItems(context.Background(), []uuid.UUID{extracted.Items[0].ID})
	require.NoError(t, err)

	res = call(t, s, "enrich_estate", map[string]any{"estate_id": est.ID.String()})
	require.False(t, res.IsError, text(t, res))
	var batch enrichment.Result
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &batch))
	require.Equal(t, 1, batch.Total)
	require.Equal(t, 1, batch.Succeeded)

	res = call(t, s, "publish_estate", map[string]any{"estate_id": est.ID.String()})
	require.False(t, res.IsError)
	require.Equal(t, "published 2 items", text(t, res))
}

func TestToolErrorsAreReportedAsResults(t *testing.T) {
	t.Parallel()
	s, repos, model := newTestServer(t)
	est := repotest.Estate(t, repos, "Brandt")

	res := call(t, s, "enrich_item", map[string]any{})
	require.True(t, res.IsError)

	res = call(t, s, "publish_estate", map[string]any{"estate_id": "nope"})
	require.True(t, res.IsError)
	require.Equal(t, "estate_id must be a valid UUID", text(t, res))

	res = call(t, s, "list_items", map[string]any{"estate_id": est.ID.String(), "status": "sold"})
	require.True(t, res.IsError)

	model.mu.Lock()
	model.failing = true
	model.mu.Unlock()
	res = call(t, s, "extract_items", map[string]any{"transcript": "a brass lamp", "estate_id": est.ID.String()})
	require.True(t, res.IsError)
	require.Equal(t, "AI service failed", text(t, res))
}
