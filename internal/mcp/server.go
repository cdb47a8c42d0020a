// Package mcp exposes the catalog pipeline as MCP tools for agent clients.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	mcpgo "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/dwesselviax/EstateLogger/constants"
	"github.com/dwesselviax/EstateLogger/internal/common"
	"github.com/dwesselviax/EstateLogger/internal/enrichment"
	"github.com/dwesselviax/EstateLogger/internal/extraction"
	"github.com/dwesselviax/EstateLogger/internal/gate"
	"github.com/dwesselviax/EstateLogger/internal/services/item"
)

const serverName = "estate-logger"

// Services are the domain services the tools call.
type Services struct {
	Extraction   *extraction.Service
	Enrichment   *enrichment.Service
	Orchestrator *enrichment.Orchestrator
	Gate         *gate.Service
	Items        *item.Service
}

type toolbox struct {
	svc    Services
	logger *slog.Logger
}

// NewServer registers the catalog tools on a new MCP server.
func NewServer(svc Services, version string, logger *slog.Logger) *mcpserver.MCPServer {
	if logger == nil {
		logger = slog.Default()
	}
	tb := &toolbox{svc: svc, logger: logger}
	s := mcpserver.NewMCPServer(serverName, version,
		mcpserver.WithToolCapabilities(false),
		mcpserver.WithRecovery(),
		mcpserver.WithInstructions("Catalog estate-sale items: extract items from spoken descriptions, enrich them with market estimates, and publish the estate."),
	)

	s.AddTool(mcpgo.NewTool("extract_items",
		mcpgo.WithDescription("Extract and store the items described in a transcript of an estate walkthrough."),
		mcpgo.WithString("transcript", mcpgo.Required(), mcpgo.Description("Spoken description of one or more items")),
		mcpgo.WithString("estate_id", mcpgo.Required(), mcpgo.Description("Estate UUID")),
		mcpgo.WithString("session_id", mcpgo.Description("Capture session UUID, if any")),
	), tb.extractItems)

	s.AddTool(mcpgo.NewTool("enrich_item",
		mcpgo.WithDescription("Look up market intelligence for one item and store it, replacing any previous enrichment."),
		mcpgo.WithString("item_id", mcpgo.Required(), mcpgo.Description("Item UUID")),
	), tb.enrichItem)

	s.AddTool(mcpgo.NewTool("enrich_estate",
		mcpgo.WithDescription("Enrich every eligible item of an estate, one at a time, and report how many succeeded."),
		mcpgo.WithString("estate_id", mcpgo.Required(), mcpgo.Description("Estate UUID")),
	), tb.enrichEstate)

	s.AddTool(mcpgo.NewTool("publish_estate",
		mcpgo.WithDescription("Publish all confirmed and enriched items of an estate and mark the estate published."),
		mcpgo.WithString("estate_id", mcpgo.Required(), mcpgo.Description("Estate UUID")),
	), tb.publishEstate)

	s.AddTool(mcpgo.NewTool("list_items",
		mcpgo.WithDescription("List an estate's items with their enrichment."),
		mcpgo.WithReadOnlyHintAnnotation(true),
		mcpgo.WithString("estate_id", mcpgo.Required(), mcpgo.Description("Estate UUID")),
		mcpgo.WithString("status", mcpgo.Description("Comma-separated statuses to include")),
		mcpgo.WithString("category", mcpgo.Enum(constants.AsStringSlice()...), mcpgo.Description("Only this category")),
		mcpgo.WithString("query", mcpgo.Description("Case-insensitive search over name, description, category and location")),
	), tb.listItems)

	return s
}

// ServeStdio blocks serving s over stdin/stdout.
func ServeStdio(s *mcpserver.MCPServer) error {
	return mcpserver.ServeStdio(s)
}

func (tb *toolbox) extractItems(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	transcript := req.GetString("transcript", "")
	estateID, err := requireUUID(req, "estate_id")
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}
	r := extraction.Request{Transcript: transcript, EstateID: estateID}
	if raw := strings.TrimSpace(req.GetString("session_id", "")); raw != "" {
		sid, err := uuid.Parse(raw)
		if err != nil {
			return mcpgo.NewToolResultError("session_id must be a valid UUID"), nil
		}
		r.SessionID = &sid
	}
	items, err := tb.svc.Extraction.Extract(ctx, r)
	if err != nil {
		return tb.fail(ctx, "extract_items", err), nil
	}
	return mcpgo.NewToolResultJSON(map[string]any{"items": items})
}

func (tb *toolbox) enrichItem(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	id, err := requireUUID(req, "item_id")
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}
	e, err := tb.svc.Enrichment.EnrichItem(ctx, id)
	if err != nil {
		return tb.fail(ctx, "enrich_item", err), nil
	}
	return mcpgo.NewToolResultJSON(map[string]any{"enrichment": e})
}

func (tb *toolbox) enrichEstate(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	id, err := requireUUID(req, "estate_id")
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}
	res, err := tb.svc.Orchestrator.EnrichEstate(ctx, id, nil)
	if err != nil {
		return tb.fail(ctx, "enrich_estate", err), nil
	}
	return mcpgo.NewToolResultJSON(res)
}

func (tb *toolbox) publishEstate(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	id, err := requireUUID(req, "estate_id")
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}
	n, err := tb.svc.Gate.PublishEstate(ctx, id)
	if err != nil {
		return tb.fail(ctx, "publish_estate", err), nil
	}
	return mcpgo.NewToolResultText(fmt.Sprintf("published %d items", n)), nil
}

func (tb *toolbox) listItems(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	id, err := requireUUID(req, "estate_id")
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}
	var statuses []string
	if raw := req.GetString("status", ""); raw != "" {
		statuses = strings.Split(raw, ",")
	}
	items, err := tb.svc.Items.ListItems(ctx, id, item.ListQuery{
		Statuses: statuses,
		Category: req.GetString("category", ""),
		Search:   req.GetString("query", ""),
	})
	if err != nil {
		return tb.fail(ctx, "list_items", err), nil
	}
	return mcpgo.NewToolResultJSON(map[string]any{"items": items})
}

// fail reports err to the agent as a tool error; the call itself succeeds.
func (tb *toolbox) fail(ctx context.Context, tool string, err error) *mcpgo.CallToolResult {
	common.LoggerFrom(ctx, tb.logger).Warn("mcp.tool_failed", "tool", tool, "error", err)
	return mcpgo.NewToolResultError(common.PublicMessage(err))
}

func requireUUID(req mcpgo.CallToolRequest, key string) (uuid.UUID, error) {
	raw, err := req.RequireString(key)
	if err != nil {
		return uuid.Nil, err
	}
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s must be a valid UUID", key)
	}
	return id, nil
}
