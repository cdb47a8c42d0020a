package cli

import (
	"github.com/spf13/cobra"

	"github.com/dwesselviax/EstateLogger/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the catalog tools to an MCP client over stdio",
	Long: `Run an MCP server on stdin/stdout exposing extract_items, enrich_item,
enrich_estate, publish_estate and list_items. Logs go to stderr.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer a.Close()

		s := mcp.NewServer(mcp.Services{
			Extraction:   a.extraction,
			Enrichment:   a.enrichment,
			Orchestrator: a.orchestrator,
			Gate:         a.gate,
			Items:        a.items,
		}, version, logger)
		logger.Info("mcp.serve.stdio")
		return mcp.ServeStdio(s)
	},
}
