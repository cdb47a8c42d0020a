package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dwesselviax/EstateLogger/internal/common"
	repo "github.com/dwesselviax/EstateLogger/internal/repository"
	"github.com/dwesselviax/EstateLogger/internal/server"
)

var (
	confirmCaptured bool
	exportDir       string
)

var enrichCmd = &cobra.Command{
	Use:   "enrich <estate-id>",
	Short: "Enrich every eligible item of an estate",
	Long: `Look up market estimates for the estate's confirmed items and for any
item that has no enrichment yet. Items are processed one at a time and a
failure on one item does not stop the rest.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		a, err := openApp(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := common.WithEstateID(cmd.Context(), id.String())
		if confirmCaptured {
			n, err := a.gate.ConfirmAllCaptured(ctx, id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "confirmed %d captured items\n", n)
		}

		out := cmd.OutOrStdout()
		res, err := a.orchestrator.EnrichEstate(ctx, id, func(done, total int) {
			fmt.Fprintf(out, "\r%s %d/%d", StatusStyle.Render("enriching"), done, total)
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(out)
		fmt.Fprintf(out, "%s %d of %d items enriched\n", SuccessStyle.Render("done"), res.Succeeded, res.Total)
		for _, failed := range res.FailedItemIDs {
			fmt.Fprintln(out, ErrorStyle.Render("failed"), failed)
		}
		return nil
	},
}

var publishCmd = &cobra.Command{
	Use:   "publish <estate-id>",
	Short: "Publish an estate's confirmed and enriched items",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		a, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.gate.PublishEstate(cmd.Context(), id)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %d items\n", SuccessStyle.Render("published"), n)
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export <estate-id>",
	Short: "Write an estate's catalog as an XLSX workbook",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		a, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		data, name, err := a.export.EstateCatalogXLSX(cmd.Context(), id)
		if err != nil {
			return err
		}
		path := filepath.Join(exportDir, name)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render("wrote"), path)
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create any missing tables and indexes",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := server.ConnectDB(cmd.Context(), cfg.Database, false, logger)
		if err != nil {
			return err
		}
		defer server.CloseDB(db, logger)
		if err := repo.Migrate(cmd.Context(), db, logger); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render("schema up to date"), StatusStyle.Render(db.Dialect()))
		return nil
	},
}

func init() {
	enrichCmd.Flags().BoolVar(&confirmCaptured, "confirm-captured", false, "confirm all captured items before enriching")
	exportCmd.Flags().StringVarP(&exportDir, "out", "o", ".", "directory to write the workbook to")
}
