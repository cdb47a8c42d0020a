package cli

import (
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dwesselviax/EstateLogger/constants"
	"github.com/dwesselviax/EstateLogger/internal/common"
	"github.com/dwesselviax/EstateLogger/internal/entity"
	"github.com/dwesselviax/EstateLogger/internal/services/estate"
	"github.com/dwesselviax/EstateLogger/internal/utils"
)

var estatesCmd = &cobra.Command{
	Use:   "estates",
	Short: "Create, list and manage estates",
}

var createEstate estate.CreateEstateRequest

var estatesCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a draft estate",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		est, err := a.estates.CreateEstate(cmd.Context(), createEstate)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n", SuccessStyle.Render("created"), est.Name, StatusStyle.Render(est.ID.String()))
		return nil
	},
}

var estatesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List estates with their catalog progress",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		list, err := a.estates.ListEstates(cmd.Context())
		if err != nil {
			return err
		}
		printEstates(cmd.OutOrStdout(), list)
		return nil
	},
}

var estatesStatusCmd = &cobra.Command{
	Use:   "status <estate-id> <status>",
	Short: "Set an estate's status (draft, logging, review, enriching, published, archived)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		status, err := constants.ParseEstateStatus(args[1])
		if err != nil {
			return fmt.Errorf("%w: %v", common.ErrInvalidInput, err)
		}
		a, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		est, err := a.gate.SetEstateStatus(cmd.Context(), id, status)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", est.Name, est.Status)
		return nil
	},
}

var estatesDeleteCmd = &cobra.Command{
	Use:   "delete <estate-id>",
	Short: "Delete an estate and everything cataloged in it",
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

		if err := a.estates.DeleteEstate(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render("deleted"), id)
		return nil
	},
}

func printEstates(w io.Writer, list []*entity.EstateSummary) {
	if len(list) == 0 {
		fmt.Fprintln(w, "No estates yet; create one with: estate-logger estates create --name ... --address ...")
		return
	}
	for _, e := range list {
		fmt.Fprintf(w, "%-36s  %-10s  %-28s  %3d items  %3d confirmed  %3d enriched\n",
			e.ID, e.Status, utils.Truncate(e.Name, 28), e.ItemCount, e.ConfirmedCount, e.EnrichedCount)
	}
}

func parseID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %q is not a valid id", common.ErrInvalidInput, s)
	}
	return id, nil
}

func init() {
	f := estatesCreateCmd.Flags()
	f.StringVar(&createEstate.Name, "name", "", "estate name (required)")
	f.StringVar(&createEstate.Address, "address", "", "street address (required)")
	f.StringVar(&createEstate.AuctionDate, "auction-date", "", "auction date, YYYY-MM-DD")
	f.StringVar(&createEstate.PropertyType, "property-type", "", "residential, commercial, storage or other")
	f.StringVar(&createEstate.ExecutorName, "executor", "", "executor name")
	f.StringVar(&createEstate.ExecutorContact, "executor-contact", "", "executor phone or email")
	f.StringVar(&createEstate.Notes, "notes", "", "free-form notes")

	estatesCmd.AddCommand(estatesCreateCmd, estatesListCmd, estatesStatusCmd, estatesDeleteCmd)
}
