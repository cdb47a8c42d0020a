package export

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/dwesselviax/EstateLogger/internal/entity"
	"github.com/dwesselviax/EstateLogger/internal/repository"
	"github.com/dwesselviax/EstateLogger/internal/utils"
)

const sheet = "Catalog"

// Service produces XLSX workbooks of an estate's catalog.
type Service struct {
	estates repository.EstateRepository
	items   repository.ItemRepository
	logger  *slog.Logger
}

func NewService(estates repository.EstateRepository, items repository.ItemRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{estates: estates, items: items, logger: logger}
}

// EstateCatalogXLSX returns the workbook bytes and a suggested file name.
// Every item of the estate is exported regardless of status.
func (s *Service) EstateCatalogXLSX(ctx context.Context, estateID uuid.UUID) ([]byte, string, error) {
	start := time.Now()

	est, err := s.estates.GetByID(ctx, estateID)
	if err != nil {
		return nil, "", err
	}
	items, err := s.items.ListByEstate(ctx, estateID, repository.ItemFilter{})
	if err != nil {
		return nil, "", fmt.Errorf("query items: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, "", fmt.Errorf("xlsx sheet: %w", err)
	}

	headers := []string{
		"Item",
		"Category",
		"Condition",
		"Location",
		"Status",
		"Value Range",
		"Start Bid",
		"Confidence",
		"Description",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		_ = f.SetRowStyle(sheet, 1, 1, style)
	}

	for i, it := range items {
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
		write(1, it.Name)
		write(2, string(it.Category))
		write(3, string(it.Condition))
		write(4, utils.StrOrEmpty(it.Location))
		write(5, string(it.Status))

		desc := utils.StrOrEmpty(it.Description)
		if e := it.Enrichment; e != nil {
			write(6, valueRange(e))
			if e.RecommendedStartBid != nil {
				write(7, *e.RecommendedStartBid)
			}
			write(8, string(e.Confidence))
			if enhanced := utils.StrOrEmpty(e.EnhancedDescription); enhanced != "" {
				desc = enhanced
			}
		}
		write(9, utils.Truncate(desc, 500))
	}

	_ = f.SetColWidth(sheet, "A", "A", 32) // item
	_ = f.SetColWidth(sheet, "B", "B", 24) // category
	_ = f.SetColWidth(sheet, "C", "E", 12)
	_ = f.SetColWidth(sheet, "F", "G", 16) // money
	_ = f.SetColWidth(sheet, "H", "H", 12)
	_ = f.SetColWidth(sheet, "I", "I", 80)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"estate_id", estateID.String(),
		"rows", len(items),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), fileName(est), nil
}

func valueRange(e *entity.Enrichment) string {
	switch {
	case e.EstimatedValueLow != nil && e.EstimatedValueHigh != nil:
		return fmt.Sprintf("$%.0f - $%.0f", *e.EstimatedValueLow, *e.EstimatedValueHigh)
	case e.EstimatedValueLow != nil:
		return fmt.Sprintf("from $%.0f", *e.EstimatedValueLow)
	case e.EstimatedValueHigh != nil:
		return fmt.Sprintf("up to $%.0f", *e.EstimatedValueHigh)
	default:
		return ""
	}
}

func fileName(e *entity.Estate) string {
	slug := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '-'
		}
	}, strings.TrimSpace(e.Name))
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = "estate"
	}
	return slug + "-catalog.xlsx"
}
