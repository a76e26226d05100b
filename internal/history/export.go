package history

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// ExportSheet is the worksheet name used for exports.
const ExportSheet = "History"

var exportHeader = []interface{}{
	"Date", "Farmer", "Land Area (ha)", "Soil", "Terrain", "Irrigation",
	"Fertilizer", "Fertilizer (kg/ha)", "Seed", "Previous Crop",
	"Yield (t/ha)", "Efficiency (%)", "Income (INR)", "Harvest Date",
}

// ExportXLSX writes the records matching q as an Excel workbook to w.
func (s *Service) ExportXLSX(ctx context.Context, w io.Writer, q Query) error {
	records, err := s.List(ctx, q)
	if err != nil {
		return err
	}
	return WriteXLSX(w, records)
}

// WriteXLSX writes records as a single-sheet workbook.
func WriteXLSX(w io.Writer, records []*Record) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), ExportSheet); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}

	if err := f.SetSheetRow(ExportSheet, "A1", &exportHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}
	lastCol, _ := excelize.CoordinatesToCellName(len(exportHeader), 1)
	if err := f.SetCellStyle(ExportSheet, "A1", lastCol, bold); err != nil {
		return fmt.Errorf("styling header: %w", err)
	}

	for i, rec := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{
			rec.PlantingDate.Format("2006-01-02"),
			rec.FarmerName,
			rec.LandArea,
			rec.SoilType,
			rec.Terrain,
			rec.Irrigation,
			rec.FertilizerType,
			rec.FertilizerQuantity,
			rec.SeedType,
			rec.PreviousCrop,
			rec.PredictedYield,
			rec.Efficiency,
			rec.Income,
			rec.HarvestDate.Format("2006-01-02"),
		}
		if err := f.SetSheetRow(ExportSheet, cell, &row); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}

	if err := f.SetColWidth(ExportSheet, "A", "N", 16); err != nil {
		return fmt.Errorf("sizing columns: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}
