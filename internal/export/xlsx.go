package export

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// XLSXWriter implements SheetWriter by writing a workbook to a file.
type XLSXWriter struct {
	path string
}

// NewXLSXWriter creates a writer that replaces the workbook at path on every run.
func NewXLSXWriter(path string) *XLSXWriter {
	return &XLSXWriter{path: path}
}

func (w *XLSXWriter) Write(_ context.Context, report Report) error {
	f, err := buildWorkbook(report)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.SaveAs(w.path); err != nil {
		return fmt.Errorf("saving %s: %w", w.path, err)
	}
	return nil
}

// WriteTo streams the report as an XLSX workbook.
func WriteTo(out io.Writer, report Report) error {
	f, err := buildWorkbook(report)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.Write(out); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func buildWorkbook(report Report) (*excelize.File, error) {
	f := excelize.NewFile()
	for _, sheet := range []struct {
		name string
		rows [][]any
	}{
		{tokensSheet, tokenTable(report)},
		{lendingsSheet, lendingTable(report)},
	} {
		if _, err := f.NewSheet(sheet.name); err != nil {
			f.Close()
			return nil, fmt.Errorf("creating sheet %s: %w", sheet.name, err)
		}
		if err := setRows(f, sheet.name, sheet.rows); err != nil {
			f.Close()
			return nil, err
		}
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		f.Close()
		return nil, fmt.Errorf("removing default sheet: %w", err)
	}
	if err := f.SetPanes(tokensSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		f.Close()
		return nil, fmt.Errorf("freezing header: %w", err)
	}
	return f, nil
}

func setRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("writing %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
