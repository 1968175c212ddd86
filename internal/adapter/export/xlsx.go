package export

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/user/election-scraper/internal/entity"
)

const sheetName = "Results"

// XLSXWriter writes a dataset as a single-sheet workbook with numeric cells.
type XLSXWriter struct {
	out io.Writer
}

// NewXLSXWriter creates an XLSXWriter that writes to out.
func NewXLSXWriter(out io.Writer) *XLSXWriter {
	return &XLSXWriter{out: out}
}

// Write builds the workbook in memory and streams it to the underlying writer.
func (w *XLSXWriter) Write(ctx context.Context, ds *entity.Dataset) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	header := ds.Header()
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	last, _ := excelize.CoordinatesToCellName(len(header), 1)
	if err := f.SetCellStyle(sheetName, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	for i, row := range ds.Rows {
		values := ds.Values(row)
		cells := make([]interface{}, 0, 2+len(values))
		cells = append(cells, row.Code, row.Name)
		for _, v := range values {
			cells = append(cells, v)
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheetName, cell, &cells); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	nameCol, _ := excelize.ColumnNumberToName(2)
	_ = f.SetColWidth(sheetName, nameCol, nameCol, 30)
	if err := f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze header: %w", err)
	}

	if _, err := f.WriteTo(w.out); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
