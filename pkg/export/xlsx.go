package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// XLSXRenderer writes a single styled worksheet.
type XLSXRenderer struct {
	sheet string
}

// NewXLSXRenderer constructs an XLSX renderer.
func NewXLSXRenderer() *XLSXRenderer {
	return &XLSXRenderer{sheet: "Roster"}
}

func (r *XLSXRenderer) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}
func (r *XLSXRenderer) Extension() string { return "xlsx" }

// Render implements Renderer. The title, when present, occupies the first row
// and the column header follows it.
func (r *XLSXRenderer) Render(data Dataset) ([]byte, error) {
	if err := data.validate(); err != nil {
		return nil, err
	}
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", r.sheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	row := 1
	lastCol, _ := excelize.ColumnNumberToName(len(data.Columns))
	if data.Title != "" {
		titleStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 13}})
		if err != nil {
			return nil, fmt.Errorf("title style: %w", err)
		}
		if err := f.SetCellValue(r.sheet, "A1", data.Title); err != nil {
			return nil, err
		}
		_ = f.MergeCell(r.sheet, "A1", fmt.Sprintf("%s1", lastCol))
		_ = f.SetCellStyle(r.sheet, "A1", "A1", titleStyle)
		row = 3
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}

	if err := r.writeRow(f, row, data.Columns); err != nil {
		return nil, err
	}
	first, _ := excelize.CoordinatesToCellName(1, row)
	last, _ := excelize.CoordinatesToCellName(len(data.Columns), row)
	_ = f.SetCellStyle(r.sheet, first, last, headerStyle)

	for _, cells := range data.Rows {
		row++
		if err := r.writeRow(f, row, cells); err != nil {
			return nil, err
		}
	}
	_ = f.SetColWidth(r.sheet, "A", lastCol, 22)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *XLSXRenderer) writeRow(f *excelize.File, row int, cells []string) error {
	values := make([]interface{}, len(cells))
	for i, cell := range cells {
		values[i] = cell
	}
	start, _ := excelize.CoordinatesToCellName(1, row)
	if err := f.SetSheetRow(r.sheet, start, &values); err != nil {
		return fmt.Errorf("write row %d: %w", row, err)
	}
	return nil
}
