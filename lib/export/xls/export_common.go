package xlsexport

import (
	"strconv"

	"github.com/xuri/excelize/v2"
)

const (
	columnWidth = 28
	fontFamily  = "Calibri"
	fontSize    = 11
)

func writeColumn(f *excelize.File, sheet string, col, row int, value interface{}) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	return f.SetCellValue(sheet, cell, value)
}

// cellRange returns the top left and bottom right cell names of a rectangle.
func cellRange(colFrom, rowFrom, colTo, rowTo int) (string, string, error) {
	first, err := excelize.CoordinatesToCellName(colFrom, rowFrom)
	if err != nil {
		return "", "", err
	}
	last, err := excelize.CoordinatesToCellName(colTo, rowTo)
	if err != nil {
		return "", "", err
	}
	return first, last, nil
}

func styleRange(f *excelize.File, sheet string, style *excelize.Style, colFrom, rowFrom, colTo, rowTo int) error {
	styleID, err := f.NewStyle(style)
	if err != nil {
		return err
	}
	first, last, err := cellRange(colFrom, rowFrom, colTo, rowTo)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, first, last, styleID)
}

// writeHeader writes a bold header on the row after row, freezes it and enables filtering.
func writeHeader(f *excelize.File, sheet string, row int, headers []string) (int, error) {
	row++
	headerStyle := &excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "center"},
		Font:      &excelize.Font{Bold: true, Family: fontFamily, Size: fontSize},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"DDEBF7"}},
	}
	if err := styleRange(f, sheet, headerStyle, 1, row, len(headers), row); err != nil {
		return row, err
	}
	lastCol, err := excelize.ColumnNumberToName(len(headers))
	if err != nil {
		return row, err
	}
	if err = f.SetColWidth(sheet, "A", lastCol, columnWidth); err != nil {
		return row, err
	}
	for idx, value := range headers {
		if err = writeColumn(f, sheet, idx+1, row, value); err != nil {
			return row, err
		}
	}
	first, last, err := cellRange(1, row, len(headers), row)
	if err != nil {
		return row, err
	}
	if err = f.AutoFilter(sheet, first+":"+last, nil); err != nil {
		return row, err
	}
	err = f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      row,
		TopLeftCell: "A" + strconv.Itoa(row+1),
		ActivePane:  "bottomLeft",
	})
	return row, err
}

func applyDataCellStyle(f *excelize.File, sheet string, colFrom, rowFrom, colTo, rowTo int) error {
	dataStyle := &excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "center", WrapText: true},
		Font:      &excelize.Font{Family: fontFamily, Size: fontSize},
	}
	return styleRange(f, sheet, dataStyle, colFrom, rowFrom, colTo, rowTo)
}
