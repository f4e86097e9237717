package export

import (
	"io"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/salaheddineelazouti/Projet-innovation/internal/model"
)

// SheetName is the name of the single sheet in an order export.
const SheetName = "Commandes"

// WriteXLSX writes orders as a one-sheet workbook with a bold header row.
func WriteXLSX(w io.Writer, orders []model.Order) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(SheetName)
	if err != nil {
		return eris.Wrap(err, "xlsx: add sheet")
	}

	header := xlsx.NewStyle()
	header.Font.Bold = true
	header.ApplyFont = true

	hr := sheet.AddRow()
	for _, name := range Columns {
		cell := hr.AddCell()
		cell.SetString(name)
		cell.SetStyle(header)
	}

	for i := range orders {
		r := sheet.AddRow()
		for col, v := range row(&orders[i]) {
			cell := r.AddCell()
			if v != "" && isNumeric(col) {
				if n, err := strconv.ParseFloat(v, 64); err == nil {
					cell.SetFloat(n)
					continue
				}
			}
			cell.SetString(v)
		}
	}

	sheet.SetColWidth(0, len(Columns)-1, 18)
	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "xlsx: write workbook")
	}
	return nil
}

func isNumeric(col int) bool {
	switch col {
	case colQuantity, colUnitPrice, colTotalPrice, colConfidence:
		return true
	}
	return false
}
