package export

import (
	"encoding/csv"
	"io"

	"github.com/rotisserie/eris"

	"github.com/salaheddineelazouti/Projet-innovation/internal/model"
)

// utf8BOM makes spreadsheet software detect the encoding of accented text.
const utf8BOM = "\ufeff"

// WriteCSV writes orders as CSV with a header row.
func WriteCSV(w io.Writer, orders []model.Order) error {
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return eris.Wrap(err, "csv: write bom")
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return eris.Wrap(err, "csv: write header")
	}
	for i := range orders {
		if err := cw.Write(row(&orders[i])); err != nil {
			return eris.Wrapf(err, "csv: write order %s", orders[i].ID)
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "csv: flush")
}
