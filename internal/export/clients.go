package export

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/salaheddineelazouti/Projet-innovation/internal/match"
	"github.com/salaheddineelazouti/Projet-innovation/internal/model"
)

// header aliases, compared after match.Normalize.
var (
	nameHeaders  = []string{"nom", "name", "client", "entreprise", "entreprise cliente", "company"}
	emailHeaders = []string{"email", "e-mail", "mail", "courriel"}
	phoneHeaders = []string{"telephone", "tel", "phone", "whatsapp", "mobile"}
)

// ReadClients reads a client list from a .csv or .xlsx file. The first row
// is a header; a name column is required, email and phone are optional.
// Rows with an empty name are skipped.
func ReadClients(path string) ([]model.Client, error) {
	var (
		rows [][]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		rows, err = readCSV(path)
	case ".xlsx":
		rows, err = readXLSX(path)
	default:
		return nil, eris.Errorf("export: unsupported client file %q", filepath.Base(path))
	}
	if err != nil {
		return nil, err
	}
	return clientsFromRows(rows)
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "csv: open file")
	}
	defer f.Close() //nolint:errcheck

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var rows [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, eris.Wrap(err, "csv: read row")
		}
		rows = append(rows, rec)
	}
}

func readXLSX(path string) ([][]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open file")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("xlsx: workbook has no sheets")
	}

	var rows [][]string
	for _, row := range f.Sheets[0].Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

func clientsFromRows(rows [][]string) ([]model.Client, error) {
	if len(rows) == 0 {
		return nil, eris.New("export: client file is empty")
	}

	name, email, phone := -1, -1, -1
	for i, h := range rows[0] {
		h = match.Normalize(strings.TrimPrefix(h, utf8BOM))
		switch {
		case name < 0 && oneOf(h, nameHeaders):
			name = i
		case email < 0 && oneOf(h, emailHeaders):
			email = i
		case phone < 0 && oneOf(h, phoneHeaders):
			phone = i
		}
	}
	if name < 0 {
		return nil, eris.New("export: client file has no name column")
	}

	var clients []model.Client
	for _, r := range rows[1:] {
		c := model.Client{Name: cell(r, name), Email: cell(r, email), Phone: cell(r, phone)}
		if c.Name == "" {
			continue
		}
		clients = append(clients, c)
	}
	return clients, nil
}

func oneOf(h string, aliases []string) bool {
	for _, a := range aliases {
		if h == match.Normalize(a) {
			return true
		}
	}
	return false
}

func cell(r []string, i int) string {
	if i < 0 || i >= len(r) {
		return ""
	}
	return strings.TrimSpace(r[i])
}
