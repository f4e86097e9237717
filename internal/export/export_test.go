package export

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/salaheddineelazouti/Projet-innovation/internal/model"
)

func sampleOrders() []model.Order {
	validated := time.Date(2024, time.June, 2, 9, 30, 0, 0, time.UTC)
	return []model.Order{
		{
			ID:          "o1",
			Status:      model.OrderStatusValidated,
			Source:      model.SourceEmail,
			MessageFrom: "achats@atlas.ma",
			CreatedAt:   time.Date(2024, time.June, 1, 8, 0, 0, 0, time.UTC),
			ValidatedAt: &validated,
			OrderRecord: model.OrderRecord{
				OrderNumber: model.Ptr("BC-2024-117"),
				ClientName:  "Restaurant Atlas",
				ProductType: model.Ptr(model.ProductFlatBottomPouch),
				Quantity:    model.Ptr(1500.0),
				Unit:        model.Ptr("pièces"),
				UnitPrice:   model.Ptr(0.85),
				Currency:    model.Ptr("MAD"),
				Confidence:  91,
				Notes:       "Livraison à Fès, quai 2",
			},
		},
		{
			ID:        "o2",
			Status:    model.OrderStatusPending,
			Source:    model.SourceWhatsApp,
			CreatedAt: time.Date(2024, time.June, 3, 8, 0, 0, 0, time.UTC),
			OrderRecord: model.OrderRecord{
				ClientName:         "Chhiwat Fes",
				IsReorder:          true,
				FilledFromHistory:  true,
				HistoryFields:      []string{"quantite", "unite"},
				HistorySourceOrder: "ID-o0",
				Confidence:         85,
			},
		},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleOrders()))

	out := buf.String()
	require.True(t, strings.HasPrefix(out, utf8BOM))

	records, err := csv.NewReader(strings.NewReader(strings.TrimPrefix(out, utf8BOM))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, Columns, records[0])

	first := records[1]
	assert.Equal(t, "BC-2024-117", first[1])
	assert.Equal(t, "Sachets fond plat", first[3])
	assert.Equal(t, "1500", first[colQuantity])
	assert.Equal(t, "0.85", first[colUnitPrice])
	assert.Equal(t, "", first[colTotalPrice])
	assert.Equal(t, "validated", first[12])
	assert.Equal(t, "2024-06-02 09:30", first[21])
	assert.Equal(t, "Livraison à Fès, quai 2", first[22])

	second := records[2]
	assert.Equal(t, "oui", second[15])
	assert.Equal(t, "quantite, unite", second[17])
	assert.Equal(t, "ID-o0", second[18])
	assert.Equal(t, "", second[21])
}

func TestWriteCSV_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))

	records, err := csv.NewReader(strings.NewReader(strings.TrimPrefix(buf.String(), utf8BOM))).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, sampleOrders()))

	f, err := xlsx.OpenBinary(buf.Bytes())
	require.NoError(t, err)
	sheet, ok := f.Sheet[SheetName]
	require.True(t, ok)
	require.Len(t, sheet.Rows, 3)

	assert.Equal(t, "Client", sheet.Rows[0].Cells[2].String())
	assert.Equal(t, "Restaurant Atlas", sheet.Rows[1].Cells[2].String())

	qty, err := sheet.Rows[1].Cells[colQuantity].Float()
	require.NoError(t, err)
	assert.InDelta(t, 1500.0, qty, 0.001)

	conf, err := sheet.Rows[2].Cells[colConfidence].Float()
	require.NoError(t, err)
	assert.InDelta(t, 85.0, conf, 0.001)

	assert.Equal(t, "", sheet.Rows[2].Cells[colQuantity].String())
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestReadClients_CSV(t *testing.T) {
	path := writeFile(t, "clients.csv", utf8BOM+"Nom,Téléphone,E-mail\nChhiwat Fes,+212600000000,contact@chhiwat.ma\n  ,,\nRestaurant Atlas,,\n")

	clients, err := ReadClients(path)
	require.NoError(t, err)
	require.Len(t, clients, 2)
	assert.Equal(t, model.Client{Name: "Chhiwat Fes", Phone: "+212600000000", Email: "contact@chhiwat.ma"}, clients[0])
	assert.Equal(t, "Restaurant Atlas", clients[1].Name)
	assert.Empty(t, clients[1].Email)
}

func TestReadClients_XLSX(t *testing.T) {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Clients")
	require.NoError(t, err)
	for _, r := range [][]string{{"Entreprise", "Email"}, {"Boulangerie Amal", "amal@example.ma"}} {
		row := sheet.AddRow()
		for _, v := range r {
			row.AddCell().SetString(v)
		}
	}
	path := filepath.Join(t.TempDir(), "clients.xlsx")
	require.NoError(t, f.Save(path))

	clients, err := ReadClients(path)
	require.NoError(t, err)
	require.Len(t, clients, 1)
	assert.Equal(t, "Boulangerie Amal", clients[0].Name)
	assert.Equal(t, "amal@example.ma", clients[0].Email)
}

func TestReadClients_Errors(t *testing.T) {
	_, err := ReadClients(writeFile(t, "clients.json", "[]"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported client file")

	_, err = ReadClients(writeFile(t, "clients.csv", "email,phone\na@b.c,1\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no name column")

	_, err = ReadClients(writeFile(t, "clients.csv", ""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "client file is empty")

	_, err = ReadClients(filepath.Join(t.TempDir(), "missing.csv"))
	require.Error(t, err)
}
