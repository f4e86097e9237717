package server

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/salaheddineelazouti/Projet-innovation/internal/export"
	"github.com/salaheddineelazouti/Projet-innovation/internal/model"
)

// exportLimit caps rows per export when the request gives no limit.
const exportLimit = 10000

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	s.export(w, r, "xlsx", xlsxContentType, export.WriteXLSX)
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	s.export(w, r, "csv", "text/csv; charset=utf-8", export.WriteCSV)
}

// export renders into a buffer first so a failure can still produce a
// JSON error instead of a truncated file.
func (s *Server) export(w http.ResponseWriter, r *http.Request, ext, contentType string, write func(io.Writer, []model.Order) error) {
	f, err := parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if f.Limit == 0 {
		f.Limit = exportLimit
	}

	orders, err := s.store.ListOrders(r.Context(), f)
	if err != nil {
		writeStoreError(w, err, "orders")
		return
	}

	var buf bytes.Buffer
	if err := write(&buf, orders); err != nil {
		zap.L().Error("server: export failed", zap.String("format", ext), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}

	name := fmt.Sprintf("commandes_%s.%s", time.Now().Format("20060102_150405"), ext)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		zap.L().Warn("server: write export", zap.Error(err))
	}
}
