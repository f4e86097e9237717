package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/salaheddineelazouti/Projet-innovation/internal/model"
	"github.com/salaheddineelazouti/Projet-innovation/internal/store"
)

const (
	dateLayout      = "2006-01-02"
	defaultReviewer = "dashboard"
)

// parseFilter reads status, source, from, to, limit and offset from the
// query string. from and to are dates; to is inclusive.
func parseFilter(r *http.Request) (store.OrderFilter, error) {
	q := r.URL.Query()
	var f store.OrderFilter

	if v := q.Get("status"); v != "" {
		f.Status = model.OrderStatus(v)
		if !f.Status.Valid() {
			return f, eris.Errorf("invalid status %q", v)
		}
	}
	if v := q.Get("source"); v != "" {
		f.Source = model.Source(v)
	}
	if v := q.Get("from"); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			return f, eris.Errorf("invalid from date %q", v)
		}
		f.From = t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			return f, eris.Errorf("invalid to date %q", v)
		}
		f.To = t.AddDate(0, 0, 1)
	}
	for key, dst := range map[string]*int{"limit": &f.Limit, "offset": &f.Offset} {
		if v := q.Get(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				return f, eris.Errorf("invalid %s %q", key, v)
			}
			*dst = n
		}
	}
	return f, nil
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	orders, err := s.store.ListOrders(r.Context(), f)
	if err != nil {
		writeStoreError(w, err, "orders")
		return
	}
	if orders == nil {
		orders = []model.Order{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": orders, "count": len(orders)})
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	o, ok := s.loadOrder(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (s *Server) loadOrder(w http.ResponseWriter, r *http.Request) (*model.Order, bool) {
	id := chi.URLParam(r, "id")
	o, err := s.store.GetOrder(r.Context(), id)
	if err != nil {
		writeStoreError(w, err, "order")
		return nil, false
	}
	if o == nil {
		writeError(w, http.StatusNotFound, "order not found")
		return nil, false
	}
	return o, true
}

type reviewRequest struct {
	ValidatedBy string `json:"validated_by"`
	Reason      string `json:"reason"`
}

type reviewResponse struct {
	Order    *model.Order `json:"order"`
	Notified bool         `json:"notified"`
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	s.review(w, r, model.OrderStatusValidated)
}

func (s *Server) handleReject(w http.ResponseWriter, r *http.Request) {
	s.review(w, r, model.OrderStatusRejected)
}

// review sets the order status and notifies the customer on the channel
// the order came from. A failed notification does not undo the review.
func (s *Server) review(w http.ResponseWriter, r *http.Request, status model.OrderStatus) {
	var req reviewRequest
	if err := s.decodeJSON(w, r, &req, true); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	by := strings.TrimSpace(req.ValidatedBy)
	if by == "" {
		by = defaultReviewer
	}

	ctx := r.Context()
	id := chi.URLParam(r, "id")
	if err := s.store.UpdateOrderStatus(ctx, id, status, by); err != nil {
		writeStoreError(w, err, "order")
		return
	}
	o, ok := s.loadOrder(w, r)
	if !ok {
		return
	}

	resp := reviewResponse{Order: o}
	if s.notifier != nil {
		var err error
		if status == model.OrderStatusValidated {
			err = s.notifier.Validated(ctx, o)
		} else {
			err = s.notifier.Rejected(ctx, o, req.Reason)
		}
		if err != nil {
			zap.L().Warn("server: review notification failed",
				zap.String("order_id", o.ID),
				zap.String("status", string(status)),
				zap.Error(err),
			)
		} else {
			resp.Notified = s.notifier.Enabled(o.Source)
		}
	}

	zap.L().Info("server: order reviewed",
		zap.String("order_id", o.ID),
		zap.String("status", string(status)),
		zap.String("by", by),
	)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var patch store.OrderPatch
	if err := s.decodeJSON(w, r, &patch, false); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if patch.Empty() {
		writeError(w, http.StatusBadRequest, "no fields to update")
		return
	}
	if patch.ProductType != nil && *patch.ProductType != "" && !patch.ProductType.InCatalog() {
		writeError(w, http.StatusBadRequest, "type_produit must be one of: "+strings.Join(model.ProductTypes(), ", "))
		return
	}

	o, err := s.store.UpdateOrder(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		writeStoreError(w, err, "order")
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.store.Stats(r.Context())
	if err != nil {
		writeStoreError(w, err, "stats")
		return
	}
	writeJSON(w, http.StatusOK, st)
}
