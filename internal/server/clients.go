package server

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/salaheddineelazouti/Projet-innovation/internal/model"
)

const defaultHistoryLimit = 50

func (s *Server) handleListClients(w http.ResponseWriter, r *http.Request) {
	clients, err := s.store.ListClients(r.Context())
	if err != nil {
		writeStoreError(w, err, "clients")
		return
	}
	if clients == nil {
		clients = []model.Client{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"clients": clients, "count": len(clients)})
}

func (s *Server) handleClientHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	c, err := s.store.GetClient(ctx, id)
	if err != nil {
		writeStoreError(w, err, "client")
		return
	}
	if c == nil {
		writeError(w, http.StatusNotFound, "client not found")
		return
	}

	orders, err := s.store.ClientOrders(ctx, id, limit)
	if err != nil {
		writeStoreError(w, err, "client orders")
		return
	}
	if orders == nil {
		orders = []model.Order{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"client": c, "orders": orders})
}
