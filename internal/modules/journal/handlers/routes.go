package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all journal routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/journal", func(r chi.Router) {
		r.Get("/buys", h.HandleListBuys)
		r.Post("/buys", h.HandleCreateBuy)
		r.Route("/buys/{id}", func(r chi.Router) {
			r.Get("/", func(w http.ResponseWriter, r *http.Request) {
				h.HandleGetBuy(w, r, chi.URLParam(r, "id"))
			})
			r.Patch("/note", func(w http.ResponseWriter, r *http.Request) {
				h.HandleUpdateNote(w, r, chi.URLParam(r, "id"))
			})
			r.Get("/sells", func(w http.ResponseWriter, r *http.Request) {
				h.HandleListSells(w, r, chi.URLParam(r, "id"))
			})
		})

		r.Post("/sells", h.HandleCreateSell)
		r.Get("/available", h.HandleListAvailable)
		r.Get("/summary", h.HandleSummary)
		r.Get("/export", h.HandleExport)
	})
}
