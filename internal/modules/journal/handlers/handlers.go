// Package handlers provides HTTP handlers for the trade journal.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/tradejournal/internal/database"
	"github.com/aristath/tradejournal/internal/modules/journal"
)

// maxBodyBytes bounds request bodies
const maxBodyBytes = 1 << 20

// Journal is the repository surface the handlers need
type Journal interface {
	RecordBuy(ctx context.Context, in journal.BuyInput) (journal.Buy, error)
	RecordSell(ctx context.Context, in journal.SellInput) (journal.Sell, error)
	UpdateBuyNote(ctx context.Context, buyID string, note *string) (journal.Buy, error)
	GetBuy(ctx context.Context, id string) (journal.Buy, error)
	ListBuys(ctx context.Context) ([]journal.Buy, error)
	ListSells(ctx context.Context, buyID string) ([]journal.Sell, error)
	ListAvailableForSell(ctx context.Context) ([]journal.AvailableLot, error)
	Summary(ctx context.Context) ([]journal.PositionSummary, error)
	Snapshot(ctx context.Context) (journal.Snapshot, error)
}

// Handler handles journal HTTP requests
type Handler struct {
	journal Journal
	log     zerolog.Logger
}

// NewHandler creates a new journal handler
func NewHandler(j Journal, log zerolog.Logger) *Handler {
	return &Handler{
		journal: j,
		log:     log.With().Str("handler", "journal").Logger(),
	}
}

type buyRequest struct {
	Symbol   string  `json:"symbol"`
	BuyDate  string  `json:"buy_date"`
	Quantity float64 `json:"quantity"`
	BuyPrice float64 `json:"buy_price"`
	Note     *string `json:"note"`
}

type sellRequest struct {
	BuyID     string  `json:"buy_id"`
	SellDate  string  `json:"sell_date"`
	Quantity  float64 `json:"quantity"`
	SellPrice float64 `json:"sell_price"`
}

type noteRequest struct {
	Note *string `json:"note"`
}

// HandleListBuys handles GET /api/journal/buys
func (h *Handler) HandleListBuys(w http.ResponseWriter, r *http.Request) {
	buys, err := h.journal.ListBuys(r.Context())
	if err != nil {
		h.writeFailure(w, err)
		return
	}

	h.writeData(w, http.StatusOK, map[string]interface{}{
		"buys":  buys,
		"count": len(buys),
	})
}

// HandleCreateBuy handles POST /api/journal/buys
func (h *Handler) HandleCreateBuy(w http.ResponseWriter, r *http.Request) {
	var req buyRequest
	if !h.decode(w, r, &req) {
		return
	}

	buyDate, err := journal.ParseDate(req.BuyDate)
	if err != nil {
		h.writeFailure(w, err)
		return
	}

	buy, err := h.journal.RecordBuy(r.Context(), journal.BuyInput{
		Symbol:   req.Symbol,
		BuyDate:  buyDate,
		Quantity: req.Quantity,
		BuyPrice: req.BuyPrice,
		Note:     req.Note,
	})
	if err != nil {
		h.writeFailure(w, err)
		return
	}

	h.writeData(w, http.StatusCreated, buy)
}

// HandleGetBuy handles GET /api/journal/buys/{id}
func (h *Handler) HandleGetBuy(w http.ResponseWriter, r *http.Request, id string) {
	buy, err := h.journal.GetBuy(r.Context(), id)
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	h.writeData(w, http.StatusOK, buy)
}

// HandleUpdateNote handles PATCH /api/journal/buys/{id}/note
func (h *Handler) HandleUpdateNote(w http.ResponseWriter, r *http.Request, id string) {
	var req noteRequest
	if !h.decode(w, r, &req) {
		return
	}

	buy, err := h.journal.UpdateBuyNote(r.Context(), id, req.Note)
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	h.writeData(w, http.StatusOK, buy)
}

// HandleListSells handles GET /api/journal/buys/{id}/sells
func (h *Handler) HandleListSells(w http.ResponseWriter, r *http.Request, id string) {
	if _, err := h.journal.GetBuy(r.Context(), id); err != nil {
		h.writeFailure(w, err)
		return
	}

	sells, err := h.journal.ListSells(r.Context(), id)
	if err != nil {
		h.writeFailure(w, err)
		return
	}

	h.writeData(w, http.StatusOK, map[string]interface{}{
		"sells": sells,
		"count": len(sells),
	})
}

// HandleCreateSell handles POST /api/journal/sells
func (h *Handler) HandleCreateSell(w http.ResponseWriter, r *http.Request) {
	var req sellRequest
	if !h.decode(w, r, &req) {
		return
	}

	sellDate, err := journal.ParseDate(req.SellDate)
	if err != nil {
		h.writeFailure(w, err)
		return
	}

	sell, err := h.journal.RecordSell(r.Context(), journal.SellInput{
		BuyID:     req.BuyID,
		SellDate:  sellDate,
		Quantity:  req.Quantity,
		SellPrice: req.SellPrice,
	})
	if err != nil {
		h.writeFailure(w, err)
		return
	}

	h.writeData(w, http.StatusCreated, sell)
}

// HandleListAvailable handles GET /api/journal/available
func (h *Handler) HandleListAvailable(w http.ResponseWriter, r *http.Request) {
	lots, err := h.journal.ListAvailableForSell(r.Context())
	if err != nil {
		h.writeFailure(w, err)
		return
	}

	h.writeData(w, http.StatusOK, map[string]interface{}{
		"lots":  lots,
		"count": len(lots),
	})
}

// HandleSummary handles GET /api/journal/summary
func (h *Handler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.journal.Summary(r.Context())
	if err != nil {
		h.writeFailure(w, err)
		return
	}

	h.writeData(w, http.StatusOK, map[string]interface{}{
		"positions": summaries,
		"count":     len(summaries),
	})
}

// HandleExport handles GET /api/journal/export?format=json|msgpack
func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	format, err := journal.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		h.writeFailure(w, err)
		return
	}

	snap, err := h.journal.Snapshot(r.Context())
	if err != nil {
		h.writeFailure(w, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", "attachment; filename=\"journal-"+snap.ExportedAt.Format("20060102-150405")+"."+string(format)+"\"")
	w.WriteHeader(http.StatusOK)
	if err := journal.EncodeSnapshot(w, snap, format); err != nil {
		h.log.Error().Err(err).Msg("Failed to write export")
	}
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

// statusFor maps repository errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, journal.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, journal.ErrBuyNotFound):
		return http.StatusNotFound
	case errors.Is(err, journal.ErrInsufficientQuantity):
		return http.StatusConflict
	case errors.Is(err, database.ErrPlatformUnsupported), errors.Is(err, database.ErrInitializationFailed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeFailure(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Msg("Journal request failed")
	}

	body := map[string]interface{}{"error": err.Error()}
	var vErr *journal.ValidationError
	if errors.As(err, &vErr) {
		body["fields"] = vErr.Fields
	}
	h.writeJSON(w, status, body)
}

func (h *Handler) writeData(w http.ResponseWriter, status int, data interface{}) {
	h.writeJSON(w, status, map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
