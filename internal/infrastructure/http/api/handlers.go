package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/alchemorsel/fooddata/internal/application/cart"
	"github.com/alchemorsel/fooddata/internal/application/fusion"
	"github.com/alchemorsel/fooddata/internal/application/jobs"
	cartdomain "github.com/alchemorsel/fooddata/internal/domain/cart"
	"github.com/alchemorsel/fooddata/pkg/errors"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type handlers struct {
	engine *fusion.Engine
	carts  *cart.Service
	worker *jobs.Worker
	logger *zap.Logger
}

func newHandlers(engine *fusion.Engine, carts *cart.Service, worker *jobs.Worker, logger *zap.Logger) *handlers {
	return &handlers{engine: engine, carts: carts, worker: worker, logger: logger}
}

// Health reports liveness.
func (h *handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// EnhanceProduct returns the fused record for ?q=<item>.
func (h *handlers) EnhanceProduct(w http.ResponseWriter, r *http.Request) {
	item := strings.TrimSpace(r.URL.Query().Get("q"))
	if item == "" {
		writeError(w, errors.NewBadRequestError("query parameter q is required"))
		return
	}
	writeJSON(w, http.StatusOK, h.engine.Enhance(r.Context(), item))
}

// Nutrition returns only the nutrition summary for ?q=<item>.
func (h *handlers) Nutrition(w http.ResponseWriter, r *http.Request) {
	item := strings.TrimSpace(r.URL.Query().Get("q"))
	if item == "" {
		writeError(w, errors.NewBadRequestError("query parameter q is required"))
		return
	}
	enhanced := h.engine.Enhance(r.Context(), item)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"name":       enhanced.Name,
		"nutrition":  enhanced.Nutrition,
		"health":     enhanced.Health,
		"confidence": enhanced.Confidence,
	})
}

// SuggestRecipes returns recipe metadata for ?ingredients=a,b,c.
func (h *handlers) SuggestRecipes(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.URL.Query().Get("ingredients"))
	if raw == "" {
		writeError(w, errors.NewBadRequestError("query parameter ingredients is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	suggestions, err := h.engine.SuggestRecipes(r.Context(), strings.Split(raw, ","), limit)
	if err != nil {
		writeError(w, errors.Wrap(err, "recipe suggestion failed"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"recipes": suggestions})
}

// CreateCart opens a new cart.
func (h *handlers) CreateCart(w http.ResponseWriter, r *http.Request) {
	c := h.carts.CreateCart()
	writeJSON(w, http.StatusCreated, cartView(c))
}

// GetCart returns a cart with its derived totals.
func (h *handlers) GetCart(w http.ResponseWriter, r *http.Request) {
	cartID, err := uuid.Parse(chi.URLParam(r, "cartID"))
	if err != nil {
		writeError(w, errors.NewBadRequestError("invalid cart id"))
		return
	}
	c, getErr := h.carts.GetCart(cartID)
	if getErr != nil {
		writeError(w, errors.Wrap(getErr, "cart lookup failed"))
		return
	}
	writeJSON(w, http.StatusOK, cartView(c))
}

type addItemRequest struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// AddCartItem enriches and adds an item to the cart.
func (h *handlers) AddCartItem(w http.ResponseWriter, r *http.Request) {
	cartID, err := uuid.Parse(chi.URLParam(r, "cartID"))
	if err != nil {
		writeError(w, errors.NewBadRequestError("invalid cart id"))
		return
	}

	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.NewBadRequestError("invalid request body"))
		return
	}
	if req.Quantity <= 0 {
		req.Quantity = 1
	}

	if _, err := h.carts.AddItem(r.Context(), cartID, req.Name, req.Quantity); err != nil {
		writeError(w, errors.Wrap(err, "failed to add cart item"))
		return
	}

	c, getErr := h.carts.GetCart(cartID)
	if getErr != nil {
		writeError(w, errors.Wrap(getErr, "cart lookup failed"))
		return
	}
	writeJSON(w, http.StatusOK, cartView(c))
}

// RemoveCartItem deletes a cart line.
func (h *handlers) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	cartID, err := uuid.Parse(chi.URLParam(r, "cartID"))
	if err != nil {
		writeError(w, errors.NewBadRequestError("invalid cart id"))
		return
	}
	itemID, err := uuid.Parse(chi.URLParam(r, "itemID"))
	if err != nil {
		writeError(w, errors.NewBadRequestError("invalid item id"))
		return
	}

	if err := h.carts.RemoveItem(cartID, itemID); err != nil {
		writeError(w, errors.Wrap(err, "failed to remove cart item"))
		return
	}

	c, getErr := h.carts.GetCart(cartID)
	if getErr != nil {
		writeError(w, errors.Wrap(getErr, "cart lookup failed"))
		return
	}
	writeJSON(w, http.StatusOK, cartView(c))
}

type submitExtractionRequest struct {
	Transcript string `json:"transcript"`
	Priority   string `json:"priority"`
}

// SubmitExtraction queues a transcript for recipe extraction.
func (h *handlers) SubmitExtraction(w http.ResponseWriter, r *http.Request) {
	var req submitExtractionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.NewBadRequestError("invalid request body"))
		return
	}
	if strings.TrimSpace(req.Transcript) == "" {
		writeError(w, errors.NewBadRequestError("transcript is required"))
		return
	}

	priority := jobs.PriorityNormal
	switch req.Priority {
	case "high":
		priority = jobs.PriorityHigh
	case "low":
		priority = jobs.PriorityLow
	}

	job, ok := h.worker.Submit(req.Transcript, priority)
	if !ok {
		writeError(w, errors.NewAppError(errors.CodeServiceUnavailable, "Extraction queue full", ""))
		return
	}
	writeJSON(w, http.StatusAccepted, job)
}

// GetExtraction returns the state of an extraction job.
func (h *handlers) GetExtraction(w http.ResponseWriter, r *http.Request) {
	jobID, err := uuid.Parse(chi.URLParam(r, "jobID"))
	if err != nil {
		writeError(w, errors.NewBadRequestError("invalid job id"))
		return
	}
	result, ok := h.worker.Result(jobID)
	if !ok {
		writeError(w, errors.NewAppError(errors.CodeNotFound, "Extraction job not found", ""))
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// cartView flattens the cart aggregate for transport.
func cartView(c *cartdomain.Cart) map[string]interface{} {
	return map[string]interface{}{
		"id":              c.ID(),
		"items":           c.Items(),
		"items_count":     c.ItemsCount(),
		"subtotal":        c.Subtotal(),
		"tax_amount":      c.TaxAmount(),
		"delivery_fee":    c.DeliveryFee(),
		"estimated_total": c.EstimatedTotal(),
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, appErr *errors.AppError) {
	writeJSON(w, appErr.StatusCode(), errors.ToErrorResponse(appErr))
}
