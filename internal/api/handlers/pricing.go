package handlers

import (
	"net/http"
	"time"

	"github.com/AAWorks/binomial-pricer/internal/contracts"
	"github.com/AAWorks/binomial-pricer/internal/dispatch"
	"github.com/AAWorks/binomial-pricer/internal/pricingconfig"
	"github.com/AAWorks/binomial-pricer/pkg/logger"
)

// PricingHandler handles pricing API endpoints
// ⭐ SSOT: 가격 API 핸들러는 이 구조체에서만
type PricingHandler struct {
	dispatcher *dispatch.Dispatcher
	logger     *logger.Logger
	now        func() time.Time
}

// NewPricingHandler creates a new pricing handler
func NewPricingHandler(d *dispatch.Dispatcher, log *logger.Logger) *PricingHandler {
	return &PricingHandler{
		dispatcher: d,
		logger:     logger.OrNop(log),
		now:        time.Now,
	}
}

// ContractRequest carries the contract terms of every pricing request.
// Either years or maturity (YYYY-MM-DD) sets the expiry.
type ContractRequest struct {
	Contract pricingconfig.BookEntry `json:"contract"`
}

func (req ContractRequest) contract(now time.Time) (contracts.OptionContract, error) {
	return req.Contract.Contract(now)
}

// PriceRequest is the body of POST /api/price and POST /api/greeks
type PriceRequest struct {
	ContractRequest
	Method string `json:"method"`
}

// ConvergenceRequest is the body of POST /api/convergence.
// A zero range uses the configured one.
type ConvergenceRequest struct {
	ContractRequest
	From int `json:"from"`
	To   int `json:"to"`
}

// PathRequest is the body of POST /api/environment/path
type PathRequest struct {
	ContractRequest
	Episode int `json:"episode"`
}

// GetModels lists the engines of a region
// GET /api/models?region=eu
func (h *PricingHandler) GetModels(w http.ResponseWriter, r *http.Request) {
	region := r.URL.Query().Get("region")
	if region == "" {
		out := make(map[string][]contracts.Method, len(dispatch.Regions()))
		for _, reg := range dispatch.Regions() {
			out[reg], _ = dispatch.Models(reg)
		}
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data":    out,
		})
		return
	}

	models, err := dispatch.Models(region)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"region":  region,
		"data":    models,
	})
}

// Price values a contract with one engine
// POST /api/price
func (h *PricingHandler) Price(w http.ResponseWriter, r *http.Request) {
	var req PriceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	method, err := contracts.ParseMethod(req.Method)
	if err != nil {
		respondErr(w, err)
		return
	}
	c, err := req.contract(h.now())
	if err != nil {
		respondErr(w, err)
		return
	}

	result, err := h.dispatcher.Price(r.Context(), c, method)
	if err != nil {
		h.logFailure(err, "price", c)
		respondErr(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"contract": c.String(),
		"data":     result,
	})
}

// PriceAll values a contract with every engine of its region
// POST /api/price/all
func (h *PricingHandler) PriceAll(w http.ResponseWriter, r *http.Request) {
	var req ContractRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	c, err := req.contract(h.now())
	if err != nil {
		respondErr(w, err)
		return
	}

	results, err := h.dispatcher.PriceAll(r.Context(), c)
	if err != nil {
		h.logFailure(err, "price_all", c)
		respondErr(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"contract": c.String(),
		"data":     results,
	})
}

// Greeks computes the sensitivities of a contract with one engine
// POST /api/greeks
func (h *PricingHandler) Greeks(w http.ResponseWriter, r *http.Request) {
	var req PriceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	method, err := contracts.ParseMethod(req.Method)
	if err != nil {
		respondErr(w, err)
		return
	}
	c, err := req.contract(h.now())
	if err != nil {
		respondErr(w, err)
		return
	}

	greeks, err := h.dispatcher.Greeks(r.Context(), c, method)
	if err != nil {
		h.logFailure(err, "greeks", c)
		respondErr(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"contract": c.String(),
		"method":   method,
		"data":     greeks,
	})
}

// Convergence returns lattice prices over a range of depths
// POST /api/convergence
func (h *PricingHandler) Convergence(w http.ResponseWriter, r *http.Request) {
	var req ConvergenceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	c, err := req.contract(h.now())
	if err != nil {
		respondErr(w, err)
		return
	}

	report, err := h.dispatcher.Convergence(r.Context(), c, req.From, req.To)
	if err != nil {
		h.logFailure(err, "convergence", c)
		respondErr(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    report,
	})
}

// SimulatePath returns one simulated daily price path
// POST /api/environment/path
func (h *PricingHandler) SimulatePath(w http.ResponseWriter, r *http.Request) {
	var req PathRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	c, err := req.contract(h.now())
	if err != nil {
		respondErr(w, err)
		return
	}

	path, err := h.dispatcher.SimulatePath(c, req.Episode)
	if err != nil {
		respondErr(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"contract": c.String(),
		"episode":  req.Episode,
		"data":     path,
	})
}

func (h *PricingHandler) logFailure(err error, op string, c contracts.OptionContract) {
	if StatusFor(err) < http.StatusInternalServerError {
		return
	}
	h.logger.WithError(err).WithFields(map[string]interface{}{
		"op":       op,
		"contract": c.String(),
	}).Error("Pricing request failed")
}
