package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/romanpTAMU/astro-llm/internal/brain"
	"github.com/romanpTAMU/astro-llm/internal/contracts"
	"github.com/romanpTAMU/astro-llm/internal/portfolio"
	"github.com/romanpTAMU/astro-llm/pkg/logger"
)

// PipelineHandler serves scoring and portfolio construction
// ⭐ SSOT: S3/S5 API 핸들러는 이 구조체에서만
type PipelineHandler struct {
	orch      *brain.Orchestrator
	validator *portfolio.Validator
	notional  float64
	logger    *logger.Logger
}

// NewPipelineHandler creates a new pipeline handler
func NewPipelineHandler(orch *brain.Orchestrator, validator *portfolio.Validator, notional float64, log *logger.Logger) *PipelineHandler {
	return &PipelineHandler{
		orch:      orch,
		validator: validator,
		notional:  notional,
		logger:    log,
	}
}

// ScoreRequest is the candidate pool to score
type ScoreRequest struct {
	Candidates []contracts.CandidateData `json:"candidates"`
}

// Score ranks a candidate pool
// POST /api/score
func (h *PipelineHandler) Score(w http.ResponseWriter, r *http.Request) {
	var req ScoreRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if len(req.Candidates) == 0 {
		respondError(w, http.StatusBadRequest, "candidates are required")
		return
	}

	result, err := h.orch.Score(r.Context(), req.Candidates)
	if err != nil {
		h.logger.WithError(err).Error("Failed to score candidates")
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// PortfolioRequest builds an allocation from ranked candidates
type PortfolioRequest struct {
	Candidates []contracts.ScoredCandidate   `json:"candidates"`
	Proposal   *contracts.ProposedAllocation `json:"proposal,omitempty"`
	Prices     map[string]float64            `json:"prices,omitempty"`
	Save       bool                          `json:"save"`
}

// BuildPortfolio constructs (and optionally saves) a validated allocation
// POST /api/portfolio
func (h *PipelineHandler) BuildPortfolio(w http.ResponseWriter, r *http.Request) {
	var req PortfolioRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if len(req.Candidates) == 0 {
		respondError(w, http.StatusBadRequest, "candidates are required")
		return
	}

	alloc, err := h.orch.Build(r.Context(), req.Candidates, req.Proposal, req.Prices, req.Save)
	if err != nil {
		h.logger.WithError(err).Warn("Portfolio construction failed")
		respondDomainError(w, err)
		return
	}

	status := http.StatusOK
	if req.Save {
		status = http.StatusCreated
	}
	respondJSON(w, status, alloc)
}

// RunResponse is a saved allocation with its build-time prices
type RunResponse struct {
	Allocation *contracts.Allocation `json:"allocation"`
	Prices     map[string]float64    `json:"prices"`
}

// GetPortfolio returns a saved run
// GET /api/portfolio/latest
// GET /api/portfolio/{runID}
func (h *PipelineHandler) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	runID := mux.Vars(r)["runID"]

	alloc, prices, err := h.orch.LoadRun(r.Context(), runID)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, RunResponse{Allocation: alloc, Prices: prices})
}

// ValidateResponse is the validator verdict for an allocation
type ValidateResponse struct {
	Valid                   bool                  `json:"valid"`
	Warnings                []string              `json:"warnings,omitempty"`
	ReliesOnSectorTolerance bool                  `json:"relies_on_sector_tolerance"`
	Violations              []contracts.Violation `json:"violations,omitempty"`
}

// ValidatePortfolio checks an externally built allocation against the constraints
// POST /api/portfolio/validate
func (h *PipelineHandler) ValidatePortfolio(w http.ResponseWriter, r *http.Request) {
	var alloc contracts.Allocation
	if err := decodeJSON(w, r, &alloc); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	report, err := h.validator.Validate(&alloc)
	resp := ValidateResponse{
		Valid:                   err == nil,
		Warnings:                report.Warnings,
		ReliesOnSectorTolerance: report.ReliesOnSectorTolerance,
	}
	if ve, ok := err.(*contracts.ValidationError); ok {
		resp.Violations = ve.Violations
	} else if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

// RunRequest runs the full pipeline
type RunRequest struct {
	Candidates []contracts.CandidateData     `json:"candidates"`
	Proposal   *contracts.ProposedAllocation `json:"proposal,omitempty"`
	Notional   float64                       `json:"notional,omitempty"`
	DryRun     bool                          `json:"dry_run"`
}

// Run scores, constructs and rebalances in one call
// POST /api/pipeline/run
func (h *PipelineHandler) Run(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if len(req.Candidates) == 0 {
		respondError(w, http.StatusBadRequest, "candidates are required")
		return
	}
	if req.Notional <= 0 {
		req.Notional = h.notional
	}

	result, err := h.orch.Run(r.Context(), brain.RunConfig{
		Candidates: req.Candidates,
		Proposal:   req.Proposal,
		Notional:   req.Notional,
		DryRun:     req.DryRun,
	})
	if err != nil {
		h.logger.WithError(err).Error("Pipeline run failed")
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}
