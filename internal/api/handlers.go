package api

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rustyeddy/goldtrader/journal"
	"github.com/rustyeddy/goldtrader/pkg/id"
	"github.com/rustyeddy/goldtrader/risk"
)

type sizeRequest struct {
	EntryStrategy    string         `json:"entry_strategy" binding:"required"`
	MarketConditions map[string]any `json:"market_conditions"`
	RecoveryContext  map[string]any `json:"recovery_context"`
}

type recoveryRequest struct {
	TaskID       string  `json:"task_id" binding:"required"`
	Method       string  `json:"method" binding:"required"`
	OriginalLoss float64 `json:"original_loss"`
}

type fillRequest struct {
	Lots         float64 `json:"lots" binding:"required"`
	RiskFraction float64 `json:"risk_fraction"`
	Source       string  `json:"source"`
}

type fillResponse struct {
	ID     string         `json:"id"`
	Totals risk.DayTotals `json:"totals"`
}

func (s *Server) handleHealth(c *gin.Context) {
	active := s.d.Refresher != nil && s.d.Refresher.Active()
	c.JSON(http.StatusOK, gin.H{
		"status":           "ok",
		"refresher_active": active,
		"parameters_as_of": s.d.Sizer.Store().UpdatedAt(),
	})
}

// handleSize sizes an entry. Without market_conditions the market source
// configured on the sizer supplies them.
func (s *Server) handleSize(c *gin.Context) {
	var req sizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	entry, err := risk.ParseEntryStrategy(req.EntryStrategy)
	if err != nil {
		errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	c.JSON(http.StatusOK, s.size(c, entry, req.MarketConditions, req.RecoveryContext))
}

func (s *Server) size(c *gin.Context, entry risk.EntryStrategy, conditions, recovery map[string]any) risk.SizingResult {
	rec := risk.ParseRecoveryContext(recovery)
	if conditions == nil {
		return s.d.Sizer.CalculateAuto(c.Request.Context(), entry, rec)
	}
	return s.d.Sizer.Calculate(entry, risk.ParseConditions(conditions), rec)
}

func (s *Server) handleRecoverySize(c *gin.Context) {
	var req recoveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	method, err := risk.ParseRecoveryMethod(req.Method)
	if err != nil {
		errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	res := s.d.Sizer.CalculateRecoverySize(c.Request.Context(), req.TaskID, method, req.OriginalLoss)
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.d.Sizer.Stats())
}

func (s *Server) handleGetParameters(c *gin.Context) {
	c.JSON(http.StatusOK, s.d.Sizer.Store().Get())
}

// handlePutParameters replaces the snapshot wholesale. The next refresh
// overwrites the fields its sources own.
func (s *Server) handlePutParameters(c *gin.Context) {
	var p risk.SizingParameters
	if err := c.ShouldBindJSON(&p); err != nil {
		errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.d.Sizer.Store().Set(p); err != nil {
		errorResponse(c, http.StatusUnprocessableEntity, err.Error())
		return
	}
	s.log.Info().Str("category", string(risk.CategorySystem)).Msg("parameters replaced")
	c.JSON(http.StatusOK, s.d.Sizer.Store().Get())
}

// handlePatchParameters merges the JSON body into the current snapshot.
func (s *Server) handlePatchParameters(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil || !json.Valid(body) {
		errorResponse(c, http.StatusBadRequest, "body must be a JSON object")
		return
	}
	err = s.d.Sizer.Store().Update(func(p *risk.SizingParameters) error {
		return json.Unmarshal(body, p)
	})
	if err != nil {
		errorResponse(c, http.StatusUnprocessableEntity, err.Error())
		return
	}
	s.log.Info().Str("category", string(risk.CategorySystem)).Msg("parameters patched")
	c.JSON(http.StatusOK, s.d.Sizer.Store().Get())
}

// handleFill books executed volume against the day and refreshes the
// parameters so the next sizing sees it.
func (s *Server) handleFill(c *gin.Context) {
	if s.d.Ledger == nil {
		errorResponse(c, http.StatusServiceUnavailable, "no daily ledger configured")
		return
	}
	var req fillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	now := s.d.Now()
	if err := s.d.Ledger.Record(now, req.Lots, req.RiskFraction); err != nil {
		errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	source := req.Source
	if source == "" {
		source = "api"
	}
	fill := journal.FillRecord{
		ID:           id.At(now),
		Time:         now.UTC(),
		Lots:         req.Lots,
		RiskFraction: req.RiskFraction,
		Source:       source,
	}
	if err := s.d.Journal.RecordFill(fill); err != nil {
		s.log.Warn().Err(err).Msg("record fill")
	}

	totals := s.d.Ledger.Totals(now)
	if s.d.Metrics != nil {
		s.d.Metrics.FillRecorded(totals.Volume)
	}
	if s.d.Refresher != nil {
		if err := s.d.Refresher.Refresh(c.Request.Context()); err != nil {
			s.log.Warn().Err(err).Msg("refresh after fill")
		}
	}
	c.JSON(http.StatusCreated, fillResponse{ID: fill.ID, Totals: totals})
}
