package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/rustyeddy/goldtrader/broker"
	"github.com/rustyeddy/goldtrader/broker/paper"
	"github.com/rustyeddy/goldtrader/risk"
)

type orderRequest struct {
	EntryStrategy    string         `json:"entry_strategy" binding:"required"`
	Side             string         `json:"side" binding:"required"`
	StopLoss         float64        `json:"stop_loss"`
	TakeProfit       float64        `json:"take_profit"`
	RecoveryTask     string         `json:"recovery_task"`
	MarketConditions map[string]any `json:"market_conditions"`
	RecoveryContext  map[string]any `json:"recovery_context"`
}

type orderResponse struct {
	Sizing risk.SizingResult `json:"sizing"`
	Fill   broker.OrderFill  `json:"fill"`
	Plan   risk.TradePlan    `json:"plan"`
}

type fallbackResponse struct {
	Error  string            `json:"error"`
	Sizing risk.SizingResult `json:"sizing"`
}

func (s *Server) trader(c *gin.Context) (Trader, bool) {
	if s.d.Trader == nil {
		errorResponse(c, http.StatusServiceUnavailable, "no trading account configured")
		return nil, false
	}
	return s.d.Trader, true
}

// handleOrder sizes an entry and places it. A fallback size is never
// executed.
func (s *Server) handleOrder(c *gin.Context) {
	tr, ok := s.trader(c)
	if !ok {
		return
	}
	var req orderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	entry, err := risk.ParseEntryStrategy(req.EntryStrategy)
	if err != nil {
		errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	var long bool
	switch strings.ToLower(req.Side) {
	case "buy", "long":
		long = true
	case "sell", "short":
	default:
		errorResponse(c, http.StatusBadRequest, "side must be buy or sell")
		return
	}

	res := s.size(c, entry, req.MarketConditions, req.RecoveryContext)
	if res.Fallback {
		c.JSON(http.StatusConflict, fallbackResponse{Error: "sizing fell back, order not placed", Sizing: res})
		return
	}

	ctx := c.Request.Context()
	fill, err := tr.Execute(ctx, res, long, req.StopLoss, req.TakeProfit, req.RecoveryTask)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, paper.ErrInsufficientMargin) {
			status = http.StatusUnprocessableEntity
		}
		errorResponse(c, status, err.Error())
		return
	}
	plan, err := tr.Plan(ctx, fill)
	if err != nil {
		s.log.Warn().Err(err).Str("trade_id", fill.TradeID).Msg("plan order")
	}
	s.log.Info().
		Str("category", string(risk.CategorySizing)).
		Str("trade_id", fill.TradeID).
		Float64("lots", fill.Lots).
		Float64("price", fill.Price).
		Float64("planned_risk", plan.PlannedRisk).
		Msg("order placed")
	c.JSON(http.StatusCreated, orderResponse{Sizing: res, Fill: fill, Plan: plan})
}

func (s *Server) handleCloseTrade(c *gin.Context) {
	tr, ok := s.trader(c)
	if !ok {
		return
	}
	tradeID := c.Param("id")
	err := tr.CloseTrade(c.Request.Context(), tradeID, c.Query("reason"))
	switch {
	case errors.Is(err, paper.ErrTradeNotFound):
		errorResponse(c, http.StatusNotFound, err.Error())
	case errors.Is(err, paper.ErrTradeAlreadyClosed):
		errorResponse(c, http.StatusConflict, err.Error())
	case err != nil:
		errorResponse(c, http.StatusBadRequest, err.Error())
	default:
		c.JSON(http.StatusOK, gin.H{"trade_id": tradeID, "status": "closed"})
	}
}

func (s *Server) handleListRecoveries(c *gin.Context) {
	tr, ok := s.trader(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, tr.Recoveries())
}

func (s *Server) handleStartRecovery(c *gin.Context) {
	tr, ok := s.trader(c)
	if !ok {
		return
	}
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
	err = tr.StartRecovery(c.Request.Context(), req.TaskID, method, req.OriginalLoss)
	switch {
	case errors.Is(err, paper.ErrRecoveryExists):
		errorResponse(c, http.StatusConflict, err.Error())
	case err != nil:
		errorResponse(c, http.StatusBadRequest, err.Error())
	default:
		c.JSON(http.StatusCreated, req)
	}
}

func (s *Server) handleEndRecovery(c *gin.Context) {
	tr, ok := s.trader(c)
	if !ok {
		return
	}
	err := tr.EndRecovery(c.Request.Context(), c.Param("task"))
	switch {
	case errors.Is(err, paper.ErrRecoveryNotFound):
		errorResponse(c, http.StatusNotFound, err.Error())
	case err != nil:
		errorResponse(c, http.StatusBadRequest, err.Error())
	default:
		c.Status(http.StatusNoContent)
	}
}

// handleRisk reports drawdown, VaR and recovery risk and publishes the
// headline figures as gauges.
func (s *Server) handleRisk(c *gin.Context) {
	tr, ok := s.trader(c)
	if !ok {
		return
	}
	rep := tr.RiskReport(c.Request.Context())
	if s.d.Metrics != nil {
		s.d.Metrics.RiskReported(rep)
	}
	c.JSON(http.StatusOK, rep)
}
