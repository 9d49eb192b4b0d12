// Package api serves the sizer over HTTP with gin.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/rustyeddy/goldtrader/broker"
	"github.com/rustyeddy/goldtrader/broker/paper"
	"github.com/rustyeddy/goldtrader/internal/metrics"
	"github.com/rustyeddy/goldtrader/journal"
	"github.com/rustyeddy/goldtrader/risk"
)

// Trader executes sized orders and manages positions on an account.
type Trader interface {
	Execute(ctx context.Context, res risk.SizingResult, long bool, stop, takeProfit float64, recoveryTask string) (broker.OrderFill, error)
	Plan(ctx context.Context, fill broker.OrderFill) (risk.TradePlan, error)
	CloseTrade(ctx context.Context, tradeID, reason string) error
	StartRecovery(ctx context.Context, taskID string, method risk.RecoveryMethod, originalLoss float64) error
	EndRecovery(ctx context.Context, taskID string) error
	Recoveries() []paper.Recovery
	RiskReport(ctx context.Context) risk.Report
}

// Deps are the collaborators the handlers use. Only Sizer is required.
type Deps struct {
	Sizer     *risk.Sizer
	Refresher *risk.Refresher
	Ledger    *risk.DailyLedger
	Journal   journal.Journal
	Metrics   *metrics.Recorder
	Trader    Trader
	Log       zerolog.Logger
	Now       func() time.Time
}

type Server struct {
	d   Deps
	log zerolog.Logger
}

func New(d Deps) (*Server, error) {
	if d.Sizer == nil {
		return nil, errors.New("api: sizer is required")
	}
	if d.Journal == nil {
		d.Journal = journal.Nop{}
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return &Server{d: d, log: d.Log.With().Str("component", "api").Logger()}, nil
}

func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLog())

	r.GET("/healthz", s.handleHealth)
	if s.d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(s.d.Metrics.Handler()))
	}

	v1 := r.Group("/v1")
	v1.POST("/size", s.handleSize)
	v1.POST("/size/recovery", s.handleRecoverySize)
	v1.GET("/stats", s.handleStats)
	v1.GET("/parameters", s.handleGetParameters)
	v1.PUT("/parameters", s.handlePutParameters)
	v1.PATCH("/parameters", s.handlePatchParameters)
	v1.POST("/fills", s.handleFill)

	v1.POST("/orders", s.handleOrder)
	v1.POST("/trades/:id/close", s.handleCloseTrade)
	v1.GET("/recoveries", s.handleListRecoveries)
	v1.POST("/recoveries", s.handleStartRecovery)
	v1.DELETE("/recoveries/:task", s.handleEndRecovery)
	v1.GET("/risk", s.handleRisk)
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	}
}

func errorResponse(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}
