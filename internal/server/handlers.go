package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/malkaabi/fraudlens/internal/ensemble"
	"github.com/malkaabi/fraudlens/internal/health"
	"github.com/malkaabi/fraudlens/internal/idgen"
	"github.com/malkaabi/fraudlens/internal/logging"
	"github.com/malkaabi/fraudlens/internal/metrics"
	"github.com/malkaabi/fraudlens/internal/realtime"
	"github.com/malkaabi/fraudlens/internal/sequence"
	"github.com/malkaabi/fraudlens/internal/session"
)

// evaluateRequest is the POST /v1/evaluate body. Pointer fields distinguish
// "absent" from zero so missing values take neutral defaults instead of the
// most suspicious reading.
type evaluateRequest struct {
	UserID           string  `json:"userId"`
	DeviceKnown      *bool   `json:"deviceKnown"`
	LocationChangeKm float64 `json:"locationChangeKm"`
	HourOfDay        *int    `json:"hourOfDay"`
	OpsLast24h       int     `json:"opsLast24h"`
	SensitiveService bool    `json:"sensitiveService"`

	// Accepts a JSON array or a comma-separated string.
	ActionSequence any `json:"actionSequence"`

	NetworkAddress string `json:"networkAddress"`
	DeviceID       string `json:"deviceId"`
	DocumentHash   string `json:"documentHash"`
}

const defaultUserID = "U1"

// sessionContext applies the defaulting rules and builds the engine input.
func (r *evaluateRequest) sessionContext() *session.Context {
	sc := &session.Context{
		UserID:           r.UserID,
		DeviceKnown:      true,
		LocationChangeKm: r.LocationChangeKm,
		HourOfDay:        session.DefaultHourOfDay,
		OpsLast24h:       r.OpsLast24h,
		SensitiveService: r.SensitiveService,
		ActionSequence:   sequence.Normalize(r.ActionSequence),
		NetworkAddress:   r.NetworkAddress,
		DeviceID:         r.DeviceID,
		DocumentHash:     r.DocumentHash,
	}
	if sc.UserID == "" {
		sc.UserID = defaultUserID
	}
	if r.DeviceKnown != nil {
		sc.DeviceKnown = *r.DeviceKnown
	}
	if r.HourOfDay != nil {
		sc.HourOfDay = *r.HourOfDay
	}
	return sc
}

// evaluateHandler handles POST /v1/evaluate
func (s *Server) evaluateHandler(c *gin.Context) {
	ctx := c.Request.Context()

	var req evaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request body",
		})
		return
	}

	sc := req.sessionContext()

	start := time.Now()
	res, err := s.engine.Evaluate(ctx, sc)
	if err != nil {
		if errors.Is(err, ensemble.ErrModelUnavailable) {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error":   "model_unavailable",
				"message": "Risk model provider is unavailable, evaluation refused",
			})
			return
		}
		logging.L(ctx).Error("evaluation failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Evaluation failed",
		})
		return
	}

	metrics.EvaluationDuration.Observe(time.Since(start).Seconds())
	metrics.EvaluationsTotal.WithLabelValues(string(res.Decision)).Inc()
	metrics.LayerScore.WithLabelValues("behavior").Observe(float64(res.BehaviorRisk))
	metrics.LayerScore.WithLabelValues("ensemble").Observe(float64(res.EnsembleRisk))
	metrics.LayerScore.WithLabelValues("sequence").Observe(float64(res.SequenceRisk))
	metrics.LayerScore.WithLabelValues("graph").Observe(float64(res.GraphRisk))

	s.hub.BroadcastEvaluation(realtime.EvaluationData{
		UserID:    sc.UserID,
		TotalRisk: res.TotalRisk,
		Decision:  string(res.Decision),
	})

	c.JSON(http.StatusOK, res)
}

// confirmFraudRequest is the POST /v1/confirm-fraud body. Sent after a human
// analyst confirms a case; the identifiers enter the asset risk graph.
type confirmFraudRequest struct {
	NetworkAddress string `json:"networkAddress"`
	DeviceID       string `json:"deviceId"`
	DocumentHash   string `json:"documentHash"`
	ActionSequence any    `json:"actionSequence"`
}

// confirmFraudHandler handles POST /v1/confirm-fraud
func (s *Server) confirmFraudHandler(c *gin.Context) {
	ctx := c.Request.Context()

	var req confirmFraudRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request body",
		})
		return
	}

	seq := sequence.Normalize(req.ActionSequence)
	touched := s.graph.RegisterFraudCase(req.NetworkAddress, req.DeviceID, req.DocumentHash, seq)
	if touched == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "no_assets",
			"message": "At least one of networkAddress, deviceId, documentHash is required",
		})
		return
	}

	caseID := idgen.WithPrefix("case_")

	metrics.FraudConfirmationsTotal.Inc()
	perKind, cases := s.graph.Counts()
	for kind, n := range perKind {
		metrics.GraphAssets.WithLabelValues(string(kind)).Set(float64(n))
	}

	logging.L(ctx).Info("fraud case registered",
		"case_id", caseID,
		"assets", touched,
		"total_cases", cases,
	)

	s.hub.BroadcastFraudConfirmed(gin.H{
		"caseId":         caseID,
		"assets":         touched,
		"networkAddress": req.NetworkAddress,
		"deviceId":       req.DeviceID,
		"documentHash":   req.DocumentHash,
	})

	c.JSON(http.StatusOK, gin.H{
		"status": "registered",
		"caseId": caseID,
		"assets": touched,
	})
}

// graphDataHandler handles GET /v1/graph-data
func (s *Server) graphDataHandler(c *gin.Context) {
	c.JSON(http.StatusOK, s.graph.Export())
}

// -----------------------------------------------------------------------------
// Health & info
// -----------------------------------------------------------------------------

// HealthResponse for health check endpoints
type HealthResponse struct {
	Status    string          `json:"status"`
	Version   string          `json:"version"`
	Checks    []health.Status `json:"checks,omitempty"`
	Timestamp string          `json:"timestamp"`
}

func (s *Server) healthHandler(c *gin.Context) {
	healthy, statuses := s.healthReg.CheckAll(c.Request.Context())

	status := "healthy"
	httpStatus := http.StatusOK
	if !healthy {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, HealthResponse{
		Status:    status,
		Version:   "0.1.0",
		Checks:    statuses,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) livenessHandler(c *gin.Context) {
	if !s.healthy.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

func (s *Server) readinessHandler(c *gin.Context) {
	if !s.ready.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (s *Server) infoHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":        "FraudLens",
		"description": "Layered risk scoring for government e-service sessions",
		"version":     "0.1.0",
	})
}
