package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) PredictCustomer(c *gin.Context) {
	resp, err := s.predictionSvc.Predict(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		targetID := resp.Customer.ID.String()
		_ = s.auditSvc.AuditLog(c.Request.Context(), "prediction.create", "customer", &targetID, map[string]any{
			"risk_score":    resp.Record.RiskScore,
			"status":        string(resp.Customer.Status),
			"model_version": resp.Record.ModelVersion,
		})
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListPredictions(c *gin.Context) {
	records, err := s.predictionSvc.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": records})
}

func (s *Server) BulkRecompute(c *gin.Context) {
	result, err := s.predictionSvc.RecomputeAll(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		_ = s.auditSvc.AuditLog(c.Request.Context(), "prediction.recompute_all", "customer", nil, map[string]any{
			"processed": result.Processed,
			"failed":    len(result.Failed),
		})
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}
