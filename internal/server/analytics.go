package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) AnalyticsSummary(c *gin.Context) {
	summary, err := s.analyticsSvc.Summary(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": summary})
}
