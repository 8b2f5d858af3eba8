package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	customerdomain "github.com/retainly/churnguard/internal/customer/domain"
	"github.com/retainly/churnguard/internal/observability/logger"
	"github.com/retainly/churnguard/pkg/db/pagination"
)

type featureSetRequest struct {
	DaysSinceLastLogin  *float64 `json:"days_since_last_login"`
	AvgSessionDuration  *float64 `json:"avg_session_duration"`
	TotalTransactions   *int64   `json:"total_transactions"`
	AvgTransactionValue *float64 `json:"avg_transaction_value"`
	ProductUsage        *float64 `json:"product_usage"`
	SupportSatisfaction *float64 `json:"support_satisfaction"`
	RenewalHistory      *int     `json:"renewal_history"`
}

func (r *featureSetRequest) toDomain() *customerdomain.FeatureSet {
	if r == nil {
		return nil
	}
	features := customerdomain.FeatureSet{SupportSatisfaction: 5}
	if r.DaysSinceLastLogin != nil {
		features.DaysSinceLastLogin = *r.DaysSinceLastLogin
	}
	if r.AvgSessionDuration != nil {
		features.AvgSessionDuration = *r.AvgSessionDuration
	}
	if r.TotalTransactions != nil {
		features.TotalTransactions = *r.TotalTransactions
	}
	if r.AvgTransactionValue != nil {
		features.AvgTransactionValue = *r.AvgTransactionValue
	}
	if r.ProductUsage != nil {
		features.ProductUsage = *r.ProductUsage
	}
	if r.SupportSatisfaction != nil {
		features.SupportSatisfaction = *r.SupportSatisfaction
	}
	if r.RenewalHistory != nil {
		features.RenewalHistory = *r.RenewalHistory
	}
	return &features
}

type createCustomerRequest struct {
	Name              string             `json:"name"`
	Email             string             `json:"email"`
	Company           string             `json:"company"`
	SubscriptionValue float64            `json:"subscription_value"`
	ContractLength    int                `json:"contract_length"`
	SupportTickets    int                `json:"support_tickets"`
	LoginFrequency    float64            `json:"login_frequency"`
	LastActivityAt    *time.Time         `json:"last_activity_at"`
	Features          *featureSetRequest `json:"features"`
}

func (s *Server) CreateCustomer(c *gin.Context) {
	var req createCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.customerSvc.Create(c.Request.Context(), customerdomain.CreateCustomerRequest{
		Name:              strings.TrimSpace(req.Name),
		Email:             strings.TrimSpace(req.Email),
		Company:           strings.TrimSpace(req.Company),
		SubscriptionValue: req.SubscriptionValue,
		ContractLength:    req.ContractLength,
		SupportTickets:    req.SupportTickets,
		LoginFrequency:    req.LoginFrequency,
		LastActivityAt:    req.LastActivityAt,
		Features:          req.Features.toDomain(),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		targetID := resp.ID.String()
		_ = s.auditSvc.AuditLog(c.Request.Context(), "customer.create", "customer", &targetID, map[string]any{
			"email":  logger.MaskEmail(resp.Email),
			"status": string(resp.Status),
		})
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListCustomers(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Status string `form:"status"`
		Search string `form:"q"`
		Sort   string `form:"sort"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.customerSvc.List(c.Request.Context(), customerdomain.ListCustomersRequest{
		Pagination: query.Pagination,
		Status:     strings.TrimSpace(query.Status),
		Search:     strings.TrimSpace(query.Search),
		Sort:       strings.TrimSpace(query.Sort),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":       resp.Customers,
		"pagination": resp.Pagination,
	})
}

func (s *Server) GetCustomerByID(c *gin.Context) {
	resp, err := s.customerSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type updateCustomerRequest struct {
	Name              *string            `json:"name"`
	Email             *string            `json:"email"`
	Company           *string            `json:"company"`
	SubscriptionValue *float64           `json:"subscription_value"`
	ContractLength    *int               `json:"contract_length"`
	SupportTickets    *int               `json:"support_tickets"`
	LoginFrequency    *float64           `json:"login_frequency"`
	LastActivityAt    *time.Time         `json:"last_activity_at"`
	Features          *featureSetRequest `json:"features"`
}

func (s *Server) UpdateCustomer(c *gin.Context) {
	var req updateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.customerSvc.Update(c.Request.Context(), customerdomain.UpdateCustomerRequest{
		ID:                c.Param("id"),
		Name:              req.Name,
		Email:             req.Email,
		Company:           req.Company,
		SubscriptionValue: req.SubscriptionValue,
		ContractLength:    req.ContractLength,
		SupportTickets:    req.SupportTickets,
		LoginFrequency:    req.LoginFrequency,
		LastActivityAt:    req.LastActivityAt,
		Features:          req.Features.toDomain(),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		targetID := resp.ID.String()
		_ = s.auditSvc.AuditLog(c.Request.Context(), "customer.update", "customer", &targetID, map[string]any{
			"risk_score": resp.RiskScore,
			"status":     string(resp.Status),
		})
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteCustomer(c *gin.Context) {
	id := c.Param("id")
	if err := s.customerSvc.Delete(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		targetID := strings.TrimSpace(id)
		_ = s.auditSvc.AuditLog(c.Request.Context(), "customer.delete", "customer", &targetID, nil)
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

type addInteractionRequest struct {
	Type       string     `json:"type"`
	Note       string     `json:"note"`
	OccurredAt *time.Time `json:"occurred_at"`
}

func (s *Server) AddInteraction(c *gin.Context) {
	var req addInteractionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.customerSvc.AddInteraction(c.Request.Context(), customerdomain.AddInteractionRequest{
		CustomerID: c.Param("id"),
		Type:       strings.TrimSpace(req.Type),
		Note:       req.Note,
		OccurredAt: req.OccurredAt,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListInteractions(c *gin.Context) {
	resp, err := s.customerSvc.ListInteractions(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
