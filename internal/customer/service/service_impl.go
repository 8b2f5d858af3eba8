package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/retainly/churnguard/internal/clock"
	customerdomain "github.com/retainly/churnguard/internal/customer/domain"
	predictiondomain "github.com/retainly/churnguard/internal/prediction/domain"
	"github.com/retainly/churnguard/internal/scoring"
	"github.com/retainly/churnguard/pkg/db/pagination"
	"github.com/retainly/churnguard/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// sortFields whitelists the sortable columns of the listing endpoint.
var sortFields = map[string]string{
	"name":               "name",
	"email":              "email",
	"risk_score":         "risk_score",
	"subscription_value": "subscription_value",
	"created_at":         "created_at",
	"last_activity_at":   "last_activity_at",
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clk   clock.Clock

	recorder        predictiondomain.Recorder
	interactionRepo repository.Repository[customerdomain.Interaction]
}

type ServiceParam struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Recorder predictiondomain.Recorder
}

func NewService(p ServiceParam) customerdomain.Service {
	return &Service{
		db:              p.DB,
		log:             p.Log.Named("customer.service"),
		genID:           p.GenID,
		clk:             p.Clock,
		recorder:        p.Recorder,
		interactionRepo: repository.ProvideStore[customerdomain.Interaction](p.DB),
	}
}

func (s *Service) Create(ctx context.Context, req customerdomain.CreateCustomerRequest) (*customerdomain.Customer, error) {
	now := s.clk.Now()

	customer := customerdomain.Customer{
		ID:                s.genID.Generate(),
		Name:              strings.TrimSpace(req.Name),
		Email:             normalizeEmail(req.Email),
		Company:           strings.TrimSpace(req.Company),
		SubscriptionValue: req.SubscriptionValue,
		ContractLength:    req.ContractLength,
		SupportTickets:    req.SupportTickets,
		LoginFrequency:    req.LoginFrequency,
		LastActivityAt:    now,
		FeatureSet: customerdomain.FeatureSet{
			SupportSatisfaction: 5,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if req.LastActivityAt != nil {
		customer.LastActivityAt = req.LastActivityAt.UTC()
	}
	if req.Features != nil {
		customer.FeatureSet = *req.Features
		if customer.SupportSatisfaction == 0 {
			customer.SupportSatisfaction = 5
		}
	}

	if err := validateCustomer(&customer); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		taken, err := emailTaken(ctx, tx, customer.Email, 0)
		if err != nil {
			return err
		}
		if taken {
			return customerdomain.ErrEmailTaken
		}

		// Initial risk is computed before the first persist so status is
		// never unset.
		if _, err := s.recorder.Record(ctx, tx, &customer, predictiondomain.RecordOptions{IncludeFactors: true}); err != nil {
			return err
		}
		return tx.WithContext(ctx).Create(&customer).Error
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("customer created",
		zap.String("customer_id", customer.ID.String()),
		zap.String("status", string(customer.Status)),
	)
	return &customer, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*customerdomain.Customer, error) {
	parsed, err := parseID(id)
	if err != nil {
		return nil, customerdomain.ErrCustomerNotFound
	}

	var customer customerdomain.Customer
	err = s.db.WithContext(ctx).First(&customer, "id = ?", parsed).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, customerdomain.ErrCustomerNotFound
	}
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

func (s *Service) List(ctx context.Context, req customerdomain.ListCustomersRequest) (*customerdomain.ListCustomersResponse, error) {
	status := strings.TrimSpace(req.Status)
	if status != "" && !scoring.ValidStatus(status) {
		return nil, customerdomain.ErrInvalidStatusFilter
	}

	order, err := parseSort(req.Sort)
	if err != nil {
		return nil, err
	}

	query := s.db.WithContext(ctx).Model(&customerdomain.Customer{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if search := strings.TrimSpace(req.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where(
			"LOWER(name) LIKE ? OR LOWER(email) LIKE ? OR LOWER(company) LIKE ?",
			pattern, pattern, pattern,
		)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var customers []customerdomain.Customer
	err = query.
		Order(order).
		Scopes(req.Pagination.Scope()).
		Find(&customers).Error
	if err != nil {
		return nil, err
	}

	return &customerdomain.ListCustomersResponse{
		Customers:  customers,
		Pagination: pagination.NewMetadata(req.Pagination, total),
	}, nil
}

func (s *Service) Update(ctx context.Context, req customerdomain.UpdateCustomerRequest) (*customerdomain.Customer, error) {
	parsed, err := parseID(req.ID)
	if err != nil {
		return nil, customerdomain.ErrCustomerNotFound
	}

	var customer customerdomain.Customer
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.WithContext(ctx).First(&customer, "id = ?", parsed).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return customerdomain.ErrCustomerNotFound
			}
			return err
		}

		scoringChanged := applyUpdate(&customer, req)
		if err := validateCustomer(&customer); err != nil {
			return err
		}

		if req.Email != nil {
			taken, err := emailTaken(ctx, tx, customer.Email, customer.ID)
			if err != nil {
				return err
			}
			if taken {
				return customerdomain.ErrEmailTaken
			}
		}

		// Risk and status must be durable together with the fields that
		// drove them, so recomputation happens inside this transaction.
		if scoringChanged {
			if _, err := s.recorder.Record(ctx, tx, &customer, predictiondomain.RecordOptions{IncludeFactors: true}); err != nil {
				return err
			}
		}

		customer.UpdatedAt = s.clk.Now()
		return tx.WithContext(ctx).Save(&customer).Error
	})
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	parsed, err := parseID(id)
	if err != nil {
		return customerdomain.ErrCustomerNotFound
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.WithContext(ctx).Delete(&customerdomain.Customer{}, "id = ?", parsed)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return customerdomain.ErrCustomerNotFound
		}
		return tx.WithContext(ctx).Delete(&customerdomain.Interaction{}, "customer_id = ?", parsed).Error
	})
}

func (s *Service) AddInteraction(ctx context.Context, req customerdomain.AddInteractionRequest) (*customerdomain.Interaction, error) {
	customer, err := s.GetByID(ctx, req.CustomerID)
	if err != nil {
		return nil, err
	}

	kind := strings.TrimSpace(req.Type)
	if kind == "" {
		return nil, customerdomain.ErrInvalidInteractionType
	}

	now := s.clk.Now()
	interaction := customerdomain.Interaction{
		ID:         s.genID.Generate(),
		CustomerID: customer.ID,
		Type:       kind,
		Note:       strings.TrimSpace(req.Note),
		OccurredAt: now,
		CreatedAt:  now,
	}
	if req.OccurredAt != nil {
		interaction.OccurredAt = req.OccurredAt.UTC()
	}

	if err := s.interactionRepo.Create(ctx, &interaction); err != nil {
		return nil, err
	}
	return &interaction, nil
}

func (s *Service) ListInteractions(ctx context.Context, customerID string) ([]customerdomain.Interaction, error) {
	customer, err := s.GetByID(ctx, customerID)
	if err != nil {
		return nil, err
	}

	var interactions []customerdomain.Interaction
	err = s.db.WithContext(ctx).
		Where("customer_id = ?", customer.ID).
		Order("occurred_at DESC, id DESC").
		Find(&interactions).Error
	if err != nil {
		return nil, err
	}
	return interactions, nil
}

// applyUpdate copies the set fields onto the customer and reports whether
// any scoring-relevant attribute changed.
func applyUpdate(customer *customerdomain.Customer, req customerdomain.UpdateCustomerRequest) bool {
	changed := false

	if req.Name != nil {
		customer.Name = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		customer.Email = normalizeEmail(*req.Email)
	}
	if req.Company != nil {
		customer.Company = strings.TrimSpace(*req.Company)
	}
	if req.SubscriptionValue != nil {
		customer.SubscriptionValue = *req.SubscriptionValue
		changed = true
	}
	if req.ContractLength != nil {
		customer.ContractLength = *req.ContractLength
		changed = true
	}
	if req.SupportTickets != nil {
		customer.SupportTickets = *req.SupportTickets
		changed = true
	}
	if req.LoginFrequency != nil {
		customer.LoginFrequency = *req.LoginFrequency
		changed = true
	}
	if req.LastActivityAt != nil {
		customer.LastActivityAt = req.LastActivityAt.UTC()
	}
	if req.Features != nil {
		customer.FeatureSet = *req.Features
		changed = true
	}

	return changed
}

func validateCustomer(customer *customerdomain.Customer) error {
	if customer.Name == "" {
		return customerdomain.ErrInvalidName
	}
	if !strings.Contains(customer.Email, "@") || strings.ContainsAny(customer.Email, " \t") {
		return customerdomain.ErrInvalidEmail
	}
	if customer.SubscriptionValue < 0 {
		return customerdomain.ErrInvalidSubscriptionValue
	}
	if customer.ContractLength < 1 {
		return customerdomain.ErrInvalidContractLength
	}
	if customer.SupportTickets < 0 {
		return customerdomain.ErrInvalidSupportTickets
	}
	if customer.LoginFrequency < 0 {
		return customerdomain.ErrInvalidLoginFrequency
	}
	if customer.ProductUsage < 0 || customer.ProductUsage > 100 {
		return customerdomain.ErrInvalidProductUsage
	}
	if customer.SupportSatisfaction < 1 || customer.SupportSatisfaction > 10 {
		return customerdomain.ErrInvalidSatisfaction
	}
	return nil
}

func emailTaken(ctx context.Context, tx *gorm.DB, email string, selfID snowflake.ID) (bool, error) {
	var count int64
	query := tx.WithContext(ctx).
		Model(&customerdomain.Customer{}).
		Where("email = ?", email)
	if selfID != 0 {
		query = query.Where("id <> ?", selfID)
	}
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func parseSort(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "created_at DESC", nil
	}

	field, direction, _ := strings.Cut(value, ":")
	column, ok := sortFields[strings.ToLower(strings.TrimSpace(field))]
	if !ok {
		return "", customerdomain.ErrInvalidSort
	}

	switch strings.ToLower(strings.TrimSpace(direction)) {
	case "", "asc":
		return fmt.Sprintf("%s ASC", column), nil
	case "desc":
		return fmt.Sprintf("%s DESC", column), nil
	default:
		return "", customerdomain.ErrInvalidSort
	}
}

func normalizeEmail(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func parseID(value string) (snowflake.ID, error) {
	return snowflake.ParseString(strings.TrimSpace(value))
}
