package domain

import (
	"context"
	"errors"
)

// Service manages the customer lifecycle. Every mutation that touches
// features or commercial attributes recomputes risk before it is durable.
type Service interface {
	Create(ctx context.Context, req CreateCustomerRequest) (*Customer, error)
	GetByID(ctx context.Context, id string) (*Customer, error)
	List(ctx context.Context, req ListCustomersRequest) (*ListCustomersResponse, error)
	Update(ctx context.Context, req UpdateCustomerRequest) (*Customer, error)
	Delete(ctx context.Context, id string) error

	AddInteraction(ctx context.Context, req AddInteractionRequest) (*Interaction, error)
	ListInteractions(ctx context.Context, customerID string) ([]Interaction, error)
}

var (
	ErrCustomerNotFound         = errors.New("customer_not_found")
	ErrEmailTaken               = errors.New("email_taken")
	ErrInvalidName              = errors.New("invalid_name")
	ErrInvalidEmail             = errors.New("invalid_email")
	ErrInvalidSubscriptionValue = errors.New("invalid_subscription_value")
	ErrInvalidContractLength    = errors.New("invalid_contract_length")
	ErrInvalidSupportTickets    = errors.New("invalid_support_tickets")
	ErrInvalidLoginFrequency    = errors.New("invalid_login_frequency")
	ErrInvalidProductUsage      = errors.New("invalid_product_usage")
	ErrInvalidSatisfaction      = errors.New("invalid_support_satisfaction")
	ErrInvalidStatusFilter      = errors.New("invalid_status_filter")
	ErrInvalidSort              = errors.New("invalid_sort")
	ErrInvalidInteractionType   = errors.New("invalid_interaction_type")
)
