package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pos-service/internal/models"
	"pos-service/internal/store"
	"pos-service/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// CustomerService handles customer accounts and loyalty balances
type CustomerService struct {
	store  *store.Store
	events EventPublisher
	logger *zap.Logger
}

// NewCustomerService creates a new customer service
func NewCustomerService(store *store.Store, events EventPublisher) *CustomerService {
	if events == nil {
		events = noopPublisher{}
	}
	return &CustomerService{
		store:  store,
		events: events,
		logger: util.GetLogger(),
	}
}

// CreateCustomerRequest represents a request to create a customer
type CreateCustomerRequest struct {
	Name          string           `json:"name" validate:"required,max=255"`
	Phone         string           `json:"phone" validate:"max=64"`
	Email         string           `json:"email" validate:"omitempty,email,max=255"`
	LoyaltyPoints int              `json:"loyaltyPoints" validate:"min=0"`
	TotalSpent    *decimal.Decimal `json:"totalSpent"`
	Notes         string           `json:"notes"`
}

// UpdateCustomerRequest carries the fields to change; nil fields are kept
type UpdateCustomerRequest struct {
	Name          *string          `json:"name" validate:"omitempty,min=1,max=255"`
	Phone         *string          `json:"phone" validate:"omitempty,max=64"`
	Email         *string          `json:"email" validate:"omitempty,email,max=255"`
	LoyaltyPoints *int             `json:"loyaltyPoints" validate:"omitempty,min=0"`
	TotalSpent    *decimal.Decimal `json:"totalSpent"`
	Notes         *string          `json:"notes"`
}

// AdjustLoyaltyRequest changes a point balance. Operation defaults to add.
type AdjustLoyaltyRequest struct {
	Points    *int   `json:"points" validate:"required"`
	Operation string `json:"operation" validate:"omitempty,oneof=add subtract set"`
}

// ListCustomers returns all customers, newest first
func (s *CustomerService) ListCustomers(ctx context.Context) ([]models.Customer, error) {
	ctx, span := util.StartSpan(ctx, "CustomerService.ListCustomers")
	defer span.End()

	customers, err := s.store.GetCustomers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	return customers, nil
}

// GetCustomer retrieves a customer by ID
func (s *CustomerService) GetCustomer(ctx context.Context, id int64) (*models.Customer, error) {
	ctx, span := util.StartSpan(ctx, "CustomerService.GetCustomer", attribute.Int64("customer.id", id))
	defer span.End()

	customer, err := s.store.GetCustomerByID(ctx, id)
	if err != nil {
		return nil, customerError(err)
	}
	return customer, nil
}

// SearchCustomers matches customers on name, phone or email
func (s *CustomerService) SearchCustomers(ctx context.Context, query string) ([]models.Customer, error) {
	ctx, span := util.StartSpan(ctx, "CustomerService.SearchCustomers")
	defer span.End()

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, validationErrorf("search query is required")
	}

	customers, err := s.store.SearchCustomers(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to search customers: %w", err)
	}
	return customers, nil
}

// CreateCustomer creates a customer account
func (s *CustomerService) CreateCustomer(ctx context.Context, req *CreateCustomerRequest) (*models.Customer, error) {
	ctx, span := util.StartSpan(ctx, "CustomerService.CreateCustomer")
	defer span.End()

	if err := validateStruct(req); err != nil {
		return nil, err
	}

	customer := &models.Customer{
		Name:          strings.TrimSpace(req.Name),
		Phone:         strings.TrimSpace(req.Phone),
		Email:         strings.TrimSpace(req.Email),
		LoyaltyPoints: req.LoyaltyPoints,
		TotalSpent:    decimal.Zero,
		Notes:         req.Notes,
	}
	if req.TotalSpent != nil {
		if err := checkAmount("totalSpent", *req.TotalSpent); err != nil {
			return nil, err
		}
		customer.TotalSpent = *req.TotalSpent
	}

	if err := s.store.CreateCustomer(ctx, customer); err != nil {
		return nil, customerError(err)
	}

	s.logger.Info("Customer created", zap.Int64("customer_id", customer.ID))
	s.publish(ctx, customer, models.ChangeActionCreated)
	return customer, nil
}

// UpdateCustomer applies a partial update to a customer
func (s *CustomerService) UpdateCustomer(ctx context.Context, id int64, req *UpdateCustomerRequest) (*models.Customer, error) {
	ctx, span := util.StartSpan(ctx, "CustomerService.UpdateCustomer", attribute.Int64("customer.id", id))
	defer span.End()

	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if req.TotalSpent != nil {
		if err := checkAmount("totalSpent", *req.TotalSpent); err != nil {
			return nil, err
		}
	}

	var customer *models.Customer
	err := s.store.WithTx(ctx, func(q *store.Queries) error {
		c, err := q.GetCustomerForUpdate(ctx, id)
		if err != nil {
			return err
		}

		if req.Name != nil {
			c.Name = strings.TrimSpace(*req.Name)
		}
		if req.Phone != nil {
			c.Phone = strings.TrimSpace(*req.Phone)
		}
		if req.Email != nil {
			c.Email = strings.TrimSpace(*req.Email)
		}
		if req.LoyaltyPoints != nil {
			c.LoyaltyPoints = *req.LoyaltyPoints
		}
		if req.TotalSpent != nil {
			c.TotalSpent = *req.TotalSpent
		}
		if req.Notes != nil {
			c.Notes = *req.Notes
		}

		customer = c
		return q.UpdateCustomer(ctx, c)
	})
	if err != nil {
		return nil, customerError(err)
	}

	s.logger.Info("Customer updated", zap.Int64("customer_id", id))
	s.publish(ctx, customer, models.ChangeActionUpdated)
	return customer, nil
}

// DeleteCustomer removes a customer account. Past sales are kept.
func (s *CustomerService) DeleteCustomer(ctx context.Context, id int64) error {
	ctx, span := util.StartSpan(ctx, "CustomerService.DeleteCustomer", attribute.Int64("customer.id", id))
	defer span.End()

	if err := s.store.DeleteCustomer(ctx, id); err != nil {
		return customerError(err)
	}

	s.logger.Info("Customer deleted", zap.Int64("customer_id", id))
	s.publish(ctx, &models.Customer{ID: id}, models.ChangeActionDeleted)
	return nil
}

// AdjustLoyalty adds, subtracts or sets a customer's loyalty points.
// A resulting balance below zero is rejected.
func (s *CustomerService) AdjustLoyalty(ctx context.Context, id int64, req *AdjustLoyaltyRequest) (*models.Customer, error) {
	ctx, span := util.StartSpan(ctx, "CustomerService.AdjustLoyalty", attribute.Int64("customer.id", id))
	defer span.End()

	if err := validateStruct(req); err != nil {
		return nil, err
	}

	var customer *models.Customer
	err := s.store.WithTx(ctx, func(q *store.Queries) error {
		c, err := q.GetCustomerForUpdate(ctx, id)
		if err != nil {
			return err
		}

		balance, err := adjustedBalance(c.LoyaltyPoints, *req.Points, req.Operation)
		if err != nil {
			return err
		}
		if err := q.SetLoyaltyPoints(ctx, id, balance); err != nil {
			return err
		}

		c.LoyaltyPoints = balance
		customer = c
		return nil
	})
	if err != nil {
		return nil, customerError(err)
	}

	s.logger.Info("Loyalty points adjusted",
		zap.Int64("customer_id", id),
		zap.String("operation", defaultString(req.Operation, models.LoyaltyOperationAdd)),
		zap.Int("points", *req.Points),
		zap.Int("balance", customer.LoyaltyPoints))
	s.publish(ctx, customer, models.ChangeActionUpdated)
	return customer, nil
}

func adjustedBalance(current, points int, operation string) (int, error) {
	var balance int
	switch defaultString(operation, models.LoyaltyOperationAdd) {
	case models.LoyaltyOperationAdd:
		balance = current + points
	case models.LoyaltyOperationSubtract:
		balance = current - points
	case models.LoyaltyOperationSet:
		balance = points
	default:
		return 0, validationErrorf("invalid loyalty operation: %s", operation)
	}

	if balance < 0 {
		return 0, validationErrorf("loyalty points cannot go below zero (current: %d)", current)
	}
	return balance, nil
}

func (s *CustomerService) publish(ctx context.Context, customer *models.Customer, action string) {
	event := &models.CustomerChangedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeCustomerChanged,
			Timestamp: time.Now(),
		},
		CustomerID:    customer.ID,
		Action:        action,
		LoyaltyPoints: customer.LoyaltyPoints,
	}
	if err := s.events.PublishCustomerChanged(ctx, event); err != nil {
		util.EventsPublishFailedTotal.WithLabelValues(models.EventTypeCustomerChanged).Inc()
		s.logger.Error("Failed to publish CustomerChanged event", zap.Error(err))
	}
}

func customerError(err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, store.ErrDuplicate):
		return validationErrorf("customer already exists")
	case IsRejection(err):
		return err
	default:
		return fmt.Errorf("customer operation failed: %w", err)
	}
}
