package service

import (
	"context"
	"errors"
	"testing"

	"pos-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCustomerFixture(t *testing.T) (*CustomerService, *fakePublisher) {
	t.Helper()

	publisher := &fakePublisher{}
	return NewCustomerService(setupTestStore(t), publisher), publisher
}

func TestCustomerCRUD(t *testing.T) {
	svc, publisher := newCustomerFixture(t)
	ctx := context.Background()

	created, err := svc.CreateCustomer(ctx, &CreateCustomerRequest{
		Name:  "Sara Ahmed",
		Phone: "0501234567",
		Email: "sara@example.com",
	})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Zero(t, created.LoyaltyPoints)
	assertDecimal(t, "0", created.TotalSpent)

	phone := "0559999999"
	updated, err := svc.UpdateCustomer(ctx, created.ID, &UpdateCustomerRequest{Phone: &phone})
	require.NoError(t, err)
	assert.Equal(t, phone, updated.Phone)
	assert.Equal(t, "Sara Ahmed", updated.Name)

	got, err := svc.GetCustomer(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, phone, got.Phone)

	listed, err := svc.ListCustomers(ctx)
	require.NoError(t, err)
	assert.Len(t, listed, 1)

	require.NoError(t, svc.DeleteCustomer(ctx, created.ID))
	_, err = svc.GetCustomer(ctx, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, svc.DeleteCustomer(ctx, created.ID), ErrNotFound)

	require.Len(t, publisher.customers, 3)
	assert.Equal(t, models.ChangeActionDeleted, publisher.customers[2].Action)
}

func TestCreateCustomerValidation(t *testing.T) {
	svc, _ := newCustomerFixture(t)

	tests := []struct {
		name string
		req  *CreateCustomerRequest
	}{
		{name: "missing name", req: &CreateCustomerRequest{Phone: "050"}},
		{name: "bad email", req: &CreateCustomerRequest{Name: "Ali", Email: "not-an-email"}},
		{name: "negative points", req: &CreateCustomerRequest{Name: "Ali", LoyaltyPoints: -5}},
		{name: "sub-cent total spent", req: &CreateCustomerRequest{Name: "Ali", TotalSpent: basePrice("12.345")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateCustomer(context.Background(), tt.req)

			var validationErr *ValidationError
			assert.True(t, errors.As(err, &validationErr), "got %v", err)
		})
	}
}

func TestSearchCustomers(t *testing.T) {
	svc, _ := newCustomerFixture(t)
	ctx := context.Background()

	for _, req := range []*CreateCustomerRequest{
		{Name: "Khalid", Phone: "0551112222"},
		{Name: "Amal", Email: "amal@shop.sa"},
		{Name: "Fahad", Phone: "0533334444"},
	} {
		_, err := svc.CreateCustomer(ctx, req)
		require.NoError(t, err)
	}

	byPhone, err := svc.SearchCustomers(ctx, "055")
	require.NoError(t, err)
	require.Len(t, byPhone, 1)
	assert.Equal(t, "Khalid", byPhone[0].Name)

	byEmail, err := svc.SearchCustomers(ctx, "SHOP.SA")
	require.NoError(t, err)
	require.Len(t, byEmail, 1)
	assert.Equal(t, "Amal", byEmail[0].Name)

	all, err := svc.SearchCustomers(ctx, "a")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Amal", all[0].Name)
}

func TestAdjustLoyalty(t *testing.T) {
	svc, _ := newCustomerFixture(t)
	ctx := context.Background()

	customer, err := svc.CreateCustomer(ctx, &CreateCustomerRequest{Name: "Reem", LoyaltyPoints: 50})
	require.NoError(t, err)

	tests := []struct {
		name      string
		points    int
		operation string
		want      int
	}{
		{name: "default adds", points: 30, want: 80},
		{name: "add", points: 20, operation: models.LoyaltyOperationAdd, want: 100},
		{name: "subtract", points: 40, operation: models.LoyaltyOperationSubtract, want: 60},
		{name: "set", points: 250, operation: models.LoyaltyOperationSet, want: 250},
	}

	for _, tt := range tests {
		got, err := svc.AdjustLoyalty(ctx, customer.ID, &AdjustLoyaltyRequest{
			Points:    intPtr(tt.points),
			Operation: tt.operation,
		})
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.want, got.LoyaltyPoints, tt.name)
	}

	stored, err := svc.GetCustomer(ctx, customer.ID)
	require.NoError(t, err)
	assert.Equal(t, 250, stored.LoyaltyPoints)
}

func TestAdjustLoyaltyRejections(t *testing.T) {
	svc, _ := newCustomerFixture(t)
	ctx := context.Background()

	customer, err := svc.CreateCustomer(ctx, &CreateCustomerRequest{Name: "Huda", LoyaltyPoints: 10})
	require.NoError(t, err)

	var validationErr *ValidationError

	_, err = svc.AdjustLoyalty(ctx, customer.ID, &AdjustLoyaltyRequest{
		Points:    intPtr(11),
		Operation: models.LoyaltyOperationSubtract,
	})
	assert.True(t, errors.As(err, &validationErr))

	_, err = svc.AdjustLoyalty(ctx, customer.ID, &AdjustLoyaltyRequest{Points: intPtr(1), Operation: "double"})
	assert.True(t, errors.As(err, &validationErr))

	_, err = svc.AdjustLoyalty(ctx, customer.ID, &AdjustLoyaltyRequest{})
	assert.True(t, errors.As(err, &validationErr))

	_, err = svc.AdjustLoyalty(ctx, 9999, &AdjustLoyaltyRequest{Points: intPtr(1)})
	assert.ErrorIs(t, err, ErrNotFound)

	stored, err := svc.GetCustomer(ctx, customer.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, stored.LoyaltyPoints)
}
