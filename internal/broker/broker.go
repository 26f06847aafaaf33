// Package broker defines the order-routing collaborator interface. Actual
// routing to an exchange is outside the engine; the paper implementation
// exists for the live path's fill semantics and for tests.
package broker

import (
	"context"

	"tradebot/internal/models"
)

// OrderResult is the broker's response to an order submission.
type OrderResult struct {
	OrderID     string
	Status      models.OrderStatus
	FilledPrice float64
	Message     string
}

// Broker routes orders for the live path. Implementations must be safe
// for concurrent use across symbols.
type Broker interface {
	PlaceOrder(ctx context.Context, order *models.Order) (*OrderResult, error)
	CancelOrder(ctx context.Context, orderID string) error
}
