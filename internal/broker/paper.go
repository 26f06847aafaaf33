package broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"tradebot/internal/models"
)

// PaperBroker simulates immediate fills at the order's reference price.
// It lets the live execution path run end to end without touching an
// exchange.
type PaperBroker struct {
	mu           sync.Mutex
	orderCounter int
	orders       map[string]*models.Order
	slippage     float64 // fraction applied against the order's side

	// FailNext forces the next submission to fail, for exercising the
	// ORDER_PLACED -> FAILED transition in tests.
	FailNext bool
}

// NewPaperBroker creates a paper broker with the given slippage fraction.
func NewPaperBroker(slippage float64) *PaperBroker {
	return &PaperBroker{
		orders:   make(map[string]*models.Order),
		slippage: slippage,
	}
}

// PlaceOrder fills the order immediately at the reference price adjusted
// for slippage.
func (p *PaperBroker) PlaceOrder(ctx context.Context, order *models.Order) (*OrderResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.FailNext {
		p.FailNext = false
		return &OrderResult{Status: models.OrderStatusFailed, Message: "simulated broker failure"},
			fmt.Errorf("simulated broker failure for %s", order.Symbol)
	}
	if order.Shares <= 0 {
		return &OrderResult{Status: models.OrderStatusRejected, Message: "quantity must be positive"}, nil
	}

	p.orderCounter++
	id := fmt.Sprintf("PAPER-%06d", p.orderCounter)

	fill := order.Price
	if order.Side == models.SideBuy {
		fill *= 1 + p.slippage
	} else {
		fill *= 1 - p.slippage
	}

	stored := *order
	stored.ID = id
	stored.Status = models.OrderStatusFilled
	stored.FilledPrice = fill
	stored.CompletedAt = time.Now()
	p.orders[id] = &stored

	return &OrderResult{OrderID: id, Status: models.OrderStatusFilled, FilledPrice: fill}, nil
}

// CancelOrder is a no-op for already-filled paper orders.
func (p *PaperBroker) CancelOrder(ctx context.Context, orderID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.orders[orderID]; !ok {
		return fmt.Errorf("order not found: %s", orderID)
	}
	return nil
}
