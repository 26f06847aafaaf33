package broker

import (
	"context"
	"math"
	"testing"
	"time"

	"tradebot/internal/models"
)

func entryOrder(side models.Side, shares int, price float64) *models.Order {
	return &models.Order{
		Symbol:   "AAPL",
		Side:     side,
		Shares:   shares,
		Price:    price,
		Status:   models.OrderStatusPlaced,
		PlacedAt: time.Now(),
	}
}

func TestPaperBrokerFillsWithSlippage(t *testing.T) {
	b := NewPaperBroker(0.002)
	ctx := context.Background()

	buy, err := b.PlaceOrder(ctx, entryOrder(models.SideBuy, 100, 100))
	if err != nil {
		t.Fatalf("PlaceOrder buy: %v", err)
	}
	if buy.Status != models.OrderStatusFilled {
		t.Fatalf("buy status = %s", buy.Status)
	}
	if math.Abs(buy.FilledPrice-100.2) > 1e-9 {
		t.Errorf("buy fill = %.4f, want 100.2 (slippage against the buyer)", buy.FilledPrice)
	}

	sell, err := b.PlaceOrder(ctx, entryOrder(models.SideSell, 100, 100))
	if err != nil {
		t.Fatalf("PlaceOrder sell: %v", err)
	}
	if math.Abs(sell.FilledPrice-99.8) > 1e-9 {
		t.Errorf("sell fill = %.4f, want 99.8 (slippage against the seller)", sell.FilledPrice)
	}

	if buy.OrderID == sell.OrderID {
		t.Errorf("order IDs collide: %s", buy.OrderID)
	}
}

func TestPaperBrokerRejectsNonPositiveQuantity(t *testing.T) {
	b := NewPaperBroker(0)
	result, err := b.PlaceOrder(context.Background(), entryOrder(models.SideBuy, 0, 100))
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if result.Status != models.OrderStatusRejected {
		t.Errorf("status = %s, want REJECTED", result.Status)
	}
}

func TestPaperBrokerFailNext(t *testing.T) {
	b := NewPaperBroker(0)
	b.FailNext = true

	result, err := b.PlaceOrder(context.Background(), entryOrder(models.SideBuy, 10, 50))
	if err == nil {
		t.Fatal("expected simulated failure")
	}
	if result.Status != models.OrderStatusFailed {
		t.Errorf("status = %s, want FAILED", result.Status)
	}

	// Only the next order fails.
	result, err = b.PlaceOrder(context.Background(), entryOrder(models.SideBuy, 10, 50))
	if err != nil || result.Status != models.OrderStatusFilled {
		t.Errorf("second order = %+v, %v, want clean fill", result, err)
	}
}

func TestPaperBrokerCancel(t *testing.T) {
	b := NewPaperBroker(0)
	placed, err := b.PlaceOrder(context.Background(), entryOrder(models.SideBuy, 10, 50))
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if err := b.CancelOrder(context.Background(), placed.OrderID); err != nil {
		t.Errorf("CancelOrder known ID: %v", err)
	}
	if err := b.CancelOrder(context.Background(), "PAPER-999999"); err == nil {
		t.Error("CancelOrder accepted unknown ID")
	}
}
