package pipeline

import (
	"errors"
	"testing"

	"github.com/aitabderrahimhamou/MGL842-Order-Microservice/internal/apperr"
	"github.com/aitabderrahimhamou/MGL842-Order-Microservice/internal/model"
)

func TestTransform_SumsPrices(t *testing.T) {
	t.Parallel()

	order, err := Transform(model.OrderEvent{
		OrderID:  "o1",
		Username: "alice",
		Products: []model.Product{{ID: "p1", Price: 3}, {ID: "p2", Price: 5}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order.TotalPrice != 8 {
		t.Errorf("totalPrice = %v, want 8", order.TotalPrice)
	}
	if order.User != "alice" {
		t.Errorf("user = %q, want alice", order.User)
	}
	if len(order.Products) != 2 {
		t.Errorf("kept %d products, want 2", len(order.Products))
	}
}

func TestTransform_NoProducts(t *testing.T) {
	t.Parallel()

	order, err := Transform(model.OrderEvent{OrderID: "o1", Username: "alice"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order.TotalPrice != 0 {
		t.Errorf("totalPrice = %v, want 0", order.TotalPrice)
	}
}

func TestTransform_NegativePrice(t *testing.T) {
	t.Parallel()

	_, err := Transform(model.OrderEvent{
		OrderID:  "o1",
		Username: "alice",
		Products: []model.Product{{Price: -1}},
	})
	if !errors.Is(err, apperr.ErrTransform) {
		t.Fatalf("expected ErrTransform, got %v", err)
	}
}
