package pipeline

import (
	"fmt"

	"github.com/aitabderrahimhamou/MGL842-Order-Microservice/internal/apperr"
	"github.com/aitabderrahimhamou/MGL842-Order-Microservice/internal/model"
)

// Transform builds the order aggregate from a decoded event: it attaches
// the submitting user and computes the total price as the sum of the line
// item prices. It has no side effects.
func Transform(ev model.OrderEvent) (model.Order, error) {
	var total float64
	for i, p := range ev.Products {
		if p.Price < 0 {
			// inbound validation guarantees non-negative prices, so this
			// is a contract violation rather than a user error
			return model.Order{}, fmt.Errorf("%w: product %d has negative price %v", apperr.ErrTransform, i, p.Price)
		}
		total += p.Price
	}
	return model.Order{
		User:       ev.Username,
		Products:   ev.Products,
		TotalPrice: total,
	}, nil
}
