// Package pipeline implements the order commit pipeline: one inbound
// order event driven through five checkpoints in fixed order.
//
//	received -> transformed -> persisted -> acknowledged -> published
//
// Acknowledgement is sent only after the order is durably stored, and the
// fulfillment event is published only after acknowledgement. The pipeline
// never retries internally; a failed run simply leaves the delivery
// unacknowledged so the broker redelivers it. Before each checkpoint the
// fault-injection oracle may claim an abort, which ends the run exactly as
// a crash at that point would.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aitabderrahimhamou/MGL842-Order-Microservice/internal/apperr"
	"github.com/aitabderrahimhamou/MGL842-Order-Microservice/internal/metrics"
	"github.com/aitabderrahimhamou/MGL842-Order-Microservice/internal/model"
	"github.com/aitabderrahimhamou/MGL842-Order-Microservice/internal/oracle"
)

// ErrAborted is returned when the fault-injection oracle claims an abort
// before a checkpoint. The delivery is left exactly as a crash at that
// point would leave it.
var ErrAborted = errors.New("fault injection abort")

// Store persists order aggregates.
type Store interface {
	Save(ctx context.Context, order model.Order) (model.PersistedOrder, error)
}

// Publisher places fulfillment events on the outbound queue.
type Publisher interface {
	Publish(ctx context.Context, ev model.FulfillmentEvent) error
}

// Delivery is one inbound message as handed over by the consumer loop.
// Ack releases it from redelivery; the pipeline calls it exactly once, at
// the acknowledged checkpoint, and never before the store write succeeded.
type Delivery struct {
	Body []byte
	Ack  func() error
}

// Pipeline drives deliveries through the checkpoint sequence. Safe for
// concurrent use; each run only touches its own order.
type Pipeline struct {
	store     Store
	publisher Publisher
	oracle    oracle.Checker
	log       *slog.Logger
}

// New creates a Pipeline. Pass oracle.Disabled() outside chaos tests.
func New(store Store, publisher Publisher, checker oracle.Checker, log *slog.Logger) *Pipeline {
	if checker == nil {
		checker = oracle.Disabled()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{
		store:     store,
		publisher: publisher,
		oracle:    checker,
		log:       log,
	}
}

// Handle runs one delivery through the pipeline. A nil return means all
// five checkpoints completed. Any error means the run stopped and no later
// checkpoint was attempted; the caller decides routing from the error kind
// (dead-letter for non-retryable ones, leave unacknowledged otherwise).
func (p *Pipeline) Handle(ctx context.Context, d Delivery) error {
	if err := p.gate(ctx, CheckpointReceived); err != nil {
		return err
	}
	var ev model.OrderEvent
	if err := json.Unmarshal(d.Body, &ev); err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrMalformedEvent, err)
	}
	if ev.OrderID == "" || ev.Username == "" {
		return fmt.Errorf("%w: missing orderId or username", apperr.ErrMalformedEvent)
	}
	p.reached(CheckpointReceived, ev.OrderID, "order consumed from queue orders")

	if err := p.gate(ctx, CheckpointTransformed); err != nil {
		return err
	}
	order, err := Transform(ev)
	if err != nil {
		return err
	}
	p.reached(CheckpointTransformed, ev.OrderID, "created new order aggregate")

	if err := p.gate(ctx, CheckpointPersisted); err != nil {
		return err
	}
	stored, err := p.store.Save(ctx, order)
	if err != nil {
		return fmt.Errorf("store order %s: %w", ev.OrderID, err)
	}
	p.reached(CheckpointPersisted, ev.OrderID, "stored new order to db")

	if err := p.gate(ctx, CheckpointAcknowledged); err != nil {
		return err
	}
	if err := d.Ack(); err != nil {
		return fmt.Errorf("%w for order %s: %v", apperr.ErrAckFailed, ev.OrderID, err)
	}
	p.reached(CheckpointAcknowledged, ev.OrderID, "acknowledged order on queue orders")

	if err := p.gate(ctx, CheckpointPublished); err != nil {
		return err
	}
	fulfillment := model.FulfillmentEvent{
		OrderID:    ev.OrderID,
		User:       stored.User,
		Products:   stored.Products,
		TotalPrice: stored.TotalPrice,
	}
	if err := p.publisher.Publish(ctx, fulfillment); err != nil {
		return fmt.Errorf("publish fulfillment for order %s: %w", ev.OrderID, err)
	}
	p.reached(CheckpointPublished, ev.OrderID, "published new order to queue products")

	return nil
}

// gate consults the oracle before a checkpoint. A claimed abort ends the
// run without performing the checkpoint or any later one.
func (p *Pipeline) gate(ctx context.Context, cp Checkpoint) error {
	abort, err := p.oracle.ShouldAbort(ctx, cp.Counter())
	if err != nil {
		return fmt.Errorf("oracle check before checkpoint %s: %w", cp, err)
	}
	if !abort {
		return nil
	}
	p.log.Warn("preventing checkpoint",
		slog.String("checkpoint", cp.String()),
		slog.String("tag", cp.Tag()),
	)
	metrics.InjectedAborts.WithLabelValues(cp.String()).Inc()
	return fmt.Errorf("%w before checkpoint %s", ErrAborted, cp)
}

func (p *Pipeline) reached(cp Checkpoint, orderID, msg string) {
	p.log.Info("ORDER SERVICE - "+msg+" "+cp.Tag(),
		slog.String("checkpoint", cp.String()),
		slog.String("tag", cp.Tag()),
		slog.String("order_id", orderID),
	)
	metrics.CheckpointsReached.WithLabelValues(cp.String()).Inc()
}
