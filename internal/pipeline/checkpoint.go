package pipeline

// Checkpoint identifies one of the five fixed points a message passes
// through on its way from the orders queue to the products queue.
type Checkpoint int

const (
	// CheckpointReceived: the raw event has been decoded.
	CheckpointReceived Checkpoint = iota + 1
	// CheckpointTransformed: the order aggregate has been built.
	CheckpointTransformed
	// CheckpointPersisted: the aggregate is durably stored.
	CheckpointPersisted
	// CheckpointAcknowledged: the inbound delivery has been acked,
	// releasing it from redelivery.
	CheckpointAcknowledged
	// CheckpointPublished: the fulfillment event is on the products queue.
	CheckpointPublished
)

// Counter returns the oracle counter value assigned to the checkpoint.
// The mapping is fixed so recorded chaos scenarios stay reproducible.
func (c Checkpoint) Counter() int {
	switch c {
	case CheckpointReceived:
		return 8
	case CheckpointTransformed:
		return 9
	case CheckpointPersisted:
		return 10
	case CheckpointAcknowledged:
		return 11
	case CheckpointPublished:
		return 12
	default:
		return 0
	}
}

// Tag returns the log marker external tooling greps for when auditing the
// five-step sequence.
func (c Checkpoint) Tag() string {
	switch c {
	case CheckpointReceived:
		return "<E8>"
	case CheckpointTransformed:
		return "<E9>"
	case CheckpointPersisted:
		return "<E10>"
	case CheckpointAcknowledged:
		return "<E11>"
	case CheckpointPublished:
		return "<E12>"
	default:
		return "<E?>"
	}
}

// String returns the checkpoint name.
func (c Checkpoint) String() string {
	switch c {
	case CheckpointReceived:
		return "received"
	case CheckpointTransformed:
		return "transformed"
	case CheckpointPersisted:
		return "persisted"
	case CheckpointAcknowledged:
		return "acknowledged"
	case CheckpointPublished:
		return "published"
	default:
		return "unknown"
	}
}
