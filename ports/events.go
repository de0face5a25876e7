package ports

import (
	"context"

	"github.com/layer-3/garuda/core"
)

// EventPublisher notifies downstream consumers (promotion activation,
// analytics) about accepted payments.
type EventPublisher interface {
	PublishPaymentVerified(ctx context.Context, payment *core.VerifiedPayment) error
}
