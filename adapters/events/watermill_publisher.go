package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"

	"github.com/layer-3/garuda/core"
	"github.com/layer-3/garuda/ports"
)

// PaymentVerifiedTopic carries accepted-payment events for downstream
// consumers (promotion activation, analytics).
const PaymentVerifiedTopic = "garuda.payment.verified"

// PaymentVerifiedEvent is the wire form of an accepted payment.
type PaymentVerifiedEvent struct {
	TxHash      string `json:"tx_hash"`
	From        string `json:"from"`
	To          string `json:"to"`
	Amount      string `json:"amount"`
	Kind        string `json:"kind"`
	BlockNumber uint64 `json:"block_number"`
}

// WatermillPublisher implements the EventPublisher interface using Watermill.
type WatermillPublisher struct {
	publisher message.Publisher
	topic     string
}

// NewWatermillPublisher creates a new Watermill publisher.
func NewWatermillPublisher(publisher message.Publisher) ports.EventPublisher {
	return &WatermillPublisher{
		publisher: publisher,
		topic:     PaymentVerifiedTopic,
	}
}

// PublishPaymentVerified publishes an accepted payment. Signatures and
// session credentials never appear in the payload.
func (p *WatermillPublisher) PublishPaymentVerified(ctx context.Context, payment *core.VerifiedPayment) error {
	event := PaymentVerifiedEvent{
		TxHash:      payment.TxHash.Hex(),
		From:        payment.From.Hex(),
		To:          payment.To.Hex(),
		Amount:      payment.Amount.String(),
		Kind:        string(payment.Kind),
		BlockNumber: payment.BlockNumber,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(uuid.New().String(), payload)

	if err := p.publisher.Publish(p.topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}
