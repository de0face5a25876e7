package events

import (
	"context"
	"encoding/json"
	"math/big"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/garuda/core"
)

func TestPublishPaymentVerified(t *testing.T) {
	pubsub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubsub.Close()

	messages, err := pubsub.Subscribe(context.Background(), PaymentVerifiedTopic)
	require.NoError(t, err)

	publisher := NewWatermillPublisher(pubsub)
	payment := &core.VerifiedPayment{
		TxHash:      common.HexToHash("0xabc"),
		From:        common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"),
		To:          common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8"),
		Amount:      big.NewInt(1_000_000),
		Kind:        core.TransferAuthorized,
		Status:      core.PaymentAccepted,
		BlockNumber: 123,
	}
	require.NoError(t, publisher.PublishPaymentVerified(context.Background(), payment))

	select {
	case msg := <-messages:
		msg.Ack()
		var event PaymentVerifiedEvent
		require.NoError(t, json.Unmarshal(msg.Payload, &event))
		assert.Equal(t, payment.TxHash.Hex(), event.TxHash)
		assert.Equal(t, payment.From.Hex(), event.From)
		assert.Equal(t, payment.To.Hex(), event.To)
		assert.Equal(t, "1000000", event.Amount)
		assert.Equal(t, string(core.TransferAuthorized), event.Kind)
		assert.Equal(t, uint64(123), event.BlockNumber)
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}
}
