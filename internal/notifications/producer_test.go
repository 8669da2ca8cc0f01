package notifications

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mockSink(t *testing.T) (*KafkaSink, *mocks.SyncProducer) {
	t.Helper()
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	producer := mocks.NewSyncProducer(t, config)

	return &KafkaSink{
		producer: producer,
		config:   DefaultKafkaSinkConfig(),
	}, producer
}

func TestKafkaSink_NotifyTicketsIssued(t *testing.T) {
	sink, producer := mockSink(t)

	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(raw []byte) error {
		var msg TicketsIssuedMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			return err
		}
		assert.Equal(t, "ada@example.com", msg.RecipientEmail)
		assert.Equal(t, "Jazz Night", msg.EventTitle)
		assert.Equal(t, 2, msg.TicketCount)
		assert.False(t, msg.IssuedAt.IsZero())
		return nil
	})

	err := sink.NotifyTicketsIssued(context.Background(), "ada@example.com", "Jazz Night", 2)
	require.NoError(t, err)
	require.NoError(t, sink.Close())
}

func TestKafkaSink_RecordActivity(t *testing.T) {
	sink, producer := mockSink(t)

	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(raw []byte) error {
		var msg ActivityMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			return err
		}
		assert.Equal(t, "order_cancelled", msg.Kind)
		assert.NotEmpty(t, msg.Summary)
		return nil
	})

	err := sink.RecordActivity(context.Background(), "order_cancelled", "order x cancelled: payment denied")
	require.NoError(t, err)
	require.NoError(t, sink.Close())
}

func TestKafkaSink_PublishFailureSurfaces(t *testing.T) {
	sink, producer := mockSink(t)

	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	err := sink.NotifyTicketsIssued(context.Background(), "ada@example.com", "Jazz Night", 1)
	assert.Error(t, err, "the engine decides to swallow this, not the sink")
	require.NoError(t, sink.Close())
}

func TestNoopSink(t *testing.T) {
	sink := NoopSink{}
	assert.NoError(t, sink.NotifyTicketsIssued(context.Background(), "a@b.c", "x", 1))
	assert.NoError(t, sink.RecordActivity(context.Background(), "k", "s"))
}
