package events

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/logging"
)

type failingPublisher struct{ calls int }

func (f *failingPublisher) Publish(context.Context, string, string, Event) error {
	f.calls++
	return errors.New("broker down")
}
func (f *failingPublisher) Close() error { return nil }

func TestNewEvent(t *testing.T) {
	ev := New("product_created", map[string]any{"productID": 1})
	assert.Equal(t, "product_created", ev.Type)
	assert.NotEmpty(t, ev.ID)
	assert.WithinDuration(t, time.Now(), ev.OccurredAt, time.Second)

	raw, err := json.Marshal(ev)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"event_id"`)
	assert.Contains(t, string(raw), `"occurred_at"`)
}

func TestEmitLogsAndSwallowsErrors(t *testing.T) {
	var buf bytes.Buffer
	ctx := logging.IntoContext(context.Background(), logging.NewWithWriter(&buf, "info"))
	p := &failingPublisher{}

	Emit(ctx, p, TopicCart, "1", New("cart_cleared", nil))
	Emit(ctx, nil, TopicCart, "1", New("cart_cleared", nil))
	Emit(ctx, Nop{}, TopicCart, "1", New("cart_cleared", nil))

	assert.Equal(t, 1, p.calls)
	assert.Contains(t, buf.String(), "event_publish_failed")
	assert.Contains(t, buf.String(), "broker down")
}

func TestKafkaPublisherIntegration(t *testing.T) {
	brokers := os.Getenv("KAFKA_BROKERS")
	if brokers == "" {
		t.Skip("KAFKA_BROKERS not set")
	}
	addrs := strings.Split(brokers, ",")
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	p, err := NewKafkaPublisher(addrs)
	require.NoError(t, err)
	defer p.Close()

	// create the topic before reading the last offset
	require.NoError(t, p.Publish(ctx, TopicProduct, "0", New("warmup", nil)))

	conn, err := kafka.DialLeader(ctx, "tcp", addrs[0], TopicProduct, 0)
	require.NoError(t, err)
	end, err := conn.ReadLastOffset()
	require.NoError(t, err)
	_ = conn.Close()

	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:   addrs,
		Topic:     TopicProduct,
		Partition: 0,
		MinBytes:  1,
		MaxBytes:  10e6,
		MaxWait:   time.Second,
	})
	defer r.Close()
	require.NoError(t, r.SetOffset(end))

	ev := New("product_created", map[string]any{"productID": 1})
	require.NoError(t, p.Publish(ctx, TopicProduct, "1", ev))

	m, err := r.ReadMessage(ctx)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(m.Value, &got))
	assert.Equal(t, ev.ID, got["event_id"])
	assert.Equal(t, "product_created", got["type"])
}

func TestRabbitPublisherIntegration(t *testing.T) {
	url := os.Getenv("RABBIT_URL")
	if url == "" {
		t.Skip("RABBIT_URL not set")
	}

	p, err := NewRabbitPublisher(url, Topics)
	require.NoError(t, err)
	defer p.Close()

	conn, err := amqp.Dial(url)
	require.NoError(t, err)
	defer conn.Close()
	ch, err := conn.Channel()
	require.NoError(t, err)
	defer ch.Close()
	_, err = ch.QueuePurge(TopicOrder, false)
	require.NoError(t, err)

	ev := New("order_created", map[string]any{"orderID": 9})
	require.NoError(t, p.Publish(context.Background(), TopicOrder, "9", ev))

	var msg amqp.Delivery
	require.Eventually(t, func() bool {
		m, ok, err := ch.Get(TopicOrder, true)
		if err != nil || !ok {
			return false
		}
		msg = m
		return true
	}, 5*time.Second, 100*time.Millisecond)

	assert.Equal(t, ev.ID, msg.MessageId)
	assert.Equal(t, "application/json", msg.ContentType)
}
