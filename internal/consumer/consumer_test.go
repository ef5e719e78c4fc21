package consumer_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Nazarious-ucu/nightjet-alerts/internal/consumer"
	"github.com/Nazarious-ucu/nightjet-alerts/internal/metrics"
	"github.com/Nazarious-ucu/nightjet-alerts/internal/models"
	"github.com/Nazarious-ucu/nightjet-alerts/internal/repository/memory"
	"github.com/prometheus/client_golang/prometheus/testutil"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/wagslane/go-rabbitmq"
)

type mockMailer struct {
	mock.Mock
}

func (m *mockMailer) Send(ctx context.Context, to, subject, html string) error {
	args := m.Called(ctx, to, subject, html)
	return args.Error(0)
}

type mockConfirmer struct {
	mock.Mock
}

func (m *mockConfirmer) Delivered(ctx context.Context, alertID string) error {
	return m.Called(ctx, alertID).Error(0)
}

func delivery(body string, redelivered bool) rabbitmq.Delivery {
	return rabbitmq.Delivery{Delivery: amqp.Delivery{Body: []byte(body), Redelivered: redelivered}}
}

var errSMTP = errors.New("smtp down")

const payload = `{"alertId":"a1","to":"a@x.com","subject":"NightJet Tickets Available!","html":"<h1>x</h1>"}`

func TestConsumer_ReceiveTicketsAvailable(t *testing.T) {
	cases := []struct {
		name          string
		body          string
		redelivered   bool
		sendErr       error
		expectSend    bool
		expectConfirm bool
		want          rabbitmq.Action
		label         string
	}{
		{"relayed and confirmed", payload, false, nil, true, true, rabbitmq.Ack, "relayed"},
		{"malformed payload", `{not json`, false, nil, false, false, rabbitmq.NackDiscard, "malformed"},
		{"first failure is requeued", payload, false, errSMTP, true, false, rabbitmq.NackRequeue, "relay_failed"},
		{"second failure is dropped unconfirmed", payload, true, errSMTP, true, false, rabbitmq.NackDiscard, "relay_failed"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := &mockMailer{}
			if tc.expectSend {
				m.On("Send", mock.Anything, "a@x.com", "NightJet Tickets Available!", "<h1>x</h1>").
					Return(tc.sendErr).Once()
			}
			conf := &mockConfirmer{}
			if tc.expectConfirm {
				conf.On("Delivered", mock.Anything, "a1").Return(nil).Once()
			}
			t.Cleanup(func() {
				m.AssertExpectations(t)
				conf.AssertExpectations(t)
			})

			mt := metrics.NewMetrics("consumer_test")
			c := consumer.NewConsumer(m, conf, zerolog.Nop(), mt, time.Second)

			assert.Equal(t, tc.want, c.ReceiveTicketsAvailable(delivery(tc.body, tc.redelivered)))
			assert.InDelta(t, 1, testutil.ToFloat64(mt.NotificationsSent.WithLabelValues(tc.label)), 0)
			if !tc.expectConfirm {
				conf.AssertNotCalled(t, "Delivered", mock.Anything, mock.Anything)
			}
		})
	}
}

func TestConsumer_ConfirmFailureStillAcks(t *testing.T) {
	m := &mockMailer{}
	m.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
	conf := &mockConfirmer{}
	conf.On("Delivered", mock.Anything, "a1").Return(errors.New("channel closed")).Once()

	mt := metrics.NewMetrics("consumer_confirm_test")
	c := consumer.NewConsumer(m, conf, zerolog.Nop(), mt, time.Second)

	assert.Equal(t, rabbitmq.Ack, c.ReceiveTicketsAvailable(delivery(payload, false)))
	assert.InDelta(t, 1, testutil.ToFloat64(mt.NotificationsSent.WithLabelValues("confirm_failed")), 0)
}

func TestConsumer_UntaggedEventIsNotConfirmed(t *testing.T) {
	m := &mockMailer{}
	m.On("Send", mock.Anything, "a@x.com", "s", "b").Return(nil).Once()
	conf := &mockConfirmer{}

	c := consumer.NewConsumer(m, conf, zerolog.Nop(), metrics.NewMetrics("consumer_untagged"), time.Second)

	assert.Equal(t, rabbitmq.Ack, c.ReceiveTicketsAvailable(delivery(`{"to":"a@x.com","subject":"s","html":"b"}`, false)))
	conf.AssertNotCalled(t, "Delivered", mock.Anything, mock.Anything)
}

type failingMarker struct{ err error }

func (f failingMarker) UpdateNotified(context.Context, string, bool) error { return f.err }

func TestDeliveryConsumer_ReceiveDelivered(t *testing.T) {
	t.Run("marks the alert notified", func(t *testing.T) {
		store := memory.NewAlertRepository(zerolog.Nop())
		_, err := store.Create(context.Background(), models.Alert{ID: "a1", Date: "15082024"})
		require.NoError(t, err)

		c := consumer.NewDeliveryConsumer(store, zerolog.Nop(), metrics.NewMetrics("delivered_ok"), time.Second)
		assert.Equal(t, rabbitmq.Ack, c.ReceiveDelivered(delivery(`{"alertId":"a1"}`, false)))

		list, err := store.List(context.Background())
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.True(t, list[0].Notified)
	})

	cases := []struct {
		name        string
		body        string
		redelivered bool
		storeErr    error
		want        rabbitmq.Action
	}{
		{"deleted alert", `{"alertId":"gone"}`, false, models.ErrAlertNotFound, rabbitmq.Ack},
		{"malformed", `{oops`, false, nil, rabbitmq.NackDiscard},
		{"missing alert id", `{}`, false, nil, rabbitmq.NackDiscard},
		{"store down is requeued", `{"alertId":"a1"}`, false, errors.New("db down"), rabbitmq.NackRequeue},
		{"store down twice is dropped", `{"alertId":"a1"}`, true, errors.New("db down"), rabbitmq.NackDiscard},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := consumer.NewDeliveryConsumer(failingMarker{err: tc.storeErr}, zerolog.Nop(),
				metrics.NewMetrics("delivered_cases"), time.Second)
			assert.Equal(t, tc.want, c.ReceiveDelivered(delivery(tc.body, tc.redelivered)))
		})
	}
}
