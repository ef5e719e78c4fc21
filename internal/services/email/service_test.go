package email_test

import (
	"context"
	"errors"
	"testing"

	"github.com/Nazarious-ucu/nightjet-alerts/internal/models"
	"github.com/Nazarious-ucu/nightjet-alerts/internal/services/email"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const templatesDir = "../../../templates"

type mockMailer struct {
	mock.Mock
}

func (m *mockMailer) Send(ctx context.Context, to, subject, html string) error {
	args := m.Called(ctx, to, subject, html)
	return args.Error(0)
}

var alert = models.Alert{
	ID:          "a1",
	Email:       "a@x.com",
	TrainNumber: "470",
	From:        "8101003",
	To:          "8100001",
	Date:        "15082024",
}

func TestService_SendTicketsAvailable(t *testing.T) {
	cases := []struct {
		name    string
		sendErr error
		wantErr bool
	}{
		{"success", nil, false},
		{"mailer error", errors.New("smtp down"), true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := &mockMailer{}
			var html string
			m.On("Send", mock.Anything, "a@x.com", "NightJet Tickets Available!", mock.AnythingOfType("string")).
				Run(func(args mock.Arguments) { html = args.String(3) }).
				Return(tc.sendErr).Once()
			t.Cleanup(func() { m.AssertExpectations(t) })

			svc, err := email.NewService(m, templatesDir, "https://book.example.com")
			require.NoError(t, err)

			err = svc.SendTicketsAvailable(context.Background(), alert)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, html, "<h1>NightJet Tickets Available!</h1>")
			assert.Contains(t, html, "Train: 470")
			assert.Contains(t, html, "Date: 15082024")
			assert.Contains(t, html, "From: 8101003")
			assert.Contains(t, html, "To: 8100001")
			assert.Contains(t, html, `href="https://book.example.com"`)
		})
	}
}

func TestNewService_MissingTemplate(t *testing.T) {
	_, err := email.NewService(&mockMailer{}, t.TempDir(), "http://localhost:3000")
	require.Error(t, err)
}

type mockAlertMailer struct {
	mockMailer
}

func (m *mockAlertMailer) SendAlert(ctx context.Context, alertID, to, subject, html string) error {
	args := m.Called(ctx, alertID, to, subject, html)
	return args.Error(0)
}

func TestService_SendTicketsAvailable_TagsAlertForConfirmingTransports(t *testing.T) {
	m := &mockAlertMailer{}
	m.On("SendAlert", mock.Anything, "a1", "a@x.com", "NightJet Tickets Available!", mock.AnythingOfType("string")).
		Return(nil).Once()
	t.Cleanup(func() { m.AssertExpectations(t) })

	svc, err := email.NewService(m, templatesDir, "https://book.example.com")
	require.NoError(t, err)

	require.NoError(t, svc.SendTicketsAvailable(context.Background(), alert))
	m.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
