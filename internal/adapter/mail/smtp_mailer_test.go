package mail

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomail "github.com/wneessen/go-mail"
	"go.uber.org/zap/zaptest"

	"room-user-service/internal/usecase/user"
)

type fakeSender struct {
	mu       sync.Mutex
	messages []*gomail.Msg
	hasDL    bool
	err      error
}

func (f *fakeSender) DialAndSendWithContext(ctx context.Context, messages ...*gomail.Msg) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, f.hasDL = ctx.Deadline()
	f.messages = append(f.messages, messages...)
	return f.err
}

func testConfig() Config {
	return Config{
		FromEmail:   "noreply@example.com",
		FromName:    "Rooms",
		ProjectName: "Rooms",
		ServerHost:  "https://rooms.example.com/",
		SendTimeout: time.Second,
	}
}

func TestSMTPMailer_SendNewAccount(t *testing.T) {
	s := &fakeSender{}
	m := newSMTPMailer(testConfig(), s, zaptest.NewLogger(t))

	err := m.SendNewAccount(context.Background(), user.NewAccountEmail{
		To:       "jane@example.com",
		Username: "jane",
		Password: "pw",
		Token:    "tok",
	})
	require.NoError(t, err)
	m.Wait()

	require.Len(t, s.messages, 1)
	assert.True(t, s.hasDL)

	rcpts, err := s.messages[0].GetRecipients()
	require.NoError(t, err)
	assert.Equal(t, []string{"jane@example.com"}, rcpts)
	assert.Equal(t, []string{"Rooms - New account for user jane"}, s.messages[0].GetGenHeader(gomail.HeaderSubject))
}

func TestSMTPMailer_DeliveryErrorIsNotReturned(t *testing.T) {
	s := &fakeSender{err: errors.New("connection refused")}
	m := newSMTPMailer(testConfig(), s, zaptest.NewLogger(t))

	err := m.SendResetPassword(context.Background(), user.ResetPasswordEmail{
		To:    "jane@example.com",
		Email: "jane@example.com",
		Token: "tok",
	})
	assert.NoError(t, err)
	m.Wait()
	assert.Len(t, s.messages, 1)
}

func TestSMTPMailer_InvalidRecipient(t *testing.T) {
	s := &fakeSender{}
	m := newSMTPMailer(testConfig(), s, zaptest.NewLogger(t))

	err := m.SendNewAccount(context.Background(), user.NewAccountEmail{To: "not an address"})
	assert.Error(t, err)
	m.Wait()
	assert.Empty(t, s.messages)
}

func TestSMTPMailer_CanceledRequestStillDelivers(t *testing.T) {
	s := &fakeSender{}
	m := newSMTPMailer(testConfig(), s, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, m.SendResetPassword(ctx, user.ResetPasswordEmail{To: "a@example.com", Email: "a@example.com", Token: "t"}))
	m.Wait()
	assert.Len(t, s.messages, 1)
}

func TestTemplates_NewAccount(t *testing.T) {
	m := newSMTPMailer(testConfig(), &fakeSender{}, zaptest.NewLogger(t))

	text, html, err := newAccountTemplates.render(newAccountData{
		ProjectName: "Rooms",
		Username:    "jane",
		Password:    "s3cret",
		Email:       "jane@example.com",
		Link:        m.link("/email-valid", "a+b"),
	})
	require.NoError(t, err)

	assert.Contains(t, text, "Username: jane")
	assert.Contains(t, text, "Password: s3cret")
	assert.Contains(t, text, "https://rooms.example.com/email-valid?token="+url.QueryEscape("a+b"))
	assert.Contains(t, html, "<b>s3cret</b>")
}

func TestTemplates_ResetPasswordEscapesHTML(t *testing.T) {
	_, html, err := resetPasswordTemplates.render(resetPasswordData{
		ProjectName: "Rooms",
		Email:       "<script>@example.com",
		Link:        "https://rooms.example.com/reset-password?token=t",
		ValidHours:  48,
	})
	require.NoError(t, err)
	assert.False(t, strings.Contains(html, "<script>"))
	assert.Contains(t, html, "48 hours")
}

func TestNopMailer(t *testing.T) {
	n := NewNopMailer(zaptest.NewLogger(t))
	assert.NoError(t, n.SendNewAccount(context.Background(), user.NewAccountEmail{To: "a@example.com"}))
	assert.NoError(t, n.SendResetPassword(context.Background(), user.ResetPasswordEmail{To: "a@example.com"}))
	n.Wait()
}
