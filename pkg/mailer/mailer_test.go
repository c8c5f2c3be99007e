package mailer

import (
	"context"
	"errors"
	"net/smtp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSend_NotConfigured(t *testing.T) {
	m := NewSMTP(Config{}, nil)
	assert.False(t, m.Enabled())
	assert.ErrorIs(t, m.Send(context.Background(), Message{To: "a@example.com"}), ErrNotConfigured)
}

func TestSend_BuildsMessage(t *testing.T) {
	m := NewSMTP(Config{Addr: "smtp.example.com:587", Username: "u", Password: "p", From: "noreply@example.com"}, nil)
	m.now = func() time.Time { return time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC) }
	var (
		gotAddr string
		gotAuth smtp.Auth
		gotTo   []string
		gotMsg  string
	)
	m.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotAuth, gotTo, gotMsg = addr, a, to, string(msg)
		assert.Equal(t, "noreply@example.com", from)
		return nil
	}

	err := m.Send(context.Background(), Message{To: "owner@example.com", Subject: "Ada is calling you", BodyHTML: "<p>hi</p>"})
	require.NoError(t, err)
	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.NotNil(t, gotAuth)
	assert.Equal(t, []string{"owner@example.com"}, gotTo)
	assert.Contains(t, gotMsg, "Subject: Ada is calling you\r\n")
	assert.Contains(t, gotMsg, "Content-Type: text/html")
	assert.Contains(t, gotMsg, "Date: Fri, 01 Mar 2024 10:00:00 +0000\r\n")
	assert.Contains(t, gotMsg, "\r\n\r\n<p>hi</p>")
}

func TestSend_RejectsHeaderInjection(t *testing.T) {
	m := NewSMTP(Config{Addr: "smtp.example.com:25"}, nil)
	m.send = func(string, smtp.Auth, string, []string, []byte) error {
		t.Fatal("send must not be called")
		return nil
	}
	assert.Error(t, m.Send(context.Background(), Message{To: "a@example.com\r\nBcc: x@example.com"}))
}

func TestSend_WrapsRelayError(t *testing.T) {
	m := NewSMTP(Config{Addr: "smtp.example.com:25"}, nil)
	relayErr := errors.New("550 rejected")
	m.send = func(string, smtp.Auth, string, []string, []byte) error { return relayErr }
	assert.ErrorIs(t, m.Send(context.Background(), Message{To: "a@example.com"}), relayErr)
}
