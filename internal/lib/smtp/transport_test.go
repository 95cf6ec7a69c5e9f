package smtp

import (
	"io"
	"log/slog"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/silver-circles/internal/config"
)

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestTransport_Addresses(t *testing.T) {
	tr := NewTransport(config.SMTP{User: "mailer@example.com", From: "Silver Circles <noreply@example.com>"}, newNoopLogger())
	assert.Equal(t, "mailer@example.com", tr.GetSMTPUser())
	assert.Equal(t, "Silver Circles <noreply@example.com>", tr.From())

	anon := NewTransport(config.SMTP{From: "noreply@example.com"}, newNoopLogger())
	assert.Equal(t, "noreply@example.com", anon.GetSMTPUser())
}

func TestTransport_ConnectRefused(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	host, port, err := net.SplitHostPort(l.Addr().String())
	require.NoError(t, err)
	require.NoError(t, l.Close())

	tr := NewTransport(config.SMTP{Host: host, Port: port}, newNoopLogger())
	client, err := tr.Connect()
	assert.Nil(t, client)
	assert.Error(t, err)
}

func TestTransport_RequiresStartTLS(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	go func() {
		conn, err := l.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		_, _ = conn.Write([]byte("220 localhost ESMTP\r\n"))
		buf := make([]byte, 512)
		for {
			n, err := conn.Read(buf)
			if err != nil || n == 0 {
				return
			}
			switch string(buf[:4]) {
			case "EHLO":
				_, _ = conn.Write([]byte("250-localhost\r\n250 8BITMIME\r\n"))
			case "QUIT":
				_, _ = conn.Write([]byte("221 bye\r\n"))
				return
			default:
				_, _ = conn.Write([]byte("250 ok\r\n"))
			}
		}
	}()

	host, port, err := net.SplitHostPort(l.Addr().String())
	require.NoError(t, err)
	tr := NewTransport(config.SMTP{Host: host, Port: port}, newNoopLogger())
	client, err := tr.Connect()
	assert.Nil(t, client)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STARTTLS")
}
