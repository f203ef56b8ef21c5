package smtp

import (
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// silentServer accepts connections and never sends the SMTP greeting.
func silentServer(t *testing.T) (host, port string) {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.Nil(t, err)
	t.Cleanup(func() { _ = listener.Close() })
	go func() {
		var conns []net.Conn
		defer func() {
			for _, conn := range conns {
				_ = conn.Close()
			}
		}()
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			conns = append(conns, conn)
		}
	}()
	host, port, err = net.SplitHostPort(listener.Addr().String())
	require.Nil(t, err)
	return host, port
}

func TestSmtp(t *testing.T) {
	t.Run(`message layout`, func(t *testing.T) {
		msg := BuildMessage("noreply@example.com", "anna@example.com", "Approval requested", "Please review")
		require.True(t, strings.HasPrefix(msg, "From: noreply@example.com\r\nTo: anna@example.com\r\n"))
		require.Contains(t, msg, "Subject: Approvals - Approval requested\r\n")
		require.True(t, strings.HasSuffix(msg, "\r\n\r\nPlease review\r\n"))
	})

	t.Run(`unconfigured sender is a no-op`, func(t *testing.T) {
		sender := NewSender(Params{})
		require.Nil(t, sender.SendEMail(context.Background(), "anna@example.com", "subject", "body"))
	})

	t.Run(`silent server is abandoned at the context deadline`, func(t *testing.T) {
		host, port := silentServer(t)
		sender := NewSender(Params{User: "robot", Host: host, Port: port, Timeout: time.Minute})
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()

		started := time.Now()
		err := sender.SendEMail(ctx, "anna@example.com", "subject", "body")
		require.ErrorIs(t, err, context.DeadlineExceeded)
		require.Less(t, time.Since(started), 5*time.Second)
	})

	t.Run(`silent server is abandoned after the send timeout`, func(t *testing.T) {
		for _, tlsEnabled := range []bool{false, true} {
			host, port := silentServer(t)
			sender := NewSender(Params{User: "robot", Host: host, Port: port, Timeout: 100 * time.Millisecond, TLSEnabled: tlsEnabled})

			started := time.Now()
			err := sender.SendEMail(context.Background(), "anna@example.com", "subject", "body")
			require.ErrorIs(t, err, context.DeadlineExceeded, "tls %v", tlsEnabled)
			require.Less(t, time.Since(started), 5*time.Second)
		}
	})
}
