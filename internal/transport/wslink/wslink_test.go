package wslink

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func startEchoServer(t *testing.T) (*httptest.Server, chan string) {
	t.Helper()
	received := make(chan string, 10)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			received <- string(msg)
		}
	}))
	return srv, received
}

func hostPort(t *testing.T, rawURL string) (string, int) {
	t.Helper()
	u, err := url.Parse(rawURL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)
	return u.Hostname() + ":" + u.Port(), port
}

func TestSendCommandConnectsAndSends(t *testing.T) {
	srv, received := startEchoServer(t)
	defer srv.Close()

	host, port := hostPort(t, srv.URL)
	s := New(host, port, "", "", nil)
	defer s.Close()

	require.Equal(t, Disconnected, s.State())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := s.SendCommand(ctx, "some_topic 1")
	require.NoError(t, err)

	select {
	case msg := <-received:
		require.Equal(t, "some_topic 1", msg)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
	}

	require.Equal(t, Connected, s.State())
}

func TestSendCommandReusesConnection(t *testing.T) {
	srv, received := startEchoServer(t)
	defer srv.Close()

	host, port := hostPort(t, srv.URL)
	s := New(host, port, "", "", nil)
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.SendCommand(ctx, "a 1"))
	require.NoError(t, s.SendCommand(ctx, "b 2"))

	require.Equal(t, "a 1", <-received)
	require.Equal(t, "b 2", <-received)
}

func TestSendCommandFailsWhenServerUnreachable(t *testing.T) {
	s := New("127.0.0.1", 1, "", "", nil)
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	err := s.SendCommand(ctx, "x 1")
	require.Error(t, err)
	require.Equal(t, Disconnected, s.State())
}
