package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Seednode/aiorikea/quiz"
)

func newTestConfig() *Config {
	return &Config{
		bind:           "127.0.0.1",
		port:           8080,
		sessionTimeout: time.Hour,
		logger:         zap.NewNop().Sugar(),
	}
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	mux, err := newRouter(ctx, newTestConfig(), make(chan error, 64))
	require.NoError(t, err)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return srv
}

// noRedirects returns a client that hands redirects back to the caller.
func noRedirects() *http.Client {
	return &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func newGameURL(t *testing.T, srv *httptest.Server) string {
	t.Helper()

	resp, err := noRedirects().Get(srv.URL + gamePath)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)
	loc := resp.Header.Get("Location")
	require.True(t, strings.HasPrefix(loc, gamePath+"/"), loc)

	return loc
}

type serverMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	quiz.View
}

func dialGame(t *testing.T, srv *httptest.Server, path string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + path + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) serverMessage {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var msg serverMessage
	require.NoError(t, conn.ReadJSON(&msg))

	return msg
}

func sendMessage(t *testing.T, conn *websocket.Conn, msg ClientMessage) {
	t.Helper()

	require.NoError(t, conn.WriteJSON(msg))
}
