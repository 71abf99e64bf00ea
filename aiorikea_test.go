package main

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Seednode/aiorikea/quiz"
)

func TestGame_NewGameRedirect(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	first := newGameURL(t, srv)
	second := newGameURL(t, srv)
	assert.NotEqual(t, first, second)

	_, err := uuid.Parse(strings.TrimPrefix(first, gamePath+"/"))
	require.NoError(t, err)
}

func TestGame_GuessAdvanceRestart(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	game := newGameURL(t, srv)
	conn := dialGame(t, srv, game)

	msg := readMessage(t, conn)
	require.Equal(t, "state", msg.Type)
	assert.Equal(t, 1, msg.Round)
	assert.Equal(t, []string{"Enkla", "Viora"}, msg.Labels)
	assert.False(t, msg.Revealed)
	assert.Equal(t, 10, msg.TotalRounds)

	sendMessage(t, conn, ClientMessage{Type: "guess", Label: "Viora"})
	msg = readMessage(t, conn)
	require.Equal(t, "state", msg.Type)
	assert.True(t, msg.Revealed)
	assert.Equal(t, 1, msg.Score)
	require.NotNil(t, msg.Result)
	assert.Equal(t, quiz.GuessResult{
		Label:       "Viora",
		Correct:     true,
		Description: "virtual health assistant (Viorica Health)",
	}, *msg.Result)

	// A second guess in a revealed round changes nothing.
	sendMessage(t, conn, ClientMessage{Type: "guess", Label: "Enkla"})
	msg = readMessage(t, conn)
	assert.Equal(t, 1, msg.Score)
	assert.Equal(t, "Viora", msg.Result.Label)

	sendMessage(t, conn, ClientMessage{Type: "guess", Label: "Billy"})
	msg = readMessage(t, conn)
	require.Equal(t, "error", msg.Type)
	assert.Contains(t, msg.Message, "Billy")

	sendMessage(t, conn, ClientMessage{Type: "dance"})
	msg = readMessage(t, conn)
	require.Equal(t, "error", msg.Type)
	assert.Contains(t, msg.Message, `"dance"`)

	sendMessage(t, conn, ClientMessage{Type: "advance"})
	msg = readMessage(t, conn)
	assert.Equal(t, 2, msg.Round)
	assert.Equal(t, []string{"Lattjo", "Kyra"}, msg.Labels)
	assert.False(t, msg.Revealed)
	assert.Nil(t, msg.Result)

	sendMessage(t, conn, ClientMessage{Type: "guess", Label: "Lattjo"})
	msg = readMessage(t, conn)
	require.NotNil(t, msg.Result)
	assert.False(t, msg.Result.Correct)
	assert.Equal(t, "Kyra", msg.Result.CorrectLabel)
	assert.Equal(t, 1, msg.Score)

	sendMessage(t, conn, ClientMessage{Type: "restart"})
	msg = readMessage(t, conn)
	assert.Equal(t, 1, msg.Round)
	assert.Equal(t, 0, msg.Score)
	assert.False(t, msg.Revealed)
}

func TestGame_PlayToTheEnd(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	game := newGameURL(t, srv)
	conn := dialGame(t, srv, game)

	content, err := quiz.DefaultContent()
	require.NoError(t, err)

	msg := readMessage(t, conn)
	for !msg.GameOver {
		var answer string
		for _, label := range msg.Labels {
			if cat, _ := content.Catalog.CategoryOf(label); cat == quiz.Target {
				answer = label
			}
		}

		sendMessage(t, conn, ClientMessage{Type: "guess", Label: answer})
		msg = readMessage(t, conn)
		require.True(t, msg.Result.Correct)

		sendMessage(t, conn, ClientMessage{Type: "advance"})
		msg = readMessage(t, conn)
	}

	assert.Equal(t, 10, msg.Score)
	assert.Equal(t, 10, msg.TotalRounds)

	sendMessage(t, conn, ClientMessage{Type: "guess", Label: "Viora"})
	msg = readMessage(t, conn)
	require.Equal(t, "error", msg.Type)
	assert.Contains(t, msg.Message, "game is over")
}

func TestGame_SharedBetweenConnections(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	game := newGameURL(t, srv)

	first := dialGame(t, srv, game)
	readMessage(t, first)

	sendMessage(t, first, ClientMessage{Type: "guess", Label: "Enkla"})
	readMessage(t, first)
	sendMessage(t, first, ClientMessage{Type: "advance"})
	readMessage(t, first)

	second := dialGame(t, srv, game)
	msg := readMessage(t, second)
	assert.Equal(t, 2, msg.Round)
	assert.Equal(t, 0, msg.Score)

	sendMessage(t, second, ClientMessage{Type: "restart"})

	for _, conn := range []*websocket.Conn{first, second} {
		msg := readMessage(t, conn)
		assert.Equal(t, 1, msg.Round)
	}

	// Other games are unaffected.
	other := dialGame(t, srv, newGameURL(t, srv))
	msg = readMessage(t, other)
	assert.Equal(t, 1, msg.Round)
}

func TestGame_InvalidGameID(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	for _, suffix := range []string{"", "/qr"} {
		resp, err := http.Get(srv.URL + gamePath + "/not-a-game" + suffix)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, suffix)
	}

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + gamePath + "/not-a-game/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGame_IndexAndQR(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	game := newGameURL(t, srv)

	resp, err := http.Get(srv.URL + game)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "AI Agent… or IKEA Furniture?")

	resp, err = http.Get(srv.URL + game + "/qr")
	require.NoError(t, err)
	body, err = io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	assert.True(t, strings.HasPrefix(string(body), "\x89PNG"))
}

func TestGameManager_Reap(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	content, err := quiz.DefaultContent()
	require.NoError(t, err)

	gm := newGameManager(ctx, newTestConfig(), content, 0)

	idle, err := gm.getHub(gm.newGameID())
	require.NoError(t, err)

	again, err := gm.getHub(idle.id)
	require.NoError(t, err)
	assert.Same(t, idle, again)

	gm.reap(time.Now().Add(-time.Hour))
	assert.Len(t, gm.hubs, 1)

	gm.reap(time.Now().Add(time.Minute))
	assert.Empty(t, gm.hubs)

	select {
	case <-idle.done:
	case <-time.After(time.Second):
		t.Fatal("reaped hub was not stopped")
	}
}

func TestGuessErrorText(t *testing.T) {
	t.Parallel()

	assert.Contains(t, guessErrorText(quiz.ErrGameOver), "game is over")
	assert.Contains(t, guessErrorText(&quiz.UnknownLabelError{Label: "Billy"}), `"Billy"`)
	assert.Equal(t, "That guess could not be accepted.", guessErrorText(io.EOF))
}

func TestReapInterval(t *testing.T) {
	t.Parallel()

	tests := []struct {
		idle time.Duration
		want time.Duration
	}{
		{time.Nanosecond, time.Second},
		{time.Second, time.Second},
		{time.Hour, 30 * time.Minute},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, reapInterval(tt.idle), tt.idle.String())
	}
}

func TestGameManager_TinyTimeout(t *testing.T) {
	t.Parallel()

	content, err := quiz.DefaultContent()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	gm := &GameManager{
		cfg:         newTestConfig(),
		hubs:        make(map[string]*Hub),
		content:     content,
		idleTimeout: time.Nanosecond,
	}

	// Runs on the test goroutine so a bad ticker interval fails here.
	assert.NotPanics(t, func() { gm.reaperLoop(ctx) })
}
