/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// AI or IKEA?
//
// Each game is ten fixed rounds. A round shows two names; one is an AI
// product, the other an IKEA item. The player clicks the one they think is
// the AI product, the answer is revealed, and they move on to the next round.
//
// Routes:
//   - $path                  → redirects to a new game
//   - $path/:gameid          → HTML client
//   - $path/:gameid/ws       → WebSocket carrying commands and game state
//   - $path/:gameid/qr       → PNG QR code for the game URL
//
// Every connection to a game ID drives the same engine, so a refreshed tab
// or a second device picks up where the game left off. Commands from all
// connections are applied one at a time by the hub's run loop.

package main

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"

	"github.com/Seednode/aiorikea/quiz"
)

// Messages coming from clients
type ClientMessage struct {
	Type  string `json:"type"`            // "guess", "advance", "restart"
	Label string `json:"label,omitempty"` // guess
}

// StateMessage is broadcast after every accepted command.
type StateMessage struct {
	Type string `json:"type"` // "state"
	quiz.View
}

// ErrorMessage is sent only to the client whose command was rejected.
type ErrorMessage struct {
	Type    string `json:"type"` // "error"
	Message string `json:"message"`
}

type Client struct {
	conn *websocket.Conn
	send chan any
}

type command struct {
	client *Client
	msg    ClientMessage
}

type Hub struct {
	id      string
	engine  *quiz.Engine
	clients map[*Client]bool

	register chan *Client
	unreg    chan *Client
	commands chan command
	done     chan struct{}
	stopOnce sync.Once

	mu         sync.RWMutex
	createdAt  time.Time
	lastActive time.Time
}

func newHub(gameID string, engine *quiz.Engine) *Hub {
	now := time.Now()
	return &Hub{
		id:         gameID,
		engine:     engine,
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unreg:      make(chan *Client),
		commands:   make(chan command),
		done:       make(chan struct{}),
		createdAt:  now,
		lastActive: now,
	}
}

// run owns the engine and the client set. Nothing else touches either.
func (h *Hub) run(cfg *Config) {
	for {
		select {
		case c := <-h.register:
			h.touch()
			h.clients[c] = true
			h.sendTo(c, h.stateMessage())

		case c := <-h.unreg:
			h.touch()
			h.drop(c)

		case cmd := <-h.commands:
			h.touch()
			h.handleCommand(cfg, cmd)

		case <-h.done:
			for c := range h.clients {
				h.drop(c)
				_ = c.conn.Close()
			}
			return
		}
	}
}

func (h *Hub) stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

func (h *Hub) touch() {
	h.mu.Lock()
	h.lastActive = time.Now()
	h.mu.Unlock()
}

func (h *Hub) idleSince() time.Time {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.lastActive
}

func (h *Hub) drop(c *Client) {
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) handleCommand(cfg *Config, cmd command) {
	switch cmd.msg.Type {
	case "guess":
		res, err := h.engine.Guess(cmd.msg.Label)
		if err != nil {
			logf(cfg, "GAMES: Rejected guess %q in %s: %v", cmd.msg.Label, h.id, err)
			h.sendTo(cmd.client, ErrorMessage{
				Type:    "error",
				Message: guessErrorText(err),
			})
			return
		}
		logf(cfg, "GAMES: Guessed %q in %s (correct: %t)", res.Label, h.id, res.Correct)

	case "advance":
		h.engine.Advance()
		if h.engine.IsGameOver() {
			score, total := h.engine.FinalScore()
			logf(cfg, "GAMES: Finished %s with %d/%d", h.id, score, total)
		}

	case "restart":
		h.engine.Restart()
		logf(cfg, "GAMES: Restarted %s", h.id)

	default:
		logf(cfg, "GAMES: Rejected unknown command %q in %s", cmd.msg.Type, h.id)
		h.sendTo(cmd.client, ErrorMessage{
			Type:    "error",
			Message: "Unknown command \"" + cmd.msg.Type + "\".",
		})
		return
	}

	h.broadcast(h.stateMessage())
}

func guessErrorText(err error) string {
	var unknown *quiz.UnknownLabelError

	switch {
	case errors.Is(err, quiz.ErrGameOver):
		return "The game is over. Press Play Again to start a new one."
	case errors.As(err, &unknown):
		return "\"" + unknown.Label + "\" is not one of this round's names."
	default:
		return "That guess could not be accepted."
	}
}

func (h *Hub) stateMessage() StateMessage {
	return StateMessage{
		Type: "state",
		View: h.engine.View(),
	}
}

// sendTo drops clients whose buffers are full rather than stall the game.
func (h *Hub) sendTo(c *Client, msg any) {
	if !h.clients[c] {
		return
	}

	select {
	case c.send <- msg:
	default:
		h.drop(c)
	}
}

func (h *Hub) broadcast(msg any) {
	for c := range h.clients {
		h.sendTo(c, msg)
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// GameManager holds a set of hubs keyed by game ID, so each $path/$gameid
// is its own isolated game.
type GameManager struct {
	cfg         *Config
	mu          sync.Mutex
	hubs        map[string]*Hub
	content     *quiz.Content
	idleTimeout time.Duration
}

func newGameManager(ctx context.Context, cfg *Config, content *quiz.Content, idleTimeout time.Duration) *GameManager {
	gm := &GameManager{
		cfg:         cfg,
		hubs:        make(map[string]*Hub),
		content:     content,
		idleTimeout: idleTimeout,
	}
	if idleTimeout > 0 {
		go gm.reaperLoop(ctx)
	}
	go func() {
		<-ctx.Done()
		gm.closeAll()
	}()
	return gm
}

func (gm *GameManager) getHub(gameID string) (*Hub, error) {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	if hub, ok := gm.hubs[gameID]; ok {
		return hub, nil
	}

	engine, err := quiz.New(gm.content.Catalog, gm.content.Rounds)
	if err != nil {
		return nil, err
	}

	hub := newHub(gameID, engine)
	gm.hubs[gameID] = hub
	go hub.run(gm.cfg)

	logf(gm.cfg, "GAMES: Started %s", gameID)

	return hub, nil
}

func (gm *GameManager) newGameID() string {
	for {
		id := uuid.NewString()

		gm.mu.Lock()
		_, exists := gm.hubs[id]
		gm.mu.Unlock()

		if !exists {
			return id
		}
	}
}

// reapInterval is half the idle timeout, but never below one second.
func reapInterval(idleTimeout time.Duration) time.Duration {
	return max(idleTimeout/2, time.Second)
}

// reaperLoop periodically removes hubs that have been idle longer than idleTimeout.
func (gm *GameManager) reaperLoop(ctx context.Context) {
	ticker := time.NewTicker(reapInterval(gm.idleTimeout))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			gm.reap(time.Now().Add(-gm.idleTimeout))
		}
	}
}

func (gm *GameManager) reap(cutoff time.Time) {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	for id, hub := range gm.hubs {
		if hub.idleSince().Before(cutoff) {
			delete(gm.hubs, id)
			hub.stop()
			logf(gm.cfg, "GAMES: Reaped idle game %s after %s", id, time.Since(hub.createdAt).Round(time.Second))
		}
	}
}

func (gm *GameManager) closeAll() {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	for id, hub := range gm.hubs {
		delete(gm.hubs, id)
		hub.stop()
	}
}

func gameIDParam(ps httprouter.Params) (string, bool) {
	id, err := uuid.Parse(ps.ByName("gameid"))
	if err != nil {
		return "", false
	}

	return id.String(), true
}

// WebSocket handler that picks the hub based on :gameid
func serveWSForManager(cfg *Config, gm *GameManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		gameID, ok := gameIDParam(ps)
		if !ok {
			http.Error(w, "invalid game id", http.StatusBadRequest)
			return
		}

		hub, err := gm.getHub(gameID)
		if err != nil {
			errorf(cfg, "GAMES: Unable to start %s: %v", gameID, err)
			http.Error(w, "unable to start game", http.StatusInternalServerError)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logf(cfg, "GAMES: Upgrade error from %s: %v", realIP(r), err)
			return
		}

		// Hijacked connections keep the server's read and write deadlines.
		_ = conn.SetReadDeadline(time.Time{})
		_ = conn.SetWriteDeadline(time.Time{})

		client := &Client{
			conn: conn,
			send: make(chan any, 8),
		}

		select {
		case hub.register <- client:
		case <-hub.done:
			_ = conn.Close()
			return
		}

		go client.writePump()
		client.readPump(hub)
	}
}

func (c *Client) readPump(h *Hub) {
	defer func() {
		select {
		case h.unreg <- c:
		case <-h.done:
		}
		_ = c.conn.Close()
	}()

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		select {
		case h.commands <- command{client: c, msg: msg}:
		case <-h.done:
			return
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// QR handler: generates a PNG QR code for the current game URL using go-qrcode.
func qrHandler(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if _, ok := gameIDParam(ps); !ok {
			http.Error(w, "invalid game id", http.StatusBadRequest)
			return
		}

		// Derive scheme (respecting TLS and X-Forwarded-Proto if present).
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}

		// We are at /.../:gameid/qr; strip trailing "/qr" to get the game URL.
		path := strings.TrimSuffix(r.URL.Path, "/qr")

		url := scheme + "://" + r.Host + path

		const qrSize = 320 // mobile-friendly size
		png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		securityHeaders(cfg, w)
		_, _ = w.Write(png)
	}
}

func getIndexHandler(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if _, ok := gameIDParam(ps); !ok {
			http.Error(w, "invalid game id", http.StatusBadRequest)
			return
		}

		data, err := assets.ReadFile("assets/aiorikea/index.html")
		if err != nil {
			panic(err)
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		cacheFor(w, time.Hour)
		securityHeaders(cfg, w)

		_, _ = w.Write(data)
	}
}

// redirectNewGame handles GET /path by generating a new game ID and
// redirecting to /path/:gameid.
func redirectNewGame(cfg *Config, path string, gm *GameManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		gameID := gm.newGameID()
		logf(cfg, "GAMES: Created game %s/%s for %s", path, gameID, realIP(r))
		http.Redirect(w, r, cfg.prefix+path+"/"+gameID, http.StatusTemporaryRedirect)
	}
}

// registerQuizGame loads the built-in content once and sets up the game
// routes. Invalid content fails here, before the server starts listening.
func registerQuizGame(ctx context.Context, cfg *Config, path string, mux *httprouter.Router) error {
	content, err := quiz.DefaultContent()
	if err != nil {
		return err
	}

	// Reject bad rounds at startup rather than on the first game.
	if _, err := quiz.New(content.Catalog, content.Rounds); err != nil {
		return err
	}

	gm := newGameManager(ctx, cfg, content, cfg.sessionTimeout)

	mux.GET(cfg.prefix+path, redirectNewGame(cfg, path, gm))
	mux.GET(cfg.prefix+path+"/:gameid", getIndexHandler(cfg))
	mux.GET(cfg.prefix+path+"/:gameid/ws", serveWSForManager(cfg, gm))
	mux.GET(cfg.prefix+path+"/:gameid/qr", qrHandler(cfg))

	return nil
}
