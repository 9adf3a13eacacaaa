// Package server is the HTTP and WebSocket gateway in front of the
// synchronization engine. It translates JSON requests into commands and
// pushes every committed state to subscribed sockets.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/kencorless/UpNDown/engine"
	"github.com/kencorless/UpNDown/internal/auth"
	"github.com/kencorless/UpNDown/internal/store"
	gamesync "github.com/kencorless/UpNDown/internal/sync"
)

type Server struct {
	mux    *http.ServeMux
	games  *gamesync.Engine
	tokens *auth.Tokens
	log    *logrus.Entry
}

func New(games *gamesync.Engine, tokens *auth.Tokens) *Server {
	s := &Server{
		mux:    http.NewServeMux(),
		games:  games,
		tokens: tokens,
		log:    logrus.WithField("component", "server"),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /api/games", s.handleCreate)
	s.mux.HandleFunc("GET /api/games/{id}", s.handleGet)
	s.mux.HandleFunc("POST /api/games/{id}/join", s.handleJoin)
	s.mux.HandleFunc("POST /api/games/{id}/start", s.handleStart)
	s.mux.HandleFunc("POST /api/games/{id}/play", s.handlePlay)
	s.mux.HandleFunc("POST /api/games/{id}/end-turn", s.handleEndTurn)
	s.mux.HandleFunc("POST /api/games/{id}/preference", s.handlePreference)
	s.mux.HandleFunc("POST /api/games/{id}/reset", s.handleReset)
	s.mux.HandleFunc("GET /api/games/{id}/ws", s.handleWebSocket)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

type createRequest struct {
	PlayerName string `json:"playerName"`
}

// sessionResponse is returned by create and join: the committed state plus
// the caller's identity and token for subsequent commands.
type sessionResponse struct {
	Game     engine.GameState `json:"game"`
	PlayerID string           `json:"playerId"`
	Token    string           `json:"token"`
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	g, err := s.games.CreateGame(r.Context(), strings.TrimSpace(req.PlayerName))
	if err != nil {
		s.writeCommandError(w, err)
		return
	}
	playerID := g.Players[0].ID
	token, err := s.tokens.Issue(playerID, g.GameID)
	if err != nil {
		s.log.WithError(err).Error("issue token")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{Game: g, PlayerID: playerID, Token: token})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	g, err := s.games.GetGame(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeCommandError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	gameID := r.PathValue("id")
	g, playerID, err := s.games.JoinGame(r.Context(), gameID, strings.TrimSpace(req.PlayerName))
	if err != nil {
		s.writeCommandError(w, err)
		return
	}
	token, err := s.tokens.Issue(playerID, gameID)
	if err != nil {
		s.log.WithError(err).Error("issue token")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Game: g, PlayerID: playerID, Token: token})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	gameID := r.PathValue("id")
	if _, ok := s.authorize(w, r, gameID); !ok {
		return
	}
	g, err := s.games.StartGame(r.Context(), gameID)
	if err != nil {
		s.writeCommandError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

type playRequest struct {
	CardIDs []string `json:"cardIds"`
	PileID  string   `json:"pileId"`
}

func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	gameID := r.PathValue("id")
	claims, ok := s.authorize(w, r, gameID)
	if !ok {
		return
	}
	var req playRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	g, err := s.games.PlayCards(r.Context(), gameID, claims.PlayerID, req.CardIDs, req.PileID)
	if err != nil {
		s.writeCommandError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleEndTurn(w http.ResponseWriter, r *http.Request) {
	gameID := r.PathValue("id")
	claims, ok := s.authorize(w, r, gameID)
	if !ok {
		return
	}
	g, err := s.games.EndTurn(r.Context(), gameID, claims.PlayerID)
	if err != nil {
		s.writeCommandError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

type preferenceRequest struct {
	PileID string `json:"pileId"`
	Level  string `json:"level"`
}

func (s *Server) handlePreference(w http.ResponseWriter, r *http.Request) {
	gameID := r.PathValue("id")
	claims, ok := s.authorize(w, r, gameID)
	if !ok {
		return
	}
	var req preferenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	g, err := s.games.SetPreference(r.Context(), gameID, claims.PlayerID, req.PileID, engine.PreferenceLevel(req.Level))
	if err != nil {
		s.writeCommandError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	gameID := r.PathValue("id")
	if _, ok := s.authorize(w, r, gameID); !ok {
		return
	}
	g, err := s.games.ResetGame(r.Context(), gameID)
	if err != nil {
		s.writeCommandError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// authorize extracts the bearer token (header or ?token= for sockets) and
// checks it was issued for this game.
func (s *Server) authorize(w http.ResponseWriter, r *http.Request, gameID string) (*auth.Claims, bool) {
	raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if raw == "" || raw == r.Header.Get("Authorization") {
		raw = r.URL.Query().Get("token")
	}
	if raw == "" {
		writeError(w, http.StatusUnauthorized, "missing token")
		return nil, false
	}
	claims, err := s.tokens.Verify(raw)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid token")
		return nil, false
	}
	if claims.GameID != gameID {
		writeError(w, http.StatusForbidden, "token is for a different game")
		return nil, false
	}
	return claims, true
}

// writeCommandError maps the error taxonomy onto HTTP statuses.
func (s *Server) writeCommandError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, gamesync.ErrContention), errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, store.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, "store unavailable")
	default:
		switch engine.KindOf(err) {
		case engine.KindValidation:
			writeError(w, http.StatusBadRequest, err.Error())
		case engine.KindRule:
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		case engine.KindLifecycle:
			writeError(w, http.StatusConflict, err.Error())
		case engine.KindNotFound:
			writeError(w, http.StatusNotFound, err.Error())
		default:
			s.log.WithError(err).Error("command failed")
			writeError(w, http.StatusInternalServerError, "internal error")
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
