package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kencorless/UpNDown/internal/auth"
	"github.com/kencorless/UpNDown/internal/store"
	gamesync "github.com/kencorless/UpNDown/internal/sync"
)

type testEnv struct {
	ts     *httptest.Server
	games  *gamesync.Engine
	tokens *auth.Tokens
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	st := store.NewMemoryStore()
	t.Cleanup(func() { st.Close() })

	nextID := 0
	games := gamesync.New(st,
		gamesync.WithClock(func() int64 { return 1700000000 }),
		gamesync.WithIDFunc(func() string {
			nextID++
			return fmt.Sprintf("id-%d", nextID)
		}),
		gamesync.WithSeedFunc(func() uint64 { return 42 }),
	)
	tokens := auth.NewTokens("test-secret")
	ts := httptest.NewServer(New(games, tokens))
	t.Cleanup(ts.Close)

	return &testEnv{ts: ts, games: games, tokens: tokens}
}

// createGame drives POST /api/games and decodes the session response.
func (env *testEnv) createGame(t *testing.T, name string) sessionResponse {
	t.Helper()
	resp := env.post(t, "/api/games", "", fmt.Sprintf(`{"playerName":%q}`, name))
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode, body(t, resp))
	var sr sessionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&sr))
	return sr
}

func (env *testEnv) joinGame(t *testing.T, gameID, name string) sessionResponse {
	t.Helper()
	resp := env.post(t, "/api/games/"+gameID+"/join", "", fmt.Sprintf(`{"playerName":%q}`, name))
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode, body(t, resp))
	var sr sessionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&sr))
	return sr
}

func (env *testEnv) post(t *testing.T, path, token, payload string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, env.ts.URL+path, strings.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := env.ts.Client().Do(req)
	require.NoError(t, err)
	return resp
}

// body drains what is left of the response for failure messages.
func body(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, _ := io.ReadAll(resp.Body)
	resp.Body = io.NopCloser(strings.NewReader(string(b)))
	return string(b)
}
