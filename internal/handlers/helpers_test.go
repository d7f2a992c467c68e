package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/jwebster45206/story-rooms/pkg/content"
	"github.com/jwebster45206/story-rooms/pkg/room"
	"github.com/redis/go-redis/v9"
)

const testContent = `{
  "gameConfig": [{"id": "maxStartingPoints", "value": 5}, {"id": "xpThreshold", "value": 100}],
  "skills": [{"id": "fisico", "name": "Físico", "subskills": [{"id": "fuerza", "name": "Fuerza"}]}],
  "attributes": [{"id": "carisma", "name": "Carisma"}, {"id": "valor", "name": "Valor", "hidden": true}],
  "scenes": [
    {"id": "inicio", "text": "Una puerta.", "options": [
      {"id": 1, "text": "Abrir", "nextSceneId": {"success": "fin"}},
      {"id": 2, "text": "Esperar", "nextSceneId": {"success": "fin"}}
    ]},
    {"id": "fin", "text": "Fin.", "isEnding": true}
  ]
}`

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

func testCatalog(t *testing.T) *content.Catalog {
	t.Helper()
	c, err := content.Parse([]byte(testContent))
	if err != nil {
		t.Fatalf("parse test content: %v", err)
	}
	return c
}

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func newRoomsServer(t *testing.T, opts ...room.Option) (*room.Engine, http.Handler) {
	t.Helper()
	opts = append([]room.Option{room.WithSeed(1)}, opts...)
	engine := room.NewEngine(room.NewRegistry(), testCatalog(t), quietLogger(), opts...)
	h := NewRoomsHandler(engine, quietLogger())
	mux := http.NewServeMux()
	mux.Handle("/v1/rooms", h)
	mux.Handle("/v1/rooms/", h)
	return engine, mux
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("decode response %q: %v", rr.Body.String(), err)
	}
	return v
}
