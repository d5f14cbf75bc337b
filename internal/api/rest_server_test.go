package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/annel0/mmo-tiles/internal/auth"
	"github.com/annel0/mmo-tiles/internal/game"
	"github.com/annel0/mmo-tiles/internal/scheduler"
	"github.com/annel0/mmo-tiles/internal/storage"
	"github.com/annel0/mmo-tiles/internal/vec"
	"github.com/annel0/mmo-tiles/internal/world"
	"github.com/annel0/mmo-tiles/internal/world/item"
	"github.com/annel0/mmo-tiles/internal/world/npc"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiFixture struct {
	server   *RestServer
	handler  http.Handler
	w        *world.World
	m        *world.Map
	d        *scheduler.Dispatcher
	accounts *auth.MemoryAccountRepo
	npcs     *npc.Manager
	svc      *game.Service
}

// newAPIFixture: травяной квадрат 21x21 на 7 этаже, храм в (10,10,7)
func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	m := world.NewMap(item.DefaultCatalog())
	for y := uint16(0); y <= 20; y++ {
		for x := uint16(0); x <= 20; x++ {
			tl := m.CreateTile(vec.NewPosition(x, y, 7), true)
			tl.InternalAddThing(0, m.Catalog().MustCreate(item.GrassID, 1))
		}
	}
	m.SetTemple(vec.NewPosition(10, 10, 7))

	w := world.New(m, nil, world.Options{Seed: 5})
	d := scheduler.NewDispatcher()
	d.Start()
	t.Cleanup(d.Stop)

	npcs, err := npc.NewManager(w, npc.Options{
		Definitions: map[string]*npc.Definition{
			"alice": {Name: "Alice", Health: 100, Greeting: "Hello, |PLAYERNAME|!"},
		},
		Seed: 1,
	})
	require.NoError(t, err)

	accounts := auth.NewMemoryAccountRepo()
	issuer := auth.NewSessionIssuer([]byte("api-test-secret-api-test-secret!"), time.Hour)
	state := game.NewState()
	state.Set(auth.GameStateNormal)
	svc := game.NewService(game.Options{
		World:      w,
		Dispatcher: d,
		Sessions:   issuer,
		Accounts:   accounts,
		Positions:  storage.NewMemoryPositionRepo(),
		State:      state,
		Npcs:       npcs,
	})
	login := auth.NewLoginService(accounts, issuer, state, auth.LoginOptions{
		MotdNumber: 1,
		Motd:       "Добро пожаловать",
		World:      auth.WorldEntry{Name: "Tiles", Host: "127.0.0.1", Port: 7172},
	})

	reg := prometheus.NewRegistry()
	server := NewRestServer(Config{
		Login:      login,
		Sessions:   issuer,
		Game:       svc,
		Registerer: reg,
		Gatherer:   reg,
	})
	return &apiFixture{
		server:   server,
		handler:  server.Handler(),
		w:        w,
		m:        m,
		d:        d,
		accounts: accounts,
		npcs:     npcs,
		svc:      svc,
	}
}

// account создаёт учётную запись с паролем "secret" и персонажами
func (f *apiFixture) account(t *testing.T, name string, admin bool, characters ...string) {
	t.Helper()
	ctx := context.Background()
	hash, err := auth.HashPassword("secret")
	require.NoError(t, err)
	acc, err := f.accounts.CreateAccount(ctx, name, hash, admin)
	require.NoError(t, err)
	for _, c := range characters {
		_, err := f.accounts.CreateCharacter(ctx, acc.ID, c)
		require.NoError(t, err)
	}
}

func (f *apiFixture) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

// login возвращает ключ сессии
func (f *apiFixture) login(t *testing.T, account string) string {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/api/auth/login", "", LoginRequest{Account: account, Password: "secret"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.SessionKey)
	return resp.SessionKey
}

func (f *apiFixture) enter(t *testing.T, token, character string) {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/api/game/enter", token, EnterRequest{Character: character})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, data interface{}) GenericResponse {
	t.Helper()
	var raw struct {
		GenericResponse
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw), rec.Body.String())
	if data != nil {
		require.NoError(t, json.Unmarshal(raw.Data, data))
	}
	return raw.GenericResponse
}

func TestHealth(t *testing.T) {
	f := newAPIFixture(t)
	rec := f.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"state":"normal"`)
	assert.NotEmpty(t, rec.Header().Get("X-Trace-Id"), "Каждому запросу выдаётся trace-ID")
}

func TestLogin(t *testing.T) {
	f := newAPIFixture(t)
	f.account(t, "player", false, "Knight", "Druid")

	rec := f.do(t, http.MethodPost, "/api/auth/login", "", LoginRequest{Account: "player", Password: "secret"})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "1\nДобро пожаловать", resp.MotdText)
	assert.Len(t, resp.Characters, 2)
	require.Len(t, resp.Worlds, 1)
	assert.Equal(t, "Tiles", resp.Worlds[0].Name)

	rec = f.do(t, http.MethodPost, "/api/auth/login", "", LoginRequest{Account: "player", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"account": "player"})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "Пароль обязателен")

	f.svc.State().Set(auth.GameStateMaintain)
	rec = f.do(t, http.MethodPost, "/api/auth/login", "", LoginRequest{Account: "player", Password: "secret"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code, "Обслуживание")
}

func TestSessionRequired(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/api/game/online", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/game/online", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/game/online", nil)
	req.Header.Set("Authorization", "Token abc")
	raw := httptest.NewRecorder()
	f.handler.ServeHTTP(raw, req)
	assert.Equal(t, http.StatusUnauthorized, raw.Code, "Только схема Bearer")
}

func TestEnterWalkLeave(t *testing.T) {
	f := newAPIFixture(t)
	f.account(t, "player", false, "Knight")
	token := f.login(t, "player")

	rec := f.do(t, http.MethodPost, "/api/game/enter", token, EnterRequest{Character: "Knight"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var view game.PlayerView
	decode(t, rec, &view)
	assert.Equal(t, "Knight", view.Name)
	assert.Equal(t, vec.NewPosition(10, 10, 7), view.Position)

	rec = f.do(t, http.MethodPost, "/api/game/enter", token, EnterRequest{Character: "Knight"})
	assert.Equal(t, http.StatusConflict, rec.Code, "Уже в игре")

	rec = f.do(t, http.MethodPost, "/api/game/players/Knight/walk", token, WalkRequest{Direction: "north"})
	require.Equal(t, http.StatusOK, rec.Code)
	var move MoveResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &move))
	assert.True(t, move.Success)
	assert.Equal(t, "no_error", move.Result)

	rec = f.do(t, http.MethodPost, "/api/game/players/Knight/walk", token, WalkRequest{Direction: "up"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/game/players/knight", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &view)
	assert.Equal(t, vec.NewPosition(10, 9, 7), view.Position)

	rec = f.do(t, http.MethodGet, "/api/game/online", token, nil)
	var names []string
	decode(t, rec, &names)
	assert.Equal(t, []string{"Knight"}, names)

	rec = f.do(t, http.MethodPost, "/api/game/players/Knight/leave", token, LeaveRequest{Force: true})
	assert.Equal(t, http.StatusForbidden, rec.Code, "Принудительный выход только для администратора")

	rec = f.do(t, http.MethodPost, "/api/game/players/Knight/leave", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodGet, "/api/game/players/Knight", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEnter_Errors(t *testing.T) {
	f := newAPIFixture(t)
	f.account(t, "player", false, "Knight")
	f.account(t, "other", false, "Sorcerer")
	token := f.login(t, "player")

	rec := f.do(t, http.MethodPost, "/api/game/enter", token, EnterRequest{Character: "Sorcerer"})
	assert.Equal(t, http.StatusForbidden, rec.Code, "Чужой персонаж")

	rec = f.do(t, http.MethodPost, "/api/game/enter", token, EnterRequest{Character: "Nobody"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/game/enter", token, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	f.svc.State().Set(auth.GameStateClosing)
	rec = f.do(t, http.MethodPost, "/api/game/enter", token, EnterRequest{Character: "Knight"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestPlayerOwnership(t *testing.T) {
	f := newAPIFixture(t)
	f.account(t, "player", false, "Knight")
	f.account(t, "other", false, "Sorcerer")
	f.account(t, "gm", true)
	f.enter(t, f.login(t, "player"), "Knight")

	other := f.login(t, "other")
	rec := f.do(t, http.MethodPost, "/api/game/players/Knight/walk", other, WalkRequest{Direction: "s"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	gm := f.login(t, "gm")
	rec = f.do(t, http.MethodPost, "/api/game/players/Knight/walk", gm, WalkRequest{Direction: "s"})
	assert.Equal(t, http.StatusOK, rec.Code, "Администратор управляет любым персонажем")

	rec = f.do(t, http.MethodPost, "/api/game/players/Knight/leave", gm, LeaveRequest{Force: true})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, f.svc.Online())
}

func TestMoveItemAndTile(t *testing.T) {
	f := newAPIFixture(t)
	f.account(t, "player", false, "Knight")
	f.m.TileAt(vec.NewPosition(11, 10, 7)).InternalAddThing(0, f.m.Catalog().MustCreate(item.GoldCoinID, 10))
	token := f.login(t, "player")
	f.enter(t, token, "Knight")

	rec := f.do(t, http.MethodPost, "/api/game/players/Knight/move-item", token, game.MoveItemRequest{
		From: vec.NewPosition(11, 10, 7), Index: 1, To: vec.NewPosition(12, 10, 7), Count: 3,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var move MoveResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &move))
	assert.True(t, move.Success)

	rec = f.do(t, http.MethodGet, "/api/tiles/12/10/7", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var tile game.TileView
	decode(t, rec, &tile)
	require.Len(t, tile.Things, 2)
	assert.Equal(t, uint32(3), tile.Things[1].Count)

	rec = f.do(t, http.MethodPost, "/api/game/players/Knight/move-item", token, game.MoveItemRequest{
		From: vec.NewPosition(11, 10, 7), Index: 9, To: vec.NewPosition(12, 10, 7),
	})
	assert.Equal(t, http.StatusNotFound, rec.Code, "Нет объекта с таким индексом")

	rec = f.do(t, http.MethodPost, "/api/game/players/Knight/move-item", token, game.MoveItemRequest{
		From: vec.NewPosition(12, 10, 7), Index: 1, To: vec.NewPosition(15, 10, 7),
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &move))
	assert.False(t, move.Success)
	assert.Equal(t, "too_far_away", move.Result)
	assert.NotEmpty(t, move.Message)

	rec = f.do(t, http.MethodGet, "/api/tiles/100/100/7", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = f.do(t, http.MethodGet, "/api/tiles/1/1/16", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = f.do(t, http.MethodGet, "/api/tiles/x/1/7", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSayAndEvents(t *testing.T) {
	f := newAPIFixture(t)
	f.account(t, "player", false, "Knight")
	f.account(t, "second", false, "Druid")
	require.NoError(t, f.d.Do(context.Background(), func() {
		_, err := f.npcs.Spawn("Alice", vec.NewPosition(12, 12, 7))
		assert.NoError(t, err)
	}))
	knight := f.login(t, "player")
	f.enter(t, knight, "Knight")

	rec := f.do(t, http.MethodPost, "/api/game/players/Knight/say", knight, SayRequest{Text: "hi"})
	require.Equal(t, http.StatusOK, rec.Code)
	var replies []npc.Speech
	decode(t, rec, &replies)
	require.Len(t, replies, 1)
	assert.Equal(t, "Hello, Knight!", replies[0].Text)

	// очередь событий Knight: появление Druid рядом
	f.do(t, http.MethodGet, "/api/game/players/Knight/events", knight, nil)
	f.enter(t, f.login(t, "second"), "Druid")
	require.NoError(t, f.d.Do(context.Background(), func() { f.w.FlushEvents(context.Background()) }))

	rec = f.do(t, http.MethodGet, "/api/game/players/Knight/events", knight, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var events struct {
		Success bool              `json:"success"`
		Events  []json.RawMessage `json:"events"`
		Dropped int               `json:"dropped"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &events))
	assert.True(t, events.Success)
	assert.NotEmpty(t, events.Events)
	assert.Zero(t, events.Dropped)
}

func TestStats(t *testing.T) {
	f := newAPIFixture(t)
	f.account(t, "player", false, "Knight")
	token := f.login(t, "player")
	f.enter(t, token, "Knight")

	rec := f.do(t, http.MethodGet, "/api/stats", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var stats struct {
		State   string       `json:"state"`
		Online  int          `json:"online"`
		Process ProcessStats `json:"process"`
	}
	decode(t, rec, &stats)
	assert.Equal(t, "normal", stats.State)
	assert.Equal(t, 1, stats.Online)
	assert.Positive(t, stats.Process.Goroutines)
	assert.NotEmpty(t, stats.Process.Uptime)
}

func TestAdmin(t *testing.T) {
	f := newAPIFixture(t)
	f.account(t, "player", false, "Knight")
	f.account(t, "gm", true, "Gamemaster")
	player := f.login(t, "player")
	gm := f.login(t, "gm")

	rec := f.do(t, http.MethodPost, "/api/admin/state", player, StateRequest{State: "maintain"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/admin/state", gm, StateRequest{State: "unknown"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/admin/state", gm, StateRequest{State: "maintain"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, auth.GameStateMaintain, f.svc.State().GameState())

	rec = f.do(t, http.MethodPost, "/api/game/enter", player, EnterRequest{Character: "Knight"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code, "Обслуживание закрывает вход игрокам")
	f.enter(t, gm, "Gamemaster")

	rec = f.do(t, http.MethodPost, "/api/admin/save", gm, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var saved struct {
		Saved int `json:"saved"`
	}
	decode(t, rec, &saved)
	assert.Equal(t, 1, saved.Saved)

	rec = f.do(t, http.MethodPost, "/api/admin/npcs/reload", gm, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code, "Описания загружены не из каталога")
}

func TestMetricsEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	f.do(t, http.MethodGet, "/health", "", nil)
	f.do(t, http.MethodGet, "/api/game/online", "", nil)

	rec := f.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "rest_api_http_request_duration_seconds")
	assert.True(t, strings.Contains(body, `rest_api_http_request_errors_total{method="GET",path="/api/game/online",status="401"} 1`), body)
}

func TestFormatUptime(t *testing.T) {
	assert.Equal(t, "5с", formatUptime(5*time.Second))
	assert.Equal(t, "2м 3с", formatUptime(2*time.Minute+3*time.Second))
	assert.Equal(t, "1ч 0м 0с", formatUptime(time.Hour))
	assert.Equal(t, "2д 1ч 0м 0с", formatUptime(49*time.Hour))
}
