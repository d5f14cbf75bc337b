package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/annel0/mmo-tiles/internal/auth"
	"github.com/annel0/mmo-tiles/internal/game"
	"github.com/annel0/mmo-tiles/internal/middleware"
	"github.com/annel0/mmo-tiles/internal/vec"
	"github.com/annel0/mmo-tiles/internal/world/npc"
	"github.com/annel0/mmo-tiles/internal/world/thing"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// requestTimeout сколько обработчик ждёт выполнения задачи в потоке мира
const requestTimeout = 5 * time.Second

// RestServer REST API сервера: вход, персонажи в игре и осмотр карты
type RestServer struct {
	router   *gin.Engine
	login    *auth.LoginService
	sessions *auth.SessionIssuer
	game     *game.Service
	metrics  *ServerMetrics
}

// Config содержит конфигурацию для REST сервера
type Config struct {
	Login    *auth.LoginService
	Sessions *auth.SessionIssuer
	Game     *game.Service
	// Registerer для HTTP-метрик; nil отключает их
	Registerer prometheus.Registerer
	// Gatherer отдаётся на /metrics; nil отключает маршрут
	Gatherer prometheus.Gatherer
	// ServiceName имя сервиса в трассировке
	ServiceName string
}

// NewRestServer создает новый REST API сервер
func NewRestServer(config Config) *RestServer {
	if config.ServiceName == "" {
		config.ServiceName = "mmo-tiles"
	}
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(config.ServiceName))
	router.Use(middleware.NewRequestLogger().Handler())
	if config.Registerer != nil {
		promMw := middleware.NewPrometheusMiddleware("rest_api", config.Registerer)
		router.Use(promMw.Handler())
		if config.Gatherer != nil {
			promMw.RegisterMetricsEndpoint(router, config.Gatherer)
		}
	}

	rs := &RestServer{
		router:   router,
		login:    config.Login,
		sessions: config.Sessions,
		game:     config.Game,
		metrics:  NewServerMetrics(),
	}
	rs.setupRoutes()
	return rs
}

// Handler HTTP-обработчик сервера
func (rs *RestServer) Handler() http.Handler { return rs.router }

func (rs *RestServer) setupRoutes() {
	api := rs.router.Group("/api")
	api.POST("/auth/login", rs.handleLogin)

	protected := api.Group("/")
	protected.Use(rs.sessionMiddleware())
	{
		protected.POST("/game/enter", rs.handleEnter)
		protected.GET("/game/online", rs.handleOnline)

		player := protected.Group("/game/players/:name")
		player.Use(rs.ownerMiddleware())
		{
			player.GET("", rs.handlePlayer)
			player.POST("/leave", rs.handleLeave)
			player.POST("/walk", rs.handleWalk)
			player.POST("/move-item", rs.handleMoveItem)
			player.POST("/say", rs.handleSay)
			player.GET("/events", rs.handleEvents)
		}

		protected.GET("/tiles/:x/:y/:z", rs.handleTile)
		protected.GET("/stats", rs.handleStats)

		admin := protected.Group("/admin")
		admin.Use(rs.adminMiddleware())
		{
			admin.POST("/npcs/reload", rs.handleReloadNpcs)
			admin.POST("/state", rs.handleSetState)
			admin.POST("/save", rs.handleSave)
		}
	}

	rs.router.GET("/health", rs.handleHealth)
}

// GenericResponse представляет общий ответ API
type GenericResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// MoveResponse результат команды перемещения
type MoveResponse struct {
	Success bool   `json:"success"`
	Result  string `json:"result"`
	Message string `json:"message,omitempty"`
}

func moveResponse(rv thing.ReturnValue) MoveResponse {
	return MoveResponse{Success: rv == thing.NoError, Result: rv.String(), Message: rv.Message()}
}

func fail(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, GenericResponse{Success: false, Message: message})
}

// failErr переводит ошибку сервиса в HTTP-статус
func failErr(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidSession):
		status = http.StatusUnauthorized
	case errors.Is(err, auth.ErrInvalidAccountName):
		status = http.StatusBadRequest
	case errors.Is(err, auth.ErrServerShutdown), errors.Is(err, auth.ErrStartingUp),
		errors.Is(err, auth.ErrMaintenance), errors.Is(err, game.ErrClosing):
		status = http.StatusServiceUnavailable
	case errors.Is(err, game.ErrCharacterNotOwned):
		status = http.StatusForbidden
	case errors.Is(err, auth.ErrCharacterNotFound), errors.Is(err, game.ErrNotOnline),
		errors.Is(err, game.ErrNoTile), errors.Is(err, game.ErrThingNotFound):
		status = http.StatusNotFound
	case errors.Is(err, game.ErrAlreadyOnline), errors.Is(err, game.ErrCannotLogoutHere),
		errors.Is(err, game.ErrLogoutPzLocked):
		status = http.StatusConflict
	case errors.Is(err, game.ErrNotAnItem):
		status = http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "Внутренняя ошибка сервера"
	}
	fail(c, status, message)
}

func requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), requestTimeout)
}

// LoginRequest представляет запрос на вход
type LoginRequest struct {
	Account  string `json:"account" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse ответ сервера входа
type LoginResponse struct {
	Success bool `json:"success"`
	*auth.LoginResponse
	MotdText string `json:"motd_text"`
}

func (rs *RestServer) handleLogin(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Неверный формат запроса")
		return
	}
	resp, err := rs.login.Login(c.Request.Context(), req.Account, req.Password)
	if err != nil {
		failErr(c, err)
		return
	}
	c.JSON(http.StatusOK, LoginResponse{Success: true, LoginResponse: resp, MotdText: resp.MotdText()})
}

// EnterRequest вход персонажа в игру
type EnterRequest struct {
	Character string `json:"character" binding:"required"`
}

func (rs *RestServer) handleEnter(c *gin.Context) {
	var req EnterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Неверный формат запроса")
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	p, err := rs.game.EnterGame(ctx, c.GetString(ctxToken), req.Character)
	if err != nil {
		failErr(c, err)
		return
	}
	view, err := rs.game.View(ctx, p.Name())
	if err != nil {
		failErr(c, err)
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Персонаж в игре", Data: view})
}

func (rs *RestServer) handleOnline(c *gin.Context) {
	names := make([]string, 0)
	for _, p := range rs.game.Online() {
		names = append(names, p.Name())
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Data: names})
}

func (rs *RestServer) handlePlayer(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()
	view, err := rs.game.View(ctx, c.Param("name"))
	if err != nil {
		failErr(c, err)
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Data: view})
}

// LeaveRequest выход из игры; Force только для администраторов
type LeaveRequest struct {
	Force bool `json:"force"`
}

func (rs *RestServer) handleLeave(c *gin.Context) {
	var req LeaveRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, "Неверный формат запроса")
			return
		}
	}
	if req.Force && !c.GetBool(ctxIsAdmin) {
		fail(c, http.StatusForbidden, "Недостаточно прав доступа")
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	if err := rs.game.LeaveGame(ctx, c.Param("name"), req.Force); err != nil {
		failErr(c, err)
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Персонаж вышел из игры"})
}

// WalkRequest шаг персонажа
type WalkRequest struct {
	Direction string `json:"direction" binding:"required"`
}

func (rs *RestServer) handleWalk(c *gin.Context) {
	var req WalkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Неверный формат запроса")
		return
	}
	dir, ok := vec.ParseDirection(req.Direction)
	if !ok {
		fail(c, http.StatusBadRequest, "Неизвестное направление")
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	rv, err := rs.game.Walk(ctx, c.Param("name"), dir)
	if err != nil {
		failErr(c, err)
		return
	}
	c.JSON(http.StatusOK, moveResponse(rv))
}

func (rs *RestServer) handleMoveItem(c *gin.Context) {
	var req game.MoveItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Неверный формат запроса")
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	rv, err := rs.game.MoveItem(ctx, c.Param("name"), req)
	if err != nil {
		failErr(c, err)
		return
	}
	c.JSON(http.StatusOK, moveResponse(rv))
}

// SayRequest реплика персонажа
type SayRequest struct {
	Text string `json:"text" binding:"required"`
}

func (rs *RestServer) handleSay(c *gin.Context) {
	var req SayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Неверный формат запроса")
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	replies, err := rs.game.Say(ctx, c.Param("name"), req.Text)
	if err != nil {
		failErr(c, err)
		return
	}
	if replies == nil {
		replies = []npc.Speech{}
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Data: replies})
}

func (rs *RestServer) handleEvents(c *gin.Context) {
	p, ok := rs.game.Player(c.Param("name"))
	if !ok {
		failErr(c, game.ErrNotOnline)
		return
	}
	events, dropped := p.Events()
	c.JSON(http.StatusOK, gin.H{"success": true, "events": events, "dropped": dropped})
}

func (rs *RestServer) handleTile(c *gin.Context) {
	x, errX := strconv.ParseUint(c.Param("x"), 10, 16)
	y, errY := strconv.ParseUint(c.Param("y"), 10, 16)
	z, errZ := strconv.ParseUint(c.Param("z"), 10, 8)
	if errX != nil || errY != nil || errZ != nil || z > vec.MaxFloor {
		fail(c, http.StatusBadRequest, "Неверные координаты")
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	view, err := rs.game.InspectTile(ctx, vec.NewPosition(uint16(x), uint16(y), uint8(z)))
	if err != nil {
		failErr(c, err)
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Data: view})
}

func (rs *RestServer) handleStats(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()
	stats, err := rs.game.WorldStats(ctx)
	if err != nil {
		failErr(c, err)
		return
	}

	c.JSON(http.StatusOK, GenericResponse{Success: true, Data: gin.H{
		"state":       rs.game.State().GameState().String(),
		"online":      len(rs.game.Online()),
		"world":       stats,
		"process":     rs.metrics.Snapshot(),
		"server_time": time.Now().UTC(),
	}})
}

func (rs *RestServer) handleReloadNpcs(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()
	if err := rs.game.ReloadNpcs(ctx); err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Описания NPC перезагружены"})
}

// StateRequest смена состояния мира
type StateRequest struct {
	State string `json:"state" binding:"required"`
}

var gameStates = map[string]auth.GameState{
	"startup":  auth.GameStateStartup,
	"normal":   auth.GameStateNormal,
	"maintain": auth.GameStateMaintain,
	"closing":  auth.GameStateClosing,
}

func (rs *RestServer) handleSetState(c *gin.Context) {
	var req StateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Неверный формат запроса")
		return
	}
	state, ok := gameStates[req.State]
	if !ok {
		fail(c, http.StatusBadRequest, "Неизвестное состояние")
		return
	}
	rs.game.State().Set(state)
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Состояние: " + state.String()})
}

func (rs *RestServer) handleSave(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()
	n, err := rs.game.SaveAll(ctx)
	if err != nil {
		failErr(c, err)
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Data: gin.H{"saved": n}})
}

func (rs *RestServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"state":  rs.game.State().GameState().String(),
		"uptime": rs.metrics.GetUptime(),
	})
}
