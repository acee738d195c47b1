package handlers

import (
	"net/http"

	"line_supervisor/internal/codes"
	"line_supervisor/internal/hub"
	"line_supervisor/internal/logger"
	"line_supervisor/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handler wires the HTTP and websocket layers to services, the hub and logging.
type Handler struct {
	services *service.Service
	rooms    *hub.Hub
	metrics  http.Handler
	log      *logger.Logger
}

type Option func(*Handler)

// WithMetrics serves h at /metrics.
func WithMetrics(h http.Handler) Option { return func(x *Handler) { x.metrics = h } }

// NewHandler constructs a new HTTP handler with dependencies.
func NewHandler(services *service.Service, rooms *hub.Hub, log *logger.Logger, opts ...Option) *Handler {
	h := &Handler{services: services, rooms: rooms, log: log}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		if err := codes.RegisterValidators(v); err != nil && h.log != nil {
			h.log.Errorw("validator_register_failed", "err", err)
		}
	}

	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/health", h.health)
	if h.metrics != nil {
		router.GET("/metrics", gin.WrapH(h.metrics))
	}

	h.registerAPIRoutes(router)

	// viewer sessions share the HTTP port
	router.GET("/ws", h.wsConnect)

	return router
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api/v1", h.authMiddleware)
	{
		h.registerLineRoutes(api)
		h.registerStationRoutes(api)
		h.registerAssociationRoutes(api)
		h.registerOperatorRoutes(api)
		h.registerOrderRoutes(api)
		h.registerJournalRoutes(api)
	}
}

func (h *Handler) registerLineRoutes(api *gin.RouterGroup) {
	line := api.Group("/line")
	{
		// Body example: {"target": 120, "order_reference": "OP-1"}
		line.POST("/start", h.startLine)
		line.POST("/stop", h.stopLine)
		line.POST("/restart", h.restartLine)
		line.POST("/reset-counter", h.resetCounter)
		line.PUT("/target", h.setTarget)
		line.GET("/state", h.getLineState)
	}
}

func (h *Handler) registerStationRoutes(api *gin.RouterGroup) {
	stations := api.Group("/stations")
	{
		stations.GET("", h.listStations)
		stations.GET("/:id", h.getStation)
		stations.POST("/:id/command", h.stationCommand)
		stations.PUT("/:id/operator", h.allocateOperator)
		stations.DELETE("/:id/operator", h.deallocateOperator)
	}
}

func (h *Handler) registerAssociationRoutes(api *gin.RouterGroup) {
	assoc := api.Group("/associations")
	{
		assoc.POST("", h.createAssociation)
		assoc.GET("", h.listAssociations)
	}
}

func (h *Handler) registerOperatorRoutes(api *gin.RouterGroup) {
	ops := api.Group("/operators")
	{
		ops.POST("", h.createOperator)
		ops.GET("", h.listOperators)
		ops.POST("/checkin", h.checkIn)
		ops.GET("/:id", h.getOperator)
		ops.PUT("/:id", h.updateOperator)
		ops.DELETE("/:id", h.adminOnly, h.deleteOperator)
	}
}

func (h *Handler) registerOrderRoutes(api *gin.RouterGroup) {
	orders := api.Group("/orders")
	{
		orders.POST("", h.createOrder)
		orders.GET("", h.listOrders)
		orders.GET("/:code", h.getOrder)
		orders.PATCH("/:code/status", h.updateOrderStatus)
		orders.DELETE("/:code", h.adminOnly, h.deleteOrder)
	}
}

func (h *Handler) registerJournalRoutes(api *gin.RouterGroup) {
	api.GET("/journal", h.getJournal)
}
