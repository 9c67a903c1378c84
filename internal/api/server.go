package api

import (
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	swaggerfiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	"github.com/rifalibre/rifa-api/docs"
	v1 "github.com/rifalibre/rifa-api/internal/api/handler/v1"
	"github.com/rifalibre/rifa-api/internal/api/middleware"
	"github.com/rifalibre/rifa-api/internal/config"
	"github.com/rifalibre/rifa-api/internal/payment/mercadopago"
	"github.com/rifalibre/rifa-api/internal/realtime"
	"github.com/rifalibre/rifa-api/internal/repository"
	"github.com/rifalibre/rifa-api/internal/repository/dao"
	"github.com/rifalibre/rifa-api/internal/service"
)

type Server struct {
	Config *config.AppConfig
	Router *gin.Engine
}

func NewServer(conf *config.AppConfig, db *gorm.DB) *Server {
	gin.SetMode(conf.Gin.Mode)
	engine := gin.New()

	s := &Server{
		Config: conf,
		Router: engine,
	}

	s.MountMiddlewares()

	// One gateway client and one broker are shared by every handler.
	gateway := mercadopago.NewClient(conf.MercadoPago)
	broker := realtime.NewBroker()

	authHandler := s.initAuthHandler(db)
	userHandler := s.initUserHandler(db, gateway)
	raffleHandler := s.initRaffleHandler(db, broker)
	orderHandler := s.initOrderHandler(db, gateway, broker)
	webhookHandler := s.initWebhookHandler(db, gateway, broker)
	s.MountHandlers(authHandler, userHandler, raffleHandler, orderHandler, webhookHandler)

	return s
}

func (s *Server) initAuthHandler(db *gorm.DB) *v1.AuthHandler {
	userDAO := dao.NewUserDAO(db)
	repo := repository.NewUserRepository(userDAO)
	svc := service.NewAuthService(repo)
	handler := v1.NewAuthHandler(s.Config.API, svc)

	return handler
}

func (s *Server) initUserHandler(db *gorm.DB, gateway *mercadopago.Client) *v1.UserHandler {
	userDAO := dao.NewUserDAO(db)
	repo := repository.NewUserRepository(userDAO)
	svc := service.NewUserService(repo, gateway)
	handler := v1.NewUserHandler(svc)

	return handler
}

func (s *Server) initRaffleHandler(db *gorm.DB, broker *realtime.Broker) *v1.RaffleHandler {
	raffleDAO := dao.NewRaffleDAO(db)
	repo := repository.NewRaffleRepository(raffleDAO)
	userRepo := repository.NewUserRepository(dao.NewUserDAO(db))
	svc := service.NewRaffleService(repo, userRepo)
	handler := v1.NewRaffleHandler(svc, broker)

	return handler
}

func (s *Server) initOrderHandler(db *gorm.DB, gateway *mercadopago.Client, broker *realtime.Broker) *v1.OrderHandler {
	orderDAO := dao.NewOrderDAO(db)
	repo := repository.NewOrderRepository(orderDAO)
	raffleRepo := repository.NewRaffleRepository(dao.NewRaffleDAO(db))
	svc := service.NewOrderService(repo, raffleRepo, gateway, s.Config.MercadoPago)
	settlement := service.NewSettlementService(repo, raffleRepo, gateway, broker)
	handler := v1.NewOrderHandler(svc, settlement)

	return handler
}

func (s *Server) initWebhookHandler(db *gorm.DB, gateway *mercadopago.Client, broker *realtime.Broker) *v1.WebhookHandler {
	orderDAO := dao.NewOrderDAO(db)
	repo := repository.NewOrderRepository(orderDAO)
	raffleRepo := repository.NewRaffleRepository(dao.NewRaffleDAO(db))
	settlement := service.NewSettlementService(repo, raffleRepo, gateway, broker)
	handler := v1.NewWebhookHandler(s.Config.MercadoPago, settlement)

	return handler
}

func (s *Server) MountMiddlewares() {
	// Logger and Recovery are needed unless we use gin.Default().
	s.Router.Use(gin.Logger())
	s.Router.Use(gin.Recovery())
	s.Router.Use(requestid.New())
	s.Router.Use(middleware.ConfigCORS(s.Config.API.AllowedCORSDomains))
}

func (s *Server) MountHandlers(
	authHandler *v1.AuthHandler,
	userHandler *v1.UserHandler,
	raffleHandler *v1.RaffleHandler,
	orderHandler *v1.OrderHandler,
	webhookHandler *v1.WebhookHandler,
) {
	const basePath = "/api/v1"

	auth := s.Router.Group(basePath)
	{
		auth.POST("/auth/signup", authHandler.HandleSignup)
		auth.POST("/auth/login", authHandler.HandleLogin)
	}

	// Browsing raffles and watching the ticket feed need no account.
	public := s.Router.Group(basePath)
	{
		public.GET("/raffles/", raffleHandler.HandleGetRaffles)
		public.GET("/raffles/:raffleID", raffleHandler.HandleGetRaffle)
		public.GET("/raffles/:raffleID/tickets", raffleHandler.HandleGetTickets)
		public.GET("/raffles/:raffleID/tickets/feed", raffleHandler.HandleTicketFeed)
		public.GET("/payments/return", orderHandler.HandlePaymentReturn)
	}

	authenticated := s.Router.Group(basePath, middleware.NewAuthenticator(s.Config.API.JWTSigningKey).VerifyJWT())
	{
		authenticated.GET("/users/:userID", userHandler.HandleGetUser)
		authenticated.GET("/users/mercadopago/callback", userHandler.HandleMercadoPagoCallback)
		authenticated.POST("/raffles/", raffleHandler.HandleCreateRaffle)
		authenticated.POST("/orders/", orderHandler.HandleCreateOrder)
		authenticated.GET("/orders/", orderHandler.HandleGetOrders)
		authenticated.POST("/orders/:orderID/checkout", orderHandler.HandleCheckout)
		authenticated.GET("/orders/:orderID", orderHandler.HandleGetOrder)
	}

	// The gateway signs its notifications; the endpoint does its own
	// verification instead of JWT auth.
	s.Router.POST("/webhooks/mercadopago", webhookHandler.HandleMercadoPagoWebhook)

	s.Router.GET("/", v1.HandleHealthcheck)

	// Setup Swagger UI.
	docs.SwaggerInfo.Host = s.Config.API.BaseURL
	docs.SwaggerInfo.BasePath = basePath
	docs.SwaggerInfo.Title = "Raffle ticket sales API"
	docs.SwaggerInfo.Description = "Ticket inventory, orders and MercadoPago payment settlement."
	docs.SwaggerInfo.Version = "1.0"
	s.Router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerfiles.Handler))
}
