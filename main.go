package main

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"messaging-service/internal/auth"
	"messaging-service/internal/config"
	"messaging-service/internal/db"
	"messaging-service/internal/directory"
	"messaging-service/internal/handlers"
	"messaging-service/internal/middleware"
	"messaging-service/internal/notify"
	"messaging-service/internal/observability"
	"messaging-service/internal/rabbitmq"
	"messaging-service/internal/repositories"
	"messaging-service/internal/rooms"
	"messaging-service/internal/storage"
	"messaging-service/internal/views"
	"messaging-service/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	database, err := db.Connect(cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer publisher.Close()
	log.Printf("event publisher mode=%s", rabbitmq.PublisherMode(publisher))

	if cfg.AMQPURL != "" {
		if eventPublisher, err := observability.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange); err != nil {
			log.Printf("ws event publisher disabled: %v", err)
		} else {
			observability.SetPublisher(eventPublisher)
			defer eventPublisher.Close()
		}
	}

	verifier := auth.NewVerifier(cfg.JWTSecret)
	dir := directory.NewHTTPClient(cfg.DirectoryBaseURL)
	signer := storage.NewHMACSigner(cfg.CDNBaseURL, cfg.CDNSecret)

	roomRepo := repositories.NewRoomRepo(database)
	participantRepo := repositories.NewParticipantRepo(database)
	messageRepo := repositories.NewMessageRepo(database)
	receiptRepo := repositories.NewReceiptRepo(database)

	registry := rooms.NewRegistry(roomRepo, participantRepo, dir)
	projector := views.NewProjector(participantRepo, messageRepo, receiptRepo, dir, signer, cfg.SignedURLTTL)

	hub := ws.NewHub()
	chatLists := views.NewChatListNotifier(roomRepo, projector, hub)
	push := notify.NewPushSender(publisher)
	activity := notify.NewActivityEmitter(publisher, "activity.chat", "messaging-service", cfg.Environment)

	roomHandler := handlers.NewRoomHandler(registry, roomRepo, participantRepo, messageRepo, receiptRepo, projector, chatLists, hub, push, activity)
	roomWS := ws.NewRoomWebSocketHandler(hub, verifier, registry, roomRepo, participantRepo, messageRepo, receiptRepo, chatLists, push, activity, cfg.TypingTTL)
	chatListWS := ws.NewChatListWebSocketHandler(hub, verifier, chatLists)

	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(observability.HTTPMetricsMiddleware())

	authMiddleware := middleware.AuthMiddleware(verifier)

	router.GET("/rooms", authMiddleware, roomHandler.ListRooms)
	router.POST("/rooms", authMiddleware, roomHandler.CreateRoom)
	router.GET("/rooms/:room_id/messages", authMiddleware, roomHandler.GetRoomMessages)
	router.POST("/rooms/:room_id/messages", authMiddleware, roomHandler.PostRoomMessage)
	router.POST("/rooms/:room_id/read", authMiddleware, roomHandler.MarkRead)

	router.GET("/ws/rooms/:room_id", roomWS.Handle)
	router.GET("/ws/chat-list", chatListWS.Handle)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/healthz", func(c *gin.Context) {
		if err := database.PingContext(c.Request.Context()); err != nil {
			c.JSON(503, gin.H{"status": "degraded"})
			return
		}
		c.JSON(200, gin.H{"status": "ok"})
	})

	handlers.RegisterDebugRoutes(router, activity, cfg.DebugRoutes)

	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
