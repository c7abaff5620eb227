// Package main 是应用程序的入口点。
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nexus-chat-go/internal/config"
	"nexus-chat-go/internal/handler"
	"nexus-chat-go/internal/middleware"
	"nexus-chat-go/internal/model"
	"nexus-chat-go/internal/pipeline"
	"nexus-chat-go/internal/repository"
	"nexus-chat-go/internal/service"
	"nexus-chat-go/pkg/database"
	"nexus-chat-go/pkg/embedding"
	"nexus-chat-go/pkg/graph"
	"nexus-chat-go/pkg/kafka"
	"nexus-chat-go/pkg/llm"
	"nexus-chat-go/pkg/log"
	"nexus-chat-go/pkg/storage"
	"nexus-chat-go/pkg/tika"
	"nexus-chat-go/pkg/token"
	"nexus-chat-go/pkg/vector"

	"github.com/gin-gonic/gin"
)

func main() {
	// 1. 初始化配置
	config.Init("./configs/config.yaml")
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	log.Info("日志记录器初始化成功")

	// 3. 初始化存储层：MySQL、Redis、MinIO、Neo4j、向量索引、Kafka
	database.InitMySQL(cfg.Database.MySQL.DSN)
	if err := database.DB.AutoMigrate(&model.DocumentIngest{}); err != nil {
		log.Fatalf("document_ingests 表迁移失败: %v", err)
	}
	database.InitRedis(cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)
	storage.InitMinIO(cfg.MinIO)

	graphCtx, cancelGraph := context.WithTimeout(context.Background(), 10*time.Second)
	graphStore, err := graph.NewStore(graphCtx, cfg.Neo4j)
	cancelGraph()
	if err != nil {
		log.Fatalf("Neo4j 初始化失败: %v", err)
	}
	defer graphStore.Close(context.Background())

	index, err := vector.New(cfg.Vector.Dimension, cfg.Vector.IndexPath)
	if err != nil {
		log.Fatalf("向量索引初始化失败: %v", err)
	}
	log.Infof("向量索引加载完成, 维度: %d, 现有向量: %d", index.Dimension(), index.Len())

	kafka.InitProducer(cfg.Kafka)

	// 4. 初始化 Repository
	userRepo := repository.NewUserRepository(graphStore)
	groupRepo := repository.NewGroupRepository(graphStore)
	messageRepo := repository.NewMessageRepository(graphStore)
	documentRepo := repository.NewDocumentRepository(graphStore)
	conversationRepo := repository.NewConversationRepository(database.RDB)
	ingestRepo := repository.NewIngestRepository(database.DB)

	// 5. 初始化 Service (依赖注入)
	jwtManager := token.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpireHours, cfg.JWT.RefreshTokenExpireDays)
	tikaClient := tika.NewClient(cfg.Tika)
	embeddingClient := embedding.NewClient(cfg.Embedding)
	llmClient := llm.NewClient(cfg.LLM)

	userService := service.NewUserService(userRepo, jwtManager)
	accessService := service.NewAccessService(groupRepo, documentRepo)
	groupService := service.NewGroupService(groupRepo)
	messageService := service.NewMessageService(messageRepo, groupRepo, accessService, embeddingClient, index)
	documentService := service.NewDocumentService(documentRepo, ingestRepo, accessService, index, cfg.MinIO)
	ragService := service.NewRagService(embeddingClient, index, accessService, llmClient)
	conversationService := service.NewConversationService(conversationRepo)
	chatService := service.NewChatService(ragService, llmClient, conversationRepo)

	// 6. 初始化文档摄取管道 (Processor)
	processor := pipeline.NewProcessor(
		tikaClient,
		embeddingClient,
		index,
		documentRepo,
		ingestRepo,
		cfg.MinIO,
		cfg.Chunking,
	)

	// 7. 启动后台 Kafka 消费者
	go kafka.StartConsumer(cfg.Kafka, processor)

	// 8. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := gin.New() // 使用 New() 创建一个不带默认中间件的引擎
	// 添加我们自定义的日志中间件和 Gin 的 Recovery 中间件
	r.Use(middleware.RequestLogger(), gin.Recovery())

	// 9. 注册路由
	apiV1 := r.Group("/api/v1")
	{
		// Auth 路由组
		auth := apiV1.Group("/auth")
		{
			auth.POST("/refreshToken", handler.NewAuthHandler(userService).RefreshToken)
		}

		users := apiV1.Group("/users")
		{
			// 无需认证的路由 (公开访问)
			users.POST("/register", handler.NewUserHandler(userService).Register)
			users.POST("/login", handler.NewUserHandler(userService).Login)

			// 需要认证的路由 (仅限登录用户访问)
			authed := users.Group("/")
			authed.Use(middleware.AuthMiddleware(jwtManager))
			{
				authed.GET("/me", handler.NewUserHandler(userService).GetProfile)
				authed.POST("/logout", handler.NewUserHandler(userService).Logout)
			}
		}

		// Group / Community 路由组，需要认证
		groupHandler := handler.NewGroupHandler(groupService)
		groups := apiV1.Group("/groups")
		groups.Use(middleware.AuthMiddleware(jwtManager))
		{
			groups.POST("", groupHandler.CreateGroup)
			groups.POST("/:id/members", groupHandler.AddMember)
			groups.GET("/:id/members", groupHandler.ListMembers)
			groups.GET("/:id/relationships", groupHandler.Relationships)
		}
		communities := apiV1.Group("/communities")
		communities.Use(middleware.AuthMiddleware(jwtManager))
		{
			communities.POST("", groupHandler.CreateCommunity)
			communities.POST("/:id/members", groupHandler.AddMember)
			communities.GET("/:id/members", groupHandler.ListMembers)
		}

		// Message 路由组，需要认证
		messageHandler := handler.NewMessageHandler(messageService)
		messages := apiV1.Group("/messages")
		messages.Use(middleware.AuthMiddleware(jwtManager))
		{
			messages.POST("", messageHandler.Send)
			messages.GET("/direct/:id", messageHandler.ListDirect)
			messages.GET("/container/:id", messageHandler.ListContainer)
		}

		// Document 路由组，需要认证
		documentHandler := handler.NewDocumentHandler(documentService)
		documents := apiV1.Group("/documents")
		documents.Use(middleware.AuthMiddleware(jwtManager))
		{
			documents.POST("", documentHandler.Upload)
			documents.GET("", documentHandler.List)
			documents.POST("/:id/share", documentHandler.Share)
			documents.GET("/:id/status", documentHandler.IngestStatus)
			documents.GET("/:id/download", documentHandler.Download)
			documents.DELETE("/:id", documentHandler.Delete)
		}

		// Query 路由 (RAG 问答)，需要认证
		query := apiV1.Group("/query")
		query.Use(middleware.AuthMiddleware(jwtManager))
		{
			query.POST("", handler.NewQueryHandler(ragService).Query)
		}

		// Context 路由 (检索范围查询)，需要认证
		contexts := apiV1.Group("/contexts")
		contexts.Use(middleware.AuthMiddleware(jwtManager))
		{
			contexts.GET("", handler.NewContextHandler(accessService).List)
		}

		// Conversation 路由组
		conversation := apiV1.Group("/users/conversation")
		conversation.Use(middleware.AuthMiddleware(jwtManager))
		{
			conversation.GET("", handler.NewConversationHandler(conversationService).History)
			conversation.DELETE("", handler.NewConversationHandler(conversationService).Reset)
		}

		// Chat 路由 (WebSocket)
		chatHandler := handler.NewChatHandler(chatService, jwtManager)
		chatGroup := apiV1.Group("/chat")
		{
			chatGroup.GET("/websocket-token", chatHandler.GetWebsocketStopToken)
		}
		r.GET("/chat/:token", chatHandler.Handle)
	}

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	// 等待中断信号以实现优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	// 设置一个5秒的超时上下文
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// 关闭 HTTP 服务器
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("HTTP 服务器关闭失败: %v", err)
	}

	// Kafka 消费循环会随进程退出自然结束，无需单独关闭。
	log.Info("服务已优雅关闭")
}
