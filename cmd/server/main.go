package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"

	"neural-trace-go/internal/app"
	"neural-trace-go/internal/config"
	"neural-trace-go/internal/handler"
	"neural-trace-go/internal/middleware"
	"neural-trace-go/internal/pipeline"
	"neural-trace-go/internal/repository"
	"neural-trace-go/internal/service"
	"neural-trace-go/pkg/database"
	"neural-trace-go/pkg/kafka"
	"neural-trace-go/pkg/llm"
	"neural-trace-go/pkg/log"
	"neural-trace-go/pkg/token"
	"neural-trace-go/pkg/youcom"
)

func main() {
	// 1. 初始化配置
	config.Init("./configs/config.yaml")
	cfg := config.Conf

	// 2. 初始化日志
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync()
	log.Info("日志记录器初始化成功")

	// 后台任务（Kafka 消费者）随该 context 停止
	rootCtx, stop := context.WithCancel(context.Background())
	defer stop()

	// 3. 初始化外部客户端
	sanityClient := app.NewSanityClient(cfg.Sanity)
	if !sanityClient.Configured() {
		log.Warnf("Sanity 未配置 (SANITY_PROJECT_ID / SANITY_DATASET)，检索与作答保存将不可用")
	}

	youcomClient := youcom.NewClient(cfg.YouCom.APIKey,
		youcom.WithSearchURL(cfg.YouCom.SearchURL),
		youcom.WithSearchTimeout(time.Duration(cfg.YouCom.SearchTimeoutSecs)*time.Second),
	)
	if cfg.YouCom.APIKey == "" {
		log.Warnf("YOU_COM_API_KEY 未设置，概念补充将使用占位摘要")
	}

	llmClient, err := llm.NewClient(rootCtx, cfg.LLM, cfg.YouCom)
	if err != nil {
		log.Fatal("LLM 客户端初始化失败", err)
	}
	if c, ok := llmClient.(io.Closer); ok {
		defer c.Close()
	}

	var rdb *redis.Client
	if cfg.Database.Redis.Addr != "" {
		if rdb, err = database.NewRedis(rootCtx, cfg.Database.Redis); err != nil {
			log.Fatal("Redis 初始化失败", err)
		}
		defer rdb.Close()
	}

	var db *gorm.DB
	if cfg.Database.MySQL.DSN != "" {
		if db, err = database.NewMySQL(cfg.Database.MySQL.DSN); err != nil {
			log.Fatal("MySQL 初始化失败", err)
		}
		defer database.CloseMySQL(db)
		if err := repository.AutoMigrate(db); err != nil {
			log.Fatal("作答表迁移失败", err)
		}
	}

	vectors, err := app.NewVectorIndex(rootCtx, cfg)
	if err != nil {
		log.Fatal("Elasticsearch 初始化失败", err)
	}

	// 4. 初始化仓库与流水线
	answerRepo, err := repository.NewAnswerRepository(cfg.Store.Driver, repository.Backends{
		Sanity: sanityClient,
		DB:     db,
		Redis:  rdb,
	})
	if err != nil {
		log.Fatal("作答存储初始化失败", err)
	}

	var contextRetriever pipeline.ContextRetriever
	retriever, err := app.NewRetriever(cfg, sanityClient, vectors)
	if err != nil {
		log.Fatal("上下文检索初始化失败", err)
	}
	if retriever != nil {
		contextRetriever = retriever
	}

	steps := pipeline.NewSteps(contextRetriever, llmClient, cfg.Retrieval.TopK, cfg.Enrichment.ConceptLimit)
	graph := pipeline.NewQuestionGraph(steps, answerRepo)

	// 5. 初始化服务
	questionService := service.NewQuestionService(graph, steps)
	answerService := service.NewAnswerService(graph, youcomClient, cfg.Enrichment.MaxConcepts, cfg.Enrichment.ConceptLimit)

	var producer service.TaskProducer
	if cfg.Kafka.Brokers != "" {
		p := kafka.NewProducer(cfg.Kafka)
		defer p.Close()
		producer = p

		processor, err := app.NewIngestProcessor(rootCtx, cfg, sanityClient, vectors)
		if err != nil {
			log.Warnf("教材导入处理器不可用，仅投递任务: %v", err)
		} else {
			go kafka.StartConsumer(rootCtx, cfg.Kafka, processor, rdb)
		}
	}
	ingestService := service.NewIngestService(producer)

	// 6. 身份解析：JWT 仅在配置了 secret 时启用，默认用户仅在 debug 模式下生效
	var jwtManager *token.JWTManager
	if cfg.JWT.Secret != "" {
		jwtManager = token.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpireHours)
	}
	defaultUserID := ""
	if cfg.Server.Mode == gin.DebugMode {
		defaultUserID = cfg.Server.DefaultUserID
	}

	// 7. 设置路由
	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.RequestLogger(), gin.Recovery())

	handlers := handler.Handlers{
		Question: handler.NewQuestionHandler(questionService),
		Answer:   handler.NewAnswerHandler(answerService),
		Document: handler.NewDocumentHandler(ingestService),
	}
	identity := middleware.Identity(jwtManager, defaultUserID)
	// 前端既直接访问根路径，也经由 /api 反向代理访问
	handler.RegisterRoutes(r, handlers, identity)
	handler.RegisterRoutes(r.Group("/api"), handlers, identity)

	corsHandler := cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	})

	// 8. 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: corsHandler(r),
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	// 先停止消费者，再关闭 HTTP 服务器
	stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("HTTP 服务器关闭失败: %v", err)
	}

	log.Info("服务已优雅关闭")
}
