package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"fliplister/internal/api/middleware"
	"fliplister/internal/config"
	"fliplister/internal/copywriter"
	"fliplister/internal/model"
	"fliplister/internal/pkg/dedup"
	"fliplister/internal/pkg/metrics"
	"fliplister/internal/pkg/notify"
	"fliplister/internal/pkg/redisqueue"
	"fliplister/internal/pkg/workpool"
	"fliplister/internal/pricing"
	"fliplister/internal/storage"
)

// Server 封装了 API 服务所需的依赖和路由处理。
//
// 它持有数据库连接、Redis 客户端、任务队列以及 Gin 路由引擎。
// 结果监听 pipeline 也由它启动。
type Server struct {
	cfg      *config.Config
	logger   *slog.Logger
	db       *gorm.DB
	rdb      *redis.Client
	router   *gin.Engine
	queue    *redisqueue.Client
	pool     *workpool.Pool
	uploads  *storage.Manager
	notifier notify.Notifier
	copygen  copywriter.Generator
	analyzer *pricing.Analyzer

	store      ListingStore
	dispatcher FetchDispatcher
	deduper    Deduper
}

// ListingStore 是 handler 访问 listing 的最小接口，测试用 mock 替换。
type ListingStore interface {
	Create(ctx context.Context, l *model.Listing) error
	Get(ctx context.Context, id string) (*model.Listing, error)
	List(ctx context.Context, status string, limit, offset int) ([]model.Listing, int64, error)
	Update(ctx context.Context, l *model.Listing) error
	Delete(ctx context.Context, id string) error
}

// FetchDispatcher 把拉取任务投递到队列。
type FetchDispatcher interface {
	Dispatch(ctx context.Context, req *redisqueue.FetchRequest) error
}

// Deduper 拦截短时间内的重复拉取。
type Deduper interface {
	IsDuplicate(ctx context.Context, keywords, condition string) (bool, error)
	Delete(ctx context.Context, keywords, condition string) error
}

type dbListingStore struct {
	db *gorm.DB
}

func (s dbListingStore) Create(ctx context.Context, l *model.Listing) error {
	return s.db.WithContext(ctx).Create(l).Error
}

func (s dbListingStore) Get(ctx context.Context, id string) (*model.Listing, error) {
	var l model.Listing
	if err := s.db.WithContext(ctx).First(&l, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &l, nil
}

func (s dbListingStore) List(ctx context.Context, status string, limit, offset int) ([]model.Listing, int64, error) {
	q := s.db.WithContext(ctx).Model(&model.Listing{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []model.Listing
	if err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (s dbListingStore) Update(ctx context.Context, l *model.Listing) error {
	return s.db.WithContext(ctx).Save(l).Error
}

func (s dbListingStore) Delete(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Delete(&model.Listing{}, "id = ?", id).Error
}

type queueDispatcher struct {
	queue *redisqueue.Client
}

func (d queueDispatcher) Dispatch(ctx context.Context, req *redisqueue.FetchRequest) error {
	return d.queue.PushTask(ctx, req)
}

// NewServer 初始化 API 服务器。
//
// 它负责：
// 1. 连接 MySQL 数据库并执行自动迁移
// 2. 连接 Redis
// 3. 初始化存储、去重、pipeline worker 池
// 4. 初始化 Gin 路由引擎
func NewServer(ctx context.Context, cfg *config.Config, logger *slog.Logger, redisQueue *redisqueue.Client) (*Server, error) {
	db, err := gorm.Open(mysql.Open(cfg.MySQL.DSN), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := model.AutoMigrate(db); err != nil {
		return nil, err
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       0,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	uploads, err := storage.NewManager(&cfg.Storage, logger)
	if err != nil {
		return nil, err
	}

	metrics.InitMetrics(cfg.App.WorkerPoolSize)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(logger))

	s := &Server{
		cfg:        cfg,
		logger:     logger,
		db:         db,
		rdb:        rdb,
		router:     r,
		queue:      redisQueue,
		pool:       workpool.New(logger, cfg.App.WorkerPoolSize, cfg.App.PoolCapacity),
		uploads:    uploads,
		notifier:   notify.NewEmailNotifier(&cfg.Email, logger),
		copygen:    copywriter.NewTemplateGenerator(),
		analyzer:   pricing.NewAnalyzer(),
		store:      dbListingStore{db: db},
		dispatcher: queueDispatcher{queue: redisQueue},
		deduper:    dedup.NewDeduplicator(rdb, time.Duration(cfg.App.DedupWindow)*time.Second),
	}
	s.registerRoutes()
	return s, nil
}

// Run 启动 pipeline 和 HTTP 服务器。
func (s *Server) Run() error {
	s.StartPipeline(context.Background())

	s.logger.Info("api server listening", slog.String("addr", s.cfg.App.HTTPAddr))
	return s.router.Run(s.cfg.App.HTTPAddr)
}

// Router 返回 HTTP 路由处理器。
func (s *Server) Router() http.Handler {
	return s.router
}

// Close 关闭数据库与缓存连接。
func (s *Server) Close() error {
	var firstErr error
	if s.rdb != nil {
		if err := s.rdb.Close(); err != nil {
			firstErr = err
		}
	}
	if s.db != nil {
		sqlDB, err := s.db.DB()
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
		} else if closeErr := sqlDB.Close(); closeErr != nil {
			if firstErr == nil {
				firstErr = closeErr
			}
		}
	}
	return firstErr
}

// registerRoutes 注册所有的 API 路由。
func (s *Server) registerRoutes() {
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	s.router.GET("/healthz", s.handleHealthz)

	s.router.Static(s.cfg.Storage.BaseURL, s.uploads.Dir())

	apiGroup := s.router.Group("/api")
	apiGroup.POST("/listings", s.handleCreateListing)
	apiGroup.GET("/listings", s.handleListListings)
	apiGroup.GET("/listings/:id", s.handleGetListing)
	apiGroup.PUT("/listings/:id", s.handleUpdateListing)
	apiGroup.DELETE("/listings/:id", s.handleDeleteListing)
	apiGroup.POST("/listings/:id/images", s.handleUploadImage)
	apiGroup.POST("/listings/:id/analyze", s.handleAnalyzeListing)

	apiGroup.POST("/analyze", s.handleAnalyzeRecords)
	apiGroup.POST("/rank", s.handleRankMarketplaces)
	apiGroup.GET("/marketplaces", s.handleListMarketplaces)
}

func (s *Server) handleHealthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if s.db == nil || s.rdb == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error"})
		return
	}

	var one int
	if err := s.db.WithContext(ctx).Raw("SELECT 1").Scan(&one).Error; err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error"})
		return
	}
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
