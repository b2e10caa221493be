package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata" // 确保在精简镜像中也能识别时区

	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/user/filmdiary/internal/config"
	"github.com/user/filmdiary/internal/handler"
	"github.com/user/filmdiary/internal/logging"
	"github.com/user/filmdiary/internal/middleware"
	"github.com/user/filmdiary/internal/repository"
	"github.com/user/filmdiary/internal/router"
	"github.com/user/filmdiary/internal/service"
)

func main() {
	// 加载环境变量
	envErr := godotenv.Load()

	// 加载配置
	cfg := config.Load()
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	log := logging.Component("server")
	if envErr != nil {
		log.Info().Msg("未找到 .env 文件，使用系统环境变量")
	}

	// 初始化存储
	storage, err := repository.OpenStorage(cfg.StorageBackend, cfg.DataDir, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.StorageBackend).Msg("打开存储失败")
	}
	repos := repository.NewRepositories(storage, cfg.StorageKey)
	defer func() {
		if err := repos.Close(); err != nil {
			log.Error().Err(err).Msg("关闭存储失败")
		}
	}()

	// 加载用户文档；失败时以只读模式继续运行
	notifier := service.NewNotifier(16)
	defer notifier.Close()
	store := service.NewDiaryStore(repos.Document, notifier)
	loadCtx, cancelLoad := context.WithTimeout(context.Background(), 10*time.Second)
	if err := store.Load(loadCtx); err != nil {
		log.Error().Err(err).Msg("用户文档不可读，写操作已禁用")
	}
	cancelLoad()

	// 初始化 Gin
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())

	// 启用 gzip，SSE 不压缩
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/api/events"})))

	// 设置 Session 中间件（仅用于一次性提示）
	sessionStore := cookie.NewStore([]byte(cfg.AppSecret))
	sessionStore.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400,
		HttpOnly: true,
		Secure:   cfg.Env == "production",
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions("filmdiary", sessionStore))

	// 加载模板（使用 multitemplate 解决继承问题）
	r.HTMLRender = router.LoadTemplates("./web/templates")

	// 静态文件
	r.Static("/static", "./web/static")

	// 中间件
	r.Use(middleware.Logger())
	r.Use(middleware.Security())
	r.Use(middleware.CORS())

	// 初始化 Handler
	h := handler.NewHandler(store, cfg)

	// 注册路由
	router.RegisterRoutes(r, h)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       10 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	// 在 goroutine 中启动服务器，这样我们就可以监听信号
	go func() {
		log.Info().Str("addr", "http://localhost:"+cfg.Port).Str("storage", cfg.StorageBackend).Msg("服务器启动")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("服务器启动失败")
		}
	}()

	// 等待中断信号以优雅地关闭服务器
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("正在关闭服务器...")

	// 先关闭通知，结束所有 SSE 连接
	notifier.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("服务器强制关闭")
	}

	log.Info().Msg("服务器已退出")
}
