package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/cookingstore/internal/apiclient"
	"github.com/hitoshi/cookingstore/internal/auth"
	"github.com/hitoshi/cookingstore/internal/config"
	"github.com/hitoshi/cookingstore/internal/database"
	"github.com/hitoshi/cookingstore/internal/favorites"
	"github.com/hitoshi/cookingstore/internal/handler"
	"github.com/hitoshi/cookingstore/internal/logger"
	"github.com/hitoshi/cookingstore/internal/metrics"
	"github.com/hitoshi/cookingstore/internal/middleware"
	"github.com/hitoshi/cookingstore/internal/repository"
	"github.com/hitoshi/cookingstore/internal/security"
	"github.com/hitoshi/cookingstore/internal/session"
	"github.com/hitoshi/cookingstore/internal/view"
	"github.com/hitoshi/cookingstore/internal/worker/cleanup"
)

const (
	// pruneInterval はメモリ上のセッション状態とお気に入り集合を掃除する間隔。
	pruneInterval = 10 * time.Minute
	// memoryIdleTTL はこの期間参照されなかったメモリ上の状態を破棄する。
	// トークンはDBに残るため、次のリクエストで復元される。
	memoryIdleTTL = time.Hour
	// cleanupInterval はDBクリーンアップジョブの実行間隔。
	cleanupInterval = 24 * time.Hour
)

// Init はアプリケーションの初期化を行う。
// JSON構造化ログをセットアップし、環境変数からConfigを読み込む。
func Init(w io.Writer) (*config.Config, error) {
	logger.SetupDefault(w)

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)
	unknown := false
	if len(args) > 0 {
		_, known := LookupCommand(args[0])
		unknown = !known
	}

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	if unknown {
		slog.Warn("unknown command, falling back to serve", slog.String("arg", args[0]))
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	switch cmd {
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// newCodeMarker はREDIS_URLが設定されていればRedis、なければPostgreSQLの使用済みマーカーを返す。
func newCodeMarker(cfg *config.Config, pg *repository.PostgresCodeMarkerRepo) (session.CodeMarker, func(), error) {
	if cfg.RedisURL == "" {
		return pg, func() {}, nil
	}
	client, err := repository.NewRedisClient(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	slog.Info("using redis for authorization code markers")
	return repository.NewRedisCodeMarker(client, cfg.CodeMarkerRetention), func() { client.Close() }, nil
}

// runServe はBFFサーバーモードで起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Connect(context.Background(), cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()
	slog.Info("database connection established")

	// 2. 永続化
	sessionMaxAge := time.Duration(cfg.SessionMaxAge) * time.Second
	tokenRepo := repository.NewPostgresTokenRepo(db, sessionMaxAge)
	marker, closeMarker, err := newCodeMarker(cfg, repository.NewPostgresCodeMarkerRepo(db))
	if err != nil {
		return err
	}
	defer closeMarker()

	// 3. メトリクス
	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewGoCollector(), prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(registry)

	// 4. 外部サービス
	backendHTTP := &http.Client{Timeout: cfg.BackendTimeout}
	api := apiclient.NewClient(backendHTTP, apiclient.Endpoints{
		Recipes:    cfg.RecipesAPIURL,
		Categories: cfg.CategoriesAPIURL,
		API:        cfg.CoreAPIURL,
		Chat:       cfg.ChatAPIURL,
	}, collector, slog.Default())

	provider := auth.NewCognitoProvider(auth.CognitoConfig{
		Domain:       cfg.CognitoDomain,
		ClientID:     cfg.CognitoClientID,
		ClientSecret: cfg.CognitoClientSecret,
		RedirectURL:  cfg.CognitoRedirectURL,
		Scope:        cfg.CognitoScope,
		HTTPClient:   backendHTTP,
	})

	// 5. セッションとお気に入り
	manager := session.NewManager(tokenRepo, marker, provider, api, collector, slog.Default(), session.Config{
		RegisterTimeout: cfg.BackendTimeout,
	})
	defer manager.Close()

	favs := favorites.NewRegistry(api, collector, slog.Default())
	unsubscribe := manager.Subscribe(favs.Observe)
	defer unsubscribe()

	// 6. ビューサービス
	probe := security.NewImageProbe(cfg.ImageProbeTimeout, cfg.ImageProbeMaxSize)
	views := view.NewService(api, favs, probe, slog.Default())

	// 7. ルーター
	rateLimiter := middleware.NewRateLimiter(
		middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitChat),
		collector,
	)
	defer rateLimiter.Stop()

	sessionCookie := middleware.SessionCookieConfig{
		Name:   middleware.DefaultSessionCookieName,
		Secure: cfg.CookieSecure,
		Domain: cfg.CookieDomain,
		MaxAge: cfg.SessionMaxAge,
	}

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:        slog.Default(),
		Sessions:      manager,
		SessionCookie: sessionCookie,
		SessionAwaitTimeout: cfg.SessionAwaitTimeout,
		CORSAllowedOrigin:   cfg.CORSAllowedOrigin,
		CSRFConfig: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},
		RateLimiter: rateLimiter,
		HSTS:        cfg.CookieSecure,
		AuthConfig: handler.AuthHandlerConfig{
			BaseURL:       cfg.BaseURL,
			CookieSecure:  cfg.CookieSecure,
			AdminGroup:    cfg.AdminGroup,
			SessionCookie: sessionCookie,
		},
		Views:          views,
		Recipes:        views,
		HealthChecker:  db,
		MetricsHandler: metrics.Handler(registry),
		StaticDir:      cfg.StaticDir,
	})

	// 8. メモリ上の状態の掃除
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go pruneLoop(ctx, manager, favs)

	// 9. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.SessionAwaitTimeout + 2*cfg.BackendTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-stop:
	case err := <-errCh:
		return fmt.Errorf("server listen error: %w", err)
	}
	slog.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

// pruneLoop はメモリ上のセッション状態とお気に入り集合を定期的に破棄する。
func pruneLoop(ctx context.Context, manager *session.Manager, favs *favorites.Registry) {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sessions := manager.Prune(memoryIdleTTL)
			stores := favs.Prune(memoryIdleTTL)
			if sessions > 0 || stores > 0 {
				slog.Debug("pruned idle in-memory state",
					slog.Int("sessions", sessions),
					slog.Int("favorite_stores", stores),
				)
			}
		}
	}
}

// runWorker はワーカーモードで起動する。
// 期限切れセッションと使用済み認可コードを日次で削除する。
func runWorker(cfg *config.Config) error {
	db, err := database.Connect(context.Background(), cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()
	slog.Info("database connection established (worker)")

	job := cleanup.NewCleanupJob(db, slog.Default(), cfg.CodeMarkerRetention)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("worker starting",
		slog.Duration("interval", cleanupInterval),
		slog.Duration("code_retention", cfg.CodeMarkerRetention),
	)
	job.Start(ctx, cleanupInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はすべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	version, err := database.RunMigrations(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed", slog.Uint64("version", uint64(version)))
	return nil
}

// runHealthcheck はdistroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
