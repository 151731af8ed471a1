package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/reviews/internal/apiclient"
	"github.com/hitoshi/reviews/internal/auth"
	"github.com/hitoshi/reviews/internal/config"
	"github.com/hitoshi/reviews/internal/credential"
	"github.com/hitoshi/reviews/internal/handler"
	"github.com/hitoshi/reviews/internal/metrics"
	"github.com/hitoshi/reviews/internal/resena"
	"github.com/hitoshi/reviews/internal/security"
	"github.com/hitoshi/reviews/internal/session"
	"github.com/hitoshi/reviews/internal/sessionlog"
	"github.com/hitoshi/reviews/internal/storage"
	"github.com/hitoshi/reviews/internal/theme"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// components は設定から組み立てた依存関係一式。
type components struct {
	kv       storage.KV
	health   handler.HealthChecker
	creds    *credential.Store
	registry *prometheus.Registry

	auth     *auth.Service
	session  *session.Controller
	resenas  *resena.Service
	logs     *sessionlog.Service
	theme    *theme.Controller
	document *theme.MemoryDocument

	close func()
}

// build は永続化先を開き、クレデンシャルを読み込んで全サービスをワイヤリングする。
// 戻り値のcloseは呼び出し元が必ず呼ぶこと。
func build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*components, error) {
	c := &components{close: func() {}}

	// 1. 永続化先
	switch cfg.StorageBackend {
	case config.StorageRedis:
		client, err := storage.OpenRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		kv := storage.NewRedisKV(client, cfg.StoragePrefix)
		c.kv, c.health = kv, kv
		c.close = func() { client.Close() }
	case config.StorageMemory:
		c.kv = storage.NewMemoryKV()
	default:
		c.kv = storage.NewFileKV(cfg.StoragePath)
	}

	// 2. クレデンシャル
	c.creds = credential.NewStore(c.kv, logger)
	if err := c.creds.Load(ctx); err != nil {
		c.close()
		return nil, err
	}

	// 3. メトリクス
	c.registry = prometheus.NewRegistry()
	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(c.registry)

	// 4. APIクライアントとサービス
	api := apiclient.New(cfg.APIBase, c.creds, apiclient.Options{
		Logger:  logger,
		Metrics: collector,
	})
	c.auth = auth.NewService(api, c.creds, logger)
	c.session = session.NewController(c.auth, c.creds, session.Options{
		Metrics: collector,
		Logger:  logger,
	})
	c.resenas = resena.NewService(api, resena.Options{
		Sanitizer:     security.NewTextSanitizer(),
		Images:        security.NewImageFetcher(cfg.ImageFetchTimeout, cfg.ImageMaxSize),
		MaxImageBytes: cfg.ImageMaxSize,
		Logger:        logger,
	})
	c.logs = sessionlog.NewService(api)

	// 5. テーマ
	c.document = theme.NewMemoryDocument()
	c.theme = theme.NewController(c.kv, c.document, false, logger)
	if err := c.theme.Initialize(ctx); err != nil {
		c.close()
		return nil, fmt.Errorf("failed to initialize theme: %w", err)
	}

	logger.Info("components initialized",
		slog.String("storage_backend", string(cfg.StorageBackend)),
		slog.Bool("has_credential", c.creds.Present()),
	)
	return c, nil
}
