package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	s3blob "github.com/alanyoungcy/marketchat/internal/blob/s3"
	"github.com/alanyoungcy/marketchat/internal/cache/redis"
	"github.com/alanyoungcy/marketchat/internal/chat"
	"github.com/alanyoungcy/marketchat/internal/config"
	"github.com/alanyoungcy/marketchat/internal/domain"
	"github.com/alanyoungcy/marketchat/internal/llm"
	"github.com/alanyoungcy/marketchat/internal/market"
	"github.com/alanyoungcy/marketchat/internal/notify"
	"github.com/alanyoungcy/marketchat/internal/relevance"
	"github.com/alanyoungcy/marketchat/internal/server"
	"github.com/alanyoungcy/marketchat/internal/server/handler"
	"github.com/alanyoungcy/marketchat/internal/server/middleware"
	"github.com/alanyoungcy/marketchat/internal/server/ws"
)

// Dependencies bundles everything the serve loop needs. It is constructed by
// Wire and torn down by the returned cleanup function.
type Dependencies struct {
	// Redis-backed ports; nil when Redis is disabled or unreachable.
	RateLimiter domain.RateLimiter
	SignalBus   domain.SignalBus

	Store      *market.Store
	Scorer     *relevance.Scorer
	Model      domain.Completer
	Notifier   *notify.Notifier
	Controller *chat.Controller
	Status     *handler.StatusHandler
	Hub        *ws.Hub
	Server     *server.Server
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
//
// A market snapshot that fails to load does not fail Wire: the service starts
// degraded and reports the error through /api/status.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)
	closers = append(closers, deps.Notifier.Wait)

	// --- Redis (optional) ---
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		rc, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			logger.WarnContext(ctx, "redis unavailable; continuing without cache, rate limiting and bus",
				slog.String("addr", cfg.Redis.Addr),
				slog.String("error", err.Error()),
			)
		} else {
			redisClient = rc
			closers = append(closers, func() { _ = rc.Close() })
			deps.RateLimiter = redis.NewRateLimiter(rc)
			deps.SignalBus = redis.NewSignalBus(rc)
		}
	}

	// --- Market snapshot ---
	deps.Store = loadStore(ctx, cfg, redisClient, deps.Notifier, logger)

	// --- Relevance ---
	table, err := relevance.LoadTable(cfg.Relevance.KeywordsPath)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: %w", err)
	}
	deps.Scorer = relevance.NewScorer(table, relevance.DefaultWeights())

	// --- Model ---
	deps.Model, err = llm.New(llm.Config{
		Provider:    cfg.LLM.Provider,
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout.Duration,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: %w", err)
	}

	// --- Turn feed and conversation ---
	// With Redis the controller publishes to the bus and the hub relays the
	// channel, so every replica's clients see the turn. Without it the hub
	// is the publisher.
	var (
		status     *handler.StatusHandler
		controller *chat.Controller
	)
	deps.Hub = ws.NewHub(deps.SignalBus, ws.Config{
		Channels:       map[string]string{chat.TurnsChannel: "turn"},
		AllowedOrigins: cfg.Server.CORSOrigins,
		Snapshot: func() []ws.Envelope {
			return connectSnapshot(status, controller)
		},
	}, logger)

	var publisher domain.Publisher = deps.Hub
	if deps.SignalBus != nil {
		publisher = deps.SignalBus
	}

	controller = chat.NewController(deps.Store, deps.Model, chat.Config{
		Scorer:    deps.Scorer,
		Limit:     cfg.Relevance.Limit,
		Publisher: publisher,
		Alerter:   deps.Notifier,
	}, logger)
	deps.Controller = controller
	status = handler.NewStatusHandler(deps.Store, controller, deps.Model.Name())
	deps.Status = status

	// --- HTTP ---
	proxies, err := middleware.ParseTrustedProxies(cfg.Server.TrustedProxies)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: %w", err)
	}

	deps.Server = server.NewServer(server.Config{
		Port:         cfg.Server.Port,
		CORSOrigins:  cfg.Server.CORSOrigins,
		WriteTimeout: cfg.LLM.Timeout.Duration + 30*time.Second,
		Limiter:      deps.RateLimiter,
		RateLimit:    cfg.Server.RateLimit,
		RateWindow:   cfg.Server.RateWindow.Duration,

		TrustedProxies: proxies,
	}, server.Handlers{
		Health: handler.NewHealthHandler(),
		Status: status,
		Market: handler.NewMarketHandler(deps.Store, deps.Scorer, cfg.Relevance.Limit, logger),
		Chat:   handler.NewChatHandler(controller, logger),
		Key:    handler.NewKeyHandler(cfg.LLM.APIKey),
	}, deps.Hub, logger)

	return deps, cleanup, nil
}

// loadStore fetches the snapshot once. Any failure yields a failed store and
// a data_load_failed alert.
func loadStore(ctx context.Context, cfg *config.Config, rc *redis.Client, notifier *notify.Notifier, logger *slog.Logger) *market.Store {
	url := cfg.Data.SnapshotURL

	fail := func(err error) *market.Store {
		logger.ErrorContext(ctx, "market data failed to load",
			slog.String("source", url),
			slog.String("error", err.Error()),
		)
		notifier.Alert(notify.EventDataLoadFailed, "Market data failed to load",
			fmt.Sprintf("%s: %v", url, err))
		return market.Failed(url, err)
	}

	src, err := newSource(ctx, cfg)
	if err != nil {
		return fail(err)
	}
	if rc != nil && cfg.Data.CacheTTL.Duration > 0 {
		src = market.NewCachedSource(src, redis.NewSnapshotCache(rc), cfg.Data.CacheTTL.Duration, logger)
	}

	timeout := cfg.Data.FetchTimeout.Duration
	if timeout <= 0 {
		timeout = market.DefaultFetchTimeout
	}
	loadCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	store, err := market.Load(loadCtx, src)
	if err != nil {
		return fail(err)
	}

	logger.InfoContext(ctx, "market data loaded",
		slog.String("source", store.Source()),
		slog.Int("markets", store.Len()),
	)
	return store
}

// newSource picks the snapshot source for the configured URL scheme.
func newSource(ctx context.Context, cfg *config.Config) (market.Source, error) {
	url := cfg.Data.SnapshotURL

	switch market.Kind(url) {
	case "http":
		return market.NewHTTPSource(url, cfg.Data.FetchTimeout.Duration), nil
	case "s3":
		bucket, key, err := s3blob.ParseURL(url)
		if err != nil {
			return nil, err
		}
		client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			return nil, err
		}
		return market.NewBlobSource(s3blob.NewReader(client), key, url), nil
	default:
		return market.NewFileSource(url), nil
	}
}

// connectSnapshot builds the envelopes a WebSocket client receives on
// connect: the current status and the history so far.
func connectSnapshot(status *handler.StatusHandler, controller *chat.Controller) []ws.Envelope {
	if status == nil || controller == nil {
		return nil
	}
	var out []ws.Envelope
	if env, err := envelope("status", status.Snapshot()); err == nil {
		out = append(out, env)
	}
	turns := controller.History()
	if turns == nil {
		turns = []domain.Turn{}
	}
	if env, err := envelope("history", turns); err == nil {
		out = append(out, env)
	}
	return out
}
