package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"gorm.io/gorm"

	"github.com/psds-microservice/helpdesk-service/internal/chatbot"
	"github.com/psds-microservice/helpdesk-service/internal/clock"
	"github.com/psds-microservice/helpdesk-service/internal/config"
	"github.com/psds-microservice/helpdesk-service/internal/database"
	"github.com/psds-microservice/helpdesk-service/internal/events"
	grpcserver "github.com/psds-microservice/helpdesk-service/internal/grpc"
	"github.com/psds-microservice/helpdesk-service/internal/handler"
	"github.com/psds-microservice/helpdesk-service/internal/identity"
	"github.com/psds-microservice/helpdesk-service/internal/kafka"
	"github.com/psds-microservice/helpdesk-service/internal/limiter"
	"github.com/psds-microservice/helpdesk-service/internal/mqtt"
	"github.com/psds-microservice/helpdesk-service/internal/oauth"
	"github.com/psds-microservice/helpdesk-service/internal/redis"
	"github.com/psds-microservice/helpdesk-service/internal/router"
	"github.com/psds-microservice/helpdesk-service/internal/service"
	"github.com/psds-microservice/helpdesk-service/internal/store"
)

const (
	ServiceName = "helpdesk-service"

	storeTTL     = 30 * time.Second
	eventTimeout = 5 * time.Second
)

// API приложение: HTTP + gRPC серверы (режим api).
type API struct {
	cfg     *config.Config
	log     *slog.Logger
	httpSrv *http.Server
	grpcSrv *grpcserver.Server
	lis     net.Listener
	events  *events.Dispatcher
	redis   *redis.Client
}

// OpenDatabase connects with the configured driver and migrates the schema.
func OpenDatabase(cfg *config.Config) (*gorm.DB, error) {
	db, err := database.Connect(cfg.DB.Driver, cfg.DSN(), cfg.DatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	return db, nil
}

// NewDispatcher connects the configured brokers. Missing brokers are skipped,
// an unreachable MQTT broker is logged and skipped.
func NewDispatcher(cfg *config.Config, log *slog.Logger) *events.Dispatcher {
	var pubs []events.Publisher
	if p := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopicTicket); p.Enabled() {
		pubs = append(pubs, p)
		log.Info("kafka events enabled", "topic", cfg.KafkaTopicTicket)
	}
	m, err := mqtt.Connect(mqtt.Config{BrokerURL: cfg.MQTT.BrokerURL, ClientID: cfg.MQTT.ClientID})
	switch {
	case err != nil:
		log.Warn("mqtt disabled", "broker", cfg.MQTT.BrokerURL, "error", err)
	case m.Enabled():
		pubs = append(pubs, m)
	}
	return events.NewDispatcher(eventTimeout, pubs...)
}

// ConnectRedis returns nil when Redis is not configured or unreachable.
func ConnectRedis(cfg *config.Config, log *slog.Logger) *redis.Client {
	if cfg.Redis.Addr == "" {
		return nil
	}
	rc, err := redis.NewClient(redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	if err != nil {
		log.Warn("redis unavailable, using in-memory revocation and rate limiting", "error", err)
		return nil
	}
	return rc
}

// NewAPI создаёт приложение для режима api.
func NewAPI(ctx context.Context, cfg *config.Config) (*API, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	log := slog.Default().With("component", "application")
	db, err := OpenDatabase(cfg)
	if err != nil {
		return nil, err
	}
	clk := clock.Real()
	rc := ConnectRedis(cfg, log)

	var (
		revoker identity.Revoker = identity.NewMemoryRevoker(clk)
		lim     limiter.Limiter  = limiter.NewMemoryFixedWindow(cfg.Auth.LoginRateLimit, cfg.Auth.LoginRateWindow, clk)
	)
	if rc != nil {
		revoker = identity.NewRedisRevoker(rc, clk)
		lim = limiter.NewRedisFixedWindow(rc, cfg.Auth.LoginRateLimit, cfg.Auth.LoginRateWindow)
	}
	if cfg.Auth.LoginRateLimit <= 0 {
		lim = limiter.Unlimited{}
	}

	users := service.NewUserService(db, clk)
	tickets := service.NewTicketService(db, clk)
	chats := service.NewChatService(db, clk)
	st := store.New(store.Deps{
		Knowledge:   service.NewKnowledgeService(db),
		Departments: service.NewDepartmentService(db),
		Tickets:     tickets,
		Chats:       chats,
		Clock:       clk,
		TTL:         storeTTL,
	})
	if err := st.Reload(ctx); err != nil {
		return nil, fmt.Errorf("load store: %w", err)
	}

	bot, err := chatbot.New(ctx, cfg.Chatbot.WebhookURL, chatbot.ModelConfig{
		APIKey:  cfg.Chatbot.OpenAIAPIKey,
		BaseURL: cfg.Chatbot.OpenAIBaseURL,
		Model:   cfg.Chatbot.OpenAIModel,
		Timeout: cfg.Chatbot.Timeout,
	})
	if err != nil {
		return nil, err
	}
	if _, disabled := bot.(chatbot.Disabled); disabled {
		log.Warn("no chatbot configured, unmatched messages get the fallback reply")
	}
	assistant := service.NewAssistant(service.AssistantDeps{
		Chats:      chats,
		Articles:   st,
		Bot:        bot,
		Timeout:    cfg.Chatbot.Timeout,
		OfferDelay: cfg.Chatbot.TicketOfferDelay,
		Clock:      clk,
	})
	sessions := identity.NewManager(identity.Deps{
		Users:   users,
		Codec:   identity.NewCodec(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, clk),
		Revoker: revoker,
	})
	google := oauth.NewGoogle(oauth.GoogleConfig{
		ClientID:     cfg.Google.ClientID,
		ClientSecret: cfg.Google.ClientSecret,
		RedirectURL:  cfg.Google.RedirectURL,
	})
	disp := NewDispatcher(cfg, log)

	checks := map[string]handler.Check{
		"database": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if rc != nil {
		checks["redis"] = rc.Ping
	}

	grpcAddr := cfg.AppHost + ":" + cfg.GRPCPort
	lis, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		return nil, fmt.Errorf("grpc listen %s: %w (порт занят: остановите другой процесс или задайте GRPC_PORT в .env)", grpcAddr, err)
	}
	grpcChecks := make(map[string]grpcserver.Check, len(checks))
	for name, c := range checks {
		grpcChecks[name] = grpcserver.Check(c)
	}
	grpcSrv := grpcserver.NewServer(grpcserver.Deps{Checks: grpcChecks})

	h := router.New(router.Handlers{
		Health:        handler.NewHealthHandler(ServiceName, checks),
		Auth:          handler.NewAuthHandler(sessions, users, lim, google),
		Tickets:       handler.NewTicketHandler(tickets, disp),
		Knowledge:     handler.NewKnowledgeHandler(st),
		Chat:          handler.NewChatHandler(assistant, chats, clk),
		Admin:         handler.NewAdminHandler(users, st),
		Authenticator: sessions,
		CORSOrigins:   cfg.CORSOrigins,
	})
	httpSrv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &API{
		cfg:     cfg,
		log:     log,
		httpSrv: httpSrv,
		grpcSrv: grpcSrv,
		lis:     lis,
		events:  disp,
		redis:   rc,
	}, nil
}

// Run запускает HTTP и gRPC серверы, блокируется до отмены ctx.
func (a *API) Run(ctx context.Context) error {
	host := a.cfg.AppHost
	if host == "0.0.0.0" {
		host = "localhost"
	}
	base := "http://" + host + ":" + a.cfg.HTTPPort
	a.log.Info("HTTP server listening", "addr", a.httpSrv.Addr,
		"swagger", base+"/swagger", "health", base+"/health", "api", base+"/api/v1/")
	a.log.Info("gRPC health server listening", "addr", a.lis.Addr().String())

	errCh := make(chan error, 2)
	go func() {
		if err := a.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http: %w", err)
		}
	}()
	go func() {
		if err := a.grpcSrv.Serve(ctx, a.lis); err != nil {
			errCh <- fmt.Errorf("grpc: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
		a.log.Error("server failed", "error", runErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.httpSrv.Shutdown(shutdownCtx); err != nil && runErr == nil {
		runErr = fmt.Errorf("http shutdown: %w", err)
	}
	a.grpcSrv.Stop()
	if err := a.events.Close(); err != nil {
		a.log.Warn("close event publishers", "error", err)
	}
	if a.redis != nil {
		a.redis.Close()
	}
	return runErr
}
