package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/energia/energia-dashboard/internal/api"
	"github.com/energia/energia-dashboard/internal/broker"
	"github.com/energia/energia-dashboard/internal/cloud"
	"github.com/energia/energia-dashboard/internal/config"
	"github.com/energia/energia-dashboard/internal/database"
	"github.com/energia/energia-dashboard/internal/distribution"
	httpHandlers "github.com/energia/energia-dashboard/internal/http"
	"github.com/energia/energia-dashboard/internal/repository"
	"github.com/energia/energia-dashboard/internal/service"
	"github.com/energia/energia-dashboard/internal/session"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	if err := config.Load(); err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	zerolog.SetGlobalLevel(config.LogLevel())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	policy, err := distribution.ParsePolicy(config.AllocationPolicy())
	if err != nil {
		log.Fatal().Err(err).Msg("invalid allocation policy")
	}
	client := api.New(config.APIURL(), config.APITimeout())
	deps := service.Deps{
		API:            client,
		Policy:         policy,
		MaxUploadBytes: int64(config.MaxUploadBytes()),
	}

	if config.ReportArchiveEnabled() {
		db, err := database.Connect(config.DatabaseDSN())
		if err != nil {
			log.Fatal().Err(err).Msg("db connect failed")
		}
		defer db.Close()
		repos := repository.New(db)
		if err := repos.EnsureSchema(ctx); err != nil {
			log.Fatal().Err(err).Msg("report schema failed")
		}
		deps.Runs = repos
	}

	if config.UseCloudServices() {
		awsCfg, err := cloud.LoadConfig(ctx, config.AWSRegion())
		if err != nil {
			log.Fatal().Err(err).Msg("aws config failed")
		}
		deps.Archive = cloud.NewS3Client(awsCfg, config.S3Bucket())
		if arn := config.SNSTopicArn(); arn != "" {
			deps.Alerts = cloud.NewSNSClient(awsCfg, arn)
		}
		log.Info().Str("bucket", config.S3Bucket()).Bool("alerts", deps.Alerts != nil).Msg("cloud services enabled")
	}

	if config.MQTTEnabled() {
		pub, err := broker.Connect(config.MQTTBroker(), config.MQTTClientID(), config.MQTTTopic())
		if err != nil {
			log.Fatal().Err(err).Msg("mqtt connect failed")
		}
		defer pub.Close()
		deps.Events = pub
	}

	store, err := sessionStore(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("session store failed")
	}
	sessions := session.NewManager(store, client, config.SessionSecret(), config.SessionTTL())

	svcs := service.New(deps)
	app := httpHandlers.NewApp(deps.MaxUploadBytes)
	httpHandlers.Register(app, svcs, sessions, httpHandlers.Options{
		CookieName:   config.SessionCookie(),
		CookieSecure: config.SessionCookieSecure(),
	})

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown")
		}
	}()

	addr := config.DashboardAddr()
	log.Info().
		Str("addr", addr).
		Str("api", config.APIURL()).
		Str("policy", string(policy)).
		Msg("dashboard listening")
	if err := app.Listen(addr); err != nil {
		log.Fatal().Err(err).Msg("server exit")
	}
	log.Info().Msg("dashboard stopped")
}

func sessionStore(ctx context.Context) (session.Store, error) {
	if config.SessionStore() == "redis" {
		rdb, err := session.DialRedis(ctx, config.RedisAddr())
		if err != nil {
			return nil, err
		}
		log.Info().Str("addr", config.RedisAddr()).Msg("sessions in redis")
		return session.NewRedisStore(rdb), nil
	}
	mem := session.NewMemoryStore()
	go mem.Run(ctx, time.Minute)
	return mem, nil
}
