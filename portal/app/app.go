package app

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Astemirdum/library-portal/pkg/kafka"
	"github.com/Astemirdum/library-portal/pkg/logger"
	"github.com/Astemirdum/library-portal/portal/config"
	"github.com/Astemirdum/library-portal/portal/internal/audit"
	"github.com/Astemirdum/library-portal/portal/internal/handler"
	"github.com/Astemirdum/library-portal/portal/internal/metrics"
	"github.com/Astemirdum/library-portal/portal/internal/server"
	"github.com/Astemirdum/library-portal/portal/internal/service/admin"
	"github.com/Astemirdum/library-portal/portal/internal/service/api"
	"github.com/Astemirdum/library-portal/portal/internal/service/student"
	"github.com/Astemirdum/library-portal/portal/internal/session"
	"github.com/Astemirdum/library-portal/portal/internal/store"
	"github.com/Astemirdum/library-portal/portal/internal/view"
	"github.com/IBM/sarama"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const evictEvery = time.Minute

func Run(cfg config.Config) error {
	log := logger.NewLogger(cfg.Log, "portal")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo, closeRepo, err := newSessionRepository(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("session repository %w", err)
	}
	defer closeRepo()

	var producer sarama.AsyncProducer
	if cfg.Kafka.Enabled() {
		producer, err = kafka.NewAsyncProducer(cfg.Kafka)
		if err != nil {
			return fmt.Errorf("kafka.NewAsyncProducer %w", err)
		}
		go audit.DrainErrors(ctx, log, producer)
	}
	recorder := audit.NewRecorder(log, audit.NewStatsLog(producer, cfg.Kafka.Topic))

	workspaces := store.NewWorkspaces()
	go evict(ctx, log, workspaces, cfg.Session.TTL)

	guard := session.NewGuard(log, repo, workspaces, cfg.Session)
	client := api.NewClient(log, cfg.API, guard)

	renderer, err := view.NewRenderer()
	if err != nil {
		return fmt.Errorf("templates %w", err)
	}
	h := handler.New(log, guard, client,
		admin.NewService(log, client, recorder),
		student.NewService(log, client, recorder, cfg.Fine.Calculator()),
		renderer,
	)

	srv := server.NewServer(cfg.Server, h.NewRouter())
	log.Info("http server start ON: ",
		zap.String("addr",
			net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)),
		zap.String("api", cfg.API.BaseURL))
	go func() {
		if err := srv.Run(); err != nil {
			log.Error("server run", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	termSig := <-sig

	log.Debug("Graceful shutdown", zap.Any("signal", termSig))

	closeCtx, closeCancel := context.WithTimeout(context.Background(), time.Second*5)
	defer closeCancel()

	if err = srv.Stop(closeCtx); err != nil {
		log.DPanic("srv.Stop", zap.Error(err))
	}
	if producer != nil {
		if err := producer.Close(); err != nil {
			log.Error("producer.Close", zap.Error(err))
		}
	}
	log.Info("Graceful shutdown finished")
	return nil
}

// newSessionRepository keeps sessions in Redis when it is configured and in memory otherwise.
func newSessionRepository(ctx context.Context, cfg config.Redis) (session.Repository, func(), error) {
	if !cfg.Enabled() {
		return session.NewMemoryRepository(), func() {}, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	return session.NewRedisRepository(client), func() { _ = client.Close() }, nil
}

func evict(ctx context.Context, log *zap.Logger, workspaces *store.Workspaces, idle time.Duration) {
	t := time.NewTicker(evictEvery)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := workspaces.Evict(idle); n > 0 {
				log.Debug("workspaces evicted", zap.Int("count", n))
			}
			metrics.SetWorkspaces(workspaces.Len())
		}
	}
}
