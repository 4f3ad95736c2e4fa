// Command zapzap-server is the process entrypoint: it wires the
// repositories, event bus, Action API core, and bot orchestrator
// together and exposes them over a thin Gin HTTP+SSE adapter. Adapted
// from the teacher's cmd/game-server/main.go GameServer wiring and
// graceful-shutdown pattern, generalized from a single in-process
// table to repository-backed parties.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"zapzap/internal/bot"
	"zapzap/internal/bus"
	"zapzap/internal/core"
	"zapzap/internal/domain"
	"zapzap/internal/repo"
	"zapzap/internal/repo/chanalytics"
	"zapzap/internal/repo/memory"
	"zapzap/internal/repo/postgres"
	"zapzap/pkg/rng"
)

func main() {
	port := envOr("ZAPZAP_SERVER_PORT", "8080")
	botTick := envDurationMS("ZAPZAP_BOT_TICK_MS", 1500*time.Millisecond)
	actionDelay := envDurationMS("ZAPZAP_BOT_ACTION_DELAY_MS", 800*time.Millisecond)
	actionDeadline := envDurationMS("ZAPZAP_ACTION_TIMEOUT_MS", 2*time.Second)

	rngSys, err := rng.NewSystem(rng.NewAuditLogger())
	if err != nil {
		log.Fatalf("zapzap-server: failed to init rng: %v", err)
	}

	parties, users := wireRepositories()
	eventBus := bus.New()
	publisher := wireEventPublisher(eventBus)
	history := wireHistorySink()

	c := core.New(parties, users, publisher, rngSys)
	c.History = history

	strategies := bot.Strategies(rngSys)
	orchestrator := bot.New(c, parties, users, strategies, botTick, actionDelay, actionDeadline)

	ctx, cancel := context.WithCancel(context.Background())
	orchestrator.Start(ctx)

	router := newRouter(c, eventBus)
	srv := &http.Server{Addr: ":" + port, Handler: router}

	go func() {
		log.Printf("zapzap-server: listening on :%s", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("zapzap-server: listen failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Printf("zapzap-server: shutting down")
	cancel()
	orchestrator.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("zapzap-server: shutdown error: %v", err)
	}
}

// wireRepositories picks Postgres-backed repositories when DATABASE_URL
// is set, falling back to the in-memory reference implementation for
// single-node/dev use, matching main.go's env-gated storage selection.
func wireRepositories() (repo.PartyRepository, repo.UserRepository) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		return memory.New(), memory.NewUserRepository()
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatalf("zapzap-server: failed to open postgres: %v", err)
	}
	parties := postgres.NewPartyRepository(db)
	users := postgres.NewUserRepository(db)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := parties.CreateSchema(ctx); err != nil {
		log.Fatalf("zapzap-server: failed to create party schema: %v", err)
	}
	if err := users.CreateSchema(ctx); err != nil {
		log.Fatalf("zapzap-server: failed to create user schema: %v", err)
	}
	return parties, users
}

// wireEventPublisher mirrors published events onto Kafka in addition to
// the in-process bus whenever KAFKA_BROKERS is set, fanning out through
// bus.FanoutPublisher.
func wireEventPublisher(b *bus.Bus) core.EventPublisher {
	brokers := os.Getenv("KAFKA_BROKERS")
	if brokers == "" {
		return b
	}
	sink, err := bus.NewKafkaEventSink(bus.KafkaSinkConfig{
		Brokers:        []string{brokers},
		Topic:          envOr("KAFKA_EVENTS_TOPIC", "zapzap.events"),
		MaxRetries:     3,
		RetryBackoff:   100 * time.Millisecond,
		FlushFrequency: 250 * time.Millisecond,
		FlushMessages:  50,
	})
	if err != nil {
		log.Printf("zapzap-server: failed to start kafka event sink, continuing without it: %v", err)
		return b
	}
	return bus.FanoutPublisher{Targets: []interface{ Publish(domain.Event) }{b, sink}}
}

// wireHistorySink wires the optional ClickHouse warehouse sink when
// CLICKHOUSE_HOST is set; a nil sink disables round/game history
// entirely without affecting the Action API.
func wireHistorySink() core.HistorySink {
	host := os.Getenv("CLICKHOUSE_HOST")
	if host == "" {
		return nil
	}
	port, _ := strconv.Atoi(envOr("CLICKHOUSE_PORT", "9440"))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	sink, err := chanalytics.NewClickHouseSink(ctx, chanalytics.Config{
		Host:         host,
		Port:         port,
		Database:     envOr("CLICKHOUSE_DATABASE", "zapzap"),
		Username:     envOr("CLICKHOUSE_USERNAME", "default"),
		Password:     os.Getenv("CLICKHOUSE_PASSWORD"),
		Secure:       envOr("CLICKHOUSE_SECURE", "true") == "true",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		ConnTimeout:  5 * time.Second,
	})
	if err != nil {
		log.Printf("zapzap-server: failed to start clickhouse sink, continuing without it: %v", err)
		return nil
	}
	if err := sink.CreateTables(ctx); err != nil {
		log.Printf("zapzap-server: failed to create clickhouse tables: %v", err)
	}
	return &chanalytics.CoreAdapter{Sink: sink}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envDurationMS(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	ms, err := strconv.Atoi(v)
	if err != nil || ms <= 0 {
		return def
	}
	return time.Duration(ms) * time.Millisecond
}
