package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/openlms/assessment/internal/api"
	"github.com/openlms/assessment/internal/catalog"
	"github.com/openlms/assessment/internal/event"
	"github.com/openlms/assessment/internal/ledger"
	"github.com/openlms/assessment/internal/notify"
	"github.com/openlms/assessment/internal/result"
	"github.com/openlms/assessment/internal/session"
	"github.com/openlms/assessment/internal/telemetry"
)

type Config struct {
	HTTP struct {
		Port int32
	}

	Redis struct {
		Cache struct {
			Addrs      []string
			Pass       string
			Prefix     string
			TTLSeconds int
		}

		Pubsub struct {
			Addrs  []string
			Pass   string
			Prefix string
		}
	}

	Postgres struct {
		Assessment struct {
			Addr string
			User string
			Pass string
			Name string
		}
	}
}

type Server struct {
	c Config

	eb *event.Bus

	infra struct {
		redis struct {
			cache  redis.UniversalClient
			pubsub redis.UniversalClient
		}

		postgres *pgxpool.Pool
	}

	service struct {
		catalog *catalog.Service
		session *session.Service
		result  *result.Service
	}

	http *http.Server
}

func Init(c Config) (*Server, error) {
	s := &Server{c: c}

	s.eb = event.NewBus()

	if err := s.initInfra(); err != nil {
		return nil, fmt.Errorf("server: init infra: %w", err)
	}

	s.initService()
	s.initAPI()
	return s, nil
}

func (s *Server) initInfra() error {
	if err := s.initRedis(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}

	if err := s.initPostgres(); err != nil {
		return fmt.Errorf("postgres: %w", err)
	}

	return nil
}

func (s *Server) initRedis() error {
	connect := func(addrs []string, pass string) (redis.UniversalClient, error) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		r := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    addrs,
			Password: pass,
		})

		if err := telemetry.MonitorRedis(r); err != nil {
			return nil, err
		}

		if err := r.Ping(ctx).Err(); err != nil {
			return nil, err
		}

		return r, nil
	}

	var err error
	s.infra.redis.cache, err = connect(s.c.Redis.Cache.Addrs, s.c.Redis.Cache.Pass)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}

	s.infra.redis.pubsub, err = connect(s.c.Redis.Pubsub.Addrs, s.c.Redis.Pubsub.Pass)
	if err != nil {
		return fmt.Errorf("pubsub: %w", err)
	}

	return nil
}

func (s *Server) initPostgres() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pg := s.c.Postgres.Assessment
	cc, err := pgxpool.ParseConfig(fmt.Sprintf("postgres://%s:%s@%s/%s", pg.User, pg.Pass, pg.Addr, pg.Name))
	if err != nil {
		return err
	}

	db, err := pgxpool.NewWithConfig(ctx, cc)
	if err != nil {
		return err
	}

	if err := db.Ping(ctx); err != nil {
		return err
	}

	s.infra.postgres = db
	return nil
}

func (s *Server) initService() {
	attempts := ledger.NewPostgresStore(s.infra.postgres)

	s.service.catalog = catalog.NewService(catalog.Config{
		Store:  catalog.NewPostgresStore(s.infra.postgres),
		Ledger: attempts,
	})

	s.service.session = session.NewService(session.Config{
		Catalog:  s.service.catalog,
		Ledger:   attempts,
		EventBus: s.eb,
	})

	s.service.result = result.NewService(result.Config{
		Ledger:  attempts,
		Catalog: s.service.catalog,
		Cache: result.NewCache(result.CacheConfig{
			Redis:  s.infra.redis.cache,
			Prefix: s.c.Redis.Cache.Prefix,
			TTL:    time.Duration(s.c.Redis.Cache.TTLSeconds) * time.Second,
		}),
	})

	notify.NewPublisher(notify.Config{
		EventBus: s.eb,
		Redis:    s.infra.redis.pubsub,
		Prefix:   s.c.Redis.Pubsub.Prefix,
	})
}

func (s *Server) initAPI() {
	e := gin.New()
	e.GET("/metrics", gin.WrapH(promhttp.Handler()))
	pprof.Register(e, "/debug/pprof")
	e.Use(gin.Recovery())

	api.New(api.Config{
		Router:  e.Group("/api"),
		Session: s.service.session,
		Catalog: s.service.catalog,
		Result:  s.service.result,
	})

	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.c.HTTP.Port),
		Handler:           e,
		ReadHeaderTimeout: 60 * time.Second,
	}
}

func (s *Server) Start() {
	ctx := context.TODO()

	slog.InfoContext(ctx, fmt.Sprintf("server: HTTP listening on port %d", s.c.HTTP.Port))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.ErrorContext(ctx, "server: shutdown with error", "error", err)
	}
}

func (s *Server) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.http.Shutdown(ctx); err != nil {
		slog.ErrorContext(ctx, "server: shutdown HTTP failed", "error", err)
	}

	s.eb.Stop()
	s.infra.postgres.Close()

	slog.InfoContext(ctx, "server: shutdown completed")
}
