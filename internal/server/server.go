package server

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/dkotelnikov/txgate/internal/config"
	"github.com/dkotelnikov/txgate/internal/logging"
	"github.com/dkotelnikov/txgate/internal/server/handlers"
)

type Server struct {
	cfg *config.Config
	srv *http.Server
}

func (s *Server) Start() error {
	lis, err := net.Listen("tcp", s.cfg.HTTPAddress)
	if err != nil {
		return err
	}

	go s.srv.Serve(lis)

	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func NewServer(
	lc fx.Lifecycle,
	cfg *config.Config,
	lg *logging.ZapLogger,
	webhooks *handlers.WebhooksHandler,
	transactions *handlers.TransactionsHandler,
	health *handlers.HealthHandler,
) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(lg))

	router.GET("/", health.Handle)

	api := router.Group(cfg.APIPrefix)
	api.POST("/webhooks/transactions", webhooks.Handle)
	api.GET("/transactions/:transaction_id", transactions.Handle)

	srv := &Server{
		cfg: cfg,
		srv: &http.Server{
			Addr:              cfg.HTTPAddress,
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}

	lc.Append(
		fx.Hook{
			OnStart: func(ctx context.Context) error {
				lg.InfoCtx(ctx, "start processing HTTP requests", zap.Any("config", srv.cfg))

				return srv.Start()
			},
			OnStop: func(ctx context.Context) error {
				return srv.Stop(ctx)
			},
		},
	)

	return srv
}

// requestLogger assigns every request a uuid, carries it in the log context
// and emits one completion entry per request.
func requestLogger(lg *logging.ZapLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := uuid.NewString()
		ctx := lg.WithContextFields(c.Request.Context(), zap.String("request_id", requestID))
		c.Request = c.Request.WithContext(ctx)
		c.Header("X-Request-Id", requestID)

		start := time.Now()
		c.Next()

		lg.InfoCtx(
			ctx,
			"request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	}
}
