package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/Domenick1991/discope/api"
	"github.com/Domenick1991/discope/config"
	"github.com/Domenick1991/discope/internal/api/planning_api"
	"github.com/gin-gonic/gin"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

const swaggerFile = "discope.swagger.json"

type Handlers struct {
	Bookings *api.BookingHandler
	Centers  *api.CenterHandler
	Planning *planning_api.Server
}

type Servers struct {
	grpcServer *grpc.Server
	httpServer *http.Server
	planning   *planning_api.Server
}

// Run starts gRPC and HTTP (REST + grpc-gateway + swagger) servers and blocks until context is canceled or a server fails.
func Run(ctx context.Context, cfg *config.Config, handlers Handlers, logger *zap.Logger) error {
	s, err := newServers(cfg, handlers, logger)
	if err != nil {
		return err
	}

	errCh := make(chan error, 2)

	lis, err := net.Listen("tcp", cfg.GRPC.Address)
	if err != nil {
		return fmt.Errorf("listen gRPC %s: %w", cfg.GRPC.Address, err)
	}
	go func() { errCh <- s.grpcServer.Serve(lis) }()

	go func() {
		if err := s.httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	logger.Info("servers started", zap.String("http", cfg.HTTP.Address), zap.String("grpc", cfg.GRPC.Address))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("shutting down servers")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.planning.Shutdown()
		s.grpcServer.GracefulStop()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	}
}

func newServers(cfg *config.Config, handlers Handlers, logger *zap.Logger) (*Servers, error) {
	grpcSrv := grpc.NewServer()
	handlers.Planning.RegisterGRPC(grpcSrv)

	gateway := runtime.NewServeMux()
	if err := handlers.Planning.RegisterGateway(gateway); err != nil {
		return nil, fmt.Errorf("register planning gateway: %w", err)
	}

	handler := http.NewServeMux()
	handler.Handle("/", gateway)
	handler.Handle("/api/", newRouter(handlers, logger))

	if cfg.HTTP.SwaggerDir != "" {
		fs := http.FileServer(http.Dir(cfg.HTTP.SwaggerDir))
		handler.Handle("/swagger/", http.StripPrefix("/swagger/", fs))
		handler.Handle("/docs/", httpSwagger.Handler(httpSwagger.URL("/swagger/"+swaggerFile)))
	}

	httpSrv := &http.Server{
		Addr:              cfg.HTTP.Address,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &Servers{
		grpcServer: grpcSrv,
		httpServer: httpSrv,
		planning:   handlers.Planning,
	}, nil
}

func newRouter(handlers Handlers, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))

	group := router.Group("/api")
	handlers.Bookings.Register(group.Group("/bookings"))
	handlers.Centers.Register(group.Group("/centers"))
	return router
}
