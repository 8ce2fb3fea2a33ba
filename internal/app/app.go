// Package app собирает сервис: хранилище, CRUD-сервисы, отчёты, HTTP API,
// gRPC health и метрики.
package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	promgrpc "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/vladislavdragonenkov/rms/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/rms/internal/health"
	"github.com/vladislavdragonenkov/rms/internal/metrics"
	"github.com/vladislavdragonenkov/rms/internal/report/pdf"
	"github.com/vladislavdragonenkov/rms/internal/service/crud"
	"github.com/vladislavdragonenkov/rms/internal/service/report"
	"github.com/vladislavdragonenkov/rms/internal/service/rest"
	"github.com/vladislavdragonenkov/rms/internal/version"
)

const (
	shutdownTimeout    = 5 * time.Second
	healthSyncInterval = 10 * time.Second
	readHeaderTimeout  = 5 * time.Second
)

func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")
	if err := cfg.Validate(); err != nil {
		return err
	}

	deps, err := initRuntimeDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.close(logger)

	// Kafka опционален: без брокеров события не публикуются.
	var publisher domain.EventPublisher
	producer, err := initKafkaProducer(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
	if err != nil {
		logger.WithError(err).Warn("failed to create kafka producer, continuing without kafka")
	}
	if producer != nil {
		publisher = producer
	}
	defer closeKafkaProducer(producer, logger)

	services := newServices(deps, publisher, cfg, logger)

	if lvl, _ := log.ParseLevel(cfg.LogLevel); lvl >= log.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := rest.NewRouter(services,
		rest.WithLogger(logger.WithField("layer", "http")),
		rest.WithMetrics(metrics.NewHTTPMetrics()),
		rest.WithReportTimeout(cfg.ReportTimeout),
	)

	healthHandler := newHealthHandler(deps, services)

	grpcServer, healthServer := newGRPCServer(logger)

	httpLis, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		return err
	}
	grpcLis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		_ = httpLis.Close()
		return err
	}

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)
	httpSrv := &http.Server{Handler: router, ReadHeaderTimeout: readHeaderTimeout}

	errCh := make(chan error, 2)
	go func() {
		logger.Infof("HTTP API слушает %s", httpLis.Addr())
		if err := httpSrv.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	go func() {
		logger.Infof("gRPC health слушает %s", grpcLis.Addr())
		errCh <- grpcServer.Serve(grpcLis)
	}()
	go syncGRPCHealth(ctx, healthServer, healthHandler, healthSyncInterval, logger)

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем серверы")
		healthServer.Shutdown()
		shutdownHTTP(httpSrv, logger)
		stopGRPC(grpcServer, logger)
		shutdownHTTP(metricsSrv, logger)
		return ctx.Err()
	case err := <-errCh:
		healthServer.Shutdown()
		shutdownHTTP(httpSrv, logger)
		stopGRPC(grpcServer, logger)
		shutdownHTTP(metricsSrv, logger)
		if errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return err
	}
}

// newServices собирает CRUD-сервисы и агрегатор отчётов поверх хранилищ.
func newServices(deps *runtimeDependencies, publisher domain.EventPublisher, cfg Config, logger *log.Entry) rest.Services {
	crudMetrics := metrics.NewCRUDMetrics()
	crudOpts := []crud.Option{
		crud.WithLogger(logger.WithField("layer", "crud")),
		crud.WithMetrics(crudMetrics),
		crud.WithEvents(publisher),
	}

	aggregator := report.NewAggregator(
		deps.invoices,
		deps.clients,
		deps.dishes,
		pdf.NewRenderer(),
		report.WithLogger(logger.WithField("layer", "report")),
		report.WithMetrics(metrics.NewReportMetrics()),
		report.WithEvents(publisher),
		report.WithLookupConcurrency(cfg.ReportLookupConcurrency),
	)

	return rest.Services{
		Clients:  crud.New[domain.Client, string](domain.KindClient, deps.clients, crudOpts...),
		Dishes:   crud.New[domain.Dish, string](domain.KindDish, deps.dishes, crudOpts...),
		Menus:    crud.New[domain.Menu, string](domain.KindMenu, deps.menus, crudOpts...),
		Invoices: crud.New[domain.Invoice, string](domain.KindInvoice, deps.invoices, crudOpts...),
		Reports:  aggregator,
	}
}

// newHealthHandler регистрирует проверку хранилища и сводку по количеству сущностей.
func newHealthHandler(deps *runtimeDependencies, services rest.Services) *healthcheck.Handler {
	handler := healthcheck.NewHandler(version.GetVersion())
	if deps.storageChecker != nil {
		handler.RegisterChecker("storage", deps.storageChecker)
	}
	handler.RegisterChecker("catalog", healthcheck.NewCountChecker("catalog", map[string]healthcheck.Counter{
		"clients":  services.Clients,
		"dishes":   services.Dishes,
		"menus":    services.Menus,
		"invoices": services.Invoices,
	}))
	return handler
}

// newGRPCServer создаёт gRPC-сервер со стандартным health-сервисом и reflection.
func newGRPCServer(logger *log.Entry) (*grpc.Server, *health.Server) {
	grpcMetrics := promgrpc.NewServerMetrics()
	if err := prometheus.Register(grpcMetrics); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*promgrpc.ServerMetrics); ok {
				grpcMetrics = existing
			}
		} else {
			logger.WithError(err).Warn("failed to register grpc metrics")
		}
	}

	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(grpcMetrics.UnaryServerInterceptor()),
		grpc.ChainStreamInterceptor(grpcMetrics.StreamServerInterceptor()),
	)

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)
	grpcMetrics.InitializeMetrics(grpcServer)

	return grpcServer, healthServer
}

// syncGRPCHealth переносит результат проверок healthHandler в gRPC health.
func syncGRPCHealth(ctx context.Context, server *health.Server, checks *healthcheck.Handler, interval time.Duration, logger *log.Entry) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	current := updateGRPCHealth(ctx, server, checks)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			next := updateGRPCHealth(ctx, server, checks)
			if next != current {
				logger.WithField("status", next.String()).Warn("grpc health status changed")
				current = next
			}
		}
	}
}

func updateGRPCHealth(ctx context.Context, server *health.Server, checks *healthcheck.Handler) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	if checks.Evaluate(ctx).Status == healthcheck.StatusUnhealthy {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	server.SetServingStatus("", status)
	return status
}

func stopGRPC(server *grpc.Server, logger *log.Entry) {
	stopped := make(chan struct{})
	go func() {
		server.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(shutdownTimeout):
		logger.Warn("graceful stop превысил таймаут, принудительно останавливаем")
		server.Stop()
	}
}

// startMetricsServer запускает HTTP-обработчики /metrics и health checks.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: readHeaderTimeout}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/livez, %s/readyz", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("http shutdown with error")
	}
}
