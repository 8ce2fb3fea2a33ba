// Package rest — HTTP API ресторана поверх gin.
package rest

import (
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/rms/internal/domain"
	"github.com/vladislavdragonenkov/rms/internal/metrics"
	"github.com/vladislavdragonenkov/rms/internal/service/crud"
)

// Services — сервисы, которые публикует API.
type Services struct {
	Clients  *crud.Service[domain.Client, string]
	Dishes   *crud.Service[domain.Dish, string]
	Menus    *crud.Service[domain.Menu, string]
	Invoices *crud.Service[domain.Invoice, string]
	Reports  ReportGenerator
}

// Options задаёт необязательные зависимости роутера.
type Options struct {
	Logger        *log.Entry
	Metrics       *metrics.HTTPMetrics
	ReportTimeout time.Duration
}

// Option настраивает роутер.
type Option func(*Options)

func WithLogger(logger *log.Entry) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

func WithMetrics(m *metrics.HTTPMetrics) Option {
	return func(opts *Options) {
		opts.Metrics = m
	}
}

// WithReportTimeout ограничивает построение одного отчёта.
func WithReportTimeout(timeout time.Duration) Option {
	return func(opts *Options) {
		opts.ReportTimeout = timeout
	}
}

// NewRouter собирает gin.Engine со всеми ресурсами.
func NewRouter(services Services, opts ...Option) *gin.Engine {
	options := Options{}
	for _, opt := range opts {
		opt(&options)
	}
	logger := options.Logger
	if logger == nil {
		logger = log.New().WithField("component", "http")
	}

	router := gin.New()
	router.Use(Recovery(logger))
	router.Use(RequestLogger(logger))
	if options.Metrics != nil {
		router.Use(Metrics(options.Metrics))
	}

	NewResource(domain.KindClient, services.Clients, toClientDTO, fromClientDTO).
		Register(router.Group("/clients"))
	NewResource(domain.KindDish, services.Dishes, toDishDTO, fromDishDTO).
		Register(router.Group("/dishes"))
	NewResource(domain.KindMenu, services.Menus, toMenuDTO, fromMenuDTO).
		Register(router.Group("/menus"))

	invoices := router.Group("/invoices")
	if services.Reports != nil {
		invoices.GET("/generateReport/:id", NewReportHandler(services.Reports, options.ReportTimeout).Generate)
	}
	NewResource(domain.KindInvoice, services.Invoices, toInvoiceDTO, fromInvoiceDTO).
		Register(invoices)

	return router
}
