// Package report собирает счёт с клиентом и блюдами и передаёт его генератору отчёта.
package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/vladislavdragonenkov/rms/internal/domain"
	"github.com/vladislavdragonenkov/rms/internal/metrics"
)

const (
	// TemplateInvoice — шаблон отчёта по счёту.
	TemplateInvoice = "invoice"
	// ParamClientName — параметр шаблона с именем клиента.
	ParamClientName = "txt_client"

	publishTTL = 5 * time.Second
)

// Причины несостоявшегося отчёта (лейбл метрики и поле лога).
const (
	ReasonNotFound    = "not_found"
	ReasonReference   = "reference"
	ReasonRender      = "render"
	ReasonPersistence = "persistence"
	ReasonCanceled    = "canceled"
	ReasonUnknown     = "unknown"
)

// Options задаёт необязательные зависимости агрегатора.
type Options struct {
	Logger            *log.Entry
	Metrics           *metrics.ReportMetrics
	Publisher         domain.EventPublisher
	LookupConcurrency int
}

// Option настраивает Aggregator.
type Option func(*Options)

func WithLogger(logger *log.Entry) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

func WithMetrics(m *metrics.ReportMetrics) Option {
	return func(opts *Options) {
		opts.Metrics = m
	}
}

// WithEvents включает событие invoice.report_generated.
func WithEvents(publisher domain.EventPublisher) Option {
	return func(opts *Options) {
		opts.Publisher = publisher
	}
}

// WithLookupConcurrency ограничивает число одновременных запросов блюд одного счёта.
// 0 — без ограничения.
func WithLookupConcurrency(n int) Option {
	return func(opts *Options) {
		opts.LookupConcurrency = n
	}
}

// Aggregator загружает счёт, разрешает ссылки и строит отчёт.
type Aggregator struct {
	invoices domain.InvoiceRepository
	clients  domain.ClientRepository
	dishes   domain.DishRepository
	renderer domain.ReportRenderer

	logger      *log.Entry
	metrics     *metrics.ReportMetrics
	publisher   domain.EventPublisher
	lookupLimit int
}

// NewAggregator создаёт агрегатор поверх трёх хранилищ и генератора отчёта.
func NewAggregator(
	invoices domain.InvoiceRepository,
	clients domain.ClientRepository,
	dishes domain.DishRepository,
	renderer domain.ReportRenderer,
	opts ...Option,
) *Aggregator {
	options := Options{}
	for _, opt := range opts {
		opt(&options)
	}
	logger := options.Logger
	if logger == nil {
		logger = log.New().WithField("component", "report")
	}
	return &Aggregator{
		invoices:    invoices,
		clients:     clients,
		dishes:      dishes,
		renderer:    renderer,
		logger:      logger,
		metrics:     options.Metrics,
		publisher:   options.Publisher,
		lookupLimit: max(options.LookupConcurrency, 0),
	}
}

// Aggregate возвращает счёт с полностью заполненными клиентом, блюдами и суммами.
// Ошибки различимы: domain.ErrInvoiceNotFound, *domain.ReferenceError, domain.ErrPersistence.
// При любой ошибке частично заполненный счёт не возвращается.
func (a *Aggregator) Aggregate(ctx context.Context, id string) (domain.Invoice, error) {
	invoice, err := a.invoices.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Invoice{}, fmt.Errorf("%w: %s", domain.ErrInvoiceNotFound, id)
		}
		return domain.Invoice{}, storeError("load invoice", err)
	}

	client, err := a.resolveClient(ctx, invoice.Client.ID)
	if err != nil {
		return domain.Invoice{}, err
	}

	dishes, err := a.resolveDishes(ctx, invoice.Items)
	if err != nil {
		return domain.Invoice{}, err
	}

	return invoice.Resolved(client, dishes), nil
}

// Report агрегирует счёт и строит документ по шаблону "invoice".
// Ошибка генератора или пустой документ дают domain.ErrRender.
func (a *Aggregator) Report(ctx context.Context, id string) ([]byte, error) {
	invoice, err := a.Aggregate(ctx, id)
	if err != nil {
		return nil, err
	}

	params := map[string]any{ParamClientName: invoice.Client.DisplayName()}
	out, err := a.renderer.Render(ctx, TemplateInvoice, params, invoice.Items)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrRender, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: empty document", domain.ErrRender)
	}

	a.publish(ctx, invoice.ID)
	return out, nil
}

// GenerateReport — внешний контракт отчёта.
// Отсутствующий счёт, неразрешённая ссылка и сбой генератора сводятся к (nil, false, nil);
// причина пишется в лог и метрику. Сбой хранилища и отмена контекста возвращаются ошибкой.
func (a *Aggregator) GenerateReport(ctx context.Context, id string) ([]byte, bool, error) {
	start := time.Now()
	a.metrics.RecordStarted()
	defer func() { a.metrics.RecordFinished(time.Since(start)) }()

	out, err := a.Report(ctx, id)
	if err == nil {
		a.metrics.RecordGenerated()
		return out, true, nil
	}

	reason := FailureReason(err)
	a.metrics.RecordFailed(reason)
	entry := a.logger.WithError(err).WithFields(log.Fields{
		"invoice_id": id,
		"reason":     reason,
	})

	switch reason {
	case ReasonPersistence, ReasonCanceled, ReasonUnknown:
		entry.Error("invoice report failed")
		return nil, false, err
	default:
		entry.Warn("invoice report is empty")
		return nil, false, nil
	}
}

// FailureReason классифицирует ошибку агрегации.
func FailureReason(err error) string {
	var refErr *domain.ReferenceError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, domain.ErrNotFound):
		return ReasonNotFound
	case errors.As(err, &refErr), errors.Is(err, domain.ErrReferenceResolution):
		return ReasonReference
	case errors.Is(err, domain.ErrRender):
		return ReasonRender
	case errors.Is(err, domain.ErrPersistence):
		return ReasonPersistence
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ReasonCanceled
	default:
		return ReasonUnknown
	}
}

func (a *Aggregator) resolveClient(ctx context.Context, id string) (domain.Client, error) {
	client, err := a.clients.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Client{}, &domain.ReferenceError{Kind: domain.ReferenceClient, ID: id}
		}
		return domain.Client{}, storeError("load client", err)
	}
	return client, nil
}

// resolveDishes запрашивает блюда параллельно, по горутине на позицию.
// Результат k-й позиции пишется в k-й элемент; порядок завершения не важен.
// Первая ошибка отменяет остальные запросы.
func (a *Aggregator) resolveDishes(ctx context.Context, items []domain.InvoiceDetail) ([]domain.Dish, error) {
	resolved := make([]domain.Dish, len(items))

	g, gctx := errgroup.WithContext(ctx)
	if a.lookupLimit > 0 {
		g.SetLimit(a.lookupLimit)
	}
	for i, item := range items {
		g.Go(func() error {
			start := time.Now()
			dish, err := a.dishes.FindByID(gctx, item.Dish.ID)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					a.metrics.RecordDishLookup(metrics.ResultNotFound, time.Since(start))
					return &domain.ReferenceError{Kind: domain.ReferenceDish, ID: item.Dish.ID, Index: i}
				}
				a.metrics.RecordDishLookup(metrics.ResultError, time.Since(start))
				return storeError("load dish", err)
			}
			a.metrics.RecordDishLookup(metrics.ResultSuccess, time.Since(start))
			resolved[i] = dish
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return resolved, nil
}

func (a *Aggregator) publish(ctx context.Context, invoiceID string) {
	if a.publisher == nil {
		return
	}
	event := domain.NewEntityEvent(domain.KindInvoice, domain.EventReportGenerated, invoiceID)
	publishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTTL)
	defer cancel()
	if err := a.publisher.Publish(publishCtx, event); err != nil {
		a.logger.WithError(err).WithField("invoice_id", invoiceID).Warn("failed to publish report event")
	}
}

// storeError помечает сбой хранилища. Отмена контекста остаётся отменой.
func storeError(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrPersistence, op, err)
}
