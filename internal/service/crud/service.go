// Package crud реализует единый набор CRUD-операций поверх порта хранилища.
package crud

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/rms/internal/domain"
	"github.com/vladislavdragonenkov/rms/internal/metrics"
	"github.com/vladislavdragonenkov/rms/internal/pagination"
)

const (
	opSave     = "save"
	opFind     = "find"
	opFindAll  = "find_all"
	opUpdate   = "update"
	opDelete   = "delete"
	opPage     = "page"
	opCount    = "count"
	publishTTL = 5 * time.Second
)

// Options задаёт необязательные зависимости сервиса.
type Options struct {
	Logger    *log.Entry
	Metrics   *metrics.CRUDMetrics
	Publisher domain.EventPublisher
}

// Option настраивает Service.
type Option func(*Options)

// WithLogger задаёт logger сервиса.
func WithLogger(logger *log.Entry) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

// WithMetrics включает метрики операций.
func WithMetrics(m *metrics.CRUDMetrics) Option {
	return func(opts *Options) {
		opts.Metrics = m
	}
}

// WithEvents включает публикацию событий после create/update/delete.
func WithEvents(publisher domain.EventPublisher) Option {
	return func(opts *Options) {
		opts.Publisher = publisher
	}
}

// Service — CRUD-сервис для одного типа сущностей. Хранилище передаётся в конструктор.
type Service[T domain.Entity[T, ID], ID comparable] struct {
	kind      domain.EntityKind
	repo      domain.Repository[T, ID]
	logger    *log.Entry
	metrics   *metrics.CRUDMetrics
	publisher domain.EventPublisher
}

// New создаёт сервис для сущностей kind поверх repo.
func New[T domain.Entity[T, ID], ID comparable](kind domain.EntityKind, repo domain.Repository[T, ID], opts ...Option) *Service[T, ID] {
	options := Options{}
	for _, opt := range opts {
		opt(&options)
	}
	logger := options.Logger
	if logger == nil {
		logger = log.New().WithField("component", "crud")
	}
	return &Service[T, ID]{
		kind:      kind,
		repo:      repo,
		logger:    logger.WithField("entity", string(kind)),
		metrics:   options.Metrics,
		publisher: options.Publisher,
	}
}

// Save валидирует, нормализует и сохраняет сущность. Пустой ID назначает хранилище.
func (s *Service[T, ID]) Save(ctx context.Context, entity T) (T, error) {
	start := time.Now()
	saved, err := s.save(ctx, entity)
	s.observe(opSave, start, err)
	if err != nil {
		var zero T
		return zero, err
	}
	s.publish(ctx, domain.EventCreated, saved.GetID())
	return saved, nil
}

// FindByID возвращает сущность и признак её наличия. Отсутствие не является ошибкой.
func (s *Service[T, ID]) FindByID(ctx context.Context, id ID) (T, bool, error) {
	start := time.Now()
	entity, found, err := s.find(ctx, id)
	s.observeFound(opFind, start, found, err)
	return entity, found, err
}

// FindAll лениво перечисляет сущности хранилища.
// Последовательность не перезапускается; новый вызов перечитывает хранилище.
func (s *Service[T, ID]) FindAll(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		start := time.Now()
		for entity, err := range s.repo.FindAll(ctx) {
			if err != nil {
				err = persistenceError(opFindAll, err)
				s.observe(opFindAll, start, err)
				var zero T
				yield(zero, err)
				return
			}
			if !yield(entity, nil) {
				break
			}
		}
		s.observe(opFindAll, start, nil)
	}
}

// Update перезаписывает существующую сущность. Если ID нет, хранилище не меняется.
func (s *Service[T, ID]) Update(ctx context.Context, id ID, entity T) (T, bool, error) {
	var zero T
	start := time.Now()

	stored, found, err := s.find(ctx, id)
	if err != nil || !found {
		s.observeFound(opUpdate, start, found, err)
		return zero, false, err
	}
	if m, ok := any(entity).(domain.StoredMerger[T]); ok {
		entity = m.MergeStored(stored)
	}

	saved, err := s.save(ctx, entity.WithID(id))
	s.observe(opUpdate, start, err)
	if err != nil {
		return zero, false, err
	}
	s.publish(ctx, domain.EventUpdated, id)
	return saved, true, nil
}

// Delete удаляет сущность и возвращает true, только если она существовала.
func (s *Service[T, ID]) Delete(ctx context.Context, id ID) (bool, error) {
	start := time.Now()

	if _, found, err := s.find(ctx, id); err != nil || !found {
		s.observeFound(opDelete, start, found, err)
		return false, err
	}

	if err := s.repo.DeleteByID(ctx, id); err != nil {
		// Удалили параллельно между проверкой и удалением.
		if errors.Is(err, domain.ErrNotFound) {
			s.observeFound(opDelete, start, false, nil)
			return false, nil
		}
		err = persistenceError(opDelete, err)
		s.observe(opDelete, start, err)
		return false, err
	}
	s.observe(opDelete, start, nil)
	s.publish(ctx, domain.EventDeleted, id)
	return true, nil
}

// GetPage читает все сущности и возвращает запрошенную страницу.
func (s *Service[T, ID]) GetPage(ctx context.Context, req pagination.PageRequest) (pagination.PageResult[T], error) {
	start := time.Now()
	page, err := pagination.Collect(req, s.repo.FindAll(ctx))
	if err != nil {
		err = persistenceError(opPage, err)
	}
	s.observe(opPage, start, err)
	return page, err
}

// Count возвращает количество сущностей в хранилище.
// Если хранилище реализует domain.Counter, сущности не перечитываются.
func (s *Service[T, ID]) Count(ctx context.Context) (int64, error) {
	start := time.Now()
	if counter, ok := s.repo.(domain.Counter); ok {
		n, err := counter.Count(ctx)
		if err != nil {
			err = persistenceError(opCount, err)
			s.observe(opCount, start, err)
			return 0, err
		}
		s.observe(opCount, start, nil)
		return n, nil
	}

	var n int64
	for _, err := range s.repo.FindAll(ctx) {
		if err != nil {
			err = persistenceError(opCount, err)
			s.observe(opCount, start, err)
			return 0, err
		}
		n++
	}
	s.observe(opCount, start, nil)
	return n, nil
}

func (s *Service[T, ID]) save(ctx context.Context, entity T) (T, error) {
	var zero T
	if v, ok := any(entity).(domain.Validator); ok {
		if err := v.Validate(); err != nil {
			return zero, err
		}
	}
	if n, ok := any(entity).(domain.Normalizer[T]); ok {
		entity = n.Normalize()
	}
	saved, err := s.repo.Save(ctx, entity)
	if err != nil {
		return zero, persistenceError(opSave, err)
	}
	return saved, nil
}

func (s *Service[T, ID]) find(ctx context.Context, id ID) (T, bool, error) {
	var zero T
	entity, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return zero, false, nil
		}
		return zero, false, persistenceError(opFind, err)
	}
	return entity, true, nil
}

func (s *Service[T, ID]) publish(ctx context.Context, eventType domain.EventType, id ID) {
	if s.publisher == nil {
		return
	}
	event := domain.NewEntityEvent(s.kind, eventType, fmt.Sprint(id))
	// Публикация не зависит от отмены исходного запроса.
	publishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTTL)
	defer cancel()
	if err := s.publisher.Publish(publishCtx, event); err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"event": event.Name(),
			"id":    event.EntityID,
		}).Warn("failed to publish entity event")
	}
}

func (s *Service[T, ID]) observe(op string, start time.Time, err error) {
	result := metrics.ResultSuccess
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrValidation):
		result = metrics.ResultInvalid
	default:
		result = metrics.ResultError
		s.logger.WithError(err).WithField("operation", op).Error("crud operation failed")
	}
	s.metrics.ObserveOperation(string(s.kind), op, result, time.Since(start))
}

func (s *Service[T, ID]) observeFound(op string, start time.Time, found bool, err error) {
	if err == nil && !found {
		s.metrics.ObserveOperation(string(s.kind), op, metrics.ResultNotFound, time.Since(start))
		return
	}
	s.observe(op, start, err)
}

// persistenceError помечает сбой хранилища. Отмену контекста оставляем как есть.
func persistenceError(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrPersistence, op, err)
}
