package services

import (
	"context"
	"errors"
	"fmt"

	"dreams/internal/amqp"
	"dreams/internal/core"
	"dreams/internal/journal"
	applog "dreams/internal/log"
	"dreams/internal/metrics"
)

// Repository is the persistent store behind the service.
type Repository interface {
	journal.Store
	Ping(ctx context.Context) error
	Close() error
}

// EventPublisher announces dream changes. *amqp.Client implements it.
type EventPublisher interface {
	PublishDreamEvent(ctx context.Context, msg *amqp.DreamEventMessage) error
	Close() error
}

// DreamService validates writes, persists them and publishes change events.
// Publishing is best effort: a write that reached the database succeeds even
// when the event cannot be sent.
type DreamService struct {
	repo      Repository
	publisher EventPublisher
	metrics   *metrics.Metrics
	logger    *applog.Logger
}

// NewDreamService wires the service. publisher and m may be nil.
func NewDreamService(repo Repository, publisher EventPublisher, m *metrics.Metrics, logger *applog.Logger) *DreamService {
	return &DreamService{
		repo:      repo,
		publisher: publisher,
		metrics:   m,
		logger:    logger.WithComponent(applog.ComponentDream),
	}
}

var _ journal.Store = (*DreamService)(nil)

func (s *DreamService) ListMonth(ctx context.Context, year, month int) ([]core.DreamRecord, error) {
	records, err := s.repo.ListMonth(ctx, year, month)
	s.count(applog.OpList, err)
	return records, err
}

func (s *DreamService) GetDream(ctx context.Context, id int64) (core.DreamRecord, error) {
	r, err := s.repo.GetDream(ctx, id)
	s.count(applog.OpRead, err)
	return r, err
}

func (s *DreamService) ListByEmotion(ctx context.Context, emotion string) ([]core.DreamRecord, error) {
	records, err := s.repo.ListByEmotion(ctx, emotion)
	s.count(applog.OpSearch, err)
	return records, err
}

// CreateDream saves a new dream and publishes a created event.
func (s *DreamService) CreateDream(ctx context.Context, p core.DreamPayload) (core.DreamRecord, error) {
	if err := p.Validate(); err != nil {
		s.count(applog.OpCreate, err)
		return core.DreamRecord{}, err
	}
	r, err := s.repo.CreateDream(ctx, p)
	s.count(applog.OpCreate, err)
	if err != nil {
		return core.DreamRecord{}, fmt.Errorf("save dream: %w", err)
	}

	s.publish(ctx, amqp.NewDreamEventMessage(amqp.EventCreated, r.ID))
	return r, nil
}

// UpdateDream replaces a dream and publishes an updated event.
func (s *DreamService) UpdateDream(ctx context.Context, id int64, p core.DreamPayload) (core.DreamRecord, error) {
	if err := p.Validate(); err != nil {
		s.count(applog.OpUpdate, err)
		return core.DreamRecord{}, err
	}
	r, err := s.repo.UpdateDream(ctx, id, p)
	s.count(applog.OpUpdate, err)
	if err != nil {
		return core.DreamRecord{}, fmt.Errorf("update dream: %w", err)
	}

	s.publish(ctx, amqp.NewDreamEventMessage(amqp.EventUpdated, r.ID))
	return r, nil
}

// DeleteDream removes a dream and publishes a deleted event carrying its name and date.
func (s *DreamService) DeleteDream(ctx context.Context, id int64) (core.DreamRecord, error) {
	r, err := s.repo.DeleteDream(ctx, id)
	s.count(applog.OpDelete, err)
	if err != nil {
		return core.DreamRecord{}, fmt.Errorf("delete dream: %w", err)
	}

	msg := amqp.NewDreamEventMessage(amqp.EventDeleted, r.ID)
	msg.Name = r.Name
	if r.DreamDate != nil {
		msg.DreamDate = *r.DreamDate
	}
	s.publish(ctx, msg)
	return r, nil
}

// Ping checks the database.
func (s *DreamService) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

func (s *DreamService) publish(ctx context.Context, msg *amqp.DreamEventMessage) {
	if s.publisher == nil {
		s.logger.DebugContext(ctx, "AMQP not configured, skipping dream event", applog.FieldDreamID, msg.DreamID)
		return
	}
	err := s.publisher.PublishDreamEvent(ctx, msg)
	if s.metrics != nil {
		s.metrics.Events.WithLabelValues(string(msg.Type), metrics.Result(err)).Inc()
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish dream event",
			applog.FieldDreamID, msg.DreamID,
			applog.FieldEventType, msg.Type,
			applog.FieldError, err)
	}
}

func (s *DreamService) count(op string, err error) {
	if s.metrics != nil {
		s.metrics.DreamOps.WithLabelValues(op, metrics.Result(err)).Inc()
	}
}

// Close closes the publisher and the repository.
func (s *DreamService) Close() error {
	var errs []error

	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}
	if s.repo != nil {
		if err := s.repo.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close dream service: %w", errors.Join(errs...))
	}
	return nil
}
