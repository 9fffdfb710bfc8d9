package service

import (
	"context"
	"log/slog"

	"github.com/todaysales-settlement/internal/domain/deadletter"
)

const (
	DefaultMessageLimit = 20
	MaxMessageLimit     = 100
)

// DeadLetterServiceImpl implements the DeadLetterService interface
type DeadLetterServiceImpl struct {
	archive deadletter.Repository
	logger  *slog.Logger
}

// NewDeadLetterService creates a new dead-letter service
func NewDeadLetterService(logger *slog.Logger, archive deadletter.Repository) *DeadLetterServiceImpl {
	return &DeadLetterServiceImpl{
		archive: archive,
		logger:  logger,
	}
}

func (s *DeadLetterServiceImpl) Counts(ctx context.Context) (map[string]int64, error) {
	return s.archive.Counts(ctx)
}

// Latest clamps limit to [1, MaxMessageLimit]; zero or less means DefaultMessageLimit
func (s *DeadLetterServiceImpl) Latest(ctx context.Context, queue string, limit int) ([]*deadletter.Message, error) {
	switch {
	case limit <= 0:
		limit = DefaultMessageLimit
	case limit > MaxMessageLimit:
		limit = MaxMessageLimit
	}
	return s.archive.Latest(ctx, queue, limit)
}

func (s *DeadLetterServiceImpl) Purge(ctx context.Context, queue string) (int64, error) {
	deleted, err := s.archive.Purge(ctx, queue)
	if err != nil {
		return 0, err
	}
	s.logger.Warn("Dead-letter queue purged through API", "queue", queue, "deleted", deleted)
	return deleted, nil
}
