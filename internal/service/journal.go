package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"line_supervisor/internal/models"
	"line_supervisor/internal/repository"
)

type JournalService struct {
	repo repository.JournalRepo
}

func NewJournalService(repo repository.JournalRepo) *JournalService {
	return &JournalService{repo: repo}
}

var errInvalidTimeRange = errors.New("invalid time range: from must be <= to")

// normalizeToUTC returns t in UTC, preserving zero time values.
func normalizeToUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}

func normalizeEventType(s string) string {
	return strings.TrimSpace(strings.ToUpper(s))
}

// normalizeAndValidateFilter prepares query parameters and validates the time range.
func normalizeAndValidateFilter(f LogFilter) (time.Time, time.Time, string, error) {
	from := normalizeToUTC(f.From)
	to := normalizeToUTC(f.To)
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return time.Time{}, time.Time{}, "", errInvalidTimeRange
	}
	return from, to, normalizeEventType(f.Type), nil
}

func (s *JournalService) ListJournal(ctx context.Context, f LogFilter) ([]models.JournalEvent, error) {
	from, to, typ, err := normalizeAndValidateFilter(f)
	if err != nil {
		return nil, &Error{Code: CodeValidation, Message: err.Error(), Err: err}
	}
	out, err := s.repo.List(ctx, from, to, typ)
	if err != nil {
		return nil, AsError(err)
	}
	return out, nil
}

func (s *JournalService) append(ctx context.Context, typ, desc string, meta map[string]any) error {
	e := models.JournalEvent{
		OccurredAt:  time.Now().UTC(),
		Type:        typ,
		Description: desc,
	}
	if meta != nil {
		e.Metadata = meta
	}
	return s.repo.Append(ctx, e)
}
