package visitors

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/nivaas-labs/nivaas/internal/platform/httpx"
)

// DefaultValidity is the pass window when the resident does not pick one.
const DefaultValidity = 24 * time.Hour

// RepositoryPort abstracts gate pass persistence.
type RepositoryPort interface {
	Create(ctx context.Context, p *GatePass) error
	Get(ctx context.Context, societyID, id string) (*GatePass, error)
	FindByCode(ctx context.Context, societyID, code string) (*GatePass, error)
	List(ctx context.Context, req ListRequest) ([]GatePass, int, error)
	Update(ctx context.Context, p *GatePass) error
	ExpireOverdue(ctx context.Context) (int64, error)
}

// Service implements the visitor gate pass workflow.
type Service struct {
	repo   RepositoryPort
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs the visitors service.
func NewService(repo RepositoryPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// Issue creates a gate pass with a fresh verification code.
func (s *Service) Issue(ctx context.Context, residentID, societyID string, req IssueRequest) (*GatePass, error) {
	now := s.now()
	validFrom := now
	if req.ValidFrom != nil {
		validFrom = *req.ValidFrom
	}
	validUntil := validFrom.Add(DefaultValidity)
	if req.ValidUntil != nil {
		validUntil = *req.ValidUntil
	}
	if !validUntil.After(validFrom) {
		return nil, fmt.Errorf("%w: validity window is empty", httpx.ErrValidation)
	}
	if validUntil.Before(now) {
		return nil, fmt.Errorf("%w: validity window is already past", httpx.ErrValidation)
	}

	p := &GatePass{
		ID:           uuid.NewString(),
		SocietyID:    societyID,
		ResidentID:   residentID,
		FlatNumber:   req.FlatNumber,
		VisitorName:  req.VisitorName,
		VisitorPhone: req.VisitorPhone,
		Purpose:      req.Purpose,
		Code:         uuid.NewString(),
		Status:       StatusPending,
		ValidFrom:    validFrom,
		ValidUntil:   validUntil,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Verify resolves a gate code to its pass. An unusable pass is a forbidden
// entry, not a missing one, so the guard sees why it was refused.
func (s *Service) Verify(ctx context.Context, societyID, code string) (*GatePass, error) {
	p, err := s.repo.FindByCode(ctx, societyID, code)
	if err != nil {
		return nil, err
	}
	if !p.Usable(s.now()) {
		return nil, fmt.Errorf("%w: pass is %s", httpx.ErrForbidden, p.Status)
	}
	return p, nil
}

// CheckIn admits the visitor against a verified code.
func (s *Service) CheckIn(ctx context.Context, societyID, code string) (*GatePass, error) {
	p, err := s.Verify(ctx, societyID, code)
	if err != nil {
		return nil, err
	}
	now := s.now()
	p.Status = StatusCheckedIn
	p.CheckedInAt = &now
	p.UpdatedAt = now
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// CheckOut records the visitor leaving.
func (s *Service) CheckOut(ctx context.Context, societyID, id string) (*GatePass, error) {
	p, err := s.repo.Get(ctx, societyID, id)
	if err != nil {
		return nil, err
	}
	if p.Status != StatusCheckedIn {
		return nil, fmt.Errorf("%w: visitor is not checked in", httpx.ErrValidation)
	}
	now := s.now()
	p.Status = StatusCheckedOut
	p.CheckedOutAt = &now
	p.UpdatedAt = now
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Cancel voids a pending pass. Only the issuing resident may cancel.
func (s *Service) Cancel(ctx context.Context, residentID, societyID, id string) (*GatePass, error) {
	p, err := s.repo.Get(ctx, societyID, id)
	if err != nil {
		return nil, err
	}
	if p.ResidentID != residentID {
		return nil, fmt.Errorf("%w: not your pass", httpx.ErrForbidden)
	}
	if p.Status != StatusPending {
		return nil, fmt.Errorf("%w: only pending passes can be cancelled", httpx.ErrValidation)
	}
	p.Status = StatusCancelled
	p.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Get returns one pass within the society partition.
func (s *Service) Get(ctx context.Context, societyID, id string) (*GatePass, error) {
	return s.repo.Get(ctx, societyID, id)
}

// List returns passes matching the filter.
func (s *Service) List(ctx context.Context, req ListRequest) ([]GatePass, int, error) {
	return s.repo.List(ctx, req)
}

// ExpireOverdue sweeps lapsed pending passes. Run from the periodic job.
func (s *Service) ExpireOverdue(ctx context.Context) (int64, error) {
	n, err := s.repo.ExpireOverdue(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("expired gate passes", slog.Int64("count", n))
	}
	return n, nil
}
