package parking

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nivaas-labs/nivaas/internal/platform/httpx"
)

// RepositoryPort abstracts parking persistence.
type RepositoryPort interface {
	Create(ctx context.Context, s *Slot) error
	Get(ctx context.Context, societyID, id string) (*Slot, error)
	List(ctx context.Context, req ListRequest) ([]Slot, int, error)
	Allocate(ctx context.Context, s *Slot) error
	Release(ctx context.Context, societyID, id string) error
}

// Auditor records allocation changes.
type Auditor interface {
	Record(ctx context.Context, actorID, societyID, action, entity, entityID string, meta map[string]any)
}

// Service implements parking slot management.
type Service struct {
	repo  RepositoryPort
	audit Auditor
	now   func() time.Time
}

// NewService constructs the parking service.
func NewService(repo RepositoryPort, audit Auditor) *Service {
	return &Service{repo: repo, audit: audit, now: time.Now}
}

// CreateSlot registers a new parking space.
func (s *Service) CreateSlot(ctx context.Context, societyID string, req CreateSlotRequest) (*Slot, error) {
	slot := &Slot{
		ID:         uuid.NewString(),
		SocietyID:  societyID,
		SlotNumber: req.SlotNumber,
		Level:      req.Level,
		Kind:       req.Kind,
		Status:     SlotFree,
		CreatedAt:  s.now(),
		UpdatedAt:  s.now(),
	}
	if err := s.repo.Create(ctx, slot); err != nil {
		return nil, err
	}
	return slot, nil
}

// Allocate assigns a free slot to a resident. Allocating an occupied slot
// is a conflict, not an overwrite.
func (s *Service) Allocate(ctx context.Context, actorID, societyID, slotID string, req AllocateRequest) (*Slot, error) {
	slot, err := s.repo.Get(ctx, societyID, slotID)
	if err != nil {
		return nil, err
	}
	if slot.Status != SlotFree {
		return nil, fmt.Errorf("%w: slot %s is occupied", httpx.ErrDuplicate, slot.SlotNumber)
	}
	now := s.now()
	slot.Status = SlotAllocated
	slot.AllocatedTo = req.UserID
	slot.FlatNumber = req.FlatNumber
	slot.AllocatedAt = &now
	slot.UpdatedAt = now
	if err := s.repo.Allocate(ctx, slot); err != nil {
		return nil, err
	}
	if s.audit != nil {
		s.audit.Record(ctx, actorID, societyID, "parking.allocate", "parking_slot", slot.ID,
			map[string]any{"user_id": req.UserID, "flat": req.FlatNumber})
	}
	return slot, nil
}

// Release frees a slot.
func (s *Service) Release(ctx context.Context, actorID, societyID, slotID string) error {
	if err := s.repo.Release(ctx, societyID, slotID); err != nil {
		return err
	}
	if s.audit != nil {
		s.audit.Record(ctx, actorID, societyID, "parking.release", "parking_slot", slotID, nil)
	}
	return nil
}

// Get returns one slot within the society partition.
func (s *Service) Get(ctx context.Context, societyID, id string) (*Slot, error) {
	return s.repo.Get(ctx, societyID, id)
}

// List returns slots matching the filter.
func (s *Service) List(ctx context.Context, req ListRequest) ([]Slot, int, error) {
	return s.repo.List(ctx, req)
}
