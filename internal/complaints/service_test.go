package complaints

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nivaas-labs/nivaas/internal/platform/httpx"
)

type mockComplaintRepo struct {
	items map[string]*Complaint
}

func newMockComplaintRepo() *mockComplaintRepo {
	return &mockComplaintRepo{items: map[string]*Complaint{}}
}

func (m *mockComplaintRepo) Create(_ context.Context, c *Complaint) error {
	cp := *c
	m.items[c.ID] = &cp
	return nil
}

func (m *mockComplaintRepo) Get(_ context.Context, societyID, id string) (*Complaint, error) {
	c, ok := m.items[id]
	if !ok || c.SocietyID != societyID {
		return nil, fmt.Errorf("%w: complaint %s", httpx.ErrNotFound, id)
	}
	cp := *c
	return &cp, nil
}

func (m *mockComplaintRepo) List(_ context.Context, req ListRequest) ([]Complaint, int, error) {
	var out []Complaint
	for _, c := range m.items {
		if c.SocietyID == req.SocietyID && (req.Status == "" || c.Status == req.Status) {
			out = append(out, *c)
		}
	}
	return out, len(out), nil
}

func (m *mockComplaintRepo) Update(_ context.Context, c *Complaint) error {
	if _, ok := m.items[c.ID]; !ok {
		return fmt.Errorf("%w: complaint %s", httpx.ErrNotFound, c.ID)
	}
	cp := *c
	m.items[c.ID] = &cp
	return nil
}

func newTestComplaintService(repo *mockComplaintRepo) *Service {
	svc := NewService(repo, nil)
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }
	return svc
}

func raiseOne(t *testing.T, svc *Service) *Complaint {
	t.Helper()
	c, err := svc.Raise(context.Background(), "res-1", "soc-1", RaiseRequest{
		Category:    CategoryMaintenance,
		Subject:     "Lift stuck on 3rd floor",
		Description: "The lift has been stuck since morning.",
		FlatNumber:  "B-304",
	})
	require.NoError(t, err)
	return c
}

func TestRaiseStartsOpen(t *testing.T) {
	svc := newTestComplaintService(newMockComplaintRepo())
	c := raiseOne(t, svc)

	assert.Equal(t, StatusOpen, c.Status)
	assert.Equal(t, "res-1", c.RaisedBy)
	assert.Nil(t, c.ResolvedAt)
}

func TestTransitionHappyPath(t *testing.T) {
	svc := newTestComplaintService(newMockComplaintRepo())
	c := raiseOne(t, svc)
	ctx := context.Background()

	c, err := svc.Transition(ctx, "admin-1", "soc-1", c.ID, TransitionRequest{
		Status: StatusInProgress, AssignedTo: "fm-1",
	})
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, c.Status)
	assert.Equal(t, "fm-1", c.AssignedTo)

	c, err = svc.Transition(ctx, "admin-1", "soc-1", c.ID, TransitionRequest{
		Status: StatusResolved, Resolution: "Motor replaced",
	})
	require.NoError(t, err)
	assert.Equal(t, StatusResolved, c.Status)
	require.NotNil(t, c.ResolvedAt)

	c, err = svc.Transition(ctx, "admin-1", "soc-1", c.ID, TransitionRequest{Status: StatusClosed})
	require.NoError(t, err)
	assert.Equal(t, StatusClosed, c.Status)
}

func TestTransitionRejectsIllegalMoves(t *testing.T) {
	svc := newTestComplaintService(newMockComplaintRepo())
	ctx := context.Background()

	cases := []struct {
		name string
		prep []string
		to   string
	}{
		{name: "open to closed", to: StatusClosed},
		{name: "in_progress to open", prep: []string{StatusInProgress}, to: StatusOpen},
		{name: "closed is terminal", prep: []string{StatusInProgress, StatusResolved, StatusClosed}, to: StatusOpen},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := raiseOne(t, svc)
			for _, step := range tc.prep {
				req := TransitionRequest{Status: step}
				if step == StatusResolved {
					req.Resolution = "done"
				}
				_, err := svc.Transition(ctx, "admin-1", "soc-1", c.ID, req)
				require.NoError(t, err)
			}
			_, err := svc.Transition(ctx, "admin-1", "soc-1", c.ID, TransitionRequest{Status: tc.to})
			assert.ErrorIs(t, err, httpx.ErrValidation)
		})
	}
}

func TestResolveRequiresResolutionNote(t *testing.T) {
	svc := newTestComplaintService(newMockComplaintRepo())
	c := raiseOne(t, svc)

	_, err := svc.Transition(context.Background(), "admin-1", "soc-1", c.ID, TransitionRequest{Status: StatusResolved})
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestReopenClearsResolution(t *testing.T) {
	svc := newTestComplaintService(newMockComplaintRepo())
	c := raiseOne(t, svc)
	ctx := context.Background()

	_, err := svc.Transition(ctx, "admin-1", "soc-1", c.ID, TransitionRequest{
		Status: StatusResolved, Resolution: "Could not reproduce",
	})
	require.NoError(t, err)

	c, err = svc.Transition(ctx, "res-1", "soc-1", c.ID, TransitionRequest{Status: StatusOpen})
	require.NoError(t, err)
	assert.Empty(t, c.Resolution)
	assert.Nil(t, c.ResolvedAt)
}
