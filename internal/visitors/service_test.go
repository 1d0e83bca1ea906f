package visitors

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nivaas-labs/nivaas/internal/platform/httpx"
)

type mockPassRepo struct {
	items map[string]*GatePass
}

func newMockPassRepo() *mockPassRepo {
	return &mockPassRepo{items: map[string]*GatePass{}}
}

func (m *mockPassRepo) Create(_ context.Context, p *GatePass) error {
	cp := *p
	m.items[p.ID] = &cp
	return nil
}

func (m *mockPassRepo) Get(_ context.Context, societyID, id string) (*GatePass, error) {
	p, ok := m.items[id]
	if !ok || p.SocietyID != societyID {
		return nil, fmt.Errorf("%w: gate pass %s", httpx.ErrNotFound, id)
	}
	cp := *p
	return &cp, nil
}

func (m *mockPassRepo) FindByCode(_ context.Context, societyID, code string) (*GatePass, error) {
	for _, p := range m.items {
		if p.SocietyID == societyID && p.Code == code {
			cp := *p
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("%w: gate pass code", httpx.ErrNotFound)
}

func (m *mockPassRepo) List(_ context.Context, req ListRequest) ([]GatePass, int, error) {
	var out []GatePass
	for _, p := range m.items {
		if p.SocietyID == req.SocietyID && (req.Status == "" || p.Status == req.Status) {
			out = append(out, *p)
		}
	}
	return out, len(out), nil
}

func (m *mockPassRepo) Update(_ context.Context, p *GatePass) error {
	if _, ok := m.items[p.ID]; !ok {
		return fmt.Errorf("%w: gate pass %s", httpx.ErrNotFound, p.ID)
	}
	cp := *p
	m.items[p.ID] = &cp
	return nil
}

func (m *mockPassRepo) ExpireOverdue(_ context.Context) (int64, error) {
	var n int64
	now := time.Now()
	for _, p := range m.items {
		if p.Status == StatusPending && !p.ValidUntil.After(now) {
			p.Status = StatusExpired
			n++
		}
	}
	return n, nil
}

func newTestPassService(repo *mockPassRepo, now time.Time) *Service {
	svc := NewService(repo, slog.Default())
	svc.now = func() time.Time { return now }
	return svc
}

var baseTime = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func issueOne(t *testing.T, svc *Service) *GatePass {
	t.Helper()
	p, err := svc.Issue(context.Background(), "res-1", "soc-1", IssueRequest{
		VisitorName: "Courier",
		FlatNumber:  "A-101",
	})
	require.NoError(t, err)
	return p
}

func TestIssueDefaultsValidityWindow(t *testing.T) {
	svc := newTestPassService(newMockPassRepo(), baseTime)
	p := issueOne(t, svc)

	assert.Equal(t, StatusPending, p.Status)
	assert.NotEmpty(t, p.Code)
	assert.Equal(t, baseTime, p.ValidFrom)
	assert.Equal(t, baseTime.Add(DefaultValidity), p.ValidUntil)
}

func TestIssueRejectsEmptyWindow(t *testing.T) {
	svc := newTestPassService(newMockPassRepo(), baseTime)
	until := baseTime.Add(-time.Hour)
	_, err := svc.Issue(context.Background(), "res-1", "soc-1", IssueRequest{
		VisitorName: "Courier", FlatNumber: "A-101", ValidUntil: &until,
	})
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestVerifyAndCheckInFlow(t *testing.T) {
	repo := newMockPassRepo()
	svc := newTestPassService(repo, baseTime)
	p := issueOne(t, svc)

	got, err := svc.Verify(context.Background(), "soc-1", p.Code)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)

	checked, err := svc.CheckIn(context.Background(), "soc-1", p.Code)
	require.NoError(t, err)
	assert.Equal(t, StatusCheckedIn, checked.Status)
	require.NotNil(t, checked.CheckedInAt)

	out, err := svc.CheckOut(context.Background(), "soc-1", p.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCheckedOut, out.Status)
}

func TestVerifyRejectsExpiredWindow(t *testing.T) {
	repo := newMockPassRepo()
	svc := newTestPassService(repo, baseTime)
	p := issueOne(t, svc)

	svc.now = func() time.Time { return baseTime.Add(DefaultValidity + time.Minute) }
	_, err := svc.Verify(context.Background(), "soc-1", p.Code)
	assert.ErrorIs(t, err, httpx.ErrForbidden)
}

func TestVerifyRejectsWrongSociety(t *testing.T) {
	repo := newMockPassRepo()
	svc := newTestPassService(repo, baseTime)
	p := issueOne(t, svc)

	_, err := svc.Verify(context.Background(), "soc-2", p.Code)
	assert.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestCheckInTwiceIsRefused(t *testing.T) {
	repo := newMockPassRepo()
	svc := newTestPassService(repo, baseTime)
	p := issueOne(t, svc)

	_, err := svc.CheckIn(context.Background(), "soc-1", p.Code)
	require.NoError(t, err)

	_, err = svc.CheckIn(context.Background(), "soc-1", p.Code)
	assert.ErrorIs(t, err, httpx.ErrForbidden)
}

func TestCancelOnlyByIssuer(t *testing.T) {
	repo := newMockPassRepo()
	svc := newTestPassService(repo, baseTime)
	p := issueOne(t, svc)

	_, err := svc.Cancel(context.Background(), "res-2", "soc-1", p.ID)
	assert.ErrorIs(t, err, httpx.ErrForbidden)

	got, err := svc.Cancel(context.Background(), "res-1", "soc-1", p.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, got.Status)
}

func TestExpireOverdueSweep(t *testing.T) {
	repo := newMockPassRepo()
	svc := newTestPassService(repo, baseTime)
	p := issueOne(t, svc)

	repo.items[p.ID].ValidUntil = time.Now().Add(-time.Minute)
	n, err := svc.ExpireOverdue(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.Equal(t, StatusExpired, repo.items[p.ID].Status)
}
