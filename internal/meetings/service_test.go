package meetings

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nivaas-labs/nivaas/internal/platform/httpx"
)

type mockMeetingRepo struct {
	items map[string]*Meeting
	rsvps map[string]map[string]RSVP
}

func newMockMeetingRepo() *mockMeetingRepo {
	return &mockMeetingRepo{
		items: map[string]*Meeting{},
		rsvps: map[string]map[string]RSVP{},
	}
}

func (m *mockMeetingRepo) Create(_ context.Context, mt *Meeting) error {
	cp := *mt
	m.items[mt.ID] = &cp
	return nil
}

func (m *mockMeetingRepo) Get(_ context.Context, societyID, id string) (*Meeting, error) {
	mt, ok := m.items[id]
	if !ok || mt.SocietyID != societyID {
		return nil, fmt.Errorf("%w: meeting %s", httpx.ErrNotFound, id)
	}
	cp := *mt
	return &cp, nil
}

func (m *mockMeetingRepo) List(_ context.Context, req ListRequest) ([]Meeting, int, error) {
	var out []Meeting
	for _, mt := range m.items {
		if mt.SocietyID == req.SocietyID {
			out = append(out, *mt)
		}
	}
	return out, len(out), nil
}

func (m *mockMeetingRepo) Update(_ context.Context, mt *Meeting) error {
	if _, ok := m.items[mt.ID]; !ok {
		return fmt.Errorf("%w: meeting %s", httpx.ErrNotFound, mt.ID)
	}
	cp := *mt
	m.items[mt.ID] = &cp
	return nil
}

func (m *mockMeetingRepo) SaveRSVP(_ context.Context, v *RSVP) error {
	if m.rsvps[v.MeetingID] == nil {
		m.rsvps[v.MeetingID] = map[string]RSVP{}
	}
	m.rsvps[v.MeetingID][v.UserID] = *v
	return nil
}

func (m *mockMeetingRepo) ListRSVPs(_ context.Context, meetingID string) ([]RSVP, error) {
	var out []RSVP
	for _, v := range m.rsvps[meetingID] {
		out = append(out, v)
	}
	return out, nil
}

var meetingNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func newTestMeetingService(repo *mockMeetingRepo) *Service {
	svc := NewService(repo, nil)
	svc.now = func() time.Time { return meetingNow }
	return svc
}

func scheduleOne(t *testing.T, svc *Service) *Meeting {
	t.Helper()
	m, err := svc.Schedule(context.Background(), "admin-1", "soc-1", ScheduleRequest{
		Title:       "Annual general body meeting",
		Venue:       "Clubhouse",
		ScheduledAt: meetingNow.Add(48 * time.Hour),
	})
	require.NoError(t, err)
	return m
}

func TestScheduleRejectsPastTime(t *testing.T) {
	svc := newTestMeetingService(newMockMeetingRepo())
	_, err := svc.Schedule(context.Background(), "admin-1", "soc-1", ScheduleRequest{
		Title:       "Retro",
		Venue:       "Clubhouse",
		ScheduledAt: meetingNow.Add(-time.Hour),
	})
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestRSVPReplacesPreviousAnswer(t *testing.T) {
	repo := newMockMeetingRepo()
	svc := newTestMeetingService(repo)
	m := scheduleOne(t, svc)

	_, err := svc.Respond(context.Background(), "res-1", "soc-1", m.ID, RSVPRequest{Response: RSVPYes})
	require.NoError(t, err)
	_, err = svc.Respond(context.Background(), "res-1", "soc-1", m.ID, RSVPRequest{Response: RSVPNo})
	require.NoError(t, err)

	sheet, err := svc.Attendance(context.Background(), "soc-1", m.ID)
	require.NoError(t, err)
	require.Len(t, sheet, 1)
	assert.Equal(t, RSVPNo, sheet[0].Response)
}

func TestRSVPRefusedAfterCancelOrStart(t *testing.T) {
	repo := newMockMeetingRepo()
	svc := newTestMeetingService(repo)

	cancelled := scheduleOne(t, svc)
	_, err := svc.Cancel(context.Background(), "admin-1", "soc-1", cancelled.ID)
	require.NoError(t, err)
	_, err = svc.Respond(context.Background(), "res-1", "soc-1", cancelled.ID, RSVPRequest{Response: RSVPYes})
	assert.ErrorIs(t, err, httpx.ErrValidation)

	started := scheduleOne(t, svc)
	svc.now = func() time.Time { return started.ScheduledAt.Add(time.Minute) }
	_, err = svc.Respond(context.Background(), "res-1", "soc-1", started.ID, RSVPRequest{Response: RSVPYes})
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestCancelTwiceFails(t *testing.T) {
	svc := newTestMeetingService(newMockMeetingRepo())
	m := scheduleOne(t, svc)

	_, err := svc.Cancel(context.Background(), "admin-1", "soc-1", m.ID)
	require.NoError(t, err)
	_, err = svc.Cancel(context.Background(), "admin-1", "soc-1", m.ID)
	assert.ErrorIs(t, err, httpx.ErrValidation)
}
