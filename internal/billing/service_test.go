package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nivaas-labs/nivaas/internal/platform/httpx"
)

type mockBillingRepo struct {
	configs   []Config
	bills     map[string]*Bill
	residents []Resident
	failUser  string
}

func newMockBillingRepo() *mockBillingRepo {
	return &mockBillingRepo{bills: map[string]*Bill{}}
}

func (m *mockBillingRepo) CreateConfig(_ context.Context, c *Config) error {
	for _, existing := range m.configs {
		if existing.SocietyID == c.SocietyID && existing.Name == c.Name && existing.EffectiveFrom.Equal(c.EffectiveFrom) {
			return fmt.Errorf("%w: config %q already effective from that date", httpx.ErrDuplicate, c.Name)
		}
	}
	m.configs = append(m.configs, *c)
	return nil
}

func (m *mockBillingRepo) ListConfigs(_ context.Context, societyID string) ([]Config, error) {
	var out []Config
	for _, c := range m.configs {
		if c.SocietyID == societyID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockBillingRepo) EffectiveConfigs(_ context.Context, societyID, asOf string) ([]Config, error) {
	cutoff, err := time.Parse("2006-01-02", asOf)
	if err != nil {
		return nil, err
	}
	latest := map[string]Config{}
	for _, c := range m.configs {
		if c.SocietyID != societyID || c.EffectiveFrom.After(cutoff) {
			continue
		}
		if cur, ok := latest[c.Name]; !ok || c.EffectiveFrom.After(cur.EffectiveFrom) {
			latest[c.Name] = c
		}
	}
	var out []Config
	for _, c := range latest {
		out = append(out, c)
	}
	return out, nil
}

func (m *mockBillingRepo) ActiveResidents(_ context.Context, _ string) ([]Resident, error) {
	return m.residents, nil
}

func (m *mockBillingRepo) CreateBill(_ context.Context, b *Bill) error {
	if b.UserID == m.failUser {
		return errors.New("connection reset")
	}
	for _, existing := range m.bills {
		if existing.UserID == b.UserID && existing.ConfigID == b.ConfigID && existing.Period == b.Period {
			return fmt.Errorf("%w: bill already generated", httpx.ErrDuplicate)
		}
	}
	cp := *b
	m.bills[b.ID] = &cp
	return nil
}

func (m *mockBillingRepo) GetBill(_ context.Context, societyID, id string) (*Bill, error) {
	b, ok := m.bills[id]
	if !ok || b.SocietyID != societyID {
		return nil, fmt.Errorf("%w: bill %s", httpx.ErrNotFound, id)
	}
	cp := *b
	return &cp, nil
}

func (m *mockBillingRepo) ListBills(_ context.Context, req ListBillsRequest) ([]Bill, int, error) {
	var out []Bill
	for _, b := range m.bills {
		if b.SocietyID == req.SocietyID && (req.UserID == "" || b.UserID == req.UserID) {
			out = append(out, *b)
		}
	}
	return out, len(out), nil
}

func (m *mockBillingRepo) UpdateBill(_ context.Context, b *Bill) error {
	if _, ok := m.bills[b.ID]; !ok {
		return fmt.Errorf("%w: bill %s", httpx.ErrNotFound, b.ID)
	}
	cp := *b
	m.bills[b.ID] = &cp
	return nil
}

func newTestBillingService(repo *mockBillingRepo) *Service {
	svc := NewService(repo, nil, slog.Default())
	svc.now = func() time.Time { return time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC) }
	return svc
}

func defineMaintenance(t *testing.T, svc *Service) *Config {
	t.Helper()
	c, err := svc.DefineCharge(context.Background(), "admin-1", "soc-1", ConfigRequest{
		Name:          "maintenance",
		AmountPaise:   350000,
		EffectiveFrom: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return c
}

func TestFormatINRUsesIndianGrouping(t *testing.T) {
	assert.Equal(t, "₹3,500.00", FormatINR(350000))
	assert.Equal(t, "₹12,34,567.89", FormatINR(123456789))
	assert.Equal(t, "₹0.50", FormatINR(50))
}

func TestDefineChargeDuplicateEffectiveDateConflicts(t *testing.T) {
	svc := newTestBillingService(newMockBillingRepo())
	defineMaintenance(t, svc)

	_, err := svc.DefineCharge(context.Background(), "admin-1", "soc-1", ConfigRequest{
		Name:          "maintenance",
		AmountPaise:   400000,
		EffectiveFrom: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	assert.ErrorIs(t, err, httpx.ErrDuplicate)
}

func TestGenerateDuesBillsEveryResident(t *testing.T) {
	repo := newMockBillingRepo()
	repo.residents = []Resident{
		{UserID: "u1", FlatNumber: "A-101"},
		{UserID: "u2", FlatNumber: "A-102"},
	}
	svc := newTestBillingService(repo)
	defineMaintenance(t, svc)

	report, err := svc.GenerateDues(context.Background(), "admin-1", "soc-1", GenerateRequest{Period: "2026-03"})
	require.NoError(t, err)

	assert.Equal(t, 2, report.Residents)
	assert.Equal(t, 2, report.Generated)
	assert.Zero(t, report.Skipped)
	assert.Zero(t, report.Failed)
	assert.Len(t, repo.bills, 2)
}

func TestGenerateDuesIsIdempotent(t *testing.T) {
	repo := newMockBillingRepo()
	repo.residents = []Resident{{UserID: "u1", FlatNumber: "A-101"}}
	svc := newTestBillingService(repo)
	defineMaintenance(t, svc)

	_, err := svc.GenerateDues(context.Background(), "admin-1", "soc-1", GenerateRequest{Period: "2026-03"})
	require.NoError(t, err)

	report, err := svc.GenerateDues(context.Background(), "admin-1", "soc-1", GenerateRequest{Period: "2026-03"})
	require.NoError(t, err)
	assert.Zero(t, report.Generated)
	assert.Equal(t, 1, report.Skipped)
	assert.Len(t, repo.bills, 1)
}

func TestGenerateDuesContinuesPastFailures(t *testing.T) {
	repo := newMockBillingRepo()
	repo.residents = []Resident{
		{UserID: "u1", FlatNumber: "A-101"},
		{UserID: "u2", FlatNumber: "A-102"},
		{UserID: "u3", FlatNumber: "A-103"},
	}
	repo.failUser = "u2"
	svc := newTestBillingService(repo)
	defineMaintenance(t, svc)

	report, err := svc.GenerateDues(context.Background(), "admin-1", "soc-1", GenerateRequest{Period: "2026-03"})
	require.NoError(t, err)

	assert.Equal(t, 2, report.Generated)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0], "A-102")
}

func TestGenerateDuesRejectsBadPeriodAndNoConfig(t *testing.T) {
	svc := newTestBillingService(newMockBillingRepo())

	_, err := svc.GenerateDues(context.Background(), "admin-1", "soc-1", GenerateRequest{Period: "March"})
	assert.ErrorIs(t, err, httpx.ErrValidation)

	_, err = svc.GenerateDues(context.Background(), "admin-1", "soc-1", GenerateRequest{Period: "2026-03"})
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestGenerateDuesUsesLatestEffectiveConfig(t *testing.T) {
	repo := newMockBillingRepo()
	repo.residents = []Resident{{UserID: "u1", FlatNumber: "A-101"}}
	svc := newTestBillingService(repo)
	defineMaintenance(t, svc)

	_, err := svc.DefineCharge(context.Background(), "admin-1", "soc-1", ConfigRequest{
		Name:          "maintenance",
		AmountPaise:   500000,
		EffectiveFrom: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	_, err = svc.GenerateDues(context.Background(), "admin-1", "soc-1", GenerateRequest{Period: "2026-03"})
	require.NoError(t, err)

	for _, b := range repo.bills {
		assert.EqualValues(t, 500000, b.AmountPaise)
	}
}

func TestRecordPaymentMarksPaidOnce(t *testing.T) {
	repo := newMockBillingRepo()
	repo.residents = []Resident{{UserID: "u1", FlatNumber: "A-101"}}
	svc := newTestBillingService(repo)
	defineMaintenance(t, svc)

	_, err := svc.GenerateDues(context.Background(), "admin-1", "soc-1", GenerateRequest{Period: "2026-03"})
	require.NoError(t, err)

	var billID string
	for id := range repo.bills {
		billID = id
	}

	b, err := svc.RecordPayment(context.Background(), "admin-1", "soc-1", billID, PaymentRequest{
		Mode: ModeUPI, Ref: "upi-123",
	})
	require.NoError(t, err)
	assert.Equal(t, BillPaid, b.Status)
	assert.Equal(t, "₹3,500.00", b.Amount)
	require.NotNil(t, b.PaidAt)

	_, err = svc.RecordPayment(context.Background(), "admin-1", "soc-1", billID, PaymentRequest{Mode: ModeCash})
	assert.ErrorIs(t, err, httpx.ErrDuplicate)
}
