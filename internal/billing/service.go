package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/nivaas-labs/nivaas/internal/platform/httpx"
)

// Bills fall due this many days into the billed period.
const dueDays = 10

// RepositoryPort abstracts billing persistence.
type RepositoryPort interface {
	CreateConfig(ctx context.Context, c *Config) error
	ListConfigs(ctx context.Context, societyID string) ([]Config, error)
	EffectiveConfigs(ctx context.Context, societyID, asOf string) ([]Config, error)
	ActiveResidents(ctx context.Context, societyID string) ([]Resident, error)
	CreateBill(ctx context.Context, b *Bill) error
	GetBill(ctx context.Context, societyID, id string) (*Bill, error)
	ListBills(ctx context.Context, req ListBillsRequest) ([]Bill, int, error)
	UpdateBill(ctx context.Context, b *Bill) error
}

// Auditor records billing actions.
type Auditor interface {
	Record(ctx context.Context, actorID, societyID, action, entity, entityID string, meta map[string]any)
}

// Service implements society billing.
type Service struct {
	repo   RepositoryPort
	audit  Auditor
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs the billing service.
func NewService(repo RepositoryPort, audit Auditor, logger *slog.Logger) *Service {
	return &Service{repo: repo, audit: audit, logger: logger, now: time.Now}
}

// DefineCharge creates a recurring charge definition.
func (s *Service) DefineCharge(ctx context.Context, actorID, societyID string, req ConfigRequest) (*Config, error) {
	c := &Config{
		ID:            uuid.NewString(),
		SocietyID:     societyID,
		Name:          req.Name,
		AmountPaise:   req.AmountPaise,
		EffectiveFrom: req.EffectiveFrom,
		CreatedBy:     actorID,
		CreatedAt:     s.now(),
	}
	if err := s.repo.CreateConfig(ctx, c); err != nil {
		return nil, err
	}
	if s.audit != nil {
		s.audit.Record(ctx, actorID, societyID, "billing.define_charge", "billing_config", c.ID,
			map[string]any{"name": c.Name, "amount": FormatINR(c.AmountPaise)})
	}
	return c, nil
}

// ListCharges returns a society's charge definitions.
func (s *Service) ListCharges(ctx context.Context, societyID string) ([]Config, error) {
	return s.repo.ListConfigs(ctx, societyID)
}

// GenerateDues creates one bill per resident per effective charge for the
// period ("YYYY-MM"). Already-billed flats count as skipped; a failing flat
// is reported and the run continues.
func (s *Service) GenerateDues(ctx context.Context, actorID, societyID string, req GenerateRequest) (*GenerationReport, error) {
	periodStart, err := time.Parse("2006-01", req.Period)
	if err != nil {
		return nil, fmt.Errorf("%w: period must be YYYY-MM", httpx.ErrValidation)
	}

	configs, err := s.repo.EffectiveConfigs(ctx, societyID, periodStart.Format("2006-01-02"))
	if err != nil {
		return nil, err
	}
	if len(configs) == 0 {
		return nil, fmt.Errorf("%w: no charge configured for %s", httpx.ErrValidation, req.Period)
	}

	residents, err := s.repo.ActiveResidents(ctx, societyID)
	if err != nil {
		return nil, err
	}

	report := &GenerationReport{Period: req.Period, Residents: len(residents)}
	dueDate := periodStart.AddDate(0, 0, dueDays)
	for _, res := range residents {
		for _, cfg := range configs {
			b := &Bill{
				ID:          uuid.NewString(),
				SocietyID:   societyID,
				UserID:      res.UserID,
				FlatNumber:  res.FlatNumber,
				ConfigID:    cfg.ID,
				Period:      req.Period,
				AmountPaise: cfg.AmountPaise,
				Status:      BillUnpaid,
				DueDate:     dueDate,
				CreatedAt:   s.now(),
			}
			switch err := s.repo.CreateBill(ctx, b); {
			case err == nil:
				report.Generated++
			case isDuplicate(err):
				report.Skipped++
			default:
				report.Failed++
				report.Errors = append(report.Errors,
					fmt.Sprintf("flat %s charge %s: %v", res.FlatNumber, cfg.Name, err))
				s.logger.Warn("bill generation failed",
					slog.String("flat", res.FlatNumber), slog.Any("error", err))
			}
		}
	}

	if s.audit != nil {
		s.audit.Record(ctx, actorID, societyID, "billing.generate_dues", "billing_run", req.Period,
			map[string]any{"generated": report.Generated, "skipped": report.Skipped, "failed": report.Failed})
	}
	return report, nil
}

// GetBill returns one bill with its formatted amount.
func (s *Service) GetBill(ctx context.Context, societyID, id string) (*Bill, error) {
	b, err := s.repo.GetBill(ctx, societyID, id)
	if err != nil {
		return nil, err
	}
	b.Amount = FormatINR(b.AmountPaise)
	return b, nil
}

// ListBills returns bills matching the filter with formatted amounts.
func (s *Service) ListBills(ctx context.Context, req ListBillsRequest) ([]Bill, int, error) {
	bills, total, err := s.repo.ListBills(ctx, req)
	if err != nil {
		return nil, 0, err
	}
	for i := range bills {
		bills[i].Amount = FormatINR(bills[i].AmountPaise)
	}
	return bills, total, nil
}

// RecordPayment marks a bill paid with the given mode and reference.
func (s *Service) RecordPayment(ctx context.Context, actorID, societyID, billID string, req PaymentRequest) (*Bill, error) {
	b, err := s.repo.GetBill(ctx, societyID, billID)
	if err != nil {
		return nil, err
	}
	if b.Status == BillPaid {
		return nil, fmt.Errorf("%w: bill already paid", httpx.ErrDuplicate)
	}
	now := s.now()
	b.Status = BillPaid
	b.PaidAt = &now
	b.PaymentMode = req.Mode
	b.PaymentRef = req.Ref
	if err := s.repo.UpdateBill(ctx, b); err != nil {
		return nil, err
	}
	if s.audit != nil {
		s.audit.Record(ctx, actorID, societyID, "billing.record_payment", "bill", b.ID,
			map[string]any{"mode": req.Mode, "amount": FormatINR(b.AmountPaise)})
	}
	b.Amount = FormatINR(b.AmountPaise)
	return b, nil
}

func isDuplicate(err error) bool {
	return errors.Is(err, httpx.ErrDuplicate)
}
