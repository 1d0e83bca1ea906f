package billing

import (
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Bill lifecycle states.
const (
	BillUnpaid  = "unpaid"
	BillPaid    = "paid"
	BillWaived  = "waived"
	BillOverdue = "overdue"
)

// Payment modes accepted at the society office.
const (
	ModeUPI      = "upi"
	ModeCard     = "card"
	ModeTransfer = "bank_transfer"
	ModeCash     = "cash"
)

var inrPrinter = message.NewPrinter(language.MustParse("en-IN"))

// FormatINR renders paise as a rupee string with Indian digit grouping.
func FormatINR(paise int64) string {
	return inrPrinter.Sprintf("₹%.2f", float64(paise)/100)
}

// Config is a recurring charge definition for a society. One config per
// (society, name, effective date); overlapping effective dates conflict.
type Config struct {
	ID            string    `json:"id"`
	SocietyID     string    `json:"societyId"`
	Name          string    `json:"name"`
	AmountPaise   int64     `json:"amountPaise"`
	EffectiveFrom time.Time `json:"effectiveFrom"`
	CreatedBy     string    `json:"createdBy"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Bill is one period's charge against a flat.
type Bill struct {
	ID          string     `json:"id"`
	SocietyID   string     `json:"societyId"`
	UserID      string     `json:"userId"`
	FlatNumber  string     `json:"flatNumber"`
	ConfigID    string     `json:"configId"`
	Period      string     `json:"period"`
	AmountPaise int64      `json:"amountPaise"`
	Amount      string     `json:"amount"`
	Status      string     `json:"status"`
	DueDate     time.Time  `json:"dueDate"`
	PaidAt      *time.Time `json:"paidAt,omitempty"`
	PaymentMode string     `json:"paymentMode,omitempty"`
	PaymentRef  string     `json:"paymentRef,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// Resident is the slice of a user record dues generation needs.
type Resident struct {
	UserID     string
	FlatNumber string
}

// GenerationReport summarizes one dues run. A failed flat never aborts the
// rest of the run.
type GenerationReport struct {
	Period    string   `json:"period"`
	Residents int      `json:"residents"`
	Generated int      `json:"generated"`
	Skipped   int      `json:"skipped"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors,omitempty"`
}

type ConfigRequest struct {
	Name          string    `json:"name" validate:"required,max=100"`
	AmountPaise   int64     `json:"amountPaise" validate:"required,gt=0"`
	EffectiveFrom time.Time `json:"effectiveFrom" validate:"required"`
}

type GenerateRequest struct {
	Period string `json:"period" validate:"required,len=7"`
}

type PaymentRequest struct {
	Mode string `json:"mode" validate:"required,oneof=upi card bank_transfer cash"`
	Ref  string `json:"ref,omitempty" validate:"omitempty,max=100"`
}

type ListBillsRequest struct {
	SocietyID string
	UserID    string
	Period    string
	Status    string
	Limit     int
	Offset    int
}
