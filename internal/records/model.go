// Package records holds the canonical transaction and account records and the
// in-memory store the rest of the pipeline reads from. Records are immutable
// after load; the store hands out copies so callers can never mutate shared
// state.
package records

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Indicator is a debit/credit marker that arrives from upstream feeds as
// either a JSON number or a quoted string ("1", "-1"). Zero means absent.
type Indicator int

const (
	IndicatorCredit Indicator = -1
	IndicatorDebit  Indicator = 1
)

// UnmarshalJSON accepts numeric and string encodings of the indicator.
func (i *Indicator) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if s == "" || s == "null" {
		*i = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		*i = 0
		return nil
	}
	*i = Indicator(n)
	return nil
}

// MarshalJSON renders the indicator as a plain number.
func (i Indicator) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Itoa(int(i))), nil
}

// Transaction is a single ledger entry. All fields are optional because the
// upstream feed is sparse; pointer fields distinguish absent from zero.
type Transaction struct {
	TransactionID        string    `json:"transactionId,omitempty"`
	AccountID            string    `json:"accountId,omitempty"`
	PersonID             string    `json:"personId,omitempty"`
	TransactionType      string    `json:"transactionType,omitempty"`
	TransactionStatus    string    `json:"transactionStatus,omitempty"`
	Amount               *float64  `json:"amount,omitempty"`
	TransactionDateTime  string    `json:"transactionDateTime,omitempty"`
	CurrencyCode         string    `json:"currencyCode,omitempty"`
	MerchantName         string    `json:"merchantName,omitempty"`
	MerchantCategoryName string    `json:"merchantCategoryName,omitempty"`
	EndingBalance        *float64  `json:"endingBalance,omitempty"`
	DebitCreditIndicator Indicator `json:"debitCreditIndicator,omitempty"`

	// Installment plan fields, present only on plan-linked rows.
	InstallmentPlanID        string   `json:"installmentPlanId,omitempty"`
	InstallmentTermNumber    *int     `json:"installmentTermNumber,omitempty"`
	InstallmentTermTotal     *int     `json:"installmentTermTotal,omitempty"`
	InstallmentMonthlyAmount *float64 `json:"installmentMonthlyAmount,omitempty"`
}

// ID returns the stable identifier, empty when the row has none.
func (t Transaction) ID() string { return t.TransactionID }

// AmountValue returns the amount or 0 when absent.
func (t Transaction) AmountValue() float64 {
	if t.Amount == nil {
		return 0
	}
	return *t.Amount
}

// IsPosted reports whether the transaction has settled.
func (t Transaction) IsPosted() bool {
	return strings.EqualFold(t.TransactionStatus, "POSTED")
}

// IsCredit reports whether the row is a credit, strictly by indicator.
func (t Transaction) IsCredit() bool { return t.DebitCreditIndicator == IndicatorCredit }

// IsDebit reports whether the row is a debit, strictly by indicator.
func (t Transaction) IsDebit() bool { return t.DebitCreditIndicator == IndicatorDebit }

// AccountSummary is a point-in-time account snapshot. Multiple snapshots for
// the same account may coexist; the one with the newest lastUpdatedDate is
// authoritative.
type AccountSummary struct {
	AccountID              string   `json:"accountId,omitempty"`
	AccountNumberLast4     string   `json:"accountNumberLast4,omitempty"`
	AccountStatus          string   `json:"accountStatus,omitempty"`
	AccountType            string   `json:"accountType,omitempty"`
	ProductType            string   `json:"productType,omitempty"`
	CurrentBalance         *float64 `json:"currentBalance,omitempty"`
	CurrentAdjustedBalance *float64 `json:"currentAdjustedBalance,omitempty"`
	TotalBalance           *float64 `json:"totalBalance,omitempty"`
	AvailableCredit        *float64 `json:"availableCredit,omitempty"`
	CreditLimit            *float64 `json:"creditLimit,omitempty"`
	MinimumDueAmount       *float64 `json:"minimumDueAmount,omitempty"`
	PastDueAmount          *float64 `json:"pastDueAmount,omitempty"`
	HighestPriorityStatus  string   `json:"highestPriorityStatus,omitempty"`
	BalanceStatus          string   `json:"balanceStatus,omitempty"`
	PaymentDueDate         string   `json:"paymentDueDate,omitempty"`
	PaymentDueDateTime     string   `json:"paymentDueDateTime,omitempty"`
	BillingCycleOpen       string   `json:"billingCycleOpenDateTime,omitempty"`
	BillingCycleClose      string   `json:"billingCycleCloseDateTime,omitempty"`
	LastUpdatedDate        string   `json:"lastUpdatedDate,omitempty"`
	OpenedDate             string   `json:"openedDate,omitempty"`
	ClosedDate             string   `json:"closedDate,omitempty"`
	CurrencyCode           string   `json:"currencyCode,omitempty"`
	Flags                  []string `json:"flags,omitempty"`
	SubStatuses            []string `json:"subStatuses,omitempty"`
}

// MarshalCompact renders a record as single-line JSON for prompt evidence.
func MarshalCompact(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
