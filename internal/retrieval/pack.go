package retrieval

import (
	"strconv"
	"strings"

	"txcopilot/internal/records"
)

// Packed text is the single evidence representation: it is what gets
// embedded at index build time and what the generator reads at answer time.
// Field order is fixed; absent fields are omitted rather than rendered empty.

func appendField(parts []string, key, val string) []string {
	if val == "" {
		return parts
	}
	return append(parts, key+":"+val)
}

func appendFloat(parts []string, key string, v *float64) []string {
	if v == nil {
		return parts
	}
	return append(parts, key+":"+strconv.FormatFloat(*v, 'f', -1, 64))
}

func appendInt(parts []string, key string, v *int) []string {
	if v == nil {
		return parts
	}
	return append(parts, key+":"+strconv.Itoa(*v))
}

// PackTransaction renders a transaction as "key:value | key:value" evidence
// text, transactionId first.
func PackTransaction(t records.Transaction) string {
	parts := make([]string, 0, 10)
	parts = appendField(parts, "transactionId", t.TransactionID)
	parts = appendField(parts, "transactionType", t.TransactionType)
	parts = appendField(parts, "transactionStatus", t.TransactionStatus)
	parts = appendField(parts, "transactionDateTime", t.TransactionDateTime)
	parts = appendFloat(parts, "amount", t.Amount)
	parts = appendField(parts, "currencyCode", t.CurrencyCode)
	parts = appendFloat(parts, "endingBalance", t.EndingBalance)
	parts = appendField(parts, "merchantName", t.MerchantName)
	parts = appendField(parts, "merchantCategoryName", t.MerchantCategoryName)
	parts = appendField(parts, "accountId", t.AccountID)
	if t.DebitCreditIndicator != 0 {
		parts = append(parts, "debitCreditIndicator:"+strconv.Itoa(int(t.DebitCreditIndicator)))
	}
	parts = appendField(parts, "installmentPlanId", t.InstallmentPlanID)
	parts = appendInt(parts, "installmentTermNumber", t.InstallmentTermNumber)
	parts = appendInt(parts, "installmentTermTotal", t.InstallmentTermTotal)
	parts = appendFloat(parts, "installmentMonthlyAmount", t.InstallmentMonthlyAmount)
	return strings.Join(parts, " | ")
}

// PackAccount renders an account snapshot in the same style, accountId first.
func PackAccount(a records.AccountSummary) string {
	parts := make([]string, 0, 24)
	parts = appendField(parts, "accountId", a.AccountID)
	parts = appendField(parts, "accountNumberLast4", a.AccountNumberLast4)
	parts = appendField(parts, "accountStatus", a.AccountStatus)
	parts = appendField(parts, "accountType", a.AccountType)
	parts = appendField(parts, "productType", a.ProductType)
	parts = appendFloat(parts, "currentBalance", a.CurrentBalance)
	parts = appendFloat(parts, "currentAdjustedBalance", a.CurrentAdjustedBalance)
	parts = appendFloat(parts, "totalBalance", a.TotalBalance)
	parts = appendFloat(parts, "availableCredit", a.AvailableCredit)
	parts = appendFloat(parts, "creditLimit", a.CreditLimit)
	parts = appendFloat(parts, "minimumDueAmount", a.MinimumDueAmount)
	parts = appendFloat(parts, "pastDueAmount", a.PastDueAmount)
	parts = appendField(parts, "highestPriorityStatus", a.HighestPriorityStatus)
	parts = appendField(parts, "balanceStatus", a.BalanceStatus)
	parts = appendField(parts, "paymentDueDate", a.PaymentDueDate)
	parts = appendField(parts, "paymentDueDateTime", a.PaymentDueDateTime)
	parts = appendField(parts, "billingCycleOpenDateTime", a.BillingCycleOpen)
	parts = appendField(parts, "billingCycleCloseDateTime", a.BillingCycleClose)
	parts = appendField(parts, "lastUpdatedDate", a.LastUpdatedDate)
	parts = appendField(parts, "openedDate", a.OpenedDate)
	parts = appendField(parts, "closedDate", a.ClosedDate)
	parts = appendField(parts, "currencyCode", a.CurrencyCode)
	parts = appendField(parts, "flags", strings.Join(a.Flags, ", "))
	parts = appendField(parts, "subStatuses", strings.Join(a.SubStatuses, ", "))
	return strings.Join(parts, " | ")
}

// UnpackID recovers the record id from packed text. Round-trip property:
// UnpackID(PackTransaction(t)) == t.TransactionID whenever the id is set.
func UnpackID(text string) string {
	for _, field := range strings.Split(text, " | ") {
		key, val, ok := strings.Cut(field, ":")
		if !ok {
			continue
		}
		if key == "transactionId" || key == "accountId" {
			return val
		}
		// ids only ever lead the text
		break
	}
	return ""
}
