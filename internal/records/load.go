package records

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// ErrDataNotFound indicates the record source is missing or empty. The engine
// treats this as fatal: no retrieval can be grounded without records.
var ErrDataNotFound = errors.New("records: data not found")

// txEnvelope tolerates both a bare array and a {"transactions": [...]} wrapper.
type txEnvelope struct {
	Transactions []Transaction `json:"transactions"`
}

type acctEnvelope struct {
	Accounts []AccountSummary `json:"accounts"`
}

// ParseTransactions decodes a transaction payload from either supported shape.
func ParseTransactions(data []byte) ([]Transaction, error) {
	var bare []Transaction
	if err := json.Unmarshal(data, &bare); err == nil {
		return bare, nil
	}
	var env txEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("records: decode transactions: %w", err)
	}
	if env.Transactions == nil {
		return nil, fmt.Errorf("records: payload has no transactions key")
	}
	return env.Transactions, nil
}

// ParseAccounts decodes an account payload from either supported shape.
func ParseAccounts(data []byte) ([]AccountSummary, error) {
	var bare []AccountSummary
	if err := json.Unmarshal(data, &bare); err == nil {
		return bare, nil
	}
	var env acctEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("records: decode accounts: %w", err)
	}
	if env.Accounts == nil {
		return nil, fmt.Errorf("records: payload has no accounts key")
	}
	return env.Accounts, nil
}

// LoadTransactions reads and decodes the transaction file at path.
func LoadTransactions(path string) ([]Transaction, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrDataNotFound, path)
		}
		return nil, fmt.Errorf("records: read %s: %w", path, err)
	}
	return ParseTransactions(data)
}

// LoadAccounts reads and decodes the account snapshot file at path. A missing
// account file is not fatal; callers decide whether to proceed without
// balance data.
func LoadAccounts(path string) ([]AccountSummary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrDataNotFound, path)
		}
		return nil, fmt.Errorf("records: read %s: %w", path, err)
	}
	return ParseAccounts(data)
}
