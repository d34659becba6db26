package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EvaluationContext describes a single withdrawal/expense request at the
// moment it is checked against policy. It is built once per evaluation and
// never mutated by the engine.
type EvaluationContext struct {
	Amount          decimal.Decimal        `json:"amount"`
	Currency        string                 `json:"currency"`
	TransactionType string                 `json:"transaction_type,omitempty"`
	Initiator       string                 `json:"initiator,omitempty"`
	Timestamp       time.Time              `json:"timestamp"`
	Metadata        map[string]interface{} `json:"metadata,omitempty"`
}

func NewEvaluationContext(amount decimal.Decimal, currency string) *EvaluationContext {
	return &EvaluationContext{
		Amount:    amount,
		Currency:  currency,
		Timestamp: time.Now(),
		Metadata:  make(map[string]interface{}),
	}
}

func (ec *EvaluationContext) WithTransactionType(transactionType string) *EvaluationContext {
	ec.TransactionType = transactionType
	return ec
}

func (ec *EvaluationContext) WithInitiator(initiator string) *EvaluationContext {
	ec.Initiator = initiator
	return ec
}

func (ec *EvaluationContext) WithTimestamp(ts time.Time) *EvaluationContext {
	ec.Timestamp = ts
	return ec
}

func (ec *EvaluationContext) AddMetadata(key string, value interface{}) {
	if ec.Metadata == nil {
		ec.Metadata = make(map[string]interface{})
	}
	ec.Metadata[key] = value
}
