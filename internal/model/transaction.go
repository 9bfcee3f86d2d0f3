package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is the unit of work flowing through the pipeline. The wire
// field names (including the "receipientId" spelling) are the producer's
// contract; inbound JSON is matched case-insensitively by encoding/json.
type Transaction struct {
	TransactionID     int64           `json:"transactionId"`
	Amount            decimal.Decimal `json:"amount"`
	TimeOfTransaction time.Time       `json:"timeOfTransaction"`
	AccountID         int64           `json:"accountId"`
	ReceipientID      int64           `json:"receipientId"`
	Location          string          `json:"location"`
	Device            string          `json:"device"`
	Category          string          `json:"category"`
	IsFraud           bool            `json:"isFraud"`
	FraudReason       string          `json:"fraudReason,omitempty"`
}

// FraudVerdict is the outcome of one rule-engine evaluation. Reason holds the
// triggered rule descriptions joined by ", " in evaluation order.
type FraudVerdict struct {
	IsFraud bool   `json:"isFraud"`
	Reason  string `json:"reason"`
}

// FlaggedLocation is a row of the flagged-locations reference table.
type FlaggedLocation struct {
	ID        int64     `json:"id"`
	Location  string    `json:"location"`
	FlaggedAt time.Time `json:"flaggedAt"`
}

// FlaggedDevice is a row of the flagged-devices reference table.
type FlaggedDevice struct {
	ID         int64     `json:"id"`
	DeviceName string    `json:"deviceName"`
	FlaggedAt  time.Time `json:"flaggedAt"`
}

// FlaggedAccount is a row of the flagged-accounts reference table.
type FlaggedAccount struct {
	ID        int64     `json:"id"`
	AccountID int64     `json:"accountId"`
	FlaggedAt time.Time `json:"flaggedAt"`
	Reason    string    `json:"reason,omitempty"`
}
