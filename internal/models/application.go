package models

import (
	"encoding/json"
	"time"
)

type ApplicationStatus string

const (
	StatusPending ApplicationStatus = "pending"
	StatusSuccess ApplicationStatus = "success"
	StatusFailure ApplicationStatus = "failure"
)

// Terminal statuses are never moved by a later callback.
func (s ApplicationStatus) Terminal() bool {
	return s == StatusSuccess || s == StatusFailure
}

// Application is one payment attempt for a course enrollment.
type Application struct {
	TxnID            string            `json:"txnid"`
	Status           ApplicationStatus `json:"status"`
	Amount           string            `json:"amount"`
	FullName         string            `json:"fullName"`
	Email            string            `json:"email"`
	Phone            string            `json:"phone"`
	City             string            `json:"city"`
	DOB              string            `json:"dob"`
	HeardFrom        string            `json:"heardFrom,omitempty"`
	PreferredContact []string          `json:"preferredContact,omitempty"`
	Course           string            `json:"course"`
	CourseData       json.RawMessage   `json:"courseData,omitempty"`
	PaymentMode      string            `json:"paymentMode,omitempty"`

	// set by the callback step only
	GatewayReference *string         `json:"gatewayTransactionReference"`
	RawCallback      json.RawMessage `json:"rawCallbackPayload,omitempty"`
	ErrorMessage     *string         `json:"errorMessage"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CallbackPatch is what a verified callback writes. When no record exists
// the identity fields seed a minimal one; on an existing record they only
// fill blanks left by a placeholder.
type CallbackPatch struct {
	Status           ApplicationStatus
	Amount           string
	FullName         string
	Email            string
	Phone            string
	Course           string
	GatewayReference string
	RawCallback      json.RawMessage
	ErrorMessage     string
}
