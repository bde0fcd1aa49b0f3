package models

import (
	"time"
)

// Assignment represents one SME's engagement on one service request.
// An assignment has its own lifecycle independent of the service request's.
type Assignment struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	ServiceRequestID uint           `gorm:"not null;index" json:"service_request_id"`
	ServiceRequest   ServiceRequest `gorm:"foreignKey:ServiceRequestID" json:"service_request,omitempty"`
	SmeUserID        uint           `gorm:"not null;index" json:"sme_user_id"`
	SmeUser          User           `gorm:"foreignKey:SmeUserID" json:"sme_user,omitempty"`
	AssignedByUserID *uint          `json:"assigned_by_user_id"`
	AssignedByUser   *User          `gorm:"foreignKey:AssignedByUserID" json:"assigned_by_user,omitempty"`

	Status             string  `gorm:"size:50;index;default:Assigned" json:"status"`
	OutcomeReason      *string `gorm:"size:50" json:"outcome_reason"`
	ResponsibilityParty *string `gorm:"size:50" json:"responsibility_party"`
	Notes              *string `gorm:"size:500" json:"notes"`

	// Billing state derived from the lifecycle. Invoiced/Paid are owned by
	// the invoicing side and must not be overwritten by lifecycle transitions.
	IsBillable    bool       `gorm:"default:false" json:"is_billable"`
	BillingStatus string     `gorm:"size:20;index;default:NotBillable" json:"billing_status"`
	InvoiceID     *uint      `gorm:"index" json:"invoice_id"`
	BilledAt      *time.Time `json:"billed_at"`
	PaidAt        *time.Time `json:"paid_at"`

	AssignedAt  time.Time  `gorm:"not null" json:"assigned_at"`
	AcceptedAt  *time.Time `json:"accepted_at"`
	StartedAt   *time.Time `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`

	IsActive  bool      `gorm:"default:true;index" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for Assignment model.
func (Assignment) TableName() string {
	return "assignments"
}

// AssignmentStatus constants.
const (
	StatusAssigned   = "Assigned"
	StatusAccepted   = "Accepted"
	StatusRejected   = "Rejected"
	StatusInProgress = "InProgress"
	StatusCompleted  = "Completed"
	StatusAbandoned  = "Abandoned"
)

// IsTerminalStatus reports whether a status admits no further regular transitions.
func IsTerminalStatus(status string) bool {
	return status == StatusRejected || status == StatusCompleted || status == StatusAbandoned
}

// OutcomeReason constants.
const (
	ReasonNone               = "None"
	ReasonSmeNoResponse      = "SME_NoResponse"
	ReasonSmeRejected        = "SME_Rejected"
	ReasonSmeOverloaded      = "SME_Overloaded"
	ReasonSmeConflict        = "SME_Conflict"
	ReasonSmeOutOfScope      = "SME_OutOfScope"
	ReasonClientNoResponse   = "Client_NoResponse"
	ReasonClientCancelled    = "Client_Cancelled"
	ReasonClientUnavailable  = "Client_Unavailable"
	ReasonCoordinatorCancelled = "Coordinator_Cancelled"
	ReasonSystemError        = "System_Error"
	ReasonOther              = "Other"
)

// IsLegitimateRejection reports whether a rejection reason carries no
// reputation penalty. Overload, conflict of interest and out-of-scope are
// acceptable grounds for turning down an assignment.
func IsLegitimateRejection(reason string) bool {
	return reason == ReasonSmeOverloaded || reason == ReasonSmeConflict || reason == ReasonSmeOutOfScope
}

// ResponsibilityParty constants.
const (
	PartyUnknown     = "Unknown"
	PartySME         = "SME"
	PartyClient      = "Client"
	PartySystem      = "System"
	PartyCoordinator = "Coordinator"
)

// BillingStatus constants.
const (
	BillingNotBillable = "NotBillable"
	BillingReady       = "Ready"
	BillingInvoiced    = "Invoiced"
	BillingPaid        = "Paid"
	BillingVoided      = "Voided"
)
