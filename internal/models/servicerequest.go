package models

import (
	"time"
)

// ServiceRequest is a client's request for expert work. Read-only input to
// the recommendation engine; its own status is independent of assignment
// lifecycles.
type ServiceRequest struct {
	ID              uint    `gorm:"primaryKey" json:"id"`
	ClientID        uint    `gorm:"not null;index" json:"client_id"`
	Client          User    `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	Title           string  `gorm:"size:200;not null" json:"title"`
	Type            *string `gorm:"size:100" json:"type"`
	Status          string  `gorm:"size:50;default:Active" json:"status"`
	Description     *string `gorm:"size:1000" json:"description"`
	CreatedByUserID *uint   `json:"created_by_user_id"`

	// Service location. ServiceZipCode wins over the client's zip code.
	ServiceZipCode *string `gorm:"size:10" json:"service_zip_code"`

	// MaxDistanceMiles caps the search radius for candidate SMEs; 0 means
	// no radius limit.
	MaxDistanceMiles   float64 `gorm:"default:0" json:"max_distance_miles"`
	PreferredSmeUserID *uint   `json:"preferred_sme_user_id"`

	IsActive  bool      `gorm:"default:true;index" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relationships
	Expertises  []ServiceRequestExpertise `gorm:"foreignKey:ServiceRequestID" json:"expertises,omitempty"`
	Assignments []Assignment              `gorm:"foreignKey:ServiceRequestID" json:"assignments,omitempty"`
}

// Service request status constants
const (
	RequestStatusActive    = "Active"
	RequestStatusOnHold    = "OnHold"
	RequestStatusCompleted = "Completed"
	RequestStatusCancelled = "Cancelled"
)

// TableName specifies the table name for ServiceRequest model.
func (ServiceRequest) TableName() string {
	return "service_requests"
}

// RequiredExpertiseIDs returns the set of expertise tag IDs the request asks for.
func (sr *ServiceRequest) RequiredExpertiseIDs() map[uint]bool {
	ids := make(map[uint]bool, len(sr.Expertises))
	for _, e := range sr.Expertises {
		ids[e.ExpertiseID] = true
	}
	return ids
}

// ServiceRequestExpertise links a service request to a required expertise tag.
type ServiceRequestExpertise struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	ServiceRequestID uint      `gorm:"not null;index:idx_sr_expertise,unique" json:"service_request_id"`
	ExpertiseID      uint      `gorm:"not null;index:idx_sr_expertise,unique" json:"expertise_id"`
	Expertise        Expertise `gorm:"foreignKey:ExpertiseID" json:"expertise,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// TableName specifies the table name for ServiceRequestExpertise model.
func (ServiceRequestExpertise) TableName() string {
	return "service_request_expertises"
}

// ZipCode maps a postal code to coordinates for distance calculations.
type ZipCode struct {
	Zip       string    `gorm:"primaryKey;size:10" json:"zip"`
	Latitude  float64   `gorm:"type:decimal(9,6);not null" json:"latitude"`
	Longitude float64   `gorm:"type:decimal(9,6);not null" json:"longitude"`
	City      *string   `gorm:"size:100" json:"city"`
	State     *string   `gorm:"size:2" json:"state"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for ZipCode model.
func (ZipCode) TableName() string {
	return "zip_codes"
}
