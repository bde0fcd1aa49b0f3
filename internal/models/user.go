package models

import (
	"time"
)

// User represents any account in the system. SMEs (doctors, attorneys and
// generic subject-matter experts) carry the profile fields used by the
// recommendation engine; clients and coordinators leave them empty.
type User struct {
	ID             uint    `gorm:"primaryKey" json:"id"`
	Email          string  `gorm:"uniqueIndex;not null;size:255" json:"email"`
	FirstName      string  `gorm:"size:100" json:"first_name"`
	LastName       string  `gorm:"size:100" json:"last_name"`
	Role           string  `gorm:"size:50;index" json:"role"`
	Specialization *string `gorm:"size:200" json:"specialization"`

	// Reputation score, bounded [0,150]. Nil means "no score recorded yet";
	// the ledger treats that as the default of 100 without persisting it.
	Score *int `json:"score"`

	// Geographic profile for proximity matching.
	Latitude       *float64 `gorm:"type:decimal(9,6)" json:"latitude"`
	Longitude      *float64 `gorm:"type:decimal(9,6)" json:"longitude"`
	ZipCode        *string  `gorm:"size:10" json:"zip_code"`
	MaxTravelMiles *float64 `json:"max_travel_miles"`

	IsActive  bool      `gorm:"default:true;index" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relationships
	Expertises []SmeExpertise `gorm:"foreignKey:UserID" json:"expertises,omitempty"`
}

// TableName specifies the table name for User model.
func (User) TableName() string {
	return "users"
}

// FullName returns the user's display name.
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// Role constants. Doctor, Attorney and Sme are the SME-eligible roles.
const (
	RoleDoctor      = "doctor"
	RoleAttorney    = "attorney"
	RoleSme         = "sme"
	RoleClient      = "client"
	RoleCoordinator = "coordinator"
	RoleAdmin       = "admin"
)

// SmeRoles lists the roles eligible to receive assignments.
var SmeRoles = []string{RoleDoctor, RoleAttorney, RoleSme}

// IsSmeRole reports whether the user can be assigned work.
func (u *User) IsSmeRole() bool {
	return u.Role == RoleDoctor || u.Role == RoleAttorney || u.Role == RoleSme
}

// Expertise is a tag describing a skill or practice area.
type Expertise struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;not null;size:200" json:"name"`
	IsActive  bool      `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for Expertise model.
func (Expertise) TableName() string {
	return "expertises"
}

// SmeExpertise links an SME to one of their expertise tags.
type SmeExpertise struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"not null;index:idx_sme_expertise,unique" json:"user_id"`
	ExpertiseID uint      `gorm:"not null;index:idx_sme_expertise,unique" json:"expertise_id"`
	Expertise   Expertise `gorm:"foreignKey:ExpertiseID" json:"expertise,omitempty"`
	IsActive    bool      `gorm:"default:true" json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName specifies the table name for SmeExpertise model.
func (SmeExpertise) TableName() string {
	return "sme_expertises"
}

// ActiveExpertiseIDs returns the set of the user's active expertise tag IDs.
func (u *User) ActiveExpertiseIDs() map[uint]bool {
	ids := make(map[uint]bool, len(u.Expertises))
	for _, se := range u.Expertises {
		if se.IsActive {
			ids[se.ExpertiseID] = true
		}
	}
	return ids
}
