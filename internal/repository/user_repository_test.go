package repository

import (
	"testing"

	"github.com/aimd54/sme-dispatch/internal/models"
)

func TestGetByEmail(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)

	created := createTestUser(t, db, "doctor@example.com", models.RoleDoctor)

	got, err := repo.GetByEmail("doctor@example.com")
	if err != nil {
		t.Fatalf("GetByEmail failed: %v", err)
	}
	if got.ID != created.ID {
		t.Errorf("Expected user %d, got %d", created.ID, got.ID)
	}

	if _, err := repo.GetByEmail("missing@example.com"); err == nil {
		t.Error("Expected error for unknown email")
	}
}

func TestListSmes(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)

	createTestUser(t, db, "doctor@example.com", models.RoleDoctor)
	createTestUser(t, db, "attorney@example.com", models.RoleAttorney)
	createTestUser(t, db, "sme@example.com", models.RoleSme)
	createTestUser(t, db, "client@example.com", models.RoleClient)
	createTestUser(t, db, "coordinator@example.com", models.RoleCoordinator)

	inactive := createTestUser(t, db, "retired@example.com", models.RoleDoctor)
	inactive.IsActive = false
	if err := repo.Update(inactive); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	smes, err := repo.ListSmes("")
	if err != nil {
		t.Fatalf("ListSmes failed: %v", err)
	}
	if len(smes) != 3 {
		t.Errorf("Expected 3 SMEs, got %d", len(smes))
	}
	for _, u := range smes {
		if !u.IsSmeRole() {
			t.Errorf("Expected only SME-eligible roles, got %s", u.Role)
		}
	}
}

func TestListSmes_SpecializationFilter(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)

	cardio := createTestUser(t, db, "cardio@example.com", models.RoleDoctor)
	spec := "Cardiology"
	cardio.Specialization = &spec
	if err := repo.Update(cardio); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	createTestUser(t, db, "general@example.com", models.RoleDoctor)

	smes, err := repo.ListSmes("Cardio")
	if err != nil {
		t.Fatalf("ListSmes failed: %v", err)
	}
	if len(smes) != 1 {
		t.Fatalf("Expected 1 SME matching specialization, got %d", len(smes))
	}
	if smes[0].Email != "cardio@example.com" {
		t.Errorf("Expected cardiologist, got %s", smes[0].Email)
	}
}

func TestListSmes_PreloadsExpertises(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)

	smeUser := createTestUser(t, db, "sme@example.com", models.RoleSme)
	expertise := &models.Expertise{Name: "Contract Law", IsActive: true}
	if err := db.Create(expertise).Error; err != nil {
		t.Fatalf("Failed to create expertise: %v", err)
	}
	link := &models.SmeExpertise{UserID: smeUser.ID, ExpertiseID: expertise.ID, IsActive: true}
	if err := db.Create(link).Error; err != nil {
		t.Fatalf("Failed to create sme expertise: %v", err)
	}

	smes, err := repo.ListSmes("")
	if err != nil {
		t.Fatalf("ListSmes failed: %v", err)
	}
	if len(smes) != 1 {
		t.Fatalf("Expected 1 SME, got %d", len(smes))
	}
	if len(smes[0].Expertises) != 1 {
		t.Errorf("Expected expertise tags to be preloaded, got %d", len(smes[0].Expertises))
	}
}

func TestUserList_RoleFilter(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)

	createTestUser(t, db, "client@example.com", models.RoleClient)
	createTestUser(t, db, "sme@example.com", models.RoleSme)

	clients, err := repo.List(models.RoleClient)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(clients) != 1 {
		t.Errorf("Expected 1 client, got %d", len(clients))
	}

	all, err := repo.List("")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("Expected 2 users, got %d", len(all))
	}
}
