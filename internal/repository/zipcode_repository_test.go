package repository

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aimd54/sme-dispatch/internal/models"
)

func TestLookup(t *testing.T) {
	db := setupTestDB(t)
	repo := NewZipCodeRepository(db)

	city := "New York"
	state := "NY"
	zc := &models.ZipCode{Zip: "10001", Latitude: 40.7506, Longitude: -73.9971, City: &city, State: &state}
	if err := db.Create(zc).Error; err != nil {
		t.Fatalf("Failed to create zip code: %v", err)
	}

	got, err := repo.Lookup("10001")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if got == nil {
		t.Fatal("Expected zip code, got nil")
	}
	if got.Latitude != 40.7506 {
		t.Errorf("Expected latitude 40.7506, got %f", got.Latitude)
	}
}

func TestLookup_Missing(t *testing.T) {
	db := setupTestDB(t)
	repo := NewZipCodeRepository(db)

	got, err := repo.Lookup("99999")
	if err != nil {
		t.Fatalf("Expected no error for unknown zip, got %v", err)
	}
	if got != nil {
		t.Errorf("Expected nil for unknown zip, got %+v", got)
	}
}

func TestLookup_EmptyZip(t *testing.T) {
	db := setupTestDB(t)
	repo := NewZipCodeRepository(db)

	got, err := repo.Lookup("")
	if err != nil {
		t.Fatalf("Expected no error for empty zip, got %v", err)
	}
	if got != nil {
		t.Errorf("Expected nil for empty zip, got %+v", got)
	}
}

func TestSeedFromFile(t *testing.T) {
	db := setupTestDB(t)
	repo := NewZipCodeRepository(db)

	seed := `- zip: "10001"
  latitude: 40.7506
  longitude: -73.9971
  city: New York
  state: NY
- zip: "02108"
  latitude: 42.3575
  longitude: -71.0636
  city: Boston
  state: MA
`
	path := filepath.Join(t.TempDir(), "zipcodes.yaml")
	if err := os.WriteFile(path, []byte(seed), 0o600); err != nil {
		t.Fatalf("Failed to write seed file: %v", err)
	}

	count, err := repo.SeedFromFile(path)
	if err != nil {
		t.Fatalf("SeedFromFile failed: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 rows seeded, got %d", count)
	}

	got, err := repo.Lookup("02108")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if got == nil || got.City == nil || *got.City != "Boston" {
		t.Errorf("Expected Boston, got %+v", got)
	}
}

func TestSeedFromFile_UpsertsExisting(t *testing.T) {
	db := setupTestDB(t)
	repo := NewZipCodeRepository(db)

	if err := db.Create(&models.ZipCode{Zip: "10001", Latitude: 1, Longitude: 1}).Error; err != nil {
		t.Fatalf("Failed to create zip code: %v", err)
	}

	seed := `- zip: "10001"
  latitude: 40.7506
  longitude: -73.9971
`
	path := filepath.Join(t.TempDir(), "zipcodes.yaml")
	if err := os.WriteFile(path, []byte(seed), 0o600); err != nil {
		t.Fatalf("Failed to write seed file: %v", err)
	}

	if _, err := repo.SeedFromFile(path); err != nil {
		t.Fatalf("SeedFromFile failed: %v", err)
	}

	got, err := repo.Lookup("10001")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if got.Latitude != 40.7506 {
		t.Errorf("Expected seeded latitude to replace existing, got %f", got.Latitude)
	}
}

func TestSeedFromFile_MissingFile(t *testing.T) {
	db := setupTestDB(t)
	repo := NewZipCodeRepository(db)

	if _, err := repo.SeedFromFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Expected error for missing seed file")
	}
}
