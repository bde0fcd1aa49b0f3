package repository

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/aimd54/sme-dispatch/internal/models"
)

// ZipCodeRepository handles zip code coordinate lookups.
type ZipCodeRepository struct {
	db *DB
}

// NewZipCodeRepository creates a new zip code repository.
func NewZipCodeRepository(db *DB) *ZipCodeRepository {
	return &ZipCodeRepository{db: db}
}

// Lookup resolves a zip code to coordinates. Returns nil without error when
// the zip code is unknown; distance matching then degrades gracefully.
func (r *ZipCodeRepository) Lookup(zip string) (*models.ZipCode, error) {
	if zip == "" {
		return nil, nil
	}

	var zc models.ZipCode
	err := r.db.Where("zip = ?", zip).First(&zc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up zip code %s: %w", zip, err)
	}
	return &zc, nil
}

// zipCodeSeed is one row of the YAML seed file.
type zipCodeSeed struct {
	Zip       string  `yaml:"zip"`
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
	City      string  `yaml:"city"`
	State     string  `yaml:"state"`
}

// SeedFromFile loads zip code rows from a YAML file, upserting by zip.
// Re-running with the same file is a no-op.
func (r *ZipCodeRepository) SeedFromFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read zip code seed file %s: %w", path, err)
	}

	var rows []zipCodeSeed
	if err := yaml.Unmarshal(data, &rows); err != nil {
		return 0, fmt.Errorf("failed to parse zip code seed file %s: %w", path, err)
	}

	for _, row := range rows {
		zc := models.ZipCode{
			Zip:       row.Zip,
			Latitude:  row.Latitude,
			Longitude: row.Longitude,
		}
		if row.City != "" {
			city := row.City
			zc.City = &city
		}
		if row.State != "" {
			state := row.State
			zc.State = &state
		}

		err := r.db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "zip"}},
			DoUpdates: clause.AssignmentColumns([]string{"latitude", "longitude", "city", "state"}),
		}).Create(&zc).Error
		if err != nil {
			return 0, fmt.Errorf("failed to seed zip code %s: %w", row.Zip, err)
		}
	}

	return len(rows), nil
}
