package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"plagiax/pkg/domain"
)

const migrateLockID int64 = 82118211

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := withMigrationLock(db, func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(&UserModel{}, &HistoryModel{}); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

// withMigrationLock serializes schema migration across instances with a
// Postgres advisory lock.
func withMigrationLock(db *gorm.DB, fn func(*gorm.DB) error) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", migrateLockID).Error; err != nil {
			return fmt.Errorf("acquire migration lock: %w", err)
		}
		return fn(tx)
	})
}

// SaveUser inserts or updates a user record.
func (s *GormStore) SaveUser(user domain.User) error {
	model := UserModel{
		ID:           user.ID,
		Email:        user.Email,
		FullName:     user.FullName,
		PasswordHash: user.PasswordHash,
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	}
	return s.db.Save(&model).Error
}

// HasUserEmail checks whether a user exists for the email.
func (s *GormStore) HasUserEmail(email string) (bool, error) {
	var count int64
	if err := s.db.Model(&UserModel{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetUserByEmail fetches a user by email.
func (s *GormStore) GetUserByEmail(email string) (domain.User, bool, error) {
	var model UserModel
	err := s.db.Where("email = ?", email).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.User{}, false, nil
	}
	if err != nil {
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// GetUserByID fetches a user by ID.
func (s *GormStore) GetUserByID(id string) (domain.User, bool, error) {
	var model UserModel
	err := s.db.Where("id = ?", id).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.User{}, false, nil
	}
	if err != nil {
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// AppendHistory prepends a summary to the user's history blob and evicts
// entries beyond the cap. Concurrent writers are last-writer-wins.
func (s *GormStore) AppendHistory(email string, summary domain.ReportSummary) ([]domain.ReportSummary, error) {
	items, err := s.ListHistory(email)
	if err != nil {
		return nil, err
	}
	items, evicted := prependCapped(items, summary)
	blob, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("encode history: %w", err)
	}
	model := HistoryModel{
		Email:     email,
		Items:     datatypes.JSON(blob),
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.db.Save(&model).Error; err != nil {
		return nil, err
	}
	return evicted, nil
}

// ListHistory returns the user's summaries, newest first. Missing or
// corrupt data yields an empty list, never an error.
func (s *GormStore) ListHistory(email string) ([]domain.ReportSummary, error) {
	var model HistoryModel
	err := s.db.Where("email = ?", email).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return []domain.ReportSummary{}, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeHistory([]byte(model.Items)), nil
}

// decodeHistory treats corrupt blobs as empty history.
func decodeHistory(blob []byte) []domain.ReportSummary {
	if len(blob) == 0 {
		return []domain.ReportSummary{}
	}
	var items []domain.ReportSummary
	if err := json.Unmarshal(blob, &items); err != nil || items == nil {
		return []domain.ReportSummary{}
	}
	return items
}

func userFromModel(model UserModel) domain.User {
	return domain.User{
		ID:           model.ID,
		Email:        model.Email,
		FullName:     model.FullName,
		PasswordHash: model.PasswordHash,
		CreatedAt:    model.CreatedAt,
		UpdatedAt:    model.UpdatedAt,
	}
}
