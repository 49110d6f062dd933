package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"clinic-call-backend/internal/model"
)

// ErrPatientNotFound is returned when a queue entry does not exist.
var ErrPatientNotFound = errors.New("patient not found")

// Store defines the interface for all database operations.
type Store interface {
	AddPatient(ctx context.Context, name string) (model.Patient, error)
	ListPatients(ctx context.Context) ([]model.Patient, error)
	GetPatient(ctx context.Context, id int64) (model.Patient, error)
	MarkCalled(ctx context.Context, id int64, at time.Time) (model.Patient, error)
	MarkAttended(ctx context.Context, id int64) (model.Patient, error)
	DeletePatient(ctx context.Context, id int64) error

	UpsertSubscription(ctx context.Context, sub model.PushSubscription) error
	DeleteSubscription(ctx context.Context, endpoint string) error
	GetSubscription(ctx context.Context, endpoint string) (model.PushSubscription, error)
	ListSubscriptions(ctx context.Context) ([]model.PushSubscription, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db, now: time.Now}
}

// AddPatient appends a patient to the waiting queue.
func (s *gormStore) AddPatient(ctx context.Context, name string) (model.Patient, error) {
	patient := model.Patient{
		Name:      name,
		Status:    model.PatientWaiting,
		CreatedAt: s.now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&patient).Error; err != nil {
		return model.Patient{}, fmt.Errorf("failed to add patient %q: %w", name, err)
	}
	return patient, nil
}

// ListPatients returns the queue in arrival order.
func (s *gormStore) ListPatients(ctx context.Context) ([]model.Patient, error) {
	var patients []model.Patient
	if err := s.db.WithContext(ctx).Order("created_at ASC, id ASC").Find(&patients).Error; err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	return patients, nil
}

func (s *gormStore) GetPatient(ctx context.Context, id int64) (model.Patient, error) {
	var patient model.Patient
	err := s.db.WithContext(ctx).First(&patient, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Patient{}, ErrPatientNotFound
	}
	if err != nil {
		return model.Patient{}, fmt.Errorf("failed to load patient %d: %w", id, err)
	}
	return patient, nil
}

// MarkCalled moves a patient to the called state. Calling an already called
// patient again is allowed and refreshes CalledAt.
func (s *gormStore) MarkCalled(ctx context.Context, id int64, at time.Time) (model.Patient, error) {
	at = at.UTC()
	return s.updateStatus(ctx, id, map[string]any{
		"status":    string(model.PatientCalled),
		"called_at": at,
	})
}

func (s *gormStore) MarkAttended(ctx context.Context, id int64) (model.Patient, error) {
	return s.updateStatus(ctx, id, map[string]any{"status": string(model.PatientAttended)})
}

func (s *gormStore) updateStatus(ctx context.Context, id int64, fields map[string]any) (model.Patient, error) {
	var patient model.Patient
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&patient, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPatientNotFound
			}
			return err
		}
		if err := tx.Model(&patient).Updates(fields).Error; err != nil {
			return err
		}
		return tx.First(&patient, id).Error
	})
	if errors.Is(err, ErrPatientNotFound) {
		return model.Patient{}, err
	}
	if err != nil {
		return model.Patient{}, fmt.Errorf("failed to update patient %d: %w", id, err)
	}
	return patient, nil
}

func (s *gormStore) DeletePatient(ctx context.Context, id int64) error {
	res := s.db.WithContext(ctx).Delete(&model.Patient{}, id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete patient %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrPatientNotFound
	}
	return nil
}

// UpsertSubscription creates a subscription or replaces its keys.
func (s *gormStore) UpsertSubscription(ctx context.Context, sub model.PushSubscription) error {
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = s.now().UTC()
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth"}),
	}).Create(&sub).Error
}

func (s *gormStore) DeleteSubscription(ctx context.Context, endpoint string) error {
	return s.db.WithContext(ctx).Delete(&model.PushSubscription{Endpoint: endpoint}).Error
}

// GetSubscription returns gorm.ErrRecordNotFound when the endpoint is unknown.
func (s *gormStore) GetSubscription(ctx context.Context, endpoint string) (model.PushSubscription, error) {
	var sub model.PushSubscription
	err := s.db.WithContext(ctx).First(&sub, "endpoint = ?", endpoint).Error
	return sub, err
}

func (s *gormStore) ListSubscriptions(ctx context.Context) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	if err := s.db.WithContext(ctx).Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	return subs, nil
}
