package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"kdash-mock/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"k8s.io/utils/clock"
)

// ErrAlertNotFound is returned when resolving an alert id that does not exist
var ErrAlertNotFound = errors.New("alert not found")

// MetricsStore keeps the recorded cluster summaries and alerts in SQLite
type MetricsStore struct {
	db    *gorm.DB
	clock clock.PassiveClock
}

// NewMetricsStore opens (or creates) the SQLite database at dbPath. Timestamps are taken
// from clk; nil means the wall clock
func NewMetricsStore(dbPath string, clk clock.PassiveClock) (*MetricsStore, error) {
	if clk == nil {
		clk = clock.RealClock{}
	}

	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", dbPath, err)
	}

	if err := db.AutoMigrate(&models.MetricSnapshot{}, &models.Alert{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	return &MetricsStore{db: db, clock: clk}, nil
}

// SaveSnapshot stamps and saves a summary row
func (s *MetricsStore) SaveSnapshot(ctx context.Context, snapshot *models.MetricSnapshot) error {
	snapshot.Timestamp = s.clock.Now()
	return s.db.WithContext(ctx).Create(snapshot).Error
}

// GetSnapshots returns the rows of a cluster recorded within the last since, oldest first
func (s *MetricsStore) GetSnapshots(ctx context.Context, cluster string, since time.Duration) ([]models.MetricSnapshot, error) {
	var snapshots []models.MetricSnapshot
	cutoff := s.clock.Now().Add(-since)

	err := s.db.WithContext(ctx).
		Where("cluster = ? AND timestamp > ?", cluster, cutoff).
		Order("timestamp ASC").
		Find(&snapshots).Error
	return snapshots, err
}

// GetLatestSnapshot returns the most recent row of a cluster, or nil if none was recorded
func (s *MetricsStore) GetLatestSnapshot(ctx context.Context, cluster string) (*models.MetricSnapshot, error) {
	var snapshot models.MetricSnapshot
	err := s.db.WithContext(ctx).
		Where("cluster = ?", cluster).
		Order("timestamp DESC").
		Take(&snapshot).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// CleanupOldSnapshots deletes rows older than olderThan and reports how many went
func (s *MetricsStore) CleanupOldSnapshots(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := s.clock.Now().Add(-olderThan)
	res := s.db.WithContext(ctx).Where("timestamp < ?", cutoff).Delete(&models.MetricSnapshot{})
	return res.RowsAffected, res.Error
}

// SaveAlert stamps and saves a new alert
func (s *MetricsStore) SaveAlert(ctx context.Context, alert *models.Alert) error {
	alert.Timestamp = s.clock.Now()
	return s.db.WithContext(ctx).Create(alert).Error
}

// RaiseAlert opens an alert, or refreshes the severity and message of the open alert of
// the same cluster and kind. It reports whether a new alert was created
func (s *MetricsStore) RaiseAlert(ctx context.Context, alert *models.Alert) (bool, error) {
	var open models.Alert
	err := s.db.WithContext(ctx).
		Where("cluster = ? AND kind = ? AND resolved = ?", alert.Cluster, alert.Kind, false).
		Take(&open).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return true, s.SaveAlert(ctx, alert)
	}
	if err != nil {
		return false, err
	}

	alert.ID = open.ID
	alert.Timestamp = open.Timestamp
	return false, s.db.WithContext(ctx).Model(&open).Updates(map[string]any{
		"severity": alert.Severity,
		"message":  alert.Message,
	}).Error
}

// GetActiveAlerts returns all unresolved alerts, newest first
func (s *MetricsStore) GetActiveAlerts(ctx context.Context) ([]models.Alert, error) {
	var alerts []models.Alert
	err := s.db.WithContext(ctx).
		Where("resolved = ?", false).
		Order("timestamp DESC").
		Order("id DESC").
		Find(&alerts).Error
	return alerts, err
}

// ResolveAlert marks an alert as resolved
func (s *MetricsStore) ResolveAlert(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Model(&models.Alert{}).Where("id = ?", id).Update("resolved", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %d", ErrAlertNotFound, id)
	}
	return nil
}

// Close closes the database connection
func (s *MetricsStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
