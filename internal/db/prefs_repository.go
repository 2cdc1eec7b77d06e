package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Preference keys.
const (
	// keyBannerDismissed persists the informational banner's dismissed
	// flag across sessions until explicitly cleared.
	keyBannerDismissed = "banner.dismissed"

	// keyRegionFilters persists the last-used listing filters.
	keyRegionFilters = "regions.filters"
)

// ErrPrefNotFound is returned when a preference key has no value.
var ErrPrefNotFound = errors.New("preference not found")

// PrefsRepository handles persisted local preferences.
type PrefsRepository struct {
	db *DB
}

// NewPrefsRepository creates a new PrefsRepository.
func NewPrefsRepository(db *DB) *PrefsRepository {
	return &PrefsRepository{db: db}
}

// Get returns the value stored under key.
func (r *PrefsRepository) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM prefs WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrPrefNotFound
	}
	if err != nil {
		return "", fmt.Errorf("query preference %s: %w", key, err)
	}
	return value, nil
}

// Set stores value under key, replacing any prior value.
func (r *PrefsRepository) Set(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO prefs (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("store preference %s: %w", key, err)
	}
	return nil
}

// Delete removes the value stored under key.
func (r *PrefsRepository) Delete(ctx context.Context, key string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM prefs WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("delete preference %s: %w", key, err)
	}
	return nil
}

// BannerDismissed reports whether the informational banner was dismissed.
func (r *PrefsRepository) BannerDismissed(ctx context.Context) (bool, error) {
	value, err := r.Get(ctx, keyBannerDismissed)
	if errors.Is(err, ErrPrefNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return value == "true", nil
}

// SetBannerDismissed persists the banner's dismissed flag.
func (r *PrefsRepository) SetBannerDismissed(ctx context.Context, dismissed bool) error {
	if !dismissed {
		return r.Delete(ctx, keyBannerDismissed)
	}
	return r.Set(ctx, keyBannerDismissed, "true")
}

// RegionFilters returns the last-used listing filters, or an empty map.
func (r *PrefsRepository) RegionFilters(ctx context.Context) (map[string]string, error) {
	value, err := r.Get(ctx, keyRegionFilters)
	if errors.Is(err, ErrPrefNotFound) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, err
	}

	filters := make(map[string]string)
	if err := json.Unmarshal([]byte(value), &filters); err != nil {
		return nil, fmt.Errorf("decode saved filters: %w", err)
	}
	return filters, nil
}

// SetRegionFilters persists the listing filters for the next session.
func (r *PrefsRepository) SetRegionFilters(ctx context.Context, filters map[string]string) error {
	data, err := json.Marshal(filters)
	if err != nil {
		return fmt.Errorf("encode filters: %w", err)
	}
	return r.Set(ctx, keyRegionFilters, string(data))
}
