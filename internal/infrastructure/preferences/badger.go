package preferences

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/recipecart/backend/internal/domain"
	"github.com/sirupsen/logrus"
	"github.com/timshannon/badgerhold/v4"
)

const headlessKey = "headless"

// Preference is one persisted user setting
type Preference struct {
	Key       string
	Value     bool
	UpdatedAt time.Time
}

// BadgerStore persists preferences in an embedded Badger database
type BadgerStore struct {
	store  *badgerhold.Store
	logger logrus.FieldLogger
}

// Open opens (creating if needed) the preference database at path
func Open(path string, logger logrus.FieldLogger) (*BadgerStore, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	logger = logger.WithField("component", "preferences")

	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create preference directory: %w", err)
	}

	options := badgerhold.DefaultOptions
	options.Dir = path
	options.ValueDir = path
	options.Logger = nil

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open preference database: %w", err)
	}

	logger.WithField("path", path).Debug("Preference database opened")
	return &BadgerStore{store: store, logger: logger}, nil
}

// GetHeadless returns the saved headless flag, or ErrPreferenceNotFound when
// the user has never chosen one.
func (s *BadgerStore) GetHeadless(ctx context.Context) (bool, error) {
	var pref Preference
	err := s.store.Get(headlessKey, &pref)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return false, domain.ErrPreferenceNotFound
	}
	if err != nil {
		return false, fmt.Errorf("failed to read headless preference: %w", err)
	}
	return pref.Value, nil
}

// SetHeadless saves the headless flag
func (s *BadgerStore) SetHeadless(ctx context.Context, headless bool) error {
	pref := Preference{
		Key:       headlessKey,
		Value:     headless,
		UpdatedAt: time.Now(),
	}
	if err := s.store.Upsert(headlessKey, &pref); err != nil {
		return fmt.Errorf("failed to save headless preference: %w", err)
	}
	s.logger.WithField("headless", headless).Info("Headless preference saved")
	return nil
}

// Close closes the database
func (s *BadgerStore) Close() error {
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}
