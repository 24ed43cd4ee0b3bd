// Curata - Product Discovery Recommendation Engine
// Copyright 2026 Curata Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curata-io/curata

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	json "github.com/goccy/go-json"

	"github.com/curata-io/curata/internal/models"
)

// profileKeyPrefix namespaces profile documents in BadgerDB.
const profileKeyPrefix = "profile:"

// BadgerProfileStore persists preference profiles as one document per user.
// Each write replaces the whole document inside a single transaction, which
// gives the atomicity the preference model requires.
type BadgerProfileStore struct {
	db    *badger.DB
	owned bool
}

var _ ProfileStore = (*BadgerProfileStore)(nil)

// OpenBadgerProfileStore opens (creating if needed) a BadgerDB at path. An
// empty path opens an in-memory database, used by tests.
func OpenBadgerProfileStore(path string) (*BadgerProfileStore, error) {
	var opts badger.Options
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(path)
	}
	opts.Logger = nil // Suppress BadgerDB logs

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db for profiles: %w", err)
	}
	return &BadgerProfileStore{db: db, owned: true}, nil
}

// NewBadgerProfileStore wraps an already-open BadgerDB.
func NewBadgerProfileStore(db *badger.DB) *BadgerProfileStore {
	return &BadgerProfileStore{db: db}
}

// Close closes the underlying database if this store opened it.
func (s *BadgerProfileStore) Close() error {
	if s.owned {
		return s.db.Close()
	}
	return nil
}

func profileKey(userID string) []byte {
	return []byte(profileKeyPrefix + userID)
}

// Get loads a user's profile or returns ErrProfileNotFound.
func (s *BadgerProfileStore) Get(ctx context.Context, userID string) (*models.PreferenceProfile, error) {
	var profile models.PreferenceProfile

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(profileKey(userID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: %s", ErrProfileNotFound, userID)
		}
		if err != nil {
			return fmt.Errorf("get profile: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &profile)
		})
	})
	if err != nil {
		return nil, err
	}

	profile.EnsureMaps()
	return &profile, nil
}

// Upsert replaces the user's profile document.
func (s *BadgerProfileStore) Upsert(ctx context.Context, profile *models.PreferenceProfile) error {
	if profile == nil || profile.UserID == "" {
		return errors.New("profile requires a user id")
	}

	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(profileKey(profile.UserID), data); err != nil {
			return fmt.Errorf("set profile: %w", err)
		}
		return nil
	})
}

// Apply runs a read-modify-write of the user's profile in one transaction.
// A missing profile starts empty. Badger retries the transaction on
// conflict, so concurrent updates to the same user serialize cleanly.
func (s *BadgerProfileStore) Apply(ctx context.Context, userID string, fn func(*models.PreferenceProfile) error) (*models.PreferenceProfile, error) {
	if userID == "" {
		return nil, errors.New("apply requires a user id")
	}

	var result *models.PreferenceProfile

	err := s.db.Update(func(txn *badger.Txn) error {
		profile := models.NewPreferenceProfile(userID, time.Now().UTC())

		item, err := txn.Get(profileKey(userID))
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
			// First interaction; start from an empty document.
		case err != nil:
			return fmt.Errorf("get profile: %w", err)
		default:
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, profile)
			}); err != nil {
				return fmt.Errorf("decode profile: %w", err)
			}
			profile.EnsureMaps()
		}

		if err := fn(profile); err != nil {
			return err
		}
		profile.LastUpdated = time.Now().UTC()

		data, err := json.Marshal(profile)
		if err != nil {
			return fmt.Errorf("marshal profile: %w", err)
		}
		if err := txn.Set(profileKey(userID), data); err != nil {
			return fmt.Errorf("set profile: %w", err)
		}

		result = profile
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// List returns up to limit profiles, excluding the given user.
func (s *BadgerProfileStore) List(ctx context.Context, limit int, excludeUserID string) ([]*models.PreferenceProfile, error) {
	if limit <= 0 {
		return nil, nil
	}

	var out []*models.PreferenceProfile

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(profileKeyPrefix)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid() && len(out) < limit; it.Next() {
			var profile models.PreferenceProfile
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &profile)
			}); err != nil {
				return fmt.Errorf("decode profile: %w", err)
			}
			if profile.UserID == excludeUserID {
				continue
			}
			profile.EnsureMaps()
			p := profile
			out = append(out, &p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes a user's profile. Missing profiles are not an error.
func (s *BadgerProfileStore) Delete(ctx context.Context, userID string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete(profileKey(userID)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("delete profile: %w", err)
		}
		return nil
	})
}
