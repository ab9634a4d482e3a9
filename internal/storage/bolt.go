package storage

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"go.etcd.io/bbolt"
)

const (
	// dataBucket stores per-namespace key/value state
	dataBucket = "_data"

	// historyBucket stores poll cycle records
	historyBucket = "_history"
)

// BoltStorage is a bbolt implementation of the Storage interface
type BoltStorage struct {
	db *bbolt.DB
}

// NewBoltStorage creates a new BoltStorage instance
// The database file will be created if it doesn't exist
func NewBoltStorage(path string) (*BoltStorage, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt database: %w", err)
	}

	// Create the main buckets if they don't exist
	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(dataBucket)); err != nil {
			return fmt.Errorf("failed to create data bucket: %w", err)
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(historyBucket)); err != nil {
			return fmt.Errorf("failed to create history bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStorage{db: db}, nil
}

// Key/Value Methods

// Get retrieves data for a namespace by key
func (s *BoltStorage) Get(namespace, key string) ([]byte, error) {
	var value []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(dataBucket))
		if bucket == nil {
			return fmt.Errorf("data bucket not found")
		}

		nsBucket := bucket.Bucket([]byte(namespace))
		if nsBucket == nil {
			return ErrNotFound
		}

		data := nsBucket.Get([]byte(key))
		if data == nil {
			return ErrNotFound
		}

		value = make([]byte, len(data))
		copy(value, data)
		return nil
	})

	return value, err
}

// GetString retrieves string data for a namespace by key
func (s *BoltStorage) GetString(namespace, key string) (string, error) {
	data, err := s.Get(namespace, key)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// GetInt retrieves int data for a namespace by key
func (s *BoltStorage) GetInt(namespace, key string) (int, error) {
	data, err := s.Get(namespace, key)
	if err != nil {
		return 0, err
	}

	value, err := strconv.Atoi(string(data))
	if err != nil {
		return 0, fmt.Errorf("failed to parse int: %w", err)
	}

	return value, nil
}

// GetBool retrieves bool data for a namespace by key
func (s *BoltStorage) GetBool(namespace, key string) (bool, error) {
	data, err := s.Get(namespace, key)
	if err != nil {
		return false, err
	}

	value, err := strconv.ParseBool(string(data))
	if err != nil {
		return false, fmt.Errorf("failed to parse bool: %w", err)
	}

	return value, nil
}

// GetJSON retrieves and unmarshals JSON data for a namespace by key
func (s *BoltStorage) GetJSON(namespace, key string, v interface{}) error {
	data, err := s.Get(namespace, key)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal JSON: %w", err)
	}

	return nil
}

// Set stores data for a namespace by key
func (s *BoltStorage) Set(namespace, key string, value []byte) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(dataBucket))
		if bucket == nil {
			return fmt.Errorf("data bucket not found")
		}

		// Create namespace bucket if it doesn't exist
		nsBucket, err := bucket.CreateBucketIfNotExists([]byte(namespace))
		if err != nil {
			return fmt.Errorf("failed to create namespace bucket: %w", err)
		}

		return nsBucket.Put([]byte(key), value)
	})
}

// SetString stores string data for a namespace by key
func (s *BoltStorage) SetString(namespace, key string, value string) error {
	return s.Set(namespace, key, []byte(value))
}

// SetInt stores int data for a namespace by key
func (s *BoltStorage) SetInt(namespace, key string, value int) error {
	return s.Set(namespace, key, []byte(strconv.Itoa(value)))
}

// SetBool stores bool data for a namespace by key
func (s *BoltStorage) SetBool(namespace, key string, value bool) error {
	return s.Set(namespace, key, []byte(strconv.FormatBool(value)))
}

// SetJSON marshals and stores JSON data for a namespace by key
func (s *BoltStorage) SetJSON(namespace, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	return s.Set(namespace, key, data)
}

// Delete removes data for a namespace by key
func (s *BoltStorage) Delete(namespace, key string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(dataBucket))
		if bucket == nil {
			return fmt.Errorf("data bucket not found")
		}

		nsBucket := bucket.Bucket([]byte(namespace))
		if nsBucket == nil {
			return ErrNotFound
		}

		return nsBucket.Delete([]byte(key))
	})
}

// List returns all keys and values for a namespace
func (s *BoltStorage) List(namespace string) (map[string][]byte, error) {
	result := make(map[string][]byte)
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(dataBucket))
		if bucket == nil {
			return fmt.Errorf("data bucket not found")
		}

		nsBucket := bucket.Bucket([]byte(namespace))
		if nsBucket == nil {
			// Namespace has no data yet - return empty map
			return nil
		}

		return nsBucket.ForEach(func(k, v []byte) error {
			value := make([]byte, len(v))
			copy(value, v)
			result[string(k)] = value
			return nil
		})
	})

	return result, err
}

// DeleteAll removes all data for a namespace
func (s *BoltStorage) DeleteAll(namespace string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(dataBucket))
		if bucket == nil {
			return fmt.Errorf("data bucket not found")
		}

		return bucket.DeleteBucket([]byte(namespace))
	})
}

// Poll History Methods

// AppendCycle records a poll cycle outcome
func (s *BoltStorage) AppendCycle(record CycleRecord) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(historyBucket))
		if bucket == nil {
			return fmt.Errorf("history bucket not found")
		}

		data, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("failed to marshal cycle record: %w", err)
		}

		// Use timestamp as key (formatted as Unix nano for sorting)
		key := []byte(fmt.Sprintf("%020d", record.Timestamp.UnixNano()))
		return bucket.Put(key, data)
	})
}

// RecentCycles returns the last N recorded cycles, oldest first
func (s *BoltStorage) RecentCycles(limit int) ([]CycleRecord, error) {
	var records []CycleRecord

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(historyBucket))
		if bucket == nil {
			return fmt.Errorf("history bucket not found")
		}

		// Collect all records first
		var all []CycleRecord
		cursor := bucket.Cursor()

		for k, v := cursor.First(); k != nil; k, v = cursor.Next() {
			var record CycleRecord
			if err := json.Unmarshal(v, &record); err != nil {
				continue // Skip corrupted entries
			}
			all = append(all, record)
		}

		// Return only last N records
		if len(all) > limit {
			records = all[len(all)-limit:]
		} else {
			records = all
		}

		return nil
	})

	return records, err
}

// LastCycle returns the most recent cycle record
func (s *BoltStorage) LastCycle() (CycleRecord, error) {
	var record CycleRecord
	found := false

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(historyBucket))
		if bucket == nil {
			return fmt.Errorf("history bucket not found")
		}

		// Get the last entry (bucket is sorted by key)
		cursor := bucket.Cursor()
		k, v := cursor.Last()
		if k == nil {
			return nil
		}

		if err := json.Unmarshal(v, &record); err != nil {
			return fmt.Errorf("failed to unmarshal cycle record: %w", err)
		}

		found = true
		return nil
	})
	if err != nil {
		return CycleRecord{}, err
	}
	if !found {
		return CycleRecord{}, ErrNotFound
	}

	return record, nil
}

// TrimCycles keeps only the last maxRecords cycle records
func (s *BoltStorage) TrimCycles(maxRecords int) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(historyBucket))
		if bucket == nil {
			return fmt.Errorf("history bucket not found")
		}

		// Count total entries
		var count int
		cursor := bucket.Cursor()
		for k, _ := cursor.First(); k != nil; k, _ = cursor.Next() {
			count++
		}

		// If we're under the limit, nothing to do
		if count <= maxRecords {
			return nil
		}

		// Delete oldest entries via the cursor; deleting through the
		// bucket would invalidate the cursor position
		toDelete := count - maxRecords
		cursor = bucket.Cursor()
		for k, _ := cursor.First(); k != nil && toDelete > 0; k, _ = cursor.Next() {
			if err := cursor.Delete(); err != nil {
				return fmt.Errorf("failed to delete old record: %w", err)
			}
			toDelete--
		}

		return nil
	})
}

// Close closes the storage
func (s *BoltStorage) Close() error {
	return s.db.Close()
}
