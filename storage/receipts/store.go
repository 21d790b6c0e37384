// Package receipts persists transaction receipts in a bbolt database keyed by
// transaction hash, with a height index for range scans.
package receipts

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.etcd.io/bbolt"

	"sellerchain/core/types"
)

var (
	bucketReceipts = []byte("receipts")
	bucketByHeight = []byte("receipts_height")
)

var (
	// ErrNotFound is returned when no receipt exists for a hash.
	ErrNotFound = errors.New("receipts: not found")
	// ErrDuplicate is returned when a receipt for the hash is already stored.
	ErrDuplicate = errors.New("receipts: duplicate receipt")
)

// Store wraps a bbolt database holding receipts.
type Store struct {
	db *bbolt.DB
}

// Open opens or creates the receipt database at path. The parent directory is
// created if needed.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("receipts: create directory: %w", err)
	}
	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("receipts: open bolt db: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketReceipts, bucketByHeight} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %q: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("receipts: create buckets: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

func heightKey(h uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, h)
	return k
}

// Put stores receipt under its transaction hash.
func (s *Store) Put(receipt *types.Receipt) error {
	if receipt == nil || len(receipt.TxHash) == 0 {
		return fmt.Errorf("receipts: receipt with hash required")
	}
	data, err := json.Marshal(receipt)
	if err != nil {
		return fmt.Errorf("receipts: encode: %w", err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		rb := tx.Bucket(bucketReceipts)
		if rb.Get(receipt.TxHash) != nil {
			return ErrDuplicate
		}
		if err := rb.Put(receipt.TxHash, data); err != nil {
			return fmt.Errorf("receipts: put by hash: %w", err)
		}
		return tx.Bucket(bucketByHeight).Put(heightKey(receipt.BlockNumber), receipt.TxHash)
	})
}

// Delete removes the receipt for hash and its height entry. Missing receipts
// are not an error.
func (s *Store) Delete(hash []byte) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		rb := tx.Bucket(bucketReceipts)
		data := rb.Get(hash)
		if data == nil {
			return nil
		}
		var receipt types.Receipt
		if err := json.Unmarshal(data, &receipt); err != nil {
			return fmt.Errorf("receipts: decode: %w", err)
		}
		hb := tx.Bucket(bucketByHeight)
		if string(hb.Get(heightKey(receipt.BlockNumber))) == string(hash) {
			if err := hb.Delete(heightKey(receipt.BlockNumber)); err != nil {
				return fmt.Errorf("receipts: delete height: %w", err)
			}
		}
		return rb.Delete(hash)
	})
}

// Get loads the receipt for hash.
func (s *Store) Get(hash []byte) (*types.Receipt, error) {
	var receipt types.Receipt
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketReceipts).Get(hash)
		if data == nil {
			return ErrNotFound
		}
		return json.Unmarshal(data, &receipt)
	})
	if err != nil {
		return nil, err
	}
	return &receipt, nil
}

// Range calls fn for every receipt with from <= height <= to in height
// order. Returning an error from fn stops the scan.
func (s *Store) Range(from, to uint64, fn func(*types.Receipt) error) error {
	return s.db.View(func(tx *bbolt.Tx) error {
		rb := tx.Bucket(bucketReceipts)
		c := tx.Bucket(bucketByHeight).Cursor()
		end := heightKey(to)
		for k, hash := c.Seek(heightKey(from)); k != nil && string(k) <= string(end); k, hash = c.Next() {
			data := rb.Get(hash)
			if data == nil {
				continue
			}
			var receipt types.Receipt
			if err := json.Unmarshal(data, &receipt); err != nil {
				return fmt.Errorf("receipts: decode height %d: %w", binary.BigEndian.Uint64(k), err)
			}
			if err := fn(&receipt); err != nil {
				return err
			}
		}
		return nil
	})
}
