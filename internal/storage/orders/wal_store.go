// Package orders keeps the order history: every command an engine issued,
// in the order it was issued.
package orders

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/gowal"
	"github.com/vadiminshakov/ladderbot/internal/domain"
)

const (
	DefaultDir = "./wal/orders"

	segmentLimit = 1000
	maxSegments  = 100
	keyPrefix    = "order_"
)

// WALStore journals order commands in a WAL.
type WALStore struct {
	wal *gowal.Wal
	mu  sync.RWMutex
}

// NewWALStore opens the journal under dir, creating it if needed.
func NewWALStore(dir string) (*WALStore, error) {
	if dir == "" {
		dir = DefaultDir
	}

	cfg := gowal.Config{
		Dir:              dir,
		Prefix:           "orders_",
		SegmentThreshold: segmentLimit,
		MaxSegments:      maxSegments,
		IsInSyncDiskMode: true,
	}

	wal, err := gowal.NewWAL(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "init order journal WAL")
	}

	return &WALStore{wal: wal}, nil
}

// Append writes commands in order. It stops at the first failed write.
func (s *WALStore) Append(commands []domain.Command) error {
	if s == nil || s.wal == nil {
		return errors.New("order journal is not initialized")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range commands {
		if c.Pair == "" {
			return fmt.Errorf("order command pair is required")
		}

		rec := domain.CommandRecord{Index: s.wal.CurrentIndex() + 1, Command: c}
		payload, err := json.Marshal(rec)
		if err != nil {
			return errors.Wrap(err, "marshal order command")
		}

		key := fmt.Sprintf("%s%s_%d", keyPrefix, c.Pair, rec.Index)
		if err := s.wal.Write(rec.Index, key, payload); err != nil {
			return errors.Wrapf(err, "write %s command for order %s", c.Kind, c.OrderID)
		}
	}

	return nil
}

// RecordsAfter returns the commands journaled after index, oldest first.
func (s *WALStore) RecordsAfter(index uint64) ([]domain.CommandRecord, error) {
	return s.scan(func(r domain.CommandRecord) bool {
		return r.Index > index
	})
}

// FindByOrderID returns every command issued for the client order id.
func (s *WALStore) FindByOrderID(orderID string) ([]domain.CommandRecord, error) {
	return s.scan(func(r domain.CommandRecord) bool {
		return r.Command.OrderID == orderID
	})
}

func (s *WALStore) scan(match func(domain.CommandRecord) bool) ([]domain.CommandRecord, error) {
	if s == nil || s.wal == nil {
		return nil, errors.New("order journal is not initialized")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var records []domain.CommandRecord
	for msg := range s.wal.Iterator() {
		if !strings.HasPrefix(msg.Key, keyPrefix) {
			continue
		}

		var rec domain.CommandRecord
		if err := json.Unmarshal(msg.Value, &rec); err != nil {
			return nil, errors.Wrapf(err, "decode order command %s", msg.Key)
		}
		if match(rec) {
			records = append(records, rec)
		}
	}

	return records, nil
}

// CurrentIndex returns the index of the latest journaled command.
func (s *WALStore) CurrentIndex() uint64 {
	if s == nil || s.wal == nil {
		return 0
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.wal.CurrentIndex()
}

// Close closes the underlying WAL.
func (s *WALStore) Close() error {
	if s == nil || s.wal == nil {
		return errors.New("order journal is not initialized")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.wal.Close()
}
