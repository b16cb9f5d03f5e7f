// Package simstate persists the paper exchange so that restarts keep
// balances and resting orders.
package simstate

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/ladderbot/internal/domain"
)

const (
	defaultStateDir = "./wal/simulate"
	stateDirEnv     = "LADDERBOT_SIMULATE_STATE_DIR"
)

// OrderKind tells how a resting order triggers.
type OrderKind string

const (
	// OrderKindLimit fills once the market trades through its price.
	OrderKindLimit OrderKind = "limit"
	// OrderKindStop is a sell that fills once the market falls to its price.
	OrderKindStop OrderKind = "stop"
)

// Store keeps one paper exchange state per scope in a JSON file.
type Store struct {
	path string
}

func stateDir(dir string) string {
	if dir != "" {
		return dir
	}
	if env := os.Getenv(stateDirEnv); env != "" {
		return env
	}
	return defaultStateDir
}

// NewStore creates a store under dir for pair. An empty dir falls back to
// $LADDERBOT_SIMULATE_STATE_DIR and then ./wal/simulate. An empty scope uses
// the pair name as the file name.
func NewStore(dir string, pair domain.Pair, scope string) (*Store, error) {
	dir = stateDir(dir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create simulate state dir")
	}

	name := sanitizeScope(scope)
	if name == "" {
		name = strings.ToLower(pair.String())
	}

	return &Store{path: filepath.Join(dir, fmt.Sprintf("%s.json", name))}, nil
}

// Path returns the state file location.
func (s *Store) Path() string {
	return s.path
}

// State is everything the paper exchange remembers.
type State struct {
	Pair   string                     `json:"pair"`
	Wallet map[string]decimal.Decimal `json:"wallet"`
	Orders []Order                    `json:"orders"`
}

// Order is a paper order, open or finished.
type Order struct {
	ID        string             `json:"id"`
	Side      domain.Side        `json:"side"`
	Kind      OrderKind          `json:"kind"`
	Price     decimal.Decimal    `json:"price"`
	Size      decimal.Decimal    `json:"size"`
	Status    domain.OrderStatus `json:"status"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// Load reads the state from disk. A missing or empty file yields nil.
func (s *Store) Load() (*State, error) {
	if s == nil || s.path == "" {
		return nil, nil
	}

	payload, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}

		return nil, errors.Wrap(err, "read simulate state")
	}

	if len(payload) == 0 {
		return nil, nil
	}

	var state State
	if err := json.Unmarshal(payload, &state); err != nil {
		return nil, errors.Wrap(err, "decode simulate state")
	}

	return &state, nil
}

// Save writes the state to disk atomically via a temp file.
func (s *Store) Save(state State) error {
	if s == nil || s.path == "" {
		return nil
	}

	payload, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode simulate state")
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return errors.Wrap(err, "write simulate state temp file")
	}

	if err := os.Rename(tmp, s.path); err != nil {
		return errors.Wrap(err, "persist simulate state")
	}

	return nil
}

func sanitizeScope(value string) string {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "" {
		return ""
	}

	var b strings.Builder

	prevUnderscore := false

	for _, r := range value {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)

			prevUnderscore = false

			continue
		}

		if !prevUnderscore {
			b.WriteByte('_')

			prevUnderscore = true
		}
	}

	return strings.Trim(b.String(), "_")
}
