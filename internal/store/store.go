package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"aax-connector/internal/core"
	"aax-connector/internal/logger"
)

// MarketsSnapshot is the on-disk copy of a loaded market table.
type MarketsSnapshot struct {
	SnapshotID string        `json:"snapshot_id"`
	BaseURL    string        `json:"base_url"`
	Markets    []core.Market `json:"markets"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// OrderEvent is one line of the order journal.
type OrderEvent struct {
	Action     string     `json:"action"`
	Order      core.Order `json:"order"`
	RecordedAt time.Time  `json:"recorded_at"`
}

type Store struct {
	root string
	mu   sync.Mutex
	log  *logrus.Entry
	now  func() time.Time
}

func New(root string) (*Store, error) {
	if root == "" {
		return nil, errors.New("state dir required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &Store{
		root: root,
		log:  logger.Get().WithComponent("store"),
		now:  func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *Store) SaveMarkets(baseURL string, markets []core.Market) error {
	now := s.now()
	snapshot := MarketsSnapshot{
		SnapshotID: newSnapshotID(now),
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Markets:    markets,
		UpdatedAt:  now,
	}
	if snapshot.Markets == nil {
		snapshot.Markets = make([]core.Market, 0)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeJSONAtomic(s.marketsPath(), snapshot)
}

// LoadMarkets returns the cached markets when the snapshot was taken against
// baseURL and is younger than ttl. A zero ttl disables the cache.
func (s *Store) LoadMarkets(baseURL string, ttl time.Duration) ([]core.Market, bool, error) {
	if ttl <= 0 {
		return nil, false, nil
	}
	snapshot, ok, err := s.LoadMarketsSnapshot()
	if err != nil || !ok {
		return nil, false, err
	}
	if snapshot.BaseURL != strings.TrimRight(baseURL, "/") {
		return nil, false, nil
	}
	if s.now().Sub(snapshot.UpdatedAt) > ttl || len(snapshot.Markets) == 0 {
		return nil, false, nil
	}
	return snapshot.Markets, true, nil
}

func (s *Store) LoadMarketsSnapshot() (MarketsSnapshot, bool, error) {
	data, err := os.ReadFile(s.marketsPath())
	if err != nil {
		if os.IsNotExist(err) {
			return MarketsSnapshot{}, false, nil
		}
		return MarketsSnapshot{}, false, err
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return MarketsSnapshot{}, false, errors.New("markets snapshot is empty")
	}
	var snapshot MarketsSnapshot
	if err := json.Unmarshal(trimmed, &snapshot); err != nil {
		return MarketsSnapshot{}, false, err
	}
	return snapshot, true, nil
}

// AppendOrder journals an order acknowledgement to orders/<date>.jsonl.
func (s *Store) AppendOrder(action string, order core.Order) error {
	event := OrderEvent{Action: action, Order: order, RecordedAt: s.now()}
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Join(s.root, "orders")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(dir, event.RecordedAt.Format("2006-01-02")+".jsonl")
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.Write(append(data, '\n')); err != nil {
		return err
	}
	return f.Sync()
}

func (s *Store) marketsPath() string {
	return filepath.Join(s.root, "markets.json")
}

func (s *Store) writeJSONAtomic(path string, v any) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "tmp-*")
	if err != nil {
		return err
	}
	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return err
	}
	s.fsyncDirBestEffort(dir, path)
	return nil
}

func (s *Store) fsyncDirBestEffort(dir, path string) {
	d, err := os.Open(dir)
	if err != nil {
		s.log.WithFields(logrus.Fields{"dir": dir, "target": path}).WithError(err).Warn("store dir fsync skipped")
		return
	}
	defer d.Close()
	if err := d.Sync(); err != nil {
		s.log.WithFields(logrus.Fields{"dir": dir, "target": path}).WithError(err).Warn("store dir fsync failed")
	}
}

func newSnapshotID(now time.Time) string {
	if now.IsZero() {
		now = time.Now().UTC()
	}
	return strconv.FormatInt(now.UnixNano(), 36)
}
