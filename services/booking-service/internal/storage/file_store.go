package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/md-rashed-zaman/barbershop/services/booking-service/internal/model"
)

// FileStore keeps every booking as one JSON array in a single file. With an
// empty path it keeps them in memory only.
type FileStore struct {
	path   string
	logger *slog.Logger

	mu     sync.Mutex
	memory []model.Booking
}

func NewFileStore(path string, logger *slog.Logger) *FileStore {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &FileStore{path: path, logger: logger}
}

func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) List(ctx context.Context) ([]model.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(false)
}

func (s *FileStore) BookedTimes(ctx context.Context, barberID, date string) ([]string, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	var times []string
	for _, b := range all {
		if b.BarberID == barberID && b.Date == date {
			times = append(times, b.Time)
		}
	}
	return times, nil
}

func (s *FileStore) Add(ctx context.Context, b model.Booking) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.load(true)
	if err != nil {
		return err
	}
	key := b.SlotKey()
	for _, existing := range all {
		if existing.SlotKey() == key {
			return ErrSlotTaken
		}
	}
	all = append(all, b)
	return s.save(all)
}

// Ping checks that the directory holding the file is usable.
func (s *FileStore) Ping(context.Context) error {
	if s.path == "" {
		return nil
	}
	info, err := os.Stat(filepath.Dir(s.path))
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", filepath.Dir(s.path))
	}
	return nil
}

// load returns a missing or unreadable file as an empty list so the shop keeps
// taking bookings. Reads leave an unreadable file in place; with quarantine set
// (the write path) it is moved aside first so the next save does not destroy it.
// Caller holds mu.
func (s *FileStore) load(quarantine bool) ([]model.Booking, error) {
	if s.path == "" {
		return append([]model.Booking(nil), s.memory...), nil
	}
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read bookings: %w", err)
	}
	if len(raw) == 0 {
		return nil, nil
	}
	var bookings []model.Booking
	if err := json.Unmarshal(raw, &bookings); err != nil {
		if !quarantine {
			s.logger.Warn("bookings file unreadable; reading as empty", "path", s.path, "err", err)
			return nil, nil
		}
		backup := fmt.Sprintf("%s.corrupt-%d", s.path, time.Now().UnixNano())
		if renameErr := os.Rename(s.path, backup); renameErr != nil {
			return nil, fmt.Errorf("bookings file is corrupt and could not be moved aside: %w", renameErr)
		}
		s.logger.Warn("bookings file unreadable; starting empty", "path", s.path, "backup", backup, "err", err)
		return nil, nil
	}
	return bookings, nil
}

// save writes to a temp file in the same directory and renames it over the
// target. Caller holds mu.
func (s *FileStore) save(bookings []model.Booking) error {
	if s.path == "" {
		s.memory = bookings
		return nil
	}
	raw, err := json.MarshalIndent(bookings, "", "  ")
	if err != nil {
		return fmt.Errorf("encode bookings: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create bookings dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".bookings-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write bookings: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync bookings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close bookings: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace bookings file: %w", err)
	}
	return nil
}
