package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/md-rashed-zaman/barbershop/services/booking-service/internal/model"
)

func sampleBooking(id, barber, date, at string) model.Booking {
	return model.Booking{
		ID:        id,
		BarberID:  barber,
		ServiceID: "corte",
		Date:      date,
		Time:      at,
		FirstName: "Juan",
		LastName:  "Pérez",
		Phone:     "1155550000",
		Email:     "juan@example.com",
		CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestFileStorePersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "bookings.json")
	ctx := context.Background()

	s := NewFileStore(path, nil)
	if s.Path() != path {
		t.Fatalf("expected path %s, got %s", path, s.Path())
	}
	if got, err := s.List(ctx); err != nil || len(got) != 0 {
		t.Fatalf("expected empty store, got %v %v", got, err)
	}
	if err := s.Add(ctx, sampleBooking("1", "lucas", "2026-03-02", "10:00")); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := s.Add(ctx, sampleBooking("2", "pedro", "2026-03-02", "10:00")); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	reopened := NewFileStore(path, nil)
	got, err := reopened.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(got) != 2 || got[0].ID != "1" || got[1].LastName != "Pérez" {
		t.Fatalf("unexpected bookings %+v", got)
	}
	if !got[0].CreatedAt.Equal(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)) {
		t.Fatalf("created_at not preserved: %s", got[0].CreatedAt)
	}
}

func TestFileStoreRejectsDuplicateSlot(t *testing.T) {
	s := NewFileStore("", nil)
	ctx := context.Background()
	if err := s.Add(ctx, sampleBooking("1", "lucas", "2026-03-02", "10:00")); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := s.Add(ctx, sampleBooking("2", "lucas", "2026-03-02", "10:00")); !IsConflict(err) {
		t.Fatalf("expected ErrSlotTaken, got %v", err)
	}
	times, err := s.BookedTimes(ctx, "lucas", "2026-03-02")
	if err != nil || len(times) != 1 || times[0] != "10:00" {
		t.Fatalf("unexpected booked times %v %v", times, err)
	}
	if times, _ := s.BookedTimes(ctx, "lucas", "2026-03-03"); len(times) != 0 {
		t.Fatalf("expected no bookings on another day, got %v", times)
	}
}

func TestFileStoreConcurrentAddsKeepOneWinner(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "bookings.json"), nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := s.Add(ctx, sampleBooking(string(rune('a'+i)), "tomas", "2026-03-05", "15:30"))
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	if wins != 1 {
		t.Fatalf("expected exactly one booking to win, got %d", wins)
	}
}

func TestFileStoreCorruptFileReadsEmptyAndStaysPut(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bookings.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	s := NewFileStore(path, nil)
	got, err := s.List(context.Background())
	if err != nil || len(got) != 0 {
		t.Fatalf("expected empty list for corrupt file, got %v %v", got, err)
	}
	if _, err := s.BookedTimes(context.Background(), "lucas", "2026-03-02"); err != nil {
		t.Fatalf("BookedTimes failed: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil || string(raw) != "{not json" {
		t.Fatalf("expected reads to leave the file untouched, got %q %v", raw, err)
	}
	if n := countBackups(t, dir); n != 0 {
		t.Fatalf("expected no backup after reads, got %d", n)
	}
}

func TestFileStoreCorruptFileIsMovedAsideOnAdd(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bookings.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	s := NewFileStore(path, nil)
	if err := s.Add(context.Background(), sampleBooking("1", "lucas", "2026-03-02", "10:00")); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if n := countBackups(t, dir); n != 1 {
		t.Fatalf("expected one backup of the corrupt file, got %d", n)
	}
	got, err := s.List(context.Background())
	if err != nil || len(got) != 1 {
		t.Fatalf("expected the new booking only, got %v %v", got, err)
	}
}

func countBackups(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	n := 0
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "bookings.json.corrupt-") {
			n++
		}
	}
	return n
}

func TestFileStoreEmptyFileIsEmptyList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bookings.json")
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := NewFileStore(path, nil).List(context.Background())
	if err != nil || len(got) != 0 {
		t.Fatalf("expected empty list, got %v %v", got, err)
	}
}

func TestFileStorePing(t *testing.T) {
	if err := NewFileStore("", nil).Ping(context.Background()); err != nil {
		t.Fatalf("memory store ping failed: %v", err)
	}
	dir := t.TempDir()
	if err := NewFileStore(filepath.Join(dir, "b.json"), nil).Ping(context.Background()); err != nil {
		t.Fatalf("ping failed: %v", err)
	}
	if err := NewFileStore(filepath.Join(dir, "missing", "b.json"), nil).Ping(context.Background()); err == nil {
		t.Fatal("expected ping error for missing directory")
	}
}

func TestFileStoreHonorsCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := NewFileStore("", nil)
	if err := s.Add(ctx, sampleBooking("1", "lucas", "2026-03-02", "10:00")); err == nil {
		t.Fatal("expected context error")
	}
}
