// Package storage is the durable local cache for the field gateway. It
// mirrors jobs, devices, checklists and session-scoped selections into an
// embedded SQLite database so state survives process restarts.
package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // pure Go SQLite driver

	"github.com/lalitraj881/Fire-Tech-Shield-V2-sub000/internal/domain"
)

// ErrNotFound is returned when a cache key has never been written.
var ErrNotFound = errors.New("not found in local cache")

// Fixed cache keys. Every state slice has exactly one durable key.
const (
	keyJobs              = "jobs"
	keyDevicesPrefix     = "devices:"    // + job id
	keyChecklistPrefix   = "checklists:" // + device id
	keySelectedCustomer  = "selected_customer"
	keySelectedSite      = "selected_site"
	keyTechnician        = "technician"
	keyAssignedCustomers = "assigned_customers"
	keyAssignedSites     = "assigned_sites"
)

// Store implements domain.Store on an embedded SQLite key-value table.
// Writes are write-through: every mutation lands on disk before returning.
type Store struct {
	db *sql.DB
}

var _ domain.Store = (*Store)(nil)

// Open opens (or creates) the cache database at path. An empty path opens an
// in-memory database, which tests rely on.
func Open(path string) (*Store, error) {
	if path == "" {
		path = ":memory:"
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	// The cache is written from HTTP handler goroutines; a single connection
	// sidesteps SQLite write contention entirely.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	schema := `CREATE TABLE IF NOT EXISTS cache (
		key        TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init cache schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) put(key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %q: %w", key, err)
	}
	query := `INSERT INTO cache (key, value, updated_at) VALUES ($1, $2, $3)
	          ON CONFLICT (key) DO UPDATE SET value = $2, updated_at = $3`
	_, err = s.db.Exec(query, key, string(data), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to write %q: %w", key, err)
	}
	return nil
}

func (s *Store) get(key string, v interface{}) error {
	var data string
	err := s.db.QueryRow(`SELECT value FROM cache WHERE key = $1`, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read %q: %w", key, err)
	}
	if err := json.Unmarshal([]byte(data), v); err != nil {
		return fmt.Errorf("failed to decode %q: %w", key, err)
	}
	return nil
}

func (s *Store) SaveJobs(jobs []domain.Job) error {
	return s.put(keyJobs, jobs)
}

func (s *Store) Jobs() ([]domain.Job, error) {
	var jobs []domain.Job
	err := s.get(keyJobs, &jobs)
	if err == ErrNotFound {
		return nil, nil
	}
	return jobs, err
}

func (s *Store) SaveDevices(jobID string, devices []domain.Device) error {
	return s.put(keyDevicesPrefix+jobID, devices)
}

func (s *Store) Devices(jobID string) ([]domain.Device, error) {
	var devices []domain.Device
	err := s.get(keyDevicesPrefix+jobID, &devices)
	if err == ErrNotFound {
		return nil, nil
	}
	return devices, err
}

func (s *Store) SaveChecklist(deviceID string, items []domain.ChecklistItem) error {
	return s.put(keyChecklistPrefix+deviceID, items)
}

func (s *Store) Checklist(deviceID string) ([]domain.ChecklistItem, error) {
	var items []domain.ChecklistItem
	err := s.get(keyChecklistPrefix+deviceID, &items)
	if err == ErrNotFound {
		return nil, nil
	}
	return items, err
}

func (s *Store) SaveSelectedCustomer(id string) error {
	return s.put(keySelectedCustomer, id)
}

func (s *Store) SelectedCustomer() (string, error) {
	var id string
	err := s.get(keySelectedCustomer, &id)
	if err == ErrNotFound {
		return "", nil
	}
	return id, err
}

func (s *Store) SaveSelectedSite(id string) error {
	return s.put(keySelectedSite, id)
}

func (s *Store) SelectedSite() (string, error) {
	var id string
	err := s.get(keySelectedSite, &id)
	if err == ErrNotFound {
		return "", nil
	}
	return id, err
}

func (s *Store) SaveTechnician(t *domain.Technician) error {
	return s.put(keyTechnician, t)
}

func (s *Store) Technician() (*domain.Technician, error) {
	var t domain.Technician
	err := s.get(keyTechnician, &t)
	if err == ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Store) SaveAssignedCustomers(customers []domain.Customer) error {
	return s.put(keyAssignedCustomers, customers)
}

func (s *Store) AssignedCustomers() ([]domain.Customer, error) {
	var customers []domain.Customer
	err := s.get(keyAssignedCustomers, &customers)
	if err == ErrNotFound {
		return nil, nil
	}
	return customers, err
}

func (s *Store) SaveAssignedSites(sites []domain.Site) error {
	return s.put(keyAssignedSites, sites)
}

func (s *Store) AssignedSites() ([]domain.Site, error) {
	var sites []domain.Site
	err := s.get(keyAssignedSites, &sites)
	if err == ErrNotFound {
		return nil, nil
	}
	return sites, err
}

// Clear wipes every cache key in one transaction. Used on logout and on
// change-site; no partially cleared state is observable afterwards.
func (s *Store) Clear() error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM cache`); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return tx.Commit()
}
