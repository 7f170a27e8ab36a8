package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lalitraj881/Fire-Tech-Shield-V2-sub000/internal/domain"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestEmptyStoreReadsAsZero(t *testing.T) {
	s := openStore(t)

	jobs, err := s.Jobs()
	require.NoError(t, err)
	assert.Nil(t, jobs)

	devices, err := s.Devices("JOB-1")
	require.NoError(t, err)
	assert.Nil(t, devices)

	customer, err := s.SelectedCustomer()
	require.NoError(t, err)
	assert.Empty(t, customer)

	tech, err := s.Technician()
	require.NoError(t, err)
	assert.Nil(t, tech)
}

func TestJobsRoundTrip(t *testing.T) {
	s := openStore(t)

	jobs := []domain.Job{
		{ID: "JOB-1", Name: "Quarterly maintenance", Status: domain.JobInProgress,
			Priority: domain.PriorityCritical, Type: domain.JobMaintenance},
		{ID: "JOB-2", Name: "Sprinkler repair", Status: domain.JobNotStarted,
			Type: domain.JobRepair},
	}
	require.NoError(t, s.SaveJobs(jobs))

	got, err := s.Jobs()
	require.NoError(t, err)
	assert.Equal(t, jobs, got)

	// write-through: a second save replaces, not appends
	require.NoError(t, s.SaveJobs(jobs[:1]))
	got, err = s.Jobs()
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestDevicesKeyedByJob(t *testing.T) {
	s := openStore(t)

	a := []domain.Device{{ID: "DEV-1", JobID: "JOB-1", Status: domain.DevicePending}}
	b := []domain.Device{{ID: "DEV-2", JobID: "JOB-2", Status: domain.DeviceCompleted}}
	require.NoError(t, s.SaveDevices("JOB-1", a))
	require.NoError(t, s.SaveDevices("JOB-2", b))

	got, err := s.Devices("JOB-1")
	require.NoError(t, err)
	assert.Equal(t, a, got)

	got, err = s.Devices("JOB-2")
	require.NoError(t, err)
	assert.Equal(t, b, got)
}

func TestChecklistRoundTrip(t *testing.T) {
	s := openStore(t)

	min := 12.0
	items := []domain.ChecklistItem{
		{ID: "CHK-1", DeviceID: "DEV-1", Name: "Pressure in range",
			Type: domain.ItemNumeric, Required: true, MinValue: &min,
			RequiresPhoto: true},
	}
	require.NoError(t, s.SaveChecklist("DEV-1", items))

	got, err := s.Checklist("DEV-1")
	require.NoError(t, err)
	assert.Equal(t, items, got)
}

func TestSelectionsAndTechnician(t *testing.T) {
	s := openStore(t)

	require.NoError(t, s.SaveSelectedCustomer("CUST-1"))
	require.NoError(t, s.SaveSelectedSite("SITE-1"))
	require.NoError(t, s.SaveTechnician(&domain.Technician{ID: "TECH-1", FullName: "Dana Ruiz"}))
	require.NoError(t, s.SaveAssignedCustomers([]domain.Customer{{ID: "CUST-1", Name: "Harbour Mall"}}))
	require.NoError(t, s.SaveAssignedSites([]domain.Site{{ID: "SITE-1", Name: "Mall", CustomerID: "CUST-1"}}))

	customer, err := s.SelectedCustomer()
	require.NoError(t, err)
	assert.Equal(t, "CUST-1", customer)

	site, err := s.SelectedSite()
	require.NoError(t, err)
	assert.Equal(t, "SITE-1", site)

	tech, err := s.Technician()
	require.NoError(t, err)
	require.NotNil(t, tech)
	assert.Equal(t, "Dana Ruiz", tech.FullName)

	customers, err := s.AssignedCustomers()
	require.NoError(t, err)
	assert.Len(t, customers, 1)

	sites, err := s.AssignedSites()
	require.NoError(t, err)
	assert.Len(t, sites, 1)
}

func TestClearWipesEverything(t *testing.T) {
	s := openStore(t)

	require.NoError(t, s.SaveJobs([]domain.Job{{ID: "JOB-1"}}))
	require.NoError(t, s.SaveDevices("JOB-1", []domain.Device{{ID: "DEV-1"}}))
	require.NoError(t, s.SaveSelectedCustomer("CUST-1"))
	require.NoError(t, s.SaveTechnician(&domain.Technician{ID: "TECH-1"}))

	require.NoError(t, s.Clear())

	jobs, err := s.Jobs()
	require.NoError(t, err)
	assert.Nil(t, jobs)

	devices, err := s.Devices("JOB-1")
	require.NoError(t, err)
	assert.Nil(t, devices)

	customer, err := s.SelectedCustomer()
	require.NoError(t, err)
	assert.Empty(t, customer)

	tech, err := s.Technician()
	require.NoError(t, err)
	assert.Nil(t, tech)
}

func TestStateSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.SaveJobs([]domain.Job{{ID: "JOB-1", Status: domain.JobInProgress}}))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	jobs, err := s.Jobs()
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, domain.JobInProgress, jobs[0].Status)
}
