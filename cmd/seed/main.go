// Seeds a demo job with devices and checklists into the local cache so the
// UI can be exercised without a reachable ERP.
package main

import (
	"flag"
	"log"

	"github.com/lalitraj881/Fire-Tech-Shield-V2-sub000/internal/domain"
	"github.com/lalitraj881/Fire-Tech-Shield-V2-sub000/internal/storage"
)

func f64(v float64) *float64 { return &v }

func main() {
	cachePath := flag.String("cache", "firetech-cache.db", "path to local cache database")
	flag.Parse()

	store, err := storage.Open(*cachePath)
	if err != nil {
		log.Fatalf("Unable to open local cache: %v\n", err)
	}
	defer store.Close()

	job := domain.Job{
		ID:                   "INSP-JOB-0001",
		Name:                 "Quarterly maintenance - Harbour Mall",
		Type:                 domain.JobMaintenance,
		CustomerID:           "CUST-0001",
		CustomerName:         "Harbour Mall Holdings",
		SiteID:               "SITE-0001",
		SiteName:             "Harbour Mall",
		Priority:             domain.PriorityNormal,
		EstimatedDeviceCount: 2,
		Status:               domain.JobNotStarted,
	}

	devices := []domain.Device{
		{
			ID: "DEV-0001", Name: "Extinguisher B1-07", SerialNumber: "FX-20440917",
			Type: "Powder Extinguisher 6kg", SystemType: "Portable",
			Location: "Basement 1, pillar 7", Status: domain.DevicePending,
			JobID: job.ID, SiteID: job.SiteID,
		},
		{
			ID: "DEV-0002", Name: "Hose Reel L2-03", SerialNumber: "HR-31550211",
			Type: "Hose Reel", SystemType: "Fixed",
			Location: "Level 2, east stairwell", Status: domain.DevicePending,
			JobID: job.ID, SiteID: job.SiteID,
		},
	}

	checklists := map[string][]domain.ChecklistItem{
		"DEV-0001": {
			{ID: "CHK-0001", DeviceID: "DEV-0001", Name: "Pressure gauge in green zone",
				Type: domain.ItemNumeric, Required: true, Unit: "bar",
				MinValue: f64(12), MaxValue: f64(18),
				RequiresPhoto: true, RequiresDescription: true},
			{ID: "CHK-0002", DeviceID: "DEV-0001", Name: "Safety pin and seal intact",
				Type: domain.ItemToggle, Required: true, Critical: true,
				RequiresPhoto: true, RequiresDescription: true},
			{ID: "CHK-0003", DeviceID: "DEV-0001", Name: "Access unobstructed",
				Type: domain.ItemToggle, Required: true},
		},
		"DEV-0002": {
			{ID: "CHK-0004", DeviceID: "DEV-0002", Name: "Nozzle condition remarks",
				Type: domain.ItemText, Required: false},
			{ID: "CHK-0005", DeviceID: "DEV-0002", Name: "Hose fully unrolls without kinks",
				Type: domain.ItemToggle, Required: true, Critical: true,
				RequiresPhoto: true, RequiresDescription: true},
		},
	}

	if err := store.SaveJobs([]domain.Job{job}); err != nil {
		log.Fatalf("Failed to seed job: %v\n", err)
	}
	if err := store.SaveDevices(job.ID, devices); err != nil {
		log.Fatalf("Failed to seed devices: %v\n", err)
	}
	for deviceID, items := range checklists {
		if err := store.SaveChecklist(deviceID, items); err != nil {
			log.Fatalf("Failed to seed checklist for %s: %v\n", deviceID, err)
		}
	}

	log.Println("Seeding completed successfully!")
}
