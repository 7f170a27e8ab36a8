package domain

import (
	"context"
	"math"
	"time"
)

// ItemType classifies how a checklist item is answered.
type ItemType string

const (
	ItemToggle  ItemType = "toggle"
	ItemNumeric ItemType = "numeric"
	ItemText    ItemType = "text"
)

// Severity is the graded outcome of a checklist item, ordered
// critical > minor > optional > pass.
type Severity string

const (
	SeverityPass     Severity = "Pass"
	SeverityOptional Severity = "Optional"
	SeverityMinor    Severity = "Minor"
	SeverityCritical Severity = "Critical"
)

var severityRank = map[Severity]int{
	SeverityPass:     0,
	SeverityOptional: 1,
	SeverityMinor:    2,
	SeverityCritical: 3,
}

// Rank returns the ordering weight of the severity. Unknown values rank
// below pass so they can never win an aggregation.
func (s Severity) Rank() int {
	if r, ok := severityRank[s]; ok {
		return r
	}
	return -1
}

func (s Severity) IsValid() bool {
	_, ok := severityRank[s]
	return ok
}

// MaxSeverity returns the higher-ranked of the two severities.
func MaxSeverity(a, b Severity) Severity {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// ChecklistItem is one inspection question attached to a device. Items are
// server-authoritative and immutable once fetched for a job.
type ChecklistItem struct {
	ID                  string   `json:"id"`
	DeviceID            string   `json:"device_id"`
	Name                string   `json:"name"`
	Type                ItemType `json:"type"`
	Required            bool     `json:"required"`
	Critical            bool     `json:"critical"`
	Unit                string   `json:"unit,omitempty"`
	MinValue            *float64 `json:"min_value,omitempty"`
	MaxValue            *float64 `json:"max_value,omitempty"`
	RequiresPhoto       bool     `json:"requires_photo"`
	RequiresDescription bool     `json:"requires_description"`
	SeverityColor       string   `json:"severity_color,omitempty"`
}

// Bounds returns the effective numeric range for the item. A missing lower
// bound reads as 0 and a missing upper bound as +Inf.
func (c ChecklistItem) Bounds() (min, max float64) {
	min = 0
	max = math.Inf(1)
	if c.MinValue != nil {
		min = *c.MinValue
	}
	if c.MaxValue != nil {
		max = *c.MaxValue
	}
	return min, max
}

// ChecklistItemState is the technician's in-flight answer for one item.
// It lives only for the duration of an open inspection session and is never
// written to the local cache.
type ChecklistItemState struct {
	ItemID  string    `json:"item_id"`
	Result  *Severity `json:"result,omitempty"`
	Reading *float64  `json:"reading,omitempty"`
	Text    string    `json:"text,omitempty"`
	Photo   string    `json:"photo,omitempty"` // data URL before upload, file URL after
	Notes   string    `json:"notes,omitempty"`
}

// Answered reports whether the item has a derived result.
func (s ChecklistItemState) Answered() bool {
	return s.Result != nil
}

// Failing reports whether the item has a result other than pass.
func (s ChecklistItemState) Failing() bool {
	return s.Result != nil && *s.Result != SeverityPass
}

// DeviceStatus tracks a device through a job.
type DeviceStatus string

const (
	DevicePending   DeviceStatus = "pending"
	DeviceCompleted DeviceStatus = "completed"
	DeviceFailed    DeviceStatus = "failed"
)

// Device is one inspectable fire-safety asset at a site.
type Device struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	SerialNumber string       `json:"serial_number"`
	Type         string       `json:"type"`
	SystemType   string       `json:"system_type"`
	Location     string       `json:"location"`
	Latitude     *float64     `json:"latitude,omitempty"`
	Longitude    *float64     `json:"longitude,omitempty"`
	Status       DeviceStatus `json:"status"`
	IsVerified   bool         `json:"is_verified"`
	JobID        string       `json:"job_id"`
	SiteID       string       `json:"site_id"`
}

type JobType string

const (
	JobMaintenance JobType = "maintenance"
	JobRepair      JobType = "repair"
)

type JobPriority string

const (
	PriorityCritical     JobPriority = "critical"
	PrioritySemicritical JobPriority = "semicritical"
	PriorityNormal       JobPriority = "normal"
	PriorityLow          JobPriority = "low"
)

type JobStatus string

const (
	JobNotStarted JobStatus = "not-started"
	JobInProgress JobStatus = "in-progress"
	JobCompleted  JobStatus = "completed"
)

var jobStatusRank = map[JobStatus]int{
	JobNotStarted: 0,
	JobInProgress: 1,
	JobCompleted:  2,
}

// Rank orders job statuses along their monotonic lifecycle.
func (s JobStatus) Rank() int {
	return jobStatusRank[s]
}

// Job is one scheduled inspection or repair visit covering a set of devices.
type Job struct {
	ID                   string      `json:"id"`
	Name                 string      `json:"name"`
	Type                 JobType     `json:"type"`
	CustomerID           string      `json:"customer_id"`
	CustomerName         string      `json:"customer_name"`
	SiteID               string      `json:"site_id"`
	SiteName             string      `json:"site_name"`
	Priority             JobPriority `json:"priority"`
	EstimatedDeviceCount int         `json:"estimated_device_count"`
	OpenNCCount          int         `json:"open_nc_count"`
	Status               JobStatus   `json:"status"`
}

// ChecklistResult is one submitted answer in the batched job update.
type ChecklistResult struct {
	InspectionData      string   `json:"inspection_data"`
	DeviceID            string   `json:"device_id"`
	ChecklistID         string   `json:"checklist_id"`
	ReadingValue        string   `json:"reading_value"`
	Result              Severity `json:"result"`
	Photo               string   `json:"photo,omitempty"`
	Description         string   `json:"description,omitempty"`
	MinValue            *float64 `json:"min_value,omitempty"`
	MaxValue            *float64 `json:"max_value,omitempty"`
	RequiresPhoto       bool     `json:"requires_photo"`
	RequiresDescription bool     `json:"requires_description"`
}

// NCItem describes one failed checklist result inside a non-conformance.
type NCItem struct {
	Description string `json:"description"`
	Notes       string `json:"notes,omitempty"`
	PhotoURL    string `json:"photo,omitempty"`
}

// NonConformance records a failed inspection requiring follow-up. It is
// generated by a failing submission and never edited by the technician.
type NonConformance struct {
	Reference  string    `json:"reference"`
	JobID      string    `json:"job_id"`
	DeviceID   string    `json:"device_id"`
	DeviceName string    `json:"device_name"`
	CustomerID string    `json:"customer_id"`
	SiteID     string    `json:"site_id"`
	Items      []NCItem  `json:"items"`
	CreatedAt  time.Time `json:"created_at"`
}

// Technician is the signed-in field user.
type Technician struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone,omitempty"`
}

type Customer struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Site struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	CustomerID string `json:"customer_id"`
}

// System is a fire-safety system category (sprinkler, alarm, portable...).
type System struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// DeviceType is one of the device categories referenced by devices.
type DeviceType struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// JobPayload is the full server payload for one job: the job document, every
// device and checklist item scoped to it, and the reference lists the UI
// filters by.
type JobPayload struct {
	Job         Job
	Devices     []Device
	Checklists  []ChecklistItem
	Systems     []System
	DeviceTypes []DeviceType
}

// InspectionAPI is the remote ERP surface the inspection flow depends on.
// The concrete client lives in the erp package; fakes stand in for it in tests.
type InspectionAPI interface {
	JobPayload(ctx context.Context, jobID string) (*JobPayload, error)
	SubmitResults(ctx context.Context, jobID string, results []ChecklistResult) error
	CompleteJob(ctx context.Context, jobID string) error
	CreateNonConformity(ctx context.Context, nc *NonConformance) error
}

// FileStorage uploads evidence binaries and resolves them to viewable URLs.
type FileStorage interface {
	Upload(ctx context.Context, key string, data []byte) (string, error)
	GetURL(ctx context.Context, key string) (string, error)
}

// Store is the durable local cache mirroring job, device and checklist state
// across process restarts.
type Store interface {
	SaveJobs(jobs []Job) error
	Jobs() ([]Job, error)
	SaveDevices(jobID string, devices []Device) error
	Devices(jobID string) ([]Device, error)
	SaveChecklist(deviceID string, items []ChecklistItem) error
	Checklist(deviceID string) ([]ChecklistItem, error)
	SaveSelectedCustomer(id string) error
	SelectedCustomer() (string, error)
	SaveSelectedSite(id string) error
	SelectedSite() (string, error)
	SaveTechnician(t *Technician) error
	Technician() (*Technician, error)
	SaveAssignedCustomers(customers []Customer) error
	AssignedCustomers() ([]Customer, error)
	SaveAssignedSites(sites []Site) error
	AssignedSites() ([]Site, error)
	Clear() error
}
