package erp

import (
	"strings"

	"github.com/lalitraj881/Fire-Tech-Shield-V2-sub000/internal/domain"
)

// Wire shapes of the ERP documents. Frappe checkboxes arrive as 0/1 ints and
// select fields as display strings; mapping to domain enums happens here.

type jobDoc struct {
	Name                string `json:"name"`
	JobName             string `json:"job_name"`
	JobType             string `json:"job_type"`
	Customer            string `json:"customer"`
	CustomerName        string `json:"customer_name"`
	Site                string `json:"site"`
	SiteName            string `json:"site_name"`
	Priority            string `json:"priority"`
	EstimatedDevices    int    `json:"estimated_devices"`
	OpenNonConformities int    `json:"open_non_conformities"`
	WorkflowState       string `json:"workflow_state"`
}

func (d jobDoc) toDomain() domain.Job {
	return domain.Job{
		ID:                   d.Name,
		Name:                 d.JobName,
		Type:                 jobType(d.JobType),
		CustomerID:           d.Customer,
		CustomerName:         d.CustomerName,
		SiteID:               d.Site,
		SiteName:             d.SiteName,
		Priority:             jobPriority(d.Priority),
		EstimatedDeviceCount: d.EstimatedDevices,
		OpenNCCount:          d.OpenNonConformities,
		Status:               jobStatus(d.WorkflowState),
	}
}

func jobType(s string) domain.JobType {
	if strings.EqualFold(s, "Repair") {
		return domain.JobRepair
	}
	return domain.JobMaintenance
}

func jobPriority(s string) domain.JobPriority {
	switch strings.ToLower(s) {
	case "critical":
		return domain.PriorityCritical
	case "semicritical", "semi-critical":
		return domain.PrioritySemicritical
	case "low":
		return domain.PriorityLow
	default:
		return domain.PriorityNormal
	}
}

func jobStatus(workflowState string) domain.JobStatus {
	switch strings.ToLower(workflowState) {
	case "completed":
		return domain.JobCompleted
	case "in progress", "in-progress":
		return domain.JobInProgress
	default:
		return domain.JobNotStarted
	}
}

type deviceDoc struct {
	Name                string   `json:"name"`
	DeviceName          string   `json:"device_name"`
	SerialNo            string   `json:"serial_no"`
	DeviceType          string   `json:"device_type"`
	SystemType          string   `json:"system_type"`
	LocationDescription string   `json:"location_description"`
	GPSLatitude         *float64 `json:"gps_latitude"`
	GPSLongitude        *float64 `json:"gps_longitude"`
	Site                string   `json:"site"`
}

func (d deviceDoc) toDomain(jobID string) domain.Device {
	return domain.Device{
		ID:           d.Name,
		Name:         d.DeviceName,
		SerialNumber: d.SerialNo,
		Type:         d.DeviceType,
		SystemType:   d.SystemType,
		Location:     d.LocationDescription,
		Latitude:     d.GPSLatitude,
		Longitude:    d.GPSLongitude,
		Status:       domain.DevicePending,
		JobID:        jobID,
		SiteID:       d.Site,
	}
}

type checklistDoc struct {
	Name                string   `json:"name"`
	Device              string   `json:"device"`
	Question            string   `json:"question"`
	AnswerType          string   `json:"answer_type"`
	IsRequired          int      `json:"is_required"`
	IsCritical          int      `json:"is_critical"`
	Unit                string   `json:"unit"`
	MinValue            *float64 `json:"min_value"`
	MaxValue            *float64 `json:"max_value"`
	RequiresPhoto       int      `json:"requires_photo"`
	RequiresDescription int      `json:"requires_description"`
	SeverityColor       string   `json:"severity_color"`
}

func (d checklistDoc) toDomain() domain.ChecklistItem {
	return domain.ChecklistItem{
		ID:                  d.Name,
		DeviceID:            d.Device,
		Name:                d.Question,
		Type:                itemType(d.AnswerType),
		Required:            d.IsRequired != 0,
		Critical:            d.IsCritical != 0,
		Unit:                d.Unit,
		MinValue:            d.MinValue,
		MaxValue:            d.MaxValue,
		RequiresPhoto:       d.RequiresPhoto != 0,
		RequiresDescription: d.RequiresDescription != 0,
		SeverityColor:       d.SeverityColor,
	}
}

func itemType(s string) domain.ItemType {
	switch strings.ToLower(s) {
	case "numeric", "number", "reading":
		return domain.ItemNumeric
	case "text", "free text":
		return domain.ItemText
	default:
		return domain.ItemToggle
	}
}

type refDoc struct {
	Name  string `json:"name"`
	Label string `json:"label"`
}

func (d refDoc) label() string {
	if d.Label != "" {
		return d.Label
	}
	return d.Name
}

type jobPayloadDoc struct {
	InspectionJob jobDoc         `json:"inspection_job"`
	Devices       []deviceDoc    `json:"devices"`
	Checklists    []checklistDoc `json:"checklists"`
	Systems       []refDoc       `json:"systems"`
	DeviceTypes   []refDoc       `json:"device_types"`
}

func (p jobPayloadDoc) toDomain() *domain.JobPayload {
	out := &domain.JobPayload{Job: p.InspectionJob.toDomain()}
	for _, d := range p.Devices {
		out.Devices = append(out.Devices, d.toDomain(out.Job.ID))
	}
	for _, c := range p.Checklists {
		out.Checklists = append(out.Checklists, c.toDomain())
	}
	for _, s := range p.Systems {
		out.Systems = append(out.Systems, domain.System{ID: s.Name, Name: s.label()})
	}
	for _, d := range p.DeviceTypes {
		out.DeviceTypes = append(out.DeviceTypes, domain.DeviceType{ID: d.Name, Name: d.label()})
	}
	return out
}

type ncItemDoc struct {
	Description string `json:"description"`
	Notes       string `json:"notes,omitempty"`
	Photo       string `json:"photo,omitempty"`
}

type ncDoc struct {
	Reference     string      `json:"nc_reference"`
	InspectionJob string      `json:"inspection_job"`
	Device        string      `json:"device"`
	DeviceName    string      `json:"device_name"`
	Customer      string      `json:"customer"`
	Site          string      `json:"site"`
	Items         []ncItemDoc `json:"failed_results"`
}

func ncDocFrom(nc *domain.NonConformance) ncDoc {
	doc := ncDoc{
		Reference:     nc.Reference,
		InspectionJob: nc.JobID,
		Device:        nc.DeviceID,
		DeviceName:    nc.DeviceName,
		Customer:      nc.CustomerID,
		Site:          nc.SiteID,
	}
	for _, item := range nc.Items {
		doc.Items = append(doc.Items, ncItemDoc{
			Description: item.Description,
			Notes:       item.Notes,
			Photo:       item.PhotoURL,
		})
	}
	return doc
}
