// Package delivery exposes the JSON API consumed by the mobile web UI.
// Presentation lives entirely in the UI; these handlers only move state
// between the UI, the session engine, the local cache and the ERP.
package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lalitraj881/Fire-Tech-Shield-V2-sub000/internal/domain"
	"github.com/lalitraj881/Fire-Tech-Shield-V2-sub000/internal/erp"
	"github.com/lalitraj881/Fire-Tech-Shield-V2-sub000/internal/evidence"
	"github.com/lalitraj881/Fire-Tech-Shield-V2-sub000/internal/identify"
	"github.com/lalitraj881/Fire-Tech-Shield-V2-sub000/internal/inspection"
	"github.com/lalitraj881/Fire-Tech-Shield-V2-sub000/internal/report"
	"github.com/lalitraj881/Fire-Tech-Shield-V2-sub000/internal/storage"
)

// ERPGateway is the slice of the ERP client the handlers use directly.
// Submission goes through the Submitter instead.
type ERPGateway interface {
	JobPayload(ctx context.Context, jobID string) (*domain.JobPayload, error)
	ResolveQR(ctx context.Context, registerID string) (string, error)
	Customers(ctx context.Context) ([]domain.Customer, error)
	Sites(ctx context.Context, customerID string) ([]domain.Site, error)
	Jobs(ctx context.Context, siteID string) ([]domain.Job, error)
	TechnicianProfile(ctx context.Context) (*domain.Technician, error)
}

// Submitter runs the submission flow for a finished session.
type Submitter interface {
	Submit(ctx context.Context, session *inspection.Session) (*inspection.Outcome, error)
}

// Handler is the API surface for the field UI. Open sessions live in memory
// only; everything else is write-through to the local cache.
type Handler struct {
	erp       ERPGateway
	store     domain.Store
	submitter Submitter
	log       *zap.Logger

	mu       sync.Mutex
	sessions map[string]*inspection.Session
}

func NewHandler(gateway ERPGateway, store domain.Store, submitter Submitter, log *zap.Logger) *Handler {
	return &Handler{
		erp:       gateway,
		store:     store,
		submitter: submitter,
		log:       log,
		sessions:  make(map[string]*inspection.Session),
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	switch {
	case path == "/api/bootstrap" && r.Method == http.MethodPost:
		h.handleBootstrap(w, r)
	case path == "/api/customers" && r.Method == http.MethodGet:
		h.handleListCustomers(w, r)
	case path == "/api/customers/select" && r.Method == http.MethodPost:
		h.handleSelectCustomer(w, r)
	case path == "/api/sites/select" && r.Method == http.MethodPost:
		h.handleSelectSite(w, r)
	case path == "/api/jobs" && r.Method == http.MethodGet:
		h.handleListJobs(w, r)
	case path == "/api/jobs/load" && r.Method == http.MethodPost:
		h.handleLoadJob(w, r)
	case strings.HasPrefix(path, "/api/jobs/") && strings.HasSuffix(path, "/devices") && r.Method == http.MethodGet:
		h.handleListDevices(w, r)
	case path == "/api/devices/verify" && r.Method == http.MethodPost:
		h.handleVerifyDevice(w, r)
	case path == "/api/devices/identify" && r.Method == http.MethodPost:
		h.handleIdentifyDevice(w, r)
	case path == "/api/sessions" && r.Method == http.MethodPost:
		h.handleOpenSession(w, r)
	case strings.HasPrefix(path, "/api/sessions/") && strings.HasSuffix(path, "/answer") && r.Method == http.MethodPost:
		h.handleAnswer(w, r)
	case strings.HasPrefix(path, "/api/sessions/") && strings.HasSuffix(path, "/evidence") && r.Method == http.MethodPost:
		h.handleEvidence(w, r)
	case strings.HasPrefix(path, "/api/sessions/") && strings.HasSuffix(path, "/submit") && r.Method == http.MethodPost:
		h.handleSubmit(w, r)
	case strings.HasPrefix(path, "/api/sessions/") && strings.HasSuffix(path, "/report") && r.Method == http.MethodGet:
		h.handleReport(w, r)
	case strings.HasPrefix(path, "/api/sessions/") && r.Method == http.MethodGet:
		h.handleSessionState(w, r)
	case strings.HasPrefix(path, "/api/sessions/") && r.Method == http.MethodDelete:
		h.handleCloseSession(w, r)
	case path == "/api/logout" && r.Method == http.MethodPost:
		h.handleLogout(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, err error) {
	h.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.writeError(w, http.StatusBadRequest, errors.New("invalid request body"))
		return false
	}
	return true
}

// sessionID extracts the id out of /api/sessions/<id>/... paths.
func sessionID(path string) string {
	parts := strings.Split(path, "/")
	if len(parts) < 4 {
		return ""
	}
	return parts[3]
}

func (h *Handler) session(id string) (*inspection.Session, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.sessions[id]
	return s, ok
}

// handleBootstrap loads the technician profile and assigned customers from
// the ERP into the local cache. Called once after sign-in.
func (h *Handler) handleBootstrap(w http.ResponseWriter, r *http.Request) {
	tech, err := h.erp.TechnicianProfile(r.Context())
	if err != nil {
		h.writeError(w, http.StatusBadGateway, err)
		return
	}
	customers, err := h.erp.Customers(r.Context())
	if err != nil {
		h.writeError(w, http.StatusBadGateway, err)
		return
	}

	if err := h.store.SaveTechnician(tech); err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if err := h.store.SaveAssignedCustomers(customers); err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"technician": tech,
		"customers":  customers,
	})
}

func (h *Handler) handleListCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.store.AssignedCustomers()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	h.writeJSON(w, http.StatusOK, customers)
}

func (h *Handler) handleSelectCustomer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CustomerID string `json:"customer_id"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	sites, err := h.erp.Sites(r.Context(), req.CustomerID)
	if err != nil {
		h.writeError(w, http.StatusBadGateway, err)
		return
	}

	if err := h.store.SaveSelectedCustomer(req.CustomerID); err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if err := h.store.SaveAssignedSites(sites); err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}

	h.writeJSON(w, http.StatusOK, sites)
}

// handleSelectSite stores the site selection and pulls its job list. A
// same-site refresh merges by id so locally advanced job statuses survive;
// switching to a different site wipes the previous site's cached jobs,
// devices and checklists first.
func (h *Handler) handleSelectSite(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SiteID string `json:"site_id"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	prev, err := h.store.SelectedSite()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}

	jobs, err := h.erp.Jobs(r.Context(), req.SiteID)
	if err != nil {
		h.writeError(w, http.StatusBadGateway, err)
		return
	}

	if prev != "" && prev != req.SiteID {
		if err := h.resetSiteState(); err != nil {
			h.writeError(w, http.StatusInternalServerError, err)
			return
		}
	}

	if err := h.store.SaveSelectedSite(req.SiteID); err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}

	existing, err := h.store.Jobs()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	merged := storage.MergeJobs(existing, jobs)
	if err := h.store.SaveJobs(merged); err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}

	h.writeJSON(w, http.StatusOK, merged)
}

// resetSiteState wipes the whole cache on a site change, then carries the
// technician identity and assignment lists back over. Jobs, devices and
// checklists of the previous site must not remain readable afterwards.
func (h *Handler) resetSiteState() error {
	tech, err := h.store.Technician()
	if err != nil {
		return err
	}
	customers, err := h.store.AssignedCustomers()
	if err != nil {
		return err
	}
	sites, err := h.store.AssignedSites()
	if err != nil {
		return err
	}
	customer, err := h.store.SelectedCustomer()
	if err != nil {
		return err
	}

	if err := h.store.Clear(); err != nil {
		return err
	}

	if tech != nil {
		if err := h.store.SaveTechnician(tech); err != nil {
			return err
		}
	}
	if len(customers) > 0 {
		if err := h.store.SaveAssignedCustomers(customers); err != nil {
			return err
		}
	}
	if len(sites) > 0 {
		if err := h.store.SaveAssignedSites(sites); err != nil {
			return err
		}
	}
	if customer != "" {
		if err := h.store.SaveSelectedCustomer(customer); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) handleListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.store.Jobs()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	h.writeJSON(w, http.StatusOK, jobs)
}

// handleLoadJob fetches the full job payload and mirrors it into the cache:
// devices merged by id (local status and verification preserved), checklist
// items grouped per device.
func (h *Handler) handleLoadJob(w http.ResponseWriter, r *http.Request) {
	var req struct {
		JobID string `json:"job_id"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	payload, err := h.erp.JobPayload(r.Context(), req.JobID)
	if err != nil {
		h.writeError(w, http.StatusBadGateway, err)
		return
	}

	existing, err := h.store.Devices(payload.Job.ID)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	devices := storage.MergeDevices(existing, payload.Devices)
	if err := h.store.SaveDevices(payload.Job.ID, devices); err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}

	byDevice := make(map[string][]domain.ChecklistItem)
	for _, item := range payload.Checklists {
		byDevice[item.DeviceID] = append(byDevice[item.DeviceID], item)
	}
	for deviceID, items := range byDevice {
		if err := h.store.SaveChecklist(deviceID, items); err != nil {
			h.writeError(w, http.StatusInternalServerError, err)
			return
		}
	}

	jobs, err := h.store.Jobs()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if err := h.store.SaveJobs(storage.UpsertJob(jobs, payload.Job)); err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"job":     payload.Job,
		"devices": devices,
	})
}

func (h *Handler) handleListDevices(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(r.URL.Path, "/")
	jobID := parts[3]

	devices, err := h.store.Devices(jobID)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	h.writeJSON(w, http.StatusOK, devices)
}

// handleVerifyDevice resolves a scanned QR register id and, on a match,
// marks the device verified in the cache. A mismatch is recoverable: the
// technician rescans.
func (h *Handler) handleVerifyDevice(w http.ResponseWriter, r *http.Request) {
	var req struct {
		JobID      string `json:"job_id"`
		DeviceID   string `json:"device_id"`
		RegisterID string `json:"register_id"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	resolved, err := h.erp.ResolveQR(r.Context(), req.RegisterID)
	if err != nil {
		if errors.Is(err, erp.ErrDeviceNotFound) {
			h.writeError(w, http.StatusNotFound, err)
			return
		}
		h.writeError(w, http.StatusBadGateway, err)
		return
	}
	if resolved != req.DeviceID {
		h.writeError(w, http.StatusConflict, errors.New("QR code belongs to a different device"))
		return
	}

	devices, err := h.store.Devices(req.JobID)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	for i := range devices {
		if devices[i].ID == req.DeviceID {
			devices[i].IsVerified = true
		}
	}
	if err := h.store.SaveDevices(req.JobID, devices); err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]bool{"verified": true})
}

// handleIdentifyDevice OCRs a nameplate photo and returns the extracted
// serial. The fallback path for devices without a readable QR tag.
func (h *Handler) handleIdentifyDevice(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Photo string `json:"photo"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	_, blob, err := evidence.DecodeDataURL(req.Photo)
	if err != nil {
		h.writeError(w, http.StatusUnprocessableEntity, err)
		return
	}

	text, err := identify.ReadNameplate(blob)
	if err != nil {
		h.writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	serial, found := identify.ExtractSerial(text)
	if !found {
		h.writeError(w, http.StatusNotFound, errors.New("no serial number recognized"))
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"serial": serial})
}

// handleOpenSession opens a checklist session for one device from cached
// state. Answer state is transient: it lives in the session, never in the
// cache.
func (h *Handler) handleOpenSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		JobID    string `json:"job_id"`
		DeviceID string `json:"device_id"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	jobs, err := h.store.Jobs()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	var job *domain.Job
	for i := range jobs {
		if jobs[i].ID == req.JobID {
			job = &jobs[i]
			break
		}
	}
	if job == nil {
		h.writeError(w, http.StatusNotFound, errors.New("job not loaded"))
		return
	}

	devices, err := h.store.Devices(req.JobID)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	var device *domain.Device
	for i := range devices {
		if devices[i].ID == req.DeviceID {
			device = &devices[i]
			break
		}
	}
	if device == nil {
		h.writeError(w, http.StatusNotFound, errors.New("device not found in job"))
		return
	}

	items, err := h.store.Checklist(req.DeviceID)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if len(items) == 0 {
		h.writeError(w, http.StatusNotFound, errors.New("no checklist for device"))
		return
	}

	session := inspection.NewSession(*job, *device, items)
	h.mu.Lock()
	h.sessions[session.ID] = session
	h.mu.Unlock()

	h.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"session_id": session.ID,
		"items":      items,
	})
}

func (h *Handler) handleSessionState(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(sessionID(r.URL.Path))
	if !ok {
		h.writeError(w, http.StatusNotFound, errors.New("session not found"))
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"items":      session.Items(),
		"states":     session.States(),
		"overall":    session.OverallSeverity(),
		"can_submit": session.CanSubmit(),
		"sealed":     session.Sealed(),
	})
}

// handleAnswer records one technician interaction. Exactly one of severity,
// reading or text applies, depending on the item type.
func (h *Handler) handleAnswer(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(sessionID(r.URL.Path))
	if !ok {
		h.writeError(w, http.StatusNotFound, errors.New("session not found"))
		return
	}

	var req struct {
		ItemID   string           `json:"item_id"`
		Severity *domain.Severity `json:"severity,omitempty"`
		Reading  *float64         `json:"reading,omitempty"`
		Text     *string          `json:"text,omitempty"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	var err error
	switch {
	case req.Severity != nil:
		err = session.SetSeverity(req.ItemID, *req.Severity)
	case req.Reading != nil:
		err = session.SetNumericValue(req.ItemID, *req.Reading)
	case req.Text != nil:
		err = session.SetTextValue(req.ItemID, *req.Text)
	default:
		h.writeError(w, http.StatusBadRequest, errors.New("missing answer value"))
		return
	}
	if err != nil {
		h.answerError(w, err)
		return
	}

	state, _ := session.State(req.ItemID)
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"state":      state,
		"overall":    session.OverallSeverity(),
		"can_submit": session.CanSubmit(),
	})
}

// handleEvidence attaches photo and/or notes to a (typically failing) item.
func (h *Handler) handleEvidence(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(sessionID(r.URL.Path))
	if !ok {
		h.writeError(w, http.StatusNotFound, errors.New("session not found"))
		return
	}

	var req struct {
		ItemID string  `json:"item_id"`
		Photo  *string `json:"photo,omitempty"`
		Notes  *string `json:"notes,omitempty"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	if req.Photo != nil {
		// Validate before touching the item so a malformed capture leaves
		// the photo slot untouched.
		if _, _, err := evidence.DecodeDataURL(*req.Photo); err != nil {
			h.writeError(w, http.StatusUnprocessableEntity, err)
			return
		}
		if err := session.AttachPhoto(req.ItemID, *req.Photo); err != nil {
			h.answerError(w, err)
			return
		}
	}
	if req.Notes != nil {
		if err := session.SetNotes(req.ItemID, *req.Notes); err != nil {
			h.answerError(w, err)
			return
		}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"can_submit": session.CanSubmit(),
	})
}

func (h *Handler) answerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, inspection.ErrSessionSealed):
		h.writeError(w, http.StatusConflict, err)
	case errors.Is(err, inspection.ErrUnknownItem):
		h.writeError(w, http.StatusNotFound, err)
	default:
		h.writeError(w, http.StatusBadRequest, err)
	}
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(sessionID(r.URL.Path))
	if !ok {
		h.writeError(w, http.StatusNotFound, errors.New("session not found"))
		return
	}

	outcome, err := h.submitter.Submit(r.Context(), session)
	if err != nil {
		switch {
		case errors.Is(err, inspection.ErrSessionSealed):
			h.writeError(w, http.StatusConflict, err)
		case errors.Is(err, inspection.ErrIncomplete):
			h.writeError(w, http.StatusUnprocessableEntity, err)
		default:
			// Submission-fatal: surfaced to the technician, who may retry.
			h.writeError(w, http.StatusBadGateway, err)
		}
		return
	}

	h.writeJSON(w, http.StatusOK, outcome)
}

// handleReport renders a CSV or PDF of the session for on-site handover.
func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(sessionID(r.URL.Path))
	if !ok {
		h.writeError(w, http.StatusNotFound, errors.New("session not found"))
		return
	}

	insp := &report.Inspection{
		Job:        session.Job,
		Device:     session.Device,
		Items:      session.Items(),
		States:     session.States(),
		Overall:    session.OverallSeverity(),
		FinishedAt: time.Now(),
	}

	switch r.URL.Query().Get("format") {
	case "pdf":
		data, err := report.ToPDF(insp)
		if err != nil {
			h.writeError(w, http.StatusInternalServerError, err)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Write(data)
	default:
		data, err := report.ToCSV(insp)
		if err != nil {
			h.writeError(w, http.StatusInternalServerError, err)
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		w.Write(data)
	}
}

// handleCloseSession discards a session's transient answer state.
func (h *Handler) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	id := sessionID(r.URL.Path)
	h.mu.Lock()
	delete(h.sessions, id)
	h.mu.Unlock()
	h.writeJSON(w, http.StatusNoContent, nil)
}

// handleLogout wipes the whole local cache and drops open sessions.
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	h.sessions = make(map[string]*inspection.Session)
	h.mu.Unlock()

	if err := h.store.Clear(); err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	h.writeJSON(w, http.StatusNoContent, nil)
}
