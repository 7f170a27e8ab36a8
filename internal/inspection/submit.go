package inspection

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lalitraj881/Fire-Tech-Shield-V2-sub000/internal/domain"
	"github.com/lalitraj881/Fire-Tech-Shield-V2-sub000/internal/evidence"
	"github.com/lalitraj881/Fire-Tech-Shield-V2-sub000/internal/storage"
)

// ErrIncomplete is returned when Submit is called while CanSubmit is false.
var ErrIncomplete = fmt.Errorf("checklist is not complete")

// ncPrefix is the fixed prefix of generated non-conformance references.
const ncPrefix = "NC"

// Submitter turns a finished session into the ERP submission: evidence
// upload, batched result update, local reconciliation and conditional NC
// creation.
type Submitter struct {
	api     domain.InspectionAPI
	storage domain.FileStorage
	store   domain.Store
	log     *zap.Logger
	now     func() time.Time
}

func NewSubmitter(api domain.InspectionAPI, fs domain.FileStorage, store domain.Store, log *zap.Logger) *Submitter {
	return &Submitter{
		api:     api,
		storage: fs,
		store:   store,
		log:     log,
		now:     time.Now,
	}
}

// Outcome reports what a submission produced.
type Outcome struct {
	Overall domain.Severity        `json:"overall"`
	Failed  bool                   `json:"failed"`
	NC      *domain.NonConformance `json:"nc,omitempty"`
}

// Submit runs the full submission flow for a sealed-from-here-on session:
//
//  1. seal the session (re-entry gets ErrSessionSealed)
//  2. upload photos concurrently, best effort
//  3. PUT the batched checklist results — failure here is fatal and reopens
//     the session for retry
//  4. update local device/job status and reconcile with a fresh job payload
//  5. on a failing overall result, create the NC — failure is only logged
func (s *Submitter) Submit(ctx context.Context, session *Session) (*Outcome, error) {
	if !session.CanSubmit() {
		return nil, ErrIncomplete
	}
	if err := session.seal(); err != nil {
		return nil, err
	}

	overall := session.OverallSeverity()
	failed := overall != domain.SeverityPass

	s.uploadPhotos(ctx, session)

	results := s.assembleResults(session)
	if err := s.api.SubmitResults(ctx, session.Job.ID, results); err != nil {
		session.unseal()
		return nil, fmt.Errorf("failed to submit inspection results: %w", err)
	}

	if err := s.reconcile(ctx, session, failed); err != nil {
		// The submission itself succeeded; a reconcile hiccup only degrades
		// the local cache until the next job load.
		s.log.Warn("post-submit reconcile failed",
			zap.String("job", session.Job.ID), zap.Error(err))
	}

	outcome := &Outcome{Overall: overall, Failed: failed}
	if failed {
		nc := s.buildNC(session)
		if err := s.api.CreateNonConformity(ctx, nc); err != nil {
			// Not transactional with the inspection: the submitted results
			// stand regardless of NC outcome.
			s.log.Error("failed to create non-conformance",
				zap.String("reference", nc.Reference), zap.Error(err))
		} else {
			outcome.NC = nc
		}
	}

	return outcome, nil
}

// uploadPhotos converts each item's data-URL photo to a binary blob and
// uploads it, replacing the in-memory photo with the returned URL. Uploads
// run in parallel; a failed upload leaves the photo field empty and is only
// logged.
func (s *Submitter) uploadPhotos(ctx context.Context, session *Session) {
	var wg sync.WaitGroup
	for itemID, state := range session.States() {
		if state.Photo == "" || !strings.HasPrefix(state.Photo, "data:") {
			continue
		}

		wg.Add(1)
		go func(itemID, dataURL string) {
			defer wg.Done()

			_, blob, err := evidence.DecodeDataURL(dataURL)
			if err != nil {
				s.log.Warn("dropping malformed photo",
					zap.String("item", itemID), zap.Error(err))
				session.setPhotoURL(itemID, "")
				return
			}

			key := fmt.Sprintf("inspections/%s/%s/%s.jpg",
				session.Job.ID, session.Device.ID, itemID)
			if _, err := s.storage.Upload(ctx, key, blob); err != nil {
				s.log.Warn("photo upload failed, submitting without evidence",
					zap.String("item", itemID), zap.Error(err))
				session.setPhotoURL(itemID, "")
				return
			}

			url, err := s.storage.GetURL(ctx, key)
			if err != nil {
				s.log.Warn("failed to resolve photo URL",
					zap.String("item", itemID), zap.Error(err))
				session.setPhotoURL(itemID, "")
				return
			}
			session.setPhotoURL(itemID, url)
		}(itemID, state.Photo)
	}
	wg.Wait()
}

// assembleResults builds one wire record per checklist item.
func (s *Submitter) assembleResults(session *Session) []domain.ChecklistResult {
	states := session.States()

	results := make([]domain.ChecklistResult, 0, len(session.Items()))
	for _, item := range session.Items() {
		state := states[item.ID]

		result := domain.SeverityPass
		if state.Result != nil {
			result = *state.Result
		}

		results = append(results, domain.ChecklistResult{
			InspectionData:      item.Name,
			DeviceID:            session.Device.ID,
			ChecklistID:         item.ID,
			ReadingValue:        readingValue(item, state),
			Result:              result,
			Photo:               state.Photo,
			Description:         state.Notes,
			MinValue:            item.MinValue,
			MaxValue:            item.MaxValue,
			RequiresPhoto:       item.RequiresPhoto,
			RequiresDescription: item.RequiresDescription,
		})
	}
	return results
}

func readingValue(item domain.ChecklistItem, state domain.ChecklistItemState) string {
	switch item.Type {
	case domain.ItemNumeric:
		if state.Reading != nil {
			return strconv.FormatFloat(*state.Reading, 'f', -1, 64)
		}
	case domain.ItemText:
		return state.Text
	}
	return ""
}

// reconcile marks the device outcome locally, then reloads the job payload
// and merges it back so server-confirmed state lands in the cache without
// clobbering the locally tracked device fields. When every device in the job
// is done, the job is completed on the server as well.
func (s *Submitter) reconcile(ctx context.Context, session *Session, failed bool) error {
	jobID := session.Job.ID

	status := domain.DeviceCompleted
	if failed {
		status = domain.DeviceFailed
	}

	devices, err := s.store.Devices(jobID)
	if err != nil {
		return err
	}
	for i := range devices {
		if devices[i].ID == session.Device.ID {
			devices[i].Status = status
		}
	}
	if err := s.store.SaveDevices(jobID, devices); err != nil {
		return err
	}

	payload, err := s.api.JobPayload(ctx, jobID)
	if err != nil {
		return err
	}

	merged := storage.MergeDevices(devices, payload.Devices)
	if err := s.store.SaveDevices(jobID, merged); err != nil {
		return err
	}

	// Completion is judged on the merged list: a device the server added
	// since the job was loaded still counts as open work.
	allDone := true
	for _, d := range merged {
		if d.Status == domain.DevicePending {
			allDone = false
		}
	}

	job := payload.Job
	if job.Status.Rank() < domain.JobInProgress.Rank() {
		job.Status = domain.JobInProgress
	}
	if allDone && job.Status != domain.JobCompleted {
		if err := s.api.CompleteJob(ctx, jobID); err != nil {
			s.log.Warn("failed to complete job on server",
				zap.String("job", jobID), zap.Error(err))
		} else {
			job.Status = domain.JobCompleted
		}
	}

	jobs, err := s.store.Jobs()
	if err != nil {
		return err
	}
	return s.store.SaveJobs(storage.UpsertJob(jobs, job))
}

// buildNC assembles the non-conformance for a failing inspection, including
// the generated human-readable reference. The reference format is a client
// convention: prefix, customer, device-derived short id, 4-digit time
// suffix.
func (s *Submitter) buildNC(session *Session) *domain.NonConformance {
	now := s.now()

	items := make([]domain.NCItem, 0)
	for _, f := range session.FailedItems() {
		desc := readingValue(f.Item, f.State)
		if desc == "" && f.State.Result != nil {
			desc = string(*f.State.Result)
		}
		photo := f.State.Photo
		if strings.HasPrefix(photo, "data:") {
			photo = "" // upload never completed, omit rather than inline
		}
		items = append(items, domain.NCItem{
			Description: fmt.Sprintf("%s: %s", f.Item.Name, desc),
			Notes:       f.State.Notes,
			PhotoURL:    photo,
		})
	}

	return &domain.NonConformance{
		Reference:  NCReference(session.Job.CustomerName, session.Device.ID, now),
		JobID:      session.Job.ID,
		DeviceID:   session.Device.ID,
		DeviceName: session.Device.Name,
		CustomerID: session.Job.CustomerID,
		SiteID:     session.Job.SiteID,
		Items:      items,
		CreatedAt:  now,
	}
}

// NCReference builds the reference string "NC-<CUSTOMER>-<DEV4>-<HHMM>".
// Customer names are upper-cased and stripped to alphanumerics; the device
// short id is the last four characters of the device id.
func NCReference(customerName, deviceID string, at time.Time) string {
	customer := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - ('a' - 'A')
		case (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'):
			return r
		}
		return -1
	}, customerName)
	if len(customer) > 8 {
		customer = customer[:8]
	}

	short := deviceID
	if len(short) > 4 {
		short = short[len(short)-4:]
	}
	short = strings.ToUpper(short)

	return fmt.Sprintf("%s-%s-%s-%s", ncPrefix, customer, short, at.Format("1504"))
}
