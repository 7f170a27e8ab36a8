package storage

import "github.com/lalitraj881/Fire-Tech-Shield-V2-sub000/internal/domain"

// MergeDevices reconciles a fresh server payload with locally cached device
// records, keyed by device id. Server fields win wholesale except for the
// locally tracked fields, which are preserved for devices already present:
//
//   - Status      (set by inspection outcome, server defaults would reset it)
//   - IsVerified  (set by QR verification)
//
// Incoming order is kept; devices no longer in the payload are dropped.
func MergeDevices(existing, incoming []domain.Device) []domain.Device {
	byID := make(map[string]domain.Device, len(existing))
	for _, d := range existing {
		byID[d.ID] = d
	}

	merged := make([]domain.Device, 0, len(incoming))
	for _, d := range incoming {
		if local, ok := byID[d.ID]; ok {
			d.Status = local.Status
			d.IsVerified = local.IsVerified
		}
		merged = append(merged, d)
	}
	return merged
}

// MergeJobs reconciles freshly fetched jobs with the cached list, keyed by
// job id. Job status only moves forward (not-started -> in-progress ->
// completed), so the further-along status wins regardless of which side
// holds it.
func MergeJobs(existing, incoming []domain.Job) []domain.Job {
	byID := make(map[string]domain.Job, len(existing))
	for _, j := range existing {
		byID[j.ID] = j
	}

	merged := make([]domain.Job, 0, len(incoming))
	for _, j := range incoming {
		if local, ok := byID[j.ID]; ok && local.Status.Rank() > j.Status.Rank() {
			j.Status = local.Status
		}
		merged = append(merged, j)
	}
	return merged
}

// UpsertJob merges a single job into the cached list, appending when the id
// is new.
func UpsertJob(existing []domain.Job, job domain.Job) []domain.Job {
	for i, j := range existing {
		if j.ID == job.ID {
			if j.Status.Rank() > job.Status.Rank() {
				job.Status = j.Status
			}
			existing[i] = job
			return existing
		}
	}
	return append(existing, job)
}
