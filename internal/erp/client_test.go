package erp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lalitraj881/Fire-Tech-Shield-V2-sub000/internal/domain"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "key:secret", 5*time.Second, zap.NewNop())
}

func TestJobPayloadMapping(t *testing.T) {
	payload := map[string]interface{}{
		"message": map[string]interface{}{
			"inspection_job": map[string]interface{}{
				"name": "INSP-JOB-0001", "job_name": "Quarterly maintenance",
				"job_type": "Maintenance", "customer": "CUST-1",
				"customer_name": "Harbour Mall", "site": "SITE-1", "site_name": "Mall",
				"priority": "Semi-Critical", "estimated_devices": 2,
				"open_non_conformities": 1, "workflow_state": "In Progress",
			},
			"devices": []map[string]interface{}{
				{"name": "DEV-1", "device_name": "Extinguisher B1-07",
					"serial_no": "FX-20440917", "device_type": "Powder Extinguisher",
					"system_type": "Portable", "location_description": "Basement 1",
					"gps_latitude": 52.52, "gps_longitude": 13.405, "site": "SITE-1"},
			},
			"checklists": []map[string]interface{}{
				{"name": "CHK-1", "device": "DEV-1", "question": "Pressure in range",
					"answer_type": "Numeric", "is_required": 1, "is_critical": 0,
					"unit": "bar", "min_value": 12.0, "max_value": 18.0,
					"requires_photo": 1, "requires_description": 1},
				{"name": "CHK-2", "device": "DEV-1", "question": "Seal intact",
					"answer_type": "Toggle", "is_required": 1, "is_critical": 1},
			},
			"systems": []map[string]interface{}{
				{"name": "SYS-PORT", "label": "Portable"},
			},
			"device_types": []map[string]interface{}{
				{"name": "DT-EXT"},
			},
		},
	}

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/method/get_inspection_job_full_payload", r.URL.Path)
		assert.Equal(t, "INSP-JOB-0001", r.URL.Query().Get("job_name"))
		assert.Equal(t, "token key:secret", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(payload)
	}))

	got, err := client.JobPayload(context.Background(), "INSP-JOB-0001")
	require.NoError(t, err)

	assert.Equal(t, "INSP-JOB-0001", got.Job.ID)
	assert.Equal(t, domain.JobMaintenance, got.Job.Type)
	assert.Equal(t, domain.PrioritySemicritical, got.Job.Priority)
	assert.Equal(t, domain.JobInProgress, got.Job.Status)
	assert.Equal(t, 2, got.Job.EstimatedDeviceCount)
	assert.Equal(t, 1, got.Job.OpenNCCount)

	require.Len(t, got.Devices, 1)
	d := got.Devices[0]
	assert.Equal(t, "DEV-1", d.ID)
	assert.Equal(t, "INSP-JOB-0001", d.JobID)
	assert.Equal(t, domain.DevicePending, d.Status)
	require.NotNil(t, d.Latitude)
	assert.Equal(t, 52.52, *d.Latitude)

	require.Len(t, got.Checklists, 2)
	numeric := got.Checklists[0]
	assert.Equal(t, domain.ItemNumeric, numeric.Type)
	assert.True(t, numeric.Required)
	assert.True(t, numeric.RequiresPhoto)
	require.NotNil(t, numeric.MinValue)
	assert.Equal(t, 12.0, *numeric.MinValue)

	toggle := got.Checklists[1]
	assert.Equal(t, domain.ItemToggle, toggle.Type)
	assert.True(t, toggle.Critical)
	assert.Nil(t, toggle.MinValue)

	require.Len(t, got.Systems, 1)
	assert.Equal(t, domain.System{ID: "SYS-PORT", Name: "Portable"}, got.Systems[0])
	require.Len(t, got.DeviceTypes, 1)
	assert.Equal(t, domain.DeviceType{ID: "DT-EXT", Name: "DT-EXT"}, got.DeviceTypes[0])
}

func TestSubmitResults(t *testing.T) {
	var gotBody map[string][]domain.ChecklistResult

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/resource/Inspection%20Job/INSP-JOB-0001", r.URL.EscapedPath())
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte(`{}`))
	}))

	results := []domain.ChecklistResult{
		{InspectionData: "Seal intact", DeviceID: "DEV-1", ChecklistID: "CHK-2",
			Result: domain.SeverityCritical, Description: "seal broken"},
	}
	require.NoError(t, client.SubmitResults(context.Background(), "INSP-JOB-0001", results))

	require.Contains(t, gotBody, "inspection_checklist_result")
	assert.Equal(t, results, gotBody["inspection_checklist_result"])
}

func TestSubmitResultsPropagatesAPIError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "server exploded", http.StatusInternalServerError)
	}))

	err := client.SubmitResults(context.Background(), "INSP-JOB-0001", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestCompleteJob(t *testing.T) {
	var gotBody map[string]string

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte(`{}`))
	}))

	require.NoError(t, client.CompleteJob(context.Background(), "INSP-JOB-0001"))
	assert.Equal(t, "Completed", gotBody["workflow_state"])
}

func TestCreateNonConformity(t *testing.T) {
	var gotBody map[string]interface{}

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/resource/Non%20Conformity", r.URL.EscapedPath())
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{}`))
	}))

	nc := &domain.NonConformance{
		Reference: "NC-HARBOURM-0001-1645",
		JobID:     "INSP-JOB-0001",
		DeviceID:  "DEV-1",
		Items:     []domain.NCItem{{Description: "Seal intact: Critical", Notes: "seal broken"}},
	}
	require.NoError(t, client.CreateNonConformity(context.Background(), nc))

	assert.Equal(t, "NC-HARBOURM-0001-1645", gotBody["nc_reference"])
	assert.Equal(t, "INSP-JOB-0001", gotBody["inspection_job"])
	failed, ok := gotBody["failed_results"].([]interface{})
	require.True(t, ok)
	assert.Len(t, failed, 1)
}

func TestUploadFile(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/method/upload_file", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(10<<20))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "CHK-1.jpg", header.Filename)

		json.NewEncoder(w).Encode(map[string]interface{}{
			"message": map[string]string{"file_url": "/files/CHK-1.jpg"},
		})
	}))

	url, err := client.UploadFile(context.Background(), "CHK-1.jpg", []byte("jpeg-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "/files/CHK-1.jpg", url)
}

func TestResolveQR(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "FSR-042", r.URL.Query().Get("fire_system_register"))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"message": map[string]string{"device": "DEV-1"},
		})
	}))

	deviceID, err := client.ResolveQR(context.Background(), "FSR-042")
	require.NoError(t, err)
	assert.Equal(t, "DEV-1", deviceID)
}

func TestResolveQRNotFound(t *testing.T) {
	t.Run("404 response", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		}))
		_, err := client.ResolveQR(context.Background(), "FSR-MISSING")
		assert.ErrorIs(t, err, ErrDeviceNotFound)
	})

	t.Run("empty device", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]interface{}{"message": map[string]string{}})
		}))
		_, err := client.ResolveQR(context.Background(), "FSR-EMPTY")
		assert.ErrorIs(t, err, ErrDeviceNotFound)
	})
}

func TestListQueries(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.EscapedPath() {
		case "/api/resource/Customer":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"data": []map[string]string{{"name": "CUST-1", "customer_name": "Harbour Mall"}},
			})
		case "/api/resource/Site":
			assert.Contains(t, r.URL.Query().Get("filters"), "CUST-1")
			json.NewEncoder(w).Encode(map[string]interface{}{
				"data": []map[string]string{{"name": "SITE-1", "site_name": "Mall", "customer": "CUST-1"}},
			})
		case "/api/resource/Inspection%20Job":
			assert.Contains(t, r.URL.Query().Get("filters"), "SITE-1")
			json.NewEncoder(w).Encode(map[string]interface{}{
				"data": []map[string]interface{}{
					{"name": "INSP-JOB-0001", "workflow_state": "Open", "priority": "Low"},
				},
			})
		default:
			http.NotFound(w, r)
		}
	}))

	customers, err := client.Customers(context.Background())
	require.NoError(t, err)
	require.Len(t, customers, 1)
	assert.Equal(t, domain.Customer{ID: "CUST-1", Name: "Harbour Mall"}, customers[0])

	sites, err := client.Sites(context.Background(), "CUST-1")
	require.NoError(t, err)
	require.Len(t, sites, 1)
	assert.Equal(t, "SITE-1", sites[0].ID)

	jobs, err := client.Jobs(context.Background(), "SITE-1")
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, domain.JobNotStarted, jobs[0].Status)
	assert.Equal(t, domain.PriorityLow, jobs[0].Priority)
}
