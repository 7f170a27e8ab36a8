// Package erp is the HTTP client for the remote ERP backend (a Frappe-style
// REST API). It is the only module that knows the wire shapes; everything
// else works with domain types.
package erp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lalitraj881/Fire-Tech-Shield-V2-sub000/internal/domain"
)

// ErrDeviceNotFound is returned when a scanned QR code resolves to nothing.
var ErrDeviceNotFound = errors.New("no device registered for QR code")

// Client talks to the ERP REST API. All calls are scoped by the caller's
// context; the client itself holds no mutable state.
type Client struct {
	baseURL    string
	token      string // "key:secret" API token
	httpClient *http.Client
	log        *zap.Logger
}

var _ domain.InspectionAPI = (*Client)(nil)

func NewClient(baseURL, token string, timeout time.Duration, log *zap.Logger) *Client {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
	}
}

// apiError is a non-2xx response from the ERP.
type apiError struct {
	Status int
	Body   string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("erp returned %d: %s", e.Status, e.Body)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "token "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("erp request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read erp response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := string(data)
		if len(snippet) > 512 {
			snippet = snippet[:512]
		}
		return &apiError{Status: resp.StatusCode, Body: snippet}
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to decode erp response: %w", err)
		}
	}
	return nil
}

func resourcePath(doctype, name string) string {
	p := "/api/resource/" + url.PathEscape(doctype)
	if name != "" {
		p += "/" + url.PathEscape(name)
	}
	return p
}

// JobPayload fetches the full payload for one job: job document, devices and
// checklist items, mapped to domain types.
func (c *Client) JobPayload(ctx context.Context, jobID string) (*domain.JobPayload, error) {
	query := url.Values{"job_name": {jobID}}
	var resp struct {
		Message jobPayloadDoc `json:"message"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/method/get_inspection_job_full_payload", query, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to load job %s: %w", jobID, err)
	}
	return resp.Message.toDomain(), nil
}

// SubmitResults pushes every checklist result for the job in a single
// batched resource update.
func (c *Client) SubmitResults(ctx context.Context, jobID string, results []domain.ChecklistResult) error {
	body := map[string]interface{}{"inspection_checklist_result": results}
	if err := c.do(ctx, http.MethodPut, resourcePath("Inspection Job", jobID), nil, body, nil); err != nil {
		return fmt.Errorf("failed to submit results for job %s: %w", jobID, err)
	}
	return nil
}

// CompleteJob moves the job's workflow state to Completed.
func (c *Client) CompleteJob(ctx context.Context, jobID string) error {
	body := map[string]string{"workflow_state": "Completed"}
	if err := c.do(ctx, http.MethodPut, resourcePath("Inspection Job", jobID), nil, body, nil); err != nil {
		return fmt.Errorf("failed to complete job %s: %w", jobID, err)
	}
	return nil
}

// CreateNonConformity posts a generated NC record.
func (c *Client) CreateNonConformity(ctx context.Context, nc *domain.NonConformance) error {
	if err := c.do(ctx, http.MethodPost, resourcePath("Non Conformity", ""), nil, ncDocFrom(nc), nil); err != nil {
		return fmt.Errorf("failed to create non-conformity %s: %w", nc.Reference, err)
	}
	return nil
}

// UploadFile uploads an evidence binary through the ERP file endpoint and
// returns the stored file URL.
func (c *Client) UploadFile(ctx context.Context, filename string, data []byte) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", err
	}
	if _, err := fw.Write(data); err != nil {
		return "", err
	}
	if err := mw.WriteField("is_private", "0"); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/method/upload_file", &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if c.token != "" {
		req.Header.Set("Authorization", "token "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("file upload failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &apiError{Status: resp.StatusCode, Body: string(body)}
	}

	var out struct {
		Message struct {
			FileURL string `json:"file_url"`
		} `json:"message"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("failed to decode upload response: %w", err)
	}
	return out.Message.FileURL, nil
}

// listQuery builds the Frappe list-query parameters.
func listQuery(fields []string, filters [][3]string) url.Values {
	q := url.Values{}
	if f, err := json.Marshal(fields); err == nil {
		q.Set("fields", string(f))
	}
	if len(filters) > 0 {
		ff := make([][]string, 0, len(filters))
		for _, f := range filters {
			ff = append(ff, []string{f[0], f[1], f[2]})
		}
		if f, err := json.Marshal(ff); err == nil {
			q.Set("filters", string(f))
		}
	}
	q.Set("limit_page_length", "0")
	return q
}

// Customers lists the customers assigned to the technician.
func (c *Client) Customers(ctx context.Context) ([]domain.Customer, error) {
	q := listQuery([]string{"name", "customer_name"}, nil)
	var resp struct {
		Data []struct {
			Name         string `json:"name"`
			CustomerName string `json:"customer_name"`
		} `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, resourcePath("Customer", ""), q, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}

	customers := make([]domain.Customer, 0, len(resp.Data))
	for _, d := range resp.Data {
		customers = append(customers, domain.Customer{ID: d.Name, Name: d.CustomerName})
	}
	return customers, nil
}

// Sites lists the sites belonging to one customer.
func (c *Client) Sites(ctx context.Context, customerID string) ([]domain.Site, error) {
	q := listQuery([]string{"name", "site_name", "customer"}, [][3]string{{"customer", "=", customerID}})
	var resp struct {
		Data []struct {
			Name     string `json:"name"`
			SiteName string `json:"site_name"`
			Customer string `json:"customer"`
		} `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, resourcePath("Site", ""), q, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to list sites: %w", err)
	}

	sites := make([]domain.Site, 0, len(resp.Data))
	for _, d := range resp.Data {
		sites = append(sites, domain.Site{ID: d.Name, Name: d.SiteName, CustomerID: d.Customer})
	}
	return sites, nil
}

// Jobs lists inspection jobs scheduled for one site.
func (c *Client) Jobs(ctx context.Context, siteID string) ([]domain.Job, error) {
	fields := []string{"name", "job_name", "job_type", "customer", "customer_name",
		"site", "site_name", "priority", "estimated_devices",
		"open_non_conformities", "workflow_state"}
	q := listQuery(fields, [][3]string{{"site", "=", siteID}})
	var resp struct {
		Data []jobDoc `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, resourcePath("Inspection Job", ""), q, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to list jobs for site %s: %w", siteID, err)
	}

	jobs := make([]domain.Job, 0, len(resp.Data))
	for _, d := range resp.Data {
		jobs = append(jobs, d.toDomain())
	}
	return jobs, nil
}

// ResolveQR resolves a scanned fire-system register id to a device id.
func (c *Client) ResolveQR(ctx context.Context, registerID string) (string, error) {
	q := url.Values{"fire_system_register": {registerID}}
	var resp struct {
		Message struct {
			Device string `json:"device"`
		} `json:"message"`
	}
	err := c.do(ctx, http.MethodGet, "/api/method/resolve_fire_system_register", q, nil, &resp)
	if err != nil {
		var ae *apiError
		if errors.As(err, &ae) && ae.Status == http.StatusNotFound {
			return "", ErrDeviceNotFound
		}
		return "", fmt.Errorf("failed to resolve QR %s: %w", registerID, err)
	}
	if resp.Message.Device == "" {
		return "", ErrDeviceNotFound
	}
	return resp.Message.Device, nil
}

// TechnicianProfile fetches the signed-in technician's profile.
func (c *Client) TechnicianProfile(ctx context.Context) (*domain.Technician, error) {
	var resp struct {
		Message struct {
			Name     string `json:"name"`
			FullName string `json:"full_name"`
			Email    string `json:"email"`
			Phone    string `json:"phone"`
		} `json:"message"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/method/get_technician_profile", nil, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to load technician profile: %w", err)
	}
	return &domain.Technician{
		ID:       resp.Message.Name,
		FullName: resp.Message.FullName,
		Email:    resp.Message.Email,
		Phone:    resp.Message.Phone,
	}, nil
}
