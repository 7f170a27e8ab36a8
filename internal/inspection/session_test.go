package inspection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lalitraj881/Fire-Tech-Shield-V2-sub000/internal/domain"
)

func f64(v float64) *float64 { return &v }

func testJob() domain.Job {
	return domain.Job{
		ID:           "JOB-1",
		CustomerID:   "CUST-1",
		CustomerName: "Harbour Mall Holdings",
		SiteID:       "SITE-1",
	}
}

func testDevice() domain.Device {
	return domain.Device{ID: "DEV-1", Name: "Extinguisher B1-07", JobID: "JOB-1"}
}

func TestNumericRange(t *testing.T) {
	tests := []struct {
		name     string
		min, max *float64
		value    float64
		expected domain.Severity
	}{
		{"inside range", f64(100), f64(195), 150, domain.SeverityPass},
		{"below range", f64(100), f64(195), 50, domain.SeverityCritical},
		{"above range", f64(100), f64(195), 200, domain.SeverityCritical},
		{"at lower bound", f64(100), f64(195), 100, domain.SeverityPass},
		{"at upper bound", f64(100), f64(195), 195, domain.SeverityPass},
		{"no min defaults to zero", nil, f64(10), -1, domain.SeverityCritical},
		{"no max defaults to infinity", f64(1), nil, 1e12, domain.SeverityPass},
		{"no bounds, negative fails", nil, nil, -0.5, domain.SeverityCritical},
		{"no bounds, zero passes", nil, nil, 0, domain.SeverityPass},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := domain.ChecklistItem{
				ID: "CHK-1", Type: domain.ItemNumeric,
				MinValue: tt.min, MaxValue: tt.max,
			}
			s := NewSession(testJob(), testDevice(), []domain.ChecklistItem{item})

			require.NoError(t, s.SetNumericValue("CHK-1", tt.value))

			state, ok := s.State("CHK-1")
			require.True(t, ok)
			require.NotNil(t, state.Result)
			assert.Equal(t, tt.expected, *state.Result)
			require.NotNil(t, state.Reading)
			assert.Equal(t, tt.value, *state.Reading)
		})
	}
}

func TestNumericRecomputedOnChange(t *testing.T) {
	item := domain.ChecklistItem{ID: "CHK-1", Type: domain.ItemNumeric, MinValue: f64(10), MaxValue: f64(20)}
	s := NewSession(testJob(), testDevice(), []domain.ChecklistItem{item})

	require.NoError(t, s.SetNumericValue("CHK-1", 5))
	state, _ := s.State("CHK-1")
	assert.Equal(t, domain.SeverityCritical, *state.Result)

	require.NoError(t, s.SetNumericValue("CHK-1", 15))
	state, _ = s.State("CHK-1")
	assert.Equal(t, domain.SeverityPass, *state.Result)
}

func TestSetSeverity(t *testing.T) {
	toggle := domain.ChecklistItem{ID: "CHK-1", Type: domain.ItemToggle}
	numeric := domain.ChecklistItem{ID: "CHK-2", Type: domain.ItemNumeric}
	s := NewSession(testJob(), testDevice(), []domain.ChecklistItem{toggle, numeric})

	require.NoError(t, s.SetSeverity("CHK-1", domain.SeverityMinor))
	state, _ := s.State("CHK-1")
	assert.Equal(t, domain.SeverityMinor, *state.Result)

	// severity buttons are mutually exclusive: new selection overwrites
	require.NoError(t, s.SetSeverity("CHK-1", domain.SeverityPass))
	state, _ = s.State("CHK-1")
	assert.Equal(t, domain.SeverityPass, *state.Result)

	err := s.SetSeverity("CHK-2", domain.SeverityPass)
	assert.ErrorIs(t, err, ErrNotToggle)

	err = s.SetSeverity("CHK-1", domain.Severity("Bogus"))
	assert.Error(t, err)

	err = s.SetSeverity("CHK-99", domain.SeverityPass)
	assert.ErrorIs(t, err, ErrUnknownItem)
}

func TestTextAnswersAsPass(t *testing.T) {
	item := domain.ChecklistItem{ID: "CHK-1", Type: domain.ItemText}
	s := NewSession(testJob(), testDevice(), []domain.ChecklistItem{item})

	require.NoError(t, s.SetTextValue("CHK-1", "nozzle slightly worn"))
	state, _ := s.State("CHK-1")
	require.NotNil(t, state.Result)
	assert.Equal(t, domain.SeverityPass, *state.Result)

	// clearing the text returns the item to unanswered
	require.NoError(t, s.SetTextValue("CHK-1", "   "))
	state, _ = s.State("CHK-1")
	assert.Nil(t, state.Result)
}

func TestOverallSeverityPriority(t *testing.T) {
	items := []domain.ChecklistItem{
		{ID: "A", Type: domain.ItemToggle},
		{ID: "B", Type: domain.ItemToggle},
		{ID: "C", Type: domain.ItemToggle},
		{ID: "D", Type: domain.ItemToggle},
	}
	s := NewSession(testJob(), testDevice(), items)

	assert.Equal(t, domain.SeverityPass, s.OverallSeverity())

	require.NoError(t, s.SetSeverity("A", domain.SeverityPass))
	require.NoError(t, s.SetSeverity("B", domain.SeverityOptional))
	assert.Equal(t, domain.SeverityOptional, s.OverallSeverity())

	require.NoError(t, s.SetSeverity("C", domain.SeverityMinor))
	assert.Equal(t, domain.SeverityMinor, s.OverallSeverity())

	// one critical outranks any number of lesser results
	require.NoError(t, s.SetSeverity("D", domain.SeverityCritical))
	require.NoError(t, s.SetSeverity("B", domain.SeverityMinor))
	assert.Equal(t, domain.SeverityCritical, s.OverallSeverity())
}

func TestCanSubmitRequiredItems(t *testing.T) {
	items := []domain.ChecklistItem{
		{ID: "A", Type: domain.ItemToggle, Required: true},
		{ID: "B", Type: domain.ItemToggle, Required: false},
	}
	s := NewSession(testJob(), testDevice(), items)

	assert.False(t, s.CanSubmit(), "required item unanswered")

	require.NoError(t, s.SetSeverity("A", domain.SeverityPass))
	assert.True(t, s.CanSubmit(), "optional item may stay unanswered")
}

func TestCanSubmitEvidenceRules(t *testing.T) {
	items := []domain.ChecklistItem{
		{ID: "A", Type: domain.ItemToggle, Required: true, RequiresPhoto: true, RequiresDescription: true},
	}
	s := NewSession(testJob(), testDevice(), items)

	require.NoError(t, s.SetSeverity("A", domain.SeverityCritical))
	assert.False(t, s.CanSubmit(), "failing item without evidence")

	require.NoError(t, s.AttachPhoto("A", "data:image/jpeg;base64,/9j/AAA="))
	assert.False(t, s.CanSubmit(), "photo alone is not enough")

	require.NoError(t, s.SetNotes("A", "   "))
	assert.False(t, s.CanSubmit(), "whitespace notes do not count")

	require.NoError(t, s.SetNotes("A", "seal broken, pin missing"))
	assert.True(t, s.CanSubmit())

	// a passing answer needs no evidence even when the flags are set
	require.NoError(t, s.SetSeverity("A", domain.SeverityPass))
	require.NoError(t, s.SetNotes("A", ""))
	assert.True(t, s.CanSubmit())
}

func TestCanSubmitNumericFailureNeedsEvidence(t *testing.T) {
	item := domain.ChecklistItem{
		ID: "CHK-1", Type: domain.ItemNumeric, Required: true,
		MinValue: f64(100), MaxValue: f64(195),
		RequiresPhoto: true, RequiresDescription: true,
	}
	s := NewSession(testJob(), testDevice(), []domain.ChecklistItem{item})

	require.NoError(t, s.SetNumericValue("CHK-1", 50))
	state, _ := s.State("CHK-1")
	assert.Equal(t, domain.SeverityCritical, *state.Result)
	assert.False(t, s.CanSubmit())

	require.NoError(t, s.AttachPhoto("CHK-1", "data:image/jpeg;base64,/9j/AAA="))
	require.NoError(t, s.SetNotes("CHK-1", "gauge reads 50 bar, cylinder depressurized"))
	assert.True(t, s.CanSubmit())
}

func TestFailedItems(t *testing.T) {
	items := []domain.ChecklistItem{
		{ID: "A", Type: domain.ItemToggle},
		{ID: "B", Type: domain.ItemToggle},
		{ID: "C", Type: domain.ItemToggle},
	}
	s := NewSession(testJob(), testDevice(), items)

	require.NoError(t, s.SetSeverity("A", domain.SeverityPass))
	require.NoError(t, s.SetSeverity("B", domain.SeverityMinor))
	// C stays unanswered

	failed := s.FailedItems()
	require.Len(t, failed, 1)
	assert.Equal(t, "B", failed[0].Item.ID)
}

func TestSealedSessionRejectsMutation(t *testing.T) {
	items := []domain.ChecklistItem{{ID: "A", Type: domain.ItemToggle}}
	s := NewSession(testJob(), testDevice(), items)
	require.NoError(t, s.SetSeverity("A", domain.SeverityPass))

	require.NoError(t, s.seal())
	assert.True(t, s.Sealed())

	assert.ErrorIs(t, s.SetSeverity("A", domain.SeverityMinor), ErrSessionSealed)
	assert.ErrorIs(t, s.SetNumericValue("A", 1), ErrSessionSealed)
	assert.ErrorIs(t, s.SetTextValue("A", "x"), ErrSessionSealed)
	assert.ErrorIs(t, s.AttachPhoto("A", "data:x;base64,"), ErrSessionSealed)
	assert.ErrorIs(t, s.SetNotes("A", "x"), ErrSessionSealed)

	// sealing twice is the double-submit guard
	assert.ErrorIs(t, s.seal(), ErrSessionSealed)

	// reads still work on a sealed session
	assert.Equal(t, domain.SeverityPass, s.OverallSeverity())
}
