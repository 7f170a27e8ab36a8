// Package inspection holds the checklist session state machine and the
// submission flow built on top of it.
package inspection

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/lalitraj881/Fire-Tech-Shield-V2-sub000/internal/domain"
)

var (
	// ErrSessionSealed is returned by every mutator once submission has
	// begun. It is also what blocks a second submit of the same session.
	ErrSessionSealed = errors.New("inspection session is sealed")

	// ErrUnknownItem is returned when an item id is not part of the session.
	ErrUnknownItem = errors.New("unknown checklist item")

	// ErrNotToggle is returned when a severity is set on a non-toggle item.
	ErrNotToggle = errors.New("severity can only be set on toggle items")
)

// Session tracks per-item answer state for one open checklist on one device
// and derives submission eligibility and the overall result. It is created
// when the checklist dialog opens and discarded when it closes; answer state
// is never persisted to the local cache.
type Session struct {
	ID     string
	Job    domain.Job
	Device domain.Device

	mu     sync.Mutex
	items  []domain.ChecklistItem
	byID   map[string]domain.ChecklistItem
	states map[string]*domain.ChecklistItemState
	sealed bool
}

// NewSession opens a session over the checklist items fetched for device.
func NewSession(job domain.Job, device domain.Device, items []domain.ChecklistItem) *Session {
	s := &Session{
		ID:     uuid.New().String(),
		Job:    job,
		Device: device,
		items:  items,
		byID:   make(map[string]domain.ChecklistItem, len(items)),
		states: make(map[string]*domain.ChecklistItemState, len(items)),
	}
	for _, item := range items {
		s.byID[item.ID] = item
		s.states[item.ID] = &domain.ChecklistItemState{ItemID: item.ID}
	}
	return s
}

// Items returns the checklist items in server order.
func (s *Session) Items() []domain.ChecklistItem {
	return s.items
}

func (s *Session) lookup(itemID string) (domain.ChecklistItem, *domain.ChecklistItemState, error) {
	if s.sealed {
		return domain.ChecklistItem{}, nil, ErrSessionSealed
	}
	item, ok := s.byID[itemID]
	if !ok {
		return domain.ChecklistItem{}, nil, fmt.Errorf("%w: %s", ErrUnknownItem, itemID)
	}
	return item, s.states[itemID], nil
}

// SetSeverity records an explicit severity selection on a toggle item. The
// four severity buttons are mutually exclusive, so this overwrites any prior
// result.
func (s *Session) SetSeverity(itemID string, severity domain.Severity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, state, err := s.lookup(itemID)
	if err != nil {
		return err
	}
	if item.Type != domain.ItemToggle {
		return fmt.Errorf("%w: %s is %s", ErrNotToggle, itemID, item.Type)
	}
	if !severity.IsValid() {
		return fmt.Errorf("invalid severity %q", severity)
	}
	state.Result = &severity
	return nil
}

// SetNumericValue stores a reading and recomputes pass/critical against the
// item's range on every change. A missing lower bound reads as 0, a missing
// upper bound as +Inf.
func (s *Session) SetNumericValue(itemID string, value float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, state, err := s.lookup(itemID)
	if err != nil {
		return err
	}
	if item.Type != domain.ItemNumeric {
		return fmt.Errorf("item %s is not numeric", itemID)
	}

	v := value
	state.Reading = &v
	min, max := item.Bounds()
	result := domain.SeverityPass
	if value < min || value > max {
		result = domain.SeverityCritical
	}
	state.Result = &result
	return nil
}

// SetTextValue stores free text. Any non-empty text answers the item as
// pass; free text cannot fail. Clearing the text returns the item to
// unanswered.
func (s *Session) SetTextValue(itemID string, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, state, err := s.lookup(itemID)
	if err != nil {
		return err
	}
	if item.Type != domain.ItemText {
		return fmt.Errorf("item %s is not free text", itemID)
	}

	state.Text = value
	if strings.TrimSpace(value) == "" {
		state.Result = nil
		return nil
	}
	result := domain.SeverityPass
	state.Result = &result
	return nil
}

// AttachPhoto sets the item's photo slot to a data URL. A failed capture
// never reaches this point, so the slot changes atomically or not at all.
func (s *Session) AttachPhoto(itemID, dataURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, state, err := s.lookup(itemID)
	if err != nil {
		return err
	}
	state.Photo = dataURL
	return nil
}

// SetNotes records the technician's free-text note for an item.
func (s *Session) SetNotes(itemID, notes string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, state, err := s.lookup(itemID)
	if err != nil {
		return err
	}
	state.Notes = notes
	return nil
}

// State returns a copy of the current answer state for one item.
func (s *Session) State(itemID string) (domain.ChecklistItemState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.states[itemID]
	if !ok {
		return domain.ChecklistItemState{}, false
	}
	return *state, true
}

// States returns a copy of every answer state keyed by item id.
func (s *Session) States() map[string]domain.ChecklistItemState {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]domain.ChecklistItemState, len(s.states))
	for id, state := range s.states {
		out[id] = *state
	}
	return out
}

// OverallSeverity aggregates item results by strict priority: critical beats
// minor beats optional beats pass, regardless of counts. Unanswered items do
// not contribute.
func (s *Session) OverallSeverity() domain.Severity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.overallLocked()
}

func (s *Session) overallLocked() domain.Severity {
	overall := domain.SeverityPass
	for _, state := range s.states {
		if state.Result != nil {
			overall = domain.MaxSeverity(overall, *state.Result)
		}
	}
	return overall
}

// evidenceComplete reports whether a failing item satisfies its evidence
// requirements.
func evidenceComplete(item domain.ChecklistItem, state *domain.ChecklistItemState) bool {
	if item.RequiresPhoto && state.Photo == "" {
		return false
	}
	if item.RequiresDescription && strings.TrimSpace(state.Notes) == "" {
		return false
	}
	return true
}

// CanSubmit reports submission eligibility: every required item answered and
// every failing item evidence-complete. False is a disabled-state signal,
// not an error.
func (s *Session) CanSubmit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, item := range s.items {
		state := s.states[item.ID]
		if item.Required && !state.Answered() {
			return false
		}
		if state.Failing() && !evidenceComplete(item, state) {
			return false
		}
	}
	return true
}

// FailedItems returns every item whose result is set and not pass, paired
// with its answer state, in server order.
func (s *Session) FailedItems() []FailedItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	var failed []FailedItem
	for _, item := range s.items {
		state := s.states[item.ID]
		if state.Failing() {
			failed = append(failed, FailedItem{Item: item, State: *state})
		}
	}
	return failed
}

// FailedItem pairs a checklist item with its failing answer.
type FailedItem struct {
	Item  domain.ChecklistItem
	State domain.ChecklistItemState
}

// seal freezes the session the instant submission begins. Every later
// mutation and any re-entrant submit gets ErrSessionSealed.
func (s *Session) seal() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sealed {
		return ErrSessionSealed
	}
	s.sealed = true
	return nil
}

// unseal reopens the session after a fatal submission failure so the
// technician can retry. A successful submit never unseals.
func (s *Session) unseal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sealed = false
}

// Sealed reports whether submission has begun for this session.
func (s *Session) Sealed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sealed
}

// setPhotoURL replaces an item's in-memory photo with its uploaded URL.
// Called by the submitter after the session is sealed, so it bypasses the
// sealed check on purpose.
func (s *Session) setPhotoURL(itemID, url string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if state, ok := s.states[itemID]; ok {
		state.Photo = url
	}
}
