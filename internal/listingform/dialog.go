package listingform

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/Rrens/greenbite/internal/validation"
	"github.com/rs/zerolog/log"
)

// ErrSubmitting is returned when a submit is already in flight
var ErrSubmitting = errors.New("submission already in progress")

// ErrClosed is returned when submitting a dialog that is not open
var ErrClosed = errors.New("dialog is not open")

// SubmitFunc delivers a normalized payload to the listing collaborator
type SubmitFunc func(ctx context.Context, p *Payload) error

// View is a dialog snapshot for rendering
type View struct {
	Mode       Mode              `json:"mode"`
	ListingID  string            `json:"listing_id,omitempty"`
	Open       bool              `json:"open"`
	Submitting bool              `json:"submitting"`
	Form       Form              `json:"form"`
	Errors     map[string]string `json:"errors,omitempty"`
}

// Dialog is the create/edit state machine: closed -> open -> submitting -> closed | open
type Dialog struct {
	mode      Mode
	listingID string
	now       func() time.Time

	mu         sync.Mutex
	open       bool
	submitting bool
	form       Form
	errors     validation.FieldErrors
}

func NewCreateDialog() *Dialog {
	return &Dialog{mode: ModeCreate, form: Empty(), now: time.Now}
}

func NewEditDialog(listingID string, form Form) *Dialog {
	return &Dialog{mode: ModeEdit, listingID: listingID, form: form, now: time.Now}
}

func (d *Dialog) Open() View {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.open = true
	return d.view()
}

// OpenWith opens the dialog with form as its contents. An already open
// dialog keeps the form being edited.
func (d *Dialog) OpenWith(form Form) View {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.open {
		d.form = form
		d.errors = nil
	}
	d.open = true
	return d.view()
}

func (d *Dialog) IsOpen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.open
}

func (d *Dialog) busy() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.submitting
}

// Close hides the dialog but keeps the form contents
func (d *Dialog) Close() View {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.open = false
	d.errors = nil
	return d.view()
}

func (d *Dialog) View() View {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.view()
}

// Submit validates form and, if valid, hands the payload to submit.
// Success resets the form and closes the dialog. Any failure leaves it open
// with submitting cleared.
func (d *Dialog) Submit(ctx context.Context, form Form, submit SubmitFunc) (View, error) {
	d.mu.Lock()
	if !d.open {
		v := d.view()
		d.mu.Unlock()
		return v, ErrClosed
	}
	if d.submitting {
		v := d.view()
		d.mu.Unlock()
		return v, ErrSubmitting
	}
	d.form = form

	payload, err := Normalize(form, d.mode, d.now())
	if err != nil {
		d.errors, _ = validation.AsFieldErrors(err)
		v := d.view()
		d.mu.Unlock()
		return v, err
	}

	d.errors = nil
	d.submitting = true
	d.mu.Unlock()

	err = submit(ctx, payload)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.submitting = false

	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("mode", string(d.mode)).Str("listing_id", d.listingID).Msg("Failed to submit listing")
		return d.view(), err
	}

	if d.mode == ModeCreate {
		d.form = Empty()
	}
	d.open = false
	return d.view(), nil
}

func (d *Dialog) view() View {
	v := View{
		Mode:       d.mode,
		ListingID:  d.listingID,
		Open:       d.open,
		Submitting: d.submitting,
		Form:       d.form,
	}
	if len(d.errors) > 0 {
		v.Errors = make(map[string]string, len(d.errors))
		for k, msg := range d.errors {
			v.Errors[k] = msg
		}
	}
	return v
}

const defaultDialogIdleTTL = 30 * time.Minute

type dialogEntry struct {
	dialog   *Dialog
	lastSeen time.Time
}

// Dialogs keeps each device's dialogs and evicts the ones left idle
type Dialogs struct {
	idleTTL time.Duration
	now     func() time.Time

	mu      sync.Mutex
	entries map[string]*dialogEntry
}

func NewDialogs(idleTTL time.Duration) *Dialogs {
	if idleTTL <= 0 {
		idleTTL = defaultDialogIdleTTL
	}
	return &Dialogs{
		idleTTL: idleTTL,
		now:     time.Now,
		entries: make(map[string]*dialogEntry),
	}
}

// get returns the dialog under key, creating it with build when missing.
// Must be called with mu held.
func (s *Dialogs) get(key string, build func() *Dialog) *Dialog {
	e, ok := s.entries[key]
	if !ok {
		e = &dialogEntry{dialog: build()}
		s.entries[key] = e
	}
	e.lastSeen = s.now()
	return e.dialog
}

func (s *Dialogs) lookup(key string) *Dialog {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return nil
	}
	e.lastSeen = s.now()
	return e.dialog
}

// Create returns the device's create dialog
func (s *Dialogs) Create(deviceID string) *Dialog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(deviceID+":create", NewCreateDialog)
}

func editKey(deviceID, listingID string) string {
	return deviceID + ":edit:" + listingID
}

// Edit returns the device's edit dialog for listingID, seeding it with
// prefill when it does not exist yet
func (s *Dialogs) Edit(deviceID, listingID string, prefill func() (Form, error)) (*Dialog, error) {
	key := editKey(deviceID, listingID)
	if d := s.lookup(key); d != nil {
		return d, nil
	}

	form, err := prefill()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(key, func() *Dialog { return NewEditDialog(listingID, form) }), nil
}

// OpenEdit opens the edit dialog for listingID. A closed dialog is re-seeded
// from prefill so it shows the listing as it is now; an open one is left alone.
func (s *Dialogs) OpenEdit(deviceID, listingID string, prefill func() (Form, error)) (View, error) {
	key := editKey(deviceID, listingID)
	if d := s.lookup(key); d != nil && d.IsOpen() {
		return d.View(), nil
	}

	form, err := prefill()
	if err != nil {
		return View{}, err
	}

	s.mu.Lock()
	d := s.get(key, func() *Dialog { return NewEditDialog(listingID, form) })
	s.mu.Unlock()
	return d.OpenWith(form), nil
}

// Forget drops every dialog belonging to deviceID
func (s *Dialogs) Forget(deviceID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prefix := deviceID + ":"
	for key := range s.entries {
		if strings.HasPrefix(key, prefix) {
			delete(s.entries, key)
		}
	}
}

func (s *Dialogs) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Sweep drops dialogs idle for longer than the TTL and returns how many.
// A dialog with a submit in flight is kept.
func (s *Dialogs) Sweep() int {
	cutoff := s.now().Add(-s.idleTTL)

	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for key, e := range s.entries {
		if e.lastSeen.Before(cutoff) && !e.dialog.busy() {
			delete(s.entries, key)
			evicted++
		}
	}
	return evicted
}

// Run sweeps on every interval until ctx is done
func (s *Dialogs) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				log.Debug().Int("evicted", n).Msg("Evicted idle listing dialogs")
			}
		case <-ctx.Done():
			return
		}
	}
}
