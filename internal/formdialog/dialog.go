// Package formdialog holds the state of a create/edit form for one entity type.
package formdialog

import (
	"context"
	"errors"
	"sync"

	"github.com/feridsherif/crms-frontend/internal/domain"
	"github.com/feridsherif/crms-frontend/internal/entities"
)

// Submitter performs the write. Gateway bindings and the console client implement it.
type Submitter interface {
	Create(ctx context.Context, entity string, payload map[string]any) (domain.Record, error)
	Update(ctx context.Context, entity, id string, payload map[string]any) (domain.Record, error)
}

// Refresher is the list to resync after a successful write.
type Refresher interface {
	Refresh(ctx context.Context) error
}

type Mode int

const (
	Create Mode = iota
	Edit
)

func (m Mode) String() string {
	if m == Edit {
		return "edit"
	}
	return "create"
}

var (
	ErrClosed  = errors.New("formdialog: dialog is not open")
	ErrBlocked = errors.New("formdialog: edit the form before submitting again")
	ErrBusy    = errors.New("formdialog: submit already in progress")
)

type Dialog struct {
	def       entities.Definition
	submitter Submitter
	refresher Refresher

	mu          sync.Mutex
	open        bool
	mode        Mode
	recordID    string
	draft       map[string]any
	fieldErrors map[string]string
	submitErr   error
	blocked     bool
	submitting  bool
}

// New returns a closed dialog. refresher may be nil.
func New(def entities.Definition, submitter Submitter, refresher Refresher) *Dialog {
	return &Dialog{def: def, submitter: submitter, refresher: refresher}
}

// Open seeds the draft from rec, or schema defaults when rec has no id.
func (d *Dialog) Open(rec domain.Record) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.open = true
	d.mode = Create
	d.recordID = ""
	if id := rec.ID(); id != "" {
		d.mode = Edit
		d.recordID = id
		d.draft = d.def.Draft(rec)
	} else {
		d.draft = d.def.Draft(nil)
	}
	d.fieldErrors = map[string]string{}
	d.submitErr = nil
	d.blocked = false
}

// Set edits one draft field and lifts a submit block.
func (d *Dialog) Set(field string, value any) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.open {
		return ErrClosed
	}
	d.draft[field] = value
	delete(d.fieldErrors, field)
	d.blocked = false
	return nil
}

// Cancel closes the dialog and discards the draft.
func (d *Dialog) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reset()
}

func (d *Dialog) reset() {
	d.open = false
	d.recordID = ""
	d.draft = nil
	d.fieldErrors = nil
	d.submitErr = nil
	d.blocked = false
}

// Submit validates the draft and writes it. Local validation failures never
// reach the Submitter. On success the dialog closes and the list refreshes;
// on failure it stays open with the draft intact and blocks until edited.
// There are no retries.
func (d *Dialog) Submit(ctx context.Context) (domain.Record, error) {
	d.mu.Lock()
	switch {
	case !d.open:
		d.mu.Unlock()
		return nil, ErrClosed
	case d.submitting:
		d.mu.Unlock()
		return nil, ErrBusy
	case d.blocked:
		d.mu.Unlock()
		return nil, ErrBlocked
	}
	payload := cloneDraft(d.draft)
	if _, err := d.def.Validate(payload); err != nil {
		d.fail(err)
		d.mu.Unlock()
		return nil, err
	}
	d.submitting = true
	mode, id := d.mode, d.recordID
	d.mu.Unlock()

	var (
		rec domain.Record
		err error
	)
	if mode == Edit {
		rec, err = d.submitter.Update(ctx, d.def.Name, id, payload)
	} else {
		rec, err = d.submitter.Create(ctx, d.def.Name, payload)
	}

	d.mu.Lock()
	d.submitting = false
	if err != nil {
		d.fail(err)
		d.mu.Unlock()
		return nil, err
	}
	d.reset()
	d.mu.Unlock()

	if d.refresher != nil {
		// A failed refresh shows up on the list itself.
		_ = d.refresher.Refresh(ctx)
	}
	return rec, nil
}

// fail records err. Callers hold mu.
func (d *Dialog) fail(err error) {
	d.submitErr = err
	d.blocked = true
	d.fieldErrors = map[string]string{}
	for k, v := range domain.ValidationDetails(err) {
		d.fieldErrors[k] = v
	}
}

func (d *Dialog) IsOpen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.open
}

func (d *Dialog) Mode() Mode {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mode
}

func (d *Dialog) RecordID() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.recordID
}

func (d *Dialog) Entity() entities.Definition { return d.def }

// Draft returns a copy of the current draft.
func (d *Dialog) Draft() map[string]any {
	d.mu.Lock()
	defer d.mu.Unlock()
	return cloneDraft(d.draft)
}

func (d *Dialog) FieldErrors() map[string]string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[string]string, len(d.fieldErrors))
	for k, v := range d.fieldErrors {
		out[k] = v
	}
	return out
}

// SubmitError is the last failure, shown verbatim.
func (d *Dialog) SubmitError() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.submitErr
}

func (d *Dialog) Blocked() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.blocked
}

func cloneDraft(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		if list, ok := v.([]string); ok {
			v = append([]string(nil), list...)
		}
		out[k] = v
	}
	return out
}
