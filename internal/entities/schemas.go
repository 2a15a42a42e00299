package entities

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/feridsherif/crms-frontend/internal/domain"
)

type BranchForm struct {
	Name    string `json:"name" validate:"required,max=120"`
	Address string `json:"address,omitempty" validate:"omitempty,max=255"`
	Phone   string `json:"phone,omitempty" validate:"omitempty,max=32"`
}

type CustomerForm struct {
	Name  string `json:"name" validate:"required,max=120"`
	Notes string `json:"notes,omitempty" validate:"omitempty,max=1000"`
	Phone string `json:"phone,omitempty" validate:"omitempty,max=32"`
}

type RoleForm struct {
	Name        string `json:"name" validate:"required,min=2,max=80"`
	Description string `json:"description,omitempty" validate:"omitempty,max=255"`
	Permissions IDList `json:"permissions,omitempty" validate:"omitempty,dive,numeric"`
}

type PermissionForm struct {
	Name        string `json:"name" validate:"required,max=120"`
	Slug        string `json:"slug,omitempty" validate:"omitempty,max=120"`
	Description string `json:"description,omitempty" validate:"omitempty,max=255"`
}

type UserForm struct {
	Name     string `json:"name" validate:"required,max=120"`
	Email    string `json:"email,omitempty" validate:"omitempty,email"`
	Username string `json:"username,omitempty" validate:"omitempty,max=64"`
	Password string `json:"password,omitempty" validate:"omitempty,min=8"`
	RoleID   FlexID `json:"roleId,omitempty" validate:"omitempty,numeric"`
}

// FlexID accepts an identifier sent either as a JSON string or a number.
type FlexID string

func (f *FlexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = FlexID(n.String())
	return nil
}

// IDList is a list of identifiers sent as strings or numbers.
type IDList []string

func (l *IDList) UnmarshalJSON(b []byte) error {
	var raw []FlexID
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	out := make(IDList, 0, len(raw))
	for _, id := range raw {
		out = append(out, string(id))
	}
	*l = out
	return nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks payload against the entity schema and returns the cleaned
// payload (unknown keys dropped, empty optionals omitted).
func (d Definition) Validate(payload map[string]any) (map[string]any, error) {
	if d.Form == nil {
		return cloneMap(payload), nil
	}
	return validateForm(d.Form(), payload)
}

// validateForm decodes payload into form, runs its validate tags and returns
// the form re-encoded as a map.
func validateForm(form any, payload map[string]any) (map[string]any, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, domain.ValidationError{Msg: "invalid input", Err: err}
	}
	if err := json.Unmarshal(raw, form); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, domain.ValidationError{
				Field:   typeErr.Field,
				Msg:     "has the wrong type",
				Details: map[string]string{typeErr.Field: "has the wrong type"},
				Err:     err,
			}
		}
		return nil, domain.ValidationError{Msg: "invalid input", Err: err}
	}
	if err := validate.Struct(form); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) || len(verrs) == 0 {
			return nil, domain.ValidationError{Msg: "invalid input", Err: err}
		}
		details := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			details[fieldKey(fe)] = fieldMessage(fe)
		}
		first := verrs[0]
		return nil, domain.ValidationError{
			Field:   fieldKey(first),
			Msg:     fieldMessage(first),
			Details: details,
			Err:     err,
		}
	}
	return toMap(form)
}

// PrepareWrite validates payload and applies the write-path field
// translation. clean keeps the form's field names; out is what the backend
// receives.
func (d Definition) PrepareWrite(payload map[string]any) (clean, out map[string]any, err error) {
	clean, err = d.Validate(payload)
	if err != nil {
		return nil, nil, err
	}
	out = clean
	if d.Translate != nil {
		out = d.Translate(clean)
	}
	return clean, out, nil
}

// FormFields lists the JSON names of the schema fields in declaration order.
func (d Definition) FormFields() []string {
	if d.Form == nil {
		return nil
	}
	t := reflect.TypeOf(d.Form())
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	out := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		name := strings.SplitN(t.Field(i).Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			continue
		}
		out = append(out, name)
	}
	return out
}

// Draft seeds an editable copy of rec, or schema defaults when rec is nil.
func (d Definition) Draft(rec domain.Record) map[string]any {
	if rec != nil && d.Seed != nil {
		return d.Seed(rec)
	}
	draft := map[string]any{}
	for _, field := range d.FormFields() {
		switch {
		case d.IsListField(field):
			draft[field] = []string{}
		case rec == nil:
			draft[field] = ""
		default:
			draft[field] = rec.String(field)
		}
	}
	return draft
}

// IsListField reports whether the schema field holds a list of values.
func (d Definition) IsListField(field string) bool {
	if d.Form == nil {
		return false
	}
	t := reflect.TypeOf(d.Form())
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if strings.SplitN(f.Tag.Get("json"), ",", 2)[0] == field {
			return f.Type.Kind() == reflect.Slice
		}
	}
	return false
}

func fieldKey(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s characters long", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters long", fe.Param())
	case "email":
		return "must be a valid email address"
	case "numeric":
		return "must be numeric"
	case "url":
		return "must be a valid URL"
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

func toMap(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, domain.InternalError{Msg: "encode payload", Err: err}
	}
	out := map[string]any{}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return nil, domain.InternalError{Msg: "encode payload", Err: err}
	}
	return out, nil
}
