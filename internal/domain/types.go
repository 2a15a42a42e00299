package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ListQuery is the client-side view of one page request.
// PageIndex is 0-based.
type ListQuery struct {
	PageIndex      int    `json:"pageIndex"`
	PageSize       int    `json:"pageSize"`
	SortField      string `json:"sortField,omitempty"`
	SortDescending bool   `json:"sortDescending"`
	SearchText     string `json:"searchText"`
	// Filters carries entity specific filters (users: status, roleId).
	Filters map[string]string `json:"filters,omitempty"`
}

// Validate enforces pageIndex >= 0 and pageSize > 0.
func (q ListQuery) Validate() error {
	if q.PageIndex < 0 {
		return ValidationError{Field: "pageIndex", Msg: "must not be negative"}
	}
	if q.PageSize <= 0 {
		return ValidationError{Field: "pageSize", Msg: "must be positive"}
	}
	return nil
}

// Page is the 1-based page number of the query.
func (q ListQuery) Page() int { return q.PageIndex + 1 }

// Direction renders SortDescending as asc/desc.
func (q ListQuery) Direction() string {
	if q.SortDescending {
		return "desc"
	}
	return "asc"
}

// Key serializes the entity type and every query field. Two queries with equal
// keys are the same request for caching and deduplication.
func (q ListQuery) Key(entity string) string {
	b, err := json.Marshal(struct {
		Entity string `json:"entity"`
		ListQuery
	}{Entity: entity, ListQuery: q})
	if err != nil {
		return fmt.Sprintf("%s|%d|%d|%s|%t|%s", entity, q.PageIndex, q.PageSize, q.SortField, q.SortDescending, q.SearchText)
	}
	return string(b)
}

// ListResult is one normalized page.
type ListResult struct {
	Items      []Record `json:"items"`
	TotalCount int      `json:"totalCount"`
	Page       int      `json:"page"`
}

// Record is a backend entity after normalization. It always carries a canonical "id".
type Record map[string]any

// ID returns the canonical identifier as a string, or "" when absent.
func (r Record) ID() string {
	if r == nil {
		return ""
	}
	return IDString(r["id"])
}

// String returns the attribute as display text.
func (r Record) String(field string) string {
	v, ok := r[field]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if m, ok := item.(map[string]any); ok {
				parts = append(parts, Record(m).String("name"))
				continue
			}
			parts = append(parts, fmt.Sprint(item))
		}
		return strings.Join(parts, ", ")
	case map[string]any:
		return Record(t).String("name")
	default:
		return fmt.Sprint(t)
	}
}

// Clone returns a shallow copy.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// IDString renders an opaque identifier value.
func IDString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return fmt.Sprint(t)
	}
}

// SessionCredential is issued at sign-in and attached to every backend call.
type SessionCredential struct {
	SubjectID   string    `json:"subjectId"`
	DisplayName string    `json:"displayName"`
	Email       string    `json:"email"`
	RoleID      string    `json:"roleId"`
	AccessToken string    `json:"-"`
	Permissions []string  `json:"permissions"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// HasPermission reports whether slug is in the permission set.
func (c SessionCredential) HasPermission(slug string) bool {
	for _, p := range c.Permissions {
		if strings.EqualFold(p, slug) {
			return true
		}
	}
	return false
}

// Expired reports whether the credential is past its time-to-live.
func (c SessionCredential) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// AuditEntry is one row of the admin audit trail.
type AuditEntry struct {
	ID        int64     `json:"id"`
	ActorID   string    `json:"actorId"`
	ActorName string    `json:"actorName"`
	Entity    string    `json:"entity"`
	Action    string    `json:"action"`
	RecordID  string    `json:"recordId"`
	RequestID string    `json:"requestId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
