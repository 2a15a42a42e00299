package entities

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/feridsherif/crms-frontend/internal/domain"
)

// EnvelopeKind tags the list envelope shapes the backend is known to produce.
type EnvelopeKind int

const (
	// EnvelopeArray is a bare JSON array.
	EnvelopeArray EnvelopeKind = iota
	// EnvelopeData is {data:[...]} with optional totalElements/total/pagination.total.
	EnvelopeData
	// EnvelopePage is {data:{content:[...], totalElements}} or a bare {content, totalElements}.
	EnvelopePage
	// EnvelopeRoles is {roles:[...], total}.
	EnvelopeRoles
	// EnvelopeUsers is {users:[...], total}.
	EnvelopeUsers
)

func (k EnvelopeKind) String() string {
	switch k {
	case EnvelopeArray:
		return "array"
	case EnvelopeData:
		return "data"
	case EnvelopePage:
		return "page"
	case EnvelopeRoles:
		return "roles"
	case EnvelopeUsers:
		return "users"
	default:
		return "unknown"
	}
}

// ErrUnknownEnvelope is returned for bodies matching none of the known shapes.
var ErrUnknownEnvelope = errors.New("unrecognized list envelope")

// Envelope is a decoded list body.
type Envelope struct {
	Kind     EnvelopeKind
	Items    []map[string]any
	Total    int
	HasTotal bool
}

// Count is the total when the backend sent one, else the item count.
func (e Envelope) Count() int {
	if e.HasTotal {
		return e.Total
	}
	return len(e.Items)
}

// DecodeEnvelope matches body against every known list envelope once.
func DecodeEnvelope(body []byte) (Envelope, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return Envelope{}, ErrUnknownEnvelope
	}
	if body[0] == '[' {
		items, err := decodeItems(body)
		if err != nil {
			return Envelope{}, err
		}
		return Envelope{Kind: EnvelopeArray, Items: items}, nil
	}
	if body[0] != '{' {
		return Envelope{}, ErrUnknownEnvelope
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}

	switch {
	case obj["roles"] != nil:
		return keyedEnvelope(EnvelopeRoles, obj["roles"], obj["total"])
	case obj["users"] != nil:
		return keyedEnvelope(EnvelopeUsers, obj["users"], obj["total"])
	case obj["content"] != nil:
		return keyedEnvelope(EnvelopePage, obj["content"], obj["totalElements"])
	case obj["data"] != nil:
		return dataEnvelope(obj)
	default:
		return Envelope{}, ErrUnknownEnvelope
	}
}

func dataEnvelope(obj map[string]json.RawMessage) (Envelope, error) {
	data := bytes.TrimSpace(obj["data"])
	switch {
	case bytes.Equal(data, []byte("null")):
		return Envelope{Kind: EnvelopeData, Items: []map[string]any{}}, nil
	case len(data) > 0 && data[0] == '{':
		var page map[string]json.RawMessage
		if err := json.Unmarshal(data, &page); err != nil {
			return Envelope{}, fmt.Errorf("decode page envelope: %w", err)
		}
		if page["content"] == nil {
			return Envelope{}, ErrUnknownEnvelope
		}
		return keyedEnvelope(EnvelopePage, page["content"], page["totalElements"])
	}

	env, err := keyedEnvelope(EnvelopeData, data, obj["totalElements"])
	if err != nil || env.HasTotal {
		return env, err
	}
	if total, ok := decodeCount(obj["total"]); ok {
		env.Total, env.HasTotal = total, true
		return env, nil
	}
	if raw := obj["pagination"]; raw != nil {
		var p struct {
			Total json.RawMessage `json:"total"`
		}
		if json.Unmarshal(raw, &p) == nil {
			if total, ok := decodeCount(p.Total); ok {
				env.Total, env.HasTotal = total, true
			}
		}
	}
	return env, nil
}

func keyedEnvelope(kind EnvelopeKind, items, total json.RawMessage) (Envelope, error) {
	env := Envelope{Kind: kind}
	list := bytes.TrimSpace(items)
	if len(list) == 0 || bytes.Equal(list, []byte("null")) {
		env.Items = []map[string]any{}
	} else {
		decoded, err := decodeItems(list)
		if err != nil {
			return Envelope{}, err
		}
		env.Items = decoded
	}
	env.Total, env.HasTotal = decodeCount(total)
	return env, nil
}

func decodeItems(raw []byte) ([]map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	items := []map[string]any{}
	if err := dec.Decode(&items); err != nil {
		return nil, fmt.Errorf("decode items: %w", err)
	}
	return items, nil
}

func decodeCount(raw json.RawMessage) (int, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, false
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if v, err := n.Int64(); err == nil && v >= 0 {
			return int(v), true
		}
		return 0, false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, err := strconv.Atoi(s); err == nil && v >= 0 {
			return v, true
		}
	}
	return 0, false
}

// DecodeItem unwraps a single-record body: {data:{...}}, {user:{...}} or the bare object.
func DecodeItem(body []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(bytes.TrimSpace(body)))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, fmt.Errorf("decode item: %w", err)
	}
	if obj == nil {
		return nil, fmt.Errorf("decode item: empty body")
	}
	for _, key := range []string{"data", "user"} {
		if inner, ok := obj[key].(map[string]any); ok {
			return inner, nil
		}
	}
	return obj, nil
}

// DecodeOptional decodes any JSON body and yields nil for an empty or
// unparsable one.
func DecodeOptional(body []byte) any {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil
	}
	return out
}

// Normalize maps the backend identifier onto the canonical "id" field.
func (d Definition) Normalize(raw map[string]any) domain.Record {
	rec := domain.Record(raw)
	if rec == nil {
		rec = domain.Record{}
	}
	if domain.IDString(rec["id"]) != "" {
		return rec
	}
	for _, field := range []string{d.IDField, "id"} {
		if field == "" {
			continue
		}
		if v, ok := rec[field]; ok && domain.IDString(v) != "" {
			rec["id"] = v
			return rec
		}
	}
	return rec
}

// NormalizeAll applies Normalize to every item.
func (d Definition) NormalizeAll(items []map[string]any) []domain.Record {
	out := make([]domain.Record, 0, len(items))
	for _, item := range items {
		out = append(out, d.Normalize(item))
	}
	return out
}
