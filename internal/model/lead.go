package model

import (
	"encoding/json"
)

// Lead represents a customer record as consumed by the dedup engine.
//
// Records arrive in two shapes depending on the source: flat (Postgres rows,
// CSV imports) populate the top-level fields; Airtable-style records carry
// everything under Fields. The accessor methods resolve both, nested first.
type Lead struct {
	ID          string         `json:"id"`
	CreatedTime string         `json:"createdTime,omitempty"`
	Name        string         `json:"name"`
	Phone       string         `json:"phone,omitempty"`
	Email       string         `json:"email,omitempty"`
	City        string         `json:"city,omitempty"`
	Address     string         `json:"address,omitempty"`
	Zip         string         `json:"zip,omitempty"`
	Need        string         `json:"need,omitempty"`
	Notes       string         `json:"notes,omitempty"`
	Status      string         `json:"status,omitempty"`
	Assignee    AssigneeList   `json:"assignee,omitempty"`
	Attachments []Attachment   `json:"attachments,omitempty"`
	Orders      []string       `json:"orders,omitempty"`
	Activities  []string       `json:"activities,omitempty"`
	Fields      map[string]any `json:"fields,omitempty"`
}

// Nested field keys used by Airtable-shaped records.
const (
	FieldStatus      = "status"
	FieldAssignee    = "assignee"
	FieldAttachments = "attachments"
	FieldOrders      = "orders"
	FieldActivities  = "activities"
)

// StatusValue returns the lead's status, preferring the nested shape.
func (l *Lead) StatusValue() string {
	if l.Fields != nil {
		if s, ok := l.Fields[FieldStatus].(string); ok && s != "" {
			return s
		}
	}
	return l.Status
}

// AssigneeValue returns the owning user id(s), preferring the nested shape.
// A nested bare string or []any of strings both flatten to AssigneeList.
func (l *Lead) AssigneeValue() AssigneeList {
	if l.Fields != nil {
		if v, ok := l.Fields[FieldAssignee]; ok && v != nil {
			if al := coerceAssignees(v); al != nil {
				return al
			}
		}
	}
	return l.Assignee
}

// AttachmentRecords returns the raw attachment entries, preferring the
// nested shape. Nested entries come back as any values so that malformed
// entries survive to the merger, which skips them with a warning instead
// of dropping them silently here.
func (l *Lead) AttachmentRecords() []any {
	if l.Fields != nil {
		if v, ok := l.Fields[FieldAttachments]; ok && v != nil {
			if raw, ok := v.([]any); ok {
				return raw
			}
		}
	}
	out := make([]any, 0, len(l.Attachments))
	for _, a := range l.Attachments {
		out = append(out, a)
	}
	return out
}

// RelationIDs returns the linked record ids for a relation field (orders,
// activities), preferring the nested shape.
func (l *Lead) RelationIDs(key string) []string {
	if l.Fields != nil {
		if v, ok := l.Fields[key]; ok && v != nil {
			return coerceStrings(v)
		}
	}
	switch key {
	case FieldOrders:
		return l.Orders
	case FieldActivities:
		return l.Activities
	}
	return nil
}

// Consolidatable text field keys.
const (
	FieldName    = "name"
	FieldPhone   = "phone"
	FieldEmail   = "email"
	FieldCity    = "city"
	FieldAddress = "address"
	FieldZip     = "zip"
	FieldNeed    = "need"
	FieldNotes   = "notes"
)

// TextValue returns the lead's value for a text field key, preferring the
// nested shape. Unknown keys resolve only through the nested map.
func (l *Lead) TextValue(key string) string {
	if l.Fields != nil {
		if s, ok := l.Fields[key].(string); ok && s != "" {
			return s
		}
	}
	switch key {
	case FieldName:
		return l.Name
	case FieldPhone:
		return l.Phone
	case FieldEmail:
		return l.Email
	case FieldCity:
		return l.City
	case FieldAddress:
		return l.Address
	case FieldZip:
		return l.Zip
	case FieldNeed:
		return l.Need
	case FieldNotes:
		return l.Notes
	case FieldStatus:
		return l.Status
	}
	return ""
}

// AssigneeList is one owning user id or an ordered list of ids. Older
// records serialize a bare string, newer ones an array; both decode.
type AssigneeList []string

func (a *AssigneeList) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		if single == "" {
			*a = nil
		} else {
			*a = AssigneeList{single}
		}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*a = AssigneeList(many)
	return nil
}

// Equal reports order-sensitive equality with another list.
func (a AssigneeList) Equal(b AssigneeList) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func coerceAssignees(v any) AssigneeList {
	switch t := v.(type) {
	case string:
		if t == "" {
			return nil
		}
		return AssigneeList{t}
	case []string:
		return AssigneeList(t)
	case AssigneeList:
		return t
	case []any:
		return AssigneeList(coerceStrings(t))
	}
	return nil
}

func coerceStrings(v any) []string {
	switch t := v.(type) {
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		if t == "" {
			return nil
		}
		return []string{t}
	}
	return nil
}
