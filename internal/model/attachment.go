package model

// Attachment is a file linked to a lead record.
type Attachment struct {
	ID       string `json:"id"`
	URL      string `json:"url"`
	Filename string `json:"filename,omitempty"`
	Size     int64  `json:"size,omitempty"`
	Type     string `json:"type,omitempty"`
}

// Identity returns the key used to decide whether two attachment entries
// are the same file: the URL when present, else the record id.
func (a Attachment) Identity() string {
	if a.URL != "" {
		return a.URL
	}
	return a.ID
}

// AttachmentFromRecord coerces a raw attachment entry into an Attachment.
// Returns false for entries that are not well-formed objects (e.g. a bare
// string left behind by a broken import).
func AttachmentFromRecord(v any) (Attachment, bool) {
	switch t := v.(type) {
	case Attachment:
		return t, true
	case *Attachment:
		if t == nil {
			return Attachment{}, false
		}
		return *t, true
	case map[string]any:
		a := Attachment{
			ID:       stringField(t, "id"),
			URL:      stringField(t, "url"),
			Filename: stringField(t, "filename"),
			Type:     stringField(t, "type"),
		}
		switch sz := t["size"].(type) {
		case float64:
			a.Size = int64(sz)
		case int64:
			a.Size = sz
		case int:
			a.Size = int64(sz)
		}
		return a, true
	}
	return Attachment{}, false
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}
