package pagination

// Record is a catalog entry. Only ID is interpreted; Fields carries the
// upstream attributes untouched.
type Record struct {
	ID     string         `json:"id"`
	Fields map[string]any `json:"fields,omitempty"`
}

// Field returns a named upstream attribute, nil when absent.
func (r Record) Field(name string) any {
	return r.Fields[name]
}

// Page is one fetched page of records in catalog order.
type Page struct {
	// Index is the 1-based page number
	Index int `json:"page"`

	// Limit is the page size used for the fetch
	Limit int `json:"limit"`

	// TotalPages is the page count reported by the upstream with this page
	TotalPages int `json:"total_pages"`

	// Total is the record count reported by the upstream (0 if unknown)
	Total int `json:"total"`

	Records []Record `json:"records"`
}

// IDs returns the record ids in catalog order.
func (p *Page) IDs() []string {
	if p == nil {
		return nil
	}
	ids := make([]string, len(p.Records))
	for i, r := range p.Records {
		ids[i] = r.ID
	}
	return ids
}

// Contains reports whether id is one of the page's records.
func (p *Page) Contains(id string) bool {
	if p == nil {
		return false
	}
	for _, r := range p.Records {
		if r.ID == id {
			return true
		}
	}
	return false
}

// clone copies the page header and record slice. Record field maps are
// shared; they are never mutated after decoding.
func (p *Page) clone() *Page {
	if p == nil {
		return nil
	}
	c := *p
	c.Records = append([]Record(nil), p.Records...)
	return &c
}
