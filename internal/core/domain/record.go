package domain

// ExternalRecord is one record from the external content source. The
// harvester treats it as opaque: processors and filters read whatever fields
// their configuration names, nothing else interprets it.
type ExternalRecord struct {
	// ID is the source's own identifier for the record.
	ID string

	// Fields holds the decoded record values, keyed by field name.
	Fields map[string]any

	// Raw is the undecoded record payload, when the source provides one.
	Raw []byte
}

// Field returns the named field value, or nil if absent.
func (r *ExternalRecord) Field(name string) any {
	if r == nil || r.Fields == nil {
		return nil
	}
	return r.Fields[name]
}

// StringField returns the named field as a string, or "" if absent or not a
// string.
func (r *ExternalRecord) StringField(name string) string {
	s, _ := r.Field(name).(string)
	return s
}

// BoolField returns the named field as a bool. Absent or non-bool fields
// read as false.
func (r *ExternalRecord) BoolField(name string) bool {
	b, _ := r.Field(name).(bool)
	return b
}

// RecordRef is one element of a fetched range: either a reference that still
// needs a FetchSingle call, or a record delivered inline. The external-source
// contract distinguishes the two by value type.
type RecordRef struct {
	// Reference is set when the source returned only an identifier.
	Reference string

	// Record is set when the source returned the record inline.
	Record *ExternalRecord
}

// IsReference reports whether this element needs resolving via FetchSingle.
func (r RecordRef) IsReference() bool {
	return r.Record == nil
}

// Describe returns the best available identifier for failure reporting.
func (r RecordRef) Describe() string {
	if r.Record != nil && r.Record.ID != "" {
		return r.Record.ID
	}
	return r.Reference
}
