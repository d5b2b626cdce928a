package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Field is a single named value on a CRM record. Fields keep their
// insertion order so payloads serialize deterministically.
type Field struct {
	Name  string
	Value interface{}
}

// Record is one sObject in an export payload. ReferenceID lets records
// later in the same payload refer back to this one (e.g. "@CONTACT")
// before a remote id exists. NoOverride names fields the CRM must keep
// if already populated, even when a value is sent.
type Record struct {
	Object      string
	ReferenceID string
	MatchRecord bool
	NoOverride  []string
	Fields      []Field
}

// Get returns the value of a field and whether it is present.
func (r Record) Get(name string) (interface{}, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// MarshalJSON serializes the record in the shape the CRM bulk endpoint
// expects: attributes first, then the record fields in insertion order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"attributes":{"sObject":`)
	object, err := json.Marshal(r.Object)
	if err != nil {
		return nil, err
	}
	buf.Write(object)
	if r.ReferenceID != "" {
		buf.WriteString(`,"referenceId":`)
		ref, err := json.Marshal(r.ReferenceID)
		if err != nil {
			return nil, err
		}
		buf.Write(ref)
	}
	if r.MatchRecord {
		buf.WriteString(`,"matchRecord":"true"`)
	}
	if len(r.NoOverride) > 0 {
		buf.WriteString(`,"doNotOverride":`)
		fields, err := json.Marshal(strings.Join(r.NoOverride, ","))
		if err != nil {
			return nil, err
		}
		buf.Write(fields)
	}
	buf.WriteString(`},"record":{`)
	for i, f := range r.Fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		value, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(value)
	}
	buf.WriteString(`}}`)
	return buf.Bytes(), nil
}

// Payload is an ordered sequence of records submitted to the CRM as one
// atomic unit.
type Payload struct {
	Records []Record
}

// MarshalJSON wraps the record sequence in the envelope the CRM expects.
func (p Payload) MarshalJSON() ([]byte, error) {
	records, err := json.Marshal(p.Records)
	if err != nil {
		return nil, err
	}
	return append(append([]byte(`{"data":`), records...), '}'), nil
}

// Validate checks that every back-reference used in a field value
// resolves to a reference id declared earlier in the record sequence.
func (p Payload) Validate() error {
	declared := make(map[string]bool)
	for i, r := range p.Records {
		for _, f := range r.Fields {
			s, ok := f.Value.(string)
			if !ok || !strings.HasPrefix(s, "@") {
				continue
			}
			if !declared[strings.TrimPrefix(s, "@")] {
				return fmt.Errorf("record %d (%s): field %s references undeclared %s", i, r.Object, f.Name, s)
			}
		}
		if r.ReferenceID != "" {
			declared[r.ReferenceID] = true
		}
	}
	return nil
}

// RecordBuilder assembles a record, omitting protected fields whose
// value is empty. Sending an empty value for those fields would clear
// data already stored remotely, whereas omitting the key leaves the
// remote value untouched.
type RecordBuilder struct {
	record    Record
	protected map[string]bool
}

// NewRecord starts a builder for the given sObject type.
func NewRecord(object string) *RecordBuilder {
	return &RecordBuilder{record: Record{Object: object}}
}

// Ref assigns the synthetic reference id other records use to link back.
func (b *RecordBuilder) Ref(id string) *RecordBuilder {
	b.record.ReferenceID = id
	return b
}

// Match asks the CRM to upsert against an existing record when one matches.
func (b *RecordBuilder) Match() *RecordBuilder {
	b.record.MatchRecord = true
	return b
}

// NoOverride marks fields the CRM must not overwrite when already set.
func (b *RecordBuilder) NoOverride(fields ...string) *RecordBuilder {
	b.record.NoOverride = append(b.record.NoOverride, fields...)
	return b
}

// Protected registers fields that are dropped instead of sent empty.
func (b *RecordBuilder) Protected(fields ...string) *RecordBuilder {
	if b.protected == nil {
		b.protected = make(map[string]bool, len(fields))
	}
	for _, f := range fields {
		b.protected[f] = true
	}
	return b
}

// Set adds a field. Protected fields with an empty value are skipped;
// all other fields are always sent, empty strings included.
func (b *RecordBuilder) Set(name string, value interface{}) *RecordBuilder {
	if b.protected[name] && isEmpty(value) {
		return b
	}
	b.record.Fields = append(b.record.Fields, Field{Name: name, Value: value})
	return b
}

// Build returns the assembled record.
func (b *RecordBuilder) Build() Record {
	return b.record
}

func isEmpty(value interface{}) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	default:
		return false
	}
}
