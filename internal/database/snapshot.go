package database

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
)

// Snapshot is the whole content of the person store: an insertion-ordered
// mapping of person ID to record. Every store mutation loads a Snapshot,
// changes it and saves it back as a unit.
type Snapshot struct {
	ids     []string
	records map[string]*PersonRecord
}

// NewSnapshot returns an empty snapshot.
func NewSnapshot() *Snapshot {
	return &Snapshot{records: make(map[string]*PersonRecord)}
}

// Len returns the number of records.
func (s *Snapshot) Len() int {
	return len(s.ids)
}

// IDs returns the person IDs in insertion order.
func (s *Snapshot) IDs() []string {
	return append([]string(nil), s.ids...)
}

// Get returns the record for id.
func (s *Snapshot) Get(id string) (*PersonRecord, bool) {
	rec, ok := s.records[id]
	return rec, ok
}

// Put stores rec under id. New IDs are appended to the iteration order.
func (s *Snapshot) Put(id string, rec *PersonRecord) {
	if _, ok := s.records[id]; !ok {
		s.ids = append(s.ids, id)
	}
	s.records[id] = rec
}

// All iterates records in insertion order.
func (s *Snapshot) All() iter.Seq2[string, *PersonRecord] {
	return func(yield func(string, *PersonRecord) bool) {
		for _, id := range s.ids {
			if !yield(id, s.records[id]) {
				return
			}
		}
	}
}

// Clone returns a deep copy of the snapshot.
func (s *Snapshot) Clone() *Snapshot {
	c := &Snapshot{
		ids:     s.IDs(),
		records: make(map[string]*PersonRecord, len(s.records)),
	}
	for id, rec := range s.records {
		c.records[id] = rec.Clone()
	}
	return c
}

// MarshalJSON encodes the snapshot as a JSON object with keys in insertion order.
func (s *Snapshot) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, id := range s.ids {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(id)
		if err != nil {
			return nil, fmt.Errorf("marshal person id: %w", err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		rec, err := json.Marshal(s.records[id])
		if err != nil {
			return nil, fmt.Errorf("marshal %s: %w", id, err)
		}
		buf.Write(rec)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, keeping the key order of the document.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errors.New("snapshot must be a JSON object")
	}

	s.ids = nil
	s.records = make(map[string]*PersonRecord)

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("read person id: %w", err)
		}
		id, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected token %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("decode %s: %w", id, err)
		}
		rec, err := DecodeRecord(raw)
		if err != nil {
			return fmt.Errorf("decode %s: %w", id, err)
		}
		s.Put(id, rec)
	}

	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("read snapshot end: %w", err)
	}
	return nil
}

// DecodeRecord decodes one stored PersonRecord. Row-oriented backends keep
// each record as its own JSON document.
func DecodeRecord(data []byte) (*PersonRecord, error) {
	var rec PersonRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	if rec.Cameras == nil {
		rec.Cameras = make(map[string]*CameraSighting)
	}
	for id, cam := range rec.Cameras {
		if cam == nil {
			rec.Cameras[id] = &CameraSighting{Sightings: []Sighting{}}
		}
	}
	return &rec, nil
}
