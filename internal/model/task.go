package model

import (
	"bytes"
	"encoding/json"
	"slices"
	"time"
)

// TaskStatus represents the current state of a scraping task.
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
)

// Terminal reports whether no further transitions are allowed.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// JobKind is the shape of a submitted job specification.
type JobKind string

const (
	JobKindContacts JobKind = "contacts"
	JobKindPlaces   JobKind = "places"
	JobKindCombined JobKind = "combined"
)

// Task is an immutable point-in-time snapshot of a scraping job.
type Task struct {
	ID         string     `json:"task_id"`
	Kind       JobKind    `json:"kind"`
	Status     TaskStatus `json:"status"`
	Progress   int        `json:"progress"`
	Message    string     `json:"message"`
	Records    []Record   `json:"data"`
	TotalCount int        `json:"total_count"`
	Sources    []Source   `json:"sources"`
	Fields     []Field    `json:"fields"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// MarshalJSON writes each record's keys in the order of t.Fields, followed
// by any other keys in alphabetical order.
func (t Task) MarshalJSON() ([]byte, error) {
	type plain Task
	out := struct {
		plain
		Records []orderedRecord `json:"data"`
	}{plain: plain(t)}
	if t.Records != nil {
		out.Records = make([]orderedRecord, len(t.Records))
		for i, rec := range t.Records {
			out.Records[i] = orderedRecord{rec: rec, fields: t.Fields}
		}
	}
	return json.Marshal(out)
}

type orderedRecord struct {
	rec    Record
	fields []Field
}

func (o orderedRecord) MarshalJSON() ([]byte, error) {
	keys := make([]Field, 0, len(o.rec))
	seen := make(map[Field]struct{}, len(o.rec))
	for _, f := range o.fields {
		if _, ok := o.rec[f]; !ok {
			continue
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		keys = append(keys, f)
	}
	var extra []Field
	for f := range o.rec {
		if _, ok := seen[f]; !ok {
			extra = append(extra, f)
		}
	}
	slices.Sort(extra)
	keys = append(keys, extra...)

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(string(f))
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(o.rec[f])
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
