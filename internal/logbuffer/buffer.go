/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package logbuffer keeps the most recent log lines in memory so admins can
// read them over the API.
package logbuffer

import (
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"
)

// DefaultCapacity is used when New is given a non-positive size.
const DefaultCapacity = 5000

// Entry is one decoded zerolog line.
type Entry struct {
	Time      time.Time      `json:"time"`
	Level     string         `json:"level"`
	Message   string         `json:"message"`
	Component string         `json:"component,omitempty"`
	BrandID   string         `json:"brand_id,omitempty"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// Filter narrows Query results. Zero values match everything.
type Filter struct {
	Level     string
	Component string
	BrandID   string
	Search    string
	Since     time.Time
	Limit     int
	Ascending bool
}

// Stats summarizes the buffer contents.
type Stats struct {
	Capacity   int            `json:"capacity"`
	Count      int            `json:"count"`
	Levels     map[string]int `json:"levels"`
	Components []string       `json:"components"`
}

// Buffer is a fixed-size ring of entries. It implements io.Writer so it can
// sit behind zerolog.MultiLevelWriter.
type Buffer struct {
	mu      sync.RWMutex
	entries []Entry
	head    int
	count   int
	now     func() time.Time
}

// New returns an empty buffer holding up to capacity entries.
func New(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{entries: make([]Entry, capacity), now: time.Now}
}

// Write decodes one JSON log line. Lines that are not JSON are dropped.
func (b *Buffer) Write(p []byte) (int, error) {
	var raw map[string]any
	if err := json.Unmarshal(p, &raw); err != nil {
		return len(p), nil
	}

	e := Entry{Time: b.now(), Fields: map[string]any{}}
	for k, v := range raw {
		switch k {
		case "level":
			e.Level, _ = v.(string)
		case "message":
			e.Message, _ = v.(string)
		case "component":
			e.Component, _ = v.(string)
		case "brand_id":
			e.BrandID, _ = v.(string)
		case "time":
			if t, ok := parseTime(v); ok {
				e.Time = t
			}
		default:
			e.Fields[k] = v
		}
	}
	if len(e.Fields) == 0 {
		e.Fields = nil
	}
	b.Add(e)
	return len(p), nil
}

// zerolog writes either unix seconds or RFC 3339 depending on TimeFieldFormat.
func parseTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case float64:
		return time.Unix(int64(t), 0).UTC(), true
	case string:
		parsed, err := time.Parse(time.RFC3339, t)
		return parsed, err == nil
	}
	return time.Time{}, false
}

// Add appends an entry, overwriting the oldest when full.
func (b *Buffer) Add(e Entry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[b.head] = e
	b.head = (b.head + 1) % len(b.entries)
	if b.count < len(b.entries) {
		b.count++
	}
}

// snapshot returns entries oldest first. Caller holds at least a read lock.
func (b *Buffer) snapshot() []Entry {
	out := make([]Entry, 0, b.count)
	start := 0
	if b.count == len(b.entries) {
		start = b.head
	}
	for i := 0; i < b.count; i++ {
		out = append(out, b.entries[(start+i)%len(b.entries)])
	}
	return out
}

// Query returns matching entries, newest first unless f.Ascending is set.
func (b *Buffer) Query(f Filter) []Entry {
	b.mu.RLock()
	all := b.snapshot()
	b.mu.RUnlock()

	search := strings.ToLower(f.Search)
	matched := make([]Entry, 0, len(all))
	for _, e := range all {
		if f.Level != "" && e.Level != f.Level {
			continue
		}
		if f.Component != "" && e.Component != f.Component {
			continue
		}
		if f.BrandID != "" && e.BrandID != f.BrandID {
			continue
		}
		if !f.Since.IsZero() && e.Time.Before(f.Since) {
			continue
		}
		if search != "" && !e.contains(search) {
			continue
		}
		matched = append(matched, e)
	}

	if !f.Ascending {
		for i, j := 0, len(matched)-1; i < j; i, j = i+1, j-1 {
			matched[i], matched[j] = matched[j], matched[i]
		}
	}
	if f.Limit > 0 && len(matched) > f.Limit {
		matched = matched[:f.Limit]
	}
	return matched
}

func (e Entry) contains(lower string) bool {
	if strings.Contains(strings.ToLower(e.Message), lower) || strings.Contains(strings.ToLower(e.Component), lower) {
		return true
	}
	for _, v := range e.Fields {
		if s, ok := v.(string); ok && strings.Contains(strings.ToLower(s), lower) {
			return true
		}
	}
	return false
}

// Stats counts entries per level and lists the components seen.
func (b *Buffer) Stats() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	st := Stats{Capacity: len(b.entries), Levels: map[string]int{}, Components: []string{}}
	seen := map[string]bool{}
	for _, e := range b.snapshot() {
		st.Count++
		st.Levels[e.Level]++
		if e.Component != "" && !seen[e.Component] {
			seen[e.Component] = true
			st.Components = append(st.Components, e.Component)
		}
	}
	sort.Strings(st.Components)
	return st
}

// Clear drops every entry.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.head = 0
	b.count = 0
}
