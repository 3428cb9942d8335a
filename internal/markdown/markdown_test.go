package markdown

import (
	"strings"
	"testing"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		contains []string
		excludes []string
	}{
		{"empty", "   ", nil, []string{"<p>"}},
		{"emphasis", "Join us **Sunday**", []string{"<strong>Sunday</strong>"}, nil},
		{"hard wraps", "line one\nline two", []string{"<br>"}, nil},
		{"links", "See https://grace.example/events", []string{`<a href="https://grace.example/events">`}, nil},
		{"raw html dropped", "<script>alert(1)</script>hello", nil, []string{"<script>"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Render(tt.in)
			if err != nil {
				t.Fatalf("Render: %v", err)
			}
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Fatalf("Render(%q) = %q, missing %q", tt.in, got, want)
				}
			}
			for _, bad := range tt.excludes {
				if strings.Contains(got, bad) {
					t.Fatalf("Render(%q) = %q, should not contain %q", tt.in, got, bad)
				}
			}
		})
	}
}

func TestMustRender(t *testing.T) {
	if got := MustRender("# Welcome"); !strings.Contains(got, "<h1>Welcome</h1>") {
		t.Fatalf("MustRender = %q", got)
	}
}
