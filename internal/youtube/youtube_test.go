package youtube

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/friendsincode/ministry_platform/internal/cache"
)

func TestBuiltinCatalog(t *testing.T) {
	c, err := Builtin()
	if err != nil {
		t.Fatalf("Builtin: %v", err)
	}
	tests := []struct {
		handle string
		want   int
	}{
		{"faithcenter_in", 8},
		{"@faithcenter_in", 8},
		{"@nehemiahdavid", 10},
		{"unknown", 0},
	}
	for _, tt := range tests {
		t.Run(tt.handle, func(t *testing.T) {
			got := c.Videos(tt.handle)
			if got == nil {
				t.Fatal("Videos returned nil, want empty slice")
			}
			if len(got) != tt.want {
				t.Fatalf("Videos(%q) = %d videos, want %d", tt.handle, len(got), tt.want)
			}
		})
	}
	if v := c.Videos("faithcenter_in")[0]; v.VideoID != "RN7iFJXUMdA" || v.Category != "Sunday Services" {
		t.Fatalf("first video = %+v", v)
	}
}

func TestVideosReturnsCopy(t *testing.T) {
	c, _ := Builtin()
	v := c.Videos("faithcenter_in")
	v[0].Title = "changed"
	if c.Videos("faithcenter_in")[0].Title == "changed" {
		t.Fatal("Videos exposed internal slice")
	}
}

func TestServiceWithoutCache(t *testing.T) {
	c, _ := Builtin()
	svc := NewService(c, cache.Disabled(zerolog.Nop()))
	if got := svc.Channel(context.Background(), "@nehemiahdavid"); len(got) != 10 {
		t.Fatalf("Channel = %d videos, want 10", len(got))
	}
	if got := NewService(c, nil).Channel(context.Background(), "nope"); len(got) != 0 {
		t.Fatalf("unknown channel = %d videos", len(got))
	}
}

func TestParseRejectsBadYAML(t *testing.T) {
	if _, err := Parse([]byte("channels: [")); err == nil {
		t.Fatal("expected parse error")
	}
}
