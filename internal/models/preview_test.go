package models

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/google/uuid"
)

func TestPreviewText(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		imageURL string
		want     string
	}{
		{"plain text passes through", "hello there", "", "hello there"},
		{"image wins over content", "see attached", "uploads/a.png", ImagePlaceholder},
		{"image with no content", "", "uploads/a.png", ImagePlaceholder},
		{"exactly 100 runes untouched", strings.Repeat("a", 100), "", strings.Repeat("a", 100)},
		{"101 runes truncated", strings.Repeat("a", 101), "", strings.Repeat("a", 100)},
		{"empty content stays empty", "", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PreviewText(tt.content, tt.imageURL); got != tt.want {
				t.Errorf("PreviewText() = %q, want %q", got, tt.want)
			}
		})
	}
}

// Truncation must count runes, not bytes: a multibyte tail must never be
// cut mid-sequence.
func TestPreviewText_MultibyteTruncation(t *testing.T) {
	content := strings.Repeat("ä", 150)
	got := PreviewText(content, "")

	if !utf8.ValidString(got) {
		t.Fatal("truncated preview is not valid UTF-8")
	}
	if n := utf8.RuneCountInString(got); n != 100 {
		t.Errorf("preview holds %d runes, want 100", n)
	}
}

func TestKindFor(t *testing.T) {
	if got := KindFor(nil); got != KindPatientClinic {
		t.Errorf("KindFor(nil) = %s, want %s", got, KindPatientClinic)
	}
	staff := uuid.New()
	if got := KindFor(&staff); got != KindPatientDoctor {
		t.Errorf("KindFor(staff) = %s, want %s", got, KindPatientDoctor)
	}
}
