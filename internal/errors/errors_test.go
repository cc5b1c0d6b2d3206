package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestWithSuggestion(t *testing.T) {
	base := errors.New("boom")
	err := WithSuggestion(base, "try again")

	if err.Error() != "boom" {
		t.Errorf("Error() = %q, want %q", err.Error(), "boom")
	}
	if !errors.Is(err, base) {
		t.Error("wrapped error lost its cause")
	}
	if got := GetSuggestion(err); got != "try again" {
		t.Errorf("GetSuggestion() = %q, want %q", got, "try again")
	}
}

func TestGetSuggestionForSentinels(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{ErrTrackNotFound, "library.root"},
		{ErrUnsupportedFormat, "mp3"},
		{ErrPlaybackStart, "audio device"},
		{ErrNoTrack, "backdrop play"},
		{ErrInvalidConfig, "config show"},
	}
	for _, tt := range tests {
		got := GetSuggestion(tt.err)
		if !strings.Contains(got, tt.want) {
			t.Errorf("GetSuggestion(%v) = %q, want mention of %q", tt.err, got, tt.want)
		}
	}
}

func TestGetSuggestionWrappedSentinel(t *testing.T) {
	err := fmt.Errorf("opening track: %w", ErrUnsupportedFormat)
	if got := GetSuggestion(err); got == "" {
		t.Error("GetSuggestion() lost the wrapped sentinel")
	}
}

func TestGetSuggestionUnknown(t *testing.T) {
	if got := GetSuggestion(errors.New("mystery")); got != "" {
		t.Errorf("GetSuggestion() = %q, want empty", got)
	}
	if got := GetSuggestion(nil); got != "" {
		t.Errorf("GetSuggestion(nil) = %q, want empty", got)
	}
}

func TestFormat(t *testing.T) {
	if got := Format(nil); got != "" {
		t.Errorf("Format(nil) = %q, want empty", got)
	}

	plain := Format(errors.New("mystery"))
	if plain != "Error: mystery" {
		t.Errorf("Format() = %q", plain)
	}

	withHint := Format(WithSuggestion(errors.New("boom"), "try again"))
	if !strings.Contains(withHint, "boom") || !strings.Contains(withHint, "try again") {
		t.Errorf("Format() = %q, want error and suggestion", withHint)
	}
}
