package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Error types for common failure scenarios.
var (
	ErrNoTrack           = errors.New("no track playing")
	ErrTrackNotFound     = errors.New("track not found")
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	ErrPlaybackStart     = errors.New("playback failed to start")
	ErrEngineClosed      = errors.New("engine closed")
	ErrConfigNotFound    = errors.New("config file not found")
	ErrInvalidConfig     = errors.New("invalid configuration")
)

// BackdropError wraps an error with a user-friendly suggestion.
type BackdropError struct {
	Err        error
	Suggestion string
}

func (e *BackdropError) Error() string {
	return e.Err.Error()
}

func (e *BackdropError) Unwrap() error {
	return e.Err
}

// WithSuggestion wraps an error with a helpful suggestion.
func WithSuggestion(err error, suggestion string) error {
	return &BackdropError{
		Err:        err,
		Suggestion: suggestion,
	}
}

// GetSuggestion returns a suggestion for the given error.
func GetSuggestion(err error) string {
	if err == nil {
		return ""
	}

	var bErr *BackdropError
	if errors.As(err, &bErr) && bErr.Suggestion != "" {
		return bErr.Suggestion
	}

	errStr := strings.ToLower(err.Error())

	if errors.Is(err, ErrTrackNotFound) || strings.Contains(errStr, "no such file") {
		return "Check the track path, or set library.root in your config so relative paths resolve"
	}

	if errors.Is(err, ErrUnsupportedFormat) {
		return "Supported formats are mp3, wav, ogg, and flac"
	}

	if errors.Is(err, ErrPlaybackStart) {
		return "The file may be corrupt or the audio device unavailable"
	}

	if errors.Is(err, ErrNoTrack) {
		return "Start a track first with 'backdrop play'"
	}

	if errors.Is(err, ErrConfigNotFound) || errors.Is(err, ErrInvalidConfig) ||
		strings.Contains(errStr, "config") {
		return "Run 'backdrop config show' to inspect the effective configuration"
	}

	if strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "timeout") {
		return "Check that the backdrop server is running and reachable"
	}

	return ""
}

// Format returns a formatted error message with suggestion if available.
func Format(err error) string {
	if err == nil {
		return ""
	}

	suggestion := GetSuggestion(err)
	if suggestion != "" {
		return fmt.Sprintf("Error: %s\n\nSuggestion: %s", err.Error(), suggestion)
	}

	return fmt.Sprintf("Error: %s", err.Error())
}
