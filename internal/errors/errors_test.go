package errors

import (
	"strings"
	"testing"
)

func TestRemoteServiceError_Formatting(t *testing.T) {
	err := NewRemoteServiceError("listing groups", New("connection refused")).
		WithService("markus").
		WithEndpoint("/api/courses").
		WithStatus(502)

	msg := err.Error()
	for _, want := range []string{"service=markus", "endpoint=/api/courses", "status=502", "listing groups", "connection refused"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error message %q missing %q", msg, want)
		}
	}
}

func TestRemoteServiceError_IsAndRetryable(t *testing.T) {
	err := Wrap(NewRemoteServiceError("fetch", nil), "download-report")

	if !Is(err, ErrRemoteService) {
		t.Error("expected errors.Is(err, ErrRemoteService)")
	}

	var remoteErr *RemoteServiceError
	if !As(err, &remoteErr) {
		t.Fatal("expected errors.As to find RemoteServiceError")
	}
	if !IsRetryable(err) {
		t.Error("remote service errors should be retryable")
	}
}

func TestMissingConfigurationError_ListsAllKeys(t *testing.T) {
	err := NewMissingConfigurationError("run-moss", []string{"moss.user_id", "language"})

	if !strings.Contains(err.Error(), "moss.user_id, language") {
		t.Errorf("error = %q, want all missing keys listed at once", err.Error())
	}
	if !Is(err, ErrMissingConfiguration) {
		t.Error("expected match against ErrMissingConfiguration sentinel")
	}
	if IsRetryable(err) {
		t.Error("configuration errors are not retryable")
	}
}

func TestCyclicDependencyError_NamesCycle(t *testing.T) {
	err := NewCyclicDependencyError([]string{"a", "b", "a"})
	if !strings.Contains(err.Error(), "a -> b -> a") {
		t.Errorf("error = %q, want cycle path", err.Error())
	}
	if !Is(err, ErrDependencyCycle) {
		t.Error("expected match against ErrDependencyCycle sentinel")
	}
}

func TestIsConfigurationError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"missing config", NewMissingConfigurationError("a", []string{"k"}), true},
		{"unknown group", NewUnknownGroupError("g9"), true},
		{"cycle", NewCyclicDependencyError([]string{"a", "a"}), true},
		{"wrapped unknown group", Wrap(NewUnknownGroupError("g9"), "clustering"), true},
		{"remote", NewRemoteServiceError("x", nil), false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsConfigurationError(tt.err); got != tt.want {
				t.Errorf("IsConfigurationError = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWrapf_NilPassthrough(t *testing.T) {
	if Wrapf(nil, "context %d", 1) != nil {
		t.Error("Wrapf(nil) should return nil")
	}
}
