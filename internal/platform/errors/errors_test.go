package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		contains []string
	}{
		{
			name: "error with cause",
			err: Wrap(KindCaption, "huggingface.caption", "caption request failed",
				errors.New("status 503")),
			contains: []string{"[caption:huggingface.caption]", "caption request failed", "status 503"},
		},
		{
			name:     "error without cause",
			err:      New(KindValidation, "upload.extension", "invalid file type"),
			contains: []string{"[validation:upload.extension]", "invalid file type"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errStr := tt.err.Error()
			for _, substr := range tt.contains {
				if !strings.Contains(errStr, substr) {
					t.Errorf("error string %q does not contain %q", errStr, substr)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	originalErr := errors.New("original error")
	wrappedErr := Wrap(KindVector, "upsert", "wrapped", originalErr)

	if !errors.Is(wrappedErr, originalErr) {
		t.Error("Unwrap should return the original error")
	}
}

func TestWrap_NilAndTyped(t *testing.T) {
	if err := Wrap(KindLLM, "generate", "no-op", nil); err != nil {
		t.Fatalf("Wrap(nil) = %v, want nil", err)
	}

	inner := New(KindValidation, "upload", "missing image")
	outer := Wrap(KindStorage, "save", "should not rewrap", inner)
	if KindOf(outer) != KindValidation {
		t.Fatalf("typed error was rewrapped: %v", outer)
	}
}

func TestIsKind(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		kind     Kind
		expected bool
	}{
		{
			name:     "direct error kind match",
			err:      New(KindConfig, "test", "message"),
			kind:     KindConfig,
			expected: true,
		},
		{
			name:     "wrapped error kind match",
			err:      Wrap(KindDomain, "test", "message", errors.New("cause")),
			kind:     KindDomain,
			expected: true,
		},
		{
			name:     "fmt wrapped typed error",
			err:      fmtWrap(New(KindLLM, "embed", "empty")),
			kind:     KindLLM,
			expected: true,
		},
		{
			name:     "error kind mismatch",
			err:      New(KindConfig, "test", "message"),
			kind:     KindDomain,
			expected: false,
		},
		{
			name:     "non-typed error",
			err:      errors.New("plain error"),
			kind:     KindConfig,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsKind(tt.err, tt.kind)
			if result != tt.expected {
				t.Errorf("IsKind() = %v, expected %v", result, tt.expected)
			}
		})
	}
}

func TestKindOf_Unknown(t *testing.T) {
	if got := KindOf(errors.New("plain")); got != KindUnknown {
		t.Fatalf("KindOf(plain) = %s, want %s", got, KindUnknown)
	}
}

func fmtWrap(err error) error {
	return &wrapper{err}
}

type wrapper struct{ inner error }

func (w *wrapper) Error() string { return "outer: " + w.inner.Error() }
func (w *wrapper) Unwrap() error { return w.inner }

func TestDetail(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"plain", errors.New("boom"), "boom"},
		{"typed", New(KindLLM, "llm.generate", "empty response"), "empty response"},
		{"typed with cause", Wrap(KindStorage, "db.open", "failed to open", errors.New("disk full")), "failed to open: disk full"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Detail(tt.err); got != tt.want {
				t.Errorf("Detail() = %q, want %q", got, tt.want)
			}
		})
	}
}
