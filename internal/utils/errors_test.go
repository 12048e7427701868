package utils

import (
	"errors"
	"fmt"
	"os"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"nil", nil, KindUnknown},
		{"plain error", errors.New("connection reset"), KindRemoteUnavailable},
		{"not found", NewAppError(NewCLIError(ErrCodeFileNotFound, "gone").Build()), KindNotFound},
		{"invalid reference", InvalidReferenceError("bad url %q", "x"), KindInvalidReference},
		{"local io", LocalIOError("open", "/tmp/x", os.ErrPermission), KindLocalIO},
		{"rate limited", NewAppError(NewCLIError(ErrCodeRateLimited, "slow down").Build()), KindRemoteUnavailable},
		{"wrapped not found", fmt.Errorf("listing: %w", NewAppError(NewCLIError(ErrCodeFileNotFound, "gone").Build())), KindNotFound},
		{"unknown code", NewAppError(NewCLIError(ErrCodeCancelled, "stop").Build()), KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLocalIOError_Unwrap(t *testing.T) {
	err := LocalIOError("mkdir", "/nope", os.ErrPermission)
	if !errors.Is(err, os.ErrPermission) {
		t.Error("expected LocalIOError to wrap its cause")
	}
	if err.CLIError.Context["path"] != "/nope" {
		t.Errorf("path context = %v", err.CLIError.Context["path"])
	}
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{ErrCodeFileNotFound, ExitFileNotFound},
		{ErrCodeLocalIO, ExitLocalIO},
		{ErrCodeInvalidReference, ExitInvalidReference},
		{ErrCodeRemoteUnavailable, ExitRemoteUnavailable},
		{"SOMETHING_ELSE", ExitUnknown},
	}
	for _, tt := range tests {
		if got := GetExitCode(tt.code); got != tt.want {
			t.Errorf("GetExitCode(%s) = %d, want %d", tt.code, got, tt.want)
		}
	}
}

func TestErrorKindString(t *testing.T) {
	if KindLocalIO.String() != "LocalIOError" {
		t.Errorf("KindLocalIO.String() = %s", KindLocalIO.String())
	}
	if ErrorKind(42).String() != "Unknown" {
		t.Error("out of range kinds should print Unknown")
	}
}
