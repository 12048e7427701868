package testing

import (
	"context"
	"errors"
	"testing"

	"github.com/dl-alexandre/drivesync/internal/api"
	"github.com/dl-alexandre/drivesync/internal/logging"
	"github.com/dl-alexandre/drivesync/internal/types"
	"github.com/dl-alexandre/drivesync/internal/utils"
)

// TestContext creates a standard test context
func TestContext() context.Context {
	return context.Background()
}

// TestRequestContext creates a standard request context for testing
func TestRequestContext() *types.RequestContext {
	return &types.RequestContext{
		Profile:           "test-profile",
		DriveID:           "",
		InvolvedFileIDs:   []string{},
		InvolvedParentIDs: []string{},
		RequestType:       types.RequestTypeListOrSearch,
		TraceID:           "test-trace-id",
	}
}

// NewTestClient returns an API client backed by the fake server. Retries are
// enabled with a 1ms base delay so injected 5xx failures recover quickly.
func NewTestClient(t *testing.T, fake *FakeDrive, maxRetries int) *api.Client {
	t.Helper()
	return api.NewClient(fake.Service(t), maxRetries, 1, logging.NewNoOpLogger(), api.WithProfile("test-profile"))
}

// AssertNoError is a helper to fail the test if error is not nil
func AssertNoError(t *testing.T, err error, msgAndArgs ...interface{}) {
	t.Helper()
	if err != nil {
		if len(msgAndArgs) > 0 {
			t.Fatalf("%v: %v", msgAndArgs[0], err)
		} else {
			t.Fatalf("unexpected error: %v", err)
		}
	}
}

// AssertError is a helper to fail the test if error is nil
func AssertError(t *testing.T, err error, msgAndArgs ...interface{}) {
	t.Helper()
	if err == nil {
		if len(msgAndArgs) > 0 {
			t.Fatalf("%v: expected error but got nil", msgAndArgs[0])
		} else {
			t.Fatal("expected error but got nil")
		}
	}
}

// AssertEqual is a helper to fail the test if two values are not equal
func AssertEqual(t *testing.T, got, want interface{}, msgAndArgs ...interface{}) {
	t.Helper()
	if got != want {
		if len(msgAndArgs) > 0 {
			t.Fatalf("%v: got %v, want %v", msgAndArgs[0], got, want)
		} else {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

// AssertErrorCode fails the test unless err is an AppError with code
func AssertErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	var appErr *utils.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected AppError with code %s, got %v", code, err)
	}
	if appErr.CLIError.Code != code {
		t.Fatalf("error code = %s, want %s", appErr.CLIError.Code, code)
	}
}
