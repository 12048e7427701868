package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dl-alexandre/drivesync/internal/types"
	"github.com/dl-alexandre/drivesync/internal/utils"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"429", &googleapi.Error{Code: 429}, true},
		{"503", &googleapi.Error{Code: 503}, true},
		{"404", &googleapi.Error{Code: 404}, false},
		{"plain", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isRetryable(tt.err); got != tt.want {
				t.Errorf("isRetryable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCalculateBackoff(t *testing.T) {
	base := 100 * time.Millisecond

	for attempt := 0; attempt < 4; attempt++ {
		want := base << attempt
		got := calculateBackoff(base, attempt, errors.New("x"))
		if got < want*3/4 || got > want*5/4 {
			t.Errorf("attempt %d: delay %v outside jitter range of %v", attempt, got, want)
		}
	}

	capped := calculateBackoff(base, 20, errors.New("x"))
	if limit := time.Duration(utils.MaxRetryDelayMs) * time.Millisecond * 5 / 4; capped > limit {
		t.Errorf("delay %v exceeds cap %v", capped, limit)
	}

	retryAfter := &googleapi.Error{Code: 429, Header: http.Header{"Retry-After": []string{"2"}}}
	if got := calculateBackoff(base, 0, retryAfter); got != 2*time.Second {
		t.Errorf("Retry-After delay = %v, want 2s", got)
	}
}

func TestExecuteWithRetry_RetriesThenSucceeds(t *testing.T) {
	client := NewClient(nil, 3, 1, nil)
	reqCtx := client.NewRequest(types.RequestTypeGetByID)

	calls := 0
	got, err := ExecuteWithRetry(context.Background(), client, reqCtx, func() (string, error) {
		calls++
		if calls < 3 {
			return "", &googleapi.Error{Code: 503}
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("ExecuteWithRetry() error = %v", err)
	}
	if got != "ok" || calls != 3 {
		t.Errorf("got %q after %d calls, want ok after 3", got, calls)
	}
}

func TestExecuteWithRetry_NonRetryableIsClassified(t *testing.T) {
	client := NewClient(nil, 3, 1, nil)
	reqCtx := client.NewRequest(types.RequestTypeGetByID)

	calls := 0
	_, err := ExecuteWithRetry(context.Background(), client, reqCtx, func() (*drive.File, error) {
		calls++
		return nil, &googleapi.Error{Code: 404, Message: "File not found"}
	})
	if calls != 1 {
		t.Errorf("expected a single attempt, got %d", calls)
	}
	if !utils.IsNotFound(err) {
		t.Errorf("expected not-found classification, got %v", err)
	}
}

func TestExecuteWithRetry_ExhaustsRetries(t *testing.T) {
	client := NewClient(nil, 2, 1, nil)
	reqCtx := client.NewRequest(types.RequestTypeListOrSearch)

	calls := 0
	_, err := ExecuteWithRetry(context.Background(), client, reqCtx, func() (int, error) {
		calls++
		return 0, &googleapi.Error{Code: 500}
	})
	if calls != 3 {
		t.Errorf("expected 3 attempts, got %d", calls)
	}
	if utils.KindOf(err) != utils.KindRemoteUnavailable {
		t.Errorf("expected RemoteUnavailable, got %v", utils.KindOf(err))
	}
}

func TestExecuteWithRetry_ContextCancelled(t *testing.T) {
	client := NewClient(nil, 5, 10000, nil)
	reqCtx := client.NewRequest(types.RequestTypeMutation)

	ctx, cancel := context.WithCancel(context.Background())
	_, err := ExecuteWithRetry(ctx, client, reqCtx, func() (int, error) {
		cancel()
		return 0, &googleapi.Error{Code: 503}
	})
	if err == nil {
		t.Fatal("expected an error after cancellation")
	}
}

func TestNewRequestCarriesProfileAndDrive(t *testing.T) {
	client := NewClient(nil, 0, 0, nil, WithProfile("work"), WithDriveID("0AAbc"))
	reqCtx := client.NewRequest(types.RequestTypeMutation)

	if reqCtx.Profile != "work" || reqCtx.DriveID != "0AAbc" {
		t.Errorf("request context = %+v", reqCtx)
	}
	if reqCtx.TraceID == "" {
		t.Error("expected a generated trace ID")
	}
}

func TestRequestShaper_ListAndResourceKeys(t *testing.T) {
	var gotQuery map[string][]string
	var gotHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		gotHeader = r.Header.Get(ResourceKeyHeader)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"files":[]}`))
	}))
	t.Cleanup(srv.Close)

	svc, err := drive.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("drive.NewService() error = %v", err)
	}

	client := NewClient(svc, 0, 1, nil, WithDriveID("shared-1"))
	client.ResourceKeys().AddKey("folder-1", "rk-1", "url")
	shaper := NewRequestShaper(client)

	reqCtx := client.NewRequest(types.RequestTypeListOrSearch)
	reqCtx.InvolvedParentIDs = append(reqCtx.InvolvedParentIDs, "folder-1")

	call := shaper.ShapeFilesList(svc.Files.List().Q("'folder-1' in parents"), reqCtx)
	if _, err := call.Do(); err != nil {
		t.Fatalf("Do() error = %v", err)
	}

	if gotQuery["supportsAllDrives"][0] != "true" {
		t.Errorf("supportsAllDrives = %v", gotQuery["supportsAllDrives"])
	}
	if gotQuery["corpora"][0] != "drive" || gotQuery["driveId"][0] != "shared-1" {
		t.Errorf("drive scoping missing: %v", gotQuery)
	}
	if gotHeader != "folder-1/rk-1" {
		t.Errorf("resource key header = %q", gotHeader)
	}
}

func TestResourceKeyManager_BuildHeader(t *testing.T) {
	m := NewResourceKeyManager()
	m.AddKey("b", "kb", "api")
	m.AddKey("a", "ka", "url")
	m.AddKey("", "ignored", "api")

	if got := m.BuildHeader([]string{"b", "a", "b", "missing"}); got != "a/ka,b/kb" {
		t.Errorf("BuildHeader() = %q", got)
	}

	m.Invalidate("a")
	if _, ok := m.GetKey("a"); ok {
		t.Error("expected key to be invalidated")
	}
	if got := m.BuildHeader([]string{"missing"}); got != "" {
		t.Errorf("BuildHeader() = %q, want empty", got)
	}
}
