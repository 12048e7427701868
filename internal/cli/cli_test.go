package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/dl-alexandre/drivesync/internal/config"
	"github.com/dl-alexandre/drivesync/internal/types"
	"github.com/dl-alexandre/drivesync/internal/utils"
	"github.com/dl-alexandre/drivesync/pkg/drivesync"
	"github.com/zalando/go-keyring"
)

func newBufferedOutput(format types.OutputFormat) (*OutputWriter, *bytes.Buffer) {
	var buf bytes.Buffer
	out := NewOutputWriter(format, false, false)
	out.writer = &buf
	out.errWriter = &bytes.Buffer{}
	return out, &buf
}

func TestParseFileRef(t *testing.T) {
	tests := []struct {
		arg    string
		byName bool
		want   drivesync.FileRef
	}{
		{"1AbCdEfGhIjKlMnOpQrStUvWxYz", false, drivesync.FileRef{ID: "1AbCdEfGhIjKlMnOpQrStUvWxYz"}},
		{"https://drive.google.com/file/d/abc/view", false, drivesync.FileRef{URL: "https://drive.google.com/file/d/abc/view"}},
		{"report.pdf", false, drivesync.FileRef{Name: "report.pdf"}},
		{"my notes", false, drivesync.FileRef{Name: "my notes"}},
		{"plainname", true, drivesync.FileRef{Name: "plainname"}},
	}
	for _, tt := range tests {
		if got := parseFileRef(tt.arg, tt.byName); got != tt.want {
			t.Errorf("parseFileRef(%q, %v) = %+v, want %+v", tt.arg, tt.byName, got, tt.want)
		}
	}
}

func TestSetConfigValue(t *testing.T) {
	c := config.DefaultConfig()

	if err := setConfigValue(c, "ExcludeExtensions", "log, tmp,,bak"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Join(c.ExcludeExtensions, ",") != "log,tmp,bak" {
		t.Errorf("ExcludeExtensions = %v", c.ExcludeExtensions)
	}

	if err := setConfigValue(c, "makePublic", "false"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.MakePublic {
		t.Error("expected MakePublic to be false")
	}

	if err := setConfigValue(c, "pagesize", "50"); err != nil || c.PageSize != 50 {
		t.Errorf("pagesize: err=%v value=%d", err, c.PageSize)
	}

	for _, bad := range [][2]string{
		{"pagesize", "many"},
		{"usekeyring", "maybe"},
		{"defaultoutputformat", "xml"},
		{"nosuchkey", "x"},
	} {
		if err := setConfigValue(c, bad[0], bad[1]); err == nil {
			t.Errorf("setConfigValue(%q, %q) expected error", bad[0], bad[1])
		}
	}
}

func TestValidateGlobalFlags(t *testing.T) {
	saved := globalFlags
	defer func() { globalFlags = saved }()

	globalFlags = types.GlobalFlags{OutputFormat: "yaml"}
	if err := validateGlobalFlags(); err == nil {
		t.Error("expected error for yaml output")
	}

	globalFlags = types.GlobalFlags{OutputFormat: "table", JSON: true}
	if err := validateGlobalFlags(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if globalFlags.OutputFormat != types.OutputFormatJSON {
		t.Errorf("--json should force json output, got %s", globalFlags.OutputFormat)
	}
}

func TestOutputWriter_JSONEnvelope(t *testing.T) {
	out, buf := newBufferedOutput(types.OutputFormatJSON)
	exitCode = utils.ExitSuccess

	result := &types.OperationResult{Status: false, Message: "Error during file deletion: gone"}
	if err := out.WriteResult("delete", result, result.Status); err != nil {
		t.Fatalf("WriteResult: %v", err)
	}

	var env types.CLIOutput
	if err := json.Unmarshal(buf.Bytes(), &env); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if env.SchemaVersion != utils.SchemaVersion || env.Command != "delete" || env.TraceID == "" {
		t.Errorf("unexpected envelope: %+v", env)
	}
	if len(env.Errors) != 0 {
		t.Errorf("expected no errors, got %v", env.Errors)
	}
	if exitCode != utils.ExitOperationFailed {
		t.Errorf("exitCode = %d, want %d", exitCode, utils.ExitOperationFailed)
	}
}

func TestOutputWriter_WriteFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
		exit int
	}{
		{"app error", utils.InvalidReferenceError("bad url"), utils.ErrCodeInvalidReference, utils.ExitInvalidReference},
		{"plain error", errors.New("boom"), utils.ErrCodeUnknown, utils.ExitUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, buf := newBufferedOutput(types.OutputFormatTable)
			exitCode = utils.ExitSuccess

			if err := out.WriteFailure("pull", tt.err); err != nil {
				t.Fatalf("WriteFailure: %v", err)
			}
			var env types.CLIOutput
			if err := json.Unmarshal(buf.Bytes(), &env); err != nil {
				t.Fatalf("errors must be written as JSON: %v", err)
			}
			if len(env.Errors) != 1 || env.Errors[0].Code != tt.code {
				t.Errorf("errors = %+v, want code %s", env.Errors, tt.code)
			}
			if exitCode != tt.exit {
				t.Errorf("exitCode = %d, want %d", exitCode, tt.exit)
			}
		})
	}
}

func TestOutputWriter_Table(t *testing.T) {
	out, buf := newBufferedOutput(types.OutputFormatTable)

	summary := &types.TreeSummary{Status: true, Succeeded: 1200, Failed: 3, Message: "Drive contents deleted."}
	if err := out.WriteSuccess("wipe", summary); err != nil {
		t.Fatalf("WriteSuccess: %v", err)
	}
	text := buf.String()
	for _, want := range []string{"SUCCEEDED", "1,200", "Drive contents deleted."} {
		if !strings.Contains(text, want) {
			t.Errorf("table output missing %q:\n%s", want, text)
		}
	}

	buf.Reset()
	empty := &types.FolderResult{Status: false, Message: "Folder not found"}
	if err := out.WriteSuccess("pull", empty); err != nil {
		t.Fatalf("WriteSuccess: %v", err)
	}
	if strings.TrimSpace(buf.String()) != "Folder not found" {
		t.Errorf("empty table should print the message, got %q", buf.String())
	}

	buf.Reset()
	if err := out.WriteSuccess("auth.list", map[string]interface{}{"count": 2, "a": "b"}); err != nil {
		t.Fatalf("WriteSuccess: %v", err)
	}
	if strings.Index(buf.String(), "a") > strings.Index(buf.String(), "count") {
		t.Errorf("key/value rows should be sorted:\n%s", buf.String())
	}
}

func runCLI(t *testing.T, args ...string) int {
	t.Helper()
	t.Setenv("DRIVESYNC_CONFIG_DIR", t.TempDir())
	keyring.MockInit()
	globalFlags = types.GlobalFlags{}
	keyFile = ""
	rootCmd.SetArgs(args)
	return Execute()
}

func TestWipeRequiresConfirmation(t *testing.T) {
	if code := runCLI(t, "wipe", "--yes=false", "--quiet"); code != utils.ExitInvalidArgument {
		t.Errorf("exit code = %d, want %d", code, utils.ExitInvalidArgument)
	}
}

func TestCommandsFailWithoutKey(t *testing.T) {
	if code := runCLI(t, "push", t.TempDir(), "--yes=false", "--quiet"); code != utils.ExitAuthRequired {
		t.Errorf("exit code = %d, want %d", code, utils.ExitAuthRequired)
	}
}

func TestAuthStoreKeyRejectsMissingFile(t *testing.T) {
	if code := runCLI(t, "auth", "store-key", "/nonexistent/key.json", "--encrypted-file", "--quiet"); code != utils.ExitLocalIO {
		t.Errorf("exit code = %d, want %d", code, utils.ExitLocalIO)
	}
}
