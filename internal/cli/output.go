package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/dl-alexandre/drivesync/internal/types"
	"github.com/dl-alexandre/drivesync/internal/utils"
	"github.com/dl-alexandre/drivesync/pkg/drivesync"
	"github.com/google/uuid"
	"github.com/olekukonko/tablewriter"
)

// OutputWriter handles CLI output formatting
type OutputWriter struct {
	format    types.OutputFormat
	quiet     bool
	verbose   bool
	writer    io.Writer
	errWriter io.Writer
	warnings  []types.CLIWarning
}

// NewOutputWriter creates a new output writer on stdout and stderr
func NewOutputWriter(format types.OutputFormat, quiet, verbose bool) *OutputWriter {
	return &OutputWriter{
		format:    format,
		quiet:     quiet,
		verbose:   verbose,
		writer:    os.Stdout,
		errWriter: os.Stderr,
		warnings:  []types.CLIWarning{},
	}
}

func newOutput() *OutputWriter {
	return NewOutputWriter(globalFlags.OutputFormat, globalFlags.Quiet, globalFlags.Verbose)
}

// AddWarning adds a warning to the output
func (w *OutputWriter) AddWarning(code, message, severity string) {
	w.warnings = append(w.warnings, types.CLIWarning{
		Code:     code,
		Message:  message,
		Severity: severity,
	})
}

// WriteSuccess writes a successful result
func (w *OutputWriter) WriteSuccess(command string, data interface{}) error {
	output := types.CLIOutput{
		SchemaVersion: utils.SchemaVersion,
		TraceID:       uuid.New().String(),
		Command:       command,
		Data:          data,
		Warnings:      w.warnings,
		Errors:        []types.CLIError{},
	}

	if w.format == types.OutputFormatJSON {
		return w.writeJSON(output)
	}
	return w.writeTable(data)
}

// WriteResult writes a result that carries its own status flag. A false
// status sets the operation-failed exit code.
func (w *OutputWriter) WriteResult(command string, data interface{}, ok bool) error {
	if !ok {
		exitCode = utils.ExitOperationFailed
	}
	return w.WriteSuccess(command, data)
}

// WriteError writes an error result and sets the exit code for its code.
// Errors are always written as JSON.
func (w *OutputWriter) WriteError(command string, cliErr types.CLIError) error {
	exitCode = utils.GetExitCode(cliErr.Code)
	output := types.CLIOutput{
		SchemaVersion: utils.SchemaVersion,
		TraceID:       uuid.New().String(),
		Command:       command,
		Data:          nil,
		Warnings:      w.warnings,
		Errors:        []types.CLIError{cliErr},
	}

	return w.writeJSON(output)
}

// WriteFailure writes err, keeping its code when it is an AppError
func (w *OutputWriter) WriteFailure(command string, err error) error {
	var appErr *utils.AppError
	if errors.As(err, &appErr) {
		return w.WriteError(command, appErr.CLIError)
	}
	return w.WriteError(command, utils.NewCLIError(utils.ErrCodeUnknown, err.Error()).Build())
}

func (w *OutputWriter) writeJSON(output types.CLIOutput) error {
	encoder := json.NewEncoder(w.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

func (w *OutputWriter) writeTable(data interface{}) error {
	if len(w.warnings) > 0 && !w.quiet {
		for _, warning := range w.warnings {
			fmt.Fprintf(w.errWriter, "Warning [%s]: %s\n", warning.Code, warning.Message)
		}
	}

	if renderer, ok := data.(types.TableRenderer); ok {
		return w.renderTable(renderer)
	}
	switch v := data.(type) {
	case map[string]interface{}:
		return w.writeKeyValueTable(v)
	default:
		return w.writeJSON(types.CLIOutput{
			SchemaVersion: utils.SchemaVersion,
			TraceID:       uuid.New().String(),
			Command:       "unknown",
			Data:          data,
			Warnings:      w.warnings,
			Errors:        []types.CLIError{},
		})
	}
}

func (w *OutputWriter) renderTable(renderer types.TableRenderer) error {
	rows := renderer.Rows()
	if len(rows) == 0 {
		if !w.quiet {
			fmt.Fprintln(w.writer, renderer.EmptyMessage())
		}
		return nil
	}

	table := newTable(w.writer, renderer.Headers())
	for _, row := range rows {
		table.Append(row)
	}
	table.Render()
	return nil
}

func (w *OutputWriter) writeKeyValueTable(data map[string]interface{}) error {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	table := newTable(w.writer, []string{"Key", "Value"})
	for _, k := range keys {
		table.Append([]string{k, fmt.Sprintf("%v", data[k])})
	}
	table.Render()
	return nil
}

func newTable(out io.Writer, headers []string) *tablewriter.Table {
	table := tablewriter.NewWriter(out)
	table.SetHeader(headers)
	table.SetBorder(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetTablePadding("\t")
	table.SetNoWhiteSpace(true)
	return table
}

// Log writes to stderr if not quiet
func (w *OutputWriter) Log(format string, args ...interface{}) {
	if !w.quiet {
		fmt.Fprintf(w.errWriter, format+"\n", args...)
	}
}

// Verbose writes to stderr if verbose is enabled
func (w *OutputWriter) Verbose(format string, args ...interface{}) {
	if w.verbose {
		fmt.Fprintf(w.errWriter, "[VERBOSE] "+format+"\n", args...)
	}
}

// FolderProgress reports finished files of a tree transfer on stderr
func (w *OutputWriter) FolderProgress() drivesync.ProgressFunc {
	if w.quiet {
		return nil
	}
	return func(path string, percent float64) {
		if percent >= 100 {
			w.Log("Transferred %s", path)
			return
		}
		w.Verbose("%s %.0f%%", path, percent)
	}
}

// FileProgress reports single-file progress on stderr in verbose mode
func (w *OutputWriter) FileProgress(name string) types.ProgressFunc {
	if !w.verbose {
		return nil
	}
	return func(percent float64) {
		w.Verbose("%s %.0f%%", name, percent)
	}
}
