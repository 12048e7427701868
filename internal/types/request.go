package types

// RequestType categorizes an API call for logging and error context
type RequestType string

const (
	RequestTypeGetByID          RequestType = "GetByID"
	RequestTypeListOrSearch     RequestType = "ListOrSearch"
	RequestTypeDownloadOrExport RequestType = "DownloadOrExport"
	RequestTypeMutation         RequestType = "Mutation"
	RequestTypePermissionOp     RequestType = "PermissionOp"
)

// RequestContext carries per-operation metadata through the API layer
type RequestContext struct {
	Profile           string      `json:"profile"`
	DriveID           string      `json:"driveId,omitempty"`
	InvolvedFileIDs   []string    `json:"involvedFileIds"`
	InvolvedParentIDs []string    `json:"involvedParentIds"`
	RequestType       RequestType `json:"requestType"`
	TraceID           string      `json:"traceId"`
}

// CLIError is the stable, serializable error shape
type CLIError struct {
	Code        string                 `json:"code"`
	HTTPStatus  int                    `json:"httpStatus,omitempty"`
	Message     string                 `json:"message"`
	DriveReason string                 `json:"driveReason,omitempty"`
	Retryable   bool                   `json:"retryable"`
	Context     map[string]interface{} `json:"context,omitempty"`
}

// CLIWarning is a non-fatal condition reported alongside output
type CLIWarning struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Severity string `json:"severity"`
}

// CLIOutput is the JSON envelope written by the CLI
type CLIOutput struct {
	SchemaVersion string       `json:"schemaVersion"`
	TraceID       string       `json:"traceId"`
	Command       string       `json:"command"`
	Data          interface{}  `json:"data"`
	Warnings      []CLIWarning `json:"warnings"`
	Errors        []CLIError   `json:"errors"`
}

// OutputFormat selects how CLI results are rendered
type OutputFormat string

const (
	OutputFormatJSON  OutputFormat = "json"
	OutputFormatTable OutputFormat = "table"
)

// GlobalFlags are the persistent CLI flags
type GlobalFlags struct {
	Profile      string
	DriveID      string
	OutputFormat OutputFormat
	Quiet        bool
	Verbose      bool
	Debug        bool
	Config       string
	LogFile      string
	Yes          bool
	JSON         bool
}
