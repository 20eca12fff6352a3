package types

// RequestType classifies a Drive API call for logging and error context
type RequestType string

const (
	RequestTypeListOrSearch RequestType = "list_or_search"
	RequestTypeMutation     RequestType = "mutation"
	RequestTypeUpload       RequestType = "upload"
)

// RequestContext carries per-call tracing data through the API client
type RequestContext struct {
	RunID             string
	InvolvedFileIDs   []string
	InvolvedParentIDs []string
	RequestType       RequestType
	TraceID           string
}
