package dispatch

import (
	"errors"

	"github.com/marioser/dolibarr-mcp/failure"
)

// Configuration errors returned by New.
var (
	ErrNilCatalog  = errors.New("dispatch: catalog is required")
	ErrNilUpstream = errors.New("dispatch: upstream is required")
)

// UnknownOperationCode is the failure code for an operation missing from
// the catalog.
const UnknownOperationCode = "UNKNOWN_TOOL"

// UnknownOperation returns the NotFound failure for name.
func UnknownOperation(name string) *failure.Failure {
	return failure.Newf(failure.NotFound, "Unknown tool: %s", name).
		WithCode(UnknownOperationCode).
		WithDetail("operation", name)
}
