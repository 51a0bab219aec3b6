package commands

import (
	"context"

	"github.com/The127/ioc"

	"github.com/bmakarand2009/studiomedia/internal/middlewares"
	"github.com/bmakarand2009/studiomedia/internal/sessions"
)

// ClearFinishedUploads drops completed and failed sessions from the live
// view. In-flight sessions are never touched.
type ClearFinishedUploads struct{}

type ClearFinishedUploadsResponse struct {
	Removed int
}

func HandleClearFinishedUploads(ctx context.Context, _ ClearFinishedUploads) (*ClearFinishedUploadsResponse, error) {
	scope := middlewares.GetScope(ctx)

	broadcaster := ioc.GetDependency[*sessions.Broadcaster](scope)

	return &ClearFinishedUploadsResponse{
		Removed: broadcaster.ClearFinished(),
	}, nil
}
