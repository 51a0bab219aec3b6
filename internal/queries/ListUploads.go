package queries

import (
	"context"

	"github.com/The127/ioc"

	"github.com/bmakarand2009/studiomedia/internal/middlewares"
	"github.com/bmakarand2009/studiomedia/internal/sessions"
)

type ListUploads struct{}

type ListUploadsResponse struct {
	Items []sessions.Session
}

func HandleListUploads(ctx context.Context, _ ListUploads) (*ListUploadsResponse, error) {
	scope := middlewares.GetScope(ctx)

	broadcaster := ioc.GetDependency[*sessions.Broadcaster](scope)

	return &ListUploadsResponse{
		Items: broadcaster.Snapshot(),
	}, nil
}
