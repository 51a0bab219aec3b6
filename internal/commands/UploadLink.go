package commands

import (
	"context"

	"github.com/The127/ioc"

	"github.com/bmakarand2009/studiomedia/internal/media"
	"github.com/bmakarand2009/studiomedia/internal/middlewares"
	"github.com/bmakarand2009/studiomedia/internal/sessions"
	"github.com/bmakarand2009/studiomedia/internal/uploader"
)

type UploadLink struct {
	Descriptor media.TransferDescriptor
}

type UploadLinkResponse struct {
	Session       sessions.Session
	AssetId       string
	RefreshAssets bool
}

func HandleUploadLink(ctx context.Context, command UploadLink) (*UploadLinkResponse, error) {
	scope := middlewares.GetScope(ctx)

	uploadService := ioc.GetDependency[uploader.Service](scope)
	response, err := uploadService.UploadLink(ctx, command.Descriptor)
	if err != nil {
		return nil, err
	}

	return &UploadLinkResponse{
		Session:       response.Session,
		AssetId:       response.AssetId,
		RefreshAssets: response.RefreshAssets,
	}, nil
}
