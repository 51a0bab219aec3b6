package commands

import (
	"context"

	"github.com/The127/ioc"

	"github.com/bmakarand2009/studiomedia/internal/media"
	"github.com/bmakarand2009/studiomedia/internal/middlewares"
	"github.com/bmakarand2009/studiomedia/internal/sessions"
	"github.com/bmakarand2009/studiomedia/internal/transport"
	"github.com/bmakarand2009/studiomedia/internal/uploader"
)

type UploadVideo struct {
	File       transport.File
	Descriptor media.TransferDescriptor
}

type UploadVideoResponse struct {
	Session       sessions.Session
	AssetId       string
	RefreshAssets bool
}

func HandleUploadVideo(ctx context.Context, command UploadVideo) (*UploadVideoResponse, error) {
	scope := middlewares.GetScope(ctx)

	uploadService := ioc.GetDependency[uploader.Service](scope)
	response, err := uploadService.UploadVideo(ctx, uploader.UploadVideoParams{
		File:       command.File,
		Descriptor: command.Descriptor,
	})
	if err != nil {
		return nil, err
	}

	return &UploadVideoResponse{
		Session:       response.Session,
		AssetId:       response.AssetId,
		RefreshAssets: response.RefreshAssets,
	}, nil
}
