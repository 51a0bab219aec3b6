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

type UploadImage struct {
	File       transport.File
	Descriptor media.TransferDescriptor
	Managed    bool
}

type UploadImageResponse struct {
	Session       sessions.Session
	AssetId       string
	CdnObject     *media.CdnObject
	RefreshAssets bool
}

func HandleUploadImage(ctx context.Context, command UploadImage) (*UploadImageResponse, error) {
	scope := middlewares.GetScope(ctx)

	uploadService := ioc.GetDependency[uploader.Service](scope)
	response, err := uploadService.UploadImage(ctx, uploader.UploadImageParams{
		File:       command.File,
		Descriptor: command.Descriptor,
		Managed:    command.Managed,
	})
	if err != nil {
		return nil, err
	}

	return &UploadImageResponse{
		Session:       response.Session,
		AssetId:       response.AssetId,
		CdnObject:     response.CdnObject,
		RefreshAssets: response.RefreshAssets,
	}, nil
}
