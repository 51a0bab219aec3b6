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

type UploadFile struct {
	File       transport.File
	Descriptor media.TransferDescriptor
}

type UploadFileResponse struct {
	Session       sessions.Session
	AssetId       string
	RefreshAssets bool
}

func HandleUploadFile(ctx context.Context, command UploadFile) (*UploadFileResponse, error) {
	scope := middlewares.GetScope(ctx)

	uploadService := ioc.GetDependency[uploader.Service](scope)
	response, err := uploadService.UploadFile(ctx, uploader.UploadFileParams{
		File:       command.File,
		Descriptor: command.Descriptor,
	})
	if err != nil {
		return nil, err
	}

	return &UploadFileResponse{
		Session:       response.Session,
		AssetId:       response.AssetId,
		RefreshAssets: response.RefreshAssets,
	}, nil
}
