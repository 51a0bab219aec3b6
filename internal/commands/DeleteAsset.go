package commands

import (
	"context"
	"fmt"

	"github.com/The127/ioc"

	"github.com/bmakarand2009/studiomedia/internal/middlewares"
	"github.com/bmakarand2009/studiomedia/internal/uploader"
)

type DeleteAsset struct {
	AssetId string
}

type DeleteAssetResponse struct{}

func HandleDeleteAsset(ctx context.Context, command DeleteAsset) (*DeleteAssetResponse, error) {
	scope := middlewares.GetScope(ctx)

	uploadService := ioc.GetDependency[uploader.Service](scope)
	err := uploadService.DeleteAsset(ctx, command.AssetId)
	if err != nil {
		return nil, fmt.Errorf("failed to delete asset: %w", err)
	}

	return &DeleteAssetResponse{}, nil
}
