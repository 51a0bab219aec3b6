package registrar

import (
	"context"
	"fmt"

	"github.com/bmakarand2009/studiomedia/internal/media"
	"github.com/bmakarand2009/studiomedia/internal/services/backendapi"
)

// RemoteReference carries whichever remote identifiers the transfer
// produced; exactly one group is set depending on the media kind.
type RemoteReference struct {
	FileId    string
	Remote    *media.RemoteObject
	CdnObject *media.CdnObject
}

// Service performs the commit phase: it turns successfully transferred
// bytes (or a bare link) into a durable asset record on the backend.
// Commits are never silently retried here; an ambiguous failure surfaces
// to the caller, who may re-issue the call because the backend contract
// guarantees idempotency of registration.
type Service interface {
	Register(ctx context.Context, kind media.Kind, reference RemoteReference, descriptor media.TransferDescriptor) (*backendapi.Asset, error)
}

type service struct {
	backend backendapi.Client
}

func NewService(backend backendapi.Client) Service {
	return &service{
		backend: backend,
	}
}

func (s *service) Register(ctx context.Context, kind media.Kind, reference RemoteReference, descriptor media.TransferDescriptor) (*backendapi.Asset, error) {
	switch kind {
	case media.KindVideo:
		if reference.Remote == nil {
			return nil, fmt.Errorf("video registration requires a remote object reference")
		}
		return s.backend.CommitVideoAsset(ctx, descriptor, *reference.Remote)

	case media.KindFile:
		if reference.FileId == "" {
			return nil, fmt.Errorf("file registration requires a provisional file id")
		}
		return s.backend.FinalizeFileUpload(ctx, reference.FileId, descriptor)

	case media.KindImage:
		if reference.CdnObject == nil {
			return nil, fmt.Errorf("image registration requires a cdn object reference")
		}
		return s.backend.CommitImageAsset(ctx, descriptor, *reference.CdnObject)

	case media.KindLink:
		return s.backend.CommitLinkAsset(ctx, descriptor)

	default:
		return nil, fmt.Errorf("unsupported media kind: %s", kind)
	}
}
