package uploader

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/bmakarand2009/studiomedia/internal/journal"
	"github.com/bmakarand2009/studiomedia/internal/logging"
	"github.com/bmakarand2009/studiomedia/internal/media"
	"github.com/bmakarand2009/studiomedia/internal/registrar"
	"github.com/bmakarand2009/studiomedia/internal/services/backendapi"
	"github.com/bmakarand2009/studiomedia/internal/services/cdnconfig"
	"github.com/bmakarand2009/studiomedia/internal/services/clock"
	"github.com/bmakarand2009/studiomedia/internal/sessions"
	"github.com/bmakarand2009/studiomedia/internal/transport"
	"github.com/bmakarand2009/studiomedia/internal/utils/apiError"
)

type UploadVideoParams struct {
	File       transport.File
	Descriptor media.TransferDescriptor
}

type UploadFileParams struct {
	File       transport.File
	Descriptor media.TransferDescriptor
}

type UploadImageParams struct {
	File       transport.File
	Descriptor media.TransferDescriptor

	// Managed selects whether the image becomes a backend asset after the
	// CDN transfer. Unmanaged images only exist on the CDN and the object
	// reference is returned to the caller directly.
	Managed bool
}

type UploadResponse struct {
	Session sessions.Session
	AssetId string

	// RefreshAssets tells the caller the authoritative asset list changed
	// and must be re-queried. The orchestrator never materializes that
	// list itself.
	RefreshAssets bool
}

type UploadImageResponse struct {
	Session       sessions.Session
	AssetId       string
	CdnObject     *media.CdnObject
	RefreshAssets bool
}

// Service is the public entry point of the upload subsystem. Every entry
// point registers the session with the broadcaster before any I/O, so
// observers see the Uploading state immediately, and leaves the session
// in a terminal state on return.
type Service interface {
	UploadVideo(ctx context.Context, params UploadVideoParams) (*UploadResponse, error)
	UploadFile(ctx context.Context, params UploadFileParams) (*UploadResponse, error)
	UploadImage(ctx context.Context, params UploadImageParams) (*UploadImageResponse, error)
	UploadLink(ctx context.Context, descriptor media.TransferDescriptor) (*UploadResponse, error)

	DeleteAsset(ctx context.Context, assetId string) error
}

type service struct {
	broadcaster  *sessions.Broadcaster
	backend      backendapi.Client
	registrar    registrar.Service
	resumable    *transport.Resumable
	direct       *transport.Direct
	cdn          cdnconfig.Provider
	journalStore journal.Store
	clockService clock.Service

	// nil means no concurrency cap
	semaphore chan struct{}
}

func NewService(
	broadcaster *sessions.Broadcaster,
	backend backendapi.Client,
	registrarService registrar.Service,
	resumable *transport.Resumable,
	direct *transport.Direct,
	cdn cdnconfig.Provider,
	journalStore journal.Store,
	clockService clock.Service,
	maxConcurrent int,
) Service {
	var semaphore chan struct{}
	if maxConcurrent > 0 {
		semaphore = make(chan struct{}, maxConcurrent)
	}

	return &service{
		broadcaster:  broadcaster,
		backend:      backend,
		registrar:    registrarService,
		resumable:    resumable,
		direct:       direct,
		cdn:          cdn,
		journalStore: journalStore,
		clockService: clockService,
		semaphore:    semaphore,
	}
}

func (s *service) UploadVideo(ctx context.Context, params UploadVideoParams) (*UploadResponse, error) {
	fingerprint, err := transport.Fingerprint(params.File)
	if err != nil {
		return nil, fmt.Errorf("failed to fingerprint file: %w", err)
	}

	session := s.broadcaster.Register(media.KindVideo, params.Descriptor.Filename, fingerprint)

	err = s.acquire(ctx)
	if err != nil {
		return nil, s.fail(ctx, session.Id, err, false)
	}
	defer s.release()

	credentials, err := s.backend.NegotiateVideoUpload(ctx, params.Descriptor.Filename)
	if err != nil {
		return nil, s.fail(ctx, session.Id, fmt.Errorf("%w: %s", apiError.ErrNegotiation, err), false)
	}

	handle, err := s.resumable.Upload(ctx, credentials, params.File, s.progressFn(session.Id))
	if handle != "" {
		if handleErr := s.broadcaster.SetTransportHandle(session.Id, handle); handleErr != nil {
			logging.Logger.Warnf("failed to record transport handle: %s", handleErr)
		}
	}
	if err != nil {
		return nil, s.fail(ctx, session.Id, fmt.Errorf("%w: %s", apiError.ErrTransfer, err), false)
	}

	asset, err := s.registrar.Register(ctx, media.KindVideo, registrar.RemoteReference{
		Remote: &media.RemoteObject{
			RemoteObjectId: credentials.RemoteObjectId,
			ContainerId:    credentials.ContainerId,
		},
	}, params.Descriptor)
	if err != nil {
		// bytes made it to remote storage, only the commit is missing
		return nil, s.fail(ctx, session.Id, fmt.Errorf("%w: %s", apiError.ErrRegistration, err), true)
	}

	return s.complete(ctx, session.Id, asset.Id)
}

func (s *service) UploadFile(ctx context.Context, params UploadFileParams) (*UploadResponse, error) {
	session := s.broadcaster.Register(media.KindFile, params.Descriptor.Filename, "")

	err := s.acquire(ctx)
	if err != nil {
		return nil, s.fail(ctx, session.Id, err, false)
	}
	defer s.release()

	negotiation, err := s.backend.NegotiateFileUpload(ctx, params.Descriptor)
	if err != nil {
		return nil, s.fail(ctx, session.Id, fmt.Errorf("%w: %s", apiError.ErrNegotiation, err), false)
	}

	err = s.direct.PutSignedUrl(ctx, negotiation.SignedUrl, params.File, s.progressFn(session.Id))
	if err != nil {
		return nil, s.fail(ctx, session.Id, fmt.Errorf("%w: %s", apiError.ErrTransfer, err), false)
	}

	asset, err := s.registrar.Register(ctx, media.KindFile, registrar.RemoteReference{
		FileId: negotiation.FileId,
	}, params.Descriptor)
	if err != nil {
		return nil, s.fail(ctx, session.Id, fmt.Errorf("%w: %s", apiError.ErrRegistration, err), true)
	}

	return s.complete(ctx, session.Id, asset.Id)
}

func (s *service) UploadImage(ctx context.Context, params UploadImageParams) (*UploadImageResponse, error) {
	session := s.broadcaster.Register(media.KindImage, params.Descriptor.Filename, "")

	// resolving the cdn configuration is local, a missing cloud
	// identifier fails the session before any network call
	settings, err := s.cdn.Resolve(ctx)
	if err != nil {
		return nil, s.fail(ctx, session.Id, err, false)
	}

	err = s.acquire(ctx)
	if err != nil {
		return nil, s.fail(ctx, session.Id, err, false)
	}
	defer s.release()

	object, err := s.direct.PostCdnMultipart(ctx, settings, params.File, s.progressFn(session.Id))
	if err != nil {
		return nil, s.fail(ctx, session.Id, fmt.Errorf("%w: %s", apiError.ErrTransfer, err), false)
	}

	if !params.Managed {
		completeErr := s.broadcaster.Complete(session.Id)
		if completeErr != nil {
			return nil, completeErr
		}
		s.record(ctx, session.Id, "", true)

		final, _ := s.broadcaster.Get(session.Id)
		return &UploadImageResponse{
			Session:       final,
			CdnObject:     object,
			RefreshAssets: false,
		}, nil
	}

	asset, err := s.registrar.Register(ctx, media.KindImage, registrar.RemoteReference{
		CdnObject: object,
	}, params.Descriptor)
	if err != nil {
		return nil, s.fail(ctx, session.Id, fmt.Errorf("%w: %s", apiError.ErrRegistration, err), true)
	}

	completeErr := s.broadcaster.Complete(session.Id)
	if completeErr != nil {
		return nil, completeErr
	}
	s.record(ctx, session.Id, asset.Id, true)

	final, _ := s.broadcaster.Get(session.Id)
	return &UploadImageResponse{
		Session:       final,
		AssetId:       asset.Id,
		CdnObject:     object,
		RefreshAssets: true,
	}, nil
}

func (s *service) UploadLink(ctx context.Context, descriptor media.TransferDescriptor) (*UploadResponse, error) {
	session := s.broadcaster.Register(media.KindLink, descriptor.Filename, "")

	asset, err := s.registrar.Register(ctx, media.KindLink, registrar.RemoteReference{}, descriptor)
	if err != nil {
		return nil, s.fail(ctx, session.Id, fmt.Errorf("%w: %s", apiError.ErrRegistration, err), false)
	}

	return s.complete(ctx, session.Id, asset.Id)
}

func (s *service) DeleteAsset(ctx context.Context, assetId string) error {
	return s.backend.DeleteAsset(ctx, assetId)
}

func (s *service) progressFn(sessionId uuid.UUID) transport.ProgressFn {
	return func(progress int) {
		err := s.broadcaster.UpdateProgress(sessionId, progress)
		if err != nil {
			logging.Logger.Warnf("failed to update progress for session %s: %s", sessionId, err)
		}
	}
}

func (s *service) acquire(ctx context.Context) error {
	if s.semaphore == nil {
		return nil
	}

	select {
	case s.semaphore <- struct{}{}:
		return nil

	case <-ctx.Done():
		return fmt.Errorf("waiting for transfer slot: %w", ctx.Err())
	}
}

func (s *service) release() {
	if s.semaphore == nil {
		return
	}
	<-s.semaphore
}

// fail moves the session to its terminal Failed state, journals the
// outcome and returns the causing error so the immediate caller gets a
// rejected outcome in addition to the broadcast.
func (s *service) fail(ctx context.Context, sessionId uuid.UUID, cause error, bytesAcked bool) error {
	err := s.broadcaster.Fail(sessionId, cause.Error())
	if err != nil {
		logging.Logger.Errorf("failed to mark session %s as failed: %s", sessionId, err)
	}

	s.record(ctx, sessionId, "", bytesAcked)
	return cause
}

func (s *service) complete(ctx context.Context, sessionId uuid.UUID, assetId string) (*UploadResponse, error) {
	err := s.broadcaster.Complete(sessionId)
	if err != nil {
		return nil, err
	}

	s.record(ctx, sessionId, assetId, true)

	final, _ := s.broadcaster.Get(sessionId)
	return &UploadResponse{
		Session:       final,
		AssetId:       assetId,
		RefreshAssets: true,
	}, nil
}

func (s *service) record(ctx context.Context, sessionId uuid.UUID, assetId string, bytesAcked bool) {
	session, ok := s.broadcaster.Get(sessionId)
	if !ok {
		return
	}

	err := s.journalStore.Append(ctx, journal.Entry{
		Id:         uuid.New(),
		SessionId:  session.Id,
		Kind:       session.Kind,
		Filename:   session.Filename,
		Status:     session.Status,
		AssetId:    assetId,
		BytesAcked: bytesAcked,
		Reason:     session.Reason,
		RecordedAt: s.clockService.Now(),
	})
	if err != nil {
		logging.Logger.Warnf("failed to journal session %s: %s", sessionId, err)
	}
}
