package uploader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"github.com/bmakarand2009/studiomedia/internal/backoff"
	"github.com/bmakarand2009/studiomedia/internal/config"
	"github.com/bmakarand2009/studiomedia/internal/journal"
	"github.com/bmakarand2009/studiomedia/internal/logging"
	"github.com/bmakarand2009/studiomedia/internal/media"
	"github.com/bmakarand2009/studiomedia/internal/registrar"
	"github.com/bmakarand2009/studiomedia/internal/services/backendapi"
	"github.com/bmakarand2009/studiomedia/internal/services/cdnconfig"
	"github.com/bmakarand2009/studiomedia/internal/services/clock"
	"github.com/bmakarand2009/studiomedia/internal/services/kv"
	"github.com/bmakarand2009/studiomedia/internal/sessions"
	"github.com/bmakarand2009/studiomedia/internal/transport"
	"github.com/bmakarand2009/studiomedia/internal/utils/apiError"
)

type fakeBackend struct {
	negotiateFile func(ctx context.Context, descriptor media.TransferDescriptor) (*backendapi.FileNegotiation, error)
	finalizeFile  func(ctx context.Context, fileId string, descriptor media.TransferDescriptor) (*backendapi.Asset, error)
	negotiateVid  func(ctx context.Context, title string) (*backendapi.ResumableCredentials, error)
	commitVideo   func(ctx context.Context, descriptor media.TransferDescriptor, remote media.RemoteObject) (*backendapi.Asset, error)
	commitLink    func(ctx context.Context, descriptor media.TransferDescriptor) (*backendapi.Asset, error)
	commitImage   func(ctx context.Context, descriptor media.TransferDescriptor, object media.CdnObject) (*backendapi.Asset, error)
	deleteAsset   func(ctx context.Context, assetId string) error
	calls         atomic.Int64
}

func (f *fakeBackend) NegotiateFileUpload(ctx context.Context, descriptor media.TransferDescriptor) (*backendapi.FileNegotiation, error) {
	f.calls.Add(1)
	if f.negotiateFile == nil {
		return nil, fmt.Errorf("unexpected call")
	}
	return f.negotiateFile(ctx, descriptor)
}

func (f *fakeBackend) FinalizeFileUpload(ctx context.Context, fileId string, descriptor media.TransferDescriptor) (*backendapi.Asset, error) {
	f.calls.Add(1)
	if f.finalizeFile == nil {
		return nil, fmt.Errorf("unexpected call")
	}
	return f.finalizeFile(ctx, fileId, descriptor)
}

func (f *fakeBackend) NegotiateVideoUpload(ctx context.Context, title string) (*backendapi.ResumableCredentials, error) {
	f.calls.Add(1)
	if f.negotiateVid == nil {
		return nil, fmt.Errorf("unexpected call")
	}
	return f.negotiateVid(ctx, title)
}

func (f *fakeBackend) CommitVideoAsset(ctx context.Context, descriptor media.TransferDescriptor, remote media.RemoteObject) (*backendapi.Asset, error) {
	f.calls.Add(1)
	if f.commitVideo == nil {
		return nil, fmt.Errorf("unexpected call")
	}
	return f.commitVideo(ctx, descriptor, remote)
}

func (f *fakeBackend) CommitLinkAsset(ctx context.Context, descriptor media.TransferDescriptor) (*backendapi.Asset, error) {
	f.calls.Add(1)
	if f.commitLink == nil {
		return nil, fmt.Errorf("unexpected call")
	}
	return f.commitLink(ctx, descriptor)
}

func (f *fakeBackend) CommitImageAsset(ctx context.Context, descriptor media.TransferDescriptor, object media.CdnObject) (*backendapi.Asset, error) {
	f.calls.Add(1)
	if f.commitImage == nil {
		return nil, fmt.Errorf("unexpected call")
	}
	return f.commitImage(ctx, descriptor, object)
}

func (f *fakeBackend) DeleteAsset(ctx context.Context, assetId string) error {
	f.calls.Add(1)
	if f.deleteAsset == nil {
		return fmt.Errorf("unexpected call")
	}
	return f.deleteAsset(ctx, assetId)
}

// tusServer accepts resumable uploads and can be told to reject chunk
// appends at a given offset forever.
type tusServer struct {
	mu      sync.Mutex
	uploads map[string][]byte
	nextId  int
	stuckAt int64 // -1 disables failure injection
}

func newTusServer() *tusServer {
	return &tusServer{uploads: make(map[string][]byte), stuckAt: -1}
}

func (t *tusServer) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.mu.Lock()
		defer t.mu.Unlock()

		switch r.Method {
		case http.MethodPost:
			t.nextId++
			id := fmt.Sprintf("v-%d", t.nextId)
			t.uploads[id] = []byte{}
			w.Header().Set("Location", "/vod/"+id)
			w.WriteHeader(http.StatusCreated)

		case http.MethodHead:
			id := r.URL.Path[len("/vod/"):]
			data, ok := t.uploads[id]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.Header().Set("Upload-Offset", strconv.Itoa(len(data)))
			w.WriteHeader(http.StatusOK)

		case http.MethodPatch:
			id := r.URL.Path[len("/vod/"):]
			data := t.uploads[id]
			offset, _ := strconv.ParseInt(r.Header.Get("Upload-Offset"), 10, 64)
			if t.stuckAt >= 0 && offset >= t.stuckAt {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			chunk, _ := io.ReadAll(r.Body)
			t.uploads[id] = append(data, chunk...)
			w.Header().Set("Upload-Offset", strconv.Itoa(len(t.uploads[id])))
			w.WriteHeader(http.StatusNoContent)

		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
}

type UploaderTestSuite struct {
	suite.Suite
	backend      *fakeBackend
	broadcaster  *sessions.Broadcaster
	journalStore journal.Store
	clock        clock.Service
	tus          *tusServer
	tusHttp      *httptest.Server
	cdnHttp      *httptest.Server
	cdnHits      atomic.Int64
}

func TestUploaderTestSuite(t *testing.T) {
	t.Parallel()
	suite.Run(t, new(UploaderTestSuite))
}

func (s *UploaderTestSuite) SetupSuite() {
	logging.Logger = zap.NewNop().Sugar()
}

func (s *UploaderTestSuite) SetupTest() {
	s.backend = &fakeBackend{}
	s.broadcaster = sessions.NewBroadcaster()
	s.clock, _ = clock.NewMockService(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	journalStore, err := journal.NewMemoryStore()
	s.Require().NoError(err)
	s.journalStore = journalStore

	s.tus = newTusServer()
	s.tusHttp = httptest.NewServer(s.tus.handler())

	s.cdnHits.Store(0)
	s.cdnHttp = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.cdnHits.Add(1)
		s.NoError(r.ParseMultipartForm(1 << 20))
		response := map[string]string{
			"public_id":  "folder/picture",
			"secure_url": "https://cdn.example.com/folder/picture.png",
			"folder":     "folder",
		}
		w.Header().Set("Content-Type", "application/json")
		s.NoError(json.NewEncoder(w).Encode(response))
	}))
}

func (s *UploaderTestSuite) TearDownTest() {
	s.tusHttp.Close()
	s.cdnHttp.Close()
}

func (s *UploaderTestSuite) newService(cdnConfig config.CdnConfig) Service {
	resumable := transport.NewResumable(http.DefaultClient, kv.NewMemoryStore(), backoff.NewFixedSchedule(nil), s.clock, 4)
	direct := transport.NewDirect(http.DefaultClient)

	return NewService(
		s.broadcaster,
		s.backend,
		registrar.NewService(s.backend),
		resumable,
		direct,
		cdnconfig.NewProvider(cdnConfig),
		s.journalStore,
		s.clock,
		0,
	)
}

func (s *UploaderTestSuite) cdnConfig() config.CdnConfig {
	return config.CdnConfig{
		UploadUrl:    s.cdnHttp.URL,
		CloudName:    "studio",
		UploadPreset: "unsigned",
		Folder:       "folder",
	}
}

func (s *UploaderTestSuite) file(name string, content []byte) transport.File {
	return transport.File{
		Name:    name,
		Size:    int64(len(content)),
		ModTime: time.Date(2025, 5, 30, 8, 0, 0, 0, time.UTC),
		Content: bytes.NewReader(content),
	}
}

func (s *UploaderTestSuite) credentials() *backendapi.ResumableCredentials {
	return &backendapi.ResumableCredentials{
		RemoteObjectId:         "object-1",
		ContainerId:            "container-1",
		TransferEndpoint:       s.tusHttp.URL + "/vod/",
		AuthorizationSignature: "sig",
		ExpirationTime:         s.clock.Now().Add(time.Hour),
	}
}

func (s *UploaderTestSuite) descriptor(kind media.Kind, filename string) media.TransferDescriptor {
	return media.TransferDescriptor{
		Kind:      kind,
		Filename:  filename,
		ProductId: "product-1",
		ModuleId:  "module-1",
	}
}

func (s *UploaderTestSuite) journalEntries() []journal.Entry {
	entries, err := s.journalStore.List(context.Background())
	s.Require().NoError(err)
	return entries
}

func (s *UploaderTestSuite) TestVideoUploadCompletesAfterCommit() {
	// arrange
	content := []byte("twenty bytes of data")
	committed := false
	s.backend.negotiateVid = func(_ context.Context, _ string) (*backendapi.ResumableCredentials, error) {
		return s.credentials(), nil
	}
	s.backend.commitVideo = func(_ context.Context, _ media.TransferDescriptor, remote media.RemoteObject) (*backendapi.Asset, error) {
		s.Equal("object-1", remote.RemoteObjectId)
		committed = true
		return &backendapi.Asset{Id: "asset-1"}, nil
	}

	var observed []sessions.Session
	s.broadcaster.Subscribe(func(snapshot []sessions.Session) {
		observed = append(observed, snapshot[0])
	})

	uploadService := s.newService(config.CdnConfig{})

	// act
	response, err := uploadService.UploadVideo(context.Background(), UploadVideoParams{
		File:       s.file("clip.mp4", content),
		Descriptor: s.descriptor(media.KindVideo, "clip.mp4"),
	})

	// assert
	s.NoError(err)
	s.True(committed)
	s.Equal("asset-1", response.AssetId)
	s.True(response.RefreshAssets)
	s.Equal(sessions.StatusCompleted, response.Session.Status)
	s.Equal(100, response.Session.Progress)
	s.Equal(content, s.tus.uploads["v-1"])

	// progress never decreases and full progress only appears completed
	previous := 0
	for _, session := range observed {
		s.GreaterOrEqual(session.Progress, previous)
		previous = session.Progress
		if session.Progress == 100 {
			s.Equal(sessions.StatusCompleted, session.Status)
		}
	}

	entries := s.journalEntries()
	s.Require().Len(entries, 1)
	s.Equal(sessions.StatusCompleted, entries[0].Status)
	s.Equal("asset-1", entries[0].AssetId)
	s.True(entries[0].BytesAcked)
}

func (s *UploaderTestSuite) TestVideoTransferFailureSetsSentinelProgress() {
	// arrange
	content := []byte("twenty bytes of data")
	s.tus.stuckAt = 8
	s.backend.negotiateVid = func(_ context.Context, _ string) (*backendapi.ResumableCredentials, error) {
		return s.credentials(), nil
	}

	uploadService := s.newService(config.CdnConfig{})

	// act
	_, err := uploadService.UploadVideo(context.Background(), UploadVideoParams{
		File:       s.file("clip.mp4", content),
		Descriptor: s.descriptor(media.KindVideo, "clip.mp4"),
	})

	// assert
	s.ErrorIs(err, apiError.ErrTransfer)

	snapshot := s.broadcaster.Snapshot()
	s.Require().Len(snapshot, 1)
	s.Equal(sessions.StatusFailed, snapshot[0].Status)
	s.Equal(sessions.ProgressFailed, snapshot[0].Progress)

	entries := s.journalEntries()
	s.Require().Len(entries, 1)
	s.Equal(sessions.StatusFailed, entries[0].Status)
	s.False(entries[0].BytesAcked)
}

func (s *UploaderTestSuite) TestImageUploadWithoutCdnConfigFailsBeforeAnyCall() {
	// arrange
	uploadService := s.newService(config.CdnConfig{})

	// act
	_, err := uploadService.UploadImage(context.Background(), UploadImageParams{
		File:       s.file("picture.png", []byte("png bytes")),
		Descriptor: s.descriptor(media.KindImage, "picture.png"),
		Managed:    true,
	})

	// assert
	s.ErrorIs(err, apiError.ErrConfiguration)
	s.Equal(int64(0), s.backend.calls.Load())
	s.Equal(int64(0), s.cdnHits.Load())

	snapshot := s.broadcaster.Snapshot()
	s.Require().Len(snapshot, 1)
	s.Equal(sessions.StatusFailed, snapshot[0].Status)
	s.Equal(sessions.ProgressFailed, snapshot[0].Progress)
}

func (s *UploaderTestSuite) TestFileFinalizeFailureAfterAckedBytes() {
	// arrange
	storage := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer storage.Close()

	s.backend.negotiateFile = func(_ context.Context, _ media.TransferDescriptor) (*backendapi.FileNegotiation, error) {
		return &backendapi.FileNegotiation{FileId: "file-1", SignedUrl: storage.URL + "/blob"}, nil
	}
	s.backend.finalizeFile = func(_ context.Context, _ string, _ media.TransferDescriptor) (*backendapi.Asset, error) {
		return nil, fmt.Errorf("backend rejected the finalize call")
	}

	uploadService := s.newService(config.CdnConfig{})

	// act
	_, err := uploadService.UploadFile(context.Background(), UploadFileParams{
		File:       s.file("handout.pdf", []byte("pdf bytes")),
		Descriptor: s.descriptor(media.KindFile, "handout.pdf"),
	})

	// assert
	s.ErrorIs(err, apiError.ErrRegistration)

	snapshot := s.broadcaster.Snapshot()
	s.Require().Len(snapshot, 1)
	s.Equal(sessions.StatusFailed, snapshot[0].Status)

	// the bytes made it, only the commit failed
	entries := s.journalEntries()
	s.Require().Len(entries, 1)
	s.True(entries[0].BytesAcked)
	s.Equal(sessions.StatusFailed, entries[0].Status)
}

func (s *UploaderTestSuite) TestFileUploadCompletes() {
	// arrange
	var received []byte
	storage := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer storage.Close()

	s.backend.negotiateFile = func(_ context.Context, _ media.TransferDescriptor) (*backendapi.FileNegotiation, error) {
		return &backendapi.FileNegotiation{FileId: "file-1", SignedUrl: storage.URL + "/blob"}, nil
	}
	s.backend.finalizeFile = func(_ context.Context, fileId string, _ media.TransferDescriptor) (*backendapi.Asset, error) {
		s.Equal("file-1", fileId)
		return &backendapi.Asset{Id: "asset-2"}, nil
	}

	uploadService := s.newService(config.CdnConfig{})

	// act
	response, err := uploadService.UploadFile(context.Background(), UploadFileParams{
		File:       s.file("handout.pdf", []byte("pdf bytes")),
		Descriptor: s.descriptor(media.KindFile, "handout.pdf"),
	})

	// assert
	s.NoError(err)
	s.Equal([]byte("pdf bytes"), received)
	s.Equal("asset-2", response.AssetId)
	s.Equal(sessions.StatusCompleted, response.Session.Status)
	s.Equal(100, response.Session.Progress)
}

func (s *UploaderTestSuite) TestManagedImageUploadCommitsAsset() {
	// arrange
	s.backend.commitImage = func(_ context.Context, _ media.TransferDescriptor, object media.CdnObject) (*backendapi.Asset, error) {
		s.Equal("folder/picture", object.ObjectReference)
		return &backendapi.Asset{Id: "asset-3"}, nil
	}

	uploadService := s.newService(s.cdnConfig())

	// act
	response, err := uploadService.UploadImage(context.Background(), UploadImageParams{
		File:       s.file("picture.png", []byte("png bytes")),
		Descriptor: s.descriptor(media.KindImage, "picture.png"),
		Managed:    true,
	})

	// assert
	s.NoError(err)
	s.Equal("asset-3", response.AssetId)
	s.True(response.RefreshAssets)
	s.Equal(sessions.StatusCompleted, response.Session.Status)
	s.Require().NotNil(response.CdnObject)
	s.Equal("https://cdn.example.com/folder/picture.png", response.CdnObject.SecureUrl)
}

func (s *UploaderTestSuite) TestUnmanagedImageUploadSkipsRegistration() {
	// arrange
	uploadService := s.newService(s.cdnConfig())

	// act
	response, err := uploadService.UploadImage(context.Background(), UploadImageParams{
		File:       s.file("picture.png", []byte("png bytes")),
		Descriptor: s.descriptor(media.KindImage, "picture.png"),
		Managed:    false,
	})

	// assert
	s.NoError(err)
	s.Empty(response.AssetId)
	s.False(response.RefreshAssets)
	s.Equal(sessions.StatusCompleted, response.Session.Status)
	s.Equal(int64(0), s.backend.calls.Load())
	s.Require().NotNil(response.CdnObject)
	s.Equal("folder/picture", response.CdnObject.ObjectReference)
}

func (s *UploaderTestSuite) TestLinkUploadHasNoTransferPhase() {
	// arrange
	s.backend.commitLink = func(_ context.Context, descriptor media.TransferDescriptor) (*backendapi.Asset, error) {
		s.Require().NotNil(descriptor.Link)
		s.Equal("https://example.com/lecture", *descriptor.Link)
		return &backendapi.Asset{Id: "asset-4"}, nil
	}

	link := "https://example.com/lecture"
	descriptor := s.descriptor(media.KindLink, "lecture")
	descriptor.Link = &link

	uploadService := s.newService(config.CdnConfig{})

	// act
	response, err := uploadService.UploadLink(context.Background(), descriptor)

	// assert
	s.NoError(err)
	s.Equal("asset-4", response.AssetId)
	s.Equal(sessions.StatusCompleted, response.Session.Status)
	s.Equal(100, response.Session.Progress)
}

func (s *UploaderTestSuite) TestNegotiationFailureFailsSession() {
	// arrange
	s.backend.negotiateVid = func(_ context.Context, _ string) (*backendapi.ResumableCredentials, error) {
		return nil, fmt.Errorf("backend is down")
	}

	uploadService := s.newService(config.CdnConfig{})

	// act
	_, err := uploadService.UploadVideo(context.Background(), UploadVideoParams{
		File:       s.file("clip.mp4", []byte("twenty bytes of data")),
		Descriptor: s.descriptor(media.KindVideo, "clip.mp4"),
	})

	// assert
	s.ErrorIs(err, apiError.ErrNegotiation)

	snapshot := s.broadcaster.Snapshot()
	s.Require().Len(snapshot, 1)
	s.Equal(sessions.StatusFailed, snapshot[0].Status)
	s.Empty(s.tus.uploads)
}

func (s *UploaderTestSuite) TestDeleteAssetDelegatesToBackend() {
	// arrange
	var deleted string
	s.backend.deleteAsset = func(_ context.Context, assetId string) error {
		deleted = assetId
		return nil
	}

	uploadService := s.newService(config.CdnConfig{})

	// act
	err := uploadService.DeleteAsset(context.Background(), "asset-9")

	// assert
	s.NoError(err)
	s.Equal("asset-9", deleted)
}
