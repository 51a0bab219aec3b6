package transport

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/bmakarand2009/studiomedia/internal/services/cdnconfig"
)

type DirectTestSuite struct {
	suite.Suite
}

func TestDirectTestSuite(t *testing.T) {
	t.Parallel()
	suite.Run(t, new(DirectTestSuite))
}

func (s *DirectTestSuite) file(content []byte) File {
	return File{
		Name:    "photo.png",
		Size:    int64(len(content)),
		ModTime: time.Now(),
		Content: bytes.NewReader(content),
	}
}

func (s *DirectTestSuite) TestPutSignedUrl() {
	// arrange
	content := []byte("file payload bytes")
	var received []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.Equal(http.MethodPut, r.Method)
		received, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	direct := NewDirect(server.Client())
	var progress []int

	// act
	err := direct.PutSignedUrl(context.Background(), server.URL+"/signed", s.file(content), func(p int) {
		progress = append(progress, p)
	})

	// assert
	s.NoError(err)
	s.Equal(content, received)
	s.NotEmpty(progress)
	s.Equal(100, progress[len(progress)-1])
}

func (s *DirectTestSuite) TestPutSignedUrlNon2xxFails() {
	// arrange
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	direct := NewDirect(server.Client())

	// act
	err := direct.PutSignedUrl(context.Background(), server.URL+"/signed", s.file([]byte("x")), nil)

	// assert
	s.Error(err)
	s.False(isTransient(err))
}

func (s *DirectTestSuite) TestPostCdnMultipart() {
	// arrange
	content := []byte("png bytes")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.NoError(r.ParseMultipartForm(1 << 20))
		s.Equal("unsigned-preset", r.FormValue("upload_preset"))
		s.Equal("tenant-folder", r.FormValue("folder"))

		file, header, err := r.FormFile("file")
		s.NoError(err)
		s.Equal("photo.png", header.Filename)
		uploaded, _ := io.ReadAll(file)
		s.Equal(content, uploaded)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"public_id":"tenant-folder/abc123","secure_url":"https://cdn.example/abc123.png","folder":"tenant-folder"}`))
	}))
	defer server.Close()

	direct := NewDirect(server.Client())
	settings := &cdnconfig.Settings{
		UploadEndpoint: server.URL + "/demo/auto/upload",
		UploadPreset:   "unsigned-preset",
		Folder:         "tenant-folder",
	}

	// act
	object, err := direct.PostCdnMultipart(context.Background(), settings, s.file(content), nil)

	// assert
	s.NoError(err)
	s.Equal("tenant-folder/abc123", object.ObjectReference)
	s.Equal("https://cdn.example/abc123.png", object.SecureUrl)
	s.Equal("tenant-folder", object.Folder)
}

func (s *DirectTestSuite) TestPostCdnMultipartServerErrorFails() {
	// arrange
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	direct := NewDirect(server.Client())
	settings := &cdnconfig.Settings{
		UploadEndpoint: server.URL + "/demo/auto/upload",
		UploadPreset:   "unsigned-preset",
	}

	// act
	object, err := direct.PostCdnMultipart(context.Background(), settings, s.file([]byte("x")), nil)

	// assert
	s.Error(err)
	s.Nil(object)
}
