package backendapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/bmakarand2009/studiomedia/internal/config"
	"github.com/bmakarand2009/studiomedia/internal/services/clock"
	"github.com/bmakarand2009/studiomedia/internal/utils/apiError"
)

type ClientTestSuite struct {
	suite.Suite
	clock clock.Service
}

func TestClientTestSuite(t *testing.T) {
	t.Parallel()
	suite.Run(t, new(ClientTestSuite))
}

func (s *ClientTestSuite) SetupTest() {
	s.clock, _ = clock.NewMockService(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
}

func (s *ClientTestSuite) newClient(server *httptest.Server) Client {
	client, err := NewClient(config.BackendConfig{
		BaseUrl:     server.URL,
		BearerToken: "opaque-credential",
		Timeout:     time.Second,
	}, s.clock)
	s.Require().NoError(err)
	return client
}

func (s *ClientTestSuite) TestDeleteAsset() {
	// arrange
	var requested string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requested = r.Method + " " + r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	// act
	err := s.newClient(server).DeleteAsset(context.Background(), "asset-1")

	// assert
	s.NoError(err)
	s.Equal("DELETE /api/v1/assets/asset-1", requested)
}

func (s *ClientTestSuite) TestDeleteUnknownAssetIsNotFound() {
	// arrange
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	// act
	err := s.newClient(server).DeleteAsset(context.Background(), "gone")

	// assert
	s.ErrorIs(err, apiError.ErrApiAssetNotFound)
	s.ErrorIs(err, apiError.ErrApiNotFound)
}

func (s *ClientTestSuite) TestBackendErrorStatusSurfaces() {
	// arrange
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	// act
	_, err := s.newClient(server).NegotiateVideoUpload(context.Background(), "clip.mp4")

	// assert
	s.Error(err)
	s.NotErrorIs(err, apiError.ErrApiNotFound)
}
