package backendapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bmakarand2009/studiomedia/internal/config"
	"github.com/bmakarand2009/studiomedia/internal/media"
	"github.com/bmakarand2009/studiomedia/internal/services/clock"
	"github.com/bmakarand2009/studiomedia/internal/utils"
	"github.com/bmakarand2009/studiomedia/internal/utils/apiError"
)

// FileNegotiation is the result of the generic-file negotiation call: a
// provisional file id plus a one-time signed url for a single direct PUT.
type FileNegotiation struct {
	FileId    string `json:"fileId"`
	SignedUrl string `json:"signedUrl"`
}

// ResumableCredentials is the short-lived descriptor issued by the video
// negotiation call. It is consumed by the resumable transport for the
// duration of one transfer and never persisted beyond it.
type ResumableCredentials struct {
	RemoteObjectId         string    `json:"remoteObjectId"`
	ContainerId            string    `json:"containerId"`
	TransferEndpoint       string    `json:"transferEndpoint"`
	AuthorizationSignature string    `json:"authorizationSignature"`
	ExpirationTime         time.Time `json:"expirationTime"`
}

// Asset is the durable backend record created by a commit call. The
// orchestrator never fabricates or caches these.
type Asset struct {
	Id string `json:"id"`
}

type Client interface {
	NegotiateFileUpload(ctx context.Context, descriptor media.TransferDescriptor) (*FileNegotiation, error)
	FinalizeFileUpload(ctx context.Context, fileId string, descriptor media.TransferDescriptor) (*Asset, error)

	NegotiateVideoUpload(ctx context.Context, title string) (*ResumableCredentials, error)
	CommitVideoAsset(ctx context.Context, descriptor media.TransferDescriptor, remote media.RemoteObject) (*Asset, error)

	CommitLinkAsset(ctx context.Context, descriptor media.TransferDescriptor) (*Asset, error)
	CommitImageAsset(ctx context.Context, descriptor media.TransferDescriptor, object media.CdnObject) (*Asset, error)

	DeleteAsset(ctx context.Context, assetId string) error
}

type client struct {
	baseUrl    string
	token      *bearerToken
	httpClient *http.Client
}

func NewClient(backendConfig config.BackendConfig, clockService clock.Service) (Client, error) {
	token, err := newBearerToken(backendConfig.BearerToken, clockService)
	if err != nil {
		return nil, fmt.Errorf("failed to parse bearer credential: %w", err)
	}

	return &client{
		baseUrl: backendConfig.BaseUrl,
		token:   token,
		httpClient: &http.Client{
			Timeout: backendConfig.Timeout,
		},
	}, nil
}

func (c *client) NegotiateFileUpload(ctx context.Context, descriptor media.TransferDescriptor) (*FileNegotiation, error) {
	body := map[string]any{
		"filename":  descriptor.Filename,
		"productId": descriptor.ProductId,
		"moduleId":  descriptor.ModuleId,
	}

	var negotiation FileNegotiation
	err := c.doJson(ctx, http.MethodPost, "/api/v1/files/negotiate", body, &negotiation)
	if err != nil {
		return nil, fmt.Errorf("failed to negotiate file upload: %w", err)
	}

	return &negotiation, nil
}

func (c *client) FinalizeFileUpload(ctx context.Context, fileId string, descriptor media.TransferDescriptor) (*Asset, error) {
	body := map[string]any{
		"filename":     descriptor.Filename,
		"productId":    descriptor.ProductId,
		"moduleId":     descriptor.ModuleId,
		"downloadable": descriptor.Downloadable,
	}

	var asset Asset
	err := c.doJson(ctx, http.MethodPost, fmt.Sprintf("/api/v1/files/%s/finalize", fileId), body, &asset)
	if err != nil {
		return nil, fmt.Errorf("failed to finalize file upload: %w", err)
	}

	return &asset, nil
}

func (c *client) NegotiateVideoUpload(ctx context.Context, title string) (*ResumableCredentials, error) {
	body := map[string]any{
		"title": title,
	}

	var credentials ResumableCredentials
	err := c.doJson(ctx, http.MethodPost, "/api/v1/videos/negotiate", body, &credentials)
	if err != nil {
		return nil, fmt.Errorf("failed to negotiate video upload: %w", err)
	}

	return &credentials, nil
}

func (c *client) CommitVideoAsset(ctx context.Context, descriptor media.TransferDescriptor, remote media.RemoteObject) (*Asset, error) {
	body := map[string]any{
		"filename":       descriptor.Filename,
		"productId":      descriptor.ProductId,
		"moduleId":       descriptor.ModuleId,
		"downloadable":   descriptor.Downloadable,
		"remoteObjectId": remote.RemoteObjectId,
		"containerId":    remote.ContainerId,
	}

	var asset Asset
	err := c.doJson(ctx, http.MethodPost, "/api/v1/videos/commit", body, &asset)
	if err != nil {
		return nil, fmt.Errorf("failed to commit video asset: %w", err)
	}

	return &asset, nil
}

func (c *client) CommitLinkAsset(ctx context.Context, descriptor media.TransferDescriptor) (*Asset, error) {
	body := map[string]any{
		"filename":  descriptor.Filename,
		"productId": descriptor.ProductId,
		"moduleId":  descriptor.ModuleId,
		"link":      descriptor.Link,
	}

	var asset Asset
	err := c.doJson(ctx, http.MethodPost, "/api/v1/links/commit", body, &asset)
	if err != nil {
		return nil, fmt.Errorf("failed to commit link asset: %w", err)
	}

	return &asset, nil
}

func (c *client) CommitImageAsset(ctx context.Context, descriptor media.TransferDescriptor, object media.CdnObject) (*Asset, error) {
	body := map[string]any{
		"filename":        descriptor.Filename,
		"productId":       descriptor.ProductId,
		"moduleId":        descriptor.ModuleId,
		"objectReference": object.ObjectReference,
		"secureUrl":       object.SecureUrl,
		"folder":          object.Folder,
	}

	var asset Asset
	err := c.doJson(ctx, http.MethodPost, "/api/v1/images/commit", body, &asset)
	if err != nil {
		return nil, fmt.Errorf("failed to commit image asset: %w", err)
	}

	return &asset, nil
}

func (c *client) DeleteAsset(ctx context.Context, assetId string) error {
	err := c.doJson(ctx, http.MethodDelete, fmt.Sprintf("/api/v1/assets/%s", assetId), nil, nil)
	if errors.Is(err, apiError.ErrApiNotFound) {
		return fmt.Errorf("asset %s: %w", assetId, apiError.ErrApiAssetNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to delete asset: %w", err)
	}

	return nil
}

func (c *client) doJson(ctx context.Context, method string, path string, body any, out any) error {
	err := c.token.ensureValid()
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		jsonBytes, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(jsonBytes)
	}

	request, err := http.NewRequestWithContext(ctx, method, c.baseUrl+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	request.Header.Set("Authorization", "Bearer "+c.token.raw)
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer utils.IgnoreError(response.Body.Close)

	if response.StatusCode == http.StatusNotFound {
		return fmt.Errorf("backend returned status 404 for %s %s: %w", method, path, apiError.ErrApiNotFound)
	}

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return fmt.Errorf("backend returned status %d for %s %s", response.StatusCode, method, path)
	}

	if out == nil {
		return nil
	}

	err = json.NewDecoder(response.Body).Decode(out)
	if err != nil {
		return fmt.Errorf("failed to decode response body: %w", err)
	}

	return nil
}
