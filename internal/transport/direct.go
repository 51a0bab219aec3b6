package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/bmakarand2009/studiomedia/internal/media"
	"github.com/bmakarand2009/studiomedia/internal/services/cdnconfig"
	"github.com/bmakarand2009/studiomedia/internal/utils"
)

// Direct performs single-shot transfers: one PUT to a pre-signed url, or
// one multipart POST straight to the third-party CDN. There is no retry
// here, these paths carry small payloads where a full restart is cheap
// and retry policy belongs to the caller.
type Direct struct {
	httpClient *http.Client
}

func NewDirect(httpClient *http.Client) *Direct {
	return &Direct{
		httpClient: httpClient,
	}
}

func (d *Direct) PutSignedUrl(ctx context.Context, signedUrl string, file File, progress ProgressFn) error {
	_, err := file.Content.Seek(0, io.SeekStart)
	if err != nil {
		return fmt.Errorf("failed to seek to start: %w", err)
	}

	reader := &countingReader{
		reader:   file.Content,
		total:    file.Size,
		progress: progress,
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPut, signedUrl, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	request.ContentLength = file.Size
	request.Header.Set("Content-Type", "application/octet-stream")

	response, err := d.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("failed to put to signed url: %w", err)
	}
	defer utils.IgnoreError(response.Body.Close)

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return &statusError{code: response.StatusCode}
	}

	return nil
}

// cdnUploadResponse mirrors the CDN's wire contract.
type cdnUploadResponse struct {
	PublicId  string `json:"public_id"`
	SecureUrl string `json:"secure_url"`
	Folder    string `json:"folder"`
}

func (d *Direct) PostCdnMultipart(ctx context.Context, settings *cdnconfig.Settings, file File, progress ProgressFn) (*media.CdnObject, error) {
	_, err := file.Content.Seek(0, io.SeekStart)
	if err != nil {
		return nil, fmt.Errorf("failed to seek to start: %w", err)
	}

	pipeReader, pipeWriter := io.Pipe()
	form := multipart.NewWriter(pipeWriter)

	counting := &countingReader{
		reader:   file.Content,
		total:    file.Size,
		progress: progress,
	}

	go func() {
		err := writeCdnForm(form, settings, file.Name, counting)
		if err != nil {
			_ = pipeWriter.CloseWithError(err)
			return
		}
		_ = pipeWriter.Close()
	}()

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, settings.UploadEndpoint, pipeReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	request.Header.Set("Content-Type", form.FormDataContentType())

	response, err := d.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("failed to post to cdn: %w", err)
	}
	defer utils.IgnoreError(response.Body.Close)

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return nil, &statusError{code: response.StatusCode}
	}

	var uploadResponse cdnUploadResponse
	err = json.NewDecoder(response.Body).Decode(&uploadResponse)
	if err != nil {
		return nil, fmt.Errorf("failed to decode cdn response: %w", err)
	}

	return &media.CdnObject{
		ObjectReference: uploadResponse.PublicId,
		SecureUrl:       uploadResponse.SecureUrl,
		Folder:          uploadResponse.Folder,
	}, nil
}

func writeCdnForm(form *multipart.Writer, settings *cdnconfig.Settings, filename string, content io.Reader) error {
	err := form.WriteField("upload_preset", settings.UploadPreset)
	if err != nil {
		return fmt.Errorf("failed to write upload preset field: %w", err)
	}

	if settings.Folder != "" {
		err = form.WriteField("folder", settings.Folder)
		if err != nil {
			return fmt.Errorf("failed to write folder field: %w", err)
		}
	}

	fileWriter, err := form.CreateFormFile("file", filename)
	if err != nil {
		return fmt.Errorf("failed to create file part: %w", err)
	}

	_, err = io.Copy(fileWriter, content)
	if err != nil {
		return fmt.Errorf("failed to write file part: %w", err)
	}

	return form.Close()
}
