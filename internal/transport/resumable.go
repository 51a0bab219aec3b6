package transport

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/avast/retry-go"

	"github.com/bmakarand2009/studiomedia/internal/backoff"
	"github.com/bmakarand2009/studiomedia/internal/logging"
	"github.com/bmakarand2009/studiomedia/internal/services/backendapi"
	"github.com/bmakarand2009/studiomedia/internal/services/clock"
	"github.com/bmakarand2009/studiomedia/internal/services/kv"
	"github.com/bmakarand2009/studiomedia/internal/utils"
)

const tusVersion = "1.0.0"

// resumeState is what survives an interrupted transfer: the remote upload
// location and the last offset the endpoint acknowledged. Persisted in the
// kv store keyed by file fingerprint.
type resumeState struct {
	Location string `json:"location"`
	Offset   int64  `json:"offset"`
}

func buildResumeKey(fingerprint string) string {
	return fmt.Sprintf("resume:%s", fingerprint)
}

// Resumable is the chunked, resumable transfer client used for large
// video assets. It speaks a TUS-style protocol against the negotiated
// transfer endpoint: create (or resume) an upload, then PATCH chunks,
// trusting only the offsets the endpoint acknowledges.
type Resumable struct {
	httpClient   *http.Client
	store        kv.Store
	policy       backoff.Policy
	clockService clock.Service
	chunkSize    int64
}

func NewResumable(httpClient *http.Client, store kv.Store, policy backoff.Policy, clockService clock.Service, chunkSize int64) *Resumable {
	return &Resumable{
		httpClient:   httpClient,
		store:        store,
		policy:       policy,
		clockService: clockService,
		chunkSize:    chunkSize,
	}
}

// Upload transfers the file and reports acknowledged progress. The
// returned handle is the remote upload location. Credentials are consumed
// for this one transfer; if they expire mid-flight the transfer fails
// terminally and the caller must negotiate a fresh session.
func (r *Resumable) Upload(ctx context.Context, credentials *backendapi.ResumableCredentials, file File, progress ProgressFn) (handle string, err error) {
	fingerprint, err := Fingerprint(file)
	if err != nil {
		return "", fmt.Errorf("failed to fingerprint file: %w", err)
	}

	state, err := r.lookupResume(ctx, fingerprint, credentials)
	if err != nil {
		return "", err
	}

	if state == nil {
		state, err = r.createUpload(ctx, credentials, file, fingerprint)
		if err != nil {
			return "", fmt.Errorf("failed to create upload: %w", err)
		}
	} else {
		logging.Logger.Infof("resuming upload %s from offset %d", state.Location, state.Offset)
	}

	if progress != nil && state.Offset > 0 {
		progress(percentage(state.Offset, file.Size))
	}

	for state.Offset < file.Size {
		if err := ctx.Err(); err != nil {
			return state.Location, fmt.Errorf("transfer cancelled: %w", err)
		}

		if r.clockService.Now().After(credentials.ExpirationTime) {
			return state.Location, ErrCredentialsExpired
		}

		err = r.sendChunkWithRetry(ctx, credentials, file, state)
		if err != nil {
			return state.Location, err
		}

		err = r.persistResume(ctx, fingerprint, state, credentials.ExpirationTime)
		if err != nil {
			logging.Logger.Warnf("failed to persist resume state: %s", err)
		}

		if progress != nil {
			progress(percentage(state.Offset, file.Size))
		}
	}

	err = r.store.Delete(ctx, buildResumeKey(fingerprint))
	if err != nil {
		logging.Logger.Warnf("failed to delete resume state: %s", err)
	}

	return state.Location, nil
}

// lookupResume returns a verified prior state for this file, or nil when
// the transfer must start from byte 0. A stored state is only trusted
// after the remote endpoint confirms the offset.
func (r *Resumable) lookupResume(ctx context.Context, fingerprint string, credentials *backendapi.ResumableCredentials) (*resumeState, error) {
	value, ok, err := r.store.Get(ctx, buildResumeKey(fingerprint))
	if err != nil {
		return nil, fmt.Errorf("failed to get resume state: %w", err)
	}
	if !ok {
		return nil, nil
	}

	var state resumeState
	err = json.Unmarshal([]byte(value), &state)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal resume state: %w", err)
	}

	offset, err := r.probeOffset(ctx, credentials, state.Location)
	if err != nil {
		logging.Logger.Warnf("stored upload %s is not resumable, starting over: %s", state.Location, err)
		utils.IgnoreError(func() error {
			return r.store.Delete(ctx, buildResumeKey(fingerprint))
		})
		return nil, nil
	}

	state.Offset = offset
	return &state, nil
}

func (r *Resumable) probeOffset(ctx context.Context, credentials *backendapi.ResumableCredentials, location string) (int64, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodHead, location, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	r.setProtocolHeaders(request, credentials)

	response, err := r.httpClient.Do(request)
	if err != nil {
		return 0, fmt.Errorf("failed to probe upload offset: %w", err)
	}
	defer utils.IgnoreError(response.Body.Close)

	if response.StatusCode != http.StatusOK && response.StatusCode != http.StatusNoContent {
		return 0, &statusError{code: response.StatusCode}
	}

	offset, err := strconv.ParseInt(response.Header.Get("Upload-Offset"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid upload offset header: %w", err)
	}

	return offset, nil
}

func (r *Resumable) createUpload(ctx context.Context, credentials *backendapi.ResumableCredentials, file File, fingerprint string) (*resumeState, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, credentials.TransferEndpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	r.setProtocolHeaders(request, credentials)
	request.Header.Set("Upload-Length", strconv.FormatInt(file.Size, 10))
	request.Header.Set("Upload-Metadata", encodeMetadata(map[string]string{
		"filename":    file.Name,
		"fingerprint": fingerprint,
	}))

	response, err := r.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("failed to create remote upload: %w", err)
	}
	defer utils.IgnoreError(response.Body.Close)

	if response.StatusCode != http.StatusCreated {
		return nil, &statusError{code: response.StatusCode}
	}

	location, err := resolveLocation(credentials.TransferEndpoint, response.Header.Get("Location"))
	if err != nil {
		return nil, err
	}

	return &resumeState{
		Location: location,
		Offset:   0,
	}, nil
}

// sendChunkWithRetry sends the next chunk, retrying the same chunk on
// transient errors per the backoff policy. Exhausted retries or a
// non-transient error surface to the caller unchanged.
func (r *Resumable) sendChunkWithRetry(ctx context.Context, credentials *backendapi.ResumableCredentials, file File, state *resumeState) error {
	return retry.Do(
		func() error {
			return r.sendChunk(ctx, credentials, file, state)
		},
		retry.Attempts(r.policy.Attempts()+1),
		retry.DelayType(func(n uint, err error, config *retry.Config) time.Duration {
			return r.policy.NextDelay(n)
		}),
		retry.RetryIf(func(err error) bool {
			if ctx.Err() != nil {
				return false
			}
			return isTransient(err)
		}),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logging.Logger.Warnf("chunk at offset %d failed (attempt %d): %s", state.Offset, n+1, err)
		}),
	)
}

func (r *Resumable) sendChunk(ctx context.Context, credentials *backendapi.ResumableCredentials, file File, state *resumeState) error {
	_, err := file.Content.Seek(state.Offset, io.SeekStart)
	if err != nil {
		return fmt.Errorf("failed to seek to offset %d: %w", state.Offset, err)
	}

	length := r.chunkSize
	if remaining := file.Size - state.Offset; remaining < length {
		length = remaining
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPatch, state.Location, io.LimitReader(file.Content, length))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	r.setProtocolHeaders(request, credentials)
	request.Header.Set("Content-Type", "application/offset+octet-stream")
	request.Header.Set("Upload-Offset", strconv.FormatInt(state.Offset, 10))
	request.ContentLength = length

	response, err := r.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("failed to send chunk: %w", err)
	}
	defer utils.IgnoreError(response.Body.Close)

	if response.StatusCode != http.StatusNoContent {
		return &statusError{code: response.StatusCode}
	}

	acked, err := strconv.ParseInt(response.Header.Get("Upload-Offset"), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid upload offset header: %w", err)
	}

	state.Offset = acked
	return nil
}

func (r *Resumable) persistResume(ctx context.Context, fingerprint string, state *resumeState, expiration time.Time) error {
	jsonBytes, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal resume state: %w", err)
	}

	ttl := expiration.Sub(r.clockService.Now())
	if ttl <= 0 {
		return nil
	}

	return r.store.Set(ctx, buildResumeKey(fingerprint), string(jsonBytes), kv.WithExpiration(ttl))
}

func (r *Resumable) setProtocolHeaders(request *http.Request, credentials *backendapi.ResumableCredentials) {
	request.Header.Set("Tus-Resumable", tusVersion)
	request.Header.Set("Authorization", "Signature "+credentials.AuthorizationSignature)
	request.Header.Set("X-Container-Id", credentials.ContainerId)
}

func encodeMetadata(metadata map[string]string) string {
	encoded := ""
	for key, value := range metadata {
		if encoded != "" {
			encoded += ","
		}
		encoded += key + " " + base64.StdEncoding.EncodeToString([]byte(value))
	}
	return encoded
}

func resolveLocation(endpoint string, location string) (string, error) {
	if location == "" {
		return "", fmt.Errorf("remote endpoint returned no upload location")
	}

	base, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("failed to parse transfer endpoint: %w", err)
	}

	resolved, err := base.Parse(location)
	if err != nil {
		return "", fmt.Errorf("failed to resolve upload location: %w", err)
	}

	return resolved.String(), nil
}
