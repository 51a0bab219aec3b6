package cdnconfig

import (
	"context"
	"fmt"
	"strings"

	"github.com/patrickmn/go-cache"

	"github.com/bmakarand2009/studiomedia/internal/config"
	"github.com/bmakarand2009/studiomedia/internal/utils/apiError"
)

// Settings is the tenant-scoped CDN upload configuration. Image bytes go
// straight to the CDN with an unsigned preset, bypassing the primary
// backend entirely.
type Settings struct {
	UploadEndpoint string
	UploadPreset   string
	Folder         string
}

type Provider interface {
	// Resolve returns the CDN settings, resolving them at most once per
	// process. A missing cloud identifier is a configuration error and
	// must fail before any network call is attempted.
	Resolve(ctx context.Context) (*Settings, error)
}

const settingsCacheKey = "cdn:settings"

type provider struct {
	cdnConfig config.CdnConfig
	cache     *cache.Cache
}

func NewProvider(cdnConfig config.CdnConfig) Provider {
	return &provider{
		cdnConfig: cdnConfig,
		cache:     cache.New(cache.NoExpiration, cache.NoExpiration),
	}
}

func (p *provider) Resolve(_ context.Context) (*Settings, error) {
	cached, ok := p.cache.Get(settingsCacheKey)
	if ok {
		return cached.(*Settings), nil
	}

	if p.cdnConfig.CloudName == "" {
		return nil, fmt.Errorf("cdn cloud name is not configured: %w", apiError.ErrConfiguration)
	}

	if p.cdnConfig.UploadPreset == "" {
		return nil, fmt.Errorf("cdn upload preset is not configured: %w", apiError.ErrConfiguration)
	}

	if p.cdnConfig.UploadUrl == "" {
		return nil, fmt.Errorf("cdn upload url is not configured: %w", apiError.ErrConfiguration)
	}

	settings := &Settings{
		UploadEndpoint: fmt.Sprintf("%s/%s/auto/upload",
			strings.TrimSuffix(p.cdnConfig.UploadUrl, "/"),
			p.cdnConfig.CloudName),
		UploadPreset: p.cdnConfig.UploadPreset,
		Folder:       p.cdnConfig.Folder,
	}

	p.cache.Set(settingsCacheKey, settings, cache.NoExpiration)
	return settings, nil
}
