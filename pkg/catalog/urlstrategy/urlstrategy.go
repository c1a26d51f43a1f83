// Package urlstrategy turns stored asset references into URLs clients can fetch.
package urlstrategy

import (
	"fmt"
	"net/url"
	"strings"
)

// URLStrategy defines how asset URLs are generated
type URLStrategy interface {
	// AssetURL returns the URL at which the blob stored under ref is served
	AssetURL(ref string) string
}

// StrategyType names a URL strategy
type StrategyType string

const (
	// StrategyTypeServer routes reads through this server's /uploads endpoint
	StrategyTypeServer StrategyType = "server"

	// StrategyTypeCDN points reads directly at a CDN or public bucket
	StrategyTypeCDN StrategyType = "cdn"
)

// DefaultAssetPath is where the server mounts the asset read endpoint
const DefaultAssetPath = "/uploads"

// Config holds configuration for URL strategy creation
type Config struct {
	Type StrategyType

	// BaseURL prefixes every URL. For the server strategy it may be empty
	// (relative URLs); for CDN it is required.
	BaseURL string
}

// New creates a URL strategy from the configuration; an empty type means server
func New(config Config) (URLStrategy, error) {
	switch config.Type {
	case "", StrategyTypeServer:
		return NewServerStrategy(config.BaseURL), nil
	case StrategyTypeCDN:
		if config.BaseURL == "" {
			return nil, fmt.Errorf("CDN base URL is required for CDN strategy")
		}
		return NewCDNStrategy(config.BaseURL), nil
	default:
		return nil, fmt.Errorf("unknown URL strategy type: %s", config.Type)
	}
}

// ServerStrategy serves assets through the application
type ServerStrategy struct {
	prefix string
}

// NewServerStrategy creates a strategy producing {baseURL}/uploads/{ref}
func NewServerStrategy(baseURL string) *ServerStrategy {
	return &ServerStrategy{prefix: strings.TrimSuffix(baseURL, "/") + DefaultAssetPath}
}

func (s *ServerStrategy) AssetURL(ref string) string {
	return s.prefix + "/" + escapeRef(ref)
}

// CDNStrategy generates URLs that point directly at a CDN
type CDNStrategy struct {
	CDNBaseURL string
}

// NewCDNStrategy creates a CDN strategy producing {cdnBaseURL}/{ref}
func NewCDNStrategy(cdnBaseURL string) *CDNStrategy {
	return &CDNStrategy{CDNBaseURL: strings.TrimSuffix(cdnBaseURL, "/")}
}

func (s *CDNStrategy) AssetURL(ref string) string {
	return s.CDNBaseURL + "/" + escapeRef(ref)
}

// escapeRef escapes each path segment and keeps the separators of sharded keys
func escapeRef(ref string) string {
	segments := strings.Split(ref, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.Join(segments, "/")
}
