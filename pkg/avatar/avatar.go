// Package avatar fingerprints profile avatars for cross-identity comparison.
package avatar

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strings"

	"github.com/codeGROOVE-dev/sivaguard/pkg/graph"
	"github.com/codeGROOVE-dev/sivaguard/pkg/httpcache"
)

const accept = "image/webp,image/png,image/jpeg,image/gif,*/*"

// Fetcher retrieves a URL body. *httpcache.Client satisfies it.
type Fetcher interface {
	Get(ctx context.Context, rawURL, accept string) (*httpcache.Response, error)
}

// Hasher computes the SHA-256 of avatar image bytes.
type Hasher struct {
	fetcher Fetcher
	logger  *slog.Logger
}

// New returns a Hasher that fetches images through f.
func New(f Fetcher, logger *slog.Logger) *Hasher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hasher{fetcher: f, logger: logger}
}

// HashAvatar fetches avatarURL and returns the hex digest of its bytes.
// Failures are reported as error codes, never as Go errors.
func (h *Hasher) HashAvatar(ctx context.Context, avatarURL string) graph.AvatarHash {
	avatarURL = strings.TrimSpace(avatarURL)
	if avatarURL == "" {
		return graph.AvatarHash{Err: graph.ErrAvatarURLMissing}
	}

	resp, err := h.fetcher.Get(ctx, avatarURL, accept)
	if err != nil {
		h.logger.DebugContext(ctx, "avatar fetch failed", "url", avatarURL, "error", err)
		return graph.AvatarHash{Err: "avatar_fetch_failed:" + httpcache.ErrorKind(err)}
	}
	if len(resp.Body) == 0 {
		return graph.AvatarHash{Err: "avatar_fetch_failed:http_200"}
	}

	sum := sha256.Sum256(resp.Body)
	return graph.AvatarHash{SHA256: hex.EncodeToString(sum[:])}
}
