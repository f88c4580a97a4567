package filter

import (
	"context"
	"strings"

	"github.com/osa030/radiosync/internal/domain/track"
)

// RequireMetadataFilter rejects plays without an artist or a title.
type RequireMetadataFilter struct{}

func (f *RequireMetadataFilter) Name() string {
	return "require_metadata"
}

func (f *RequireMetadataFilter) Description() string {
	return "Skips plays with a blank artist or title"
}

func (f *RequireMetadataFilter) ReturnCodes() []string {
	return []string{"missing_metadata"}
}

func (f *RequireMetadataFilter) ValidateConfig(settings map[string]any) error {
	return nil
}

func (f *RequireMetadataFilter) Check(ctx context.Context, p track.Play) Result {
	if strings.TrimSpace(p.Artist) == "" || strings.TrimSpace(p.Title) == "" {
		return Reject("missing_metadata")
	}
	return Accept()
}

func init() {
	Register("require_metadata", func() Filter {
		return &RequireMetadataFilter{}
	})
}
