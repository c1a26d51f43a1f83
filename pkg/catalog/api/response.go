package api

import (
	"time"

	"github.com/samber/lo"
	"github.com/tendant/simple-catalog/pkg/catalog"
	"github.com/tendant/simple-catalog/pkg/catalog/urlstrategy"
)

// Response wraps every successful catalog reply
type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data"`
}

// EntryResponse is the wire form of a catalog entry
type EntryResponse struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Thumbnails    []string  `json:"thumbnails"`
	Videos        []string  `json:"videos"`
	ThumbnailURLs []string  `json:"thumbnail_urls"`
	VideoURLs     []string  `json:"video_urls"`
	OwnerID       string    `json:"owner_id"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func toEntryResponse(e *catalog.Entry, urls urlstrategy.URLStrategy) EntryResponse {
	toURL := func(ref string, _ int) string { return urls.AssetURL(ref) }
	return EntryResponse{
		ID:            e.ID.String(),
		Title:         e.Title,
		Description:   e.Description,
		Thumbnails:    lo.Ternary(e.ThumbnailRefs == nil, []string{}, e.ThumbnailRefs),
		Videos:        lo.Ternary(e.VideoRefs == nil, []string{}, e.VideoRefs),
		ThumbnailURLs: lo.Map(e.ThumbnailRefs, toURL),
		VideoURLs:     lo.Map(e.VideoRefs, toURL),
		OwnerID:       e.OwnerID,
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}
}

func toEntryResponses(entries []*catalog.Entry, urls urlstrategy.URLStrategy) []EntryResponse {
	return lo.Map(entries, func(e *catalog.Entry, _ int) EntryResponse {
		return toEntryResponse(e, urls)
	})
}
