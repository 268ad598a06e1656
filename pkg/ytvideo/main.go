package ytvideo

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

type VideoData struct {
	Title        string `json:"title"`
	AuthorName   string `json:"author_name"`
	ThumbnailUrl string `json:"thumbnail_url"`
}

type Fetcher struct {
	client    *http.Client
	oembedURL string
	pageURL   string
}

func NewFetcher(client *http.Client) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}

	return &Fetcher{
		client:    client,
		oembedURL: "https://www.youtube.com/oembed",
		pageURL:   "https://youtu.be/",
	}
}

// Get looks up title and author of a video, falling back to the watch page when
// oEmbed refuses a non-embeddable video.
func (f *Fetcher) Get(ctx context.Context, videoId string) (*VideoData, error) {
	videoData, err := f.getWithEmbed(ctx, videoId)
	if err != nil {
		if !errors.Is(err, ErrVideoNotEmbeddable) {
			return nil, fmt.Errorf("failed to get video data with embed: %w", err)
		}

		videoData, err = f.getFromPage(ctx, videoId)
		if err != nil {
			return nil, fmt.Errorf("failed to get video data from page: %w", err)
		}
	}

	return videoData, nil
}
