package chat

import (
	"context"
	"io"

	"github.com/jonwraymond/chatguard/guard"
)

// Uploader sends files through the request guard, so a double submit of the
// same file never reaches the backend twice.
type Uploader struct {
	client *Client
	guard  *guard.Guard
}

// NewUploader creates an uploader.
func NewUploader(client *Client, g *guard.Guard) *Uploader {
	return &Uploader{client: client, guard: g}
}

// Upload sends body as f. It returns guard.ErrInFlight or guard.ErrDuplicate
// without contacting the backend when the guard denies it.
func (u *Uploader) Upload(ctx context.Context, f guard.File, body io.Reader) error {
	return u.guard.Do(ctx, f, func(ctx context.Context) error {
		return u.client.Upload(ctx, f, body)
	})
}
