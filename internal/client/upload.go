package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"

	"cineflow/console/internal/model"
)

func (c *Client) UploadStoryboard(ctx context.Context, filename string, r io.Reader) (model.Storyboard, error) {
	var sb model.Storyboard
	err := c.upload(ctx, "/storyboards", filename, r, &sb)
	return sb, err
}

// UploadSegmentImage stores a start image for the segment and returns its resolved
// locator.
func (c *Client) UploadSegmentImage(ctx context.Context, segmentID, filename string, r io.Reader) (string, error) {
	var out struct {
		ImageURL string `json:"image_url"`
	}
	if err := c.upload(ctx, "/segments/"+url.PathEscape(segmentID)+"/assets/start-image", filename, r, &out); err != nil {
		return "", err
	}
	if resolved := c.resolver.Resolve(out.ImageURL); resolved != "" {
		return resolved, nil
	}
	return out.ImageURL, nil
}

func (c *Client) upload(ctx context.Context, target, filename string, r io.Reader, out any) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return fmt.Errorf("upload %s: %w", target, err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return fmt.Errorf("upload %s: %w", target, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("upload %s: %w", target, err)
	}
	return c.send(ctx, http.MethodPost, target, &buf, w.FormDataContentType(), out)
}
