package client

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"cineflow/console/internal/model"
)

// FetchAll reads every page of a collection endpoint, in order. It stops once the
// accumulated count reaches the reported total or a page comes back empty. Any page
// error aborts the whole fetch. pageSize <= 0 uses the client's page size.
func FetchAll[T any](ctx context.Context, c *Client, path string, pageSize int) ([]T, error) {
	if pageSize <= 0 {
		pageSize = c.pageSize
	}
	joiner := "?"
	if strings.Contains(path, "?") {
		joiner = "&"
	}
	items := []T{}
	for page := 1; ; page++ {
		var payload model.Page[T]
		target := fmt.Sprintf("%s%spage=%d&page_size=%d", path, joiner, page, pageSize)
		if err := c.requestJSON(ctx, http.MethodGet, target, nil, &payload); err != nil {
			return nil, err
		}
		items = append(items, payload.Items...)
		if len(items) >= payload.Total || len(payload.Items) == 0 {
			return items, nil
		}
	}
}
