package store

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"
)

const (
	defaultPageSize = 20
	maxPageSize     = 1000
)

// ListQuery carries the paging and sorting parameters every collection accepts.
type ListQuery struct {
	Page     int
	PageSize int
	Sort     string
	Order    string
}

func (q ListQuery) normalized() ListQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = defaultPageSize
	}
	if q.PageSize > maxPageSize {
		q.PageSize = maxPageSize
	}
	q.Order = strings.ToLower(strings.TrimSpace(q.Order))
	if q.Order == "" {
		q.Order = "desc"
	}
	return q
}

type sortKeys[T any] map[string]func(a, b T) int

// sortAndPage orders items by q.Sort (insertion order when empty) and cuts out the
// requested page. It returns the page, the total before paging and the effective query.
func sortAndPage[T any](items []T, keys sortKeys[T], q ListQuery) ([]T, int, ListQuery, error) {
	q = q.normalized()
	if q.Order != "asc" && q.Order != "desc" {
		return nil, 0, q, fmt.Errorf("%w: order must be asc or desc", ErrBadRequest)
	}
	if q.Sort != "" {
		compare, ok := keys[q.Sort]
		if !ok {
			return nil, 0, q, fmt.Errorf("%w: unknown sort field %q", ErrBadRequest, q.Sort)
		}
		slices.SortStableFunc(items, func(a, b T) int {
			if q.Order == "desc" {
				return compare(b, a)
			}
			return compare(a, b)
		})
	}
	total := len(items)
	start := (q.Page - 1) * q.PageSize
	if start >= total {
		return []T{}, total, q, nil
	}
	end := min(start+q.PageSize, total)
	return append([]T(nil), items[start:end]...), total, q, nil
}

func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	}
	return 1
}

func compareTime(a, b time.Time) int {
	return a.Compare(b)
}

func compareStr(a, b string) int {
	return cmp.Compare(a, b)
}
