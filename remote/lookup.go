package remote

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/goliatone/go-wizard"
)

// lookup resolves one object kind against a collection endpoint:
// GET {base}/{path}?code=X for a scan and GET {base}/{path}?q=Q&... for a search.
type lookup[T any] struct {
	c    *Client
	path string
	noun string
}

func (l lookup[T]) ByCode(ctx context.Context, code string) (T, error) {
	code = strings.TrimSpace(code)
	var zero T
	if code == "" {
		return zero, wizard.NewError(wizard.ErrNotFound, fmt.Sprintf("%s code is empty", l.noun), nil, nil)
	}
	out, err := query[T](ctx, l.c, l.noun+" lookup", l.path, url.Values{"code": {code}})
	if err != nil {
		if wizard.IsNotFound(err) {
			return zero, wizard.NewError(wizard.ErrNotFound, fmt.Sprintf("%s %s not found", l.noun, code), err,
				map[string]any{"code": code})
		}
		return zero, err
	}
	return out, nil
}

func (l lookup[T]) Search(ctx context.Context, q string, filters map[string]string) ([]T, error) {
	params := url.Values{}
	if q = strings.TrimSpace(q); q != "" {
		params.Set("q", q)
	}
	for k, v := range filters {
		if v != "" {
			params.Set(k, v)
		}
	}
	page, err := query[results[T]](ctx, l.c, l.noun+" search", l.path+"/search", params)
	if err != nil {
		return nil, err
	}
	return page.Results, nil
}

// results is the search response envelope.
type results[T any] struct {
	Results []T `json:"results"`
}
