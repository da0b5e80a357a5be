package apiclient

import (
	"context"
	"net/url"

	"github.com/phillip-england/branchdesk/internal/listing"
)

// EntitySource adapts the client to a list controller for one entity.
type EntitySource struct {
	Client *Client
	Entity Entity
}

func (s EntitySource) List(ctx context.Context, params url.Values) (listing.Result, error) {
	page, err := s.Client.List(ctx, s.Entity, params)
	if err != nil {
		return listing.Result{}, err
	}
	return listing.Result{Rows: page.Rows, Pagination: page.Pagination}, nil
}

func (s EntitySource) SetStatus(ctx context.Context, id int64, status int) error {
	_, err := s.Client.SetStatus(ctx, s.Entity, id, status)
	return err
}
