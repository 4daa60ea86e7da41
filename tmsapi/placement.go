package tmsapi

import (
	"context"
	"net/http"
	"net/url"

	"tmscore/scheduler"
)

// PatchTripPlacement persists a trip's new scheduler cell upstream.
func (c *Client) PatchTripPlacement(ctx context.Context, uid string, cell scheduler.CellPayload) error {
	return c.do(ctx, http.MethodPatch, "/trips/"+url.PathEscape(uid), NewPlacement(cell), nil)
}

// PatchSegmentPlacement persists a chartering segment's new scheduler cell upstream.
func (c *Client) PatchSegmentPlacement(ctx context.Context, uid string, cell scheduler.CellPayload) error {
	return c.do(ctx, http.MethodPatch, "/chartering-segments/"+url.PathEscape(uid), NewPlacement(cell), nil)
}

func (c *Client) Ping(ctx context.Context) (*PingResponse, error) {
	var resp PingResponse
	if err := c.do(ctx, http.MethodGet, "/health", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
