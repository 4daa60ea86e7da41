package tmsapi

import (
	"fmt"

	"tmscore/scheduler"
)

// HTTPError is returned for any upstream response with status >= 400.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("tmsapi HTTP %d: %s", e.StatusCode, e.Body)
}

// Placement is the PATCH body that moves a trip or segment. A nil Day
// places the item in the unplanned pool.
type Placement struct {
	ResourceUID *string `json:"resource"`
	Day         *string `json:"day"`
	Index       int     `json:"index"`
}

// NewPlacement converts a scheduler cell to its wire form.
func NewPlacement(cell scheduler.CellPayload) Placement {
	p := Placement{Index: cell.Index}
	if !cell.IsUnplanned() && cell.ResourceUID != "" {
		uid := cell.ResourceUID
		p.ResourceUID = &uid
	}
	if cell.Day != "" {
		day := cell.Day
		p.Day = &day
	}
	return p
}

type PingResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}
