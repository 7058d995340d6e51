package api

import (
	"github.com/starford/gebo/internal/annotation"
)

// SharePageRequest is the request body for sharing a page.
type SharePageRequest struct {
	Page string `json:"page" example:"Inbox" validate:"required"`
}

// PageStateResponse carries the encoded shared document for a page.
type PageStateResponse struct {
	Page     string               `json:"page" example:"Inbox" validate:"required"`
	Checksum string               `json:"checksum" example:"9f86d081..." validate:"required"`
	State    *annotation.Document `json:"state" validate:"required"`
}

// ApplyStateRequest is the request body for applying a remote document.
type ApplyStateRequest struct {
	State *annotation.Document `json:"state" validate:"required"`
}

// ApplyStateResponse reports the mutations performed by a reconcile.
type ApplyStateResponse struct {
	Page    string    `json:"page" example:"Inbox" validate:"required"`
	Applied []OpEntry `json:"applied" validate:"required"`
}

// OpEntry describes a single notebook mutation.
type OpEntry struct {
	Kind   string `json:"kind" example:"create" validate:"required"`
	Target string `json:"target" example:"8d3f2a1c" validate:"required"`
}

// PageListResponse wraps the list of shared pages.
type PageListResponse struct {
	Pages []string `json:"pages" validate:"required"`
	Total int      `json:"total" example:"3" validate:"required"`
}
