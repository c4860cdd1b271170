package editor

import (
	"context"

	"github.com/zulandar/assignyard/internal/assignment"
)

// LookupRequest is one page request for candidate resources.
type LookupRequest struct {
	Offset    int
	PageSize  int
	Query     string
	SiteID    string
	CompanyID string
	ProjectID string
}

// Page is one page of lookup results. Count is the total number of matches.
type Page struct {
	Count int64            `json:"count"`
	Items []assignment.Ref `json:"items"`
}

// ResourceLookup serves paged, searchable candidate resources.
type ResourceLookup interface {
	Resources(ctx context.Context, req LookupRequest) (Page, error)
}

// LookupResult completes an Interveners call.
type LookupResult struct {
	Page Page
	Err  error
}

// Interveners requests a page of resources assignable under the current
// context. The result is delivered once on the returned channel, which is
// then closed. Without a resource company the page is empty. Lookup errors
// are delivered unchanged.
func (e *Editor) Interveners(ctx context.Context, offset, pageSize int, query string) <-chan LookupResult {
	out := make(chan LookupResult, 1)
	company := e.ctx.ResourceCompany
	if company == nil {
		out <- LookupResult{Page: Page{Items: []assignment.Ref{}}}
		close(out)
		return out
	}
	if e.lookup == nil {
		out <- LookupResult{Err: ErrNoLookup}
		close(out)
		return out
	}

	req := LookupRequest{
		Offset:    offset,
		PageSize:  pageSize,
		Query:     query,
		CompanyID: company.ID,
	}
	if e.ctx.Site != nil {
		req.SiteID = e.ctx.Site.ID
	}
	if e.ctx.Project != nil {
		req.ProjectID = e.ctx.Project.ID
	}
	lookup := e.lookup
	go func() {
		defer close(out)
		page, err := lookup.Resources(ctx, req)
		out <- LookupResult{Page: page, Err: err}
	}()
	return out
}
