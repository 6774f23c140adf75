package search

import (
	"time"

	"github.com/WessleyAI/tourvec/engine/domain"
	"github.com/WessleyAI/tourvec/engine/filter"
)

// SearchRequest is the JSON body of a search over HTTP or NATS. Dates are
// YYYY-MM-DD calendar dates.
type SearchRequest struct {
	Question   string   `json:"question"`
	Cities     []string `json:"cities,omitempty"`
	Categories []string `json:"categories,omitempty"`
	StartDate  string   `json:"start_date,omitempty"`
	EndDate    string   `json:"end_date,omitempty"`
}

// Response carries the ordered names, or an error message on request/reply
// transports that have no status code.
type Response struct {
	Names []string `json:"names"`
	Error string   `json:"error,omitempty"`
}

// Options validates the request and converts it to filter options.
func (r SearchRequest) Options() (filter.Options, error) {
	if err := domain.ValidateQuestion(r.Question); err != nil {
		return filter.Options{}, err
	}
	opts := filter.Options{Cities: r.Cities, Categories: r.Categories}
	var err error
	if opts.StartDate, err = parseDay("start_date", r.StartDate); err != nil {
		return filter.Options{}, err
	}
	if opts.EndDate, err = parseDay("end_date", r.EndDate); err != nil {
		return filter.Options{}, err
	}
	return opts, nil
}

// Validate checks a rename request at the transport boundary.
func (r RenameRequest) Validate() error {
	return domain.ValidateQuestion(r.Question)
}

func parseDay(field, s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		return nil, domain.NewValidationError(-1, field, s, domain.ErrBadDate)
	}
	return &t, nil
}
