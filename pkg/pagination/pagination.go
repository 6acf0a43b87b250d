package pagination

import (
	"fmt"
	"strconv"

	"marketchat-backend/pkg/constants"
)

// Params represents validated pagination query parameters.
// Page 1 is the most recent window; increasing pages walk backward in time.
type Params struct {
	Page   int
	Limit  int
	Offset int
}

// Parse parses page/limit query strings into validated Params
func Parse(pageStr, limitStr string) (*Params, error) {
	page := 1
	limit := constants.DefaultPageSize

	if pageStr != "" {
		p, err := strconv.Atoi(pageStr)
		if err != nil {
			return nil, fmt.Errorf("invalid page parameter: %w", err)
		}
		if p >= 1 {
			page = p
		}
	}

	if limitStr != "" {
		l, err := strconv.Atoi(limitStr)
		if err != nil {
			return nil, fmt.Errorf("invalid limit parameter: %w", err)
		}
		switch {
		case l < constants.MinPageSize:
			limit = constants.MinPageSize
		case l > constants.MaxPageSize:
			limit = constants.MaxPageSize
		default:
			limit = l
		}
	}

	return &Params{
		Page:   page,
		Limit:  limit,
		Offset: (page - 1) * limit,
	}, nil
}

// Normalize clamps already-parsed page/limit values into valid Params
func Normalize(page, limit int) *Params {
	if page < 1 {
		page = 1
	}
	switch {
	case limit < constants.MinPageSize:
		limit = constants.DefaultPageSize
	case limit > constants.MaxPageSize:
		limit = constants.MaxPageSize
	}

	return &Params{
		Page:   page,
		Limit:  limit,
		Offset: (page - 1) * limit,
	}
}

// HasMore reports whether an older page exists past the current window
func HasMore(total int64, page, limit int) bool {
	return int64(page*limit) < total
}
