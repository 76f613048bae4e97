package pagination

const (
	DefaultLimit = 20
	MaxLimit     = 500
)

// Params holds pagination parameters taken from command flags.
type Params struct {
	Limit  int
	Offset int
}

// New clamps raw flag values into usable parameters. A non-positive limit
// falls back to defaultLimit, or DefaultLimit when that is unset too.
func New(limit, offset, defaultLimit int) Params {
	if defaultLimit <= 0 {
		defaultLimit = DefaultLimit
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return Params{Limit: limit, Offset: offset}
}

// Response wraps one page of results.
type Response struct {
	Data    interface{} `json:"data"`
	Total   int         `json:"total"`
	Limit   int         `json:"limit"`
	Offset  int         `json:"offset"`
	HasMore bool        `json:"has_more"`
}

func NewResponse(data interface{}, total, limit, offset int) *Response {
	return &Response{
		Data:    data,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: offset+limit < total,
	}
}

// Bounds returns the slice bounds of the page within total items.
func (p Params) Bounds(total int) (start, end int) {
	start = p.Offset
	if start > total {
		start = total
	}
	end = start + p.Limit
	if end > total {
		end = total
	}
	return start, end
}

// Page cuts the page described by p out of items.
func Page[T any](items []T, p Params) ([]T, *Response) {
	start, end := p.Bounds(len(items))
	page := items[start:end]
	return page, NewResponse(page, len(items), p.Limit, p.Offset)
}

// HasNext returns true if there are more results after the current page.
func (p Params) HasNext(total int) bool {
	return p.Offset+p.Limit < total
}

// HasPrevious returns true if there are results before the current page.
func (p Params) HasPrevious() bool {
	return p.Offset > 0
}

// NextOffset returns the offset for the next page.
func (p Params) NextOffset() int {
	return p.Offset + p.Limit
}

// PreviousOffset returns the offset for the previous page.
// Returns 0 if the result would be negative.
func (p Params) PreviousOffset() int {
	prev := p.Offset - p.Limit
	if prev < 0 {
		return 0
	}
	return prev
}
