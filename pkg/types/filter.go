package types

// DateRange bounds the artwork date, inclusive. Empty bounds are open.
type DateRange struct {
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
}

// ArtworkFilter selects artworks. Fields combine with AND; values inside one
// multi-value field combine with OR. Empty slices and nil pointers mean
// "no filter on that dimension".
type ArtworkFilter struct {
	Query        string     `json:"query,omitempty"`
	Pigments     []int64    `json:"pigments,omitempty"`
	Papers       []int64    `json:"papers,omitempty"`
	CollectionID *int64     `json:"collectionId,omitempty"`
	TypeID       *int64     `json:"typeId,omitempty"`
	PlaceID      *int64     `json:"placeId,omitempty"`
	DateRange    *DateRange `json:"dateRange,omitempty"`
	Years        []int      `json:"years,omitempty"`

	NoCollection bool `json:"noCollection,omitempty"`
	NoType       bool `json:"noType,omitempty"`
	NoPlace      bool `json:"noPlace,omitempty"`
	NoPigments   bool `json:"noPigments,omitempty"`
	NoPapers     bool `json:"noPapers,omitempty"`

	Limit  *int `json:"limit,omitempty"`
	Offset *int `json:"offset,omitempty"`
}

// Paginated reports whether a limit or offset was requested.
func (f ArtworkFilter) Paginated() bool {
	return f.Limit != nil || f.Offset != nil
}

// ListResult is the outcome of an artwork listing. When Paginated is false
// the caller asked for a plain sequence and Total/HasMore are informational.
type ListResult struct {
	Items     []Artwork `json:"items"`
	Total     int       `json:"total"`
	HasMore   bool      `json:"hasMore"`
	Paginated bool      `json:"-"`
}
