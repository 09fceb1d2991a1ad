package types

// TagKind names one facet dimension.
type TagKind string

// Tag kinds. Collections, types and places are referenced by a nullable
// foreign key on the artwork; pigments and papers through join tables.
const (
	KindCollection TagKind = "collection"
	KindType       TagKind = "type"
	KindPlace      TagKind = "place"
	KindPigment    TagKind = "pigment"
	KindPaper      TagKind = "paper"
)

// TagKinds lists every kind in display order.
var TagKinds = []TagKind{KindCollection, KindType, KindPlace, KindPigment, KindPaper}

// Valid reports whether k is a known kind.
func (k TagKind) Valid() bool {
	for _, known := range TagKinds {
		if k == known {
			return true
		}
	}
	return false
}

// Tag is a collection, type, place, pigment or paper.
type Tag struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	Description  *string `json:"description,omitempty"`
	Date         *string `json:"date,omitempty"`
	ArtworkCount int     `json:"artwork_count"`
}

// TagInput carries the fields of a new tag. Description and Date are ignored
// for kinds that do not store them.
type TagInput struct {
	Name        string  `json:"name" validate:"required"`
	Description *string `json:"description,omitempty"`
	Date        *string `json:"date,omitempty"`
}

// TagUpdate is a partial update of a tag.
type TagUpdate struct {
	Name        Patch[string]
	Description Patch[string]
	Date        Patch[string]
}
