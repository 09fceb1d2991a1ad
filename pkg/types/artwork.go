package types

// Artwork is a single cataloged piece. Optional attributes are nil when unset.
// PrimaryImage is derived on read and never stored.
type Artwork struct {
	ID             int64    `json:"id"`
	Reference      string   `json:"reference"`
	Title          *string  `json:"title,omitempty"`
	Description    *string  `json:"description,omitempty"`
	Owner          *string  `json:"owner,omitempty"`
	Width          *float64 `json:"width,omitempty"`
	Height         *float64 `json:"height,omitempty"`
	Date           *string  `json:"date,omitempty"`
	CollectionID   *int64   `json:"collection_id,omitempty"`
	TypeID         *int64   `json:"type_id,omitempty"`
	PlaceID        *int64   `json:"place_id,omitempty"`
	PreviewImageID *int64   `json:"preview_image_id,omitempty"`

	PrimaryImage *ArtworkImage `json:"primary_image"`
}

// ArtworkInput carries the fields of a new artwork.
type ArtworkInput struct {
	Reference    string   `json:"reference" validate:"required"`
	Title        *string  `json:"title,omitempty"`
	Description  *string  `json:"description,omitempty"`
	Owner        *string  `json:"owner,omitempty"`
	Width        *float64 `json:"width,omitempty" validate:"omitempty,gt=0"`
	Height       *float64 `json:"height,omitempty" validate:"omitempty,gt=0"`
	Date         *string  `json:"date,omitempty"`
	CollectionID *int64   `json:"collection_id,omitempty"`
	TypeID       *int64   `json:"type_id,omitempty"`
	PlaceID      *int64   `json:"place_id,omitempty"`
}

// Patch is one field of a partial update. Set distinguishes "leave as is"
// from "assign"; Set with a nil Value clears a nullable column.
type Patch[T any] struct {
	Set   bool
	Value *T
}

// SetTo returns a patch assigning v.
func SetTo[T any](v T) Patch[T] {
	return Patch[T]{Set: true, Value: &v}
}

// Clear returns a patch assigning NULL.
func Clear[T any]() Patch[T] {
	return Patch[T]{Set: true}
}

// ArtworkUpdate is a partial update of an artwork. The preview image is not
// part of it: only the image lifecycle manager moves the preview pointer.
type ArtworkUpdate struct {
	Reference    Patch[string]
	Title        Patch[string]
	Description  Patch[string]
	Owner        Patch[string]
	Width        Patch[float64]
	Height       Patch[float64]
	Date         Patch[string]
	CollectionID Patch[int64]
	TypeID       Patch[int64]
	PlaceID      Patch[int64]
}

// Empty reports whether no field is set.
func (u ArtworkUpdate) Empty() bool {
	return !u.Reference.Set && !u.Title.Set && !u.Description.Set && !u.Owner.Set &&
		!u.Width.Set && !u.Height.Set && !u.Date.Set &&
		!u.CollectionID.Set && !u.TypeID.Set && !u.PlaceID.Set
}

// ArtworkFull is the detail projection of one artwork. Images are newest first.
type ArtworkFull struct {
	Artwork    Artwork        `json:"artwork"`
	Pigments   []Tag          `json:"pigments"`
	Papers     []Tag          `json:"papers"`
	Images     []ArtworkImage `json:"images"`
	Collection *Tag           `json:"collection"`
	Type       *Tag           `json:"type"`
	Place      *Tag           `json:"place"`
}

// YearCount is one bucket of the year aggregation.
type YearCount struct {
	Year  int `json:"year"`
	Count int `json:"count"`
}
