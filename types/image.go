package types

import (
	"fmt"
	"time"
)

// ThumbnailSize is the edge length, in pixels, of derived square thumbnails.
const ThumbnailSize = 300

// Image is one stored product photograph and its derived thumbnail.
type Image struct {
	// ID is derived as "<categoryId>_<sequence>", the sequence zero-padded to 6 digits.
	ID string `json:"id" db:"id"`

	// Name is the display name, defaulting to the uploaded file name.
	Name string `json:"name" db:"name"`

	// SizeBytes is the length of the original payload.
	SizeBytes int64 `json:"size" db:"size"`

	// ProductURL optionally links the image to a storefront product page.
	// It is globally unique when present.
	ProductURL *string `json:"productUrl" db:"product_url"`

	// ImageURL is the public path of the original file.
	ImageURL string `json:"imageUrl" db:"image_url"`

	// ThumbnailURL is the public path of the 300x300 thumbnail.
	ThumbnailURL string `json:"thumbnailUrl" db:"thumbnail_url"`

	// CategoryID references the owning category.
	CategoryID string `json:"categoryId" db:"category_id"`

	// OwnerUserID references the uploader.
	OwnerUserID int `json:"userId" db:"user_id"`

	// UploadedAt is the timestamp of the upload.
	UploadedAt time.Time `json:"uploadedAt" db:"uploaded_at"`
}

// CategoryRef is the short form of a category embedded in image views.
type CategoryRef struct {
	ID   string `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

// ImageDetail is an image row enriched with uploader and category summaries.
type ImageDetail struct {
	Image
	Uploader Creator     `json:"uploader" db:"uploader"`
	Category CategoryRef `json:"category" db:"category"`
}

// ImageID derives the catalog identifier of the seq-th image of a category.
func ImageID(categoryID string, seq int) string {
	return fmt.Sprintf("%s_%06d", categoryID, seq)
}
