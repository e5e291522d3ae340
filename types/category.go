package types

import "time"

// PresetCategoryID is the reserved category whose images are served as public presets.
const PresetCategoryID = "000000"

// Category is a named grouping of images (a floor type in the product catalog).
type Category struct {
	// ID is a fixed-width, zero-padded numeric code (e.g., "000005").
	ID string `json:"id" db:"id"`

	// Name is the globally unique (case-insensitive) display name.
	Name string `json:"name" db:"name"`

	// Slug is the folder name used for stored files. It is assigned once
	// when the category is created and is not recomputed on rename.
	Slug string `json:"slug" db:"slug"`

	// Description is an optional free-form text.
	Description *string `json:"description" db:"description"`

	// OwnerUserID references the user who owns the category.
	OwnerUserID int `json:"userId" db:"user_id"`

	// CreatedAt is the timestamp when the category was created.
	CreatedAt time.Time `json:"createdAt" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the category.
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// Creator summarizes the owner of a catalog entry.
type Creator struct {
	Name  string `json:"name" db:"name"`
	Email string `json:"email" db:"email"`
}

// CategorySummary is a category row enriched with owner and image aggregates.
type CategorySummary struct {
	Category
	Creator   Creator `json:"creator" db:"creator"`
	ImagesQty int     `json:"imagesQty" db:"images_qty"`
	TotalSize int64   `json:"totalSize" db:"total_size"`
}
