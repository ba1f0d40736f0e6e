package domain

import "time"

// ImageSource tells where an assigned image came from.
type ImageSource string

const (
	ImageSourceUpload  ImageSource = "upload"
	ImageSourceGemini  ImageSource = "gemini"
	ImageSourceWeb     ImageSource = "web"
	ImageSourceCentral ImageSource = "centralizadora"
)

// Valid reports whether s is a known source.
func (s ImageSource) Valid() bool {
	switch s {
	case ImageSourceUpload, ImageSourceGemini, ImageSourceWeb, ImageSourceCentral:
		return true
	}
	return false
}

// ImageAssignment records an image saved to a catalog product.
type ImageAssignment struct {
	ID         string      `gorm:"type:text;primaryKey" json:"id"`
	ProductID  int64       `gorm:"index;not null" json:"product_id"`
	Source     ImageSource `gorm:"type:text;not null" json:"source"`
	MimeType   string      `gorm:"type:text" json:"mime_type"`
	SizeBytes  int64       `json:"size_bytes"`
	Width      int         `json:"width"`
	Height     int         `json:"height"`
	MD5Hash    string      `gorm:"type:text;index" json:"md5_hash"`
	StorageKey string      `gorm:"type:text" json:"storage_key,omitempty"`
	StorageURL string      `gorm:"type:text" json:"storage_url,omitempty"`
	CreatedAt  time.Time   `gorm:"autoCreateTime" json:"created_at"`
}

// TableName returns the table name for ImageAssignment.
func (ImageAssignment) TableName() string {
	return "image_assignments"
}

// ObservationOrigin tells who wrote an observation.
type ObservationOrigin string

const (
	ObservationManual ObservationOrigin = "manual"
	ObservationGemini ObservationOrigin = "gemini"
)

// ObservationRevision records an observation saved to a catalog product.
type ObservationRevision struct {
	ID          string            `gorm:"type:text;primaryKey" json:"id"`
	ProductID   int64             `gorm:"index;not null" json:"product_id"`
	RTF         string            `gorm:"type:text;not null" json:"rtf"`
	HTMLPreview string            `gorm:"type:text" json:"html_preview"`
	Origin      ObservationOrigin `gorm:"type:text;not null" json:"origin"`
	CreatedAt   time.Time         `gorm:"autoCreateTime" json:"created_at"`
}

// TableName returns the table name for ObservationRevision.
func (ObservationRevision) TableName() string {
	return "observation_revisions"
}
