package model

import (
	"path"
	"time"
)

// UploadRecord is one entry of the upload history: the stored filename and the
// text recognized in it. Records are immutable once appended.
type UploadRecord struct {
	Filename    string    `json:"filename"`
	Text        string    `json:"text"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	Width       int       `json:"width,omitempty"`
	Height      int       `json:"height,omitempty"`
	Format      string    `json:"format,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// UploadView is an UploadRecord annotated for display.
// ImageURL is derived at read time and never stored.
type UploadView struct {
	UploadRecord
	ImageURL string `json:"image_url"`
}

// NewUploadView derives the display path "<prefix>/<filename>" for rec.
func NewUploadView(rec UploadRecord, prefix string) UploadView {
	if prefix == "" {
		prefix = "/"
	}
	return UploadView{
		UploadRecord: rec,
		ImageURL:     path.Join("/", prefix, rec.Filename),
	}
}
