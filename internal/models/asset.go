package models

import "time"

// AssetKind distinguishes the two classroom-owned asset tables.
type AssetKind string

const (
	AssetNote         AssetKind = "note"
	AssetVideoLecture AssetKind = "video_lecture"
)

// Asset is a classroom-owned record whose payload lives in external object
// storage under ObjectKey. The record is authoritative; the blob is not.
type Asset struct {
	ID          string    `db:"id" json:"id"`
	ClassroomID string    `db:"classroom_id" json:"classroom_id"`
	Title       string    `db:"title" json:"title"`
	ObjectKey   string    `db:"object_key" json:"object_key"`
	UploadedBy  string    `db:"uploaded_by" json:"uploaded_by"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
