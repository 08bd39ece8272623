package models

import (
	"time"

	"github.com/lib/pq"
)

// Subject is the structured syllabus record bound to exactly one classroom.
// The chapter set is replace-only after ingestion; there are no partial
// chapter edits.
type Subject struct {
	ID          string    `db:"id" json:"id"`
	ClassroomID string    `db:"classroom_id" json:"classroom_id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Chapter holds an ordered list of topic strings. Topics keep syllabus
// presentation order, not alphabetic order.
type Chapter struct {
	ID        string         `db:"id" json:"id"`
	SubjectID string         `db:"subject_id" json:"subject_id"`
	Position  int            `db:"position" json:"position"`
	Name      string         `db:"name" json:"name"`
	Topics    pq.StringArray `db:"topics" json:"topics"`
}

// SubjectDetail bundles a subject with its ordered chapters.
type SubjectDetail struct {
	Subject
	Chapters []Chapter `json:"chapters"`
}
