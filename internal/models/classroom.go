package models

import "time"

// Classroom is owned by exactly one teacher profile and holds a globally
// unique join code. SubjectID stays null until a subject is bound; the bind
// is one-way, there is no transition back to empty.
type Classroom struct {
	ID        string    `db:"id" json:"id"`
	OwnerID   string    `db:"owner_id" json:"owner_id"`
	Name      string    `db:"name" json:"name"`
	Code      string    `db:"code" json:"code"`
	SubjectID *string   `db:"subject_id" json:"subject_id,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ClassroomDetail decorates a classroom with its owner and member count.
type ClassroomDetail struct {
	Classroom
	OwnerName   string `db:"owner_name" json:"owner_name"`
	MemberCount int    `db:"member_count" json:"member_count"`
}

// Member is one entry of a classroom's enrolled-student set.
type Member struct {
	StudentID string    `db:"student_id" json:"student_id"`
	UserID    string    `db:"user_id" json:"user_id"`
	FullName  string    `db:"full_name" json:"full_name"`
	Username  string    `db:"username" json:"username"`
	JoinedAt  time.Time `db:"joined_at" json:"joined_at"`
}
