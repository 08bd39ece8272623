package models

import "time"

// TeacherProfile is the role-specific record holding a teacher's classrooms.
// At most one profile exists per account; creation is lazy on the first
// classroom-affecting action.
type TeacherProfile struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// StudentProfile is the student-side counterpart of TeacherProfile.
type StudentProfile struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
