package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/classnest/classnest-api/internal/models"
)

// ProfileRepository handles the role-specific profile records and their
// classroom back-references.
type ProfileRepository struct {
	db *sqlx.DB
}

// NewProfileRepository constructs the repository.
func NewProfileRepository(db *sqlx.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// EnsureTeacher creates the teacher profile on first use and returns it.
// The insert is idempotent; a unique index on user_id guarantees at most one
// profile per account.
func (r *ProfileRepository) EnsureTeacher(ctx context.Context, userID string) (*models.TeacherProfile, error) {
	const insert = `INSERT INTO teacher_profiles (id, user_id, created_at) VALUES ($1, $2, $3) ON CONFLICT (user_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, insert, uuid.NewString(), userID, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("ensure teacher profile: %w", err)
	}
	const query = `SELECT id, user_id, created_at FROM teacher_profiles WHERE user_id = $1`
	var profile models.TeacherProfile
	if err := r.db.GetContext(ctx, &profile, query, userID); err != nil {
		return nil, fmt.Errorf("load teacher profile: %w", err)
	}
	return &profile, nil
}

// EnsureStudent creates the student profile on first use and returns it.
func (r *ProfileRepository) EnsureStudent(ctx context.Context, userID string) (*models.StudentProfile, error) {
	const insert = `INSERT INTO student_profiles (id, user_id, created_at) VALUES ($1, $2, $3) ON CONFLICT (user_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, insert, uuid.NewString(), userID, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("ensure student profile: %w", err)
	}
	const query = `SELECT id, user_id, created_at FROM student_profiles WHERE user_id = $1`
	var profile models.StudentProfile
	if err := r.db.GetContext(ctx, &profile, query, userID); err != nil {
		return nil, fmt.Errorf("load student profile: %w", err)
	}
	return &profile, nil
}

// FindTeacherByUserID returns the teacher profile for an account.
func (r *ProfileRepository) FindTeacherByUserID(ctx context.Context, userID string) (*models.TeacherProfile, error) {
	const query = `SELECT id, user_id, created_at FROM teacher_profiles WHERE user_id = $1`
	var profile models.TeacherProfile
	if err := r.db.GetContext(ctx, &profile, query, userID); err != nil {
		return nil, err
	}
	return &profile, nil
}

// FindStudentByUserID returns the student profile for an account.
func (r *ProfileRepository) FindStudentByUserID(ctx context.Context, userID string) (*models.StudentProfile, error) {
	const query = `SELECT id, user_id, created_at FROM student_profiles WHERE user_id = $1`
	var profile models.StudentProfile
	if err := r.db.GetContext(ctx, &profile, query, userID); err != nil {
		return nil, err
	}
	return &profile, nil
}

// AppendTeacherClassroom adds a classroom to the teacher-side reference list.
// ON CONFLICT DO NOTHING keeps retries of the second linked-write step safe.
func (r *ProfileRepository) AppendTeacherClassroom(ctx context.Context, teacherID, classroomID string) error {
	const query = `INSERT INTO teacher_classrooms (teacher_id, classroom_id, added_at) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, teacherID, classroomID, time.Now().UTC()); err != nil {
		return fmt.Errorf("append teacher classroom: %w", err)
	}
	return nil
}

// AppendStudentClassroom adds a classroom to the student-side reference list.
func (r *ProfileRepository) AppendStudentClassroom(ctx context.Context, studentID, classroomID string) error {
	const query = `INSERT INTO student_classrooms (student_id, classroom_id, joined_at) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, studentID, classroomID, time.Now().UTC()); err != nil {
		return fmt.Errorf("append student classroom: %w", err)
	}
	return nil
}

// ListTeacherClassrooms returns the classrooms linked to a teacher profile in
// append order.
func (r *ProfileRepository) ListTeacherClassrooms(ctx context.Context, teacherID string) ([]models.Classroom, error) {
	const query = `SELECT c.id, c.owner_id, c.name, c.code, c.subject_id, c.created_at, c.updated_at
        FROM teacher_classrooms tc
        JOIN classrooms c ON c.id = tc.classroom_id
        WHERE tc.teacher_id = $1
        ORDER BY tc.added_at`
	var classrooms []models.Classroom
	if err := r.db.SelectContext(ctx, &classrooms, query, teacherID); err != nil {
		return nil, fmt.Errorf("list teacher classrooms: %w", err)
	}
	return classrooms, nil
}

// ListStudentClassrooms returns the classrooms a student joined in join order.
func (r *ProfileRepository) ListStudentClassrooms(ctx context.Context, studentID string) ([]models.Classroom, error) {
	const query = `SELECT c.id, c.owner_id, c.name, c.code, c.subject_id, c.created_at, c.updated_at
        FROM student_classrooms sc
        JOIN classrooms c ON c.id = sc.classroom_id
        WHERE sc.student_id = $1
        ORDER BY sc.joined_at`
	var classrooms []models.Classroom
	if err := r.db.SelectContext(ctx, &classrooms, query, studentID); err != nil {
		return nil, fmt.Errorf("list student classrooms: %w", err)
	}
	return classrooms, nil
}
