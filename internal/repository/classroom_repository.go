package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/classnest/classnest-api/internal/models"
)

// ClassroomRepository manages classrooms and the classroom-side half of the
// membership link.
type ClassroomRepository struct {
	db *sqlx.DB
}

// NewClassroomRepository constructs the repository.
func NewClassroomRepository(db *sqlx.DB) *ClassroomRepository {
	return &ClassroomRepository{db: db}
}

// FindByID returns a classroom by id.
func (r *ClassroomRepository) FindByID(ctx context.Context, id string) (*models.Classroom, error) {
	const query = `SELECT id, owner_id, name, code, subject_id, created_at, updated_at FROM classrooms WHERE id = $1`
	var classroom models.Classroom
	if err := r.db.GetContext(ctx, &classroom, query, id); err != nil {
		return nil, err
	}
	return &classroom, nil
}

// FindByCode returns a classroom by its join code.
func (r *ClassroomRepository) FindByCode(ctx context.Context, code string) (*models.Classroom, error) {
	const query = `SELECT id, owner_id, name, code, subject_id, created_at, updated_at FROM classrooms WHERE code = $1 LIMIT 1`
	var classroom models.Classroom
	if err := r.db.GetContext(ctx, &classroom, query, code); err != nil {
		return nil, err
	}
	return &classroom, nil
}

// FindDetailByID returns a classroom with owner naming and member count.
func (r *ClassroomRepository) FindDetailByID(ctx context.Context, id string) (*models.ClassroomDetail, error) {
	const query = `SELECT c.id, c.owner_id, c.name, c.code, c.subject_id, c.created_at, c.updated_at,
        u.full_name AS owner_name,
        (SELECT COUNT(*) FROM classroom_members m WHERE m.classroom_id = c.id) AS member_count
        FROM classrooms c
        JOIN teacher_profiles tp ON tp.id = c.owner_id
        JOIN users u ON u.id = tp.user_id
        WHERE c.id = $1`
	var detail models.ClassroomDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ExistsByCode checks whether a classroom already uses the join code.
func (r *ClassroomRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	const query = `SELECT 1 FROM classrooms WHERE code = $1 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, code); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check classroom code: %w", err)
	}
	return true, nil
}

// Create inserts a classroom. The unique index on code converts a concurrent
// duplicate into a pq unique violation for the losing writer.
func (r *ClassroomRepository) Create(ctx context.Context, classroom *models.Classroom) error {
	if classroom.ID == "" {
		classroom.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if classroom.CreatedAt.IsZero() {
		classroom.CreatedAt = now
	}
	classroom.UpdatedAt = now

	const query = `INSERT INTO classrooms (id, owner_id, name, code, subject_id, created_at, updated_at)
        VALUES (:id, :owner_id, :name, :code, :subject_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, classroom); err != nil {
		return fmt.Errorf("create classroom: %w", err)
	}
	return nil
}

// IsMember reports whether the student is in the classroom's member set.
func (r *ClassroomRepository) IsMember(ctx context.Context, classroomID, studentID string) (bool, error) {
	const query = `SELECT 1 FROM classroom_members WHERE classroom_id = $1 AND student_id = $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, classroomID, studentID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check membership: %w", err)
	}
	return true, nil
}

// AddMember writes the classroom-side half of the symmetric membership link.
// This side is written first so it is the authoritative cross-check when
// reconciling a crash between the two writes. Returns false when the student
// was already present.
func (r *ClassroomRepository) AddMember(ctx context.Context, classroomID, studentID string) (bool, error) {
	const query = `INSERT INTO classroom_members (classroom_id, student_id, joined_at) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`
	res, err := r.db.ExecContext(ctx, query, classroomID, studentID, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("add classroom member: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("add classroom member: %w", err)
	}
	return affected == 1, nil
}

// ListMembers returns the enrolled students in join order.
func (r *ClassroomRepository) ListMembers(ctx context.Context, classroomID string) ([]models.Member, error) {
	const query = `SELECT m.student_id, u.id AS user_id, u.full_name, u.username, m.joined_at
        FROM classroom_members m
        JOIN student_profiles sp ON sp.id = m.student_id
        JOIN users u ON u.id = sp.user_id
        WHERE m.classroom_id = $1
        ORDER BY m.joined_at`
	var members []models.Member
	if err := r.db.SelectContext(ctx, &members, query, classroomID); err != nil {
		return nil, fmt.Errorf("list classroom members: %w", err)
	}
	return members, nil
}

// BindSubject sets the classroom's subject slot. The slot is filled at most
// once: the guard on subject_id IS NULL makes a losing concurrent writer see
// zero affected rows instead of overwriting.
func (r *ClassroomRepository) BindSubject(ctx context.Context, classroomID, subjectID string) (bool, error) {
	const query = `UPDATE classrooms SET subject_id = $2, updated_at = $3 WHERE id = $1 AND subject_id IS NULL`
	res, err := r.db.ExecContext(ctx, query, classroomID, subjectID, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("bind classroom subject: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("bind classroom subject: %w", err)
	}
	return affected == 1, nil
}
