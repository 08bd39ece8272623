package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/classnest/classnest-api/internal/models"
)

// SubjectRepository handles persistence of subjects and their chapters.
type SubjectRepository struct {
	db *sqlx.DB
}

// NewSubjectRepository constructs the repository.
func NewSubjectRepository(db *sqlx.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

// Create inserts the subject row. The unique index on classroom_id is the
// storage-level backstop for one-subject-per-classroom; a concurrent
// duplicate surfaces as a pq unique violation.
func (r *SubjectRepository) Create(ctx context.Context, subject *models.Subject) error {
	if subject.ID == "" {
		subject.ID = uuid.NewString()
	}
	if subject.CreatedAt.IsZero() {
		subject.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO subjects (id, classroom_id, name, description, created_at)
        VALUES (:id, :classroom_id, :name, :description, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, subject); err != nil {
		return fmt.Errorf("create subject: %w", err)
	}
	return nil
}

// AddChapter appends one chapter row at the given position.
func (r *SubjectRepository) AddChapter(ctx context.Context, chapter *models.Chapter) error {
	if chapter.ID == "" {
		chapter.ID = uuid.NewString()
	}
	if chapter.Topics == nil {
		chapter.Topics = pq.StringArray{}
	}
	const query = `INSERT INTO chapters (id, subject_id, position, name, topics) VALUES ($1, $2, $3, $4, $5)`
	if _, err := r.db.ExecContext(ctx, query, chapter.ID, chapter.SubjectID, chapter.Position, chapter.Name, chapter.Topics); err != nil {
		return fmt.Errorf("add chapter: %w", err)
	}
	return nil
}

// FindByID returns a subject by id.
func (r *SubjectRepository) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	const query = `SELECT id, classroom_id, name, description, created_at FROM subjects WHERE id = $1`
	var subject models.Subject
	if err := r.db.GetContext(ctx, &subject, query, id); err != nil {
		return nil, err
	}
	return &subject, nil
}

// FindByClassroom returns the subject bound to a classroom, if any.
func (r *SubjectRepository) FindByClassroom(ctx context.Context, classroomID string) (*models.Subject, error) {
	const query = `SELECT id, classroom_id, name, description, created_at FROM subjects WHERE classroom_id = $1 LIMIT 1`
	var subject models.Subject
	if err := r.db.GetContext(ctx, &subject, query, classroomID); err != nil {
		return nil, err
	}
	return &subject, nil
}

// FindDetailByID returns a subject with its chapters in syllabus order.
func (r *SubjectRepository) FindDetailByID(ctx context.Context, id string) (*models.SubjectDetail, error) {
	subject, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	chapters, err := r.ListChapters(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.SubjectDetail{Subject: *subject, Chapters: chapters}, nil
}

// ListChapters returns a subject's chapters ordered by position.
func (r *SubjectRepository) ListChapters(ctx context.Context, subjectID string) ([]models.Chapter, error) {
	const query = `SELECT id, subject_id, position, name, topics FROM chapters WHERE subject_id = $1 ORDER BY position`
	var chapters []models.Chapter
	if err := r.db.SelectContext(ctx, &chapters, query, subjectID); err != nil {
		return nil, fmt.Errorf("list chapters: %w", err)
	}
	return chapters, nil
}

// Delete removes a subject row and, through cascading, its chapters. Only
// used when rolling back a failed ingestion before the classroom bind.
func (r *SubjectRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM subjects WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete subject: %w", err)
	}
	return nil
}

// HasSubject reports whether the classroom already owns a subject.
func (r *SubjectRepository) HasSubject(ctx context.Context, classroomID string) (bool, error) {
	const query = `SELECT 1 FROM subjects WHERE classroom_id = $1 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, classroomID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check classroom subject: %w", err)
	}
	return true, nil
}
