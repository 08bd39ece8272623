package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/classnest/classnest-api/internal/models"
)

// TestResultRepository handles the append-only test result log.
type TestResultRepository struct {
	db *sqlx.DB
}

// NewTestResultRepository constructs the repository.
func NewTestResultRepository(db *sqlx.DB) *TestResultRepository {
	return &TestResultRepository{db: db}
}

// Create appends one result. There is deliberately no update or delete here;
// results are immutable after creation.
func (r *TestResultRepository) Create(ctx context.Context, result *models.TestResult) error {
	if result.ID == "" {
		result.ID = uuid.NewString()
	}
	if result.CreatedAt.IsZero() {
		result.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO test_results (id, student_id, subject_id, chapter, topic, score, difficulty, created_at)
        VALUES (:id, :student_id, :subject_id, :chapter, :topic, :score, :difficulty, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, result); err != nil {
		return fmt.Errorf("create test result: %w", err)
	}
	return nil
}

// ListByStudent returns a student's results, newest first.
func (r *TestResultRepository) ListByStudent(ctx context.Context, studentID string) ([]models.TestResultDetail, error) {
	const query = `SELECT t.id, t.student_id, t.subject_id, t.chapter, t.topic, t.score, t.difficulty, t.created_at,
        u.full_name AS student_name, s.name AS subject_name
        FROM test_results t
        JOIN student_profiles sp ON sp.id = t.student_id
        JOIN users u ON u.id = sp.user_id
        JOIN subjects s ON s.id = t.subject_id
        WHERE t.student_id = $1
        ORDER BY t.created_at DESC`
	var results []models.TestResultDetail
	if err := r.db.SelectContext(ctx, &results, query, studentID); err != nil {
		return nil, fmt.Errorf("list student results: %w", err)
	}
	return results, nil
}

// ListByClassroom returns every result recorded against the classroom's
// subject, newest first.
func (r *TestResultRepository) ListByClassroom(ctx context.Context, classroomID string) ([]models.TestResultDetail, error) {
	const query = `SELECT t.id, t.student_id, t.subject_id, t.chapter, t.topic, t.score, t.difficulty, t.created_at,
        u.full_name AS student_name, s.name AS subject_name
        FROM test_results t
        JOIN subjects s ON s.id = t.subject_id
        JOIN student_profiles sp ON sp.id = t.student_id
        JOIN users u ON u.id = sp.user_id
        WHERE s.classroom_id = $1
        ORDER BY t.created_at DESC`
	var results []models.TestResultDetail
	if err := r.db.SelectContext(ctx, &results, query, classroomID); err != nil {
		return nil, fmt.Errorf("list classroom results: %w", err)
	}
	return results, nil
}
