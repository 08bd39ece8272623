package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/classnest/classnest-api/internal/models"
	"github.com/classnest/classnest-api/pkg/export"
	appErrors "github.com/classnest/classnest-api/pkg/errors"
)

type testResultRepository interface {
	Create(ctx context.Context, result *models.TestResult) error
	ListByStudent(ctx context.Context, studentID string) ([]models.TestResultDetail, error)
	ListByClassroom(ctx context.Context, classroomID string) ([]models.TestResultDetail, error)
}

type studentReader interface {
	FindStudentByUserID(ctx context.Context, userID string) (*models.StudentProfile, error)
}

type subjectReader interface {
	FindByID(ctx context.Context, id string) (*models.Subject, error)
}

type renderFunc func(export.Dataset) ([]byte, error)

// TestResultService records scores and renders classroom reports. Results are
// append-only; the service exposes no update or delete path.
type TestResultService struct {
	results    testResultRepository
	subjects   subjectReader
	students   studentReader
	teachers   teacherReader
	classrooms classroomBinder
	notifier   NotificationProducer
	exporters  map[string]renderFunc
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewTestResultService constructs the service with CSV and PDF exporters.
func NewTestResultService(results testResultRepository, subjects subjectReader, students studentReader, teachers teacherReader, classrooms classroomBinder, notifier NotificationProducer, validate *validator.Validate, logger *zap.Logger) *TestResultService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TestResultService{
		results:    results,
		subjects:   subjects,
		students:   students,
		teachers:   teachers,
		classrooms: classrooms,
		notifier:   notifier,
		exporters: map[string]renderFunc{
			"csv": export.NewCSVExporter().Render,
			"pdf": func(d export.Dataset) ([]byte, error) {
				return export.NewPDFExporter().Render(d, "Classroom Test Results")
			},
		},
		validator: validate,
		logger:    logger,
	}
}

// SaveResultRequest is the score submission payload.
type SaveResultRequest struct {
	SubjectID  string                `json:"subject_id" validate:"required"`
	Chapter    string                `json:"chapter" validate:"required"`
	Topic      string                `json:"topic" validate:"required"`
	Score      float64               `json:"score" validate:"min=0,max=10"`
	Difficulty models.TestDifficulty `json:"difficulty" validate:"required"`
}

// Save appends one result for the calling student and drops a TEST_RESULT
// notification into their feed. The notification is best effort.
func (s *TestResultService) Save(ctx context.Context, userID string, req SaveResultRequest) (*models.TestResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid test result payload")
	}
	if !req.Difficulty.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown difficulty level")
	}

	student, err := s.students.FindStudentByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "no student profile")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student profile")
	}

	subject, err := s.subjects.FindByID(ctx, req.SubjectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}

	result := &models.TestResult{
		StudentID:  student.ID,
		SubjectID:  subject.ID,
		Chapter:    req.Chapter,
		Topic:      req.Topic,
		Score:      req.Score,
		Difficulty: req.Difficulty,
	}
	if err := s.results.Create(ctx, result); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save test result")
	}

	title := fmt.Sprintf("Test scored: %s", subject.Name)
	message := fmt.Sprintf("You scored %.1f/10 on %s (%s).", result.Score, result.Topic, result.Difficulty)
	if err := s.notifier.Notify(ctx, userID, models.NotificationTestResult, title, message, NotifyOptions{ClassroomID: &subject.ClassroomID}); err != nil {
		s.logger.Warn("test result saved but notification failed",
			zap.String("result_id", result.ID),
			zap.Error(err),
		)
	}
	return result, nil
}

// ListMine returns the calling student's results, newest first.
func (s *TestResultService) ListMine(ctx context.Context, userID string) ([]models.TestResultDetail, error) {
	student, err := s.students.FindStudentByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return []models.TestResultDetail{}, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student profile")
	}
	results, err := s.results.ListByStudent(ctx, student.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list test results")
	}
	return results, nil
}

// ExportClassroom renders every result against the classroom's subject as CSV
// or PDF. Only the owning teacher may export.
func (s *TestResultService) ExportClassroom(ctx context.Context, userID, classroomID, format string) ([]byte, string, error) {
	render, ok := s.exporters[format]
	if !ok {
		return nil, "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
	if _, err := s.ownedClassroom(ctx, userID, classroomID); err != nil {
		return nil, "", err
	}

	results, err := s.results.ListByClassroom(ctx, classroomID)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classroom results")
	}

	dataset := export.Dataset{
		Headers: []string{"Student", "Subject", "Chapter", "Topic", "Score", "Difficulty", "Recorded At"},
		Rows:    make([]map[string]string, 0, len(results)),
	}
	for _, r := range results {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Student":     r.StudentName,
			"Subject":     r.SubjectName,
			"Chapter":     r.Chapter,
			"Topic":       r.Topic,
			"Score":       strconv.FormatFloat(r.Score, 'f', 1, 64),
			"Difficulty":  string(r.Difficulty),
			"Recorded At": r.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	content, err := render(dataset)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	filename := fmt.Sprintf("results-%s.%s", classroomID, format)
	return content, filename, nil
}

func (s *TestResultService) ownedClassroom(ctx context.Context, userID, classroomID string) (*models.Classroom, error) {
	classroom, err := s.classrooms.FindByID(ctx, classroomID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "classroom not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classroom")
	}
	teacher, err := s.teachers.FindTeacherByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "not the classroom owner")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher profile")
	}
	if classroom.OwnerID != teacher.ID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not the classroom owner")
	}
	return classroom, nil
}
