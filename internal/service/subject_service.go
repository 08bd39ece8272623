package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/classnest/classnest-api/internal/models"
	"github.com/classnest/classnest-api/internal/syllabus"
	"github.com/classnest/classnest-api/pkg/database"
	appErrors "github.com/classnest/classnest-api/pkg/errors"
)

// extractionInstructions is the fixed task prompt handed to the oracle along
// with the uploaded document.
const extractionInstructions = `Read the attached syllabus document and answer with a single JSON object ` +
	`of the form {"syllabusDescription": string, "chapters": [{"chapterName": string, "topics": [string]}]}. ` +
	`Keep chapters and topics in document order. Answer with the JSON object only.`

type subjectRepository interface {
	Create(ctx context.Context, subject *models.Subject) error
	AddChapter(ctx context.Context, chapter *models.Chapter) error
	FindByClassroom(ctx context.Context, classroomID string) (*models.Subject, error)
	FindDetailByID(ctx context.Context, id string) (*models.SubjectDetail, error)
	HasSubject(ctx context.Context, classroomID string) (bool, error)
	Delete(ctx context.Context, id string) error
}

type classroomBinder interface {
	FindByID(ctx context.Context, id string) (*models.Classroom, error)
	BindSubject(ctx context.Context, classroomID, subjectID string) (bool, error)
}

type teacherReader interface {
	FindTeacherByUserID(ctx context.Context, userID string) (*models.TeacherProfile, error)
}

type extractor interface {
	Extract(ctx context.Context, document []byte, instructions string) (string, error)
}

// extractionObserver counts extraction attempts by outcome.
type extractionObserver interface {
	ObserveExtraction(outcome string)
}

type nopExtractionObserver struct{}

func (nopExtractionObserver) ObserveExtraction(string) {}

const (
	extractionOutcomeOK          = "ok"
	extractionOutcomeUnavailable = "unavailable"
	extractionOutcomeMalformed   = "malformed"
)

// SubjectService creates subjects, manually or by document ingestion, and
// keeps the classroom-subject binding bidirectionally consistent.
type SubjectService struct {
	subjects   subjectRepository
	classrooms classroomBinder
	teachers   teacherReader
	oracle     extractor
	metrics    extractionObserver
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewSubjectService constructs the service.
func NewSubjectService(subjects subjectRepository, classrooms classroomBinder, teachers teacherReader, oracle extractor, metrics extractionObserver, validate *validator.Validate, logger *zap.Logger) *SubjectService {
	if metrics == nil {
		metrics = nopExtractionObserver{}
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubjectService{subjects: subjects, classrooms: classrooms, teachers: teachers, oracle: oracle, metrics: metrics, validator: validate, logger: logger}
}

// ChapterInput is one chapter of a manual subject payload.
type ChapterInput struct {
	Name   string   `json:"name" validate:"required"`
	Topics []string `json:"topics" validate:"required"`
}

// CreateSubjectRequest describes the manual creation payload.
type CreateSubjectRequest struct {
	Name        string         `json:"name" validate:"required,max=120"`
	Description string         `json:"description" validate:"required"`
	Chapters    []ChapterInput `json:"chapters"`
}

// Create binds a manually assembled subject to the classroom. A classroom
// holds at most one subject; the second writer of a concurrent pair fails
// with SUBJECT_EXISTS instead of overwriting.
func (s *SubjectService) Create(ctx context.Context, userID, classroomID string, req CreateSubjectRequest) (*models.SubjectDetail, *appErrors.Error, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subject payload")
	}

	normalized := &syllabus.Syllabus{
		Name:        req.Name,
		Description: req.Description,
		Chapters:    make([]syllabus.Chapter, 0, len(req.Chapters)),
	}
	for _, ch := range req.Chapters {
		chapter := syllabus.Chapter{Name: ch.Name, Topics: make([]string, 0, len(ch.Topics))}
		for _, topic := range ch.Topics {
			if cleaned := syllabus.CanonicalizeTopic(topic); cleaned != "" {
				chapter.Topics = append(chapter.Topics, cleaned)
			}
		}
		normalized.Chapters = append(normalized.Chapters, chapter)
	}
	return s.persist(ctx, userID, classroomID, normalized)
}

// Ingest runs the extraction pipeline: oracle call bounded by its configured
// timeout, sanitization, strict normalization, then persistence. Nothing is
// written unless the whole pipeline succeeds, so a retry starts from scratch.
func (s *SubjectService) Ingest(ctx context.Context, userID, classroomID string, document []byte, subjectName string) (*models.SubjectDetail, *appErrors.Error, error) {
	if subjectName == "" {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "subject name required")
	}
	if len(document) == 0 {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "document required")
	}

	classroom, err := s.ownedClassroom(ctx, userID, classroomID)
	if err != nil {
		return nil, nil, err
	}
	if classroom.SubjectID != nil {
		return nil, nil, appErrors.Clone(appErrors.ErrSubjectExists, "")
	}

	rawText, err := s.oracle.Extract(ctx, document, extractionInstructions)
	if err != nil {
		s.metrics.ObserveExtraction(extractionOutcomeUnavailable)
		return nil, nil, err
	}

	normalized, err := syllabus.Normalize(rawText, subjectName)
	if err != nil {
		s.metrics.ObserveExtraction(extractionOutcomeMalformed)
		return nil, nil, err
	}
	s.metrics.ObserveExtraction(extractionOutcomeOK)
	return s.persist(ctx, userID, classroomID, normalized)
}

// Get returns the subject bound to a classroom with its chapters.
func (s *SubjectService) Get(ctx context.Context, classroomID string) (*models.SubjectDetail, error) {
	subject, err := s.subjects.FindByClassroom(ctx, classroomID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "classroom has no subject")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
	detail, err := s.subjects.FindDetailByID(ctx, subject.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject detail")
	}
	return detail, nil
}

// persist writes the subject row, its chapters, and finally the classroom
// bind, in that order. The unique index on subjects.classroom_id converts a
// concurrent duplicate into SUBJECT_EXISTS for the loser; a failed bind after
// a committed subject row is the documented orphan mode and is reported, not
// masked.
func (s *SubjectService) persist(ctx context.Context, userID, classroomID string, normalized *syllabus.Syllabus) (*models.SubjectDetail, *appErrors.Error, error) {
	classroom, err := s.ownedClassroom(ctx, userID, classroomID)
	if err != nil {
		return nil, nil, err
	}
	if classroom.SubjectID != nil {
		return nil, nil, appErrors.Clone(appErrors.ErrSubjectExists, "")
	}
	taken, err := s.subjects.HasSubject(ctx, classroomID)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check classroom subject")
	}
	if taken {
		return nil, nil, appErrors.Clone(appErrors.ErrSubjectExists, "")
	}

	subject := &models.Subject{
		ClassroomID: classroomID,
		Name:        normalized.Name,
		Description: normalized.Description,
	}
	if err := s.subjects.Create(ctx, subject); err != nil {
		if database.IsUniqueViolation(err, "subjects_classroom_id_key") {
			return nil, nil, appErrors.Clone(appErrors.ErrSubjectExists, "")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create subject")
	}

	for i, ch := range normalized.Chapters {
		chapter := &models.Chapter{
			SubjectID: subject.ID,
			Position:  i,
			Name:      ch.Name,
			Topics:    pq.StringArray(ch.Topics),
		}
		if err := s.subjects.AddChapter(ctx, chapter); err != nil {
			// All-or-nothing from the caller's view: unwind the partial
			// subject so a retry starts clean.
			if delErr := s.subjects.Delete(ctx, subject.ID); delErr != nil {
				s.logger.Error("failed to unwind partial subject", zap.String("subject_id", subject.ID), zap.Error(delErr))
			}
			return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist chapters")
		}
	}

	bound, err := s.classrooms.BindSubject(ctx, classroomID, subject.ID)
	var warn *appErrors.Error
	switch {
	case err != nil:
		s.logger.Error("subject created but classroom bind failed",
			zap.String("subject_id", subject.ID),
			zap.String("classroom_id", classroomID),
			zap.Error(err),
		)
		warn = appErrors.Clone(appErrors.ErrOrphanedLink, "subject created but classroom reference not updated")
	case !bound:
		// Slot filled between our check and the bind. Our row lost; drop it.
		if delErr := s.subjects.Delete(ctx, subject.ID); delErr != nil {
			s.logger.Error("failed to unwind losing subject", zap.String("subject_id", subject.ID), zap.Error(delErr))
		}
		return nil, nil, appErrors.Clone(appErrors.ErrSubjectExists, "")
	}

	detail, err := s.subjects.FindDetailByID(ctx, subject.ID)
	if err != nil {
		return nil, warn, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject detail")
	}
	return detail, warn, nil
}

func (s *SubjectService) ownedClassroom(ctx context.Context, userID, classroomID string) (*models.Classroom, error) {
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
