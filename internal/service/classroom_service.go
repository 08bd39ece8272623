package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/classnest/classnest-api/internal/mailer"
	"github.com/classnest/classnest-api/internal/models"
	"github.com/classnest/classnest-api/pkg/database"
	appErrors "github.com/classnest/classnest-api/pkg/errors"
)

type classroomRepository interface {
	FindByID(ctx context.Context, id string) (*models.Classroom, error)
	FindByCode(ctx context.Context, code string) (*models.Classroom, error)
	FindDetailByID(ctx context.Context, id string) (*models.ClassroomDetail, error)
	ExistsByCode(ctx context.Context, code string) (bool, error)
	Create(ctx context.Context, classroom *models.Classroom) error
	IsMember(ctx context.Context, classroomID, studentID string) (bool, error)
	AddMember(ctx context.Context, classroomID, studentID string) (bool, error)
	ListMembers(ctx context.Context, classroomID string) ([]models.Member, error)
}

type profileRepository interface {
	EnsureTeacher(ctx context.Context, userID string) (*models.TeacherProfile, error)
	EnsureStudent(ctx context.Context, userID string) (*models.StudentProfile, error)
	FindTeacherByUserID(ctx context.Context, userID string) (*models.TeacherProfile, error)
	AppendTeacherClassroom(ctx context.Context, teacherID, classroomID string) error
	AppendStudentClassroom(ctx context.Context, studentID, classroomID string) error
	ListTeacherClassrooms(ctx context.Context, teacherID string) ([]models.Classroom, error)
	ListStudentClassrooms(ctx context.Context, studentID string) ([]models.Classroom, error)
}

type invitationMarker interface {
	MarkInvitationsRead(ctx context.Context, userID, classroomID string) (int64, error)
}

type accountReader interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// ClassroomService enforces classroom, membership and invitation invariants.
// Every multi-write operation issues its writes in a fixed, documented order
// so partial failures land in a deterministic, reconcilable state.
type ClassroomService struct {
	classrooms classroomRepository
	profiles   profileRepository
	users      accountReader
	notifier   NotificationProducer
	inviteMark invitationMarker
	mail       mailer.Mailer
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewClassroomService constructs the service.
func NewClassroomService(classrooms classroomRepository, profiles profileRepository, users accountReader, notifier NotificationProducer, inviteMark invitationMarker, mail mailer.Mailer, validate *validator.Validate, logger *zap.Logger) *ClassroomService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassroomService{
		classrooms: classrooms,
		profiles:   profiles,
		users:      users,
		notifier:   notifier,
		inviteMark: inviteMark,
		mail:       mail,
		validator:  validate,
		logger:     logger,
	}
}

// CreateClassroomRequest describes classroom creation.
type CreateClassroomRequest struct {
	Name string `json:"name" validate:"required,max=120"`
	Code string `json:"code" validate:"required,min=4,max=16,alphanum"`
}

// CreateClassroom inserts the classroom first, then appends it to the
// teacher's classroom list. If the second step fails the classroom stays
// visible but unlinked; the returned warning reports that instead of hiding
// it behind a rollback we cannot perform.
func (s *ClassroomService) CreateClassroom(ctx context.Context, userID string, req CreateClassroomRequest) (*models.Classroom, *appErrors.Error, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid classroom payload")
	}

	teacher, err := s.profiles.EnsureTeacher(ctx, userID)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher profile")
	}

	taken, err := s.classrooms.ExistsByCode(ctx, req.Code)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check classroom code")
	}
	if taken {
		return nil, nil, appErrors.Clone(appErrors.ErrDuplicateCode, "")
	}

	classroom := &models.Classroom{OwnerID: teacher.ID, Name: req.Name, Code: req.Code}
	if err := s.classrooms.Create(ctx, classroom); err != nil {
		// The unique index turns the check-then-insert race into a clean
		// failure for the losing writer.
		if database.IsUniqueViolation(err, "classrooms_code_key") {
			return nil, nil, appErrors.Clone(appErrors.ErrDuplicateCode, "")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create classroom")
	}

	if err := s.profiles.AppendTeacherClassroom(ctx, teacher.ID, classroom.ID); err != nil {
		s.logger.Error("classroom created but teacher link failed",
			zap.String("classroom_id", classroom.ID),
			zap.String("teacher_id", teacher.ID),
			zap.Error(err),
		)
		return classroom, appErrors.Clone(appErrors.ErrOrphanedLink, "classroom created but not linked to teacher profile"), nil
	}
	return classroom, nil, nil
}

// JoinClassroom enrolls a student by join code. Writes go classroom side
// first, then student side, so the classroom view is the current cross-check
// after a crash in between. Marking invitations read afterwards is
// best-effort and never rolls back the join.
func (s *ClassroomService) JoinClassroom(ctx context.Context, userID, code string) (*models.Classroom, *appErrors.Error, error) {
	if code == "" {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "join code required")
	}

	student, err := s.profiles.EnsureStudent(ctx, userID)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student profile")
	}

	classroom, err := s.classrooms.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "no classroom with that code")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up classroom")
	}

	member, err := s.classrooms.IsMember(ctx, classroom.ID, student.ID)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check membership")
	}
	if member {
		return nil, nil, appErrors.Clone(appErrors.ErrAlreadyMember, "")
	}

	inserted, err := s.classrooms.AddMember(ctx, classroom.ID, student.ID)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to join classroom")
	}
	if !inserted {
		return nil, nil, appErrors.Clone(appErrors.ErrAlreadyMember, "")
	}

	var warn *appErrors.Error
	if err := s.profiles.AppendStudentClassroom(ctx, student.ID, classroom.ID); err != nil {
		s.logger.Error("membership added but student link failed",
			zap.String("classroom_id", classroom.ID),
			zap.String("student_id", student.ID),
			zap.Error(err),
		)
		warn = appErrors.Clone(appErrors.ErrOrphanedLink, "joined classroom but student-side link failed")
	}

	if _, err := s.inviteMark.MarkInvitationsRead(ctx, userID, classroom.ID); err != nil {
		s.logger.Warn("failed to mark invitations read after join",
			zap.String("classroom_id", classroom.ID),
			zap.String("user_id", userID),
			zap.Error(err),
		)
	}
	return classroom, warn, nil
}

// InviteRecipientResult is the per-recipient outcome of an invite batch.
type InviteRecipientResult struct {
	Email    string `json:"email"`
	Notified bool   `json:"notified"`
	Mailed   bool   `json:"mailed"`
	Error    string `json:"error,omitempty"`
}

// InviteSummary aggregates an invite batch.
type InviteSummary struct {
	Results   []InviteRecipientResult `json:"results"`
	Succeeded int                     `json:"succeeded"`
	Failed    int                     `json:"failed"`
}

// InviteStudentsRequest describes an invitation batch.
type InviteStudentsRequest struct {
	Emails []string `json:"emails" validate:"required,min=1,max=50,dive,email"`
}

// InviteStudents fans an invitation out to each address. Outcomes are
// independent per recipient and repeats are not deduplicated; each attempt
// produces its own notification and delivery.
func (s *ClassroomService) InviteStudents(ctx context.Context, userID, classroomID string, req InviteStudentsRequest) (*InviteSummary, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid invite payload")
	}

	classroom, err := s.ownedClassroom(ctx, userID, classroomID)
	if err != nil {
		return nil, err
	}

	summary := &InviteSummary{Results: make([]InviteRecipientResult, 0, len(req.Emails))}
	for _, email := range req.Emails {
		result := InviteRecipientResult{Email: email}

		account, err := s.users.FindByEmail(ctx, email)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			result.Error = "lookup failed"
			summary.Results = append(summary.Results, result)
			summary.Failed++
			s.logger.Warn("invite recipient lookup failed", zap.String("email", email), zap.Error(err))
			continue
		}

		if account != nil {
			actionURL := "/classrooms/join?code=" + classroom.Code
			notifyErr := s.notifier.Notify(ctx, account.ID, models.NotificationInvitation,
				"Classroom invitation",
				fmt.Sprintf("You have been invited to join %s. Use code %s.", classroom.Name, classroom.Code),
				NotifyOptions{ClassroomID: &classroom.ID, ActionURL: &actionURL},
			)
			if notifyErr != nil {
				s.logger.Warn("invite notification failed", zap.String("email", email), zap.Error(notifyErr))
			} else {
				result.Notified = true
			}
		}

		mailErr := s.mail.Send(ctx, email, "",
			fmt.Sprintf("Invitation to join %s", classroom.Name),
			fmt.Sprintf("You have been invited to join the classroom %q. Join with code %s.", classroom.Name, classroom.Code),
		)
		if mailErr != nil {
			s.logger.Warn("invite mail failed", zap.String("email", email), zap.Error(mailErr))
		} else {
			result.Mailed = true
		}

		if result.Notified || result.Mailed {
			summary.Succeeded++
		} else {
			result.Error = "delivery failed"
			summary.Failed++
		}
		summary.Results = append(summary.Results, result)
	}
	return summary, nil
}

// AnnounceRequest describes a classroom-wide announcement.
type AnnounceRequest struct {
	Title   string `json:"title" validate:"required,max=160"`
	Message string `json:"message" validate:"required"`
}

// Announce fans an announcement notification out to every classroom member.
// Like invitations, each delivery is isolated; one failure never aborts the
// rest of the batch.
func (s *ClassroomService) Announce(ctx context.Context, userID, classroomID string, req AnnounceRequest) (int, error) {
	if err := s.validator.Struct(req); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid announcement payload")
	}

	classroom, err := s.ownedClassroom(ctx, userID, classroomID)
	if err != nil {
		return 0, err
	}

	members, err := s.classrooms.ListMembers(ctx, classroom.ID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list members")
	}

	delivered := 0
	for _, member := range members {
		err := s.notifier.Notify(ctx, member.UserID, models.NotificationAnnouncement, req.Title, req.Message,
			NotifyOptions{ClassroomID: &classroom.ID})
		if err != nil {
			s.logger.Warn("announcement delivery failed",
				zap.String("classroom_id", classroom.ID),
				zap.String("user_id", member.UserID),
				zap.Error(err),
			)
			continue
		}
		delivered++
	}
	return delivered, nil
}

// Get returns a classroom with detail after verifying visibility is not a
// concern here (reads are open to authenticated members and owners).
func (s *ClassroomService) Get(ctx context.Context, classroomID string) (*models.ClassroomDetail, error) {
	detail, err := s.classrooms.FindDetailByID(ctx, classroomID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "classroom not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classroom")
	}
	return detail, nil
}

// Members lists the classroom's enrolled students.
func (s *ClassroomService) Members(ctx context.Context, classroomID string) ([]models.Member, error) {
	if _, err := s.Get(ctx, classroomID); err != nil {
		return nil, err
	}
	members, err := s.classrooms.ListMembers(ctx, classroomID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list members")
	}
	return members, nil
}

// ListOwn returns the classrooms linked to the requesting account, owned for
// teachers and joined for students.
func (s *ClassroomService) ListOwn(ctx context.Context, userID string, role models.UserRole) ([]models.Classroom, error) {
	switch role {
	case models.RoleTeacher:
		teacher, err := s.profiles.EnsureTeacher(ctx, userID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher profile")
		}
		classrooms, err := s.profiles.ListTeacherClassrooms(ctx, teacher.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classrooms")
		}
		return classrooms, nil
	case models.RoleStudent:
		student, err := s.profiles.EnsureStudent(ctx, userID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student profile")
		}
		classrooms, err := s.profiles.ListStudentClassrooms(ctx, student.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classrooms")
		}
		return classrooms, nil
	}
	return nil, appErrors.Clone(appErrors.ErrValidation, "unknown role")
}

// ownedClassroom loads a classroom and verifies the requesting account owns it.
func (s *ClassroomService) ownedClassroom(ctx context.Context, userID, classroomID string) (*models.Classroom, error) {
	classroom, err := s.classrooms.FindByID(ctx, classroomID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "classroom not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classroom")
	}
	teacher, err := s.profiles.FindTeacherByUserID(ctx, userID)
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
