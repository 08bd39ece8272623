package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classnest/classnest-api/internal/models"
	appErrors "github.com/classnest/classnest-api/pkg/errors"
)

type mockClassroomRepo struct {
	classrooms     map[string]*models.Classroom
	members        map[string]map[string]bool
	createErr      error
	addMemberErr   error
	memberList     []models.Member
	memberListErr  error
	existsByCode   bool
	existsCodeErr  error
	bindSubjectErr error
	bindLoses      bool
}

func newMockClassroomRepo() *mockClassroomRepo {
	return &mockClassroomRepo{
		classrooms: make(map[string]*models.Classroom),
		members:    make(map[string]map[string]bool),
	}
}

func (m *mockClassroomRepo) FindByID(ctx context.Context, id string) (*models.Classroom, error) {
	if c, ok := m.classrooms[id]; ok {
		return c, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockClassroomRepo) FindByCode(ctx context.Context, code string) (*models.Classroom, error) {
	for _, c := range m.classrooms {
		if c.Code == code {
			return c, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockClassroomRepo) FindDetailByID(ctx context.Context, id string) (*models.ClassroomDetail, error) {
	c, err := m.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.ClassroomDetail{Classroom: *c}, nil
}

func (m *mockClassroomRepo) ExistsByCode(ctx context.Context, code string) (bool, error) {
	if m.existsCodeErr != nil {
		return false, m.existsCodeErr
	}
	if m.existsByCode {
		return true, nil
	}
	_, err := m.FindByCode(ctx, code)
	return err == nil, nil
}

func (m *mockClassroomRepo) Create(ctx context.Context, classroom *models.Classroom) error {
	if m.createErr != nil {
		return m.createErr
	}
	if classroom.ID == "" {
		classroom.ID = "cls1"
	}
	m.classrooms[classroom.ID] = classroom
	return nil
}

func (m *mockClassroomRepo) IsMember(ctx context.Context, classroomID, studentID string) (bool, error) {
	return m.members[classroomID][studentID], nil
}

func (m *mockClassroomRepo) AddMember(ctx context.Context, classroomID, studentID string) (bool, error) {
	if m.addMemberErr != nil {
		return false, m.addMemberErr
	}
	if m.members[classroomID] == nil {
		m.members[classroomID] = make(map[string]bool)
	}
	if m.members[classroomID][studentID] {
		return false, nil
	}
	m.members[classroomID][studentID] = true
	return true, nil
}

func (m *mockClassroomRepo) ListMembers(ctx context.Context, classroomID string) ([]models.Member, error) {
	if m.memberListErr != nil {
		return nil, m.memberListErr
	}
	return m.memberList, nil
}

func (m *mockClassroomRepo) BindSubject(ctx context.Context, classroomID, subjectID string) (bool, error) {
	if m.bindSubjectErr != nil {
		return false, m.bindSubjectErr
	}
	if m.bindLoses {
		return false, nil
	}
	c, ok := m.classrooms[classroomID]
	if !ok || c.SubjectID != nil {
		return false, nil
	}
	c.SubjectID = &subjectID
	return true, nil
}

type mockProfileRepo struct {
	teacherLinks      map[string][]string
	studentLinks      map[string][]string
	appendTeacherErr  error
	appendStudentErr  error
	teacherProfiles   map[string]*models.TeacherProfile
	studentProfiles   map[string]*models.StudentProfile
	missingTeacherFor map[string]bool
}

func newMockProfileRepo() *mockProfileRepo {
	return &mockProfileRepo{
		teacherLinks:      make(map[string][]string),
		studentLinks:      make(map[string][]string),
		teacherProfiles:   make(map[string]*models.TeacherProfile),
		studentProfiles:   make(map[string]*models.StudentProfile),
		missingTeacherFor: make(map[string]bool),
	}
}

func (m *mockProfileRepo) EnsureTeacher(ctx context.Context, userID string) (*models.TeacherProfile, error) {
	if p, ok := m.teacherProfiles[userID]; ok {
		return p, nil
	}
	p := &models.TeacherProfile{ID: "tp-" + userID, UserID: userID}
	m.teacherProfiles[userID] = p
	return p, nil
}

func (m *mockProfileRepo) EnsureStudent(ctx context.Context, userID string) (*models.StudentProfile, error) {
	if p, ok := m.studentProfiles[userID]; ok {
		return p, nil
	}
	p := &models.StudentProfile{ID: "sp-" + userID, UserID: userID}
	m.studentProfiles[userID] = p
	return p, nil
}

func (m *mockProfileRepo) FindTeacherByUserID(ctx context.Context, userID string) (*models.TeacherProfile, error) {
	if m.missingTeacherFor[userID] {
		return nil, sql.ErrNoRows
	}
	if p, ok := m.teacherProfiles[userID]; ok {
		return p, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockProfileRepo) AppendTeacherClassroom(ctx context.Context, teacherID, classroomID string) error {
	if m.appendTeacherErr != nil {
		return m.appendTeacherErr
	}
	m.teacherLinks[teacherID] = append(m.teacherLinks[teacherID], classroomID)
	return nil
}

func (m *mockProfileRepo) AppendStudentClassroom(ctx context.Context, studentID, classroomID string) error {
	if m.appendStudentErr != nil {
		return m.appendStudentErr
	}
	m.studentLinks[studentID] = append(m.studentLinks[studentID], classroomID)
	return nil
}

func (m *mockProfileRepo) ListTeacherClassrooms(ctx context.Context, teacherID string) ([]models.Classroom, error) {
	return nil, nil
}

func (m *mockProfileRepo) ListStudentClassrooms(ctx context.Context, studentID string) ([]models.Classroom, error) {
	return nil, nil
}

type mockInviteMarker struct {
	calls   int
	lastKey [2]string
	err     error
}

func (m *mockInviteMarker) MarkInvitationsRead(ctx context.Context, userID, classroomID string) (int64, error) {
	m.calls++
	m.lastKey = [2]string{userID, classroomID}
	if m.err != nil {
		return 0, m.err
	}
	return 1, nil
}

type mockAccountReader struct {
	byEmail map[string]*models.User
}

func (m *mockAccountReader) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if u, ok := m.byEmail[email]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAccountReader) FindByID(ctx context.Context, id string) (*models.User, error) {
	for _, u := range m.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

type mockNotifier struct {
	sent []struct {
		UserID string
		Type   models.NotificationType
	}
	err error
}

func (m *mockNotifier) Notify(ctx context.Context, accountID string, t models.NotificationType, title, message string, opts NotifyOptions) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, struct {
		UserID string
		Type   models.NotificationType
	}{accountID, t})
	return nil
}

type mockMailer struct {
	sent []string
	err  error
}

func (m *mockMailer) Send(ctx context.Context, toEmail, toName, subject, textBody string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, toEmail)
	return nil
}

func newClassroomService(classrooms *mockClassroomRepo, profiles *mockProfileRepo, users *mockAccountReader, notifier *mockNotifier, marker *mockInviteMarker, mail *mockMailer) *ClassroomService {
	return NewClassroomService(classrooms, profiles, users, notifier, marker, mail, nil, nil)
}

func TestCreateClassroomSuccess(t *testing.T) {
	classrooms := newMockClassroomRepo()
	profiles := newMockProfileRepo()
	svc := newClassroomService(classrooms, profiles, &mockAccountReader{}, &mockNotifier{}, &mockInviteMarker{}, &mockMailer{})

	classroom, warn, err := svc.CreateClassroom(context.Background(), "u1", CreateClassroomRequest{Name: "Algebra", Code: "ALG2025"})
	require.NoError(t, err)
	assert.Nil(t, warn)
	require.NotNil(t, classroom)
	assert.Equal(t, "ALG2025", classroom.Code)
	assert.Contains(t, profiles.teacherLinks["tp-u1"], classroom.ID)
}

func TestCreateClassroomDuplicateCode(t *testing.T) {
	classrooms := newMockClassroomRepo()
	classrooms.classrooms["existing"] = &models.Classroom{ID: "existing", Code: "ALG2025"}
	svc := newClassroomService(classrooms, newMockProfileRepo(), &mockAccountReader{}, &mockNotifier{}, &mockInviteMarker{}, &mockMailer{})

	_, _, err := svc.CreateClassroom(context.Background(), "u1", CreateClassroomRequest{Name: "Algebra", Code: "ALG2025"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrDuplicateCode))
}

func TestCreateClassroomOrphanedLinkWarns(t *testing.T) {
	classrooms := newMockClassroomRepo()
	profiles := newMockProfileRepo()
	profiles.appendTeacherErr = errors.New("link table down")
	svc := newClassroomService(classrooms, profiles, &mockAccountReader{}, &mockNotifier{}, &mockInviteMarker{}, &mockMailer{})

	classroom, warn, err := svc.CreateClassroom(context.Background(), "u1", CreateClassroomRequest{Name: "Algebra", Code: "ALG2025"})
	require.NoError(t, err)
	require.NotNil(t, classroom)
	require.NotNil(t, warn)
	assert.Equal(t, appErrors.ErrOrphanedLink.Code, warn.Code)
	// The classroom row itself survives; there is no rollback.
	assert.Contains(t, classrooms.classrooms, classroom.ID)
}

func TestJoinClassroomSuccessMarksInvitationsRead(t *testing.T) {
	classrooms := newMockClassroomRepo()
	classrooms.classrooms["cls1"] = &models.Classroom{ID: "cls1", Code: "ALG2025"}
	profiles := newMockProfileRepo()
	marker := &mockInviteMarker{}
	svc := newClassroomService(classrooms, profiles, &mockAccountReader{}, &mockNotifier{}, marker, &mockMailer{})

	classroom, warn, err := svc.JoinClassroom(context.Background(), "stu1", "ALG2025")
	require.NoError(t, err)
	assert.Nil(t, warn)
	assert.Equal(t, "cls1", classroom.ID)
	assert.True(t, classrooms.members["cls1"]["sp-stu1"])
	assert.Contains(t, profiles.studentLinks["sp-stu1"], "cls1")
	assert.Equal(t, 1, marker.calls)
	assert.Equal(t, [2]string{"stu1", "cls1"}, marker.lastKey)
}

func TestJoinClassroomUnknownCode(t *testing.T) {
	svc := newClassroomService(newMockClassroomRepo(), newMockProfileRepo(), &mockAccountReader{}, &mockNotifier{}, &mockInviteMarker{}, &mockMailer{})

	_, _, err := svc.JoinClassroom(context.Background(), "stu1", "NOPE")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestJoinClassroomTwiceIsAlreadyMember(t *testing.T) {
	classrooms := newMockClassroomRepo()
	classrooms.classrooms["cls1"] = &models.Classroom{ID: "cls1", Code: "ALG2025"}
	svc := newClassroomService(classrooms, newMockProfileRepo(), &mockAccountReader{}, &mockNotifier{}, &mockInviteMarker{}, &mockMailer{})

	_, _, err := svc.JoinClassroom(context.Background(), "stu1", "ALG2025")
	require.NoError(t, err)

	_, _, err = svc.JoinClassroom(context.Background(), "stu1", "ALG2025")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrAlreadyMember))
	// Membership stays exactly once.
	assert.Len(t, classrooms.members["cls1"], 1)
}

func TestJoinClassroomStudentLinkFailureWarnsButJoins(t *testing.T) {
	classrooms := newMockClassroomRepo()
	classrooms.classrooms["cls1"] = &models.Classroom{ID: "cls1", Code: "ALG2025"}
	profiles := newMockProfileRepo()
	profiles.appendStudentErr = errors.New("link table down")
	svc := newClassroomService(classrooms, profiles, &mockAccountReader{}, &mockNotifier{}, &mockInviteMarker{}, &mockMailer{})

	_, warn, err := svc.JoinClassroom(context.Background(), "stu1", "ALG2025")
	require.NoError(t, err)
	require.NotNil(t, warn)
	assert.Equal(t, appErrors.ErrOrphanedLink.Code, warn.Code)
	assert.True(t, classrooms.members["cls1"]["sp-stu1"])
}

func TestJoinClassroomInvitationMarkFailureIsIgnored(t *testing.T) {
	classrooms := newMockClassroomRepo()
	classrooms.classrooms["cls1"] = &models.Classroom{ID: "cls1", Code: "ALG2025"}
	marker := &mockInviteMarker{err: errors.New("notifications down")}
	svc := newClassroomService(classrooms, newMockProfileRepo(), &mockAccountReader{}, &mockNotifier{}, marker, &mockMailer{})

	_, warn, err := svc.JoinClassroom(context.Background(), "stu1", "ALG2025")
	require.NoError(t, err)
	assert.Nil(t, warn)
}

func TestInviteStudentsPerRecipientIsolation(t *testing.T) {
	classrooms := newMockClassroomRepo()
	classrooms.classrooms["cls1"] = &models.Classroom{ID: "cls1", OwnerID: "tp-u1", Name: "Algebra", Code: "ALG2025"}
	profiles := newMockProfileRepo()
	_, err := profiles.EnsureTeacher(context.Background(), "u1")
	require.NoError(t, err)

	users := &mockAccountReader{byEmail: map[string]*models.User{
		"known@example.com": {ID: "acc1", Email: "known@example.com"},
	}}
	notifier := &mockNotifier{}
	mail := &mockMailer{}
	svc := newClassroomService(classrooms, profiles, users, notifier, &mockInviteMarker{}, mail)

	summary, err := svc.InviteStudents(context.Background(), "u1", "cls1", InviteStudentsRequest{
		Emails: []string{"known@example.com", "stranger@example.com"},
	})
	require.NoError(t, err)
	require.Len(t, summary.Results, 2)

	// Registered recipient gets a notification, unregistered only mail.
	assert.True(t, summary.Results[0].Notified)
	assert.True(t, summary.Results[0].Mailed)
	assert.False(t, summary.Results[1].Notified)
	assert.True(t, summary.Results[1].Mailed)
	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, 0, summary.Failed)
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, models.NotificationInvitation, notifier.sent[0].Type)
}

func TestInviteStudentsNotOwner(t *testing.T) {
	classrooms := newMockClassroomRepo()
	classrooms.classrooms["cls1"] = &models.Classroom{ID: "cls1", OwnerID: "tp-owner"}
	profiles := newMockProfileRepo()
	_, err := profiles.EnsureTeacher(context.Background(), "intruder")
	require.NoError(t, err)
	svc := newClassroomService(classrooms, profiles, &mockAccountReader{}, &mockNotifier{}, &mockInviteMarker{}, &mockMailer{})

	_, err = svc.InviteStudents(context.Background(), "intruder", "cls1", InviteStudentsRequest{Emails: []string{"a@example.com"}})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}

func TestAnnounceFansOutToMembers(t *testing.T) {
	classrooms := newMockClassroomRepo()
	classrooms.classrooms["cls1"] = &models.Classroom{ID: "cls1", OwnerID: "tp-u1"}
	classrooms.memberList = []models.Member{
		{StudentID: "sp1", UserID: "stu1"},
		{StudentID: "sp2", UserID: "stu2"},
	}
	profiles := newMockProfileRepo()
	_, err := profiles.EnsureTeacher(context.Background(), "u1")
	require.NoError(t, err)
	notifier := &mockNotifier{}
	svc := newClassroomService(classrooms, profiles, &mockAccountReader{}, notifier, &mockInviteMarker{}, &mockMailer{})

	delivered, err := svc.Announce(context.Background(), "u1", "cls1", AnnounceRequest{Title: "Exam", Message: "Friday"})
	require.NoError(t, err)
	assert.Equal(t, 2, delivered)
	assert.Len(t, notifier.sent, 2)
}
