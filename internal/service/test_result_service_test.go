package service

import (
	"bytes"
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classnest/classnest-api/internal/models"
	appErrors "github.com/classnest/classnest-api/pkg/errors"
)

type mockResultRepo struct {
	results   []models.TestResult
	createErr error
	details   []models.TestResultDetail
}

func (m *mockResultRepo) Create(ctx context.Context, result *models.TestResult) error {
	if m.createErr != nil {
		return m.createErr
	}
	result.ID = "res1"
	m.results = append(m.results, *result)
	return nil
}

func (m *mockResultRepo) ListByStudent(ctx context.Context, studentID string) ([]models.TestResultDetail, error) {
	return m.details, nil
}

func (m *mockResultRepo) ListByClassroom(ctx context.Context, classroomID string) ([]models.TestResultDetail, error) {
	return m.details, nil
}

type mockSubjectReader struct {
	subjects map[string]*models.Subject
}

func (m *mockSubjectReader) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	if s, ok := m.subjects[id]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

type mockStudentReader struct {
	profiles map[string]*models.StudentProfile
}

func (m *mockStudentReader) FindStudentByUserID(ctx context.Context, userID string) (*models.StudentProfile, error) {
	if p, ok := m.profiles[userID]; ok {
		return p, nil
	}
	return nil, sql.ErrNoRows
}

func resultFixture(t *testing.T) (*TestResultService, *mockResultRepo, *mockNotifier) {
	t.Helper()
	results := &mockResultRepo{}
	subjects := &mockSubjectReader{subjects: map[string]*models.Subject{
		"sub1": {ID: "sub1", ClassroomID: "cls1", Name: "Physics"},
	}}
	students := &mockStudentReader{profiles: map[string]*models.StudentProfile{
		"stu1": {ID: "sp1", UserID: "stu1"},
	}}
	classrooms := newMockClassroomRepo()
	classrooms.classrooms["cls1"] = &models.Classroom{ID: "cls1", OwnerID: "tp-u1"}
	profiles := newMockProfileRepo()
	_, err := profiles.EnsureTeacher(context.Background(), "u1")
	require.NoError(t, err)
	notifier := &mockNotifier{}
	svc := NewTestResultService(results, subjects, students, profiles, classrooms, notifier, nil, nil)
	return svc, results, notifier
}

func TestSaveResultNotifiesStudent(t *testing.T) {
	svc, results, notifier := resultFixture(t)

	result, err := svc.Save(context.Background(), "stu1", SaveResultRequest{
		SubjectID:  "sub1",
		Chapter:    "Kinematics",
		Topic:      "Velocity",
		Score:      8.5,
		Difficulty: models.DifficultyMedium,
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Len(t, results.results, 1)
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, models.NotificationTestResult, notifier.sent[0].Type)
	assert.Equal(t, "stu1", notifier.sent[0].UserID)
}

func TestSaveResultScoreBounds(t *testing.T) {
	svc, results, _ := resultFixture(t)

	for _, score := range []float64{-0.5, 10.5} {
		_, err := svc.Save(context.Background(), "stu1", SaveResultRequest{
			SubjectID:  "sub1",
			Chapter:    "c",
			Topic:      "t",
			Score:      score,
			Difficulty: models.DifficultyEasy,
		})
		require.Error(t, err, "score %v", score)
		assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
	}
	assert.Empty(t, results.results)
}

func TestSaveResultUnknownDifficulty(t *testing.T) {
	svc, results, _ := resultFixture(t)

	_, err := svc.Save(context.Background(), "stu1", SaveResultRequest{
		SubjectID:  "sub1",
		Chapter:    "c",
		Topic:      "t",
		Score:      5,
		Difficulty: models.TestDifficulty("impossible"),
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
	assert.Empty(t, results.results)
}

func TestExportClassroomCSV(t *testing.T) {
	svc, results, _ := resultFixture(t)
	results.details = []models.TestResultDetail{
		{
			TestResult:  models.TestResult{Chapter: "Kinematics", Topic: "Velocity", Score: 8.5, Difficulty: models.DifficultyMedium},
			StudentName: "Alice Student",
			SubjectName: "Physics",
		},
	}

	content, filename, err := svc.ExportClassroom(context.Background(), "u1", "cls1", "csv")
	require.NoError(t, err)
	assert.Equal(t, "results-cls1.csv", filename)
	assert.True(t, bytes.Contains(content, []byte("Alice Student")))
	assert.True(t, bytes.Contains(content, []byte("8.5")))
}

func TestExportClassroomUnknownFormat(t *testing.T) {
	svc, _, _ := resultFixture(t)
	_, _, err := svc.ExportClassroom(context.Background(), "u1", "cls1", "xlsx")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestExportClassroomRequiresOwnership(t *testing.T) {
	svc, _, _ := resultFixture(t)
	_, _, err := svc.ExportClassroom(context.Background(), "intruder", "cls1", "csv")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}
