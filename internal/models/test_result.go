package models

import "time"

// TestDifficulty enumerates supported difficulty levels.
type TestDifficulty string

const (
	DifficultyEasy   TestDifficulty = "easy"
	DifficultyMedium TestDifficulty = "medium"
	DifficultyHard   TestDifficulty = "hard"
)

// Valid reports whether the difficulty is one of the modeled levels.
func (d TestDifficulty) Valid() bool {
	return d == DifficultyEasy || d == DifficultyMedium || d == DifficultyHard
}

// TestResult is append-only; a row is never mutated after creation.
// Score is bounded to [0,10] both here and by a schema check.
type TestResult struct {
	ID         string         `db:"id" json:"id"`
	StudentID  string         `db:"student_id" json:"student_id"`
	SubjectID  string         `db:"subject_id" json:"subject_id"`
	Chapter    string         `db:"chapter" json:"chapter"`
	Topic      string         `db:"topic" json:"topic"`
	Score      float64        `db:"score" json:"score"`
	Difficulty TestDifficulty `db:"difficulty" json:"difficulty"`
	CreatedAt  time.Time      `db:"created_at" json:"created_at"`
}

// TestResultDetail joins a result with student naming for reports.
type TestResultDetail struct {
	TestResult
	StudentName string `db:"student_name" json:"student_name"`
	SubjectName string `db:"subject_name" json:"subject_name"`
}
