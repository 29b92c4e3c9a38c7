package service

import (
	"testing"

	"github.com/google/uuid"
)

func TestGradeAnswersWeightsByMarks(t *testing.T) {
	q1 := uuid.New().String()
	q2 := uuid.New().String()
	q3 := uuid.New().String()

	answerKey := map[string]string{q1: "A", q2: "B", q3: "C"}
	marks := map[string]string{q1: "1", q2: "3", q3: "2"}
	answers := map[string]string{q1: "A", q2: "D"}

	graded, score, maxScore := gradeAnswers(answerKey, marks, answers)

	if maxScore != 6 {
		t.Fatalf("maxScore = %d, want 6", maxScore)
	}
	if score != 1 {
		t.Fatalf("score = %v, want 1 (only the 1-mark question is correct)", score)
	}
	if len(graded) != 2 {
		t.Fatalf("graded %d answers, want 2 (unanswered questions get no row)", len(graded))
	}

	for _, g := range graded {
		switch g.QuestionID.String() {
		case q1:
			if !g.Correct || g.MarksAwarded != 1 {
				t.Errorf("q1 graded %+v, want correct with 1 mark", g)
			}
		case q2:
			if g.Correct || g.MarksAwarded != 0 {
				t.Errorf("q2 graded %+v, want incorrect with 0 marks", g)
			}
		default:
			t.Errorf("unexpected graded question %s", g.QuestionID)
		}
	}
}

func TestGradeAnswersEmptyAttempt(t *testing.T) {
	q1 := uuid.New().String()
	answerKey := map[string]string{q1: "A"}
	marks := map[string]string{q1: "5"}

	graded, score, maxScore := gradeAnswers(answerKey, marks, nil)

	if len(graded) != 0 || score != 0 {
		t.Fatalf("graded=%d score=%v, want empty zero-score grading", len(graded), score)
	}
	if maxScore != 5 {
		t.Fatalf("maxScore = %d, want 5", maxScore)
	}
}

func TestGradeAnswersIgnoresUnknownQuestions(t *testing.T) {
	q1 := uuid.New().String()
	answerKey := map[string]string{q1: "A"}
	marks := map[string]string{q1: "2"}
	answers := map[string]string{q1: "A", uuid.New().String(): "B"}

	graded, score, _ := gradeAnswers(answerKey, marks, answers)

	if len(graded) != 1 {
		t.Fatalf("graded %d answers, want 1 (answers outside the key are dropped)", len(graded))
	}
	if score != 2 {
		t.Fatalf("score = %v, want 2", score)
	}
}
