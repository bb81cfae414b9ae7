package app

import "quizwale-service/internal/domain"

// Scored is the outcome of grading a set of answers against a quiz.
type Scored struct {
	Answers        []domain.AnswerRecord
	Score          int
	Percentage     int
	TotalQuestions int
}

// scoreAnswers grades answers index-for-index against the quiz's stored
// correct answers. Missing answers count as incorrect; answers beyond the
// question count are ignored.
func scoreAnswers(quiz domain.Quiz, answers []domain.AnswerInput) Scored {
	total := len(quiz.Questions)
	records := make([]domain.AnswerRecord, total)
	score := 0
	for i, question := range quiz.Questions {
		record := domain.AnswerRecord{QuestionIndex: i}
		if i < len(answers) {
			record.SelectedAnswer = answers[i].SelectedAnswer
			record.TimeSpent = answers[i].TimeSpent
			record.IsCorrect = record.SelectedAnswer == question.CorrectAnswer
		}
		if record.IsCorrect {
			score++
		}
		records[i] = record
	}
	return Scored{
		Answers:        records,
		Score:          score,
		Percentage:     percentage(score, total),
		TotalQuestions: total,
	}
}

// percentage is round(score/total*100) with halves rounded up, in integer math.
func percentage(score, total int) int {
	if total <= 0 {
		return 0
	}
	return roundDiv(100*score, total)
}

// buildReview joins quiz questions with the recorded answers. It must only be
// called after scoring.
func buildReview(quiz domain.Quiz, answers []domain.AnswerRecord) domain.Review {
	questions := make([]domain.ReviewQuestion, len(quiz.Questions))
	for i, q := range quiz.Questions {
		rq := domain.ReviewQuestion{
			QuestionText:  q.QuestionText,
			Options:       append([]string(nil), q.Options...),
			CorrectAnswer: q.CorrectAnswer,
			Explanation:   q.Explanation,
		}
		if i < len(answers) {
			rq.UserAnswer = answers[i].SelectedAnswer
			rq.IsCorrect = answers[i].IsCorrect
		}
		questions[i] = rq
	}
	return domain.Review{QuizID: quiz.ID, Title: quiz.Title, Questions: questions}
}
