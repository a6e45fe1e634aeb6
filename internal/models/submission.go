package models

import "time"

// SubmissionAnswer is one question's answer as stored in the final record.
// JSON keys mirror the stored document format consumed by reporting tools.
type SubmissionAnswer struct {
	QuestionID   string   `json:"questionId"`
	QuestionText string   `json:"questionText"`
	TextAnswer   string   `json:"textAnswer"`
	AudioURLs    []string `json:"audioUrls"`
	HasAudio     bool     `json:"hasAudio"`
}

// SubmissionMetadata summarizes the answer set at submit time.
type SubmissionMetadata struct {
	TotalQuestions     int `json:"totalQuestions"`
	AnsweredQuestions  int `json:"answeredQuestions"`
	QuestionsWithAudio int `json:"questionsWithAudio"`
}

// Submission is the terminal, immutable record written to the document store.
// It is constructed once at submit time and never mutated afterwards.
type Submission struct {
	Timestamp   string             `json:"timestamp"`
	SubmittedAt time.Time          `json:"submittedAt"`
	Answers     []SubmissionAnswer `json:"answers"`
	Metadata    SubmissionMetadata `json:"metadata"`
}
