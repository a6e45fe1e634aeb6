package models

// Question is one interview question. The set is fixed at process start and
// never mutated; Key is derived from the question's ordinal (q0, q1, ...).
type Question struct {
	Key  string `json:"id"`
	Text string `json:"text"`
}
