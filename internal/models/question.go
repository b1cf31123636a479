// internal/models/question.go
package models

// Question is the request-scoped input to the pipeline. It lives only for
// the duration of one request; everything derived from it does too.
type Question struct {
	Text          string   `json:"question"`
	ProductIDs    []string `json:"productIds,omitempty"`
	IndicatorKeys []string `json:"indicatorKeys,omitempty"`
	Model         string   `json:"model,omitempty"`
}

// Answer is the pipeline's response to one Question.
type Answer struct {
	Text string `json:"answer"`
}
