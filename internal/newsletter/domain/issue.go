package domain

import "errors"

// Issue is a newsletter issue submitted to the publish endpoint.
type Issue struct {
	Title   string       `json:"title"`
	Content IssueContent `json:"content"`
}

// IssueContent carries both renderings of the issue body.
type IssueContent struct {
	HTML string `json:"html"`
	Text string `json:"text"`
}

var ErrInvalidIssue = errors.New("issue needs a title and at least one content body")

// Validate rejects issues that could not be delivered meaningfully.
func (i Issue) Validate() error {
	if i.Title == "" || (i.Content.HTML == "" && i.Content.Text == "") {
		return ErrInvalidIssue
	}
	return nil
}
