package payments

import "strings"

type ReviewerPolicy interface {
	IsReviewer(id string) bool
}

// Reviewers is a fixed set of reviewer ids compared exactly.
type Reviewers map[string]struct{}

func NewReviewers(ids ...string) Reviewers {
	r := make(Reviewers, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			r[id] = struct{}{}
		}
	}
	return r
}

func (r Reviewers) IsReviewer(id string) bool {
	_, ok := r[id]
	return ok
}
