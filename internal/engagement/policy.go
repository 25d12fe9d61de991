package engagement

import (
	"slices"

	"github.com/taskmate/taskmate/internal/model"
)

// Policy configures how a subject kind handles engagements.
type Policy struct {
	// CreatableFrom lists the subject statuses that accept a new pending
	// engagement. Closed never appears here.
	CreatableFrom []model.SubjectStatus

	// CompleteCloses closes the subject when an approved engagement is
	// completed. Set for calendar-bound kinds whose single booking is the
	// whole point of the post.
	CompleteCloses bool
}

// AllowsCreate reports whether a subject in the given status accepts a
// new engagement under this policy.
func (p Policy) AllowsCreate(status model.SubjectStatus) bool {
	return slices.Contains(p.CreatableFrom, status)
}

// defaultPolicies maps each subject kind to its lifecycle policy.
//
// Tasks admit counter-offers, so an assigned task still accepts new
// pending engagements. Swaps and volunteer slots accept claims only
// while open, and completing them closes the post.
var defaultPolicies = map[model.SubjectKind]Policy{
	model.KindTask: {
		CreatableFrom:  []model.SubjectStatus{model.SubjectOpen, model.SubjectPendingDecision, model.SubjectAssigned},
		CompleteCloses: false,
	},
	model.KindSwap: {
		CreatableFrom:  []model.SubjectStatus{model.SubjectOpen, model.SubjectPendingDecision},
		CompleteCloses: true,
	},
	model.KindVolunteer: {
		CreatableFrom:  []model.SubjectStatus{model.SubjectOpen, model.SubjectPendingDecision},
		CompleteCloses: true,
	},
}

// PolicyFor returns the policy for a subject kind. Unknown kinds get the
// most restrictive behavior: creatable only while open, complete closes.
func PolicyFor(kind model.SubjectKind) Policy {
	if p, ok := defaultPolicies[kind]; ok {
		return p
	}
	return Policy{
		CreatableFrom:  []model.SubjectStatus{model.SubjectOpen},
		CompleteCloses: true,
	}
}
