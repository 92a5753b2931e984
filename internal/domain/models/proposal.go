package models

// ProposalStatus tracks a proposal through its short client-side life.
type ProposalStatus string

const (
	ProposalPending  ProposalStatus = "pending"
	ProposalAccepted ProposalStatus = "accepted"
	ProposalRejected ProposalStatus = "rejected"
)

// Proposal is an AI-generated candidate edit held outside storage. It is
// built up while replacement content streams to the client and discarded
// on reject; only an explicit accept converts it into a version write.
type Proposal struct {
	DocumentID      string         `json:"id"`
	Title           string         `json:"title"`
	Kind            Kind           `json:"kind"`
	OriginalContent string         `json:"originalContent"`
	ProposedContent string         `json:"proposedContent"`
	Status          ProposalStatus `json:"status"`
}
