package services

const (
	CrisisLineLabel    = "988 Suicide & Crisis Lifeline"
	CrisisLineURI      = "tel:988"
	CrisisShareMessage = "I'm feeling overwhelmed. Could you check in on me?"
)

type CrisisResources struct {
	Label        string `json:"label"`
	CallURI      string `json:"call_uri"`
	ShareMessage string `json:"share_message"`
}

func DefaultCrisisResources() CrisisResources {
	return CrisisResources{
		Label:        CrisisLineLabel,
		CallURI:      CrisisLineURI,
		ShareMessage: CrisisShareMessage,
	}
}
