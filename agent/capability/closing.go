package capability

import (
	"strings"

	statex "github.com/Dispatch-AI-com/AI/agent/state"
)

// ClosingMessage builds the final spoken message once all three fields are
// collected. Pure function of the caller's name and the classified intent.
func ClosingMessage(callerName string, intent statex.IntentType) string {
	namePart := ""
	if name := strings.TrimSpace(callerName); name != "" && name != statex.NotProvided {
		namePart = ", " + name
	}

	switch intent {
	case statex.IntentOpportunity:
		return "Thank you so much for reaching out" + namePart + ". " +
			"I've recorded all your information and our team will contact you shortly to discuss this opportunity further. " +
			"We appreciate your interest. Have a great day!"
	case statex.IntentOther:
		return "Thank you for calling" + namePart + ". " +
			"I've recorded your inquiry and our team will review it carefully. " +
			"Someone from our office will get back to you as soon as possible. " +
			"Have a good day!"
	default:
		return "Thank you for your call" + namePart + ". " +
			"I've noted your information and our team will follow up with you shortly. " +
			"Have a great day!"
	}
}
