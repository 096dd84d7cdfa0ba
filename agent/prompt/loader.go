package prompt

import (
	_ "embed"
	"strings"
)

var (
	//go:embed template/classifier.txt
	classifierRaw string

	//go:embed template/name.txt
	nameRaw string

	//go:embed template/background.txt
	backgroundRaw string

	//go:embed template/additional_info.txt
	additionalInfoRaw string

	//go:embed template/chatbot.txt
	chatbotRaw string
)

// PromptSet holds loaded prompt content.
type PromptSet struct {
	Classifier     string
	Name           string
	Background     string
	AdditionalInfo string
	Chatbot        string
}

// LoadPromptSet returns the embedded prompts, trimmed.
func LoadPromptSet() PromptSet {
	return PromptSet{
		Classifier:     strings.TrimSpace(classifierRaw),
		Name:           strings.TrimSpace(nameRaw),
		Background:     strings.TrimSpace(backgroundRaw),
		AdditionalInfo: strings.TrimSpace(additionalInfoRaw),
		Chatbot:        strings.TrimSpace(chatbotRaw),
	}
}
