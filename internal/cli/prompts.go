package cli

import (
	"fmt"
	"strings"

	"github.com/AlecAivazis/survey/v2"

	"github.com/healbuddy/backend/internal/model/language"
)

// PromptForLanguage asks the user to pick a reply language.
func PromptForLanguage(current string) (string, error) {
	langs := language.List()
	options := make([]string, 0, len(langs))
	defaultOption := ""
	for _, l := range langs {
		option := fmt.Sprintf("%s (%s)", l.Name, l.Native)
		options = append(options, option)
		if l.ID == language.Lookup(current).ID {
			defaultOption = option
		}
	}

	var selected string
	prompt := &survey.Select{
		Message: "Choose your language:",
		Options: options,
		Default: defaultOption,
	}
	if err := survey.AskOne(prompt, &selected); err != nil {
		return "", err
	}

	for _, l := range langs {
		if strings.HasPrefix(selected, l.Name+" ") {
			return l.ID, nil
		}
	}
	return language.Default().ID, nil
}
