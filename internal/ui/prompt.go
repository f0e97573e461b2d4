package ui

import (
	"github.com/AlecAivazis/survey/v2"
)

// askOne is replaced in tests.
var askOne = survey.AskOne

// Confirm shows a yes/no prompt
func Confirm(message string, defaultValue bool) (bool, error) {
	result := defaultValue
	prompt := &survey.Confirm{
		Message: message,
		Default: defaultValue,
	}

	err := askOne(prompt, &result)
	return result, err
}

// Password displays a password input prompt
func Password(message, help string) (string, error) {
	var result string
	prompt := &survey.Password{
		Message: message,
		Help:    help,
	}

	err := askOne(prompt, &result, survey.WithValidator(survey.Required))
	return result, err
}
