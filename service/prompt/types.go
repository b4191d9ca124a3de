package prompt

import "io"

type service struct {
	stdin io.ReadCloser
}

// PromptService gathers operator input. The tool has no flags; every
// decision in a run comes through one of these prompts.
type PromptService interface {
	Confirm(label string, defaultYes bool) (bool, error)
	Select(label string, items []string) (int, error)
	Input(label string, validate func(string) error) (string, error)
	Pause(label string)
}
