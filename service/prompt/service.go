package prompt

import (
	"errors"
	"os"

	"github.com/manifoldco/promptui"
)

func NewService() *service {
	return &service{stdin: os.Stdin}
}

// Confirm asks a yes/no question. Declining is an answer, not an error.
func (s *service) Confirm(label string, defaultYes bool) (bool, error) {
	p := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
		Stdin:     s.stdin,
	}
	if defaultYes {
		p.Default = "y"
	}
	_, err := p.Run()
	if err != nil {
		if errors.Is(err, promptui.ErrAbort) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *service) Select(label string, items []string) (int, error) {
	p := promptui.Select{
		Label: label,
		Items: items,
		Size:  10,
		Stdin: s.stdin,
	}
	idx, _, err := p.Run()
	return idx, err
}

func (s *service) Input(label string, validate func(string) error) (string, error) {
	p := promptui.Prompt{
		Label:    label,
		Validate: validate,
		Stdin:    s.stdin,
	}
	return p.Run()
}

func (s *service) Pause(label string) {
	p := promptui.Prompt{
		Label:       label,
		Stdin:       s.stdin,
		HideEntered: true,
	}
	_, _ = p.Run()
}
