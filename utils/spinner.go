package utils

import (
	"time"

	"github.com/briandowns/spinner"
)

var activeSpinner *spinner.Spinner

// StartSpinner shows a spinner with the given label while a remote call is
// in flight. Any previous spinner is stopped first.
func StartSpinner(label string) {
	StopSpinner()
	activeSpinner = spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	activeSpinner.Suffix = " " + label
	activeSpinner.Start()
}

func StopSpinner() {
	if activeSpinner != nil {
		activeSpinner.Stop()
		activeSpinner = nil
	}
}
