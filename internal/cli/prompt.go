package cli

import (
	"errors"

	"github.com/charmbracelet/huh"
)

// ErrAborted is returned by a Prompter when the user cancels input.
var ErrAborted = errors.New("input aborted")

// Prompter asks the user for input.
type Prompter interface {
	// Input asks for a line of text.
	Input(title, placeholder string) (string, error)

	// Select asks the user to pick one of options and returns it.
	Select(title string, options []string) (string, error)

	// Confirm asks a yes/no question.
	Confirm(title string) (bool, error)

	// Pause waits until the user is ready to continue.
	Pause() error
}

// HuhPrompter implements Prompter with charmbracelet/huh fields.
type HuhPrompter struct {
	// Accessible switches huh to plain line-based prompts.
	Accessible bool
}

func (p HuhPrompter) run(fields ...huh.Field) error {
	err := huh.NewForm(huh.NewGroup(fields...)).
		WithAccessible(p.Accessible).
		Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return ErrAborted
	}
	return err
}

func (p HuhPrompter) Input(title, placeholder string) (string, error) {
	var v string
	err := p.run(huh.NewInput().
		Title(title).
		Placeholder(placeholder).
		Value(&v))
	return v, err
}

func (p HuhPrompter) Select(title string, options []string) (string, error) {
	var v string
	err := p.run(huh.NewSelect[string]().
		Title(title).
		Options(huh.NewOptions(options...)...).
		Value(&v))
	return v, err
}

func (p HuhPrompter) Confirm(title string) (bool, error) {
	var ok bool
	err := p.run(huh.NewConfirm().
		Title(title).
		Value(&ok))
	return ok, err
}

func (p HuhPrompter) Pause() error {
	return p.run(huh.NewNote().
		Title("Press Enter to continue...").
		Next(true))
}
