package ui

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
)

// ErrAborted is returned when the user interrupts a prompt (Ctrl-C/Ctrl-D).
var ErrAborted = errors.New("input aborted")

// Prompter wraps a readline instance for the interactive create/edit and
// profile-selection prompts.
type Prompter struct {
	rl *readline.Instance
}

// NewPrompter creates a prompter on the process terminal.
func NewPrompter() (*Prompter, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "> ",
		InterruptPrompt: "^C",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize prompt: %w", err)
	}
	return &Prompter{rl: rl}, nil
}

// Close releases the underlying terminal state.
func (p *Prompter) Close() error {
	return p.rl.Close()
}

func (p *Prompter) readLine(prompt string) (string, error) {
	p.rl.SetPrompt(prompt)
	line, err := p.rl.Readline()
	if err != nil {
		if err == readline.ErrInterrupt || err == io.EOF {
			return "", ErrAborted
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Input prompts for a value. With required set, empty answers re-prompt.
func (p *Prompter) Input(label string, required bool) (string, error) {
	for {
		value, err := p.readLine(label + ": ")
		if err != nil {
			return "", err
		}
		if value == "" && required {
			fmt.Println("This field is required. Please enter a value.")
			continue
		}
		return value, nil
	}
}

// InputWithDefault prompts for a value, falling back to def on an empty
// answer.
func (p *Prompter) InputWithDefault(label, def string) (string, error) {
	value, err := p.readLine(fmt.Sprintf("%s [%s]: ", label, def))
	if err != nil {
		return "", err
	}
	if value == "" {
		return def, nil
	}
	return value, nil
}

// OptionalInputWithCurrent prompts for an optional value, keeping the current
// one on an empty answer. Entering "none" clears the value.
func (p *Prompter) OptionalInputWithCurrent(label, current string) (string, error) {
	display := current
	if display == "" {
		display = "none"
	}
	value, err := p.readLine(fmt.Sprintf("%s [%s]: ", label, display))
	if err != nil {
		return "", err
	}
	switch value {
	case "":
		return current, nil
	case "none", "null":
		return "", nil
	default:
		return value, nil
	}
}

// Secret prompts for a value without echoing it, for client secrets.
func (p *Prompter) Secret(label string) (string, error) {
	data, err := p.rl.ReadPassword(label + ": ")
	if err != nil {
		if err == readline.ErrInterrupt || err == io.EOF {
			return "", ErrAborted
		}
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// Select prompts for a 1-based choice out of n options, re-prompting on
// invalid answers.
func (p *Prompter) Select(label string, n int) (int, error) {
	for {
		value, err := p.readLine(fmt.Sprintf("%s (1-%d): ", label, n))
		if err != nil {
			return 0, err
		}
		choice, err := strconv.Atoi(value)
		if err == nil && choice >= 1 && choice <= n {
			return choice, nil
		}
		fmt.Printf("Invalid selection. Please enter a number between 1 and %d.\n", n)
	}
}

// Confirm asks a yes/no question; only "y"/"yes" counts as yes.
func (p *Prompter) Confirm(label string) (bool, error) {
	value, err := p.readLine(label + " [y/N]: ")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(value) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// SelectProfile picks a profile name from the given sorted list. A single
// profile is chosen automatically without prompting.
func (p *Prompter) SelectProfile(names []string) (string, error) {
	if len(names) == 0 {
		return "", fmt.Errorf("no profiles found; create one first with 'oidcli create'")
	}
	if len(names) == 1 {
		return names[0], nil
	}

	fmt.Println("Multiple profiles available:")
	for i, name := range names {
		fmt.Printf("  %d. %s\n", i+1, name)
	}

	choice, err := p.Select("Select a profile", len(names))
	if err != nil {
		return "", err
	}
	return names[choice-1], nil
}
