// Package ui handles terminal interaction: user prompts and styled output.
package ui

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Prompter asks the user questions. The terminal implementation reads lines
// from an input stream; tests substitute scripted answers.
type Prompter interface {
	// Confirm asks a yes/no question. Anything other than an explicit yes
	// counts as no.
	Confirm(question string) (bool, error)
	// AskText asks for one line of input and returns fallback when the user
	// just presses enter.
	AskText(question, fallback string) (string, error)
}

// Terminal prompts over an input/output stream pair, usually stdin and
// stdout.
type Terminal struct {
	in  *bufio.Reader
	out io.Writer
}

func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{in: bufio.NewReader(in), out: out}
}

func (t *Terminal) Confirm(question string) (bool, error) {
	fmt.Fprintf(t.out, "%s [y/N] ", promptStyle.Render(question))
	line, err := t.readLine()
	if err != nil {
		return false, err
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

func (t *Terminal) AskText(question, fallback string) (string, error) {
	if fallback != "" {
		fmt.Fprintf(t.out, "%s [%s]: ", promptStyle.Render(question), fallback)
	} else {
		fmt.Fprintf(t.out, "%s: ", promptStyle.Render(question))
	}
	line, err := t.readLine()
	if err != nil {
		return "", err
	}
	if answer := strings.TrimSpace(line); answer != "" {
		return answer, nil
	}
	return fallback, nil
}

// readLine tolerates a final line without a trailing newline; only an empty
// read surfaces the underlying error.
func (t *Terminal) readLine() (string, error) {
	line, err := t.in.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return line, nil
}
