package params

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Prompter performs the blocking input side-effect of interactive
// resolution. ReadLine may block indefinitely awaiting the operator.
type Prompter interface {
	ReadLine(prompt string) (string, error)
	Say(msg string) error
}

// StdPrompter reads from stdin and writes prompts to stderr so piped
// stdout stays clean. When stdin is not a terminal (scripted input fed
// through a pipe) the prompt is still printed and a plain line read.
type StdPrompter struct {
	In  io.Reader
	Out io.Writer

	reader *bufio.Reader
}

// NewStdPrompter returns a prompter bound to the process stdin/stderr.
func NewStdPrompter() *StdPrompter {
	return &StdPrompter{In: os.Stdin, Out: os.Stderr}
}

func (p *StdPrompter) ReadLine(prompt string) (string, error) {
	if p.reader == nil {
		p.reader = bufio.NewReader(p.In)
	}
	if _, err := fmt.Fprint(p.Out, prompt); err != nil {
		return "", err
	}
	line, err := p.reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (p *StdPrompter) Say(msg string) error {
	_, err := fmt.Fprintln(p.Out, msg)
	return err
}

// StdinIsTerminal reports whether stdin is attached to a terminal.
// The CLI uses it to fall back to scripted mode when input is piped,
// so a script driving the tool never hangs on a hidden prompt.
func StdinIsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// ScriptPrompter feeds canned answers in order; tests use it to drive
// interactive paths without a terminal. An exhausted prompter returns
// empty input, which resolves to the displayed default.
type ScriptPrompter struct {
	Answers []string
	Prompts []string // records every prompt issued
	next    int
}

func (p *ScriptPrompter) ReadLine(prompt string) (string, error) {
	p.Prompts = append(p.Prompts, prompt)
	if p.next >= len(p.Answers) {
		return "", nil
	}
	a := p.Answers[p.next]
	p.next++
	return a, nil
}

func (p *ScriptPrompter) Say(string) error { return nil }
