// Package speech reads the composed sentence aloud through an external
// text-to-speech program and copies it to the clipboard.
package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/miosa/aac-board/grid"
)

// ErrNoSpeaker is returned when no speech program is configured or found.
var ErrNoSpeaker = errors.New("no speech program available")

// Placeholder in a configured command is replaced by the text. Without it the
// text is passed as the last argument.
const Placeholder = "{text}"

// Timeout bounds a single utterance.
const Timeout = 30 * time.Second

// Speaker says text out loud.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// Command runs a speech program once per utterance.
type Command struct {
	Name string
	Args []string
}

// Parse splits a configured command line such as "espeak-ng -v it". An
// empty line auto-detects a program.
func Parse(line string) (*Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Detect()
	}
	if _, err := exec.LookPath(fields[0]); err != nil {
		return nil, fmt.Errorf("speech program %q: %w", fields[0], err)
	}
	return &Command{Name: fields[0], Args: fields[1:]}, nil
}

// Detect picks the platform's usual speech program.
func Detect() (*Command, error) {
	var candidates []Command
	switch runtime.GOOS {
	case "darwin":
		candidates = []Command{{Name: "say", Args: []string{"-v", "Alice"}}}
	case "windows":
		return nil, ErrNoSpeaker
	default:
		candidates = []Command{
			{Name: "espeak-ng", Args: []string{"-v", "it"}},
			{Name: "espeak", Args: []string{"-v", "it"}},
			{Name: "spd-say", Args: []string{"-l", "it", "-w"}},
		}
	}
	for _, c := range candidates {
		if _, err := exec.LookPath(c.Name); err == nil {
			return &c, nil
		}
	}
	return nil, ErrNoSpeaker
}

func (c *Command) args(text string) []string {
	out := make([]string, 0, len(c.Args)+1)
	replaced := false
	for _, a := range c.Args {
		if strings.Contains(a, Placeholder) {
			a = strings.ReplaceAll(a, Placeholder, text)
			replaced = true
		}
		out = append(out, a)
	}
	if !replaced {
		out = append(out, text)
	}
	return out
}

// Speak runs the program and waits for it to finish.
func (c *Command) Speak(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, Timeout)
	defer cancel()
	cmd := exec.CommandContext(ctx, c.Name, c.args(text)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("speak: %w: %s", err, msg)
		}
		return fmt.Errorf("speak: %w", err)
	}
	return nil
}

// Silent is a Speaker that does nothing. It stands in when no program is
// available so the board stays usable.
type Silent struct{}

func (Silent) Speak(context.Context, string) error { return nil }

// New returns the configured speaker, or Silent with the reason it could not
// build one.
func New(line string) (Speaker, error) {
	c, err := Parse(line)
	if err != nil {
		return Silent{}, err
	}
	return c, nil
}

// SpeakBuffer says the spoken form of every word in the text bar.
func SpeakBuffer(ctx context.Context, s Speaker, buf []grid.TextItem) error {
	return s.Speak(ctx, grid.Utterance(buf))
}
