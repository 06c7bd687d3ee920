package speech

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"runtime"
	"slices"
	"testing"

	"github.com/miosa/aac-board/grid"
)

func TestCommandArgs(t *testing.T) {
	tests := []struct {
		cmd  Command
		text string
		want []string
	}{
		{Command{Name: "espeak", Args: []string{"-v", "it"}}, "ciao", []string{"-v", "it", "ciao"}},
		{Command{Name: "tts", Args: []string{"--say={text}", "-q"}}, "io mangio", []string{"--say=io mangio", "-q"}},
		{Command{Name: "say"}, "ciao", []string{"ciao"}},
	}
	for _, tt := range tests {
		if got := tt.cmd.args(tt.text); !slices.Equal(got, tt.want) {
			t.Errorf("args(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestParse_UnknownProgram(t *testing.T) {
	sp, err := New("definitely-not-a-tts-program -x")
	if err == nil {
		t.Fatal("expected an error")
	}
	if _, ok := sp.(Silent); !ok {
		t.Errorf("speaker = %T, want Silent", sp)
	}
}

func TestSpeak_RunsProgram(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX shell")
	}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not found")
	}
	ok := &Command{Name: "sh", Args: []string{"-c", `test "$0" = "io mangio"`}}
	if err := ok.Speak(context.Background(), "io mangio"); err != nil {
		t.Errorf("speak: %v", err)
	}
	fail := &Command{Name: "sh", Args: []string{"-c", "echo broken >&2; exit 3"}}
	err := fail.Speak(context.Background(), "x")
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("err = %v, want exit error", err)
	}
}

type recordSpeaker struct{ said []string }

func (r *recordSpeaker) Speak(_ context.Context, text string) error {
	r.said = append(r.said, text)
	return nil
}

func TestSpeakBuffer_UsesSpokenForm(t *testing.T) {
	rec := &recordSpeaker{}
	buf := []grid.TextItem{{Text: "io", Speak: "io"}, {Text: "mangio"}}
	if err := SpeakBuffer(context.Background(), rec, buf); err != nil {
		t.Fatal(err)
	}
	if len(rec.said) != 1 || rec.said[0] != "io mangio" {
		t.Errorf("said = %q", rec.said)
	}
}

func TestWriteOSC52(t *testing.T) {
	var b bytes.Buffer
	if err := writeOSC52(&b, "ciao"); err != nil {
		t.Fatal(err)
	}
	if got := b.String(); got != "\033]52;c;Y2lhbw==\a" {
		t.Errorf("sequence = %q", got)
	}
}
