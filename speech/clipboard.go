package speech

import (
	"encoding/base64"
	"fmt"
	"io"
	"os"

	"github.com/atotto/clipboard"
)

// Copy puts text on the system clipboard. Without a native clipboard (an SSH
// session, a headless box) it falls back to an OSC 52 sequence on the
// terminal.
func Copy(text string) error {
	if !clipboard.Unsupported {
		if err := clipboard.WriteAll(text); err == nil {
			return nil
		}
	}
	tty, err := os.OpenFile("/dev/tty", os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("copy to clipboard: %w", err)
	}
	defer tty.Close()
	return writeOSC52(tty, text)
}

func writeOSC52(w io.Writer, text string) error {
	_, err := fmt.Fprintf(w, "\033]52;c;%s\a", base64.StdEncoding.EncodeToString([]byte(text)))
	return err
}
