// Package console holds the process open until the operator acknowledges the
// output, so a window opened by double-clicking the server does not vanish
// before its diagnostics can be read.
package console

import (
	"bufio"
	"errors"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"golang.org/x/term"
)

const Prompt = "Press Enter to close this window"

// Interactive returns true if f is attached to a terminal.
func Interactive(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// WaitForAck logs the prompt and blocks until a line or EOF is read from in.
func WaitForAck(in io.Reader) error {
	log.Info().Msg(Prompt)

	_, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}

	return nil
}

// Pause waits for an acknowledgement on in when it is a terminal and noWait is
// not set. Scripts and service managers never block here.
func Pause(in *os.File, noWait bool) error {
	if noWait || !Interactive(in) {
		return nil
	}

	return WaitForAck(in)
}
