//go:build unix

package audio

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

func suspendProcess(p *os.Process) error {
	if err := p.Signal(unix.SIGSTOP); err != nil {
		return fmt.Errorf("failed to pause audio player: %w", err)
	}
	return nil
}

func continueProcess(p *os.Process) error {
	if err := p.Signal(unix.SIGCONT); err != nil {
		return fmt.Errorf("failed to resume audio player: %w", err)
	}
	return nil
}
