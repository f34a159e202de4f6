//go:build !unix

package audio

import (
	"errors"
	"os"
)

var errPauseUnsupported = errors.New("pausing the audio player is not supported on this platform")

func suspendProcess(*os.Process) error { return errPauseUnsupported }

func continueProcess(*os.Process) error { return errPauseUnsupported }
