// Package keyboard binds the looper to the OS keyboard: synthetic Enter
// presses and a global cancel-key hook.
package keyboard

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/micmonay/keybd_event"
)

// ErrNoHook is returned by WatchCancel in binaries built without cgo.
var ErrNoHook = errors.New("keyboard: global cancel key needs a cgo build")

// linuxSettle is how long a fresh uinput device needs before the first event
// is delivered.
const linuxSettle = 2 * time.Second

// Presser sends Enter through the OS input layer (uinput on Linux,
// SendInput on Windows, CGEvent on macOS).
type Presser struct {
	mu sync.Mutex
	kb keybd_event.KeyBonding
}

func NewPresser() (*Presser, error) {
	kb, err := keybd_event.NewKeyBonding()
	if err != nil {
		return nil, fmt.Errorf("keyboard: init: %w", err)
	}
	if runtime.GOOS == "linux" {
		time.Sleep(linuxSettle)
	}
	kb.SetKeys(keybd_event.VK_ENTER)
	return &Presser{kb: kb}, nil
}

func (p *Presser) PressEnter() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.kb.Launching(); err != nil {
		return fmt.Errorf("keyboard: press enter: %w", err)
	}
	return nil
}
