//go:build rp2040

package main

import (
	"device/rp"

	"irproxy/core"
)

// scratchStore keeps the retry state in watchdog scratch register 0. The
// scratch registers survive a watchdog reset and are cleared at power-on.
// Registers 4 to 7 belong to the boot ROM.
type scratchStore struct{}

func (scratchStore) Load() core.RetryState {
	v := rp.WATCHDOG.SCRATCH0.Get()
	return core.RetryState{Tag: uint8(v >> 8), Count: uint8(v)}
}

func (scratchStore) Store(s core.RetryState) {
	rp.WATCHDOG.SCRATCH0.Set(uint32(s.Tag)<<8 | uint32(s.Count))
}
