package sim

import (
	"errors"
	"os"
	"sync"

	"github.com/golang/glog"

	"irproxy/core"
)

// ResetLine logs module reset transitions
type ResetLine struct {
	mu       sync.Mutex
	asserted bool
}

func (l *ResetLine) Assert() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.asserted {
		glog.Info("module reset asserted")
	}
	l.asserted = true
}

func (l *ResetLine) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.asserted {
		glog.Info("module reset released")
	}
	l.asserted = false
}

// Asserted reports whether the module is held in reset
func (l *ResetLine) Asserted() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.asserted
}

// Restarter counts restarts. The caller restarts the main loop when
// Proxy.Run returns core.ErrRestart.
type Restarter struct {
	mu       sync.Mutex
	restarts int
}

func (r *Restarter) Restart() {
	r.mu.Lock()
	r.restarts++
	n := r.restarts
	r.mu.Unlock()
	glog.Warningf("system restart #%d", n)
}

// Restarts returns the number of restarts so far
func (r *Restarter) Restarts() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.restarts
}

// Indicator logs status changes
type Indicator struct {
	mu   sync.Mutex
	last core.Status
	set  bool
}

func (i *Indicator) Show(s core.Status) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.set && i.last == s {
		return
	}
	i.last, i.set = s, true
	glog.V(1).Infof("status %s", s)
}

// Current returns the last status shown
func (i *Indicator) Current() core.Status {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.last
}

// FileRetryStore keeps the retry state in a two-byte file so it survives
// restarts of the host process, the way scratch registers survive a warm
// reset on the board
type FileRetryStore struct {
	Path string
}

func (f *FileRetryStore) Load() core.RetryState {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			glog.Warningf("retry state %s: %v", f.Path, err)
		}
		return core.RetryState{}
	}
	if len(data) != 2 {
		return core.RetryState{}
	}
	return core.RetryState{Tag: data[0], Count: data[1]}
}

func (f *FileRetryStore) Store(s core.RetryState) {
	if err := os.WriteFile(f.Path, []byte{s.Tag, s.Count}, 0o644); err != nil {
		glog.Errorf("retry state %s: %v", f.Path, err)
	}
}

// NewBoard assembles simulated drivers. An empty statePath keeps the retry
// state in memory.
func NewBoard(out *Output, statePath string) core.Board {
	var store core.RetryStore = &core.MemoryRetryStore{}
	if statePath != "" {
		store = &FileRetryStore{Path: statePath}
	}
	return core.Board{
		Output:    out,
		Reset:     &ResetLine{},
		Restarter: &Restarter{},
		Store:     store,
		Indicator: &Indicator{},
	}
}
