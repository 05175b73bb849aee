package pipe

import (
	"sync"

	"pipelined.dev/tensorpipe/element"
)

var lifecycle = struct {
	sync.Mutex
	initialized bool
	live        map[*Pipeline]struct{}
}{
	live: make(map[*Pipeline]struct{}),
}

// Initialize registers built-in element kinds. Pipelines can be created
// only after Initialize. Subsequent calls do nothing.
func Initialize() {
	lifecycle.Lock()
	defer lifecycle.Unlock()
	if lifecycle.initialized {
		return
	}
	element.RegisterBuiltins()
	lifecycle.initialized = true
}

// Shutdown closes every live pipeline. Pipelines can't be created after
// Shutdown until Initialize is called again.
func Shutdown() error {
	lifecycle.Lock()
	if !lifecycle.initialized {
		lifecycle.Unlock()
		return nil
	}
	lifecycle.initialized = false
	live := make([]*Pipeline, 0, len(lifecycle.live))
	for p := range lifecycle.live {
		live = append(live, p)
	}
	lifecycle.Unlock()

	var errs execErrors
	for _, p := range live {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errs.ret()
}

// track adds pipeline to the live set. Returns false if not initialized.
func track(p *Pipeline) bool {
	lifecycle.Lock()
	defer lifecycle.Unlock()
	if !lifecycle.initialized {
		return false
	}
	lifecycle.live[p] = struct{}{}
	return true
}

func untrack(p *Pipeline) {
	lifecycle.Lock()
	defer lifecycle.Unlock()
	delete(lifecycle.live, p)
}
