//go:build !linux && !windows && !darwin

package fswatch

import "fmt"

// otherBackend is the unsupported-platform stub, grounded on the
// teacher's own backend_other.go (kept for AIX/Solaris/BSD builds
// that don't carry one of the three native backends). Start always
// succeeds; every watch attempt fails immediately so callers see a
// clean FailedToListen/BackendFault rather than a build break.
type otherBackend struct{}

func newPlatformBackend() platformBackend { return &otherBackend{} }

func (b *otherBackend) init(s *Server) error { return nil }

func (b *otherBackend) wake() error { return nil }

func (b *otherBackend) loop(s *Server) {
	for {
		select {
		case req := <-s.requests:
			switch req.op {
			case opAdd:
				wp := NewWatchPoint(req.root)
				s.mu.Lock()
				s.roots[req.root] = wp
				s.mu.Unlock()
				wp.setStatus(FailedToListen)
				s.emit(FailureEvent(ErrorKindBackendFault,
					fmt.Sprintf("fswatch: no native backend for this platform (root %s)", req.root)))
				req.reply <- nil
			case opRemove:
				s.mu.Lock()
				delete(s.roots, req.root)
				s.mu.Unlock()
				req.reply <- nil
			case opTerminate:
				req.reply <- nil
				return
			}
		}
	}
}
