//go:build linux

package fswatch

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unsafe"

	"github.com/watchcore/fswatch/internal"
	"golang.org/x/sys/unix"
)

// linuxBackend is the inotify+eventfd backend of §4.4.2, grounded on
// the teacher's backend_inotify.go watches/watch/koekje types,
// restructured around a single poll() loop instead of a blocking
// Read+Close-to-interrupt so that control requests and inotify
// records are multiplexed on one thread per §5.
type linuxBackend struct {
	fd  int // inotify instance
	efd int // eventfd used to interrupt poll() from post()

	wds  map[int]*linuxWatch // inotify watch descriptor → owning watch
	root map[string]*linuxWatch
}

// linuxWatch tracks every inotify watch descriptor backing one
// WatchPoint: just the root itself normally, or the root plus one
// descriptor per subdirectory when WithRecursive is set.
type linuxWatch struct {
	wp      *WatchPoint
	dirs    map[int]string // wd → path relative to root ("" for the root)
	recurse bool
}

func newPlatformBackend() platformBackend { return &linuxBackend{} }

func (b *linuxBackend) init(s *Server) error {
	fd, errno := unix.InotifyInit1(unix.IN_CLOEXEC | unix.IN_NONBLOCK)
	if fd == -1 {
		return fmt.Errorf("fswatch: inotify_init1: %w", errno)
	}
	efd, errno := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if efd == -1 {
		unix.Close(fd)
		return fmt.Errorf("fswatch: eventfd: %w", errno)
	}
	b.fd = fd
	b.efd = efd
	b.wds = make(map[int]*linuxWatch)
	b.root = make(map[string]*linuxWatch)
	return nil
}

// wake writes to the eventfd so a blocked poll() returns immediately,
// the Linux analogue of the Windows backend's PostQueuedCompletionStatus.
func (b *linuxBackend) wake() error {
	buf := make([]byte, 8)
	buf[0] = 1
	_, err := unix.Write(b.efd, buf)
	if err != nil && err != unix.EAGAIN {
		return err
	}
	return nil
}

func (b *linuxBackend) loop(s *Server) {
	fds := []unix.PollFd{
		{Fd: int32(b.fd), Events: unix.POLLIN},
		{Fd: int32(b.efd), Events: unix.POLLIN},
	}
	buf := make([]byte, unix.SizeofInotifyEvent*4096)

	for {
		_, err := unix.Poll(fds, -1)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			s.logf(LogLevelError, "poll: %v", err)
			continue
		}

		if fds[1].Revents&unix.POLLIN != 0 {
			drain := make([]byte, 8)
			unix.Read(b.efd, drain)
			if b.drainRequests(s) {
				b.shutdown(s)
				return
			}
		}

		if fds[0].Revents&unix.POLLIN != 0 {
			b.readEvents(s, buf)
		}
	}
}

// drainRequests processes every control request queued since the
// last wakeup; it returns true once a terminate request has been
// handled.
func (b *linuxBackend) drainRequests(s *Server) bool {
	for {
		select {
		case req := <-s.requests:
			terminate := b.handleRequest(s, req)
			if terminate {
				return true
			}
		default:
			return false
		}
	}
}

func (b *linuxBackend) handleRequest(s *Server, req controlRequest) bool {
	switch req.op {
	case opAdd:
		wp := NewWatchPoint(req.root)
		s.mu.Lock()
		s.roots[req.root] = wp
		s.mu.Unlock()

		lw, err := b.arm(s, wp, s.opts.recursive)
		if err != nil {
			wp.setStatus(FailedToListen)
			s.emit(FailureEvent(classifyErrno(err), err.Error()))
		} else {
			b.root[req.root] = lw
			wp.setStatus(Listening)
		}
		req.reply <- nil
		return false

	case opRemove:
		s.mu.RLock()
		wp, ok := s.roots[req.root]
		s.mu.RUnlock()
		if !ok {
			req.reply <- fmt.Errorf("%w: %s", ErrNotWatching, req.root)
			return false
		}
		b.disarm(req.root)
		wp.setStatus(Finished)
		s.mu.Lock()
		delete(s.roots, req.root)
		s.mu.Unlock()
		req.reply <- nil
		return false

	case opTerminate:
		req.reply <- nil
		return true
	}
	return false
}

// arm registers one inotify watch on root, and (when recurse is set)
// one additional watch per subdirectory, per §9's recursion decision
// and the teacher's recursivePath/WalkDir convention
// (backend_inotify.go AddWith).
func (b *linuxBackend) arm(s *Server, wp *WatchPoint, recurse bool) (*linuxWatch, error) {
	// IN_CLOSE_WRITE is deliberately left out: it would fire a second
	// Modified record for every write that IN_MODIFY already reported,
	// matching the teacher's default AddWith mask (backend_inotify.go
	// only sets IN_CLOSE_WRITE for the xUnportableCloseWrite opt-in).
	const mask = unix.IN_CREATE | unix.IN_MODIFY | unix.IN_ATTRIB |
		unix.IN_DELETE | unix.IN_DELETE_SELF |
		unix.IN_MOVED_FROM | unix.IN_MOVED_TO | unix.IN_MOVE_SELF

	if recurse {
		warnIfNoTraverseCapability(s)
	}

	lw := &linuxWatch{wp: wp, dirs: make(map[int]string), recurse: recurse}

	addDir := func(dir, rel string) error {
		wd, err := unix.InotifyAddWatch(b.fd, dir, mask)
		if wd == -1 {
			return err
		}
		lw.dirs[wd] = rel
		b.wds[wd] = lw
		return nil
	}

	if err := addDir(wp.Root, ""); err != nil {
		return nil, err
	}
	if !recurse {
		return lw, nil
	}

	err := filepath.WalkDir(wp.Root, func(path string, d os.DirEntry, err error) error {
		if err != nil || path == wp.Root || !d.IsDir() {
			return err
		}
		rel, _ := filepath.Rel(wp.Root, path)
		return addDir(path, rel)
	})
	if err != nil {
		b.disarmWatch(lw)
		return nil, err
	}
	return lw, nil
}

func (b *linuxBackend) disarm(root string) {
	lw, ok := b.root[root]
	if !ok {
		return
	}
	b.disarmWatch(lw)
	delete(b.root, root)
}

func (b *linuxBackend) disarmWatch(lw *linuxWatch) {
	for wd := range lw.dirs {
		unix.InotifyRmWatch(b.fd, uint32(wd))
		delete(b.wds, wd)
	}
}

func (b *linuxBackend) shutdown(s *Server) {
	s.mu.Lock()
	for root, wp := range s.roots {
		b.disarm(root)
		wp.setStatus(Finished)
		delete(s.roots, root)
	}
	s.mu.Unlock()
	unix.Close(b.fd)
	unix.Close(b.efd)
}

// readEvents drains the inotify fd and translates each record into a
// core Event, grounded on the teacher's readEvents decode loop
// (backend_inotify.go) but posting to s.emit instead of a fixed
// channel and resolving watches via linuxWatch instead of a global
// watches registry, since this backend tracks one linuxWatch per
// WatchPoint rather than one flat map of all Add()ed paths.
func (b *linuxBackend) readEvents(s *Server, buf []byte) {
	for {
		n, err := unix.Read(b.fd, buf)
		if err != nil {
			if err == unix.EAGAIN {
				return
			}
			s.logf(LogLevelError, "inotify read: %v", err)
			return
		}
		if n < unix.SizeofInotifyEvent {
			return
		}

		var offset uint32
		for offset <= uint32(n)-unix.SizeofInotifyEvent {
			raw := (*unix.InotifyEvent)(unsafe.Pointer(&buf[offset]))
			mask := uint32(raw.Mask)
			nameLen := uint32(raw.Len)
			next := func() { offset += unix.SizeofInotifyEvent + nameLen }

			if mask&unix.IN_Q_OVERFLOW != 0 {
				s.emit(OverflowEvent(""))
			}

			lw := b.wds[int(raw.Wd)]
			var rel string
			if lw != nil {
				rel = lw.dirs[int(raw.Wd)]
			}

			var leaf string
			if nameLen > 0 {
				nameBytes := (*[unix.PathMax]byte)(unsafe.Pointer(&buf[offset+unix.SizeofInotifyEvent]))[:nameLen:nameLen]
				leaf = strings.TrimRight(string(nameBytes), "\x00")
			}

			if debugEnv {
				internal.Debug(leaf, raw.Mask, raw.Cookie)
			}

			if mask&unix.IN_IGNORED != 0 {
				next()
				continue
			}

			if lw != nil {
				var fullRel string
				switch {
				case rel != "" && leaf != "":
					fullRel = filepath.Join(rel, leaf)
				case rel != "":
					fullRel = rel
				default:
					fullRel = leaf
				}
				path := joinEventPath(lw.wp.Root, fullRel)
				b.dispatch(s, lw, path, mask)
			}

			next()
		}
	}
}

func (b *linuxBackend) dispatch(s *Server, lw *linuxWatch, path string, mask uint32) {
	switch {
	case mask&unix.IN_DELETE_SELF != 0 || mask&unix.IN_MOVE_SELF != 0:
		if path == lw.wp.Root {
			s.emit(ChangeEvent(Invalidated, path))
			s.failRoot(lw.wp, "watched root was removed or renamed")
			b.disarm(lw.wp.Root)
			return
		}
		// A watched subdirectory (recursive mode) vanished; inotify
		// auto-removes its watch, so just drop our bookkeeping.
		for wd, r := range lw.dirs {
			if joinEventPath(lw.wp.Root, r) == path {
				delete(lw.dirs, wd)
				delete(b.wds, wd)
			}
		}
		s.emit(ChangeEvent(Removed, path))

	case mask&unix.IN_CREATE != 0 || mask&unix.IN_MOVED_TO != 0:
		s.emit(ChangeEvent(Created, path))
		if lw.recurse && mask&unix.IN_ISDIR != 0 {
			if fi, err := os.Stat(path); err == nil && fi.IsDir() {
				rel, _ := filepath.Rel(lw.wp.Root, path)
				if wd, err := unix.InotifyAddWatch(b.fd, path, inotifyRecurseMask); err == nil && wd != -1 {
					lw.dirs[wd] = rel
					b.wds[wd] = lw
				}
			}
		}

	case mask&unix.IN_DELETE != 0 || mask&unix.IN_MOVED_FROM != 0:
		// §4.4.2: MOVED_FROM/MOVED_TO cookies are not correlated into
		// a single rename event; each half is reported independently.
		s.emit(ChangeEvent(Removed, path))

	case mask&unix.IN_MODIFY != 0 || mask&unix.IN_ATTRIB != 0 || mask&unix.IN_CLOSE_WRITE != 0:
		s.emit(ChangeEvent(Modified, path))

	default:
		s.emit(UnknownEvent(path))
	}
}

const inotifyRecurseMask = unix.IN_CREATE | unix.IN_MODIFY | unix.IN_ATTRIB |
	unix.IN_CLOSE_WRITE | unix.IN_DELETE | unix.IN_DELETE_SELF |
	unix.IN_MOVED_FROM | unix.IN_MOVED_TO | unix.IN_MOVE_SELF

// warnIfNoTraverseCapability logs a diagnostic when the process
// lacks CAP_DAC_READ_SEARCH, the capability that lets a recursive
// WithRecursive walk descend into directories it wouldn't otherwise
// have search permission on. It never blocks arming — the walk simply
// surfaces the ordinary permission errors that follow, and the first
// such error fails the whole watch — but the log line explains why.
// Grounded on internal/capabilities_linux.go, kept from the teacher's
// fanotify capability probing and re-pointed at the recursive inotify
// walk since the fanotify backend that originally used it was dropped.
func warnIfNoTraverseCapability(s *Server) {
	caps, err := internal.CapInit()
	if err != nil {
		return
	}
	ok, err := caps.IsSet(unix.CAP_DAC_READ_SEARCH, internal.CapEffective)
	if err == nil && !ok {
		s.logf(LogLevelInfo, "recursive watch requested without CAP_DAC_READ_SEARCH; "+
			"a subdirectory without search permission will fail the watch")
	}
}

// classifyErrno maps an inotify_add_watch failure onto the §7 error
// taxonomy, grounded on the teacher's bare errno returns
// (backend_inotify.go register) generalized into the shared Failure
// vocabulary.
func classifyErrno(err error) ErrorKind {
	switch {
	case err == unix.ENOSPC:
		return ErrorKindResourceExhausted
	case err == unix.EACCES || err == unix.EPERM:
		return ErrorKindPermissionDenied
	case err == unix.ENOENT:
		return ErrorKindInvalidPath
	default:
		return ErrorKindBackendFault
	}
}
