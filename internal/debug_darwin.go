//go:build darwin

package internal

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsevents"
)

// Debug decodes an FSEventStream flag word into its flag names and
// writes a single diagnostic line to stderr, the macOS counterpart of
// debug_linux.go/debug_windows.go's mask decoders.
func Debug(name string, flags fsevents.EventFlags, id uint64) {
	names := []struct {
		n string
		m fsevents.EventFlags
	}{
		{"MustScanSubDirs", fsevents.MustScanSubDirs},
		{"UserDropped", fsevents.UserDropped},
		{"KernelDropped", fsevents.KernelDropped},
		{"EventIDsWrapped", fsevents.EventIDsWrapped},
		{"HistoryDone", fsevents.HistoryDone},
		{"RootChanged", fsevents.RootChanged},
		{"Mount", fsevents.Mount},
		{"Unmount", fsevents.Unmount},
		{"ItemCreated", fsevents.ItemCreated},
		{"ItemRemoved", fsevents.ItemRemoved},
		{"ItemInodeMetaMod", fsevents.ItemInodeMetaMod},
		{"ItemRenamed", fsevents.ItemRenamed},
		{"ItemModified", fsevents.ItemModified},
		{"ItemFinderInfoMod", fsevents.ItemFinderInfoMod},
		{"ItemChangeOwner", fsevents.ItemChangeOwner},
		{"ItemXattrMod", fsevents.ItemXattrMod},
		{"ItemIsFile", fsevents.ItemIsFile},
		{"ItemIsDir", fsevents.ItemIsDir},
		{"ItemIsSymlink", fsevents.ItemIsSymlink},
	}

	var l []string
	for _, n := range names {
		if flags&n.m == n.m {
			l = append(l, n.n)
		}
	}
	fmt.Fprintf(os.Stderr, "%s  id=%d %-20s → %s\n",
		time.Now().Format("15:04:05.0000"), id, strings.Join(l, "|"), name)
}
