package flowfs

import (
	"context"
	"errors"
	"os"
	"sort"
	"time"

	"cdr.dev/slog"
	"github.com/fsnotify/fsnotify"

	"github.com/frankframework/frankflow/lib/log"
)

// Watch calls onChange with the paths among paths that changed on disk, once at first
// with all of them. Bursts of events are batched into one call. Watch returns when ctx
// is done.
func Watch(ctx context.Context, paths []string, onChange func(ctx context.Context, changed []string)) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	w := &watcher{fw: fw}
	lastModified := make(map[string]time.Time)
	for _, p := range paths {
		mt, err := w.ensureAddWatch(ctx, p)
		if err != nil {
			return err
		}
		lastModified[p] = mt
	}
	onChange(ctx, append([]string(nil), paths...))

	eatBurstTimer := time.NewTimer(0)
	<-eatBurstTimer.C
	pollTicker := time.NewTicker(time.Second * 10)
	defer pollTicker.Stop()

	changed := make(map[string]struct{})
	for {
		select {
		case <-pollTicker.C:
			// Events are not guaranteed, e.g. when a file is replaced by a rename.
			missed := false
			for _, watched := range fw.WatchList() {
				mt, err := w.ensureAddWatch(ctx, watched)
				if err != nil {
					return err
				}
				if mt2, ok := lastModified[watched]; !ok || !mt.Equal(mt2) {
					lastModified[watched] = mt
					changed[watched] = struct{}{}
					missed = true
				}
			}
			if missed {
				eatBurstTimer.Reset(time.Millisecond * 16)
			}
		case ev, ok := <-fw.Events:
			if !ok {
				return errors.New("fsnotify watcher closed")
			}
			log.Debug(ctx, "file system event", slog.F("event", ev.String()))
			mt, err := w.ensureAddWatch(ctx, ev.Name)
			if err != nil {
				return err
			}
			if ev.Op == fsnotify.Chmod && mt.Equal(lastModified[ev.Name]) {
				continue
			}
			lastModified[ev.Name] = mt
			changed[ev.Name] = struct{}{}
			// Editors write in bursts, wait for the file to settle.
			eatBurstTimer.Reset(time.Millisecond * 16)
		case <-eatBurstTimer.C:
			var changedList []string
			for k := range changed {
				changedList = append(changedList, k)
				delete(changed, k)
			}
			if len(changedList) == 0 {
				continue
			}
			sort.Strings(changedList)
			onChange(ctx, changedList)
		case err, ok := <-fw.Errors:
			if !ok {
				return errors.New("fsnotify watcher closed")
			}
			log.Warn(ctx, "fsnotify error", slog.Error(err))
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

type watcher struct {
	fw *fsnotify.Watcher
}

// ensureAddWatch retries adding path with backoff, as it may be missing while an editor
// replaces it.
func (w *watcher) ensureAddWatch(ctx context.Context, path string) (time.Time, error) {
	interval := time.Millisecond * 16
	tc := time.NewTimer(0)
	<-tc.C
	for {
		mt, err := w.addWatch(path)
		if err == nil {
			return mt, nil
		}
		if interval >= time.Second {
			log.Warn(ctx, "failed to watch", slog.F("path", path), slog.F("retry", interval), slog.Error(err))
		}

		tc.Reset(interval)
		select {
		case <-tc.C:
			if interval < time.Second*16 {
				interval *= 2
			}
		case <-ctx.Done():
			return time.Time{}, ctx.Err()
		}
	}
}

func (w *watcher) addWatch(path string) (time.Time, error) {
	err := w.fw.Add(path)
	if err != nil {
		return time.Time{}, err
	}
	d, err := os.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	return d.ModTime(), nil
}
