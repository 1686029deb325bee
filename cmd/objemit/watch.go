package main

import (
	"github.com/fsnotify/fsnotify"

	"github.com/orizon-lang/orizon-objemit/internal/cli"
	"github.com/orizon-lang/orizon-objemit/internal/objcache"
	"github.com/orizon-lang/orizon-objemit/internal/objwriter"
)

// runWatch re-emits out from nodesPath every time nodesPath changes inside
// dir, a narrowly-scoped repurposing of fsnotify.Watcher for the "re-emit
// on node dump change" inner loop, rather than a general VFS watcher.
func runWatch(dir, nodesPath, out string, target objwriter.TargetOS, arch objwriter.Arch, open objwriter.HandleFactory, cache *objcache.Client, logger *cli.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return err
	}

	logger.Info("watching %s for changes to %s", dir, nodesPath)

	if err := emitOne(nodesPath, out, target, arch, open, cache, logger); err != nil {
		logger.Error("initial emit failed: %v", err)
	}

	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			if ev.Name != nodesPath || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			if err := emitOne(nodesPath, out, target, arch, open, cache, logger); err != nil {
				logger.Error("re-emit failed: %v", err)
			} else {
				logger.Info("re-emitted %s", out)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}

			logger.Error("watch error: %v", err)
		}
	}
}
