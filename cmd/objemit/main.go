// Command objemit drives internal/objwriter.EmitObject from the command
// line: it reads a JSON node dump (the boundary format at which a foreign
// dependency-graph walker hands off to this repository), opens a native
// container Writer Handle for the requested target OS, and writes the
// resulting object file.
package main

import (
	"context"
	"crypto/tls"
	"flag"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/orizon-lang/orizon-objemit/internal/cli"
	"github.com/orizon-lang/orizon-objemit/internal/container"
	"github.com/orizon-lang/orizon-objemit/internal/objcache"
	"github.com/orizon-lang/orizon-objemit/internal/objwriter"
)

func main() {
	var (
		showVersion = flag.Bool("version", false, "show version information")
		out         = flag.String("out", "", "output object file path")
		targetOS    = flag.String("os", "linux", "target OS: linux|windows|darwin")
		targetArch  = flag.String("arch", "amd64", "target architecture: amd64|arm64")
		nodesPath   = flag.String("nodes", "", "path to a JSON node dump")
		batchPath   = flag.String("batch", "", "path to a JSON manifest of {nodes, out} pairs to emit concurrently")
		watchDir    = flag.String("watch", "", "directory to watch for node-dump changes, re-emitting on each")
		cacheAddr   = flag.String("cache", "", "host:port of a remote object cache to consult/populate")
		verbose     = flag.Bool("v", false, "log info-level progress (cache hits, re-emits)")
		debug       = flag.Bool("debug", false, "log debug-level detail")
	)

	flag.Parse()

	if *showVersion {
		cli.PrintVersion("objemit", false)
		return
	}

	logger := cli.NewLogger(*verbose, *debug)
	objwriter.DebugChecksEnabled = *debug

	target, err := parseTargetOS(*targetOS)
	if err != nil {
		cli.ExitWithError("%v", err)
	}

	arch, err := parseArch(*targetArch)
	if err != nil {
		cli.ExitWithError("%v", err)
	}

	open := objwriter.GatedHandleFactory(container.Open)

	var cacheClient *objcache.Client
	if *cacheAddr != "" {
		cacheClient = objcache.NewClient(*cacheAddr, &tls.Config{InsecureSkipVerify: true}, 0)
		defer cacheClient.Close()
	}

	switch {
	case *batchPath != "":
		cli.HandleError(runBatch(*batchPath, target, arch, open, cacheClient, logger), logger)
	case *watchDir != "":
		if *nodesPath == "" || *out == "" {
			cli.ExitWithError("-watch requires both -nodes and -out")
		}

		cli.HandleError(runWatch(*watchDir, *nodesPath, *out, target, arch, open, cacheClient, logger), logger)
	default:
		if *nodesPath == "" || *out == "" {
			cli.ExitWithError("-nodes and -out are required (or use -batch)")
		}

		cli.HandleError(emitOne(*nodesPath, *out, target, arch, open, cacheClient, logger), logger)
	}
}

func parseTargetOS(s string) (objwriter.TargetOS, error) {
	switch s {
	case "linux":
		return objwriter.Linux, nil
	case "windows":
		return objwriter.Windows, nil
	case "darwin", "macos", "osx":
		return objwriter.OSX, nil
	default:
		return 0, fmt.Errorf("unknown -os value %q", s)
	}
}

func parseArch(s string) (objwriter.Arch, error) {
	switch s {
	case "amd64", "x86_64", "x64":
		return objwriter.AMD64, nil
	case "arm64", "aarch64":
		return objwriter.ARM64, nil
	default:
		return 0, fmt.Errorf("unknown -arch value %q", s)
	}
}

// emitOne loads one node dump and writes one object file, consulting and
// populating the remote cache (if configured) around the actual emission.
func emitOne(nodesPath, out string, target objwriter.TargetOS, arch objwriter.Arch, open objwriter.HandleFactory, cache *objcache.Client, logger *cli.Logger) error {
	nodes, alternates, err := loadNodeDump(nodesPath)
	if err != nil {
		return err
	}

	factory := &fileFactory{os: target, arch: arch, alternates: alternates}

	logger.Debug("loaded %d node(s) from %s", len(nodes), nodesPath)

	if cache != nil {
		key, err := objcache.Key(target, nodes, factory)
		if err != nil {
			return fmt.Errorf("computing cache key: %w", err)
		}

		if data, ok, err := cache.Fetch(key); err == nil && ok {
			logger.Info("cache hit for %s, writing %s from cache", key, out)
			return os.WriteFile(out, data, 0o644)
		}

		if err := objwriter.EmitObject(out, nodes, factory, open); err != nil {
			return err
		}

		data, err := os.ReadFile(out)
		if err != nil {
			return err
		}

		if err := cache.Store(key, data); err != nil {
			logger.Warn("failed to populate cache for %s: %v", key, err)
		}

		return nil
	}

	return objwriter.EmitObject(out, nodes, factory, open)
}

type batchEntry struct {
	Nodes string `json:"nodes"`
	Out   string `json:"out"`
}

type batchManifest struct {
	Entries []batchEntry `json:"entries"`
}

// runBatch fans independent emissions out over an errgroup, one goroutine
// per output file; EmitObject itself stays strictly sequential per node
// set, only the set of node sets runs concurrently.
func runBatch(manifestPath string, target objwriter.TargetOS, arch objwriter.Arch, open objwriter.HandleFactory, cache *objcache.Client, logger *cli.Logger) error {
	manifest, err := loadBatchManifest(manifestPath)
	if err != nil {
		return err
	}

	logger.Debug("batch manifest %s: %d entries", manifestPath, len(manifest.Entries))

	g, _ := errgroup.WithContext(context.Background())

	for _, entry := range manifest.Entries {
		entry := entry

		g.Go(func() error {
			return emitOne(entry.Nodes, entry.Out, target, arch, open, cache, logger)
		})
	}

	return g.Wait()
}
