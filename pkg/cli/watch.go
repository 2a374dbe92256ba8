package cli

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fsnotify/fsnotify"

	"github.com/trussci/truss/pkg/console"
	"github.com/trussci/truss/pkg/engine"
	"github.com/trussci/truss/pkg/logger"
)

var watchLog = logger.New("cli:watch")

// watchAndRevalidate re-runs validation for files as they change, until
// interrupted. Watches are registered on parent directories so editors that
// replace files on save (rename + create) are still observed.
func watchAndRevalidate(files []string, engineOpts []engine.Option, opts validateOptions) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return ioErr(fmt.Errorf("starting watcher: %w", err))
	}
	defer watcher.Close()

	watched := map[string]bool{}
	dirs := map[string]bool{}
	for _, path := range files {
		abs, err := filepath.Abs(path)
		if err != nil {
			continue
		}
		watched[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return ioErr(fmt.Errorf("watching %s: %w", dir, err))
		}
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupt)

	if !opts.quiet {
		fmt.Println(console.FormatInfoMessage(
			fmt.Sprintf("watching %d files for changes (ctrl-c to stop)", len(watched))))
	}

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil || !watched[abs] {
				continue
			}
			watchLog.Printf("change detected: %s", event.Name)
			reports := []fileReport{validateOne(event.Name, engineOpts)}
			filterReports(reports, opts.minSeverity)
			printText(reports, opts.quiet)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintln(os.Stderr, console.FormatWarningMessage(
				fmt.Sprintf("watch error: %v", err)))

		case <-interrupt:
			watchLog.Printf("interrupted, stopping watch")
			return nil
		}
	}
}
