package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/kamal-hamza/hx-cli/internal/core/services"
	"github.com/kamal-hamza/hx-cli/pkg/ui"
)

var (
	watchTags     []string
	watchDelete   bool
	watchExisting bool
)

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Auto-import new files dropped into a folder",
	Long: `Watch a folder and import image files as they appear.

Without a directory the store's inbox (<root>/.inbox) is watched. Files
are imported once they have stopped changing for watch_debounce_ms, so
large downloads are picked up only after they finish. Only extensions
listed in import_extensions are considered.

Examples:
  hx watch
  hx watch ~/Downloads --tag Unsorted
  hx watch --existing --delete`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringSliceVarP(&watchTags, "tag", "t", nil, "Tag to set on every imported asset (repeatable)")
	watchCmd.Flags().BoolVar(&watchDelete, "delete", false, "Delete the original after a successful import")
	watchCmd.Flags().BoolVar(&watchExisting, "existing", false, "Also import files already in the folder")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx := getContext()

	dir := appVault.InboxPath
	if len(args) > 0 {
		dir = args[0]
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create watch directory: %w", err)
	}
	// Watching inside the store would re-import our own copies
	if appVault.Contains(dir) && dir != appVault.InboxPath {
		return fmt.Errorf("cannot watch %s: it is inside the storage root", dir)
	}

	// Create file watcher
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	fmt.Println(ui.FormatImport("Watching for new files..."))
	fmt.Println(ui.FormatMuted("Folder: " + dir))
	fmt.Println(ui.FormatMuted("Press Ctrl+C to stop"))
	fmt.Println()

	debounce := time.Duration(appConfig.WatchDebounceMS) * time.Millisecond
	settled := newSettler(ctx, debounce)
	defer settled.stop()

	if watchExisting {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", dir, err)
		}
		for _, e := range entries {
			path := filepath.Join(dir, e.Name())
			if !e.IsDir() && isImportable(path, appConfig.ImportExtensions) {
				settled.touch(path)
			}
		}
	}

	// Event loop
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isImportable(event.Name, appConfig.ImportExtensions) {
				continue
			}

			switch {
			case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
				settled.touch(event.Name)
			case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
				settled.forget(event.Name)
			}

		case ev := <-settled.ready:
			if settled.take(ev) {
				importWatched(ctx, ev.path)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error().Err(err).Msg("watcher error")

		case <-ctx.Done():
			fmt.Println()
			fmt.Println(ui.FormatMuted("Watcher stopped"))
			return nil
		}
	}
}

// importWatched imports one settled file and reports the result
func importWatched(ctx context.Context, path string) {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return
	}

	resp, err := importService.Execute(ctx, services.ImportRequest{
		SourcePath: path,
		Tags:       watchTags,
	})
	if err != nil {
		fmt.Println(ui.FormatError(fmt.Sprintf("%s: %v", filepath.Base(path), err)))
		return
	}

	fmt.Println(ui.FormatImport(fmt.Sprintf("%s %s", ui.FormatAssetID(resp.Asset.ID), resp.Asset.DisplayName)))
	printWarnings(resp.Warnings)

	if watchDelete {
		if err := os.Remove(path); err != nil {
			fmt.Println(ui.FormatWarning("Could not delete original: " + err.Error()))
		}
	}
}

// isImportable reports whether path has one of exts and is not a hidden or
// partial download
func isImportable(path string, exts []string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || strings.HasPrefix(base, "~") {
		return false
	}
	ext := strings.ToLower(filepath.Ext(base))
	for _, e := range exts {
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}

// settler delivers a path on ready once it has gone quiet for the delay.
// touch, forget and take must be called from one goroutine.
type settler struct {
	ctx     context.Context
	delay   time.Duration
	pending map[string]*settling
	seq     uint64
	ready   chan settledPath
}

type settling struct {
	timer *time.Timer
	gen   uint64
}

// settledPath is one delivery. gen tells a current delivery from one made
// stale by a later touch.
type settledPath struct {
	path string
	gen  uint64
}

func newSettler(ctx context.Context, delay time.Duration) *settler {
	return &settler{
		ctx:     ctx,
		delay:   delay,
		pending: make(map[string]*settling),
		ready:   make(chan settledPath),
	}
}

// touch restarts the quiet period of path
func (s *settler) touch(path string) {
	if p, ok := s.pending[path]; ok {
		p.timer.Stop()
	}
	s.seq++
	ev := settledPath{path: path, gen: s.seq}
	s.pending[path] = &settling{
		gen: ev.gen,
		timer: time.AfterFunc(s.delay, func() {
			select {
			case s.ready <- ev:
			case <-s.ctx.Done():
			}
		}),
	}
}

// take accepts a delivery if it belongs to the latest touch of its path
func (s *settler) take(ev settledPath) bool {
	p, ok := s.pending[ev.path]
	if !ok || p.gen != ev.gen {
		return false
	}
	delete(s.pending, ev.path)
	return true
}

// forget drops a pending path
func (s *settler) forget(path string) {
	if p, ok := s.pending[path]; ok {
		p.timer.Stop()
		delete(s.pending, path)
	}
}

func (s *settler) stop() {
	for path := range s.pending {
		s.forget(path)
	}
}
