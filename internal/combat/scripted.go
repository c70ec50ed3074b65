package combat

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"
)

// ScriptCalculator evaluates a tengo script for the damage math, letting
// operators tune rules without a rebuild. The script receives `total`,
// `crit` and `damage_type` and must assign `damage`.
type ScriptCalculator struct {
	fs   afero.Fs
	path string

	mu  sync.RWMutex
	src []byte
}

// NewScriptCalculator loads the damage script from the filesystem.
func NewScriptCalculator(fs afero.Fs, path string) (*ScriptCalculator, error) {
	c := &ScriptCalculator{fs: fs, path: path}
	if err := c.reload(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *ScriptCalculator) reload() error {
	src, err := afero.ReadFile(c.fs, c.path)
	if err != nil {
		return fmt.Errorf("read damage script %s: %w", c.path, err)
	}

	// Compile once now to reject broken scripts before they reach a live
	// attack. Execution still compiles per call with fresh inputs.
	probe := tengo.NewScript(src)
	probe.SetImports(stdlib.GetModuleMap("math"))
	if err := probe.Add("total", 0); err != nil {
		return err
	}
	if err := probe.Add("crit", false); err != nil {
		return err
	}
	if err := probe.Add("damage_type", ""); err != nil {
		return err
	}
	if _, err := probe.Compile(); err != nil {
		return fmt.Errorf("compile damage script %s: %w", c.path, err)
	}

	c.mu.Lock()
	c.src = src
	c.mu.Unlock()
	return nil
}

// Watch hot-reloads the script when its file changes on disk. It blocks
// until ctx is canceled, so run it in its own goroutine. Only meaningful
// when the calculator was built over the OS filesystem.
func (c *ScriptCalculator) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create script watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory: editors replace files, which drops watches on
	// the file itself.
	if err := watcher.Add(filepath.Dir(c.path)); err != nil {
		return fmt.Errorf("watch script dir: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(c.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if err := c.reload(); err != nil {
				// Keep serving the last good script.
				slog.Error("Damage script reload failed", "path", c.path, "error", err)
				continue
			}
			slog.Info("Damage script reloaded", "path", c.path)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("Script watcher error", "path", c.path, "error", err)
		}
	}
}

// Damage implements DamageCalculator by running the script.
func (c *ScriptCalculator) Damage(ctx context.Context, in DamageInput) (int, error) {
	c.mu.RLock()
	src := c.src
	c.mu.RUnlock()

	script := tengo.NewScript(src)
	script.SetImports(stdlib.GetModuleMap("math"))
	if err := script.Add("total", in.RolledTotal); err != nil {
		return 0, err
	}
	if err := script.Add("crit", in.Crit); err != nil {
		return 0, err
	}
	if err := script.Add("damage_type", in.DamageType); err != nil {
		return 0, err
	}

	compiled, err := script.RunContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("run damage script: %w", err)
	}
	dmg := compiled.Get("damage")
	if dmg == nil || dmg.IsUndefined() {
		return 0, fmt.Errorf("damage script %s did not assign 'damage'", c.path)
	}
	return dmg.Int(), nil
}
