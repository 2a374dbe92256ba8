package cli

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/trussci/truss/pkg/config"
	"github.com/trussci/truss/pkg/logger"
)

var discoverLog = logger.New("cli:discover")

// StdinPath is the argument that selects standard input.
const StdinPath = "-"

func isYAMLFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		return true
	}
	return false
}

func hasGlobMeta(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[{")
}

// expandArgs resolves the validate arguments to concrete file paths:
// literal files, directories (recursive YAML search), doublestar globs, and
// `-` for stdin. Results keep argument order, deduplicate, and drop paths
// the config ignores.
func expandArgs(args []string, cfg *config.Config) (files []string, stdin bool, err error) {
	seen := map[string]bool{}
	add := func(path string) {
		path = filepath.Clean(path)
		if seen[path] || cfg.Ignored(path) {
			return
		}
		seen[path] = true
		files = append(files, path)
	}

	for _, arg := range args {
		switch {
		case arg == StdinPath:
			stdin = true

		case hasGlobMeta(arg):
			matches, globErr := doublestar.FilepathGlob(arg)
			if globErr != nil {
				return nil, false, usageErr("bad glob pattern %q: %v", arg, globErr)
			}
			sort.Strings(matches)
			for _, m := range matches {
				if info, statErr := os.Stat(m); statErr == nil && !info.IsDir() {
					add(m)
				}
			}

		default:
			info, statErr := os.Stat(arg)
			if statErr != nil {
				return nil, false, ioErr(fmt.Errorf("cannot read %s: %w", arg, statErr))
			}
			if !info.IsDir() {
				add(arg)
				continue
			}
			walkErr := filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
				if err != nil {
					return err
				}
				if !d.IsDir() && isYAMLFile(path) {
					add(path)
				}
				return nil
			})
			if walkErr != nil {
				return nil, false, ioErr(fmt.Errorf("walking %s: %w", arg, walkErr))
			}
		}
	}

	discoverLog.Printf("expanded %d args to %d files (stdin=%v)", len(args), len(files), stdin)
	return files, stdin, nil
}
