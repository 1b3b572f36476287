// Package scan walks directory trees concurrently, one guarded task per root.
// Every root logs into its own task log, so the output of a root appears as one
// contiguous block no matter how many roots are scanned at once.
package scan

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/abyssdigger/tasklog"
)

// Result describes the scan of one root directory.
type Result struct {
	Err     error
	Root    string
	Files   int
	Dirs    int
	Elapsed time.Duration
}

// Scanner scans root directories with at most Workers concurrent tasks.
type Scanner struct {
	Output   *tasklog.Sink // nil means the process default sink
	Workers  int
	MaxDepth int // deepest sub-directory level visited (root is level 0)
}

// New creates a Scanner.
func New(workers, maxDepth int, output *tasklog.Sink) *Scanner {
	return &Scanner{Output: output, Workers: max(workers, 1), MaxDepth: max(maxDepth, 0)}
}

// ScanAll scans every root and returns the results in the order of roots.
func (s *Scanner) ScanAll(roots []string) []Result {
	results := make([]Result, len(roots))
	slots := make(chan struct{}, max(s.Workers, 1))
	var wg sync.WaitGroup
	for i, root := range roots {
		wg.Go(func() {
			slots <- struct{}{}
			defer func() { <-slots }()
			results[i] = s.Scan(root)
		})
	}
	wg.Wait()
	return results
}

// Scan scans one root in the calling goroutine.
func (s *Scanner) Scan(root string) Result {
	res, err := tasklog.NewRunner(root, s.work(root)).WithOutput(s.Output).Run()
	res.Root = root
	res.Err = err
	return res
}

func (s *Scanner) work(root string) tasklog.Work[Result] {
	return func(log *tasklog.TaskLog) (Result, error) {
		res := Result{Root: root}
		start := time.Now()
		log.Log("Scanning " + root)

		info, err := os.Stat(root)
		if err != nil {
			return res, fmt.Errorf("scan %s: %w", root, err)
		}
		if !info.IsDir() {
			return res, fmt.Errorf("scan %s: %w", root, errNotDir)
		}

		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			depth := depthOf(root, path)
			if err != nil {
				if path == root {
					return err
				}
				log.LogErr(depth, "Cannot read "+path, err)
				if d != nil && d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.IsDir() {
				res.Files++
				return nil
			}
			if depth > s.MaxDepth {
				return filepath.SkipDir
			}
			res.Dirs++
			if depth > 0 {
				log.LogIndent(depth, "Found directory "+d.Name())
			}
			return nil
		})
		res.Elapsed = time.Since(start)
		if err != nil {
			return res, fmt.Errorf("scan %s: %w", root, err)
		}
		log.LogElapsed(0, "Scanned "+root+": "+strconv.Itoa(res.Files)+" files, "+
			strconv.Itoa(res.Dirs)+" directories", res.Elapsed)
		return res, nil
	}
}

var errNotDir = errors.New("not a directory")

// depthOf returns 0 for root, 1 for its direct children and so on.
func depthOf(root, path string) int {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return 0
	}
	return strings.Count(rel, string(filepath.Separator)) + 1
}
