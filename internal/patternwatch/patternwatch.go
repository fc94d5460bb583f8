// Package patternwatch hot-reloads the classifier's error patterns from a
// YAML file, adapted from the teacher repo's pkg/hotreload config reloader:
// an fsnotify watcher with a debounce timer, but scoped to reloading
// classifier.ErrorPattern instead of the full application config.
package patternwatch

import (
	"fmt"
	"os"
	"regexp"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"

	"notifyhub/internal/classifier"
)

// patternFile is the on-disk shape watched files are expected to have.
type patternFile struct {
	Patterns []patternEntry `yaml:"patterns"`
}

type patternEntry struct {
	Regex    string `yaml:"regex"`
	Category string `yaml:"category"`
	Severity string `yaml:"severity"`

	Aggregation *struct {
		WindowMs       int64 `yaml:"windowMs"`
		CountThreshold int   `yaml:"countThreshold"`
	} `yaml:"aggregation"`
}

// Load parses a pattern file into classifier.ErrorPattern values.
func Load(path string) ([]classifier.ErrorPattern, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pattern file: %w", err)
	}
	var pf patternFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("parse pattern file: %w", err)
	}

	patterns := make([]classifier.ErrorPattern, 0, len(pf.Patterns))
	for _, e := range pf.Patterns {
		re, err := regexp.Compile(e.Regex)
		if err != nil {
			return nil, fmt.Errorf("compile pattern %q: %w", e.Regex, err)
		}
		p := classifier.ErrorPattern{
			Matcher:  classifier.Matcher{Regexp: re},
			Category: e.Category,
			Severity: e.Severity,
		}
		if e.Aggregation != nil {
			p.Aggregation = classifier.Aggregation{
				WindowMs:       e.Aggregation.WindowMs,
				CountThreshold: e.Aggregation.CountThreshold,
			}
		}
		patterns = append(patterns, p)
	}
	return patterns, nil
}

// Watcher reloads a classifier's error patterns whenever the watched file
// changes, debouncing rapid successive writes (editors often write a file
// more than once per save).
type Watcher struct {
	path      string
	debounce  time.Duration
	clsf      *classifier.Classifier
	logger    *logrus.Logger
	fsWatcher *fsnotify.Watcher

	mu    sync.Mutex
	timer *time.Timer

	done chan struct{}
}

// New loads the patterns currently in path into clsf, then starts watching
// path for changes and applies them to clsf. Call Close to stop.
func New(path string, clsf *classifier.Classifier, logger *logrus.Logger) (*Watcher, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if err := fw.Add(path); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}

	w := &Watcher{
		path:      path,
		debounce:  200 * time.Millisecond,
		clsf:      clsf,
		logger:    logger,
		fsWatcher: fw,
		done:      make(chan struct{}),
	}
	w.reload()
	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				w.scheduleReload()
			}
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.WithError(err).Warn("pattern watcher error")
		case <-w.done:
			return
		}
	}
}

func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.reload)
}

func (w *Watcher) reload() {
	patterns, err := Load(w.path)
	if err != nil {
		w.logger.WithError(err).Error("failed to reload error patterns")
		return
	}
	w.clsf.ClearErrorPatterns()
	w.clsf.AddErrorPatterns(patterns...)
	w.logger.WithField("count", len(patterns)).Info("reloaded error patterns")
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fsWatcher.Close()
}
