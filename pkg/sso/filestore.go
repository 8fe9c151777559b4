package sso

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/platinummonkey/idp-redirect/pkg/observability"
)

// mappingFile is the YAML layout of a mappings file:
//
//	mappings:
//	  - domain: example.com
//	    idp_alias: corp-saml
//	    enabled: true
type mappingFile struct {
	Mappings []mappingFileEntry `yaml:"mappings"`
}

type mappingFileEntry struct {
	Domain   string `yaml:"domain"`
	IdpAlias string `yaml:"idp_alias"`
	Enabled  *bool  `yaml:"enabled"`
}

// FileStore serves domain mappings from a YAML file and reloads it when the file changes
type FileStore struct {
	path    string
	logger  *observability.Logger
	metrics *observability.Metrics

	mu      sync.RWMutex
	aliases map[string]string
	enabled int

	watcher *fsnotify.Watcher
	done    chan struct{}
	wg      sync.WaitGroup
}

// NewFileStore loads path once. Call Watch to pick up later edits.
func NewFileStore(path string, logger *observability.Logger) (*FileStore, error) {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	fs := &FileStore{
		path:   path,
		logger: logger.WithField("mappings_file", path),
		done:   make(chan struct{}),
	}
	if err := fs.Reload(); err != nil {
		return nil, err
	}
	return fs, nil
}

// WithMetrics records lookup latency
func (fs *FileStore) WithMetrics(metrics *observability.Metrics) *FileStore {
	fs.metrics = metrics
	return fs
}

// FindEnabledIdpAlias returns the alias mapped to domain
func (fs *FileStore) FindEnabledIdpAlias(ctx context.Context, domain string) (string, error) {
	defer fs.metrics.ObserveLookup("file", time.Now(), false)

	fs.mu.RLock()
	defer fs.mu.RUnlock()

	alias, ok := fs.aliases[domain]
	if !ok {
		return "", ErrMappingNotFound
	}
	return alias, nil
}

// CountEnabled returns the number of enabled mappings currently loaded
func (fs *FileStore) CountEnabled(ctx context.Context) (int, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return fs.enabled, nil
}

// Reload re-reads the mappings file. On error the previous mappings stay in place.
func (fs *FileStore) Reload() error {
	data, err := os.ReadFile(fs.path)
	if err != nil {
		return fmt.Errorf("failed to read mappings file: %w", err)
	}

	aliases, err := fs.parse(data)
	if err != nil {
		return err
	}

	fs.mu.Lock()
	fs.aliases = aliases
	fs.enabled = len(aliases)
	fs.mu.Unlock()

	fs.logger.WithField("enabled_mappings", len(aliases)).Info("Loaded domain mappings")
	return nil
}

func (fs *FileStore) parse(data []byte) (map[string]string, error) {
	var file mappingFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse mappings file: %w", err)
	}

	aliases := make(map[string]string, len(file.Mappings))
	for i, entry := range file.Mappings {
		domain := NormalizeDomain(entry.Domain)
		if domain == "" || entry.IdpAlias == "" {
			return nil, fmt.Errorf("mapping %d: domain and idp_alias are required", i)
		}
		if entry.Enabled != nil && !*entry.Enabled {
			continue
		}
		if existing, ok := aliases[domain]; ok {
			fs.logger.WithFields(map[string]interface{}{
				"domain":    domain,
				"idp_alias": existing,
				"ignored":   entry.IdpAlias,
			}).Warn("Multiple enabled IdP mappings for domain, using the first")
			continue
		}
		aliases[domain] = entry.IdpAlias
	}
	return aliases, nil
}

// Watch starts reloading the file on change. The parent directory is watched
// so editors that replace the file by rename are handled.
func (fs *FileStore) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(fs.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch mappings directory: %w", err)
	}
	fs.watcher = watcher

	fs.wg.Add(1)
	go fs.watchLoop()
	return nil
}

func (fs *FileStore) watchLoop() {
	defer fs.wg.Done()
	defer observability.RecoverPanic(fs.logger, "mappings file watcher")

	target := filepath.Clean(fs.path)
	for {
		select {
		case <-fs.done:
			return
		case event, ok := <-fs.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if err := fs.Reload(); err != nil {
				fs.logger.WithError(err).Error("Failed to reload domain mappings, keeping previous set")
			}
		case err, ok := <-fs.watcher.Errors:
			if !ok {
				return
			}
			fs.logger.WithError(err).Warn("Watcher error")
		}
	}
}

// Close stops the watcher
func (fs *FileStore) Close() error {
	select {
	case <-fs.done:
		return nil
	default:
		close(fs.done)
	}

	var err error
	if fs.watcher != nil {
		err = fs.watcher.Close()
	}
	fs.wg.Wait()
	return err
}
