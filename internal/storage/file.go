package storage

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"oauthprompt/pkg/logging"
)

const (
	encodingText   = "text"
	encodingBase64 = "base64"
)

// fileRecord is the YAML document written for each key.
type fileRecord struct {
	Key       string    `yaml:"key"`
	UpdatedAt time.Time `yaml:"updatedAt"`
	Encoding  string    `yaml:"encoding"`
	Data      string    `yaml:"data"`
}

// FileStorage stores each key as a YAML document in a single directory.
// It survives process restarts and is suitable for single-host deployments.
type FileStorage struct {
	mu  sync.RWMutex
	dir string
}

// NewFileStorage creates a FileStorage rooted at dir. The directory is created
// on first write.
func NewFileStorage(dir string) (*FileStorage, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("storage directory cannot be empty")
	}
	return &FileStorage{dir: filepath.Clean(dir)}, nil
}

// Dir returns the storage directory.
func (fs *FileStorage) Dir() string {
	return fs.dir
}

func (fs *FileStorage) Read(_ context.Context, key string) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	fs.mu.RLock()
	defer fs.mu.RUnlock()

	rec, err := fs.readRecord(fs.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if rec.Key != key {
		// Sanitized name collided with a different key.
		return nil, ErrNotFound
	}
	return decodeData(rec)
}

func (fs *FileStorage) Write(_ context.Context, key string, data []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}

	rec := fileRecord{Key: key, UpdatedAt: time.Now().UTC(), Encoding: encodingText, Data: string(data)}
	if !utf8.Valid(data) {
		rec.Encoding = encodingBase64
		rec.Data = base64.StdEncoding.EncodeToString(data)
	}
	out, err := yaml.Marshal(&rec)
	if err != nil {
		return fmt.Errorf("failed to encode record for %s: %w", key, err)
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	if err := os.MkdirAll(fs.dir, 0o700); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", fs.dir, err)
	}

	path := fs.pathFor(key)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, out, 0o600); err != nil {
		return fmt.Errorf("failed to write file %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace file %s: %w", path, err)
	}

	logging.Debug("Storage", "Saved %s to %s", key, path)
	return nil
}

func (fs *FileStorage) Delete(_ context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	path := fs.pathFor(key)
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete file %s: %w", path, err)
	}
	return nil
}

func (fs *FileStorage) List(_ context.Context, prefix string) ([]string, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	files, err := filepath.Glob(filepath.Join(fs.dir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to glob yaml files: %w", err)
	}

	keys := make([]string, 0, len(files))
	for _, path := range files {
		rec, err := fs.readRecord(path)
		if err != nil {
			logging.Warn("Storage", "Skipping unreadable record %s: %v", path, err)
			continue
		}
		if strings.HasPrefix(rec.Key, prefix) {
			keys = append(keys, rec.Key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (fs *FileStorage) readRecord(path string) (*fileRecord, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rec fileRecord
	if err := yaml.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return &rec, nil
}

func decodeData(rec *fileRecord) ([]byte, error) {
	switch rec.Encoding {
	case encodingBase64:
		data, err := base64.StdEncoding.DecodeString(rec.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", rec.Key, err)
		}
		return data, nil
	default:
		return []byte(rec.Data), nil
	}
}

// pathFor maps a key to a file name: a readable sanitized prefix plus a short
// hash so that keys differing only in special characters do not collide.
func (fs *FileStorage) pathFor(key string) string {
	sum := sha256.Sum256([]byte(key))
	name := sanitizeFilename(key) + "-" + hex.EncodeToString(sum[:4]) + ".yaml"
	return filepath.Join(fs.dir, name)
}

// sanitizeFilename ensures the filename is safe for filesystem operations
func sanitizeFilename(name string) string {
	replacer := strings.NewReplacer(
		"/", "_", "\\", "_", ":", "_", "*", "_", "?", "_",
		"\"", "_", "<", "_", ">", "_", "|", "_", ".", "_", " ", "_",
	)
	sanitized := replacer.Replace(name)

	// Collapse multiple consecutive underscores to single underscore
	for strings.Contains(sanitized, "__") {
		sanitized = strings.ReplaceAll(sanitized, "__", "_")
	}
	sanitized = strings.Trim(sanitized, "_")

	if len(sanitized) > 64 {
		sanitized = sanitized[:64]
	}
	if sanitized == "" {
		sanitized = "unnamed"
	}
	return sanitized
}
