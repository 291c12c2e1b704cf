// Package audiocache stores synthesized speech on disk, keyed by content.
//
// A clip's identity is the pair (text, voice id): the same sentence spoken
// by the same voice always maps to the same file, so repeated dialogue never
// pays for a second synthesis call. The cache is bounded by a byte budget
// enforced by an oldest-first sweep.
package audiocache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/MrWong99/lorespeaker/pkg/provider/tts"
)

const (
	filePrefix = "quest_"
	fileSuffix = ".mp3"
)

// Cache is a content-addressed audio file cache with a byte budget.
type Cache struct {
	dir      string
	maxBytes int64
	log      *slog.Logger
}

// New creates a cache rooted at dir with the given byte budget. The
// directory is created if missing.
func New(dir string, maxBytes int64) (*Cache, error) {
	if maxBytes <= 0 {
		return nil, fmt.Errorf("audiocache: maxBytes must be positive, got %d", maxBytes)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("audiocache: create dir %s: %w", dir, err)
	}
	return &Cache{
		dir:      dir,
		maxBytes: maxBytes,
		log:      slog.With("component", "audiocache"),
	}, nil
}

// Key derives the cache key for a text/voice pair. MD5 here is a stable
// content fingerprint, not a security boundary.
func Key(text, voiceID string) string {
	sum := md5.Sum([]byte(text + "_" + voiceID))
	return hex.EncodeToString(sum[:])
}

// Path returns the file path a text/voice pair maps to, whether or not the
// file exists yet.
func (c *Cache) Path(text, voiceID string) string {
	return filepath.Join(c.dir, filePrefix+Key(text, voiceID)+fileSuffix)
}

// GetOrCreate returns the path of the cached clip for text/voiceID,
// synthesizing and storing it first on a miss. The returned path is fully
// written before GetOrCreate returns, so callers may open it immediately.
// hit reports whether the clip came from the cache.
func (c *Cache) GetOrCreate(ctx context.Context, text, voiceID string, synth tts.Synthesizer) (path string, hit bool, err error) {
	path = c.Path(text, voiceID)
	if info, err := os.Stat(path); err == nil && info.Size() > 0 {
		return path, true, nil
	}

	audio, err := synth.Synthesize(ctx, text, voiceID)
	if err != nil {
		return "", false, fmt.Errorf("audiocache: synthesize: %w", err)
	}
	if err := c.write(path, audio); err != nil {
		return "", false, err
	}
	return path, false, nil
}

// write stores audio at path via temp file and rename so a concurrent
// reader never sees a half-written clip.
func (c *Cache) write(path string, audio []byte) error {
	tmp, err := os.CreateTemp(c.dir, ".synth-*")
	if err != nil {
		return fmt.Errorf("audiocache: create temp file: %w", err)
	}
	name := tmp.Name()
	if _, err := tmp.Write(audio); err != nil {
		tmp.Close()
		os.Remove(name)
		return fmt.Errorf("audiocache: write clip: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return fmt.Errorf("audiocache: close clip: %w", err)
	}
	if err := os.Rename(name, path); err != nil {
		os.Remove(name)
		return fmt.Errorf("audiocache: store clip: %w", err)
	}
	return nil
}

// entry is one cached clip found by the sweep.
type entry struct {
	path    string
	size    int64
	modTime int64
}

// EnforceBudget deletes the oldest clips until the cache fits its byte
// budget. Files vanishing mid-sweep are tolerated; another process or a
// parallel sweep may race on deletion.
func (c *Cache) EnforceBudget() error {
	entries, total, err := c.scan()
	if err != nil {
		return err
	}
	if total <= c.maxBytes {
		return nil
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].modTime < entries[j].modTime })

	freed := int64(0)
	deleted := 0
	for _, e := range entries {
		if total-freed <= c.maxBytes {
			break
		}
		if err := os.Remove(e.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			c.log.Warn("could not evict cached clip", "path", e.path, "error", err)
			continue
		}
		freed += e.size
		deleted++
	}
	c.log.Info("audio cache sweep finished", "deleted", deleted, "freed_bytes", freed, "total_bytes", total-freed)
	return nil
}

// scan lists all cached clips with their sizes and modification times.
func (c *Cache) scan() ([]entry, int64, error) {
	dirEntries, err := os.ReadDir(c.dir)
	if err != nil {
		return nil, 0, fmt.Errorf("audiocache: read dir %s: %w", c.dir, err)
	}
	var entries []entry
	var total int64
	for _, de := range dirEntries {
		name := de.Name()
		if de.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		entries = append(entries, entry{
			path:    filepath.Join(c.dir, name),
			size:    info.Size(),
			modTime: info.ModTime().UnixNano(),
		})
		total += info.Size()
	}
	return entries, total, nil
}
