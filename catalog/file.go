package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"VoidFM/core/lyrics"
	"VoidFM/logger"
	"VoidFM/model"
)

// fileDocument is the on-disk catalog layout.
type fileDocument struct {
	Rituals  []fileRitual        `json:"rituals"`
	Lore     []model.LoreNode    `json:"lore"`
	Settings *model.SiteSettings `json:"settings"`
	Pages    []model.PageContent `json:"pages"`
}

// fileRitual may carry its lyric timeline as inline LRC text or as a path
// to an .lrc file relative to the catalog.
type fileRitual struct {
	model.Ritual
	LRC     string `json:"lrc,omitempty"`
	LRCFile string `json:"lrcFile,omitempty"`
}

// FileProvider serves a local JSON catalog and can hot-reload it.
type FileProvider struct {
	path string

	mu  sync.RWMutex
	doc fileDocument
}

// NewFileProvider loads path. An empty path is ErrNotConfigured.
func NewFileProvider(path string) (*FileProvider, error) {
	if path == "" {
		return nil, ErrNotConfigured
	}
	p := &FileProvider{path: path}
	if err := p.Reload(); err != nil {
		return nil, err
	}
	return p, nil
}

// Reload re-reads the file; on error the previous contents stay.
func (p *FileProvider) Reload() error {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return fmt.Errorf("read catalog %s: %w", p.path, err)
	}
	var doc fileDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse catalog %s: %w", p.path, err)
	}

	dir := filepath.Dir(p.path)
	for i := range doc.Rituals {
		r := &doc.Rituals[i]
		if len(r.SyncedLyrics) > 0 {
			continue
		}
		raw := r.LRC
		if raw == "" && r.LRCFile != "" {
			lrcPath := r.LRCFile
			if !filepath.IsAbs(lrcPath) {
				lrcPath = filepath.Join(dir, lrcPath)
			}
			b, err := os.ReadFile(lrcPath)
			if err != nil {
				logger.Warn("Failed to read lyric file", logger.String("slug", r.Slug), logger.ErrorField(err))
				continue
			}
			raw = string(b)
		}
		if raw != "" {
			r.SyncedLyrics = lyrics.ParseLRC(raw)
		}
	}
	sort.SliceStable(doc.Rituals, func(i, j int) bool {
		return doc.Rituals[i].ReleaseDate > doc.Rituals[j].ReleaseDate
	})

	p.mu.Lock()
	p.doc = doc
	p.mu.Unlock()

	logger.Info("Catalog file loaded",
		logger.String("path", p.path),
		logger.Int("rituals", len(doc.Rituals)),
		logger.Int("lore", len(doc.Lore)))
	return nil
}

// Watch reloads the file whenever it settles after a change and calls
// onChange after each successful reload. It blocks until ctx is done.
func (p *FileProvider) Watch(ctx context.Context, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("创建文件监听器失败: %w", err)
	}
	defer watcher.Close()

	// 监听目录，编辑器保存时常常是 rename + create
	if err := watcher.Add(filepath.Dir(p.path)); err != nil {
		return fmt.Errorf("监听目录失败: %w", err)
	}

	target := filepath.Clean(p.path)
	var pending time.Time
	checkTicker := time.NewTicker(50 * time.Millisecond)
	defer checkTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) == target && event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				pending = time.Now()
			}

		case <-checkTicker.C:
			if pending.IsZero() || time.Since(pending) < 100*time.Millisecond {
				continue
			}
			pending = time.Time{}
			if err := p.Reload(); err != nil {
				logger.Warn("Catalog reload failed, keeping previous contents", logger.ErrorField(err))
				continue
			}
			if onChange != nil {
				onChange()
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("文件监听错误", logger.ErrorField(err))
		}
	}
}

func (p *FileProvider) Rituals(ctx context.Context) ([]model.Ritual, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]model.Ritual, len(p.doc.Rituals))
	for i, r := range p.doc.Rituals {
		out[i] = r.Ritual
	}
	return out, nil
}

func (p *FileProvider) RitualBySlug(ctx context.Context, slug string) (*model.Ritual, error) {
	list, _ := p.Rituals(ctx)
	return findSlug(list, slug)
}

func (p *FileProvider) LoreNodes(ctx context.Context) ([]model.LoreNode, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]model.LoreNode(nil), p.doc.Lore...), nil
}

func (p *FileProvider) SiteSettings(ctx context.Context) (*model.SiteSettings, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.doc.Settings == nil {
		return nil, ErrNotFound
	}
	s := *p.doc.Settings
	return &s, nil
}

func (p *FileProvider) Page(ctx context.Context, pageID string) (*model.PageContent, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, page := range p.doc.Pages {
		if page.PageID == pageID {
			pg := page
			return &pg, nil
		}
	}
	return nil, ErrNotFound
}
