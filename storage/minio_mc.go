package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
)

// BucketStats 存储桶统计信息
type BucketStats struct {
	TotalObjects int64
	TotalSize    int64
	LastModified time.Time
	ByKind       map[string]int64 // audio / image / lyrics / other → 文件数
}

// ObjectInfo 文件信息
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
	ContentType  string
	ETag         string
}

// List 列出前缀下的对象并汇总统计
func (s *MinioStore) List(ctx context.Context, prefix string, recursive bool) ([]ObjectInfo, *BucketStats, error) {
	stats := &BucketStats{ByKind: make(map[string]int64)}
	var objects []ObjectInfo

	objectCh := s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: recursive,
	})
	for object := range objectCh {
		if object.Err != nil {
			return nil, nil, fmt.Errorf("列出对象时出错: %w", object.Err)
		}
		info := toObjectInfo(object)
		stats.add(info)
		objects = append(objects, info)
	}
	return objects, stats, nil
}

// DeletePrefix 删除前缀下的所有对象，返回删除数量
func (s *MinioStore) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	if prefix == "" {
		return 0, fmt.Errorf("删除操作需要指定目录前缀")
	}
	objectsCh := make(chan minio.ObjectInfo)
	sent := 0
	go func() {
		defer close(objectsCh)
		for object := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
			if object.Err != nil {
				continue
			}
			sent++
			objectsCh <- object
		}
	}()

	// RemoveObjects 只返回失败项，结果通道关闭时输入已读完
	failed := 0
	for rErr := range s.client.RemoveObjects(ctx, s.bucket, objectsCh, minio.RemoveObjectsOptions{}) {
		if rErr.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		return sent - failed, fmt.Errorf("%d 个对象删除失败", failed)
	}
	return sent, nil
}

func (b *BucketStats) add(o ObjectInfo) {
	b.TotalObjects++
	b.TotalSize += o.Size
	if o.LastModified.After(b.LastModified) {
		b.LastModified = o.LastModified
	}
	if b.ByKind != nil {
		b.ByKind[InferKind(o.Key)]++
	}
}

// Summarize computes stats for an already listed set of objects.
func Summarize(objects []ObjectInfo) *BucketStats {
	stats := &BucketStats{ByKind: make(map[string]int64)}
	for _, o := range objects {
		stats.add(o)
	}
	return stats
}

// PrintTree 按目录结构打印对象
func PrintTree(w io.Writer, prefix string, objects []ObjectInfo) {
	dirs := make(map[string]bool)
	for _, o := range objects {
		for d := path.Dir(o.Key); d != "." && d != "/"; d = path.Dir(d) {
			dirs[d] = true
		}
	}
	var sortedDirs []string
	for dir := range dirs {
		if strings.HasPrefix(dir, strings.TrimSuffix(prefix, "/")) {
			sortedDirs = append(sortedDirs, dir)
		}
	}
	sort.Strings(sortedDirs)

	// 根目录下的文件
	for _, o := range objects {
		if path.Dir(o.Key) == "." {
			fmt.Fprintf(w, "📄 %s (%s)\n", o.Key, FormatSize(o.Size))
		}
	}
	for _, dir := range sortedDirs {
		indent := strings.Repeat("  ", strings.Count(dir, "/"))
		fmt.Fprintf(w, "%s📁 %s/\n", indent, dir)
		for _, o := range objects {
			if path.Dir(o.Key) == dir {
				fmt.Fprintf(w, "%s  📄 %s (%s)\n", indent, path.Base(o.Key), FormatSize(o.Size))
			}
		}
	}
}

// FormatSize 格式化文件大小
func FormatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}

// InferKind 从文件名推断内容类型
func InferKind(filename string) string {
	switch strings.ToLower(path.Ext(filename)) {
	case ".mp3", ".wav", ".flac", ".ogg", ".oga":
		return "audio"
	case ".jpg", ".jpeg", ".png", ".webp":
		return "image"
	case ".lrc":
		return "lyrics"
	default:
		return "other"
	}
}
