package audio

import (
	"bytes"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
)

// DecodeFunc turns a seekable byte stream into a beep streamer.
type DecodeFunc func(rc io.ReadSeekCloser) (beep.StreamSeekCloser, beep.Format, error)

// DecoderRegistry 解码器注册表，按扩展名查找，扩展名缺失时按文件头嗅探
type DecoderRegistry struct {
	decoders map[string]DecodeFunc
	magic    []magicEntry
}

type magicEntry struct {
	prefix []byte
	format string
}

// NewDecoderRegistry creates a registry with mp3, wav, flac and ogg vorbis.
func NewDecoderRegistry() *DecoderRegistry {
	r := &DecoderRegistry{decoders: make(map[string]DecodeFunc)}

	r.Register(func(rc io.ReadSeekCloser) (beep.StreamSeekCloser, beep.Format, error) {
		return mp3.Decode(rc)
	}, "mp3")
	r.Register(func(rc io.ReadSeekCloser) (beep.StreamSeekCloser, beep.Format, error) {
		return wav.Decode(rc)
	}, "wav", "wave")
	r.Register(func(rc io.ReadSeekCloser) (beep.StreamSeekCloser, beep.Format, error) {
		return flac.Decode(rc)
	}, "flac")
	r.Register(func(rc io.ReadSeekCloser) (beep.StreamSeekCloser, beep.Format, error) {
		return vorbis.Decode(rc)
	}, "ogg", "oga")

	r.magic = []magicEntry{
		{[]byte("ID3"), "mp3"},
		{[]byte{0xFF, 0xFB}, "mp3"},
		{[]byte{0xFF, 0xF3}, "mp3"},
		{[]byte{0xFF, 0xF2}, "mp3"},
		{[]byte("RIFF"), "wav"},
		{[]byte("fLaC"), "flac"},
		{[]byte("OggS"), "ogg"},
	}
	return r
}

// Register 注册解码器
func (r *DecoderRegistry) Register(fn DecodeFunc, formats ...string) {
	for _, f := range formats {
		r.decoders[strings.ToLower(f)] = fn
	}
}

// Format resolves the format name of a locator, falling back to the
// header bytes when the extension is missing or unknown.
func (r *DecoderRegistry) Format(locator string, header []byte) (string, error) {
	if ext := extension(locator); ext != "" {
		if _, ok := r.decoders[ext]; ok {
			return ext, nil
		}
	}
	for _, m := range r.magic {
		if bytes.HasPrefix(header, m.prefix) {
			return m.format, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, locator)
}

// Decode picks a decoder for the buffered source and decodes it.
func (r *DecoderRegistry) Decode(locator string, data []byte) (beep.StreamSeekCloser, beep.Format, error) {
	format, err := r.Format(locator, data)
	if err != nil {
		return nil, beep.Format{}, err
	}
	streamer, f, err := r.decoders[format](&memFile{Reader: bytes.NewReader(data)})
	if err != nil {
		return nil, beep.Format{}, fmt.Errorf("decode %s: %w", format, err)
	}
	return streamer, f, nil
}

func extension(locator string) string {
	path := locator
	if u, err := url.Parse(locator); err == nil && u.Path != "" {
		path = u.Path
	}
	ext := strings.ToLower(filepath.Ext(path))
	return strings.TrimPrefix(ext, ".")
}

// memFile makes a buffered source seekable for the decoders.
type memFile struct {
	*bytes.Reader
}

func (memFile) Close() error { return nil }
