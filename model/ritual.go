package model

import (
	"database/sql/driver"
	"encoding/json"
	"strings"
	"time"
)

// EmotionalPhase 仪式的情绪阶段标签
type EmotionalPhase string

const (
	PhaseInitializingVoid     EmotionalPhase = "INITIALIZING_VOID"
	PhaseProcessingMelancholy EmotionalPhase = "PROCESSING_MELANCHOLY"
	PhaseSystemFailure        EmotionalPhase = "SYSTEM_FAILURE"
	PhaseMemoryFragmentation  EmotionalPhase = "MEMORY_FRAGMENTATION"
	PhaseRuinedResonance      EmotionalPhase = "RUINED_RESONANCE"
	PhaseVoidResonance        EmotionalPhase = "VOID_RESONANCE"
	PhaseAnatolianDecay       EmotionalPhase = "ANATOLIAN_DECAY"
	PhaseDigitalMourning      EmotionalPhase = "DIGITAL_MOURNING"
)

// LyricLine 带时间戳的歌词行
type LyricLine struct {
	Time float64 `json:"time"` // 秒
	Text string  `json:"text"`
}

// LyricLines 自定义类型用于 GORM JSON 字段的自动扫描
type LyricLines []LyricLine

// Scan 实现 sql.Scanner 接口
func (l *LyricLines) Scan(value interface{}) error {
	return scanJSON(value, l)
}

// Value 实现 driver.Valuer 接口
func (l LyricLines) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	return json.Marshal(l)
}

// StringList 字符串数组的 JSON 列
type StringList []string

// Scan 实现 sql.Scanner 接口
func (s *StringList) Scan(value interface{}) error {
	return scanJSON(value, s)
}

// Value 实现 driver.Valuer 接口
func (s StringList) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	return json.Marshal(s)
}

func scanJSON(value interface{}, dst interface{}) error {
	var bytes []byte
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return nil
	}
	if len(bytes) == 0 || string(bytes) == "null" {
		return nil
	}
	return json.Unmarshal(bytes, dst)
}

// Palette 封面图的色板（由 CMS 从封面资源元数据中提取）
type Palette struct {
	PrimaryColor      string `json:"primaryColor,omitempty" gorm:"size:32"`
	SecondaryColor    string `json:"secondaryColor,omitempty" gorm:"size:32"`
	VibrantColor      string `json:"vibrantColor,omitempty" gorm:"size:32"`
	DarkVibrantColor  string `json:"darkVibrantColor,omitempty" gorm:"size:32"`
	LightVibrantColor string `json:"lightVibrantColor,omitempty" gorm:"size:32"`
	MutedColor        string `json:"mutedColor,omitempty" gorm:"size:32"`
	DarkMutedColor    string `json:"darkMutedColor,omitempty" gorm:"size:32"`
	LightMutedColor   string `json:"lightMutedColor,omitempty" gorm:"size:32"`
}

// Candidates returns the swatches in accent preference order.
func (p Palette) Candidates() []string {
	return []string{
		p.PrimaryColor,
		p.VibrantColor,
		p.DarkVibrantColor,
		p.LightVibrantColor,
		p.SecondaryColor,
		p.MutedColor,
		p.DarkMutedColor,
		p.LightMutedColor,
	}
}

// Ritual is one playable release. The player treats it as read-only.
type Ritual struct {
	ID              string         `json:"id" gorm:"primaryKey;size:64"`
	Title           string         `json:"title" gorm:"size:255;not null"`
	Slug            string         `json:"slug" gorm:"size:128;index"`
	ReleaseDate     string         `json:"releaseDate,omitempty" gorm:"size:32;index"`
	Description     string         `json:"description,omitempty" gorm:"type:text"`
	CoverImage      string         `json:"coverImage,omitempty" gorm:"size:1024"`
	EmotionalPhase  EmotionalPhase `json:"emotionalPhase" gorm:"size:64"`
	AudioURL        string         `json:"audioUrl,omitempty" gorm:"size:1024"`
	RitualText      StringList     `json:"ritualText,omitempty" gorm:"type:json"`
	SyncedLyrics    LyricLines     `json:"syncedLyrics,omitempty" gorm:"type:json"`
	LoreConnections StringList     `json:"loreConnections,omitempty" gorm:"type:json"`
	Featured        bool           `json:"featured"`
	Palette         `gorm:"embedded"`
	SyncedAt        time.Time `json:"-"`
}

// TableName 指定表名
func (Ritual) TableName() string {
	return "rituals"
}

// HasAudio reports whether the ritual can be played.
func (r *Ritual) HasAudio() bool {
	return r != nil && strings.TrimSpace(r.AudioURL) != ""
}

// HasSyncedLyrics reports whether a lyric timeline is available.
func (r *Ritual) HasSyncedLyrics() bool {
	return r != nil && len(r.SyncedLyrics) > 0
}
