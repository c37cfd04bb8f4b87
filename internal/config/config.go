// Package config 读取命令行使用的 YAML 配置。
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 是 speech-engine 命令行的顶层配置结构。
type Config struct {
	// Provider 选择默认服务：google、witai、deepgram、elevenlabs、playai、openai、edge、tencent。
	Provider  string          `yaml:"provider"`
	Providers ProvidersConfig `yaml:"providers"`
	Audio     AudioConfig     `yaml:"audio"`
	HTTP      HTTPConfig      `yaml:"http"`
	History   HistoryConfig   `yaml:"history"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Log       LogConfig       `yaml:"log"`
}

// ProvidersConfig 各服务的凭据与默认参数。
type ProvidersConfig struct {
	Google     GoogleConfig     `yaml:"google"`
	Witai      WitaiConfig      `yaml:"witai"`
	Deepgram   KeyConfig        `yaml:"deepgram"`
	ElevenLabs ElevenLabsConfig `yaml:"elevenlabs"`
	PlayAI     KeyConfig        `yaml:"playai"`
	OpenAI     OpenAIConfig     `yaml:"openai"`
	Edge       EdgeConfig       `yaml:"edge"`
	Tencent    TencentConfig    `yaml:"tencent"`
}

// GoogleConfig Google 朗读配置。Language 即音色。
type GoogleConfig struct {
	Language string `yaml:"language"`
	TLD      string `yaml:"tld"`
	Slow     bool   `yaml:"slow"`
}

// WitaiConfig Wit.ai 配置。
type WitaiConfig struct {
	Token string  `yaml:"token"`
	Voice string  `yaml:"voice"`
	Speed float64 `yaml:"speed"`
	Pitch float64 `yaml:"pitch"`
}

// KeyConfig 只需要 API Key 和音色的服务。
type KeyConfig struct {
	APIKey string `yaml:"api_key"`
	Voice  string `yaml:"voice"`
}

// ElevenLabsConfig ElevenLabs 配置。
type ElevenLabsConfig struct {
	APIKey string `yaml:"api_key"`
	Voice  string `yaml:"voice"`
	Model  string `yaml:"model"`
}

// OpenAIConfig OpenAI TTS 配置。
type OpenAIConfig struct {
	APIKey string  `yaml:"api_key"`
	Voice  string  `yaml:"voice"`
	Model  string  `yaml:"model"`
	Speed  float64 `yaml:"speed"`
}

// EdgeConfig Edge TTS 配置。
type EdgeConfig struct {
	Voice string `yaml:"voice"`
}

// TencentConfig 腾讯云 TTS 配置。
type TencentConfig struct {
	SecretID  string  `yaml:"secret_id"`
	SecretKey string  `yaml:"secret_key"`
	Region    string  `yaml:"region"`
	Voice     string  `yaml:"voice"`
	Speed     float64 `yaml:"speed"`
}

// AudioConfig 播放配置。
type AudioConfig struct {
	ChunkFrames int `yaml:"chunk_frames"`
}

// HTTPConfig 出站请求配置。
type HTTPConfig struct {
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// Timeout 返回请求超时。
func (h HTTPConfig) Timeout() time.Duration {
	return time.Duration(h.TimeoutSeconds) * time.Second
}

// HistoryConfig 合成历史配置。DBPath 为 "-" 时不记录。
type HistoryConfig struct {
	DBPath string `yaml:"db_path"`
}

// Disabled 表示是否关闭历史记录。
func (h HistoryConfig) Disabled() bool {
	return h.DBPath == "-"
}

// MetricsConfig Prometheus 指标配置。Addr 为空时不启动 HTTP 服务。
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// LogConfig 日志配置。
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSize    int    `yaml:"max_size"` // MB
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"` // 天
}

// Default 返回只包含默认值的配置。
func Default() *Config {
	cfg := &Config{}
	setDefaults(cfg)
	return cfg
}

// Load 读取 YAML 配置文件并返回 Config。
// 支持 ${VAR_NAME} 形式的环境变量展开。
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件 %s 失败: %w", path, err)
	}

	// 展开环境变量，如 ${WIT_AI_TOKEN}
	expanded := os.Expand(string(data), func(key string) string {
		return os.Getenv(key)
	})

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件 %s 失败: %w", path, err)
	}

	setDefaults(cfg)
	return cfg, nil
}

// setDefaults 为未设置的配置项填充默认值。
func setDefaults(cfg *Config) {
	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))
	if cfg.Provider == "" {
		cfg.Provider = "google"
	}
	if cfg.Audio.ChunkFrames == 0 {
		cfg.Audio.ChunkFrames = 512
	}
	if cfg.HTTP.TimeoutSeconds == 0 {
		cfg.HTTP.TimeoutSeconds = 30
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}

	p := &cfg.Providers
	if p.Google.Language == "" {
		p.Google.Language = "en"
	}
	if p.Google.TLD == "" {
		p.Google.TLD = "com"
	}
	if p.Witai.Voice == "" {
		p.Witai.Voice = "Colin"
	}
	if p.Deepgram.Voice == "" {
		p.Deepgram.Voice = "aura-asteria-en"
	}
	if p.ElevenLabs.Voice == "" {
		p.ElevenLabs.Voice = "UgBBYS2sOqTuMpoF3BR0"
	}
	if p.ElevenLabs.Model == "" {
		p.ElevenLabs.Model = "eleven_multilingual_v2"
	}
	if p.PlayAI.Voice == "" {
		p.PlayAI.Voice = "Arista-PlayAI"
	}
	if p.OpenAI.Voice == "" {
		p.OpenAI.Voice = "alloy"
	}
	if p.OpenAI.Model == "" {
		p.OpenAI.Model = "tts-1"
	}
	if p.Edge.Voice == "" {
		p.Edge.Voice = "en-US-AriaNeural"
	}
	if p.Tencent.Voice == "" {
		p.Tencent.Voice = "1001"
	}
	if p.Tencent.Region == "" {
		p.Tencent.Region = "ap-guangzhou"
	}

	if cfg.History.DBPath != "-" {
		cfg.History.DBPath = expandHome(cfg.History.DBPath)
	}
	cfg.Log.File = expandHome(cfg.Log.File)

	// 去除凭据两端可能的空白（环境变量展开后常见）
	p.Witai.Token = strings.TrimSpace(p.Witai.Token)
	p.Deepgram.APIKey = strings.TrimSpace(p.Deepgram.APIKey)
	p.ElevenLabs.APIKey = strings.TrimSpace(p.ElevenLabs.APIKey)
	p.PlayAI.APIKey = strings.TrimSpace(p.PlayAI.APIKey)
	p.OpenAI.APIKey = strings.TrimSpace(p.OpenAI.APIKey)
	p.Tencent.SecretID = strings.TrimSpace(p.Tencent.SecretID)
	p.Tencent.SecretKey = strings.TrimSpace(p.Tencent.SecretKey)
}

// expandHome 展开 "~/" 前缀，Go 不会自动处理。
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, _ := os.UserHomeDir()
	if home == "" {
		return path
	}
	return home + path[1:]
}
