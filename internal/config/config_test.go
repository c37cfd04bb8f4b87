package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSetDefaults_EmptyConfig(t *testing.T) {
	cfg := &Config{}
	setDefaults(cfg)

	checks := []struct {
		name string
		got  interface{}
		want interface{}
	}{
		{"Provider", cfg.Provider, "google"},
		{"Audio.ChunkFrames", cfg.Audio.ChunkFrames, 512},
		{"HTTP.TimeoutSeconds", cfg.HTTP.TimeoutSeconds, 30},
		{"Log.Level", cfg.Log.Level, "info"},
		{"Google.Language", cfg.Providers.Google.Language, "en"},
		{"Google.TLD", cfg.Providers.Google.TLD, "com"},
		{"Witai.Voice", cfg.Providers.Witai.Voice, "Colin"},
		{"Deepgram.Voice", cfg.Providers.Deepgram.Voice, "aura-asteria-en"},
		{"ElevenLabs.Voice", cfg.Providers.ElevenLabs.Voice, "UgBBYS2sOqTuMpoF3BR0"},
		{"ElevenLabs.Model", cfg.Providers.ElevenLabs.Model, "eleven_multilingual_v2"},
		{"PlayAI.Voice", cfg.Providers.PlayAI.Voice, "Arista-PlayAI"},
		{"OpenAI.Voice", cfg.Providers.OpenAI.Voice, "alloy"},
		{"OpenAI.Model", cfg.Providers.OpenAI.Model, "tts-1"},
		{"Edge.Voice", cfg.Providers.Edge.Voice, "en-US-AriaNeural"},
		{"Tencent.Voice", cfg.Providers.Tencent.Voice, "1001"},
		{"Tencent.Region", cfg.Providers.Tencent.Region, "ap-guangzhou"},
	}

	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s: got %v, want %v", c.name, c.got, c.want)
		}
	}
	if cfg.HTTP.Timeout() != 30*time.Second {
		t.Errorf("Timeout: got %v", cfg.HTTP.Timeout())
	}
	if cfg.History.Disabled() {
		t.Error("history should be enabled by default")
	}
}

func TestSetDefaults_DoesNotOverride(t *testing.T) {
	cfg := &Config{
		Provider: " Deepgram ",
		Audio:    AudioConfig{ChunkFrames: 1024},
		HTTP:     HTTPConfig{TimeoutSeconds: 5},
		Providers: ProvidersConfig{
			Witai: WitaiConfig{Voice: "Cooper"},
			Edge:  EdgeConfig{Voice: "zh-CN-XiaoxiaoNeural"},
		},
		History: HistoryConfig{DBPath: "-"},
		Log:     LogConfig{Level: "debug"},
	}
	setDefaults(cfg)

	if cfg.Provider != "deepgram" {
		t.Errorf("Provider should be normalised: got %q", cfg.Provider)
	}
	if cfg.Audio.ChunkFrames != 1024 {
		t.Errorf("ChunkFrames should not be overridden: got %d", cfg.Audio.ChunkFrames)
	}
	if cfg.HTTP.TimeoutSeconds != 5 {
		t.Errorf("TimeoutSeconds should not be overridden: got %d", cfg.HTTP.TimeoutSeconds)
	}
	if cfg.Providers.Witai.Voice != "Cooper" {
		t.Errorf("Witai.Voice should not be overridden: got %s", cfg.Providers.Witai.Voice)
	}
	if cfg.Providers.Edge.Voice != "zh-CN-XiaoxiaoNeural" {
		t.Errorf("Edge.Voice should not be overridden: got %s", cfg.Providers.Edge.Voice)
	}
	if !cfg.History.Disabled() {
		t.Error(`history should be disabled by "-"`)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level should not be overridden: got %s", cfg.Log.Level)
	}
}

func TestLoad_ValidYAML(t *testing.T) {
	yamlContent := `
provider: elevenlabs
providers:
  elevenlabs:
    api_key: el-key
    model: eleven_turbo_v2
  google:
    tld: co.uk
    slow: true
  witai:
    speed: 120
    pitch: 80
audio:
  chunk_frames: 256
metrics:
  addr: ":9090"
log:
  level: debug
  file: /tmp/speech-engine.log
`
	tmpDir := t.TempDir()
	tmpFile := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(tmpFile, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}

	cfg, err := Load(tmpFile)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Provider != "elevenlabs" {
		t.Errorf("Provider: got %q", cfg.Provider)
	}
	if cfg.Providers.ElevenLabs.APIKey != "el-key" || cfg.Providers.ElevenLabs.Model != "eleven_turbo_v2" {
		t.Errorf("ElevenLabs: got %+v", cfg.Providers.ElevenLabs)
	}
	if cfg.Providers.Google.TLD != "co.uk" || !cfg.Providers.Google.Slow {
		t.Errorf("Google: got %+v", cfg.Providers.Google)
	}
	if cfg.Providers.Witai.Speed != 120 || cfg.Providers.Witai.Pitch != 80 {
		t.Errorf("Witai: got %+v", cfg.Providers.Witai)
	}
	if cfg.Audio.ChunkFrames != 256 {
		t.Errorf("Audio.ChunkFrames: got %d", cfg.Audio.ChunkFrames)
	}
	if cfg.Metrics.Addr != ":9090" {
		t.Errorf("Metrics.Addr: got %q", cfg.Metrics.Addr)
	}
	if cfg.Log.Level != "debug" || cfg.Log.File != "/tmp/speech-engine.log" {
		t.Errorf("Log: got %+v", cfg.Log)
	}
	// 未设置的字段应使用默认值
	if cfg.Providers.Google.Language != "en" {
		t.Errorf("Google.Language should default to en, got %q", cfg.Providers.Google.Language)
	}
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("TEST_WIT_TOKEN", "  secret-from-env ")

	yamlContent := `
providers:
  witai:
    token: "${TEST_WIT_TOKEN}"
`
	tmpDir := t.TempDir()
	tmpFile := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(tmpFile, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}

	cfg, err := Load(tmpFile)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Providers.Witai.Token != "secret-from-env" {
		t.Errorf("expected expanded and trimmed token, got %q", cfg.Providers.Witai.Token)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("expected error for nonexistent file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(tmpFile, []byte("provider: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(tmpFile); err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestSetDefaults_TrimsCredentials(t *testing.T) {
	cfg := &Config{Providers: ProvidersConfig{
		Deepgram: KeyConfig{APIKey: "  key-with-spaces  "},
		Tencent:  TencentConfig{SecretID: "\tid\n", SecretKey: " sk "},
	}}
	setDefaults(cfg)
	if cfg.Providers.Deepgram.APIKey != "key-with-spaces" {
		t.Errorf("expected trimmed API key, got %q", cfg.Providers.Deepgram.APIKey)
	}
	if cfg.Providers.Tencent.SecretID != "id" || cfg.Providers.Tencent.SecretKey != "sk" {
		t.Errorf("expected trimmed secrets, got %+v", cfg.Providers.Tencent)
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		t.Skip("no home directory")
	}
	if got := expandHome("~/history.db"); got != home+"/history.db" {
		t.Errorf("expandHome: got %q", got)
	}
	if got := expandHome("/abs/path"); got != "/abs/path" {
		t.Errorf("expandHome should keep absolute path, got %q", got)
	}
}
