package tts

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/iabetor/speech-engine/internal/audio"
	"github.com/iabetor/speech-engine/internal/transport"
)

const (
	elevenLabsBaseURL = "https://api.elevenlabs.io"
	// MP3 22.05kHz 32kbps
	elevenLabsOutputFormat = "mp3_22050_32"

	// ElevenLabsDefaultVoice 是默认音色 ID。
	ElevenLabsDefaultVoice = "UgBBYS2sOqTuMpoF3BR0"
	// ElevenLabsDefaultModel 是默认多语言模型。
	ElevenLabsDefaultModel = "eleven_multilingual_v2"
)

// ElevenLabs 通过 ElevenLabs 合成语音，输出 MP3。
type ElevenLabs struct {
	*base
	client *transport.Client
	model  string
}

// NewElevenLabs 创建 ElevenLabs 服务并立即校验 API Key。
func NewElevenLabs(ctx context.Context, apiKey string, opts ...Option) (*ElevenLabs, error) {
	if err := requireCredential("elevenlabs", apiKey); err != nil {
		return nil, err
	}
	o := newOptions(opts)
	e := &ElevenLabs{
		base: newBase("elevenlabs", audio.ContainerMP3, ElevenLabsDefaultVoice, o),
		client: transport.New("elevenlabs", o.url(elevenLabsBaseURL), o.client("elevenlabs"), map[string]string{
			"xi-api-key": apiKey,
		}),
		model: ElevenLabsDefaultModel,
	}

	if _, err := e.fetchVoices(ctx); err != nil {
		return nil, credentialError("elevenlabs", err)
	}
	return e, nil
}

// Model 返回当前模型 ID。
func (e *ElevenLabs) Model() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.model
}

// SetModel 设置下一次合成使用的模型 ID。
func (e *ElevenLabs) SetModel(model string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.model = model
}

type elevenLabsRequest struct {
	Text    string `json:"text"`
	ModelID string `json:"model_id"`
}

// Speak 合成并播放。
func (e *ElevenLabs) Speak(ctx context.Context, text string) error {
	return e.speak(ctx, text, e.synthesizer(text))
}

// Save 合成并保存为 .mp3。
func (e *ElevenLabs) Save(ctx context.Context, text, filename string) error {
	return e.save(ctx, text, filename, e.synthesizer(text))
}

func (e *ElevenLabs) synthesizer(text string) fetchFunc {
	e.mu.Lock()
	voice, req := e.voice, elevenLabsRequest{Text: text, ModelID: e.model}
	e.mu.Unlock()

	return func(ctx context.Context) ([]byte, error) {
		data, err := e.client.Do(ctx, transport.Request{
			Method: http.MethodPost,
			Path:   "/v1/text-to-speech/" + url.PathEscape(voice),
			Query:  url.Values{"output_format": {elevenLabsOutputFormat}},
			Header: map[string]string{"Accept": "audio/mpeg"},
			JSON:   req,
		})
		if err != nil {
			return nil, remoteError("elevenlabs", err)
		}
		return data, nil
	}
}

type elevenLabsVoices struct {
	Voices []struct {
		VoiceID string `json:"voice_id"`
	} `json:"voices"`
}

// Voices 返回账号可用的音色 ID。
func (e *ElevenLabs) Voices(ctx context.Context) ([]string, error) {
	data, err := e.fetchVoices(ctx)
	if err != nil {
		return nil, remoteError("elevenlabs", err)
	}

	var resp elevenLabsVoices
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("[tts] elevenlabs: 解析音色列表失败: %w", err)
	}
	voices := make([]string, 0, len(resp.Voices))
	for _, v := range resp.Voices {
		if v.VoiceID != "" {
			voices = append(voices, v.VoiceID)
		}
	}
	return voices, nil
}

func (e *ElevenLabs) fetchVoices(ctx context.Context) ([]byte, error) {
	return e.client.Do(ctx, transport.Request{Method: http.MethodGet, Path: "/v2/voices"})
}
