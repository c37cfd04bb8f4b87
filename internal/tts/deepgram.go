package tts

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/iabetor/speech-engine/internal/audio"
	"github.com/iabetor/speech-engine/internal/transport"
)

const (
	deepgramBaseURL    = "https://api.deepgram.com"
	deepgramSampleRate = 24000

	// DeepgramDefaultVoice 是 Deepgram Aura 的默认模型。
	DeepgramDefaultVoice = "aura-asteria-en"
)

// Deepgram 通过 Deepgram Aura 合成语音，输出 24kHz 16-bit WAV。
// 音色即模型名，如 "aura-asteria-en"。
type Deepgram struct {
	*base
	client *transport.Client
}

// NewDeepgram 创建 Deepgram 服务并立即校验 API Key。
func NewDeepgram(ctx context.Context, apiKey string, opts ...Option) (*Deepgram, error) {
	if err := requireCredential("deepgram", apiKey); err != nil {
		return nil, err
	}
	o := newOptions(opts)
	d := &Deepgram{
		base: newBase("deepgram", audio.ContainerWAV, DeepgramDefaultVoice, o),
		client: transport.New("deepgram", o.url(deepgramBaseURL), o.client("deepgram"), map[string]string{
			"Authorization": "Token " + apiKey,
		}),
	}

	if _, err := d.fetchModels(ctx); err != nil {
		return nil, credentialError("deepgram", err)
	}
	return d, nil
}

// Speak 合成并播放。
func (d *Deepgram) Speak(ctx context.Context, text string) error {
	return d.speak(ctx, text, d.synthesizer(text))
}

// Save 合成并保存为 .wav。
func (d *Deepgram) Save(ctx context.Context, text, filename string) error {
	return d.save(ctx, text, filename, d.synthesizer(text))
}

func (d *Deepgram) synthesizer(text string) fetchFunc {
	query := url.Values{
		"model":       {d.Voice()},
		"encoding":    {"linear16"},
		"sample_rate": {strconv.Itoa(deepgramSampleRate)},
		"container":   {"wav"},
	}
	return func(ctx context.Context) ([]byte, error) {
		data, err := d.client.Do(ctx, transport.Request{
			Method: http.MethodPost,
			Path:   "/v1/speak",
			Query:  query,
			JSON:   map[string]string{"text": text},
		})
		if err != nil {
			return nil, remoteError("deepgram", err)
		}
		return data, nil
	}
}

type deepgramModels struct {
	TTS []struct {
		CanonicalName string `json:"canonical_name"`
	} `json:"tts"`
}

// Voices 返回 TTS 模型的 canonical_name 列表。
func (d *Deepgram) Voices(ctx context.Context) ([]string, error) {
	data, err := d.fetchModels(ctx)
	if err != nil {
		return nil, remoteError("deepgram", err)
	}

	var models deepgramModels
	if err := json.Unmarshal(data, &models); err != nil {
		return nil, fmt.Errorf("[tts] deepgram: 解析模型列表失败: %w", err)
	}
	voices := make([]string, 0, len(models.TTS))
	for _, m := range models.TTS {
		if m.CanonicalName != "" {
			voices = append(voices, m.CanonicalName)
		}
	}
	return voices, nil
}

func (d *Deepgram) fetchModels(ctx context.Context) ([]byte, error) {
	return d.client.Do(ctx, transport.Request{Method: http.MethodGet, Path: "/v1/models"})
}
