package tts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/iabetor/speech-engine/internal/audio"
)

const (
	// OpenAIDefaultVoice 是 OpenAI TTS 的默认音色。
	OpenAIDefaultVoice = "alloy"
	// OpenAIDefaultModel 是 OpenAI TTS 的默认模型。
	OpenAIDefaultModel = string(openai.SpeechModelTTS1)
)

var openAIVoices = []string{"alloy", "echo", "fable", "onyx", "nova", "shimmer"}

// speechClient 封装 OpenAI 兼容的 /audio/speech 接口，OpenAI 与 PlayAI 共用。
type speechClient struct {
	provider string
	client   openai.Client
	format   openai.AudioSpeechNewParamsResponseFormat
}

func newSpeechClient(provider, apiKey, defaultURL string, o *options) *speechClient {
	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(o.client(provider)),
		option.WithMaxRetries(0),
	}
	if u := o.url(defaultURL); u != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(strings.TrimSuffix(u, "/")+"/"))
	}
	return &speechClient{provider: provider, client: openai.NewClient(reqOpts...)}
}

// synthesize 请求一次合成并读取完整音频。
func (s *speechClient) synthesize(ctx context.Context, model, voice, text string, speed float64) ([]byte, error) {
	params := openai.AudioSpeechNewParams{
		Model:          openai.SpeechModel(model),
		Input:          text,
		Voice:          openai.AudioSpeechNewParamsVoice(voice),
		ResponseFormat: s.format,
	}
	if speed > 0 {
		params.Speed = openai.Float(speed)
	}

	resp, err := s.client.Audio.Speech.New(ctx, params)
	if err != nil {
		return nil, s.remoteError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("[tts] %s: 读取音频失败: %w", s.provider, err)
	}
	return data, nil
}

// validate 通过列出模型校验 API Key。
func (s *speechClient) validate(ctx context.Context) error {
	if _, err := s.client.Models.List(ctx); err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return &InvalidCredentialError{Provider: s.provider, StatusCode: apiErr.StatusCode, Body: apiErrorBody(apiErr)}
		}
		return fmt.Errorf("[tts] %s: 凭据校验请求失败: %w", s.provider, err)
	}
	return nil
}

func (s *speechClient) remoteError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return &RemoteError{Provider: s.provider, StatusCode: apiErr.StatusCode, Body: apiErrorBody(apiErr)}
	}
	return fmt.Errorf("[tts] %s: %w", s.provider, err)
}

func apiErrorBody(e *openai.Error) string {
	if raw := strings.TrimSpace(e.RawJSON()); raw != "" {
		return raw
	}
	return e.Error()
}

// OpenAI 通过 OpenAI TTS 合成语音，输出 MP3。构造时只检查 Key 非空。
type OpenAI struct {
	*base
	speech *speechClient
	model  string
	speed  float64
}

// NewOpenAI 创建 OpenAI 服务。
func NewOpenAI(apiKey string, opts ...Option) (*OpenAI, error) {
	if err := requireCredential("openai", apiKey); err != nil {
		return nil, err
	}
	o := newOptions(opts)
	s := newSpeechClient("openai", apiKey, "", o)
	s.format = openai.AudioSpeechNewParamsResponseFormatMP3
	return &OpenAI{
		base:   newBase("openai", audio.ContainerMP3, OpenAIDefaultVoice, o),
		speech: s,
		model:  OpenAIDefaultModel,
	}, nil
}

// Model 返回当前模型。
func (p *OpenAI) Model() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.model
}

// SetModel 设置模型，如 "tts-1-hd"。
func (p *OpenAI) SetModel(model string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.model = model
}

// Speed 返回语速，0 表示未设置。
func (p *OpenAI) Speed() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.speed
}

// SetSpeed 设置语速（0.25 ~ 4.0），0 表示使用服务默认值。
func (p *OpenAI) SetSpeed(speed float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.speed = speed
}

// Voices 返回固定音色列表。
func (p *OpenAI) Voices(ctx context.Context) ([]string, error) {
	return append([]string(nil), openAIVoices...), nil
}

// Speak 合成并播放。
func (p *OpenAI) Speak(ctx context.Context, text string) error {
	return p.speak(ctx, text, p.synthesizer(text))
}

// Save 合成并保存为 .mp3。
func (p *OpenAI) Save(ctx context.Context, text, filename string) error {
	return p.save(ctx, text, filename, p.synthesizer(text))
}

func (p *OpenAI) synthesizer(text string) fetchFunc {
	p.mu.Lock()
	model, voice, speed := p.model, p.voice, p.speed
	p.mu.Unlock()

	return func(ctx context.Context) ([]byte, error) {
		return p.speech.synthesize(ctx, model, voice, text, speed)
	}
}
