package tts

import (
	"context"

	"github.com/openai/openai-go"

	"github.com/iabetor/speech-engine/internal/audio"
)

const (
	playAIBaseURL = "https://api.groq.com/openai/v1"
	playAIModel   = "playai-tts"

	// PlayAIDefaultVoice 是 PlayAI 的默认音色。
	PlayAIDefaultVoice = "Arista-PlayAI"
)

var playAIVoices = []string{
	"Arista-PlayAI", "Atlas-PlayAI", "Basil-PlayAI", "Briggs-PlayAI",
	"Calum-PlayAI", "Celeste-PlayAI", "Cheyenne-PlayAI", "Chip-PlayAI",
	"Cillian-PlayAI", "Deedee-PlayAI", "Fritz-PlayAI", "Gail-PlayAI",
	"Indigo-PlayAI", "Mamaw-PlayAI", "Mason-PlayAI", "Mikail-PlayAI",
	"Mitch-PlayAI", "Quinn-PlayAI", "Thunder-PlayAI",
}

// PlayAI 通过 Groq 托管的 PlayAI 模型合成语音，输出 WAV。
type PlayAI struct {
	*base
	speech *speechClient
}

// NewPlayAI 创建 PlayAI 服务并通过 Groq 模型列表接口校验 API Key。
func NewPlayAI(ctx context.Context, apiKey string, opts ...Option) (*PlayAI, error) {
	if err := requireCredential("playai", apiKey); err != nil {
		return nil, err
	}
	o := newOptions(opts)
	s := newSpeechClient("playai", apiKey, playAIBaseURL, o)
	s.format = openai.AudioSpeechNewParamsResponseFormatWAV

	if err := s.validate(ctx); err != nil {
		return nil, err
	}
	return &PlayAI{
		base:   newBase("playai", audio.ContainerWAV, PlayAIDefaultVoice, o),
		speech: s,
	}, nil
}

// Voices 返回固定音色列表。
func (p *PlayAI) Voices(ctx context.Context) ([]string, error) {
	return append([]string(nil), playAIVoices...), nil
}

// Speak 合成并播放。
func (p *PlayAI) Speak(ctx context.Context, text string) error {
	return p.speak(ctx, text, p.synthesizer(text))
}

// Save 合成并保存为 .wav。
func (p *PlayAI) Save(ctx context.Context, text, filename string) error {
	return p.save(ctx, text, filename, p.synthesizer(text))
}

func (p *PlayAI) synthesizer(text string) fetchFunc {
	voice := p.Voice()
	return func(ctx context.Context) ([]byte, error) {
		return p.speech.synthesize(ctx, playAIModel, voice, text, 0)
	}
}
