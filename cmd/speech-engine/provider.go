package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/iabetor/speech-engine/internal/config"
	"github.com/iabetor/speech-engine/internal/tts"
)

// providerFactory 按配置创建服务并应用配置中的默认参数。
type providerFactory func(ctx context.Context, cfg *config.Config, opts []tts.Option) (tts.Provider, error)

var providerFactories = map[string]providerFactory{
	"google": func(ctx context.Context, cfg *config.Config, opts []tts.Option) (tts.Provider, error) {
		c := cfg.Providers.Google
		g := tts.NewGoogle(opts...)
		g.SetVoice(c.Language)
		g.SetTLD(c.TLD)
		g.SetSlow(c.Slow)
		return g, nil
	},
	"witai": func(ctx context.Context, cfg *config.Config, opts []tts.Option) (tts.Provider, error) {
		c := cfg.Providers.Witai
		w, err := tts.NewWitai(ctx, c.Token, opts...)
		if err != nil {
			return nil, err
		}
		w.SetVoice(c.Voice)
		w.SetSpeed(c.Speed)
		w.SetPitch(c.Pitch)
		return w, nil
	},
	"deepgram": func(ctx context.Context, cfg *config.Config, opts []tts.Option) (tts.Provider, error) {
		c := cfg.Providers.Deepgram
		d, err := tts.NewDeepgram(ctx, c.APIKey, opts...)
		if err != nil {
			return nil, err
		}
		d.SetVoice(c.Voice)
		return d, nil
	},
	"elevenlabs": func(ctx context.Context, cfg *config.Config, opts []tts.Option) (tts.Provider, error) {
		c := cfg.Providers.ElevenLabs
		e, err := tts.NewElevenLabs(ctx, c.APIKey, opts...)
		if err != nil {
			return nil, err
		}
		e.SetVoice(c.Voice)
		e.SetModel(c.Model)
		return e, nil
	},
	"playai": func(ctx context.Context, cfg *config.Config, opts []tts.Option) (tts.Provider, error) {
		c := cfg.Providers.PlayAI
		p, err := tts.NewPlayAI(ctx, c.APIKey, opts...)
		if err != nil {
			return nil, err
		}
		p.SetVoice(c.Voice)
		return p, nil
	},
	"openai": func(ctx context.Context, cfg *config.Config, opts []tts.Option) (tts.Provider, error) {
		c := cfg.Providers.OpenAI
		o, err := tts.NewOpenAI(c.APIKey, opts...)
		if err != nil {
			return nil, err
		}
		o.SetVoice(c.Voice)
		o.SetModel(c.Model)
		o.SetSpeed(c.Speed)
		return o, nil
	},
	"edge": func(ctx context.Context, cfg *config.Config, opts []tts.Option) (tts.Provider, error) {
		e := tts.NewEdge(opts...)
		e.SetVoice(cfg.Providers.Edge.Voice)
		return e, nil
	},
	"tencent": func(ctx context.Context, cfg *config.Config, opts []tts.Option) (tts.Provider, error) {
		c := cfg.Providers.Tencent
		t, err := tts.NewTencent(c.SecretID, c.SecretKey, c.Region, opts...)
		if err != nil {
			return nil, err
		}
		t.SetVoice(c.Voice)
		t.SetSpeed(c.Speed)
		return t, nil
	},
}

func providerNames() []string {
	names := make([]string, 0, len(providerFactories))
	for name := range providerFactories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// newProvider 创建 cfg.Provider 指定的服务。
func newProvider(ctx context.Context, cfg *config.Config, extra ...tts.Option) (tts.Provider, error) {
	factory, ok := providerFactories[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("未知的语音服务 %q，可选: %v", cfg.Provider, providerNames())
	}

	opts := []tts.Option{
		tts.WithTimeout(cfg.HTTP.Timeout()),
		tts.WithChunkFrames(cfg.Audio.ChunkFrames),
	}
	return factory(ctx, cfg, append(opts, extra...))
}

// applyOverrides 应用命令行中的音色、语速、音调。
// 服务不支持语速或音调时返回错误，避免参数被静默忽略。
func applyOverrides(p tts.Provider, voice string, speed, pitch float64) error {
	if voice != "" {
		p.SetVoice(voice)
	}
	if speed != 0 {
		s, ok := p.(tts.SpeedSetter)
		if !ok {
			return fmt.Errorf("%s 不支持设置语速", p.Name())
		}
		s.SetSpeed(speed)
	}
	if pitch != 0 {
		s, ok := p.(tts.PitchSetter)
		if !ok {
			return fmt.Errorf("%s 不支持设置音调", p.Name())
		}
		s.SetPitch(pitch)
	}
	return nil
}
