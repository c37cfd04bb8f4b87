// Package speechengine 提供统一的云端语音合成客户端。
//
// 每个服务都实现 Provider：Speak 合成并播放，Save 合成并写入文件，
// Voices 列出音色，SetVoice 切换音色。
//
//	p, err := speechengine.NewWitai(ctx, os.Getenv("WIT_AI_TOKEN"))
//	if err != nil {
//		return err
//	}
//	defer p.Close()
//	err = p.Save(ctx, "hello", "hello.mp3")
package speechengine

import (
	"context"

	"github.com/iabetor/speech-engine/internal/audio"
	"github.com/iabetor/speech-engine/internal/metrics"
	"github.com/iabetor/speech-engine/internal/tts"
)

type (
	// Provider 是所有语音合成服务的公共接口。
	Provider = tts.Provider
	// SpeedSetter 由支持语速的服务实现。
	SpeedSetter = tts.SpeedSetter
	// PitchSetter 由支持音调的服务实现。
	PitchSetter = tts.PitchSetter
	// ModelSetter 由可选择模型的服务实现。
	ModelSetter = tts.ModelSetter
	// Player 播放解码后的 PCM。
	Player = tts.Player
	// Option 配置服务。
	Option = tts.Option

	// Google 等为各服务的具体类型。
	Google     = tts.Google
	Witai      = tts.Witai
	Deepgram   = tts.Deepgram
	ElevenLabs = tts.ElevenLabs
	PlayAI     = tts.PlayAI
	OpenAI     = tts.OpenAI
	Edge       = tts.Edge
	Tencent    = tts.Tencent

	// InvalidCredentialError 表示凭据被服务端拒绝。
	InvalidCredentialError = tts.InvalidCredentialError
	// FileExtensionError 表示输出文件扩展名不符。
	FileExtensionError = tts.FileExtensionError
	// RemoteError 表示服务端返回失败。
	RemoteError = tts.RemoteError
	// DeviceError 表示本地音频设备失败。
	DeviceError = tts.DeviceError

	// Sink 按固定帧数把 PCM 写入输出设备。
	Sink = audio.Sink
	// PCM 是带格式描述的原始音频。
	PCM = audio.PCM
	// Format 描述 PCM 的声道数、位宽和采样率。
	Format = audio.Format
	// Metrics 是 Prometheus 指标集合。
	Metrics = metrics.Metrics
)

var (
	ErrEmptyCredential   = tts.ErrEmptyCredential
	ErrInvalidCredential = tts.ErrInvalidCredential
	ErrEmptyText         = tts.ErrEmptyText
)

var (
	WithBaseURL     = tts.WithBaseURL
	WithHTTPClient  = tts.WithHTTPClient
	WithTimeout     = tts.WithTimeout
	WithPlayer      = tts.WithPlayer
	WithMetrics     = tts.WithMetrics
	WithChunkFrames = tts.WithChunkFrames
)

// NewGoogle 创建 Google 朗读服务，无需凭据。
func NewGoogle(opts ...Option) *Google { return tts.NewGoogle(opts...) }

// NewWitai 创建 Wit.ai 服务并校验 token。
func NewWitai(ctx context.Context, token string, opts ...Option) (*Witai, error) {
	return tts.NewWitai(ctx, token, opts...)
}

// NewDeepgram 创建 Deepgram 服务并校验 API Key。
func NewDeepgram(ctx context.Context, apiKey string, opts ...Option) (*Deepgram, error) {
	return tts.NewDeepgram(ctx, apiKey, opts...)
}

// NewElevenLabs 创建 ElevenLabs 服务并校验 API Key。
func NewElevenLabs(ctx context.Context, apiKey string, opts ...Option) (*ElevenLabs, error) {
	return tts.NewElevenLabs(ctx, apiKey, opts...)
}

// NewPlayAI 创建 PlayAI（Groq）服务并校验 API Key。
func NewPlayAI(ctx context.Context, apiKey string, opts ...Option) (*PlayAI, error) {
	return tts.NewPlayAI(ctx, apiKey, opts...)
}

// NewOpenAI 创建 OpenAI 服务，只检查 Key 非空。
func NewOpenAI(apiKey string, opts ...Option) (*OpenAI, error) {
	return tts.NewOpenAI(apiKey, opts...)
}

// NewEdge 创建 Edge 朗读服务，无需凭据。
func NewEdge(opts ...Option) *Edge { return tts.NewEdge(opts...) }

// NewTencent 创建腾讯云服务。
func NewTencent(secretID, secretKey, region string, opts ...Option) (*Tencent, error) {
	return tts.NewTencent(secretID, secretKey, region, opts...)
}

// NewSink 创建使用默认输出设备的播放器。chunkFrames <= 0 时为 512。
// 返回的 release 释放音频上下文。
func NewSink(chunkFrames int) (sink *Sink, release func()) {
	opener := audio.NewMalgoOpener()
	return audio.NewSink(opener, chunkFrames), opener.Close
}
