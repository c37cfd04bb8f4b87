package tts

import (
	"bytes"
	"context"
	"fmt"

	"github.com/pp-group/edge-tts-go/biz/service/tts/edge"

	"github.com/iabetor/speech-engine/internal/audio"
)

// EdgeDefaultVoice 是 Edge TTS 的默认音色。
const EdgeDefaultVoice = "en-US-AriaNeural"

var edgeVoices = []string{
	"en-US-AriaNeural", "en-US-GuyNeural", "en-US-JennyNeural", "en-GB-SoniaNeural",
	"en-GB-RyanNeural", "en-AU-NatashaNeural", "zh-CN-XiaoxiaoNeural", "zh-CN-YunxiNeural",
	"zh-CN-YunjianNeural", "zh-CN-XiaoyiNeural", "zh-TW-HsiaoChenNeural", "ja-JP-NanamiNeural",
	"ko-KR-SunHiNeural", "de-DE-KatjaNeural", "fr-FR-DeniseNeural", "es-ES-ElviraNeural",
}

// edgeStream 抽象 edge-tts-go 的流式合成，便于替换。
type edgeStream func(text, voice string) (<-chan map[string]interface{}, error)

func edgeCommunicate(text, voice string) (<-chan map[string]interface{}, error) {
	comm, err := edge.NewCommunicate(text, edge.WithVoice(voice))
	if err != nil {
		return nil, fmt.Errorf("[tts] edge: 创建实例失败: %w", err)
	}
	ch, err := comm.Stream()
	if err != nil {
		return nil, fmt.Errorf("[tts] edge: 开始流式合成失败: %w", err)
	}
	return ch, nil
}

// Edge 使用微软 Edge 在线朗读服务合成语音，输出 MP3，无需凭据。
type Edge struct {
	*base
	stream edgeStream
}

// NewEdge 创建 Edge 服务。
func NewEdge(opts ...Option) *Edge {
	o := newOptions(opts)
	return &Edge{
		base:   newBase("edge", audio.ContainerMP3, EdgeDefaultVoice, o),
		stream: edgeCommunicate,
	}
}

// Voices 返回常用音色。
func (e *Edge) Voices(ctx context.Context) ([]string, error) {
	return append([]string(nil), edgeVoices...), nil
}

// Speak 合成并播放。
func (e *Edge) Speak(ctx context.Context, text string) error {
	return e.speak(ctx, text, e.synthesizer(text))
}

// Save 合成并保存为 .mp3。
func (e *Edge) Save(ctx context.Context, text, filename string) error {
	return e.save(ctx, text, filename, e.synthesizer(text))
}

func (e *Edge) synthesizer(text string) fetchFunc {
	voice := e.Voice()
	return func(ctx context.Context) ([]byte, error) {
		ch, err := e.stream(text, voice)
		if err != nil {
			return nil, err
		}

		// type=="audio" 的消息携带 MP3 数据
		var buf bytes.Buffer
		for {
			select {
			case <-ctx.Done():
				// 读完剩余消息，避免 edge-tts-go 的发送协程阻塞
				go func() {
					for range ch {
					}
				}()
				return nil, ctx.Err()
			case msg, ok := <-ch:
				if !ok {
					if buf.Len() == 0 {
						return nil, &RemoteError{Provider: "edge", Body: "未收到音频数据"}
					}
					return buf.Bytes(), nil
				}
				if t, _ := msg["type"].(string); t == "audio" {
					if data, ok := msg["data"].([]byte); ok {
						buf.Write(data)
					}
				}
			}
		}
	}
}
