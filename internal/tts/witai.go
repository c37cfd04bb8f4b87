package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/iabetor/speech-engine/internal/audio"
	"github.com/iabetor/speech-engine/internal/transport"
)

const (
	witaiBaseURL     = "https://api.wit.ai"
	witaiAPIVersion  = "20220622"
	witaiVoicePrefix = "wit$"

	// WitaiDefaultVoice 是 Wit.ai 的默认音色。
	WitaiDefaultVoice = "Colin"
)

// Witai 通过 Wit.ai 合成语音，输出 MP3。
type Witai struct {
	*base
	client *transport.Client
	speed  float64
	pitch  float64
}

// NewWitai 创建 Wit.ai 服务并立即校验 token。
func NewWitai(ctx context.Context, token string, opts ...Option) (*Witai, error) {
	if err := requireCredential("witai", token); err != nil {
		return nil, err
	}
	o := newOptions(opts)
	w := &Witai{
		base: newBase("witai", audio.ContainerMP3, WitaiDefaultVoice, o),
		client: transport.New("witai", o.url(witaiBaseURL), o.client("witai"), map[string]string{
			"Authorization": "Bearer " + token,
		}),
	}

	if _, err := w.fetchVoices(ctx); err != nil {
		return nil, credentialError("witai", err)
	}
	return w, nil
}

// Speed 返回语速，0 表示未设置。
func (w *Witai) Speed() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.speed
}

// SetSpeed 设置语速，0 表示使用服务默认值。
func (w *Witai) SetSpeed(speed float64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.speed = speed
}

// Pitch 返回音调，0 表示未设置。
func (w *Witai) Pitch() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.pitch
}

// SetPitch 设置音调，0 表示使用服务默认值。
func (w *Witai) SetPitch(pitch float64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pitch = pitch
}

type witaiRequest struct {
	Q     string  `json:"q"`
	Voice string  `json:"voice"`
	Speed float64 `json:"speed,omitempty"`
	Pitch float64 `json:"pitch,omitempty"`
}

// Speak 合成并播放。
func (w *Witai) Speak(ctx context.Context, text string) error {
	return w.speak(ctx, text, w.synthesizer(text))
}

// Save 合成并保存为 .mp3。
func (w *Witai) Save(ctx context.Context, text, filename string) error {
	return w.save(ctx, text, filename, w.synthesizer(text))
}

// synthesizer 在调用开始时固定当前参数。
func (w *Witai) synthesizer(text string) fetchFunc {
	w.mu.Lock()
	req := witaiRequest{Q: text, Voice: w.voice, Speed: w.speed, Pitch: w.pitch}
	w.mu.Unlock()

	return func(ctx context.Context) ([]byte, error) {
		data, err := w.client.Do(ctx, transport.Request{
			Method: http.MethodPost,
			Path:   "/synthesize",
			Query:  url.Values{"v": {witaiAPIVersion}},
			Header: map[string]string{"Accept": "audio/mpeg"},
			JSON:   req,
		})
		if err != nil {
			return nil, remoteError("witai", err)
		}
		return data, nil
	}
}

// Voices 返回全部音色名，按服务返回的语言分组顺序展开，并去掉 "wit$" 前缀。
func (w *Witai) Voices(ctx context.Context) ([]string, error) {
	data, err := w.fetchVoices(ctx)
	if err != nil {
		return nil, remoteError("witai", err)
	}
	return flattenWitaiVoices(data)
}

func (w *Witai) fetchVoices(ctx context.Context) ([]byte, error) {
	return w.client.Do(ctx, transport.Request{
		Method: http.MethodGet,
		Path:   "/voices",
		Query:  url.Values{"v": {witaiAPIVersion}},
	})
}

type witaiVoice struct {
	Name string `json:"name"`
}

// flattenWitaiVoices 按文档顺序遍历 {locale: [voice...]}。
// map 解码会丢失键顺序，因此逐个读取 token。
func flattenWitaiVoices(data []byte) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}

	var voices []string
	for dec.More() {
		if _, err := dec.Token(); err != nil { // locale 键
			return nil, fmt.Errorf("[tts] witai: 解析音色列表失败: %w", err)
		}
		var group []witaiVoice
		if err := dec.Decode(&group); err != nil {
			return nil, fmt.Errorf("[tts] witai: 解析音色列表失败: %w", err)
		}
		for _, v := range group {
			voices = append(voices, strings.TrimPrefix(v.Name, witaiVoicePrefix))
		}
	}
	if err := expectDelim(dec, '}'); err != nil {
		return nil, err
	}
	return voices, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("[tts] 解析 JSON 失败: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("[tts] 解析 JSON 失败: 期望 %q，得到 %v", want, tok)
	}
	return nil
}
