// Package tts 把多个云端语音合成服务封装为统一的 Provider 接口：
// 播放（Speak）、保存到文件（Save）、音色选择与音色目录查询。
package tts

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iabetor/speech-engine/internal/audio"
	"github.com/iabetor/speech-engine/internal/logger"
	"github.com/iabetor/speech-engine/internal/metrics"
	"github.com/iabetor/speech-engine/internal/transport"
)

// Provider 是所有语音合成服务的公共能力集合。
type Provider interface {
	// Name 返回服务标识，如 "witai"。
	Name() string
	// Voice 返回当前音色。
	Voice() string
	// SetVoice 设置下一次合成使用的音色，不做远端校验。
	SetVoice(voice string)
	// Voices 返回可用音色列表。
	Voices(ctx context.Context) ([]string, error)
	// Speak 合成并通过扬声器播放，阻塞直到音频全部提交给设备。
	Speak(ctx context.Context, text string) error
	// Save 合成并写入 filename，扩展名必须与服务的输出容器一致。
	Save(ctx context.Context, text, filename string) error
	// Close 释放播放设备等资源。
	Close() error
}

// SpeedSetter 由支持语速参数的服务实现。0 表示未设置。
type SpeedSetter interface {
	Speed() float64
	SetSpeed(speed float64)
}

// PitchSetter 由支持音调参数的服务实现。0 表示未设置。
type PitchSetter interface {
	Pitch() float64
	SetPitch(pitch float64)
}

// ModelSetter 由可选择合成模型的服务实现。
type ModelSetter interface {
	Model() string
	SetModel(model string)
}

// Player 播放解码后的 PCM。默认实现为 audio.Sink。
type Player interface {
	Play(ctx context.Context, pcm audio.PCM) error
}

type options struct {
	baseURL     string
	httpClient  *http.Client
	timeout     time.Duration
	player      Player
	metrics     *metrics.Metrics
	chunkFrames int
}

// Option 配置 Provider。
type Option func(*options)

// WithBaseURL 覆盖服务的 base URL（测试或代理时使用）。
func WithBaseURL(url string) Option {
	return func(o *options) {
		o.baseURL = url
	}
}

// WithHTTPClient 使用自定义 http.Client，其 Transport 仍会被包装以记录指标。
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithTimeout 设置单次请求超时，默认 transport.DefaultTimeout。
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithPlayer 替换默认的扬声器播放器。
func WithPlayer(p Player) Option {
	return func(o *options) {
		o.player = p
	}
}

// WithMetrics 指定指标集合，默认使用 metrics.Default()。
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithChunkFrames 设置默认播放器每次写入设备的帧数。
func WithChunkFrames(n int) Option {
	return func(o *options) {
		o.chunkFrames = n
	}
}

func newOptions(opts []Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.metrics == nil {
		o.metrics = metrics.Default()
	}
	return o
}

// url 返回覆盖后的 base URL，未覆盖时返回 def。
func (o *options) url(def string) string {
	if o.baseURL != "" {
		return o.baseURL
	}
	return def
}

// client 返回带指标的 http.Client。
func (o *options) client(provider string) *http.Client {
	if o.httpClient == nil {
		return transport.NewHTTPClient(provider, o.timeout, o.metrics, nil)
	}
	c := *o.httpClient
	if o.timeout > 0 {
		c.Timeout = o.timeout
	}
	c.Transport = transport.Instrument(provider, o.metrics, o.httpClient.Transport)
	return &c
}

// base 实现各服务共有的状态与流程：音色、播放器、扩展名检查与落盘。
type base struct {
	name      string
	container string
	metrics   *metrics.Metrics

	mu    sync.Mutex
	voice string

	playerMu    sync.Mutex
	player      Player
	opener      *audio.MalgoOpener // 仅在使用默认播放器时非空
	chunkFrames int
}

func newBase(name, container, voice string, o *options) *base {
	return &base{
		name:        name,
		container:   container,
		metrics:     o.metrics,
		voice:       voice,
		player:      o.player,
		chunkFrames: o.chunkFrames,
	}
}

// Name 返回服务标识。
func (b *base) Name() string {
	return b.name
}

// Voice 返回当前音色。
func (b *base) Voice() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.voice
}

// SetVoice 设置下一次合成使用的音色。
func (b *base) SetVoice(voice string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.voice = voice
}

// Close 释放默认播放器持有的音频上下文。
func (b *base) Close() error {
	b.playerMu.Lock()
	defer b.playerMu.Unlock()

	if b.opener != nil {
		b.opener.Close()
		b.opener = nil
		b.player = nil
	}
	return nil
}

// playerFor 返回注入的播放器，未注入时首次调用创建 malgo 播放器。
func (b *base) playerFor() Player {
	b.playerMu.Lock()
	defer b.playerMu.Unlock()

	if b.player == nil {
		b.opener = audio.NewMalgoOpener()
		b.player = audio.NewSink(b.opener, b.chunkFrames)
	}
	return b.player
}

// fetchFunc 发起一次合成请求并返回服务端音频。
type fetchFunc func(ctx context.Context) ([]byte, error)

// speak 合成、解码并播放。
func (b *base) speak(ctx context.Context, text string, fetch fetchFunc) (err error) {
	defer func() { b.metrics.ObserveSynthesis(b.name, "speak", err) }()

	logger.Debugf("[tts] %s: 正在合成 %d 个字符", b.name, len([]rune(text)))
	payload, err := fetch(ctx)
	if err != nil {
		return err
	}

	pcm, err := audio.Decode(b.container, payload)
	if err != nil {
		return fmt.Errorf("[tts] %s: %w", b.name, err)
	}
	logger.Debugf("[tts] %s: 收到 %d 字节，解码得到 %d 字节 PCM (%s)", b.name, len(payload), len(pcm.Data), pcm.Format)

	return b.playerFor().Play(ctx, pcm)
}

// save 在发起网络请求之前检查扩展名，然后合成并写入文件。
func (b *base) save(ctx context.Context, text, filename string, fetch fetchFunc) (err error) {
	defer func() { b.metrics.ObserveSynthesis(b.name, "save", err) }()

	if err := checkExtension(filename, b.container); err != nil {
		return err
	}

	logger.Debugf("[tts] %s: 正在合成 %d 个字符 -> %s", b.name, len([]rune(text)), filename)
	payload, err := fetch(ctx)
	if err != nil {
		return err
	}
	return writeFileAtomic(filename, payload)
}

// checkExtension 校验 filename 的扩展名（不区分大小写）。
func checkExtension(filename, want string) error {
	if !strings.EqualFold(filepath.Ext(filename), want) {
		return &FileExtensionError{Filename: filename, Want: want}
	}
	return nil
}

// writeFileAtomic 先写同目录下唯一命名的临时文件再重命名，
// 并发保存同一路径时不会出现交错内容。
func writeFileAtomic(filename string, data []byte) error {
	dir := filepath.Dir(filename)
	tmp := filepath.Join(dir, "."+filepath.Base(filename)+"."+uuid.NewString()+".tmp")

	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("[tts] 写入临时文件失败: %w", err)
	}
	if err := os.Rename(tmp, filename); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("[tts] 保存音频文件失败: %w", err)
	}
	return nil
}

func requireCredential(provider, credential string) error {
	if strings.TrimSpace(credential) == "" {
		return fmt.Errorf("[tts] %s: %w", provider, ErrEmptyCredential)
	}
	return nil
}
