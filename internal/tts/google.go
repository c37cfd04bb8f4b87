package tts

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/iabetor/speech-engine/internal/audio"
	"github.com/iabetor/speech-engine/internal/transport"
)

const (
	googleRPC       = "jQ1olc"
	googlePath      = "/_/TranslateWebserverUi/data/batchexecute"
	googleMaxRunes  = 100
	googleUserAgent = "Mozilla/5.0 (Windows NT 10.0; WOW64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/47.0.2526.106 Safari/537.36"

	// GoogleDefaultLanguage 是默认语言，Google 服务的音色即语言代码。
	GoogleDefaultLanguage = "en"
	// GoogleDefaultTLD 是默认的 translate.google 顶级域名。
	GoogleDefaultTLD = "com"
)

var (
	// ErrEmptyText 表示没有可朗读的文本。
	ErrEmptyText = errors.New("没有可朗读的文本")

	googleAudioPattern = regexp.MustCompile(`jQ1olc","\[\\"(.*)\\"]`)

	googleLanguages = []string{
		"af", "ar", "bg", "bn", "bs", "ca", "cs", "da", "de", "el", "en", "es", "et",
		"fi", "fr", "gu", "hi", "hr", "hu", "id", "is", "it", "iw", "ja", "jw", "km",
		"kn", "ko", "la", "lv", "ml", "mr", "ms", "my", "ne", "nl", "no", "pl", "pt",
		"ro", "ru", "si", "sk", "sq", "sr", "su", "sv", "sw", "ta", "te", "th", "tl",
		"tr", "uk", "ur", "vi", "zh-CN", "zh-TW", "zh",
	}
)

// Google 使用 Google 翻译的朗读接口合成语音，输出 MP3，无需凭据。
// 音色即语言代码，如 "en"、"zh-CN"。
type Google struct {
	*base
	httpClient *http.Client
	baseURL    string // 非空时忽略 tld
	tld        string
	slow       bool
}

// NewGoogle 创建 Google 服务。
func NewGoogle(opts ...Option) *Google {
	o := newOptions(opts)
	return &Google{
		base:       newBase("google", audio.ContainerMP3, GoogleDefaultLanguage, o),
		httpClient: o.client("google"),
		baseURL:    o.baseURL,
		tld:        GoogleDefaultTLD,
	}
}

// TLD 返回当前顶级域名。
func (g *Google) TLD() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.tld
}

// SetTLD 设置顶级域名，如 "co.uk" 得到英式口音。空值恢复默认。
func (g *Google) SetTLD(tld string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	tld = strings.TrimPrefix(strings.TrimSpace(tld), ".")
	if tld == "" {
		tld = GoogleDefaultTLD
	}
	g.tld = tld
}

// Slow 返回是否慢速朗读。
func (g *Google) Slow() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.slow
}

// SetSlow 设置是否慢速朗读。
func (g *Google) SetSlow(slow bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.slow = slow
}

// Voices 返回支持的语言代码。
func (g *Google) Voices(ctx context.Context) ([]string, error) {
	return append([]string(nil), googleLanguages...), nil
}

// Speak 合成并播放。
func (g *Google) Speak(ctx context.Context, text string) error {
	return g.speak(ctx, text, g.synthesizer(text))
}

// Save 合成并保存为 .mp3。
func (g *Google) Save(ctx context.Context, text, filename string) error {
	return g.save(ctx, text, filename, g.synthesizer(text))
}

func (g *Google) synthesizer(text string) fetchFunc {
	g.mu.Lock()
	lang, slow := g.voice, g.slow
	baseURL := g.baseURL
	if baseURL == "" {
		baseURL = "https://translate.google." + g.tld
	}
	g.mu.Unlock()

	client := transport.New("google", baseURL, g.httpClient, map[string]string{
		"User-Agent": googleUserAgent,
		"Referer":    "http://translate.google.com/",
	})

	return func(ctx context.Context) ([]byte, error) {
		chunks := splitText(text, googleMaxRunes)
		if len(chunks) == 0 {
			return nil, fmt.Errorf("[tts] google: %w", ErrEmptyText)
		}

		var out bytes.Buffer
		for i, chunk := range chunks {
			form, err := googleForm(chunk, lang, slow)
			if err != nil {
				return nil, err
			}
			data, err := client.Do(ctx, transport.Request{
				Method: http.MethodPost,
				Path:   googlePath,
				Form:   form,
			})
			if err != nil {
				return nil, remoteError("google", err)
			}
			if err := extractGoogleAudio(data, &out); err != nil {
				return nil, fmt.Errorf("[tts] google: 第 %d 段: %w", i+1, err)
			}
		}
		return out.Bytes(), nil
	}
}

// googleForm 构造 batchexecute 的 f.req 表单。
func googleForm(text, lang string, slow bool) (string, error) {
	var speed any
	if slow {
		speed = true
	}
	inner, err := json.Marshal([]any{text, lang, speed, "null"})
	if err != nil {
		return "", fmt.Errorf("[tts] google: 构造请求失败: %w", err)
	}
	rpc, err := json.Marshal([][][]any{{{googleRPC, string(inner), nil, "generic"}}})
	if err != nil {
		return "", fmt.Errorf("[tts] google: 构造请求失败: %w", err)
	}
	return "f.req=" + url.QueryEscape(string(rpc)) + "&", nil
}

// extractGoogleAudio 从响应的各行中找出 base64 音频并追加到 out。
func extractGoogleAudio(data []byte, out *bytes.Buffer) error {
	found := false
	for _, line := range bytes.Split(data, []byte("\n")) {
		if !bytes.Contains(line, []byte(googleRPC)) {
			continue
		}
		m := googleAudioPattern.FindSubmatch(line)
		if m == nil {
			continue
		}
		chunk, err := base64.StdEncoding.DecodeString(string(m[1]))
		if err != nil {
			return fmt.Errorf("音频 base64 解码失败: %w", err)
		}
		out.Write(chunk)
		found = true
	}
	if !found {
		return errors.New("响应中没有音频数据")
	}
	return nil
}

// splitText 把文本切成不超过 limit 个字符的片段，优先在句末标点和空白处断开。
func splitText(text string, limit int) []string {
	var chunks []string
	for _, sentence := range splitSentences(text) {
		chunks = append(chunks, packWords(sentence, limit)...)
	}
	return chunks
}

func splitSentences(text string) []string {
	var (
		out   []string
		start int
	)
	for i, r := range text {
		if strings.ContainsRune(".!?;。！？；\n", r) {
			end := i + utf8.RuneLen(r)
			if s := strings.TrimSpace(text[start:end]); s != "" {
				out = append(out, s)
			}
			start = end
		}
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		out = append(out, s)
	}
	return out
}

// packWords 按空白贪心合并单词；单个超长单词按字符硬切。
func packWords(sentence string, limit int) []string {
	var (
		out []string
		cur []rune
	)
	flush := func() {
		if len(cur) > 0 {
			out = append(out, string(cur))
			cur = cur[:0]
		}
	}

	for _, word := range strings.FieldsFunc(sentence, unicode.IsSpace) {
		w := []rune(word)
		for len(w) > limit {
			flush()
			out = append(out, string(w[:limit]))
			w = w[limit:]
		}
		if len(w) == 0 {
			continue
		}
		if len(cur) > 0 && len(cur)+1+len(w) > limit {
			flush()
		}
		if len(cur) > 0 {
			cur = append(cur, ' ')
		}
		cur = append(cur, w...)
	}
	flush()
	return out
}
