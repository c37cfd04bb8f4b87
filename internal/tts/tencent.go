package tts

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common"
	sdkerrors "github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common/errors"
	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common/profile"
	tcctts "github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/tts/v20190823"

	"github.com/iabetor/speech-engine/internal/audio"
	"github.com/iabetor/speech-engine/internal/transport"
)

const (
	tencentEndpoint      = "tts.tencentcloudapi.com"
	tencentDefaultRegion = "ap-guangzhou"

	// TencentDefaultVoice 是默认音色：智瑜（女声）。
	TencentDefaultVoice = "1001"
)

var tencentVoices = []string{
	"1001", "1002", "1003", "1004", "1005", "1007", "1008", "1009", "1010", "1017",
	"1018", "1050", "1051", "101001", "101002", "101003", "101004", "101005", "101006",
	"101007", "101008", "101009", "101010", "101011", "101013", "101015", "101016",
}

// Tencent 使用腾讯云语音合成，输出 MP3。音色为数字音色 ID 的字符串形式。
// 构造时只检查 SecretID/SecretKey 非空。
type Tencent struct {
	*base
	client *tcctts.Client
	speed  float64
}

// NewTencent 创建腾讯云服务。region 为空时使用 ap-guangzhou。
func NewTencent(secretID, secretKey, region string, opts ...Option) (*Tencent, error) {
	if err := requireCredential("tencent", secretID); err != nil {
		return nil, err
	}
	if err := requireCredential("tencent", secretKey); err != nil {
		return nil, err
	}
	if region == "" {
		region = tencentDefaultRegion
	}

	o := newOptions(opts)
	cpf := profile.NewClientProfile()
	cpf.HttpProfile.Endpoint = tencentEndpoint
	if o.baseURL != "" {
		u, err := url.Parse(o.baseURL)
		if err != nil || u.Host == "" {
			return nil, fmt.Errorf("[tts] tencent: 无效的 base URL %q", o.baseURL)
		}
		cpf.HttpProfile.Scheme = strings.ToUpper(u.Scheme)
		cpf.HttpProfile.Endpoint = u.Host
	}
	if o.timeout > 0 {
		cpf.HttpProfile.ReqTimeout = int(o.timeout.Seconds())
	}

	client, err := tcctts.NewClient(common.NewCredential(secretID, secretKey), region, cpf)
	if err != nil {
		return nil, fmt.Errorf("[tts] tencent: 创建客户端失败: %w", err)
	}
	var rt http.RoundTripper
	if o.httpClient != nil {
		rt = o.httpClient.Transport
	}
	client.WithHttpTransport(transport.Instrument("tencent", o.metrics, rt))

	return &Tencent{
		base:   newBase("tencent", audio.ContainerMP3, TencentDefaultVoice, o),
		client: client,
	}, nil
}

// Speed 返回语速，0 表示未设置。
func (t *Tencent) Speed() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.speed
}

// SetSpeed 设置语速（-2 ~ 6），0 表示使用服务默认值。
func (t *Tencent) SetSpeed(speed float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.speed = speed
}

// Voices 返回常用音色 ID。
func (t *Tencent) Voices(ctx context.Context) ([]string, error) {
	return append([]string(nil), tencentVoices...), nil
}

// Speak 合成并播放。
func (t *Tencent) Speak(ctx context.Context, text string) error {
	return t.speak(ctx, text, t.synthesizer(text))
}

// Save 合成并保存为 .mp3。
func (t *Tencent) Save(ctx context.Context, text, filename string) error {
	return t.save(ctx, text, filename, t.synthesizer(text))
}

func (t *Tencent) synthesizer(text string) fetchFunc {
	t.mu.Lock()
	voice, speed := t.voice, t.speed
	t.mu.Unlock()

	return func(ctx context.Context) ([]byte, error) {
		voiceType, err := strconv.ParseInt(voice, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("[tts] tencent: 音色必须是数字 ID: %q", voice)
		}

		req := tcctts.NewTextToVoiceRequest()
		req.Text = common.StringPtr(text)
		req.SessionId = common.StringPtr(uuid.NewString())
		req.VoiceType = common.Int64Ptr(voiceType)
		req.Codec = common.StringPtr("mp3")
		if speed != 0 {
			req.Speed = common.Float64Ptr(speed)
		}

		resp, err := t.client.TextToVoiceWithContext(ctx, req)
		if err != nil {
			var sdkErr *sdkerrors.TencentCloudSDKError
			if errors.As(err, &sdkErr) {
				return nil, &RemoteError{Provider: "tencent", Code: sdkErr.GetCode(), Body: sdkErr.GetMessage()}
			}
			return nil, fmt.Errorf("[tts] tencent: 合成请求失败: %w", err)
		}
		if resp.Response == nil || resp.Response.Audio == nil {
			return nil, &RemoteError{Provider: "tencent", Body: "未返回音频数据"}
		}

		data, err := base64.StdEncoding.DecodeString(*resp.Response.Audio)
		if err != nil {
			return nil, fmt.Errorf("[tts] tencent: 音频 base64 解码失败: %w", err)
		}
		return data, nil
	}
}
