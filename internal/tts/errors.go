package tts

import (
	"errors"
	"fmt"

	"github.com/iabetor/speech-engine/internal/audio"
	"github.com/iabetor/speech-engine/internal/transport"
)

var (
	// ErrEmptyCredential 表示构造时凭据为空，此时不会发起任何网络请求。
	ErrEmptyCredential = errors.New("凭据不能为空")

	// ErrInvalidCredential 可与 errors.Is 配合判断凭据是否被服务端拒绝。
	ErrInvalidCredential = errors.New("凭据无效")
)

// DeviceError 是本地音频输出失败的错误类型。
type DeviceError = audio.DeviceError

// InvalidCredentialError 表示校验请求返回了非成功状态码。
type InvalidCredentialError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *InvalidCredentialError) Error() string {
	return fmt.Sprintf("[tts] %s: 凭据校验失败 (HTTP %d): %s", e.Provider, e.StatusCode, e.Body)
}

// Is 使 errors.Is(err, ErrInvalidCredential) 成立。
func (e *InvalidCredentialError) Is(target error) bool {
	return target == ErrInvalidCredential
}

// FileExtensionError 表示输出文件扩展名与服务的固定容器格式不符。
type FileExtensionError struct {
	Filename string
	Want     string
}

func (e *FileExtensionError) Error() string {
	return fmt.Sprintf("[tts] 输出文件类型应为 %s: %q", e.Want, e.Filename)
}

// RemoteError 表示合成或音色目录请求失败。
type RemoteError struct {
	Provider   string
	StatusCode int    // HTTP 状态码；SDK 业务错误时为 0
	Code       string // SDK 返回的错误码，HTTP 接口为空
	Body       string
}

func (e *RemoteError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("[tts] %s: API 返回错误 %s: %s", e.Provider, e.Code, e.Body)
	}
	return fmt.Sprintf("[tts] %s: API 返回状态码 %d: %s", e.Provider, e.StatusCode, e.Body)
}

// remoteError 把 transport 层的状态码错误转换为 RemoteError，其余错误原样返回。
func remoteError(provider string, err error) error {
	var se *transport.StatusError
	if errors.As(err, &se) {
		return &RemoteError{Provider: provider, StatusCode: se.StatusCode, Body: se.Body}
	}
	return err
}

// credentialError 把校验请求的状态码错误转换为 InvalidCredentialError。
// 网络层失败不代表凭据无效，原样返回。
func credentialError(provider string, err error) error {
	var se *transport.StatusError
	if errors.As(err, &se) {
		return &InvalidCredentialError{Provider: provider, StatusCode: se.StatusCode, Body: se.Body}
	}
	return fmt.Errorf("[tts] %s: 凭据校验请求失败: %w", provider, err)
}
