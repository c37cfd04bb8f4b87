package audio

import "fmt"

// Format 描述原始交错 PCM 的格式。
type Format struct {
	Channels    int // 声道数
	SampleWidth int // 每个采样点字节数，如 2 表示 16-bit
	FrameRate   int // 采样率（Hz）
}

// FrameBytes 返回一帧（所有声道各一个采样点）的字节数。
func (f Format) FrameBytes() int {
	return f.Channels * f.SampleWidth
}

// Validate 检查格式是否可以交给播放设备。
func (f Format) Validate() error {
	if f.Channels <= 0 || f.FrameRate <= 0 {
		return &DeviceError{Op: "format", Err: fmt.Errorf("无效的音频格式: %d 声道, %d Hz", f.Channels, f.FrameRate)}
	}
	if f.SampleWidth < 1 || f.SampleWidth > 4 {
		return &DeviceError{Op: "format", Err: fmt.Errorf("不支持的采样宽度: %d 字节", f.SampleWidth)}
	}
	return nil
}

func (f Format) String() string {
	return fmt.Sprintf("%dch/%dbit/%dHz", f.Channels, f.SampleWidth*8, f.FrameRate)
}

// PCM 是解码后的原始音频及其格式。
type PCM struct {
	Data []byte
	Format
}

// DeviceError 表示音频输出设备不可用或拒绝了给定格式。
type DeviceError struct {
	Op  string
	Err error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("[audio] 设备错误 (%s): %v", e.Op, e.Err)
}

func (e *DeviceError) Unwrap() error {
	return e.Err
}
