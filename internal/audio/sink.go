package audio

import (
	"context"
	"fmt"

	"github.com/iabetor/speech-engine/internal/logger"
)

// DefaultChunkFrames 是每次写入设备的帧数。
const DefaultChunkFrames = 512

// Stream 是一次播放期间打开的输出流。
type Stream interface {
	// Write 提交一块 PCM 数据，设备缓冲满时阻塞，ctx 取消时返回 ctx.Err()。
	Write(ctx context.Context, p []byte) error
	// Close 等待已提交的数据全部交给设备后释放流。
	Close() error
}

// Opener 按指定格式打开输出流。
type Opener interface {
	Open(f Format) (Stream, error)
}

// Sink 把原始 PCM 按固定大小分块写入系统输出设备。
// 每次调用独立打开、关闭一个流，调用之间不保留状态。
type Sink struct {
	opener      Opener
	chunkFrames int
}

// NewSink 创建播放器。chunkFrames <= 0 时使用 DefaultChunkFrames。
func NewSink(opener Opener, chunkFrames int) *Sink {
	if chunkFrames <= 0 {
		chunkFrames = DefaultChunkFrames
	}
	return &Sink{opener: opener, chunkFrames: chunkFrames}
}

// ChunkFrames 返回每块的帧数。
func (s *Sink) ChunkFrames() int {
	return s.chunkFrames
}

// Play 播放解码后的 PCM。
func (s *Sink) Play(ctx context.Context, pcm PCM) error {
	return s.PlayBytes(ctx, pcm.Data, pcm.Channels, pcm.SampleWidth, pcm.FrameRate)
}

// PlayBytes 播放原始交错 PCM，阻塞直到全部数据提交给设备。
// 流恰好打开一次、关闭一次，写入失败或 ctx 取消时同样会关闭。
func (s *Sink) PlayBytes(ctx context.Context, data []byte, channels, sampleWidth, frameRate int) (err error) {
	f := Format{Channels: channels, SampleWidth: sampleWidth, FrameRate: frameRate}
	if err := f.Validate(); err != nil {
		return err
	}

	stream, err := s.opener.Open(f)
	if err != nil {
		return &DeviceError{Op: "open", Err: err}
	}
	defer func() {
		if cerr := stream.Close(); cerr != nil && err == nil {
			err = &DeviceError{Op: "close", Err: cerr}
		}
	}()

	chunk := s.chunkFrames * f.FrameBytes()
	logger.Debugf("[audio] 开始播放 %d 字节 (%s, 每块 %d 字节)", len(data), f, chunk)

	for pos := 0; pos < len(data); pos += chunk {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := pos + chunk
		if end > len(data) {
			end = len(data)
		}
		if err := stream.Write(ctx, data[pos:end]); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return &DeviceError{Op: "write", Err: fmt.Errorf("写入第 %d 字节处失败: %w", pos, err)}
		}
	}
	return nil
}
