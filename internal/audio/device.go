package audio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gen2brain/malgo"

	"github.com/iabetor/speech-engine/internal/logger"
)

// queueDepth 是设备回调尚未取走的最大块数，写满后 Write 阻塞。
const queueDepth = 8

// stallTimeout 是队列已满时等待设备回调取走数据的最长时间。
const stallTimeout = 2 * time.Second

// errDeviceStopped 表示设备在播放过程中被停止（例如被拔出）。
var errDeviceStopped = errors.New("播放设备已停止")

// MalgoOpener 使用 malgo (miniaudio) 打开系统默认扬声器。
// 播放上下文在首次 Open 时创建，Close 时释放；设备本身每次播放单独打开。
type MalgoOpener struct {
	mu     sync.Mutex
	ctx    *malgo.AllocatedContext
	closed bool
}

// NewMalgoOpener 创建 malgo 设备打开器。
func NewMalgoOpener() *MalgoOpener {
	return &MalgoOpener{}
}

func (o *MalgoOpener) context() (*malgo.AllocatedContext, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return nil, fmt.Errorf("播放器已关闭")
	}
	if o.ctx == nil {
		ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
		if err != nil {
			return nil, fmt.Errorf("初始化播放上下文失败: %w", err)
		}
		o.ctx = ctx
	}
	return o.ctx, nil
}

func malgoFormat(sampleWidth int) (malgo.FormatType, error) {
	switch sampleWidth {
	case 1:
		return malgo.FormatU8, nil
	case 2:
		return malgo.FormatS16, nil
	case 3:
		return malgo.FormatS24, nil
	case 4:
		return malgo.FormatS32, nil
	default:
		return malgo.FormatUnknown, fmt.Errorf("不支持的采样宽度: %d", sampleWidth)
	}
}

// Open 按格式初始化并启动播放设备。
func (o *MalgoOpener) Open(f Format) (Stream, error) {
	format, err := malgoFormat(f.SampleWidth)
	if err != nil {
		return nil, err
	}
	ctx, err := o.context()
	if err != nil {
		return nil, err
	}

	s := newMalgoStream(f)

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = format
	deviceConfig.Playback.Channels = uint32(f.Channels)
	deviceConfig.SampleRate = uint32(f.FrameRate)
	deviceConfig.PeriodSizeInFrames = DefaultChunkFrames
	deviceConfig.Periods = 2

	device, err := malgo.InitDevice(ctx.Context, deviceConfig, malgo.DeviceCallbacks{Data: s.fill, Stop: s.stop})
	if err != nil {
		return nil, fmt.Errorf("初始化播放设备失败: %w", err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		return nil, fmt.Errorf("启动播放设备失败: %w", err)
	}
	s.device = device
	logger.Debugf("[audio] 播放设备已打开 (%s)", f)
	return s, nil
}

// Close 释放播放上下文。
func (o *MalgoOpener) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return
	}
	o.closed = true

	if o.ctx != nil {
		_ = o.ctx.Uninit()
		o.ctx.Free()
		o.ctx = nil
	}
}

// malgoStream 把 Write 推入的块交给设备回调拉取。
type malgoStream struct {
	device       *malgo.Device
	frameBytes   int
	frameRate    int
	stallTimeout time.Duration

	queue   chan []byte
	pending []byte // 仅在回调中访问
	queued  int    // 仅在 Write/Close 中访问
	aborted bool   // 仅在 Write/Close 中访问

	drained   chan struct{}
	drainOnce sync.Once
	stopped   chan struct{}
	stopOnce  sync.Once
}

func newMalgoStream(f Format) *malgoStream {
	return &malgoStream{
		frameBytes:   f.FrameBytes(),
		frameRate:    f.FrameRate,
		stallTimeout: stallTimeout,
		queue:        make(chan []byte, queueDepth),
		drained:      make(chan struct{}),
		stopped:      make(chan struct{}),
	}
}

// Write 在队列有空位、设备停止、ctx 取消或设备长时间不取数据时返回。
func (s *malgoStream) Write(ctx context.Context, p []byte) error {
	timer := time.NewTimer(s.stallTimeout)
	defer timer.Stop()

	select {
	case s.queue <- p:
		s.queued += len(p)
		return nil
	case <-s.stopped:
		s.aborted = true
		return errDeviceStopped
	case <-ctx.Done():
		s.aborted = true
		return ctx.Err()
	case <-timer.C:
		s.aborted = true
		return fmt.Errorf("设备 %s 内未取走数据", s.stallTimeout)
	}
}

// stop 是设备停止回调。
func (s *malgoStream) stop() {
	s.stopOnce.Do(func() { close(s.stopped) })
}

// fill 是设备数据回调：从队列取数据，不足部分填静音。
func (s *malgoStream) fill(out, _ []byte, frameCount uint32) {
	need := int(frameCount) * s.frameBytes
	if need > len(out) {
		need = len(out)
	}

	n := 0
fillLoop:
	for n < need {
		if len(s.pending) == 0 {
			select {
			case chunk, ok := <-s.queue:
				if !ok {
					s.drainOnce.Do(func() { close(s.drained) })
					break fillLoop
				}
				s.pending = chunk
			default:
				break fillLoop
			}
		}
		c := copy(out[n:need], s.pending)
		s.pending = s.pending[c:]
		n += c
	}

	for i := n; i < need; i++ {
		out[i] = 0
	}
}

// Close 等待回调取走全部数据，然后停止并释放设备。
// 写入已中止时不再等待，直接释放。
func (s *malgoStream) Close() error {
	close(s.queue)

	var err error
	if !s.aborted {
		// 正常情况下按数据时长即可排空，额外留出余量防止设备停止回调时永久阻塞。
		expected := time.Duration(0)
		if s.frameBytes > 0 && s.frameRate > 0 {
			expected = time.Duration(s.queued/s.frameBytes) * time.Second / time.Duration(s.frameRate)
		}

		timer := time.NewTimer(expected + s.stallTimeout)
		select {
		case <-s.drained:
		case <-s.stopped:
			err = errDeviceStopped
		case <-timer.C:
			err = fmt.Errorf("等待设备取走数据超时")
		}
		timer.Stop()
	}

	if s.device != nil {
		_ = s.device.Stop()
		s.device.Uninit()
	}
	logger.Debugf("[audio] 播放设备已关闭")
	return err
}
