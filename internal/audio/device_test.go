package audio

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// stalledOpener 返回没有设备回调的流，模拟停止取数据的声卡。
type stalledOpener struct {
	mu     sync.Mutex
	stream *malgoStream
}

func (o *stalledOpener) Open(f Format) (Stream, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stream = newMalgoStream(f)
	return o.stream, nil
}

func (o *stalledOpener) current() *malgoStream {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stream
}

// 队列深度之外的数据足以把 Write 堵住。
func stalledData() []byte {
	return make([]byte, (queueDepth+4)*DefaultChunkFrames*2)
}

func TestMalgoStream_ContextCancelUnblocksWrite(t *testing.T) {
	opener := &stalledOpener{}
	sink := NewSink(opener, 0)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- sink.PlayBytes(ctx, stalledData(), 1, 2, 16000)
	}()

	select {
	case err := <-done:
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("err = %v, want context.DeadlineExceeded", err)
		}
	case <-time.After(time.Second):
		t.Fatal("PlayBytes still blocked after ctx deadline")
	}
}

func TestMalgoStream_StallReturnsDeviceError(t *testing.T) {
	opener := &stalledOpener{}
	sink := NewSink(&stallOverride{opener: opener, timeout: 50 * time.Millisecond}, 0)

	done := make(chan error, 1)
	go func() {
		done <- sink.PlayBytes(context.Background(), stalledData(), 1, 2, 16000)
	}()

	select {
	case err := <-done:
		var de *DeviceError
		if !errors.As(err, &de) || de.Op != "write" {
			t.Fatalf("err = %v, want write DeviceError", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("PlayBytes did not give up on a stalled device")
	}
}

func TestMalgoStream_DeviceStopped(t *testing.T) {
	opener := &stalledOpener{}
	sink := NewSink(opener, 0)

	done := make(chan error, 1)
	go func() {
		done <- sink.PlayBytes(context.Background(), stalledData(), 1, 2, 16000)
	}()

	// 等待流打开后模拟设备停止回调
	deadline := time.Now().Add(time.Second)
	for {
		if s := opener.current(); s != nil {
			s.stop()
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("stream was never opened")
		}
		time.Sleep(5 * time.Millisecond)
	}

	select {
	case err := <-done:
		var de *DeviceError
		if !errors.As(err, &de) || de.Op != "write" {
			t.Fatalf("err = %v, want write DeviceError", err)
		}
		if !errors.Is(err, errDeviceStopped) {
			t.Errorf("err = %v, want errDeviceStopped", err)
		}
	case <-time.After(time.Second):
		t.Fatal("PlayBytes did not notice the stopped device")
	}
}

func TestMalgoStream_FillDrainsQueue(t *testing.T) {
	f := Format{Channels: 1, SampleWidth: 2, FrameRate: 16000}
	s := newMalgoStream(f)

	if err := s.Write(context.Background(), []byte{1, 2, 3, 4}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	out := make([]byte, 8)
	s.fill(out, nil, 4)
	if string(out) != string([]byte{1, 2, 3, 4, 0, 0, 0, 0}) {
		t.Errorf("fill = %v, want data then silence", out)
	}

	close(s.queue)
	s.fill(out, nil, 4)
	select {
	case <-s.drained:
	default:
		t.Error("drained should be closed once the queue is closed and empty")
	}
}

// stallOverride 缩短停顿超时，让测试快速结束。
type stallOverride struct {
	opener  *stalledOpener
	timeout time.Duration
}

func (o *stallOverride) Open(f Format) (Stream, error) {
	st, err := o.opener.Open(f)
	if err != nil {
		return nil, err
	}
	st.(*malgoStream).stallTimeout = o.timeout
	return st, nil
}
