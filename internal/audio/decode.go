package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"github.com/hajimehoshi/go-mp3"
)

// 容器扩展名。
const (
	ContainerMP3 = ".mp3"
	ContainerWAV = ".wav"
)

// Decode 按容器类型把服务返回的音频解码为 PCM。
func Decode(container string, data []byte) (PCM, error) {
	switch strings.ToLower(container) {
	case ContainerMP3:
		return DecodeMP3(data)
	case ContainerWAV:
		return DecodeWAV(data)
	default:
		return PCM{}, fmt.Errorf("[audio] 不支持的容器格式: %q", container)
	}
}

// DecodeMP3 使用 go-mp3 解码。输出固定为 16-bit 立体声，采样率取自码流。
func DecodeMP3(data []byte) (PCM, error) {
	decoder, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return PCM{}, fmt.Errorf("[audio] MP3 解码失败: %w", err)
	}

	pcmData, err := io.ReadAll(decoder)
	if err != nil {
		return PCM{}, fmt.Errorf("[audio] 读取 PCM 数据失败: %w", err)
	}

	// go-mp3 输出每帧 4 字节：左声道 2 字节 + 右声道 2 字节
	const bytesPerFrame = 4
	pcmData = pcmData[:len(pcmData)/bytesPerFrame*bytesPerFrame]

	return PCM{
		Data:   pcmData,
		Format: Format{Channels: 2, SampleWidth: 2, FrameRate: decoder.SampleRate()},
	}, nil
}

const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE
	wavHeaderSize       = 12
	wavChunkHeaderSize  = 8
	wavExtensibleSize   = 40
)

// wavSubFormatSuffix 是 KSDATAFORMAT_SUBTYPE_* GUID 中格式码之后的固定部分。
var wavSubFormatSuffix = []byte{0x00, 0x00, 0x00, 0x00, 0x10, 0x00, 0x80, 0x00, 0x00, 0xAA, 0x00, 0x38, 0x9B, 0x71}

// checkSubFormat 确认 WAVE_FORMAT_EXTENSIBLE 的子格式是整数 PCM。
func checkSubFormat(data []byte, body, size int) error {
	if size < wavExtensibleSize || body+wavExtensibleSize > len(data) {
		return fmt.Errorf("[audio] WAV 扩展 fmt 块过短")
	}
	guid := data[body+24 : body+40]
	code := binary.LittleEndian.Uint16(guid[0:2])
	if code != wavFormatPCM || !bytes.Equal(guid[2:], wavSubFormatSuffix) {
		return fmt.Errorf("[audio] 不支持的 WAV 子格式: 0x%04x", code)
	}
	return nil
}

// DecodeWAV 解析 RIFF/WAVE 容器并返回 data 块中的 PCM。
// 流式返回的 WAV 常把 data 块长度写成 0 或 0xFFFFFFFF，此时取剩余全部字节。
func DecodeWAV(data []byte) (PCM, error) {
	if len(data) < wavHeaderSize || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return PCM{}, fmt.Errorf("[audio] 不是有效的 WAV 数据")
	}

	var f Format
	haveFmt := false
	pos := wavHeaderSize
	for pos+wavChunkHeaderSize <= len(data) {
		id := string(data[pos : pos+4])
		rawSize := binary.LittleEndian.Uint32(data[pos+4 : pos+8])
		size := int(rawSize)
		body := pos + wavChunkHeaderSize

		switch id {
		case "fmt ":
			if size < 16 || body+16 > len(data) {
				return PCM{}, fmt.Errorf("[audio] WAV fmt 块过短")
			}
			tag := binary.LittleEndian.Uint16(data[body : body+2])
			if tag != wavFormatPCM && tag != wavFormatExtensible {
				return PCM{}, fmt.Errorf("[audio] 不支持的 WAV 编码: 0x%04x", tag)
			}
			if tag == wavFormatExtensible {
				if err := checkSubFormat(data, body, size); err != nil {
					return PCM{}, err
				}
			}
			f.Channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			f.FrameRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			f.SampleWidth = int(binary.LittleEndian.Uint16(data[body+14:body+16])) / 8
			haveFmt = true

		case "data":
			if !haveFmt {
				return PCM{}, fmt.Errorf("[audio] WAV 缺少 fmt 块")
			}
			end := body + size
			if rawSize == 0 || rawSize == 0xFFFFFFFF || end > len(data) || end < body {
				end = len(data)
			}
			pcm := data[body:end]
			if fb := f.FrameBytes(); fb > 0 {
				pcm = pcm[:len(pcm)/fb*fb]
			}
			return PCM{Data: pcm, Format: f}, nil
		}

		// 块按偶数字节对齐
		pos = body + size + size%2
	}
	return PCM{}, fmt.Errorf("[audio] WAV 缺少 data 块")
}
