// Package audiotest 提供音频相关测试用的数据构造工具。
package audiotest

import (
	"bytes"
	_ "embed"
	"encoding/binary"
)

// ToneMP3 是一段约 1 秒的 MPEG-2 Layer III 单声道音频 (22050Hz, 48kbps)。
//
//go:embed tone.mp3
var ToneMP3 []byte

// ToneRate 是 ToneMP3 的采样率。
const ToneRate = 22050

// WAV 为交错 PCM 写入 44 字节的标准 WAV 头。
func WAV(data []byte, channels, sampleWidth, frameRate int) []byte {
	var buf bytes.Buffer
	dataSize := uint32(len(data))
	blockAlign := uint16(channels * sampleWidth)

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, 36+dataSize)
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1))
	binary.Write(&buf, binary.LittleEndian, uint16(channels))
	binary.Write(&buf, binary.LittleEndian, uint32(frameRate))
	binary.Write(&buf, binary.LittleEndian, uint32(frameRate)*uint32(blockAlign))
	binary.Write(&buf, binary.LittleEndian, blockAlign)
	binary.Write(&buf, binary.LittleEndian, uint16(sampleWidth*8))
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, dataSize)
	buf.Write(data)
	return buf.Bytes()
}

// Extensible 构造 WAVE_FORMAT_EXTENSIBLE 头的 WAV，subFormat 为 GUID 前两字节的格式码
// (1 = PCM, 3 = IEEE float)。
func Extensible(data []byte, channels, sampleWidth, frameRate int, subFormat uint16) []byte {
	var buf bytes.Buffer
	blockAlign := uint16(channels * sampleWidth)

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(4+8+40+8+len(data)))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(40))
	binary.Write(&buf, binary.LittleEndian, uint16(0xFFFE))
	binary.Write(&buf, binary.LittleEndian, uint16(channels))
	binary.Write(&buf, binary.LittleEndian, uint32(frameRate))
	binary.Write(&buf, binary.LittleEndian, uint32(frameRate)*uint32(blockAlign))
	binary.Write(&buf, binary.LittleEndian, blockAlign)
	binary.Write(&buf, binary.LittleEndian, uint16(sampleWidth*8))
	binary.Write(&buf, binary.LittleEndian, uint16(22))            // cbSize
	binary.Write(&buf, binary.LittleEndian, uint16(sampleWidth*8)) // wValidBitsPerSample
	binary.Write(&buf, binary.LittleEndian, uint32(0))             // dwChannelMask
	binary.Write(&buf, binary.LittleEndian, subFormat)             // SubFormat GUID
	buf.Write([]byte{0x00, 0x00, 0x00, 0x00, 0x10, 0x00, 0x80, 0x00, 0x00, 0xAA, 0x00, 0x38, 0x9B, 0x71})
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(len(data)))
	buf.Write(data)
	return buf.Bytes()
}
