// Package wav wraps raw linear-PCM sample bytes into a RIFF/WAVE container.
// The transcription providers accept self-describing audio only, so every
// flush window is wrapped before submission.
package wav

import "encoding/binary"

// HeaderSize is the size of the canonical PCM WAV header in bytes.
const HeaderSize = 44

// Encode wraps pcm in a WAV container describing the given format. The
// samples are copied unmodified after the 44-byte header. Behaviour is
// defined for sampleRate > 0, channels >= 1 and sampleWidth in {1, 2, 4};
// Encode never fails.
func Encode(pcm []byte, sampleRate, channels, sampleWidth int) []byte {
	dataSize := len(pcm)
	byteRate := sampleRate * channels * sampleWidth
	blockAlign := channels * sampleWidth

	out := make([]byte, HeaderSize+dataSize)

	copy(out[0:4], "RIFF")
	binary.LittleEndian.PutUint32(out[4:8], uint32(HeaderSize-8+dataSize))
	copy(out[8:12], "WAVE")

	copy(out[12:16], "fmt ")
	binary.LittleEndian.PutUint32(out[16:20], 16) // PCM fmt chunk size
	binary.LittleEndian.PutUint16(out[20:22], 1)  // audio format: PCM
	binary.LittleEndian.PutUint16(out[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(out[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(out[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(out[34:36], uint16(sampleWidth*8))

	copy(out[36:40], "data")
	binary.LittleEndian.PutUint32(out[40:44], uint32(dataSize))

	copy(out[HeaderSize:], pcm)
	return out
}

// SampleRate reads the sample rate field from a WAV header. Returns 0 when
// the container is too short to carry one.
func SampleRate(container []byte) int {
	if len(container) < 28 {
		return 0
	}
	return int(binary.LittleEndian.Uint32(container[24:28]))
}
