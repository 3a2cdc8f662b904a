package audio

import (
	"encoding/binary"
	"math"
)

// WireSampleRate is the rate the realtime endpoint expects.
const WireSampleRate = 16000

// DecodeFloat32LE interprets raw little-endian float32 capture bytes as
// samples. A trailing partial sample is dropped.
func DecodeFloat32LE(data []byte) []float32 {
	n := len(data) / 4
	samples := make([]float32, n)
	for i := 0; i < n; i++ {
		bits := binary.LittleEndian.Uint32(data[i*4:])
		samples[i] = math.Float32frombits(bits)
	}
	return samples
}

// Decimate downsamples by nearest-sample selection. When the rates match the
// input is returned as-is. Only downsampling is supported; the wire rate is
// never above a real capture rate.
func Decimate(samples []float32, srcRate, dstRate int) []float32 {
	if srcRate == dstRate || srcRate <= 0 || dstRate <= 0 {
		return samples
	}

	ratio := float64(srcRate) / float64(dstRate)
	n := int(float64(len(samples)) / ratio)
	out := make([]float32, 0, n)
	for i := 0; i < n; i++ {
		idx := int(math.Round(float64(i) * ratio))
		if idx >= len(samples) {
			idx = len(samples) - 1
		}
		out = append(out, samples[idx])
	}
	return out
}

// EncodePCM16LE converts float samples to 16-bit signed little-endian PCM.
// Scaling is asymmetric so that full-scale +1.0 maps to 32767 and -1.0 maps
// to -32768; out-of-range input is clamped.
func EncodePCM16LE(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}

		var v int16
		if s < 0 {
			v = int16(s * 32768)
		} else {
			v = int16(s * 32767)
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
	}
	return out
}

// EncodeFrame converts one raw float32 capture frame at srcRate into a
// PCM16LE wire frame at the wire rate.
func EncodeFrame(raw []byte, srcRate int) []byte {
	samples := DecodeFloat32LE(raw)
	samples = Decimate(samples, srcRate, WireSampleRate)
	return EncodePCM16LE(samples)
}
