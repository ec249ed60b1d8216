// Package rtlsdr reads I/Q samples from an RTL2832 based receiver.
package rtlsdr

// readGranularity is the transfer size librtlsdr requires for sync reads
const readGranularity = 512

// ConvertSamples recentres unsigned 8 bit I/Q values around zero and scales
// them by 16 into the SC16 Q11 range the demodulator is tuned for.
// It converts min(len(dst), len(src)) values and returns that count.
func ConvertSamples(dst []int16, src []byte) int {
	n := min(len(dst), len(src))
	for i := 0; i < n; i++ {
		dst[i] = (int16(src[i]) - 128) << 4
	}
	return n
}

// stagingSize rounds n up to the next multiple of the read granularity
func stagingSize(n int) int {
	if n <= 0 {
		return readGranularity
	}
	return (n + readGranularity - 1) / readGranularity * readGranularity
}
