package simengine

import (
	"encoding/binary"
	"math"
	"time"
)

// synthesize renders a word as 16-bit little-endian mono PCM: a tone whose
// pitch depends on the word, with a short fade at both ends.
func synthesize(word string, d time.Duration, sampleRate int) []byte {
	n := int(d.Seconds() * float64(sampleRate))
	if n <= 0 {
		return nil
	}

	var sum int
	for _, r := range word {
		sum += int(r)
	}
	freq := 180.0 + float64(sum%220)

	fade := n / 10
	out := make([]byte, n*2)
	for i := 0; i < n; i++ {
		amp := 0.3
		switch {
		case fade > 0 && i < fade:
			amp *= float64(i) / float64(fade)
		case fade > 0 && i >= n-fade:
			amp *= float64(n-i) / float64(fade)
		}
		v := amp * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(v*math.MaxInt16)))
	}
	return out
}
