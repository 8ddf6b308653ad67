// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package packet

import (
	"bytes"
	"errors"
	"math/rand"
	"os"
	"strconv"
	"testing"
	"time"
)

// getFuzzRounds returns the number of fuzz rounds from FUZZ_ROUNDS env var, default 1000
func getFuzzRounds() int {
	if envRounds := os.Getenv("FUZZ_ROUNDS"); envRounds != "" {
		if rounds, err := strconv.Atoi(envRounds); err == nil && rounds > 0 {
			return rounds
		}
	}
	return 1000
}

// getFuzzSeed returns the seed from FUZZ_SEED env var, or generates one from current time
func getFuzzSeed() int64 {
	if envSeed := os.Getenv("FUZZ_SEED"); envSeed != "" {
		if seed, err := strconv.ParseInt(envSeed, 10, 64); err == nil {
			return seed
		}
	}
	return time.Now().UnixNano()
}

// newFuzzRng creates a new random number generator and logs the seed for reproducibility
func newFuzzRng(t *testing.T) *rand.Rand {
	seed := getFuzzSeed()
	t.Logf("Seed: %d (reproduce with FUZZ_SEED=%d)", seed, seed)
	return rand.New(rand.NewSource(seed))
}

func randomPayload(rng *rand.Rand) []byte {
	payload := make([]byte, rng.Intn(PayloadSize+1))
	rng.Read(payload)
	return payload
}

func TestFuzz_RoundTrip(t *testing.T) {
	rng := newFuzzRng(t)
	rounds := getFuzzRounds()

	for i := 0; i < rounds; i++ {
		dev, cmd, seq := uint8(rng.Intn(256)), uint8(rng.Intn(256)), uint8(rng.Intn(256))
		payload := randomPayload(rng)

		frame, err := Encode(dev, cmd, seq, payload)
		if err != nil {
			t.Fatalf("round %d: Encode error: %v", i, err)
		}
		p, err := Decode(frame)
		if err != nil {
			t.Fatalf("round %d: Decode error: %v", i, err)
		}
		if !p.CheckCRC() {
			t.Fatalf("round %d: CRC invalid after round trip", i)
		}
		if !bytes.Equal(p.Payload()[:len(payload)], payload) {
			t.Fatalf("round %d: payload mismatch", i)
		}
	}
}

func TestFuzz_LineRoundTrip(t *testing.T) {
	rng := newFuzzRng(t)
	rounds := getFuzzRounds()
	d := NewLineDecoder()

	for i := 0; i < rounds; i++ {
		frame, _ := Encode(uint8(rng.Intn(256)), uint8(rng.Intn(256)), uint8(i), randomPayload(rng))
		var got *Packet
		for _, b := range EncodeLine(frame) {
			p, err := d.DecodeByte(b)
			if err != nil {
				t.Fatalf("round %d: DecodeByte error: %v", i, err)
			}
			if p != nil {
				got = p
			}
		}
		if got == nil || !bytes.Equal(got.Bytes(), frame) {
			t.Fatalf("round %d: line round trip failed", i)
		}
	}
}

func TestFuzz_RandomBitFlips(t *testing.T) {
	rng := newFuzzRng(t)
	rounds := getFuzzRounds()

	for i := 0; i < rounds; i++ {
		frame, _ := Encode(uint8(rng.Intn(256)), uint8(rng.Intn(256)), uint8(rng.Intn(256)), randomPayload(rng))
		bit := rng.Intn(FrameSize * 8)
		frame[bit/8] ^= 0x80 >> (bit % 8)

		if _, err := Decode(frame); !errors.Is(err, ErrCRCMismatch) {
			t.Fatalf("round %d: flipped bit %d not detected (err=%v)", i, bit, err)
		}
	}
}

func TestFuzz_RandomBytesNeverPanic(t *testing.T) {
	rng := newFuzzRng(t)
	rounds := getFuzzRounds()
	d := NewLineDecoder()

	for i := 0; i < rounds; i++ {
		buf := make([]byte, rng.Intn(64))
		rng.Read(buf)
		_, _ = Decode(buf)
		for _, b := range buf {
			_, _ = d.DecodeByte(b)
		}
	}
}
