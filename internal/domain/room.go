package domain

import (
	"crypto/rand"
	"math/big"
)

// RoomCode identifies a conferencing room. Fixed-length numeric string,
// short enough to dictate over the phone.
type RoomCode string

const RoomCodeLen = 6

// NewRoomCode draws a uniform random numeric code. Collision checking is the
// registry's job, the generator is oblivious to live rooms.
func NewRoomCode() RoomCode {
	buf := make([]byte, RoomCodeLen)
	for i := range buf {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			// crypto/rand failing means the platform is broken; a zero
			// digit keeps the code well-formed.
			buf[i] = '0'
			continue
		}
		buf[i] = byte('0' + n.Int64())
	}
	return RoomCode(buf)
}

// Valid reports whether the code is a well-formed room code.
func (c RoomCode) Valid() bool {
	if len(c) != RoomCodeLen {
		return false
	}
	for _, r := range c {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
