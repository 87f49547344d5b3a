package game

import (
	"math/rand"
	"regexp"
	"strings"
)

// Room codes are 6 chars from an alphabet that drops lookalikes (0/O, 1/I)
// since players type them from a phone screen.
const roomCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const RoomCodeLength = 6

var roomCodeRe = regexp.MustCompile(`^[A-Z2-9]{6}$`)

func NewRoomCode() string {
	b := make([]byte, RoomCodeLength)
	for i := range b {
		b[i] = roomCodeAlphabet[rand.Intn(len(roomCodeAlphabet))]
	}
	return string(b)
}

func ValidRoomCode(code string) bool {
	return roomCodeRe.MatchString(code)
}

// NormalizeRoomCode uppercases user input and strips everything outside the
// code character set, truncated to the code length.
func NormalizeRoomCode(input string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(input) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
		if b.Len() == RoomCodeLength {
			break
		}
	}
	return b.String()
}
