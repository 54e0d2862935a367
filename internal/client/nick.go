package client

import (
	"crypto/rand"
	"strconv"
	"time"
)

const nickLetters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// randomNick invents a throwaway nickname between 3 and 20 letters when
// the configuration provides none.
func randomNick() string {
	buf := make([]byte, 21)
	if _, err := rand.Read(buf); err != nil {
		// Fallback to a timestamp nick if crypto/rand is unavailable.
		return "guest" + strconv.FormatInt(time.Now().Unix()%100000, 10)
	}
	n := 3 + int(buf[0])%18
	nick := make([]byte, n)
	for i := 0; i < n; i++ {
		nick[i] = nickLetters[int(buf[i+1])%len(nickLetters)]
	}
	return string(nick)
}
