package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"
)

const serialAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// SerialGenerator produces public certificate numbers. Injectable so tests
// can force collisions.
type SerialGenerator interface {
	Generate() string
}

type serialGenerator struct {
	prefix string
}

func NewSerialGenerator(prefix string) SerialGenerator {
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if prefix == "" {
		prefix = "RWC"
	}
	return &serialGenerator{prefix: prefix}
}

// Generate returns "<PREFIX>-<base36 nanos>-<6 random base36>". The timestamp
// component keeps numbers roughly sortable; the random suffix makes collisions
// between concurrent generators unlikely rather than impossible, which is why
// issuance retries on a number conflict.
func (g *serialGenerator) Generate() string {
	ts := strings.ToUpper(strconv.FormatInt(time.Now().UnixNano(), 36))

	suffix := make([]byte, 6)
	max := big.NewInt(int64(len(serialAlphabet)))
	for i := range suffix {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand only fails when the OS entropy source is broken;
			// fall back to a timestamp-derived digit.
			suffix[i] = serialAlphabet[time.Now().UnixNano()%int64(len(serialAlphabet))]
			continue
		}
		suffix[i] = serialAlphabet[n.Int64()]
	}

	return fmt.Sprintf("%s-%s-%s", g.prefix, ts, suffix)
}
