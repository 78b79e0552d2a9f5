package service

import (
	"crypto/md5"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/jxskiss/base62"
)

// TokenLength is the fixed length of every short token.
const TokenLength = 7

const (
	minFactor = 1000
	maxFactor = 9999
)

// TokenGenerator derives a candidate token for a URL. Candidates are not
// guaranteed unique; the link store has the final say.
type TokenGenerator interface {
	Generate(originalURL string) string
}

// MD5TokenGenerator salts the URL with a random 4-digit factor, hashes it with
// MD5 and keeps the first TokenLength base62 characters of the digest.
// Safe for concurrent use.
type MD5TokenGenerator struct {
	factor func() int
}

func NewMD5TokenGenerator() *MD5TokenGenerator {
	return &MD5TokenGenerator{factor: randomFactor}
}

// math/rand/v2 top-level functions are safe for concurrent use.
func randomFactor() int {
	return minFactor + rand.IntN(maxFactor-minFactor+1)
}

func (g *MD5TokenGenerator) Generate(originalURL string) string {
	sum := md5.Sum([]byte(originalURL + strconv.Itoa(g.factor())))
	encoded := base62.EncodeToString(sum[:])
	if len(encoded) < TokenLength {
		encoded = strings.Repeat("0", TokenLength-len(encoded)) + encoded
	}
	return encoded[:TokenLength]
}

// IsValidToken reports whether s has the shape of a generated token.
func IsValidToken(s string) bool {
	if len(s) != TokenLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !('0' <= c && c <= '9' || 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z') {
			return false
		}
	}
	return true
}
