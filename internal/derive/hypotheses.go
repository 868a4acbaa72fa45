package derive

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"hash"
	"strconv"

	"golang.org/x/crypto/sha3"
)

// hashFunc produces a lowercase hex digest of its input.
type hashFunc func(data []byte) string

func hexSum(h hash.Hash, data []byte) string {
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Digest families by hex output width. MD5 and SHA-1 are here because the
// target protocol may use them, not because they are fit for anything.
var families = []struct {
	name  string
	width int
	sum   hashFunc
}{
	{"md5", 32, func(d []byte) string { s := md5.Sum(d); return hex.EncodeToString(s[:]) }},
	{"sha1", 40, func(d []byte) string { s := sha1.Sum(d); return hex.EncodeToString(s[:]) }},
	{"sha256", 64, func(d []byte) string { s := sha256.Sum256(d); return hex.EncodeToString(s[:]) }},
	{"sha3-256", 64, func(d []byte) string { return hexSum(sha3.New256(), d) }},
	{"keccak-256", 64, func(d []byte) string { return hexSum(sha3.NewLegacyKeccak256(), d) }},
	{"sha512", 128, func(d []byte) string { s := sha512.Sum512(d); return hex.EncodeToString(s[:]) }},
}

// keyedFamilies are HMAC variants keyed by a session material value.
var keyedFamilies = []struct {
	name    string
	width   int
	newHash func() hash.Hash
}{
	{"hmac-sha256", 64, sha256.New},
	{"hmac-sha512", 128, sha512.New},
}

// StandardHypotheses builds the ordered default hypothesis set for a given
// segment width: every concatenation recipe over every digest family whose
// hex output matches the width, plus HMAC variants keyed by each named
// session material field.
//
// sessionKeys names the material fields treated as session identifiers or
// intermediate tokens (e.g. "id", "keypadUuid"), in priority order. Recipes
// referencing a key that is absent from the material evaluate to a digest of
// the recipe with an empty key rather than panicking, which can never match
// a real segment by accident of control flow.
func StandardHypotheses(segmentWidth int, sessionKeys []string) []Hypothesis {
	var out []Hypothesis

	for _, f := range families {
		if f.width != segmentWidth {
			continue
		}
		sum := f.sum
		out = append(out, Hypothesis{
			Name: f.name + "(char)",
			Eval: func(_ map[string]string, ch byte, _ int) string {
				return sum([]byte{ch})
			},
		})
		for _, key := range sessionKeys {
			key := key
			out = append(out,
				Hypothesis{
					Name: f.name + "(" + key + "+char)",
					Eval: func(m map[string]string, ch byte, _ int) string {
						return sum(append([]byte(m[key]), ch))
					},
				},
				Hypothesis{
					Name: f.name + "(char+" + key + ")",
					Eval: func(m map[string]string, ch byte, _ int) string {
						return sum(append([]byte{ch}, m[key]...))
					},
				},
				Hypothesis{
					Name: f.name + "(" + key + "+pos+char)",
					Eval: func(m map[string]string, ch byte, pos int) string {
						data := append([]byte(m[key]), strconv.Itoa(pos)...)
						return sum(append(data, ch))
					},
				},
			)
		}
	}

	for _, f := range keyedFamilies {
		if f.width != segmentWidth {
			continue
		}
		newHash := f.newHash
		for _, key := range sessionKeys {
			key := key
			out = append(out,
				Hypothesis{
					Name: f.name + "[" + key + "](char)",
					Eval: func(m map[string]string, ch byte, _ int) string {
						mac := hmac.New(newHash, []byte(m[key]))
						mac.Write([]byte{ch})
						return hex.EncodeToString(mac.Sum(nil))
					},
				},
				Hypothesis{
					Name: f.name + "[" + key + "](pos+char)",
					Eval: func(m map[string]string, ch byte, pos int) string {
						mac := hmac.New(newHash, []byte(m[key]))
						mac.Write([]byte(strconv.Itoa(pos)))
						mac.Write([]byte{ch})
						return hex.EncodeToString(mac.Sum(nil))
					},
				},
			)
		}
	}

	return out
}
