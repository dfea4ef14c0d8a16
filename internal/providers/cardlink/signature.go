package cardlink

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strings"
)

// Sign computes HMAC-SHA256(secret, timestamp || body).
func Sign(secret, timestamp string, body []byte) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write(body)
	return mac.Sum(nil)
}

// ValidSignature accepts the received signature in either hex or base64. Both
// encodings of the expected MAC are always compared, each in constant time.
func ValidSignature(secret, timestamp string, body []byte, received string) bool {
	received = strings.TrimSpace(received)
	if received == "" || secret == "" {
		return false
	}
	expected := Sign(secret, timestamp, body)

	hexOK := hmac.Equal([]byte(hex.EncodeToString(expected)), []byte(strings.ToLower(received)))
	b64OK := hmac.Equal([]byte(base64.StdEncoding.EncodeToString(expected)), []byte(received))
	return hexOK || b64OK
}
