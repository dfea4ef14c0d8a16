package hostedform

import (
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
)

// SignatureField is never part of the signed string.
const SignatureField = "signature"

// encode escapes a value the way the provider's signature check expects:
// spaces become '+', and the sub-delims a browser leaves alone stay literal.
var unescaped = strings.NewReplacer("%21", "!", "%27", "'", "%28", "(", "%29", ")", "%2A", "*")

func encode(v string) string {
	return unescaped.Replace(url.QueryEscape(v))
}

// SignatureBase is the string that gets hashed: non-empty fields as key=value in key
// order joined by '&', with the passphrase appended when one is configured.
func SignatureBase(fields map[string]string, passphrase string) string {
	keys := make([]string, 0, len(fields))
	for k, v := range fields {
		if k == SignatureField || v == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(encode(fields[k]))
	}
	if p := strings.TrimSpace(passphrase); p != "" {
		b.WriteString("&passphrase=")
		b.WriteString(encode(p))
	}
	return b.String()
}

func Sign(fields map[string]string, passphrase string) string {
	sum := md5.Sum([]byte(SignatureBase(fields, passphrase)))
	return hex.EncodeToString(sum[:])
}

func ValidSignature(fields map[string]string, passphrase string) bool {
	received := strings.ToLower(strings.TrimSpace(fields[SignatureField]))
	if received == "" {
		return false
	}
	expected := Sign(fields, passphrase)
	return subtle.ConstantTimeCompare([]byte(received), []byte(expected)) == 1
}
