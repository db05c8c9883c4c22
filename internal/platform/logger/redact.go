package logger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"
)

const redacted = "[REDACTED]"

// Keys are matched case-insensitively by substring.
var (
	secretKeys = []string{
		"authorization", "cookie", "secret", "password", "private_key", "jwt",
		"signature", "nonce", "email", "discord",
	}
	// "token" is secret unless it names an ERC-721 token.
	tokenKeyExceptions = []string{"token_id", "token_uri"}
	hashedKeys         = []string{"session_id"}
	// RPC providers put API keys in the URL path or userinfo.
	endpointKeys = []string{"rpc_url", "dsn", "redis_url"}
)

var (
	redactOnce       sync.Once
	redactionEnabled bool
	hashSalt         string
)

func redactionOn() bool {
	redactOnce.Do(func() {
		switch strings.ToLower(strings.TrimSpace(os.Getenv("LOG_REDACTION_ENABLED"))) {
		case "0", "false", "no", "off":
			redactionEnabled = false
		default:
			redactionEnabled = true
		}
		hashSalt = strings.TrimSpace(os.Getenv("LOG_HASH_SALT"))
	})
	return redactionEnabled
}

func sanitizeKVs(kv []interface{}) []interface{} {
	if len(kv) == 0 || !redactionOn() {
		return kv
	}
	out := make([]interface{}, 0, len(kv))
	for i := 0; i+1 < len(kv); i += 2 {
		key := toString(kv[i])
		out = append(out, key, sanitizeValue(strings.ToLower(strings.TrimSpace(key)), kv[i+1]))
	}
	if len(kv)%2 == 1 {
		out = append(out, kv[len(kv)-1])
	}
	return out
}

func sanitizeValue(key string, val interface{}) interface{} {
	switch {
	case key != "" && isSecretKey(key):
		return redacted
	case key != "" && containsAny(key, hashedKeys):
		return hashValue(val)
	case key != "" && containsAny(key, endpointKeys):
		return stripEndpoint(toString(val))
	}
	switch v := val.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, inner := range v {
			out[k] = sanitizeValue(strings.ToLower(strings.TrimSpace(k)), inner)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, inner := range v {
			out[i] = sanitizeValue("", inner)
		}
		return out
	case string:
		if looksLikeJWT(v) || looksLikeSignature(v) {
			return redacted
		}
	}
	return val
}

func isSecretKey(key string) bool {
	if containsAny(key, secretKeys) {
		return true
	}
	return strings.Contains(key, "token") && !containsAny(key, tokenKeyExceptions)
}

func containsAny(key string, parts []string) bool {
	for _, p := range parts {
		if strings.Contains(key, p) {
			return true
		}
	}
	return false
}

// stripEndpoint keeps scheme and host so logs still show which node or
// database was used.
func stripEndpoint(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return redacted
	}
	return u.Scheme + "://" + u.Host
}

func hashValue(val interface{}) string {
	raw := toString(val)
	if raw == "" {
		return ""
	}
	h := sha256.New()
	if hashSalt != "" {
		_, _ = h.Write([]byte(hashSalt))
	}
	_, _ = h.Write([]byte(raw))
	return "hash:" + hex.EncodeToString(h.Sum(nil))[:12]
}

func looksLikeJWT(s string) bool {
	parts := strings.Split(s, ".")
	return len(parts) == 3 && len(parts[0]) > 10 && len(parts[1]) > 10
}

// looksLikeSignature matches a 65-byte hex personal_sign signature.
func looksLikeSignature(s string) bool {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(s) != 130 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}

func toString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}
