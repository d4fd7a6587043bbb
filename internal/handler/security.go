package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"github.com/glamlocks/storefront/internal/domain/auth"
)

// Security authenticates back-office automation via HMAC-SHA256 hashed API
// keys. Interactive callers are identified by the gateway headers instead.
type Security struct {
	apikeys auth.Repository
	pepper  []byte
}

// NewSecurity creates a Security with the given API key repository and HMAC
// pepper.
func NewSecurity(apikeys auth.Repository, pepper []byte) *Security {
	return &Security{
		apikeys: apikeys,
		pepper:  pepper,
	}
}

// AdminKey reports whether the request carries a valid API key with the
// admin scope. The key is HMAC-hashed, looked up, and compared in constant
// time to prevent timing side-channels.
func (s *Security) AdminKey(r *http.Request) bool {
	key := r.Header.Get("api_key")
	if key == "" {
		return false
	}

	mac := hmac.New(sha256.New, s.pepper)
	mac.Write([]byte(key))
	hash := mac.Sum(nil)

	info, err := s.apikeys.FindByHash(r.Context(), hex.EncodeToString(hash))
	if err != nil {
		return false
	}

	stored, err := hex.DecodeString(info.KeyHash)
	if err != nil {
		return false
	}
	if subtle.ConstantTimeCompare(hash, stored) != 1 {
		return false
	}

	return info.HasScope("admin")
}
