package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// signaturePrefix is the scheme tag funding providers put in front of the digest.
const signaturePrefix = "sha256="

// HMACSignatureService signs and verifies funding webhook bodies with HMAC-SHA256.
type HMACSignatureService struct{}

func NewHMACSignatureService() *HMACSignatureService {
	return &HMACSignatureService{}
}

// Sign returns the lowercase hex HMAC-SHA256 of payload.
func (s *HMACSignatureService) Sign(secret string, payload []byte) string {
	return hex.EncodeToString(s.mac(secret, payload))
}

// Verify reports whether signature is the HMAC of payload under secret. The
// digest may be tagged "sha256=" and is matched case-insensitively. An empty
// secret never verifies.
func (s *HMACSignatureService) Verify(secret string, payload []byte, signature string) bool {
	if secret == "" {
		return false
	}
	got, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(signature), signaturePrefix))
	if err != nil || len(got) != sha256.Size {
		return false
	}
	return hmac.Equal(got, s.mac(secret, payload))
}

func (s *HMACSignatureService) mac(secret string, payload []byte) []byte {
	m := hmac.New(sha256.New, []byte(secret))
	m.Write(payload)
	return m.Sum(nil)
}
