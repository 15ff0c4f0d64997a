package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrInvalidToken covers malformed tokens and signature mismatches.
	ErrInvalidToken = errors.New("invalid download token")
	// ErrTokenExpired is returned for well-formed tokens past their expiry.
	ErrTokenExpired = errors.New("download token expired")
)

// Grant is the content of a signed download token.
type Grant struct {
	JobID     string
	Path      string
	ExpiresAt time.Time
}

// SignedURLSigner issues HMAC-SHA256 download tokens of the form
// base64(jobID|expiry|path).base64(mac).
type SignedURLSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSignedURLSigner builds a signer; ttl defaults to 24h.
func NewSignedURLSigner(secret string, ttl time.Duration) *SignedURLSigner {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SignedURLSigner{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Generate signs a token for the job's stored file.
func (s *SignedURLSigner) Generate(jobID, path string) (string, time.Time, error) {
	if jobID == "" || path == "" {
		return "", time.Time{}, fmt.Errorf("job id and path required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	expiresAt := s.now().Add(s.ttl).Truncate(time.Second)
	payload := strings.Join([]string{jobID, strconv.FormatInt(expiresAt.Unix(), 10), path}, "|")
	enc := base64.RawURLEncoding
	token := enc.EncodeToString([]byte(payload)) + "." + enc.EncodeToString(s.sign(payload))
	return token, expiresAt, nil
}

// Parse verifies the signature and expiry and returns the grant.
func (s *SignedURLSigner) Parse(token string) (Grant, error) {
	encPayload, encSig, ok := strings.Cut(token, ".")
	if !ok {
		return Grant{}, ErrInvalidToken
	}
	enc := base64.RawURLEncoding
	rawPayload, err := enc.DecodeString(encPayload)
	if err != nil {
		return Grant{}, ErrInvalidToken
	}
	sig, err := enc.DecodeString(encSig)
	if err != nil {
		return Grant{}, ErrInvalidToken
	}
	payload := string(rawPayload)
	if !hmac.Equal(sig, s.sign(payload)) {
		return Grant{}, ErrInvalidToken
	}

	parts := strings.SplitN(payload, "|", 3)
	if len(parts) != 3 {
		return Grant{}, ErrInvalidToken
	}
	exp, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return Grant{}, ErrInvalidToken
	}
	grant := Grant{JobID: parts[0], Path: parts[2], ExpiresAt: time.Unix(exp, 0).UTC()}
	if s.now().After(grant.ExpiresAt) {
		return grant, ErrTokenExpired
	}
	return grant, nil
}

func (s *SignedURLSigner) sign(payload string) []byte {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(payload))
	return mac.Sum(nil)
}
