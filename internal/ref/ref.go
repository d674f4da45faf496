// Package ref turns occurrence references into opaque, tamper-proof URL
// tokens for the HTTP API.
package ref

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/vmihailenco/msgpack/v5"

	"taskcal/internal/model"
)

// ErrInvalidToken covers every way a token can fail to decode.
var ErrInvalidToken = errors.New("invalid occurrence reference")

// payload is the packed form; short keys keep tokens small.
type payload struct {
	ID   string `msgpack:"i"`
	Key  string `msgpack:"k"`
	Date string `msgpack:"d"`
}

// Encoder signs references with an HMAC key. Tokens are
// base64url(msgpack) + "." + base64url(truncated HMAC-SHA256).
type Encoder struct {
	key []byte
}

// NewEncoder derives a 32-byte key from secret. An empty secret gets a
// random key, so tokens only survive for the life of the process.
func NewEncoder(secret string) (*Encoder, error) {
	if secret == "" {
		key := make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, err
		}
		return &Encoder{key: key}, nil
	}
	h := sha256.Sum256([]byte(secret))
	return &Encoder{key: h[:]}, nil
}

func (e *Encoder) Encode(r model.Ref) (string, error) {
	packed, err := msgpack.Marshal(payload{ID: r.ID, Key: r.Key.String(), Date: r.Date.String()})
	if err != nil {
		return "", err
	}
	return e.sign(packed), nil
}

func (e *Encoder) Decode(token string) (model.Ref, error) {
	packed, err := e.verify(token)
	if err != nil {
		return model.Ref{}, err
	}
	var p payload
	if err := msgpack.Unmarshal(packed, &p); err != nil {
		return model.Ref{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	key, err := model.ParseDate(p.Key)
	if err != nil {
		return model.Ref{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	date, err := model.ParseDate(p.Date)
	if err != nil {
		return model.Ref{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if p.ID == "" {
		return model.Ref{}, fmt.Errorf("%w: empty id", ErrInvalidToken)
	}
	return model.Ref{ID: p.ID, Key: key, Date: date}, nil
}

func (e *Encoder) sign(data []byte) string {
	b64 := base64.RawURLEncoding.EncodeToString(data)
	mac := hmac.New(sha256.New, e.key)
	mac.Write(data)
	sig := base64.RawURLEncoding.EncodeToString(mac.Sum(nil)[:16])
	return b64 + "." + sig
}

func (e *Encoder) verify(token string) ([]byte, error) {
	body, sigPart, ok := strings.Cut(token, ".")
	if !ok {
		return nil, fmt.Errorf("%w: missing signature", ErrInvalidToken)
	}
	data, err := base64.RawURLEncoding.DecodeString(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	sig, err := base64.RawURLEncoding.DecodeString(sigPart)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	mac := hmac.New(sha256.New, e.key)
	mac.Write(data)
	if !hmac.Equal(sig, mac.Sum(nil)[:16]) {
		return nil, fmt.Errorf("%w: signature verification failed", ErrInvalidToken)
	}
	return data, nil
}
