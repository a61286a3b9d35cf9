// Package webhook authenticates and decodes payment provider callbacks.
package webhook

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrSignatureMissing = errors.New("webhook signature material missing")
	ErrSignatureInvalid = errors.New("webhook signature invalid")
)

const (
	HeaderSignature = "x-webhook-signature"
	HeaderTimestamp = "x-webhook-timestamp"

	signatureField = "signature"
)

// SignatureScheme authenticates a raw webhook delivery. Implementations must
// not have side effects: a failed check is answered without touching state.
type SignatureScheme interface {
	Name() string
	Verify(header http.Header, body []byte) error
}

// VerifyTimestamped checks base64(HMAC-SHA256(secret, timestamp || raw)) against
// signature. Absent inputs are a mismatch, never a panic.
func VerifyTimestamped(raw []byte, timestamp, signature, secret string) bool {
	if timestamp == "" || signature == "" || secret == "" {
		return false
	}
	return compare(signTimestamped(raw, timestamp, secret), signature)
}

func signTimestamped(raw []byte, timestamp, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write(raw)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func compare(expected, provided string) bool {
	return hmac.Equal([]byte(expected), []byte(provided))
}

type timestampScheme struct {
	secret string
}

// NewTimestampScheme verifies the x-webhook-signature / x-webhook-timestamp headers.
func NewTimestampScheme(secret string) SignatureScheme {
	return &timestampScheme{secret: secret}
}

func (s *timestampScheme) Name() string { return "timestamp" }

func (s *timestampScheme) Verify(header http.Header, body []byte) error {
	signature := header.Get(HeaderSignature)
	timestamp := header.Get(HeaderTimestamp)
	if signature == "" || timestamp == "" || s.secret == "" {
		return ErrSignatureMissing
	}
	if !VerifyTimestamped(body, timestamp, signature, s.secret) {
		return ErrSignatureInvalid
	}
	return nil
}

type sortedFieldsScheme struct {
	secret string
}

// NewSortedFieldsScheme verifies the legacy scheme: the body carries a
// signature field computed over the remaining values concatenated in key order.
func NewSortedFieldsScheme(secret string) SignatureScheme {
	return &sortedFieldsScheme{secret: secret}
}

func (s *sortedFieldsScheme) Name() string { return "sorted-fields" }

func (s *sortedFieldsScheme) Verify(_ http.Header, body []byte) error {
	fields, err := flatFields(body)
	if err != nil {
		// an unreadable body cannot carry a signature
		return ErrSignatureMissing
	}

	signature := fields[signatureField]
	if signature == "" || s.secret == "" {
		return ErrSignatureMissing
	}
	delete(fields, signatureField)

	if !compare(SignSortedFields(fields, s.secret), signature) {
		return ErrSignatureInvalid
	}
	return nil
}

// SignSortedFields computes base64(HMAC-SHA256(secret, values sorted by key)).
func SignSortedFields(fields map[string]string, secret string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var payload strings.Builder
	for _, k := range keys {
		payload.WriteString(fields[k])
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload.String()))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// flatFields reads a flat JSON object or a form encoded body into string
// values. Nulls and nested values are skipped.
func flatFields(body []byte) (map[string]string, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, errors.New("empty body")
	}

	if trimmed[0] != '{' {
		values, err := url.ParseQuery(string(trimmed))
		if err != nil {
			return nil, fmt.Errorf("parse form body: %w", err)
		}
		fields := make(map[string]string, len(values))
		for k := range values {
			fields[k] = values.Get(k)
		}
		return fields, nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var raw map[string]interface{}
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode json body: %w", err)
	}

	fields := make(map[string]string, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case string:
			fields[k] = val
		case json.Number:
			fields[k] = numberText(val)
		case bool:
			if val {
				fields[k] = "true"
			} else {
				fields[k] = "false"
			}
		}
	}
	return fields, nil
}

// numberText renders a JSON number the way the sender stringified it before
// signing: 340.00 signs as 340, 1.50 as 1.5.
func numberText(n json.Number) string {
	d, err := decimal.NewFromString(n.String())
	if err != nil {
		return n.String()
	}
	return d.String()
}

// NewScheme picks the scheme named by configuration.
func NewScheme(name, secret string) (SignatureScheme, error) {
	switch name {
	case "timestamp":
		return NewTimestampScheme(secret), nil
	case "sorted-fields":
		return NewSortedFieldsScheme(secret), nil
	default:
		return nil, fmt.Errorf("unknown webhook signature scheme %q", name)
	}
}
