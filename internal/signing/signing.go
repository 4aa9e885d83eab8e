// Package signing implements the gateway's request authentication scheme:
// a byte-ordered canonical rendering of the request parameters followed by a
// digest of that string with the merchant secret appended.
package signing

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"sort"
	"strings"
)

// Header names attached to every gateway request.
const (
	HeaderAppCode       = "X-Auth-AppCode"
	HeaderSignature     = "X-Auth-Signature"
	HeaderSignatureType = "X-Auth-SignatureType"
	HeaderContentType   = "Content-Type"

	FormContentType = "application/x-www-form-urlencoded"
)

var (
	// ErrEmptySecret is returned when no shared secret is available for signing.
	ErrEmptySecret = errors.New("signing: shared secret is empty")
	// ErrEmptyParams is returned when asked to sign an empty parameter set.
	ErrEmptyParams = errors.New("signing: parameter set is empty")
	// ErrEmptyAppCode is returned when the app code header would be blank.
	ErrEmptyAppCode = errors.New("signing: app code is empty")
	// ErrUnknownAlgorithm is returned for digest names other than MD5 and SHA256.
	ErrUnknownAlgorithm = errors.New("signing: unknown signature algorithm")
)

// Algorithm names a supported digest.
type Algorithm string

const (
	MD5    Algorithm = "MD5"
	SHA256 Algorithm = "SHA256"
)

// ParseAlgorithm resolves a digest name case-insensitively. An empty name
// resolves to fallback.
func ParseAlgorithm(name string, fallback Algorithm) (Algorithm, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "":
		if fallback == "" {
			return SHA256, nil
		}
		return ParseAlgorithm(string(fallback), SHA256)
	case "MD5":
		return MD5, nil
	case "SHA256", "SHA-256":
		return SHA256, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAlgorithm, name)
	}
}

func (a Algorithm) newHash() (hash.Hash, error) {
	switch a {
	case MD5:
		return md5.New(), nil
	case SHA256:
		return sha256.New(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, string(a))
	}
}

// Params is a flat gateway parameter set with values already rendered as strings.
type Params map[string]string

// Keys returns the parameter names in ascending byte order.
func (p Params) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Canonicalize renders params as key=value pairs sorted by key and joined by
// '&'. Values are written verbatim; escaping belongs to the transport encoding.
func Canonicalize(params Params) string {
	if len(params) == 0 {
		return ""
	}
	var b strings.Builder
	for i, k := range params.Keys() {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(params[k])
	}
	return b.String()
}

// Sign returns the lowercase hex digest of canonical immediately followed by secret.
func Sign(canonical, secret string, algo Algorithm) (string, error) {
	if secret == "" {
		return "", ErrEmptySecret
	}
	h, err := algo.newHash()
	if err != nil {
		return "", err
	}
	h.Write([]byte(canonical))
	h.Write([]byte(secret))
	return hex.EncodeToString(h.Sum(nil)), nil
}

// AuthHeaders is the header bundle authenticating one gateway request.
type AuthHeaders struct {
	AppCode       string `json:"X-Auth-AppCode"`
	Signature     string `json:"X-Auth-Signature"`
	SignatureType string `json:"X-Auth-SignatureType"`
	ContentType   string `json:"Content-Type"`
}

// Map returns the headers keyed by their wire names.
func (h AuthHeaders) Map() map[string]string {
	return map[string]string{
		HeaderAppCode:       h.AppCode,
		HeaderSignature:     h.Signature,
		HeaderSignatureType: h.SignatureType,
		HeaderContentType:   h.ContentType,
	}
}

// Credentials identify the merchant and select the digest for one call.
type Credentials struct {
	AppCode   string
	Secret    string
	Algorithm Algorithm
}

// Result is the outcome of signing a parameter set.
type Result struct {
	Canonical string
	Signature string
	Headers   AuthHeaders
}

// Generate signs params with creds and assembles the auth headers.
func Generate(params Params, creds Credentials) (Result, error) {
	if strings.TrimSpace(creds.AppCode) == "" {
		return Result{}, ErrEmptyAppCode
	}
	if len(params) == 0 {
		return Result{}, ErrEmptyParams
	}
	algo, err := ParseAlgorithm(string(creds.Algorithm), SHA256)
	if err != nil {
		return Result{}, err
	}
	canonical := Canonicalize(params)
	sig, err := Sign(canonical, creds.Secret, algo)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Canonical: canonical,
		Signature: sig,
		Headers: AuthHeaders{
			AppCode:       creds.AppCode,
			Signature:     sig,
			SignatureType: string(algo),
			ContentType:   FormContentType,
		},
	}, nil
}
