// Package attest consumes zkTLS attestations produced by an external
// service. It does not check signatures: the service's own verification
// result is passed in. What it does check is that the subject named inside
// the attested record is the person the user claims to be.
package attest

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

var (
	ErrMalformed    = errors.New("attest: malformed attestation")
	ErrNameMissing  = errors.New("attest: attested record has no subject name")
	ErrNameRequired = errors.New("attest: name is required")
	ErrNameMismatch = errors.New("attest: name does not match attested record")
	ErrNotVerified  = errors.New("attest: attestation signature not verified")
)

// NameFields are tried in order when looking for the subject name.
var NameFields = []string{"name", "xm", "studentName", "userName"}

// NameMismatchError carries both names for the caller's message.
type NameMismatchError struct {
	Input   string
	Subject string
}

func (e *NameMismatchError) Error() string {
	return fmt.Sprintf("%s: input %q, record %q", ErrNameMismatch, e.Input, e.Subject)
}

func (e *NameMismatchError) Is(target error) bool { return target == ErrNameMismatch }

// Attestation is the signed blob returned by the attestation service.
// Data holds a JSON object whose "data" member is the attested record,
// itself JSON-encoded as a string.
type Attestation struct {
	Data string `json:"data"`
}

// Parse decodes a raw attestation blob.
func Parse(raw []byte) (Attestation, error) {
	var att Attestation
	if err := json.Unmarshal(raw, &att); err != nil {
		return Attestation{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if att.Data == "" {
		return Attestation{}, fmt.Errorf("%w: missing data", ErrMalformed)
	}
	return att, nil
}

// Record returns the attested record.
func (a Attestation) Record() (map[string]any, error) {
	var outer struct {
		Data *string `json:"data"`
	}
	if err := json.Unmarshal([]byte(a.Data), &outer); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if outer.Data == nil {
		return nil, fmt.Errorf("%w: no embedded record", ErrMalformed)
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(*outer.Data), &rec); err != nil {
		return nil, fmt.Errorf("%w: embedded record: %v", ErrMalformed, err)
	}
	return rec, nil
}

// SubjectName returns the first non-blank name field of the record.
func SubjectName(att Attestation) (string, error) {
	rec, err := att.Record()
	if err != nil {
		return "", err
	}
	for _, f := range NameFields {
		if v, ok := rec[f].(string); ok && strings.TrimSpace(v) != "" {
			return v, nil
		}
	}
	return "", ErrNameMissing
}

// Result is a successful check.
type Result struct {
	Subject  string `json:"subject"`
	Verified bool   `json:"verified"`
}

// Check accepts the attestation only if the subject name matches name and
// the service reported the attestation as verified. A name mismatch is
// reported even when verified is true.
func Check(att Attestation, verified bool, name string) (Result, error) {
	if strings.TrimSpace(name) == "" {
		return Result{}, ErrNameRequired
	}
	subject, err := SubjectName(att)
	if err != nil {
		return Result{}, err
	}
	if !SameName(name, subject) {
		return Result{}, &NameMismatchError{Input: name, Subject: subject}
	}
	if !verified {
		return Result{}, ErrNotVerified
	}
	return Result{Subject: subject, Verified: true}, nil
}

// SameName compares names ignoring surrounding space, case and Unicode
// composition.
func SameName(a, b string) bool {
	a = norm.NFC.String(strings.TrimSpace(a))
	b = norm.NFC.String(strings.TrimSpace(b))
	return strings.EqualFold(a, b)
}

// CredentialPayload is the string stored on the ledger for a credential
// that passed Check.
func CredentialPayload(subject string, now time.Time) (string, error) {
	b, err := json.Marshal(struct {
		Name      string `json:"name"`
		Verified  bool   `json:"verified"`
		Timestamp int64  `json:"timestamp"`
	}{subject, true, now.UnixMilli()})
	if err != nil {
		return "", err
	}
	return string(b), nil
}
