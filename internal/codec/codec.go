package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

// ErrMalformed reports a payload that does not decode to exactly one expected field.
var ErrMalformed = errors.New("malformed credential payload")

type questionPayload struct {
	Question *string `json:"question"`
}

type secretPayload struct {
	Secret *string `json:"secret"`
}

// EncodeQuestion returns the public payload for question. Text that is not
// valid UTF-8 is rejected with ErrMalformed.
func EncodeQuestion(question string) ([]byte, error) {
	if !utf8.ValidString(question) {
		return nil, fmt.Errorf("%w: question is not valid UTF-8", ErrMalformed)
	}
	return json.Marshal(questionPayload{Question: &question})
}

// EncodeSecret returns the secret payload for answer. Text that is not valid
// UTF-8 is rejected with ErrMalformed.
func EncodeSecret(answer string) ([]byte, error) {
	if !utf8.ValidString(answer) {
		return nil, fmt.Errorf("%w: secret is not valid UTF-8", ErrMalformed)
	}
	return json.Marshal(secretPayload{Secret: &answer})
}

// DecodeQuestion extracts the question text from a public payload.
func DecodeQuestion(data []byte) (string, error) {
	var p questionPayload
	if err := decodeStrict(data, &p); err != nil {
		return "", err
	}
	if p.Question == nil {
		return "", fmt.Errorf("%w: missing question", ErrMalformed)
	}
	return *p.Question, nil
}

// DecodeSecret extracts the stored answer from a secret payload.
func DecodeSecret(data []byte) (string, error) {
	var p secretPayload
	if err := decodeStrict(data, &p); err != nil {
		return "", err
	}
	if p.Secret == nil {
		return "", fmt.Errorf("%w: missing secret", ErrMalformed)
	}
	return *p.Secret, nil
}

func decodeStrict(data []byte, v any) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return fmt.Errorf("%w: empty payload", ErrMalformed)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: trailing data", ErrMalformed)
	}
	return nil
}
