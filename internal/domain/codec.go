package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// DecodeStrict unmarshals exactly one JSON value from b into v, rejecting
// unknown fields and trailing data. Every failure matches ErrMalformedPacket.
func DecodeStrict(b []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return malformed(err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: trailing data", ErrMalformedPacket)
	}
	return nil
}

func malformed(err error) error {
	if errors.Is(err, ErrMalformedPacket) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrMalformedPacket, err)
}
