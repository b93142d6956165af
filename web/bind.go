package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
)

// BindJSON reads the whole request body and decodes it as JSON into v.
// By default the decoder rejects fields that do not map to exported struct
// fields; pass true to allow them. Exactly one JSON value must be present
// in the body; trailing data is an error.
func BindJSON(ctx context.Context, r *Request, v any, allowUnknownFields ...bool) error {
	body, err := r.Body(ctx)
	if err != nil {
		return err
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	if len(allowUnknownFields) == 0 || !allowUnknownFields[0] {
		dec.DisallowUnknownFields()
	}

	if err := dec.Decode(v); err != nil {
		return err
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("web: unexpected trailing data after JSON value")
	}

	return nil
}
