package codec

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrCorrupt marks stored text that cannot be decoded into an envelope.
var ErrCorrupt = errors.New("codec: corrupt entry")

type storedEnvelope struct {
	Ctx       json.RawMessage `json:"ctx"`
	CreatedAt time.Time       `json:"createdAt"`
	Lifetime  *time.Time      `json:"lifetime"`
	Encoder   Encoding        `json:"encoder"`
}

type savedCtx struct {
	Save string `json:"save"`
}

// Encode serializes env into its stored text form. When env.Encoder.Use is set,
// ctx is replaced by {"save": <armored JSON>}.
func (r *Registry) Encode(env *Envelope) (string, error) {
	enc := env.Encoder.withDefaults()
	projected, err := r.Project(env.Ctx)
	if err != nil {
		return "", err
	}
	ctx, err := json.Marshal(projected)
	if err != nil {
		return "", fmt.Errorf("codec: marshal ctx: %w", err)
	}
	if enc.Use {
		saved, err := armor(ctx, enc)
		if err != nil {
			return "", err
		}
		if ctx, err = json.Marshal(savedCtx{Save: saved}); err != nil {
			return "", err
		}
	}
	out, err := json.Marshal(storedEnvelope{
		Ctx:       ctx,
		CreatedAt: env.CreatedAt,
		Lifetime:  env.Lifetime,
		Encoder:   enc,
	})
	if err != nil {
		return "", fmt.Errorf("codec: marshal envelope: %w", err)
	}
	return string(out), nil
}

// Decode parses stored text. Empty or null text decodes to (nil, nil).
func (r *Registry) Decode(raw string) (*Envelope, error) {
	if raw == "" || raw == "null" {
		return nil, nil
	}
	var se storedEnvelope
	if err := json.Unmarshal([]byte(raw), &se); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	body := []byte(se.Ctx)
	if se.Encoder.Use {
		var sc savedCtx
		if err := json.Unmarshal(se.Ctx, &sc); err != nil {
			return nil, fmt.Errorf("%w: armored ctx: %v", ErrCorrupt, err)
		}
		var err error
		if body, err = unarmor(sc.Save, se.Encoder.withDefaults()); err != nil {
			return nil, err
		}
	}
	var tree any
	if len(body) > 0 {
		if err := json.Unmarshal(body, &tree); err != nil {
			return nil, fmt.Errorf("%w: ctx: %v", ErrCorrupt, err)
		}
	}
	ctx, err := r.Restore(tree)
	if err != nil {
		return nil, err
	}
	return &Envelope{
		Ctx:       ctx,
		CreatedAt: se.CreatedAt,
		Lifetime:  se.Lifetime,
		Encoder:   se.Encoder,
	}, nil
}

// Encode uses the Default registry.
func Encode(env *Envelope) (string, error) { return Default.Encode(env) }

// Decode uses the Default registry.
func Decode(raw string) (*Envelope, error) { return Default.Decode(raw) }
