package entitlement

import (
	"bytes"
	"encoding/json"
)

// =============================================================================
// FIELD DECODER - Key-presence aware JSON object decoding
// =============================================================================
// encoding/json cannot tell a missing key from a zero value. The portal's
// documents omit keys in practice, so every object is decoded key by key and
// the first problem is remembered instead of failing the whole document.
// The normalizer turns a remembered problem into a MalformedEntitlementError
// once it knows which account, role and license it belongs to.
// =============================================================================

// problem describes the first field of an object that could not be decoded.
type problem struct {
	Field  string
	Reason string
	Err    error
}

type objectDecoder struct {
	fields map[string]json.RawMessage
	err    *problem
}

func newObjectDecoder(data []byte) *objectDecoder {
	d := &objectDecoder{}
	if isNull(data) {
		d.err = &problem{Reason: "expected an object, got null"}
		return d
	}
	if err := json.Unmarshal(data, &d.fields); err != nil {
		d.err = &problem{Reason: "expected an object", Err: err}
	}
	return d
}

func (d *objectDecoder) has(key string) bool {
	_, ok := d.fields[key]
	return ok
}

// required decodes key into dst. The key must be present and not null.
func (d *objectDecoder) required(key string, dst any) {
	if d.err != nil {
		return
	}
	raw, ok := d.fields[key]
	if !ok {
		d.err = &problem{Field: key, Reason: "missing"}
		return
	}
	if isNull(raw) {
		d.err = &problem{Field: key, Reason: "null"}
		return
	}
	d.decode(key, raw, dst)
}

// nullable decodes key into dst. The key must be present; null leaves dst untouched.
func (d *objectDecoder) nullable(key string, dst any) {
	if d.err != nil {
		return
	}
	raw, ok := d.fields[key]
	if !ok {
		d.err = &problem{Field: key, Reason: "missing"}
		return
	}
	if isNull(raw) {
		return
	}
	d.decode(key, raw, dst)
}

// optional decodes key into dst when present.
func (d *objectDecoder) optional(key string, dst any) {
	if d.err != nil {
		return
	}
	raw, ok := d.fields[key]
	if !ok || isNull(raw) {
		return
	}
	d.decode(key, raw, dst)
}

func (d *objectDecoder) decode(key string, raw json.RawMessage, dst any) {
	if err := json.Unmarshal(raw, dst); err != nil {
		d.err = &problem{Field: key, Reason: "wrong type", Err: err}
	}
}

func isNull(raw []byte) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
