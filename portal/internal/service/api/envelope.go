package api

import (
	"bytes"
	"encoding/json"

	"github.com/Astemirdum/library-portal/portal/internal/errs"
	"github.com/pkg/errors"
)

// Envelope is a raw API answer that is either the payload itself or an object wrapping it.
type Envelope json.RawMessage

func (e *Envelope) UnmarshalJSON(b []byte) error {
	*e = append((*e)[:0], b...)
	return nil
}

var (
	listKeys   = []string{"data", "items", "books", "users", "records"}
	entityKeys = []string{"data", "book", "user", "record"}
)

// List normalizes a bare array or an object holding the array under a well-known key.
// An object without such a key is an empty list.
func List[T any](e Envelope) ([]T, error) {
	raw := bytes.TrimSpace(e)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return []T{}, nil
	}
	if raw[0] != '[' {
		fields, err := object(raw)
		if err != nil {
			return nil, err
		}
		raw = nil
		for _, key := range listKeys {
			if v, ok := fields[key]; ok && len(v) > 0 && v[0] == '[' {
				raw = v
				break
			}
		}
		if raw == nil {
			return []T{}, nil
		}
	}
	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, errors.Wrap(errs.ErrDecode, err.Error())
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

// Entity normalizes a bare object or an object holding it under a well-known key.
func Entity[T any](e Envelope) (*T, error) {
	raw := bytes.TrimSpace(e)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	fields, err := object(raw)
	if err != nil {
		return nil, err
	}
	for _, key := range entityKeys {
		if v, ok := fields[key]; ok && len(v) > 0 && v[0] == '{' {
			raw = v
			break
		}
	}
	v := new(T)
	if err := json.Unmarshal(raw, v); err != nil {
		return nil, errors.Wrap(errs.ErrDecode, err.Error())
	}
	return v, nil
}

func object(raw []byte) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, errors.Wrap(errs.ErrDecode, err.Error())
	}
	return fields, nil
}
