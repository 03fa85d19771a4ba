package directory

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrMalformedPayload is returned when the users payload does not match the
// record shape. A single bad element rejects the whole batch.
var ErrMalformedPayload = errors.New("malformed users payload")

// The wire structs use pointers so that a missing or null field can be told
// apart from an empty string. Empty strings are accepted.
type wireRecord struct {
	ID       *int         `json:"id" validate:"required"`
	Name     *string      `json:"name" validate:"required"`
	Username *string      `json:"username" validate:"required"`
	Email    *string      `json:"email" validate:"required"`
	Phone    *string      `json:"phone" validate:"required"`
	Website  *string      `json:"website" validate:"required"`
	Address  *wireAddress `json:"address" validate:"required"`
	Company  *wireCompany `json:"company" validate:"required"`
}

type wireAddress struct {
	Street  *string `json:"street" validate:"required"`
	Suite   *string `json:"suite" validate:"required"`
	City    *string `json:"city" validate:"required"`
	Zipcode *string `json:"zipcode" validate:"required"`
}

type wireCompany struct {
	Name        *string `json:"name" validate:"required"`
	CatchPhrase *string `json:"catchPhrase" validate:"required"`
	BS          *string `json:"bs" validate:"required"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// DecodeRecords parses a JSON array of user records. It fails as a whole on
// any decode or shape error; no partial list is ever returned.
func DecodeRecords(data []byte) ([]UserRecord, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("%w: expected a JSON array", ErrMalformedPayload)
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(trimmed, &elems); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	records := make([]UserRecord, 0, len(elems))
	for i, elem := range elems {
		if bytes.Equal(bytes.TrimSpace(elem), []byte("null")) {
			return nil, fmt.Errorf("%w: record %d is null", ErrMalformedPayload, i)
		}
		exact, err := recordShape.exactKeys(elem)
		if err != nil {
			return nil, fmt.Errorf("%w: record %d: %v", ErrMalformedPayload, i, err)
		}
		var w wireRecord
		if err := json.Unmarshal(exact, &w); err != nil {
			return nil, fmt.Errorf("%w: record %d: %v", ErrMalformedPayload, i, err)
		}
		if err := validate.Struct(&w); err != nil {
			return nil, fmt.Errorf("%w: record %d: %s", ErrMalformedPayload, i, describe(err))
		}
		records = append(records, w.toRecord())
	}
	return records, nil
}

// objectShape lists the exact JSON keys of a wire struct. encoding/json binds
// keys case-insensitively, so keys that only fold to a field name are removed
// before decoding and the field reads as missing.
type objectShape struct {
	keys   map[string]bool
	nested map[string]*objectShape
}

var recordShape = shapeOf(reflect.TypeOf(wireRecord{}))

func shapeOf(t reflect.Type) *objectShape {
	shape := &objectShape{keys: make(map[string]bool), nested: make(map[string]*objectShape)}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			continue
		}
		shape.keys[name] = true
		ft := f.Type
		if ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}
		if ft.Kind() == reflect.Struct {
			shape.nested[name] = shapeOf(ft)
		}
	}
	return shape
}

func (s *objectShape) folds(key string) bool {
	for name := range s.keys {
		if strings.EqualFold(name, key) {
			return true
		}
	}
	return false
}

// exactKeys re-encodes a JSON object keeping only keys that either match a
// field name exactly or match none at all.
func (s *objectShape) exactKeys(raw json.RawMessage) (json.RawMessage, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return raw, nil
	}

	for key, value := range obj {
		if !s.keys[key] {
			if s.folds(key) {
				delete(obj, key)
			}
			continue
		}
		nested, ok := s.nested[key]
		if !ok || bytes.Equal(bytes.TrimSpace(value), []byte("null")) {
			continue
		}
		cleaned, err := nested.exactKeys(value)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		obj[key] = cleaned
	}
	return json.Marshal(obj)
}

func (w *wireRecord) toRecord() UserRecord {
	return UserRecord{
		ID:       *w.ID,
		Name:     *w.Name,
		Username: *w.Username,
		Email:    *w.Email,
		Phone:    *w.Phone,
		Website:  *w.Website,
		Address: Address{
			Street:  *w.Address.Street,
			Suite:   *w.Address.Suite,
			City:    *w.Address.City,
			Zipcode: *w.Address.Zipcode,
		},
		Company: Company{
			Name:           *w.Company.Name,
			CatchPhrase:    *w.Company.CatchPhrase,
			BusinessSlogan: *w.Company.BS,
		},
	}
}

// describe turns validator errors into "missing field x, y" using the JSON
// field paths.
func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		ns := fe.Namespace()
		if idx := strings.Index(ns, "."); idx >= 0 {
			ns = ns[idx+1:]
		}
		fields = append(fields, ns)
	}
	return "missing field " + strings.Join(fields, ", ")
}
