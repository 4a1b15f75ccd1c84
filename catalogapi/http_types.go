package catalogapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cohesivestack/valgo"
	"github.com/joshjon/kit/valgoutil"

	"github.com/coro-sh/catalog/namespace"
)

type ListNamespacesRequest struct {
	Parent string `query:"parent" json:"-"`
}

func (r ListNamespacesRequest) Validate() error {
	return nil
}

type CreateNamespaceRequest struct {
	Namespace  []string          `json:"namespace"`
	Properties map[string]string `json:"properties"`
}

func (r CreateNamespaceRequest) Validate() error {
	v := valgo.Is(valgoutil.NonEmptySliceValidator(r.Namespace, "namespace"))
	for i, level := range r.Namespace {
		v.Is(levelValidator(level, fmt.Sprintf("namespace[%d]", i)))
	}
	return v.ToError()
}

type UpdateNamespacePropertiesRequest struct {
	Removals []string          `json:"removals"`
	Updates  OrderedProperties `json:"updates"`
}

// Validate accepts any removals and updates. Property keys are opaque, so an
// empty key stored at create can be removed or overwritten later.
func (r UpdateNamespacePropertiesRequest) Validate() error {
	return nil
}

type NamespaceResponse struct {
	Namespace  []string          `json:"namespace"`
	Properties map[string]string `json:"properties"`
}

func newNamespaceResponse(ns *namespace.Namespace) NamespaceResponse {
	props := ns.Properties
	if props == nil {
		props = map[string]string{}
	}
	return NamespaceResponse{
		Namespace:  ns.Identity.Levels(),
		Properties: props,
	}
}

type ListNamespacesResponse struct {
	Namespaces [][]string `json:"namespaces"`
}

func newListNamespacesResponse(ids []namespace.Identity) ListNamespacesResponse {
	namespaces := make([][]string, len(ids))
	for i, id := range ids {
		namespaces[i] = id.Levels()
	}
	return ListNamespacesResponse{Namespaces: namespaces}
}

type UpdateNamespacePropertiesResponse struct {
	Removed []string `json:"removed"`
	Updated []string `json:"updated"`
	Missing []string `json:"missing"`
}

func newUpdateNamespacePropertiesResponse(diff namespace.PropertiesDiff) UpdateNamespacePropertiesResponse {
	return UpdateNamespacePropertiesResponse{
		Removed: nonNil(diff.Removed),
		Updated: nonNil(diff.Updated),
		Missing: nonNil(diff.Missing),
	}
}

// OrderedProperties is a JSON object of string properties that keeps the key
// order of the encoded document.
type OrderedProperties []namespace.Property

func (p *OrderedProperties) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*p = nil
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errors.New("properties must be a JSON object")
	}

	props := OrderedProperties{}
	for dec.More() {
		tok, err = dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return errors.New("property key must be a string")
		}

		var value string
		if err = dec.Decode(&value); err != nil {
			return fmt.Errorf("property %q: %w", key, err)
		}
		props = append(props, namespace.Property{Key: key, Value: value})
	}

	if _, err = dec.Token(); err != nil {
		return err
	}

	*p = props
	return nil
}

func (p OrderedProperties) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, prop := range p {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(prop.Key)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(prop.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func levelValidator(level string, nameAndTitle ...string) valgo.Validator {
	return valgo.String(level, nameAndTitle...).Not().Empty()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
