package catalogapi_test

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coro-sh/catalog/catalogapi"
	"github.com/coro-sh/catalog/namespace"
)

func TestHTTPHandler_CreateNamespace(t *testing.T) {
	fixture := NewHTTPHandlerTestFixture(t)

	req := catalogapi.CreateNamespaceRequest{
		Namespace:  []string{"create_foo1", "a"},
		Properties: map[string]string{"owner": "alice"},
	}

	status, body := fixture.Do(http.MethodPost, fixture.NamespacesURL(), req)
	require.Equal(t, http.StatusOK, status, string(body))
	got := decodeData[catalogapi.NamespaceResponse](t, body)
	assert.Equal(t, req.Namespace, got.Namespace)
	assert.Equal(t, req.Properties, got.Properties)

	// already exists
	status, _ = fixture.Do(http.MethodPost, fixture.NamespacesURL(), req)
	assert.Equal(t, http.StatusConflict, status)

	// without properties
	status, body = fixture.Do(http.MethodPost, fixture.NamespacesURL(), catalogapi.CreateNamespaceRequest{
		Namespace: []string{"create_foo2"},
	})
	require.Equal(t, http.StatusOK, status, string(body))
	got = decodeData[catalogapi.NamespaceResponse](t, body)
	assert.NotNil(t, got.Properties)
	assert.Empty(t, got.Properties)
}

func TestHTTPHandler_CreateNamespaceMalformed(t *testing.T) {
	fixture := NewHTTPHandlerTestFixture(t)

	tests := []struct {
		name string
		body any
	}{
		{name: "no levels", body: catalogapi.CreateNamespaceRequest{Namespace: []string{}}},
		{name: "missing namespace", body: map[string]any{"properties": map[string]string{"a": "b"}}},
		{name: "empty level", body: catalogapi.CreateNamespaceRequest{Namespace: []string{"a", ""}}},
		{name: "separator in level", body: catalogapi.CreateNamespaceRequest{Namespace: []string{"a\x1fb"}}},
		{name: "invalid json", body: "{"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _ := fixture.Do(http.MethodPost, fixture.NamespacesURL(), tt.body)
			assert.Equal(t, http.StatusBadRequest, status)
		})
	}

	status, body := fixture.Do(http.MethodGet, fixture.ListURL(), nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, decodeData[catalogapi.ListNamespacesResponse](t, body).Namespaces)
}

func TestHTTPHandler_LoadNamespace(t *testing.T) {
	ctx, cancel := context.WithTimeout(t.Context(), testTimeout)
	defer cancel()
	fixture := NewHTTPHandlerTestFixture(t)

	props := map[string]string{"a": "b"}
	fixture.AddNamespace(ctx, props, "load_foo1", "x.y")

	status, body := fixture.Do(http.MethodGet, fixture.NamespaceURL("load_foo1", "x.y"), nil)
	require.Equal(t, http.StatusOK, status, string(body))
	got := decodeData[catalogapi.NamespaceResponse](t, body)
	assert.Equal(t, []string{"load_foo1", "x.y"}, got.Namespace)
	assert.Equal(t, props, got.Properties)

	status, _ = fixture.Do(http.MethodGet, fixture.NamespaceURL("load_foo2"), nil)
	assert.Equal(t, http.StatusNotFound, status)

	// empty trailing level
	status, _ = fixture.Do(http.MethodGet, fixture.NamespaceURL("load_foo1", ""), nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestHTTPHandler_NamespaceExists(t *testing.T) {
	ctx, cancel := context.WithTimeout(t.Context(), testTimeout)
	defer cancel()
	fixture := NewHTTPHandlerTestFixture(t)

	fixture.AddNamespace(ctx, nil, "exists_foo1")

	status, _ := fixture.Do(http.MethodHead, fixture.NamespaceURL("exists_foo1"), nil)
	assert.Equal(t, http.StatusNoContent, status)

	status, _ = fixture.Do(http.MethodHead, fixture.NamespaceURL("exists_foo2"), nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestHTTPHandler_DropNamespace(t *testing.T) {
	ctx, cancel := context.WithTimeout(t.Context(), testTimeout)
	defer cancel()
	fixture := NewHTTPHandlerTestFixture(t)

	fixture.AddNamespace(ctx, map[string]string{"a": "b"}, "drop_foo1")
	fixture.AddNamespace(ctx, nil, "drop_foo1", "child")

	status, _ := fixture.Do(http.MethodDelete, fixture.NamespaceURL("drop_foo1"), nil)
	assert.Equal(t, http.StatusNoContent, status)

	status, _ = fixture.Do(http.MethodGet, fixture.NamespaceURL("drop_foo1"), nil)
	assert.Equal(t, http.StatusNotFound, status)

	// children are left untouched
	status, _ = fixture.Do(http.MethodGet, fixture.NamespaceURL("drop_foo1", "child"), nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = fixture.Do(http.MethodDelete, fixture.NamespaceURL("drop_foo1"), nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestHTTPHandler_DropNamespaceUnrouted(t *testing.T) {
	fixture := NewHTTPHandlerTestFixture(t)

	for _, url := range []string{fixture.NamespacesURL(), fixture.NamespacesURL() + "/"} {
		status, _ := fixture.Do(http.MethodDelete, url, nil)
		assert.Equal(t, http.StatusInternalServerError, status, url)
	}
}

func TestHTTPHandler_ListNamespaces(t *testing.T) {
	ctx, cancel := context.WithTimeout(t.Context(), testTimeout)
	defer cancel()
	fixture := NewHTTPHandlerTestFixture(t)

	for _, levels := range [][]string{
		{"list_foo2"},
		{"list_foo3", "b"},
		{"list_foo1"},
		{"list_foo3"},
		{"list_foo3", "a"},
		{"list_foo3", "a", "deep"},
	} {
		fixture.AddNamespace(ctx, nil, levels...)
	}

	status, body := fixture.Do(http.MethodGet, fixture.ListURL(), nil)
	require.Equal(t, http.StatusOK, status, string(body))
	assert.Equal(t, [][]string{{"list_foo1"}, {"list_foo2"}, {"list_foo3"}},
		decodeData[catalogapi.ListNamespacesResponse](t, body).Namespaces)

	status, body = fixture.Do(http.MethodGet, fixture.ListURL("list_foo3"), nil)
	require.Equal(t, http.StatusOK, status, string(body))
	assert.Equal(t, [][]string{{"list_foo3", "a"}, {"list_foo3", "b"}},
		decodeData[catalogapi.ListNamespacesResponse](t, body).Namespaces)

	status, body = fixture.Do(http.MethodGet, fixture.ListURL("list_foo1"), nil)
	require.Equal(t, http.StatusOK, status, string(body))
	got := decodeData[catalogapi.ListNamespacesResponse](t, body).Namespaces
	assert.NotNil(t, got)
	assert.Empty(t, got)

	status, _ = fixture.Do(http.MethodGet, fixture.ListURL("list_fooxx"), nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = fixture.Do(http.MethodGet, fixture.ListURL("list_foo3", ""), nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestHTTPHandler_UpdateNamespaceProperties(t *testing.T) {
	ctx, cancel := context.WithTimeout(t.Context(), testTimeout)
	defer cancel()
	fixture := NewHTTPHandlerTestFixture(t)

	fixture.AddNamespace(ctx, map[string]string{"a": "b", "x": "y"}, "update_foo1")

	// updates keep the key order of the request body
	body := `{"removals": ["a", "x", "missing"], "updates": {"z": "1", "a": "new", "m": "2"}}`
	status, resBody := fixture.Do(http.MethodPost, fixture.NamespacePropertiesURL("update_foo1"), body)
	require.Equal(t, http.StatusOK, status, string(resBody))
	got := decodeData[catalogapi.UpdateNamespacePropertiesResponse](t, resBody)
	assert.Equal(t, []string{"x"}, got.Removed)
	assert.Equal(t, []string{"missing"}, got.Missing)
	assert.Equal(t, []string{"z", "a", "m"}, got.Updated)

	status, resBody = fixture.Do(http.MethodGet, fixture.NamespaceURL("update_foo1"), nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, map[string]string{"a": "new", "z": "1", "m": "2"},
		decodeData[catalogapi.NamespaceResponse](t, resBody).Properties)

	// the namespace route accepts the same payload
	status, resBody = fixture.Do(http.MethodPost, fixture.NamespaceURL("update_foo1"), catalogapi.UpdateNamespacePropertiesRequest{
		Removals: []string{"m"},
	})
	require.Equal(t, http.StatusOK, status, string(resBody))
	got = decodeData[catalogapi.UpdateNamespacePropertiesResponse](t, resBody)
	assert.Equal(t, []string{"m"}, got.Removed)
	assert.Equal(t, []string{}, got.Updated)
	assert.Equal(t, []string{}, got.Missing)

	status, _ = fixture.Do(http.MethodPost, fixture.NamespacePropertiesURL("update_foo2"), catalogapi.UpdateNamespacePropertiesRequest{
		Removals: []string{"a"},
	})
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = fixture.Do(http.MethodPost, fixture.NamespacePropertiesURL("update_foo1"), `{"updates": {"a": 1}}`)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestHTTPHandler_UpdateNamespacePropertiesEmptyKey(t *testing.T) {
	fixture := NewHTTPHandlerTestFixture(t)

	status, resBody := fixture.Do(http.MethodPost, fixture.NamespacesURL(), `{"namespace": ["empty_key_foo1"], "properties": {"": "x", "a": "b"}}`)
	require.Equal(t, http.StatusOK, status, string(resBody))
	assert.Equal(t, map[string]string{"": "x", "a": "b"}, decodeData[catalogapi.NamespaceResponse](t, resBody).Properties)

	status, resBody = fixture.Do(http.MethodPost, fixture.NamespacePropertiesURL("empty_key_foo1"), `{"updates": {"": "y"}}`)
	require.Equal(t, http.StatusOK, status, string(resBody))
	assert.Equal(t, []string{""}, decodeData[catalogapi.UpdateNamespacePropertiesResponse](t, resBody).Updated)

	status, resBody = fixture.Do(http.MethodPost, fixture.NamespaceURL("empty_key_foo1"), `{"removals": ["", ""]}`)
	require.Equal(t, http.StatusOK, status, string(resBody))
	got := decodeData[catalogapi.UpdateNamespacePropertiesResponse](t, resBody)
	assert.Equal(t, []string{""}, got.Removed)
	assert.Equal(t, []string{}, got.Missing)

	status, resBody = fixture.Do(http.MethodPost, fixture.NamespacePropertiesURL("empty_key_foo1"), `{"removals": [""]}`)
	require.Equal(t, http.StatusOK, status, string(resBody))
	assert.Equal(t, []string{""}, decodeData[catalogapi.UpdateNamespacePropertiesResponse](t, resBody).Missing)

	status, resBody = fixture.Do(http.MethodGet, fixture.NamespaceURL("empty_key_foo1"), nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, map[string]string{"a": "b"}, decodeData[catalogapi.NamespaceResponse](t, resBody).Properties)
}

func TestHTTPHandler_LevelLengthLimit(t *testing.T) {
	fixture := NewHTTPHandlerTestFixture(t)
	long := strings.Repeat("l", namespace.MaxLevelLength+1)

	status, _ := fixture.Do(http.MethodPost, fixture.NamespacesURL(), catalogapi.CreateNamespaceRequest{Namespace: []string{"limit_foo1", long}})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = fixture.Do(http.MethodGet, fixture.NamespaceURL("limit_foo1", long), nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = fixture.Do(http.MethodGet, fixture.ListURL(long), nil)
	assert.Equal(t, http.StatusBadRequest, status)

	maxLevel := strings.Repeat("m", namespace.MaxLevelLength)
	status, resBody := fixture.Do(http.MethodPost, fixture.NamespacesURL(), catalogapi.CreateNamespaceRequest{Namespace: []string{maxLevel}})
	require.Equal(t, http.StatusOK, status, string(resBody))

	status, _ = fixture.Do(http.MethodGet, fixture.NamespaceURL(maxLevel), nil)
	assert.Equal(t, http.StatusOK, status)
}
