package catalogapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/joshjon/kit/log"
	"github.com/joshjon/kit/server"
	"github.com/joshjon/kit/testutil"
	"github.com/stretchr/testify/require"

	"github.com/coro-sh/catalog/catalogapi"
	"github.com/coro-sh/catalog/constants"
	"github.com/coro-sh/catalog/namespace"
)

const testTimeout = 5 * time.Second

type HTTPHandlerTestFixture struct {
	Server  *server.Server
	Service *namespace.Service
	t       *testing.T
}

func NewHTTPHandlerTestFixture(t *testing.T) *HTTPHandlerTestFixture {
	t.Helper()

	logger := log.NewLogger(log.WithDevelopment())
	svc := namespace.NewService(namespace.NewMemoryRepository(), namespace.WithLogger(logger))

	srv, err := server.NewServer(testutil.GetFreePort(t),
		server.WithLogger(logger),
		server.WithRequestTimeout(testTimeout),
	)
	require.NoError(t, err)
	srv.Register("", catalogapi.NewHTTPHandler(svc))

	go srv.Start()
	err = srv.WaitHealthy(10, time.Millisecond)
	require.NoError(t, err)

	t.Cleanup(func() {
		srv.Stop(context.Background())
	})

	return &HTTPHandlerTestFixture{
		Server:  srv,
		Service: svc,
		t:       t,
	}
}

func (f *HTTPHandlerTestFixture) NamespacesURL() string {
	return f.URLForPath(catalogapi.APIVersionPrefix + "/namespaces")
}

func (f *HTTPHandlerTestFixture) NamespaceURL(levels ...string) string {
	encoded := strings.Join(levels, constants.NamespaceLevelSeparator)
	return f.NamespacesURL() + "/" + url.PathEscape(encoded)
}

func (f *HTTPHandlerTestFixture) NamespacePropertiesURL(levels ...string) string {
	return f.NamespaceURL(levels...) + "/properties"
}

func (f *HTTPHandlerTestFixture) ListURL(parent ...string) string {
	if len(parent) == 0 {
		return f.NamespacesURL()
	}
	q := url.Values{catalogapi.QueryParamParent: []string{strings.Join(parent, constants.NamespaceLevelSeparator)}}
	return f.NamespacesURL() + "?" + q.Encode()
}

func (f *HTTPHandlerTestFixture) URLForPath(path string) string {
	path = "/" + strings.TrimPrefix(path, "/")
	return f.Server.Address() + path
}

func (f *HTTPHandlerTestFixture) AddNamespace(ctx context.Context, props map[string]string, levels ...string) {
	_, err := f.Service.CreateNamespace(ctx, namespace.MustIdentity(levels...), props)
	require.NoError(f.t, err)
}

// Do sends a request and returns the status code and raw body.
func (f *HTTPHandlerTestFixture) Do(method string, url string, body any) (int, []byte) {
	f.t.Helper()

	var reqBody io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reqBody = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(f.t, err)
		reqBody = bytes.NewReader(data)
	}

	ctx, cancel := context.WithTimeout(f.t.Context(), testTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	require.NoError(f.t, err)
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := http.DefaultClient.Do(req)
	require.NoError(f.t, err)
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	require.NoError(f.t, err)

	return res.StatusCode, data
}

func decodeData[T any](t *testing.T, body []byte) T {
	t.Helper()
	var res server.Response[T]
	require.NoError(t, json.Unmarshal(body, &res))
	return res.Data
}
