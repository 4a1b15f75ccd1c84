// Package catalogapi exposes the namespace service over Iceberg REST style
// HTTP routes.
package catalogapi

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/joshjon/kit/server"
	"github.com/labstack/echo/v4"

	"github.com/coro-sh/catalog/logkey"
	"github.com/coro-sh/catalog/namespace"
)

const (
	APIVersionPrefix     = "/v1"
	PathParamNamespace   = "namespace"
	QueryParamParent     = "parent"
	namespacesPathPrefix = "/namespaces"
)

// HTTPHandler handles namespace HTTP requests.
type HTTPHandler struct {
	svc *namespace.Service
}

// NewHTTPHandler creates a new HTTPHandler.
func NewHTTPHandler(svc *namespace.Service) *HTTPHandler {
	return &HTTPHandler{svc: svc}
}

// Register adds the HTTPHandler endpoints to the provided Echo router group.
func (h *HTTPHandler) Register(g *echo.Group) {
	namespaces := g.Group(APIVersionPrefix + namespacesPathPrefix)
	namespaces.GET("", h.ListNamespaces)
	namespaces.POST("", h.CreateNamespace)
	// namespace scoped routes without a namespace segment
	namespaces.DELETE("", h.rejectUnrouted)
	namespaces.DELETE("/", h.rejectUnrouted)

	ns := namespaces.Group(fmt.Sprintf("/:%s", PathParamNamespace))
	ns.GET("", h.LoadNamespace)
	ns.HEAD("", h.NamespaceExists)
	ns.DELETE("", h.DropNamespace)
	ns.POST("", h.UpdateNamespaceProperties)
	ns.POST("/properties", h.UpdateNamespaceProperties)
}

// ListNamespaces handles GET requests to list namespaces, optionally scoped to
// the children of the parent query parameter.
func (h *HTTPHandler) ListNamespaces(c echo.Context) error {
	ctx := c.Request().Context()

	req, err := server.BindRequest[ListNamespacesRequest](c)
	if err != nil {
		return err
	}
	if req.Parent != "" {
		c.Set(logkey.NamespaceParent, req.Parent)
	}

	ids, err := h.svc.ListNamespaces(ctx, req.Parent)
	if err != nil {
		return err
	}

	return server.SetResponse(c, http.StatusOK, newListNamespacesResponse(ids))
}

// CreateNamespace handles POST requests to create a namespace.
func (h *HTTPHandler) CreateNamespace(c echo.Context) error {
	ctx := c.Request().Context()

	req, err := server.BindRequest[CreateNamespaceRequest](c)
	if err != nil {
		return err
	}

	id, err := namespace.NewIdentity(req.Namespace...)
	if err != nil {
		return err
	}
	c.Set(logkey.Namespace, id.String())

	ns, err := h.svc.CreateNamespace(ctx, id, req.Properties)
	if err != nil {
		return err
	}

	return server.SetResponse(c, http.StatusOK, newNamespaceResponse(ns))
}

// LoadNamespace handles GET requests to read a namespace and its properties.
func (h *HTTPHandler) LoadNamespace(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := namespaceFromPath(c)
	if err != nil {
		return err
	}

	ns, err := h.svc.LoadNamespace(ctx, id)
	if err != nil {
		return err
	}

	return server.SetResponse(c, http.StatusOK, newNamespaceResponse(ns))
}

// NamespaceExists handles HEAD requests. It responds 204 if the namespace
// exists and 404 otherwise.
func (h *HTTPHandler) NamespaceExists(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := namespaceFromPath(c)
	if err != nil {
		return err
	}

	exists, err := h.svc.NamespaceExists(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return c.NoContent(http.StatusNotFound)
	}

	return c.NoContent(http.StatusNoContent)
}

// DropNamespace handles DELETE requests to drop a namespace.
func (h *HTTPHandler) DropNamespace(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := namespaceFromPath(c)
	if err != nil {
		return err
	}

	if err = h.svc.DropNamespace(ctx, id); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}

// UpdateNamespaceProperties handles POST requests to remove and set namespace
// properties.
func (h *HTTPHandler) UpdateNamespaceProperties(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := namespaceFromPath(c)
	if err != nil {
		return err
	}

	req, err := server.BindRequest[UpdateNamespacePropertiesRequest](c)
	if err != nil {
		return err
	}

	diff, err := h.svc.UpdateNamespaceProperties(ctx, id, req.Removals, req.Updates)
	if err != nil {
		return err
	}

	return server.SetResponse(c, http.StatusOK, newUpdateNamespacePropertiesResponse(diff))
}

func (h *HTTPHandler) rejectUnrouted(_ echo.Context) error {
	return namespace.ErrRoutingInvalid
}

// namespaceFromPath decodes the namespace path segment. Echo leaves the
// segment escaped when the request path needed a raw form.
func namespaceFromPath(c echo.Context) (namespace.Identity, error) {
	raw := c.Param(PathParamNamespace)
	if raw == "" {
		return namespace.Identity{}, namespace.ErrRoutingInvalid
	}

	encoded := raw
	if c.Request().URL.RawPath != "" {
		var err error
		if encoded, err = url.PathUnescape(raw); err != nil {
			return namespace.Identity{}, namespace.MalformedError("namespace path segment is not valid percent encoding")
		}
	}

	id, err := namespace.ParseIdentity(encoded)
	if err != nil {
		return namespace.Identity{}, err
	}
	c.Set(logkey.Namespace, id.String())

	return id, nil
}
