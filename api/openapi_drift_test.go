package api

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"gopkg.in/yaml.v3"
)

// openAPIDoc is the minimal structure needed from openapi.yaml.
type openAPIDoc struct {
	Paths map[string]map[string]any `yaml:"paths"`
}

func loadOpenAPIDoc(t *testing.T) openAPIDoc {
	t.Helper()
	var doc openAPIDoc
	if err := yaml.Unmarshal(openapiDoc, &doc); err != nil {
		t.Fatalf("failed to parse openapi.yaml: %v", err)
	}
	return doc
}

func isOperationKey(key string) bool {
	k := strings.ToLower(key)
	return !strings.HasPrefix(k, "x-") && k != "parameters" && k != "summary" && k != "description"
}

// TestOpenAPIDrift walks the chi router and compares the registered routes
// against the embedded api/openapi.yaml. It fails if any routes are
// undocumented or if the document lists paths the router does not serve.
func TestOpenAPIDrift(t *testing.T) {
	doc := loadOpenAPIDoc(t)

	// Collect {METHOD PATH} pairs from the document.
	docRoutes := make(map[string]bool)
	for path, methods := range doc.Paths {
		for method := range methods {
			if !isOperationKey(method) {
				continue
			}
			docRoutes[strings.ToUpper(method)+" "+path] = true
		}
	}

	// Router() only registers routes, so a zero-value API is enough.
	a := &API{}
	router := a.Router()

	chiRoutes := make(map[string]bool)
	err := chi.Walk(router, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		// Normalise trailing slashes for consistent comparison.
		route = strings.TrimRight(route, "/")
		if route == "" {
			route = "/"
		}

		// Skip utility/doc routes that aren't part of the API contract.
		if route == "/api/openapi.yaml" ||
			strings.HasPrefix(route, "/api/docs") ||
			strings.HasPrefix(route, "/api/redoc") {
			return nil
		}

		// chi uses {param} which matches OpenAPI's {param} format.
		chiRoutes[method+" "+route] = true
		return nil
	})
	if err != nil {
		t.Fatalf("chi.Walk failed: %v", err)
	}

	// Find undocumented routes.
	var undocumented []string
	for route := range chiRoutes {
		if !docRoutes[route] {
			undocumented = append(undocumented, route)
		}
	}
	sort.Strings(undocumented)

	// Find stale entries (documented but not routed).
	var stale []string
	for route := range docRoutes {
		if !chiRoutes[route] {
			stale = append(stale, route)
		}
	}
	sort.Strings(stale)

	if len(undocumented) > 0 {
		t.Errorf("routes registered in Router() but missing from openapi.yaml:\n%s",
			formatRouteList(undocumented))
	}

	if len(stale) > 0 {
		t.Errorf("routes in openapi.yaml but not registered in Router():\n%s",
			formatRouteList(stale))
	}

	if len(undocumented) == 0 && len(stale) == 0 {
		t.Logf("openapi.yaml and router are in sync (%d routes)", len(chiRoutes))
	}
}

// TestOpenAPISecurityMatchesGate checks that exactly the operations the
// session gate protects declare the session cookie requirement.
func TestOpenAPISecurityMatchesGate(t *testing.T) {
	doc := loadOpenAPIDoc(t)

	var mismatched []string
	for path, methods := range doc.Paths {
		for method, raw := range methods {
			if !isOperationKey(method) {
				continue
			}
			op, _ := raw.(map[string]any)
			security, _ := op["security"].([]any)
			documented := len(security) > 0
			if documented != requiresSession(path) {
				mismatched = append(mismatched, fmt.Sprintf("%s %s (security declared: %v)",
					strings.ToUpper(method), path, documented))
			}
		}
	}
	sort.Strings(mismatched)

	if len(mismatched) > 0 {
		t.Errorf("openapi.yaml security does not match the session gate:\n%s",
			formatRouteList(mismatched))
	}
}

func formatRouteList(routes []string) string {
	var b strings.Builder
	for _, r := range routes {
		fmt.Fprintf(&b, "  - %s\n", r)
	}
	return b.String()
}
