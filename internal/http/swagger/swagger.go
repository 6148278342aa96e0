// Package swagger serves Swagger UI for the embedded OpenAPI contract.
package swagger

import (
	"fmt"
	"html"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"

	apicontract "github.com/tuanvumaihuynh/inventory-service/api-contract"
)

const (
	swaggerURL      = "/docs"
	swaggerSpecURL  = "/docs/openapi.yml"
	swaggerSpecJSON = "/docs/openapi.json"
)

// Register mounts the UI and both renderings of doc on r.
func Register(r chi.Router, doc *openapi3.T) error {
	specJSON, err := doc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("marshal openapi spec: %w", err)
	}

	title := "API docs"
	if doc.Info != nil && doc.Info.Title != "" {
		title = doc.Info.Title
	}
	page := []byte(getTemplate(title, swaggerSpecURL))

	r.Get(swaggerURL, serveBytes("text/html; charset=utf-8", page))
	r.Get(swaggerSpecURL, serveBytes("application/yaml", apicontract.GetSpecBytes()))
	r.Get(swaggerSpecJSON, serveBytes("application/json", specJSON))

	return nil
}

func serveBytes(contentType string, body []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(http.StatusOK)
		//nolint:errcheck
		w.Write(body)
	}
}

func getTemplate(title, specPath string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>%s</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.29.3/swagger-ui.css" />
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist@5.29.3/swagger-ui-bundle.js" crossorigin></script>
<script>
  window.onload = () => {
    window.ui = SwaggerUIBundle({
      url: '%s',
      dom_id: '#swagger-ui',
      deepLinking: true,
      displayRequestDuration: true,
    });
  };
</script>
</body>
</html>
`, html.EscapeString(title), specPath)
}
