package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// graphiqlPage is the GraphiQL editor, loading its assets from the
// unpkg CDN and posting queries back to the page's own URL.
const graphiqlPage = `<!DOCTYPE html>
<html lang="en">
  <head>
    <title>Beamline Sessions API</title>
    <style>
      body { height: 100%; margin: 0; width: 100%; overflow: hidden; }
      #graphiql { height: 100vh; }
    </style>
    <script crossorigin src="https://unpkg.com/react@18/umd/react.production.min.js"></script>
    <script crossorigin src="https://unpkg.com/react-dom@18/umd/react-dom.production.min.js"></script>
    <script crossorigin src="https://unpkg.com/graphiql@3/graphiql.min.js"></script>
    <link rel="stylesheet" href="https://unpkg.com/graphiql@3/graphiql.min.css" />
  </head>
  <body>
    <div id="graphiql">Loading...</div>
    <script>
      const root = ReactDOM.createRoot(document.getElementById('graphiql'));
      const fetcher = GraphiQL.createFetcher({ url: window.location.href });
      root.render(React.createElement(GraphiQL, { fetcher: fetcher }));
    </script>
  </body>
</html>
`

// ServeGraphiQL serves the GraphiQL page on GET when enabled. With the
// page disabled the endpoint stays POST-only.
func (h *Handler) ServeGraphiQL() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !h.graphiql {
			c.Header("Allow", http.MethodPost)
			c.JSON(http.StatusMethodNotAllowed, gin.H{
				"errors": []gin.H{{"message": "GET is not supported, POST your query"}},
			})
			return
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(graphiqlPage))
	}
}
