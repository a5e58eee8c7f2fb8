package server

import (
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
)

// newEngine assembles the gin engine with all routes registered.
func newEngine(opts Opts) (*gin.Engine, error) {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	tmpl, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("server: parse templates: %w", err)
	}
	engine.SetHTMLTemplate(tmpl)

	engine.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/viewer")
	})
	engine.GET("/viewer", handleViewer(opts))
	engine.GET("/health", handleHealth(opts))
	engine.GET("/ws", handleWS(opts))

	api := engine.Group("/api")
	api.GET("/events", handleEvents(opts))
	api.GET("/shapes", handleShapes(opts))
	api.POST("/measure/properties", handleProperties(opts))
	api.POST("/measure/distance", handleDistance(opts))
	api.GET("/loads", handleLoads(opts))
	api.GET("/screenshots", handleScreenshots(opts))

	return engine, nil
}

// handleViewer renders the viewer shell with the merged config baked
// in. The page connects back over the websocket endpoint and claims
// the browser role.
func handleViewer(opts Opts) gin.HandlerFunc {
	return func(c *gin.Context) {
		cfg := opts.Config()
		cfg["_splash"] = opts.Session.SplashShown()
		cfgJSON, err := json.Marshal(cfg)
		if err != nil {
			c.String(http.StatusInternalServerError, "marshal config: %v", err)
			return
		}
		c.HTML(http.StatusOK, "viewer.html", gin.H{
			"theme":     cfg["theme"],
			"treeWidth": cfg["tree_width"],
			"config":    template.JS(cfgJSON),
		})
	}
}

// handleHealth reports liveness plus the shape and viewer counts.
func handleHealth(opts Opts) gin.HandlerFunc {
	return func(c *gin.Context) {
		viewers := 0
		if opts.Session.HasBrowser() {
			viewers = 1
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"shapes":  opts.Backend.ShapeCount(),
			"viewers": viewers,
		})
	}
}
