package server

import (
	"net/http"
	"strconv"

	"github.com/3DAlgoLab/vscode-ocp-cad-viewer/internal/store"
	"github.com/gin-gonic/gin"
)

// handleShapes lists all indexed shape handles in traversal order.
func handleShapes(opts Opts) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"shapes": opts.Backend.AvailableShapes()})
	}
}

// handleProperties measures a single shape by handle. Unknown handles
// come back as a structured error result, not an HTTP failure.
func handleProperties(opts Opts) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			ShapeID string `json:"shape_id"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, opts.Backend.PropertiesByID(req.ShapeID))
	}
}

// handleDistance measures between two shapes. The center flag switches
// from minimum distance to center-to-center.
func handleDistance(opts Opts) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			ShapeID1 string `json:"shape_id1"`
			ShapeID2 string `json:"shape_id2"`
			Center   bool   `json:"center"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, opts.Backend.DistanceByID(req.ShapeID1, req.ShapeID2, req.Center))
	}
}

// handleLoads lists recent model loads from the history store.
func handleLoads(opts Opts) gin.HandlerFunc {
	return func(c *gin.Context) {
		if opts.Store == nil {
			c.JSON(http.StatusOK, gin.H{"loads": []store.ModelLoad{}})
			return
		}
		rows, err := opts.Store.RecentLoads(parseLimit(c))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"loads": rows})
	}
}

// handleScreenshots lists recent screenshots from the history store.
func handleScreenshots(opts Opts) gin.HandlerFunc {
	return func(c *gin.Context) {
		if opts.Store == nil {
			c.JSON(http.StatusOK, gin.H{"screenshots": []store.Screenshot{}})
			return
		}
		rows, err := opts.Store.RecentScreenshots(parseLimit(c))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"screenshots": rows})
	}
}

// parseLimit reads the optional ?n= query parameter.
func parseLimit(c *gin.Context) int {
	n, err := strconv.Atoi(c.Query("n"))
	if err != nil {
		return 0
	}
	return n
}
