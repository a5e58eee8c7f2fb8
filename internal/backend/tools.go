package backend

import (
	"fmt"

	"github.com/agnivade/levenshtein"

	"github.com/3DAlgoLab/vscode-ocp-cad-viewer/internal/geom"
)

// Tool names as they appear on the wire.
const (
	ToolDistance   = "DistanceMeasurement"
	ToolProperties = "PropertiesMeasurement"
)

// Response is one tool response payload destined for the viewer. Every
// response carries the backend_response/tool_response envelope keys;
// failures carry an "error" key instead of measurement data.
type Response map[string]any

// Request is an explicit measurement request. Properties uses ID1 only;
// Distance uses both handles plus the center flag.
type Request struct {
	Tool   string
	ID1    string
	ID2    string
	Center bool
}

func newResponse(tool string) Response {
	return Response{
		"type":      "backend_response",
		"subtype":   "tool_response",
		"tool_type": tool,
	}
}

func errorResponse(tool, msg string) Response {
	resp := newResponse(tool)
	resp["error"] = msg
	return resp
}

func invalidRequest(tool string, selections int) Response {
	return errorResponse(tool, fmt.Sprintf("Invalid tool request: %s with %d selections", tool, selections))
}

// HandleRequest dispatches an explicit measurement request. Wrong-arity
// and unknown-tool requests produce the invalid-request error response;
// no request path panics.
func (b *Backend) HandleRequest(req Request) Response {
	switch req.Tool {
	case ToolDistance:
		if req.ID1 == "" || req.ID2 == "" {
			return invalidRequest(req.Tool, countIDs(req))
		}
		return b.DistanceByID(req.ID1, req.ID2, req.Center)
	case ToolProperties:
		if req.ID1 == "" {
			return invalidRequest(req.Tool, countIDs(req))
		}
		return b.PropertiesByID(req.ID1)
	default:
		return invalidRequest(req.Tool, countIDs(req))
	}
}

func countIDs(req Request) int {
	n := 0
	if req.ID1 != "" {
		n++
	}
	if req.ID2 != "" {
		n++
	}
	return n
}

// PropertiesByID measures the shape registered under the given handle.
func (b *Backend) PropertiesByID(id string) Response {
	shape, ok := b.lookup(id)
	if !ok {
		return b.notFound(ToolProperties, id)
	}
	fmt.Fprintf(b.out, "backend: properties request for '%s'\n", id)

	props, err := geom.PropertiesOf(shape)
	if err != nil {
		return errorResponse(ToolProperties, err.Error())
	}
	resp := newResponse(ToolProperties)
	resp["center"] = props.Center
	resp["vertex_count"] = props.VertexCount
	resp["bb"] = props.BoundingBox
	if props.Volume != nil {
		resp["volume"] = *props.Volume
	}
	if props.Area != nil {
		resp["area"] = *props.Area
	}
	if props.Length != nil {
		resp["length"] = *props.Length
	}
	return resp
}

// DistanceByID measures the distance between two registered shapes.
// With center set the distance runs centroid to centroid.
func (b *Backend) DistanceByID(id1, id2 string, center bool) Response {
	shape1, ok := b.lookup(id1)
	if !ok {
		return b.notFound(ToolDistance, id1)
	}
	shape2, ok := b.lookup(id2)
	if !ok {
		return b.notFound(ToolDistance, id2)
	}
	fmt.Fprintf(b.out, "backend: distance request between '%s' and '%s'\n", id1, id2)

	dist, err := geom.DistanceBetween(shape1, shape2, center)
	if err != nil {
		return errorResponse(ToolDistance, err.Error())
	}
	resp := newResponse(ToolDistance)
	resp["distance"] = dist.Distance
	resp["point1"] = dist.Point1
	resp["point2"] = dist.Point2
	return resp
}

// notFound builds the unknown-handle error response, suggesting the
// closest known handle when one is within editing distance.
func (b *Backend) notFound(tool, id string) Response {
	msg := fmt.Sprintf("Shape '%s' not found", id)
	if near := b.nearestID(id); near != "" {
		msg = fmt.Sprintf("%s, did you mean '%s'?", msg, near)
	}
	return errorResponse(tool, msg)
}

// nearestID returns the registered handle closest to id by edit
// distance, or empty when nothing is within the suggestion threshold.
func (b *Backend) nearestID(id string) string {
	const maxSuggestDistance = 3

	b.mu.Lock()
	ids := b.index.IDs()
	b.mu.Unlock()

	best, bestDist := "", maxSuggestDistance+1
	for _, candidate := range ids {
		if d := levenshtein.ComputeDistance(id, candidate); d < bestDist {
			best, bestDist = candidate, d
		}
	}
	return best
}
