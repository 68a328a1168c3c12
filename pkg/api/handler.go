package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"geopoints/pkg/codec"
	"geopoints/pkg/dataset"
	"geopoints/pkg/geoerr"
	"geopoints/pkg/geom"
	"geopoints/pkg/store"

	"github.com/rs/zerolog/log"
)

// maxBodySize caps request bodies.
const maxBodySize = 32 << 20

// APIHandler handles REST API requests over the point files of a repository
type APIHandler struct {
	repo *store.PointsRepository
}

// NewAPIHandler creates a new APIHandler
func NewAPIHandler(repo *store.PointsRepository) *APIHandler {
	return &APIHandler{
		repo: repo,
	}
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// ClipRequest selects the points of a file inside (or outside) a polygon.
type ClipRequest struct {
	File    string      `json:"file"`
	Polygon [][]float64 `json:"polygon"`
	// Closed counts boundary points as inside. Defaults to true.
	Closed  *bool  `json:"closed,omitempty"`
	Outside bool   `json:"outside,omitempty"`
	Output  string `json:"output,omitempty"`
}

// ClipResponse reports the clip result.
type ClipResponse struct {
	Count    int                       `json:"count"`
	Output   string                    `json:"output,omitempty"`
	Features *GeoJSONFeatureCollection `json:"features"`
}

// ListFilesHandler handles GET requests listing the point files
func (h *APIHandler) ListFilesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.sendError(w, http.StatusMethodNotAllowed, "only GET method is allowed")
		return
	}

	files, err := h.repo.List()
	if err != nil {
		h.sendGeoError(w, err)
		return
	}
	if files == nil {
		files = []store.FileInfo{}
	}

	h.sendJSON(w, http.StatusOK, files)
}

// PointsHandler handles GET requests returning a point file as GeoJSON
func (h *APIHandler) PointsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.sendError(w, http.StatusMethodNotAllowed, "only GET method is allowed")
		return
	}

	q := r.URL.Query()
	name := q.Get("file")
	if name == "" {
		h.sendError(w, http.StatusBadRequest, "missing file query parameter")
		return
	}

	latLong, err := boolParam(q.Get("latlong"), false)
	if err != nil {
		h.sendError(w, http.StatusBadRequest, fmt.Sprintf("invalid latlong parameter: %v", err))
		return
	}
	north, err := boolParam(q.Get("north"), false)
	if err != nil {
		h.sendError(w, http.StatusBadRequest, fmt.Sprintf("invalid north parameter: %v", err))
		return
	}

	ds, err := h.repo.Load(name)
	if err != nil {
		h.sendGeoError(w, err)
		return
	}

	fc, err := ToGeoJSON(ds, latLong, !north)
	if err != nil {
		h.sendGeoError(w, err)
		return
	}

	h.sendJSON(w, http.StatusOK, fc)
}

// ClipHandler handles POST requests clipping a point file by a polygon
func (h *APIHandler) ClipHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.sendError(w, http.StatusMethodNotAllowed, "only POST method is allowed")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		h.sendError(w, http.StatusBadRequest, fmt.Sprintf("failed to read request body: %v", err))
		return
	}
	defer r.Body.Close()

	var req ClipRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.sendError(w, http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err))
		return
	}
	if req.File == "" {
		h.sendError(w, http.StatusBadRequest, "missing file")
		return
	}

	poly, err := geom.FromRows(req.Polygon)
	if err != nil {
		h.sendError(w, http.StatusBadRequest, fmt.Sprintf("invalid polygon: %v", err))
		return
	}

	closed := true
	if req.Closed != nil {
		closed = *req.Closed
	}

	ds, err := h.repo.Load(req.File)
	if err != nil {
		h.sendGeoError(w, err)
		return
	}

	var clipped *dataset.Dataset
	if req.Outside {
		clipped, err = ds.ClipOutside(geom.Polygon(poly), closed)
	} else {
		clipped, err = ds.Clip(geom.Polygon(poly), closed)
	}
	if err != nil {
		h.sendGeoError(w, err)
		return
	}

	if req.Output != "" {
		if err := h.repo.Save(clipped, req.Output, codec.ExportOptions{}); err != nil {
			h.sendGeoError(w, err)
			return
		}
	}

	fc, err := ToGeoJSON(clipped, false, true)
	if err != nil {
		h.sendGeoError(w, err)
		return
	}

	h.sendJSON(w, http.StatusOK, ClipResponse{Count: clipped.Len(), Output: req.Output, Features: fc})
}

func boolParam(s string, def bool) (bool, error) {
	if s == "" {
		return def, nil
	}
	return strconv.ParseBool(s)
}

// statusOf maps an error kind onto an HTTP status
func statusOf(err error) int {
	switch geoerr.KindOf(err) {
	case geoerr.FileNotFound:
		return http.StatusNotFound
	case geoerr.AccessDenied:
		return http.StatusForbidden
	case geoerr.UnsupportedExtension, geoerr.Validation:
		return http.StatusBadRequest
	case geoerr.Format:
		return http.StatusUnprocessableEntity
	case geoerr.ZoneConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (h *APIHandler) sendGeoError(w http.ResponseWriter, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg("request failed")
	}

	kind := ""
	if k := geoerr.KindOf(err); k != 0 {
		kind = k.String()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: err.Error(), Kind: kind})
}

// sendError sends an error response as JSON
func (h *APIHandler) sendError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{Error: message})
}

func (h *APIHandler) sendJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
