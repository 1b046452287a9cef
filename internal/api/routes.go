//
//
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/radio-control/rangebot/internal/auth"
	"github.com/radio-control/rangebot/internal/geo"
	"github.com/radio-control/rangebot/internal/radiolink"
	"github.com/radio-control/rangebot/internal/responder"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 64 << 10

// NodeView is a directory entry as served by the API.
type NodeView struct {
	radiolink.NodeInfo
	Self bool `json:"self"`
	// RangeMeters is omitted when either position is unknown.
	RangeMeters *int   `json:"rangeMeters,omitempty"`
	RangeError  string `json:"rangeError,omitempty"`
}

// Handler builds the router for all API endpoints.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		WriteError(w, http.StatusNotFound, CodeNotFound, "Resource not found", nil)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		WriteError(w, http.StatusMethodNotAllowed, CodeMethodNotAllowed, "Method not allowed", nil)
	})

	if s.opts.Metrics != nil {
		r.Handle("/metrics", s.opts.Metrics).Methods(http.MethodGet)
	}

	v1 := r.PathPrefix("/api/v1").Subrouter()

	// Health endpoint (no auth required)
	v1.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	v1.HandleFunc("/nodes", s.protect(s.handleNodes, auth.ScopeRead)).Methods(http.MethodGet)
	v1.HandleFunc("/nodes/{id}", s.protect(s.handleNode, auth.ScopeRead)).Methods(http.MethodGet)

	if s.opts.Telemetry != nil {
		v1.HandleFunc("/telemetry", s.protect(s.handleTelemetry, auth.ScopeTelemetry)).Methods(http.MethodGet)
	}

	v1.HandleFunc("/sim/messages", s.protect(s.handleSimMessage, auth.ScopeControl)).Methods(http.MethodPost)
	v1.HandleFunc("/sim/nodes/{id}/position", s.protect(s.handleSimPosition, auth.ScopeControl)).Methods(http.MethodPut)
	v1.HandleFunc("/sim/reconnect", s.protect(s.handleSimReconnect, auth.ScopeControl)).Methods(http.MethodPost)
	v1.HandleFunc("/sim/sent", s.protect(s.handleSimSent, auth.ScopeControl)).Methods(http.MethodGet)

	return r
}

// protect wraps next with authentication when a middleware is configured.
func (s *Server) protect(next http.HandlerFunc, scopes ...string) http.HandlerFunc {
	if s.opts.AuthMiddleware == nil {
		return next
	}
	return s.opts.AuthMiddleware.Protect(next, scopes...)
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	_, simulated := s.opts.Link.(SimPort)
	WriteSuccess(w, map[string]interface{}{
		"status":    "ok",
		"uptimeSec": int64(time.Since(s.startTime).Seconds()),
		"localId":   s.opts.Link.LocalID(),
		"link":      s.opts.Target,
		"simulated": simulated,
	})
}

// handleNodes handles GET /nodes
func (s *Server) handleNodes(w http.ResponseWriter, r *http.Request) {
	nodes := s.opts.Link.Nodes()
	views := make([]NodeView, 0, len(nodes))
	for _, n := range nodes {
		views = append(views, s.nodeView(n))
	}
	WriteSuccess(w, map[string]interface{}{
		"localId": s.opts.Link.LocalID(),
		"nodes":   views,
	})
}

// handleNode handles GET /nodes/{id}
func (s *Server) handleNode(w http.ResponseWriter, r *http.Request) {
	id := radiolink.NodeID(mux.Vars(r)["id"])
	n, ok := s.opts.Link.Node(id)
	if !ok {
		WriteError(w, http.StatusNotFound, CodeNotFound, "Unknown node", map[string]string{"id": string(id)})
		return
	}
	WriteSuccess(w, s.nodeView(n))
}

func (s *Server) nodeView(n radiolink.NodeInfo) NodeView {
	v := NodeView{NodeInfo: n, Self: n.ID == s.opts.Link.LocalID()}
	if v.Self || s.opts.Ranges == nil {
		return v
	}
	meters, err := s.opts.Ranges.Range(n.ID)
	if err != nil {
		v.RangeError = rangeErrorCode(err)
		return v
	}
	v.RangeMeters = &meters
	return v
}

func rangeErrorCode(err error) string {
	switch {
	case errors.Is(err, responder.ErrUnknownNode):
		return responder.ErrUnknownNode.Error()
	case errors.Is(err, responder.ErrNoPositionReported):
		return responder.ErrNoPositionReported.Error()
	default:
		return CodeInternal
	}
}

// handleTelemetry handles GET /telemetry
func (s *Server) handleTelemetry(w http.ResponseWriter, r *http.Request) {
	// The stream outlives the server write timeout.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	if err := s.opts.Telemetry.Subscribe(r.Context(), w, r); err != nil {
		WriteError(w, http.StatusServiceUnavailable, CodeUnavailable, "Telemetry unavailable", nil)
	}
}

type simMessageRequest struct {
	From string `json:"from"`
	Text string `json:"text"`
}

// handleSimMessage handles POST /sim/messages. The reply, if any, is sent
// synchronously and returned in the response.
func (s *Server) handleSimMessage(w http.ResponseWriter, r *http.Request) {
	link, ok := s.simLink(w)
	if !ok {
		return
	}

	var req simMessageRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.From == "" {
		WriteError(w, http.StatusBadRequest, CodeBadRequest, "from is required", nil)
		return
	}

	before := len(link.Sent())
	if err := link.InjectText(radiolink.NodeID(req.From), req.Text); err != nil {
		WriteError(w, http.StatusBadRequest, CodeBadRequest, err.Error(), nil)
		return
	}

	WriteSuccess(w, map[string]interface{}{
		"replies": link.Sent()[before:],
	})
}

// handleSimPosition handles PUT /sim/nodes/{id}/position
func (s *Server) handleSimPosition(w http.ResponseWriter, r *http.Request) {
	link, ok := s.simLink(w)
	if !ok {
		return
	}

	var pos radiolink.Position
	if !decodeBody(w, r, &pos) {
		return
	}
	if !geo.Valid(pos) {
		WriteError(w, http.StatusBadRequest, CodeInvalidRange,
			"latitude must be within [-90, 90] and longitude within [-180, 180]", nil)
		return
	}

	id := radiolink.NodeID(mux.Vars(r)["id"])
	link.SetPosition(id, pos)
	n, _ := s.opts.Link.Node(id)
	WriteSuccess(w, s.nodeView(n))
}

// handleSimReconnect handles POST /sim/reconnect
func (s *Server) handleSimReconnect(w http.ResponseWriter, r *http.Request) {
	link, ok := s.simLink(w)
	if !ok {
		return
	}
	if err := link.Reconnect(); err != nil {
		WriteError(w, http.StatusServiceUnavailable, CodeUnavailable, err.Error(), nil)
		return
	}
	WriteSuccess(w, map[string]interface{}{"connected": true})
}

// handleSimSent handles GET /sim/sent
func (s *Server) handleSimSent(w http.ResponseWriter, r *http.Request) {
	link, ok := s.simLink(w)
	if !ok {
		return
	}
	WriteSuccess(w, map[string]interface{}{"sent": link.Sent()})
}

func (s *Server) simLink(w http.ResponseWriter) (SimPort, bool) {
	link, ok := s.opts.Link.(SimPort)
	if !ok {
		WriteError(w, http.StatusConflict, CodeNotSimulated, "Link is not the simulator", nil)
	}
	return link, ok
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		WriteError(w, http.StatusBadRequest, CodeBadRequest, "Invalid JSON body", nil)
		return false
	}
	return true
}
