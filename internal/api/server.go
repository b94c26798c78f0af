// Package api serves the live sensor state, controller status and trigger
// journal over HTTP.
package api

import (
	"net/http"
	"strconv"

	"github.com/banshee-data/range.trigger/internal/benewake"
	"github.com/banshee-data/range.trigger/internal/db"
	"github.com/banshee-data/range.trigger/internal/httputil"
	"github.com/banshee-data/range.trigger/internal/sensing"
	"github.com/banshee-data/range.trigger/internal/sensorstate"
	"github.com/banshee-data/range.trigger/internal/trigger"
	"github.com/banshee-data/range.trigger/internal/version"
)

const maxTriggerLimit = 1000

// Sources are the components the server reports on. Journal, Decoder and
// Sensing may be nil.
type Sources struct {
	State   interface{ Read() (sensorstate.Snapshot, bool) }
	Loop    interface{ Status() trigger.Status }
	Decoder interface{ Stats() benewake.DecoderStats }
	Sensing interface{ Stats() sensing.Stats }
	Journal interface{ RecentTriggers(limit int) ([]db.TriggerEvent, error) }
}

type Server struct {
	src Sources
}

func NewServer(src Sources) *Server {
	return &Server{src: src}
}

// ServeMux returns a mux with every API route registered.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/state", s.getOnly(s.showState))
	mux.HandleFunc("/api/controller", s.getOnly(s.showController))
	mux.HandleFunc("/api/decoder", s.getOnly(s.showDecoder))
	mux.HandleFunc("/api/triggers", s.getOnly(s.listTriggers))
	mux.HandleFunc("/api/triggers/chart", s.getOnly(s.triggerChart))
	mux.HandleFunc("/api/version", s.getOnly(s.showVersion))
	return mux
}

func (s *Server) getOnly(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			httputil.MethodNotAllowed(w, http.MethodGet)
			return
		}
		h(w, r)
	}
}

func (s *Server) showState(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.src.State.Read()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	httputil.WriteJSONOK(w, snap)
}

func (s *Server) showController(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONOK(w, s.src.Loop.Status())
}

type decoderResponse struct {
	Decoder *benewake.DecoderStats `json:"decoder,omitempty"`
	Sensing *sensing.Stats         `json:"sensing,omitempty"`
}

func (s *Server) showDecoder(w http.ResponseWriter, r *http.Request) {
	var resp decoderResponse
	if s.src.Decoder != nil {
		st := s.src.Decoder.Stats()
		resp.Decoder = &st
	}
	if s.src.Sensing != nil {
		st := s.src.Sensing.Stats()
		resp.Sensing = &st
	}
	httputil.WriteJSONOK(w, resp)
}

// parseLimit reads ?limit=, defaulting to db.DefaultRecentLimit.
func parseLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return db.DefaultRecentLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > maxTriggerLimit {
		return 0, strconv.ErrRange
	}
	return n, nil
}

func (s *Server) recentTriggers(w http.ResponseWriter, r *http.Request) ([]db.TriggerEvent, bool) {
	if s.src.Journal == nil {
		httputil.ServiceUnavailable(w, "trigger journal is disabled")
		return nil, false
	}
	limit, err := parseLimit(r)
	if err != nil {
		httputil.BadRequest(w, "limit must be an integer between 1 and "+strconv.Itoa(maxTriggerLimit))
		return nil, false
	}
	events, err := s.src.Journal.RecentTriggers(limit)
	if err != nil {
		httputil.InternalServerError(w, "failed to read trigger journal: "+err.Error())
		return nil, false
	}
	return events, true
}

func (s *Server) listTriggers(w http.ResponseWriter, r *http.Request) {
	events, ok := s.recentTriggers(w, r)
	if !ok {
		return
	}
	httputil.WriteJSONOK(w, events)
}

func (s *Server) showVersion(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONOK(w, version.Current())
}
