package audit

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-pizza/internal/common"
	"github.com/noah-isme/backend-pizza/internal/obs"
)

// HTTPRecorder writes one audit entry per handled request on the routes it
// wraps.
type HTTPRecorder struct {
	Service *Service
	OnError func(error)
}

// HTTPConfig describes the entry produced for a route. ResourceIDParam names
// the chi URL parameter holding the resource id.
type HTTPConfig struct {
	Action          string
	ResourceType    string
	ResourceIDParam string
	MetadataFunc    func(*http.Request, int) map[string]any
}

// Middleware records the request after next has written its response, so the
// entry carries the final status.
func (r HTTPRecorder) Middleware(cfg HTTPConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if r.Service == nil || !r.Service.Enabled || req.Method == http.MethodOptions {
				next.ServeHTTP(w, req)
				return
			}

			sr := obs.NewStatusRecorder(w)
			next.ServeHTTP(sr, req)
			status := sr.Status()

			var resourceID string
			if cfg.ResourceIDParam != "" {
				resourceID = chi.URLParam(req, cfg.ResourceIDParam)
			}
			var metadata []byte
			if cfg.MetadataFunc != nil {
				if m := cfg.MetadataFunc(req, status); len(m) > 0 {
					metadata, _ = json.Marshal(m)
				}
			}

			err := r.Service.Record(req.Context(), actorOf(req), cfg.Action, cfg.ResourceType, resourceID, req, status, metadata)
			if err != nil && r.OnError != nil {
				r.OnError(err)
			}
		})
	}
}

func actorOf(req *http.Request) Actor {
	who, ok := common.IdentityFrom(req.Context())
	switch {
	case !ok || who.UserID == "":
		return Actor{Kind: ActorKindAnonymous}
	case who.IsAdmin():
		return Actor{Kind: ActorKindAdmin, UserID: who.UserID}
	default:
		return Actor{Kind: ActorKindUser, UserID: who.UserID}
	}
}
