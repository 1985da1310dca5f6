package http

import (
	"encoding/json"
	stdhttp "net/http"
	"os"
	"strings"
	"sync"

	"github.com/Redshadow31/tenf-v2-sub004/internal/app/controllers"
	"github.com/Redshadow31/tenf-v2-sub004/internal/platform/middleware"
	waLog "go.mau.fi/whatsmeow/util/log"
	yaml "gopkg.in/yaml.v3"
)

type RouterConfig struct {
	EvaluationCtrl     *controllers.EvaluationController
	EngagementCtrl     *controllers.EngagementController
	MemberCtrl         *controllers.MemberController
	ReconciliationCtrl *controllers.ReconciliationController
	Logger             waLog.Logger
	SwaggerEnable      bool
	OpenAPIPath        string
	MasterToken        string
}

func writeStatus(w stdhttp.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func methodNotAllowed(w stdhttp.ResponseWriter) {
	writeStatus(w, stdhttp.StatusMethodNotAllowed, "method not allowed")
}

func notFound(w stdhttp.ResponseWriter) {
	writeStatus(w, stdhttp.StatusNotFound, "endpoint not found")
}

func splitSegments(path string) []string {
	raw := strings.Split(path, "/")
	out := make([]string, 0, len(raw))
	for _, segment := range raw {
		if segment == "" {
			continue
		}
		out = append(out, segment)
	}
	return out
}

func NewRouter(cfg RouterConfig) stdhttp.Handler {
	log := cfg.Logger
	if log == nil {
		log = waLog.Noop
	}
	mux := stdhttp.NewServeMux()

	mux.HandleFunc("/", func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		if r.URL.Path != "/" {
			notFound(w)
			return
		}
		if r.Method != stdhttp.MethodGet {
			methodNotAllowed(w)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":      "ok",
			"name":        "TENF evaluation API",
			"description": "Monthly member evaluations, engagement imports and member identity tooling",
			"endpoints": map[string]string{
				"health":         "/health",
				"evaluations":    "/evaluations/{month}",
				"engagement":     "/engagement/{month}/import",
				"members":        "/members",
				"reconciliation": "/reconciliation",
				"documentation":  "/docs",
			},
		})
	})

	mux.HandleFunc("/health", func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"status": "ok",
		})
	})

	if cfg.SwaggerEnable {
		specPath := cfg.OpenAPIPath
		if specPath == "" {
			// relative to the working directory
			specPath = "docs/openapi.yaml"
		}
		var (
			once     sync.Once
			yamlData []byte
			yamlErr  error
		)
		loadYAML := func() ([]byte, error) {
			once.Do(func() { yamlData, yamlErr = os.ReadFile(specPath) })
			return yamlData, yamlErr
		}
		mux.HandleFunc("/openapi.yaml", func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
			data, err := loadYAML()
			if err != nil {
				notFound(w)
				return
			}
			w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
			w.Write(data)
		})
		mux.HandleFunc("/openapi.json", func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
			data, err := loadYAML()
			if err != nil {
				notFound(w)
				return
			}
			var v map[string]interface{}
			if err := yaml.Unmarshal(data, &v); err != nil {
				writeStatus(w, stdhttp.StatusInternalServerError, err.Error())
				return
			}
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			json.NewEncoder(w).Encode(v)
		})
		mux.HandleFunc("/docs", func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Write([]byte(`<!DOCTYPE html><html><head><title>API Docs</title><link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css"/></head><body><div id="swagger-ui"></div><script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script><script>window.onload=()=>{SwaggerUIBundle({url:'/openapi.yaml',dom_id:'#swagger-ui'});};</script></body></html>`))
		})
	}

	auth := middleware.BearerAuth(middleware.MasterToken(cfg.MasterToken))

	if ctrl := cfg.EvaluationCtrl; ctrl != nil {
		evaluationMux := stdhttp.NewServeMux()
		evaluationMux.HandleFunc("/", func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
			segments := splitSegments(strings.TrimPrefix(r.URL.Path, "/evaluations"))
			if len(segments) == 0 {
				notFound(w)
				return
			}
			month, rest := segments[0], segments[1:]

			if len(rest) == 0 {
				switch r.Method {
				case stdhttp.MethodGet:
					ctrl.ListMonth(w, r, month)
				case stdhttp.MethodDelete:
					ctrl.Reset(w, r, month)
				default:
					methodNotAllowed(w)
				}
				return
			}

			// Logins nunca têm hífen, então section-a não esconde nenhum login.
			if len(rest) == 1 && r.Method == stdhttp.MethodGet {
				if rest[0] == "section-a" {
					ctrl.SectionA(w, r, month)
					return
				}
				ctrl.Get(w, r, month, rest[0])
				return
			}

			switch {
			case len(rest) == 1 && r.Method == stdhttp.MethodPost:
				switch rest[0] {
				case "spotlights":
					ctrl.AddSpotlight(w, r, month)
				case "events":
					ctrl.AddEvent(w, r, month)
				case "raids":
					ctrl.RecordRaids(w, r, month)
				case "spotlight-bonus":
					ctrl.RecordSpotlightBonus(w, r, month)
				case "follows":
					ctrl.UpsertFollow(w, r, month)
				case "bonuses":
					ctrl.AwardBonus(w, r, month)
				case "recompute":
					ctrl.Recompute(w, r, month)
				default:
					notFound(w)
				}
			case len(rest) == 2 && r.Method == stdhttp.MethodDelete && rest[0] == "spotlights":
				ctrl.RemoveSpotlight(w, r, month, rest[1])
			case len(rest) == 2 && r.Method == stdhttp.MethodDelete && rest[0] == "events":
				ctrl.RemoveEvent(w, r, month, rest[1])
			case len(rest) == 3 && r.Method == stdhttp.MethodDelete && rest[0] == "bonuses":
				ctrl.RemoveBonus(w, r, month, rest[1], rest[2])
			case len(rest) <= 3:
				methodNotAllowed(w)
			default:
				notFound(w)
			}
		})
		mux.Handle("/evaluations/", auth(evaluationMux))
	}

	if ctrl := cfg.EngagementCtrl; ctrl != nil {
		engagementMux := stdhttp.NewServeMux()
		engagementMux.HandleFunc("/", func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
			segments := splitSegments(strings.TrimPrefix(r.URL.Path, "/engagement"))
			if len(segments) != 2 || segments[1] != "import" {
				notFound(w)
				return
			}
			if r.Method != stdhttp.MethodPost {
				methodNotAllowed(w)
				return
			}
			ctrl.Import(w, r, segments[0])
		})
		mux.Handle("/engagement/", auth(engagementMux))
	}

	if ctrl := cfg.MemberCtrl; ctrl != nil {
		memberMux := stdhttp.NewServeMux()
		memberMux.HandleFunc("/", func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
			segments := splitSegments(strings.TrimPrefix(r.URL.Path, "/members"))
			switch {
			case len(segments) == 0:
				switch r.Method {
				case stdhttp.MethodGet:
					ctrl.List(w, r)
				case stdhttp.MethodPost:
					ctrl.Create(w, r)
				default:
					methodNotAllowed(w)
				}
			case len(segments) == 1 && segments[0] == "duplicates" && r.Method == stdhttp.MethodGet:
				ctrl.Duplicates(w, r)
			case len(segments) == 1 && segments[0] == "merge" && r.Method == stdhttp.MethodPost:
				ctrl.Merge(w, r)
			case len(segments) == 2 && segments[0] == "sync" && r.Method == stdhttp.MethodPost:
				switch segments[1] {
				case "platform-ids":
					ctrl.SyncPlatformIDs(w, r)
				case "chat":
					ctrl.SyncChatHandles(w, r)
				default:
					notFound(w)
				}
			case len(segments) == 1:
				switch r.Method {
				case stdhttp.MethodGet:
					ctrl.Get(w, r, segments[0])
				case stdhttp.MethodPatch:
					ctrl.Update(w, r, segments[0])
				default:
					methodNotAllowed(w)
				}
			default:
				notFound(w)
			}
		})
		mux.Handle("/members", auth(memberMux))
		mux.Handle("/members/", auth(memberMux))
	}

	if ctrl := cfg.ReconciliationCtrl; ctrl != nil {
		reconcileMux := stdhttp.NewServeMux()
		reconcileMux.HandleFunc("/", func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
			segments := splitSegments(strings.TrimPrefix(r.URL.Path, "/reconciliation"))
			if len(segments) != 1 {
				notFound(w)
				return
			}
			switch {
			case segments[0] == "months" && r.Method == stdhttp.MethodGet:
				ctrl.Months(w, r)
			case segments[0] == "run" && r.Method == stdhttp.MethodPost:
				ctrl.Run(w, r)
			case segments[0] == "check" && r.Method == stdhttp.MethodPost:
				ctrl.Check(w, r)
			case segments[0] == "months" || segments[0] == "run" || segments[0] == "check":
				methodNotAllowed(w)
			default:
				notFound(w)
			}
		})
		mux.Handle("/reconciliation/", auth(reconcileMux))
	}

	return middleware.CORS(middleware.Logging(log)(mux))
}
