package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Authority98/feedo-sub000/internal/autosave"
	"github.com/Authority98/feedo-sub000/internal/events"
	"github.com/Authority98/feedo-sub000/internal/middleware"
	"github.com/Authority98/feedo-sub000/internal/models"
	"github.com/Authority98/feedo-sub000/internal/services"
	"github.com/Authority98/feedo-sub000/internal/storage"
)

const progressCacheSize = 512

type Router struct {
	store    Store
	profiles *services.ProfileTypeService
	answers  *services.AnswerService
	auth     *services.AuthService
	saver    *autosave.Coordinator
	bus      *events.Bus
	files    *storage.FileStore
	progress *lru.Cache[string, *services.CompletionReport]
}

type Options struct {
	Store Store
	Bus   *events.Bus
	Files *storage.FileStore
	// AutosaveDebounce overrides the default edit-settle delay.
	AutosaveDebounce time.Duration
}

func NewRouter(opts Options) *Router {
	store := opts.Store
	if store == nil {
		store = NewMemoryStore()
	}
	bus := opts.Bus
	if bus == nil {
		bus = events.NewBus()
	}
	rt := &Router{
		store:    store,
		profiles: services.NewProfileTypeService(newProfileStoreAdapter(store)),
		answers:  services.NewAnswerService(newAnswerStoreAdapter(store), newProfileStoreAdapter(store)),
		auth:     services.NewAuthService(newAuthStoreAdapter(store), middleware.SignToken),
		bus:      bus,
		files:    opts.Files,
	}
	rt.progress, _ = lru.New[string, *services.CompletionReport](progressCacheSize)
	rt.saver = autosave.NewCoordinator(rt.answers.SaveSection, autosave.Options{
		Debounce: opts.AutosaveDebounce,
		OnSaved: func(userID string, doc *models.SectionAnswerDocument) {
			bus.Publish(events.SectionDataUpdated{UserID: userID, SectionID: doc.ID, ProfileType: doc.ProfileType})
		},
		OnError: func(userID, sectionID string, err error) {
			log.Printf("autosave: save failed for user=%s section=%s: %v", userID, sectionID, err)
		},
	})
	bus.Subscribe(func(ev events.SectionDataUpdated) { rt.invalidateProgress(ev.UserID) })
	return rt
}

// Close releases autosave timers; pending unflushed edits are dropped.
func (rt *Router) Close() { rt.saver.Close() }

func (rt *Router) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/auth/register", rt.handleRegister)     // POST
	mux.HandleFunc("/api/auth/login", rt.handleLogin)           // POST
	mux.HandleFunc("/api/profile-types", rt.handleProfileTypes) // GET, POST
	mux.HandleFunc("/api/profile-types/", rt.handleProfileTypeScoped)
	mux.HandleFunc("/api/answers/", rt.handleAnswersScoped) // GET, PUT
	mux.HandleFunc("/api/progress/", rt.handleProgress)     // GET
	mux.HandleFunc("/api/uploads", rt.handleUpload)         // POST
	mux.HandleFunc("/api/audit", rt.handleAudit)            // GET
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeServiceError(w http.ResponseWriter, err error) {
	if se, ok := services.AsServiceError(err); ok {
		status := http.StatusBadRequest
		switch se.Code {
		case services.ErrorNotFound:
			status = http.StatusNotFound
		case services.ErrorConflict:
			status = http.StatusConflict
		case services.ErrorForbidden:
			status = http.StatusForbidden
		case services.ErrorUnauthorized:
			status = http.StatusUnauthorized
		}
		writeJSON(w, status, map[string]string{"error": se.Message, "code": string(se.Code)})
		return
	}
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
}

func (rt *Router) requireClaims(w http.ResponseWriter, r *http.Request) (*middleware.Claims, bool) {
	c, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return nil, false
	}
	return c, true
}

func (rt *Router) invalidateProgress(userID string) {
	for _, key := range rt.progress.Keys() {
		if strings.HasPrefix(key, userID+"|") {
			rt.progress.Remove(key)
		}
	}
}

// POST /api/auth/register
func (rt *Router) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	res, err := rt.auth.Register(req.Email, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": res.Token, "user_id": res.UserID})
}

// POST /api/auth/login
func (rt *Router) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	res, err := rt.auth.Login(req.Email, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": res.Token, "user_id": res.UserID})
}

// GET|POST /api/profile-types
func (rt *Router) handleProfileTypes(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		list, err := rt.profiles.ListProfileTypes()
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	case http.MethodPost:
		claims, ok := rt.requireClaims(w, r)
		if !ok {
			return
		}
		var in services.ProfileTypeInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		pt, err := rt.profiles.CreateProfileType(in, claims.Email)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, pt)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// /api/profile-types/{id}[/sections|/purge-orphans]
func (rt *Router) handleProfileTypeScoped(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/profile-types/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		http.NotFound(w, r)
		return
	}
	id := parts[0]

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			pt, err := rt.profiles.GetProfileType(id)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, pt)
		case http.MethodDelete:
			claims, ok := rt.requireClaims(w, r)
			if !ok {
				return
			}
			if err := rt.profiles.DeleteProfileType(id, claims.Email); err != nil {
				writeServiceError(w, err)
				return
			}
			rt.progress.Purge()
			writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	switch parts[1] {
	case "sections":
		rt.handleSections(w, r, id)
	case "purge-orphans":
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		claims, ok := rt.requireClaims(w, r)
		if !ok {
			return
		}
		removed, err := rt.profiles.PurgeOrphanAnswers(id, claims.Email)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		rt.progress.Purge()
		writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
	default:
		http.NotFound(w, r)
	}
}

// GET|PUT /api/profile-types/{id}/sections
func (rt *Router) handleSections(w http.ResponseWriter, r *http.Request, id string) {
	switch r.Method {
	case http.MethodGet:
		sections, err := rt.profiles.LoadSections(id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sections)
	case http.MethodPut:
		claims, ok := rt.requireClaims(w, r)
		if !ok {
			return
		}
		var edits []services.SectionEdit
		if err := json.NewDecoder(r.Body).Decode(&edits); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		pt, mappings, err := rt.profiles.UpdateSections(id, edits, claims.Email)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		// schema changed, cached reports are stale for every user
		rt.progress.Purge()
		writeJSON(w, http.StatusOK, map[string]any{"profileType": pt, "renamed": mappings})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// /api/answers/{userID}/export or /api/answers/{userID}/{sectionID}
func (rt *Router) handleAnswersScoped(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/answers/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		http.NotFound(w, r)
		return
	}
	userID := parts[0]
	if parts[1] == "export" {
		rt.handleExport(w, r, userID)
		return
	}
	sectionID := parts[1]
	switch r.Method {
	case http.MethodGet:
		// the autosave session may hold edits ahead of the store
		if doc, _, ok := rt.saver.Snapshot(userID, sectionID); ok && doc != nil {
			writeJSON(w, http.StatusOK, doc)
			return
		}
		doc, err := rt.answers.GetSection(userID, sectionID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		if doc == nil {
			http.Error(w, "no answers for section", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, doc)
	case http.MethodPut:
		var doc models.SectionAnswerDocument
		if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		doc.ID = sectionID
		rt.saver.Update(userID, &doc)
		if r.URL.Query().Get("flush") != "" {
			if err := rt.saver.Flush(userID, sectionID); err != nil {
				writeServiceError(w, err)
				return
			}
			saved, _, _ := rt.saver.Snapshot(userID, sectionID)
			writeJSON(w, http.StatusOK, map[string]any{"state": "clean", "document": saved})
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{"state": "dirty"})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// GET /api/answers/{userID}/export — long-format CSV of every stored section
func (rt *Router) handleExport(w http.ResponseWriter, r *http.Request, userID string) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	docs := rt.store.ListSectionAnswers(userID)
	b, err := services.ExportAnswersCSV(docs)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=answers.csv")
	_, _ = w.Write(b)
}

// GET /api/progress/{userID}?profile_type=...
func (rt *Router) handleProgress(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/progress/"), "/")
	profileType := r.URL.Query().Get("profile_type")
	if userID == "" || profileType == "" {
		http.Error(w, "user id and profile_type required", http.StatusBadRequest)
		return
	}
	key := userID + "|" + profileType
	if report, ok := rt.progress.Get(key); ok {
		writeJSON(w, http.StatusOK, report)
		return
	}
	report, err := rt.answers.Report(userID, profileType)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	rt.progress.Add(key, report)
	writeJSON(w, http.StatusOK, report)
}

// POST /api/uploads — multipart field "file"
func (rt *Router) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if rt.files == nil {
		http.Error(w, "uploads not configured", http.StatusServiceUnavailable)
		return
	}
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file field required", http.StatusBadRequest)
		return
	}
	defer func() { _ = file.Close() }()
	answer, err := rt.files.Upload(r.Context(), header.Filename, header.Header.Get("Content-Type"), header.Size, file)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

// GET /api/audit
func (rt *Router) handleAudit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if _, ok := rt.requireClaims(w, r); !ok {
		return
	}
	writeJSON(w, http.StatusOK, rt.store.ListAudit())
}
