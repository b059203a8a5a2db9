package server

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/yuin/goldmark"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/TobiSchelling/ridebounds/internal/database"
	"github.com/TobiSchelling/ridebounds/internal/datebounds"
	"github.com/TobiSchelling/ridebounds/internal/htmlform"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

var md = goldmark.New()

// DepartureDateID is the id of the date input on the ride form.
const DepartureDateID = "departure_date"

// Server is the HTTP server for the ride pages.
type Server struct {
	db     *database.DB
	bounds *datebounds.Constrainer
	pages  map[string]*template.Template
	mux    *http.ServeMux
}

// New creates a new Server.
func New(db *database.DB, bounds *datebounds.Constrainer) (*Server, error) {
	funcMap := template.FuncMap{
		"markdown":   renderMarkdown,
		"formatDate": formatDate,
		"deref": func(s *string) string {
			if s == nil {
				return ""
			}
			return *s
		},
	}

	// Parse base template first
	base, err := template.New("base.html").Funcs(funcMap).ParseFS(templateFS, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("parsing base template: %w", err)
	}

	// Each page gets its own clone of base so {{define "content"}} does not collide.
	pageNames := []string{"index.html", "ride_form.html"}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("cloning base for %s: %w", name, err)
		}
		_, err = clone.ParseFS(templateFS, "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		pages[name] = clone
	}

	if bounds == nil {
		bounds = datebounds.New()
	}

	s := &Server{db: db, bounds: bounds, pages: pages, mux: http.NewServeMux()}
	s.routes()
	return s, nil
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	// Static files
	staticSub, _ := fs.Sub(staticFS, "static")
	s.mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))

	// Routes
	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/rides/new", s.handleNewRide)
	s.mux.HandleFunc("/rides/add", s.handleAddRide)
	s.mux.HandleFunc("/rides/", s.handleRideAction)
	s.mux.HandleFunc("/api/bounds", s.handleBounds)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	today := s.bounds.Bounds(datebounds.DateLayout).Min
	rides, err := s.db.GetRidesFrom(today)
	if err != nil {
		zap.L().Error("listing rides", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	s.render(w, "index.html", map[string]any{
		"Rides": rides,
		"Today": today,
	})
}

func (s *Server) handleNewRide(w http.ResponseWriter, r *http.Request) {
	s.render(w, "ride_form.html", nil, DepartureDateID)
}

func (s *Server) handleAddRide(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Redirect(w, r, "/rides/new", http.StatusFound)
		return
	}

	ride := database.Ride{
		Departure:     strings.TrimSpace(r.FormValue("departure")),
		Arrival:       strings.TrimSpace(r.FormValue("arrival")),
		DepartureDate: strings.TrimSpace(r.FormValue("departure_date")),
		SeatsOffered:  1,
	}
	if n, err := strconv.Atoi(r.FormValue("seats_offered")); err == nil && n > 0 {
		ride.SeatsOffered = n
	}
	if p, err := strconv.ParseFloat(r.FormValue("price"), 64); err == nil && p >= 0 {
		ride.Price = p
	}
	if comment := strings.TrimSpace(r.FormValue("comment")); comment != "" {
		ride.Comment = &comment
	}

	if ride.Departure == "" || ride.Arrival == "" || ride.DepartureDate == "" {
		http.Redirect(w, r, "/rides/new", http.StatusFound)
		return
	}

	if _, err := s.db.InsertRide(ride); err != nil {
		zap.L().Error("storing ride", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) handleRideAction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/rides/")
	parts := strings.SplitN(path, "/", 2)
	if len(parts) != 2 {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	switch parts[1] {
	case "delete":
		if err := s.db.DeleteRide(id); err != nil {
			zap.L().Error("deleting ride", zap.Int64("ride_id", id), zap.Error(err))
		}
	}

	http.Redirect(w, r, "/", http.StatusFound)
}

type boundsResponse struct {
	Min         string `json:"min"`
	Max         string `json:"max"`
	DateTimeMin string `json:"datetime_min"`
	DateTimeMax string `json:"datetime_max"`
	Timezone    string `json:"timezone"`
}

func (s *Server) handleBounds(w http.ResponseWriter, r *http.Request) {
	date := s.bounds.Bounds(datebounds.DateLayout)
	dt := s.bounds.Bounds(datebounds.DateTimeLayout)

	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(boundsResponse{
		Min:         date.Min,
		Max:         date.Max,
		DateTimeMin: dt.Min,
		DateTimeMax: dt.Max,
		Timezone:    s.bounds.Location().String(),
	})
	if err != nil {
		zap.L().Error("writing bounds", zap.Error(err))
	}
}

// render executes a page template. When dateInputIDs are given, the rendered
// page is parsed and those inputs get their min and max bounds before it is sent.
func (s *Server) render(w http.ResponseWriter, name string, data any, dateInputIDs ...string) {
	tmpl, ok := s.pages[name]
	if !ok {
		zap.L().Error("template not found", zap.String("template", name))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base.html", data); err != nil {
		zap.L().Error("rendering template", zap.String("template", name), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if len(dateInputIDs) == 0 {
		w.Write(buf.Bytes())
		return
	}

	doc, err := goquery.NewDocumentFromReader(&buf)
	if err != nil {
		zap.L().Error("parsing rendered page", zap.String("template", name), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	for _, id := range dateInputIDs {
		s.bounds.Apply(htmlform.ByID(doc, id))
	}
	if err := html.Render(w, doc.Get(0)); err != nil {
		zap.L().Error("writing page", zap.String("template", name), zap.Error(err))
	}
}

// formatDate renders a stored YYYY-MM-DD departure date as "Mon, Feb 06 2026".
// Values that do not parse are shown as stored.
func formatDate(date string) string {
	d, err := time.Parse(datebounds.DateLayout, date)
	if err != nil {
		return date
	}
	return d.Format("Mon, Jan 02 2006")
}

func renderMarkdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String()) //nolint: gosec
}

// Serve starts the HTTP server on the given port.
func Serve(db *database.DB, bounds *datebounds.Constrainer, port int) error {
	srv, err := New(db, bounds)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("127.0.0.1:%d", port)
	zap.L().Info("server listening", zap.String("addr", "http://"+addr))
	return http.ListenAndServe(addr, srv.Handler())
}
