package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-http-utils/etag"
	"github.com/sardine-ai/dmx-artnet-checker/artnet"
	"github.com/sardine-ai/dmx-artnet-checker/model"
	"github.com/sardine-ai/dmx-artnet-checker/settings"
	"github.com/sardine-ai/dmx-artnet-checker/source"
	"github.com/sirupsen/logrus"
)

// maxBodySize bounds request bodies.
const maxBodySize = 1 << 20

type Server struct {
	Store         *settings.Store
	Controller    *artnet.Controller
	AuthKey       string
	StaticDir     string        // Served at / when set
	ImportTimeout time.Duration // Bounds fetching an import source

	mu         sync.Mutex
	httpServer *http.Server
}

func NewServer(store *settings.Store, controller *artnet.Controller) *Server {
	return &Server{
		Store:         store,
		Controller:    controller,
		ImportTimeout: 30 * time.Second,
	}
}

// Handler returns the routes wrapped in the etag, auth and CORS middlewares.
func (s *Server) Handler() http.Handler {
	handler := etag.Handler(s.CreateHandlers(), false)
	if s.AuthKey != "" {
		handler = Auth(handler, s.AuthKey)
	}
	return CORS(handler)
}

// Start listens on addr and serves until Shutdown is called.
func (s *Server) Start(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		logrus.WithError(err).Error("error starting server")
		return err
	}
	return s.Serve(listener)
}

// Serve accepts connections on listener until Shutdown is called.
func (s *Server) Serve(listener net.Listener) error {
	s.mu.Lock()
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv := s.httpServer
	s.mu.Unlock()

	logrus.WithField("addr", listener.Addr().String()).Info("Starting server")
	err := srv.Serve(listener)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	if err != nil {
		logrus.WithError(err).Error("error serving")
	}
	return err
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// Stop shuts the server down, waiting at most five seconds.
func (s *Server) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		logrus.WithError(err).Error("error shutting down server")
	}
}

func (s *Server) CreateHandlers() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.health)

	mux.HandleFunc("GET /api/config", s.getConfig)
	mux.HandleFunc("PUT /api/config", s.saveConfig)
	mux.HandleFunc("PATCH /api/config/{section}", s.updateSection)
	mux.HandleFunc("POST /api/config/reload", s.reloadConfig)
	mux.HandleFunc("POST /api/config/save-as", s.saveAs)
	mux.HandleFunc("POST /api/config/overwrite", s.overwrite)
	mux.HandleFunc("POST /api/config/import", s.importConfig)

	mux.HandleFunc("GET /api/settings", s.getSettings)
	mux.HandleFunc("GET /api/settings/files", s.listFiles)
	mux.HandleFunc("POST /api/settings/active", s.switchActive)

	mux.HandleFunc("POST /api/artnet/connect", s.connect)
	mux.HandleFunc("POST /api/artnet/disconnect", s.disconnect)
	mux.HandleFunc("GET /api/artnet/status", s.status)
	mux.HandleFunc("POST /api/artnet/send", s.send)
	mux.HandleFunc("POST /api/artnet/channel", s.setChannel)

	if s.StaticDir != "" {
		mux.Handle("GET /", http.FileServer(http.Dir(s.StaticDir)))
	}
	return mux
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "healthy"})
}

func (s *Server) configPayload(doc model.Document) map[string]interface{} {
	count := model.DefaultConfig().ChannelCount()
	if cfg, err := doc.Config(); err == nil {
		count = cfg.ChannelCount()
	}
	return map[string]interface{}{
		"success":      true,
		"config":       doc,
		"channelCount": count,
		"activeFile":   s.Store.ActiveFile(),
	}
}

func (s *Server) getConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.configPayload(s.Store.Get()))
}

func (s *Server) saveConfig(w http.ResponseWriter, r *http.Request) {
	var doc model.Document
	if !decode(w, r, &doc) {
		return
	}
	if err := s.Store.Save(doc); err != nil {
		writeError(w, err)
		return
	}
	payload := s.configPayload(s.Store.Get())
	payload["message"] = "configuration saved"
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) updateSection(w http.ResponseWriter, r *http.Request) {
	section := r.PathValue("section")
	var data map[string]interface{}
	if !decode(w, r, &data) {
		return
	}
	if err := s.Store.UpdateSection(section, data); err != nil {
		writeError(w, err)
		return
	}
	payload := s.configPayload(s.Store.Get())
	payload["message"] = fmt.Sprintf("section %s updated", section)
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) reloadConfig(w http.ResponseWriter, r *http.Request) {
	payload := s.configPayload(s.Store.Reload())
	payload["message"] = "configuration reloaded"
	writeJSON(w, http.StatusOK, payload)
}

type saveAsRequest struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	Description string `json:"description"`
}

func (s *Server) saveAs(w http.ResponseWriter, r *http.Request) {
	var req saveAsRequest
	if !decode(w, r, &req) {
		return
	}
	file, doc, err := s.Store.SaveAs(req.Name, req.DisplayName, req.Description)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": "configuration saved as " + file,
		"file":    file,
		"config":  doc,
	})
}

func (s *Server) overwrite(w http.ResponseWriter, r *http.Request) {
	if err := s.Store.OverwriteActive(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"message":    "active configuration overwritten",
		"activeFile": s.Store.ActiveFile(),
	})
}

type importRequest struct {
	saveAsRequest
	Source source.Spec `json:"source"`
}

func (s *Server) importConfig(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if !decode(w, r, &req) {
		return
	}
	// API callers may only import files that already sit under the settings root.
	if req.Source.IsFile() && req.Source.Path != "" {
		path, err := s.Store.Registry().ResolveLocal(req.Source.Path)
		if err != nil {
			writeError(w, err)
			return
		}
		req.Source.Path = path
	}
	repo, err := source.New(req.Source)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"success": false, "message": err.Error()})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), s.ImportTimeout)
	defer cancel()
	file, doc, err := s.Store.Import(ctx, repo, req.Name, req.DisplayName, req.Description)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": "configuration imported as " + file,
		"file":    file,
		"config":  doc,
	})
}

func (s *Server) getSettings(w http.ResponseWriter, r *http.Request) {
	registry := s.Store.Registry()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"settings":   registry.Get(),
		"activePath": registry.ResolveActivePath(),
	})
}

func (s *Server) listFiles(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"files":   s.Store.Registry().ListConfigFiles(),
	})
}

type switchRequest struct {
	File string `json:"file"`
}

func (s *Server) switchActive(w http.ResponseWriter, r *http.Request) {
	var req switchRequest
	if !decode(w, r, &req) {
		return
	}
	doc, err := s.Store.SwitchActiveFile(req.File)
	if err != nil {
		writeError(w, err)
		return
	}
	payload := s.configPayload(doc)
	payload["message"] = "switched to " + s.Store.ActiveFile()
	writeJSON(w, http.StatusOK, payload)
}

type endpoint struct {
	Address  string `json:"ip"`
	Port     int    `json:"port"`
	Universe int    `json:"universe"`
}

func statusPayload(st artnet.Status) map[string]interface{} {
	return map[string]interface{}{
		"success":     true,
		"isConnected": st.Connected,
		"config":      endpoint{Address: st.Address, Port: st.Port, Universe: st.Universe},
	}
}

type connectRequest struct {
	Address  string `json:"ip"`
	Port     int    `json:"port"`
	Universe *int   `json:"universe"`
}

func (s *Server) connect(w http.ResponseWriter, r *http.Request) {
	var req connectRequest
	if !decodeOptional(w, r, &req) {
		return
	}
	// Omitted fields come from the active configuration, which may have
	// changed since the controller was created.
	network := s.Store.Config().Network
	if req.Address == "" {
		req.Address = network.DefaultAddress
	}
	if req.Port == 0 {
		req.Port = network.DefaultPort
	}
	if req.Universe == nil {
		universe := network.DefaultUniverse
		req.Universe = &universe
	}
	st, err := s.Controller.Connect(req.Address, req.Port, req.Universe)
	if err != nil {
		writeError(w, err)
		return
	}
	payload := statusPayload(st)
	payload["message"] = "art-net connected"
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) disconnect(w http.ResponseWriter, r *http.Request) {
	if err := s.Controller.Disconnect(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "art-net disconnected"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusPayload(s.Controller.Status()))
}

type sendRequest struct {
	Channels []int `json:"channels"`
	Universe *int  `json:"universe"`
}

func (s *Server) send(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Channels == nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"success": false, "message": "channels must be an array"})
		return
	}
	universe, err := s.Controller.Send(req.Universe, req.Channels)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"message":      "dmx data sent",
		"universe":     universe,
		"channelCount": len(req.Channels),
	})
}

type channelRequest struct {
	Channel  *int `json:"channel"`
	Value    *int `json:"value"`
	Universe *int `json:"universe"`
}

func (s *Server) setChannel(w http.ResponseWriter, r *http.Request) {
	var req channelRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Channel == nil || req.Value == nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"success": false, "message": "channel and value are required"})
		return
	}
	universe, err := s.Controller.SetChannel(req.Universe, *req.Channel, *req.Value)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"message":  fmt.Sprintf("channel %d set to %d", *req.Channel+1, *req.Value),
		"channel":  *req.Channel,
		"value":    *req.Value,
		"universe": universe,
	})
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"success": false, "message": "invalid request body: " + err.Error()})
		return false
	}
	return true
}

// decodeOptional accepts an empty body.
func decodeOptional(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if r.ContentLength == 0 {
		return true
	}
	return decode(w, r, v)
}

func statusCode(err error) int {
	switch {
	case errors.Is(err, settings.ErrValidation),
		errors.Is(err, settings.ErrInvalidName),
		errors.Is(err, settings.ErrInvalidPath),
		errors.Is(err, artnet.ErrNotConnected),
		errors.Is(err, artnet.ErrInvalidChannel),
		errors.Is(err, artnet.ErrInvalidValue),
		errors.Is(err, artnet.ErrInvalidUniverse):
		return http.StatusBadRequest
	case errors.Is(err, settings.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, settings.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, settings.ErrParse):
		return http.StatusUnprocessableEntity
	case errors.Is(err, settings.ErrFetch):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	code := statusCode(err)
	if code == http.StatusInternalServerError {
		logrus.WithError(err).Error("error handling request")
	}
	writeJSON(w, code, map[string]interface{}{"success": false, "message": err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.WithError(err).Error("error writing response")
	}
}
