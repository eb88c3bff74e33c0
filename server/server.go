package server

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"murmur/common"
	"murmur/configs"
)

// Server is the untrusted relay: it stores prekey bundles, queues one initial
// message per new session, and bridges two live connections byte for byte. It
// never sees plaintext or long-term secrets.
type Server struct {
	bundles  BundleStore
	messages MessageStore
	bridge   *Bridge
	logger   *logrus.Logger
	validate *validator.Validate

	// WebSocket upgrader settings
	upgrader *websocket.Upgrader
}

func NewServer(bundles BundleStore, messages MessageStore, logger *logrus.Logger) *Server {
	return &Server{
		bundles:  bundles,
		messages: messages,
		bridge:   NewBridge(configs.InitialMessageTTL),
		logger:   logger,
		validate: validator.New(),
		upgrader: &websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Router wires all relay endpoints.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc(configs.KeysPath+"/{userID}", s.HandlePublishBundle).Methods(http.MethodPut)
	r.HandleFunc(configs.KeysPath+"/{userID}", s.HandleFetchBundle).Methods(http.MethodGet)
	r.HandleFunc(configs.MessagesPath, s.HandlePostMessage).Methods(http.MethodPost)
	r.HandleFunc(configs.MessagesPath+"/{sessionID}", s.HandleGetMessage).Methods(http.MethodGet)
	r.HandleFunc(configs.WebSocketPath, s.HandleBridge)
	return r
}

func (s *Server) HandlePublishBundle(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userID"]

	var bundle common.Bundle
	if err := json.NewDecoder(r.Body).Decode(&bundle); err != nil {
		s.logger.Errorf("Invalid bundle from user %s: %v", userID, err)
		http.Error(w, "invalid bundle", http.StatusBadRequest)
		return
	}
	if err := s.validate.Struct(bundle); err != nil {
		s.logger.Errorf("Bundle validation failed for user %s: %v", userID, err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if hex.EncodeToString(bundle.PubKey) != userID {
		http.Error(w, "identity key does not match user id", http.StatusBadRequest)
		return
	}

	if err := s.bundles.Publish(r.Context(), userID, bundle); err != nil {
		if errors.Is(err, ErrSameSignature) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.logger.Errorf("Error publishing bundle for user %s: %v", userID, err)
		http.Error(w, "error publishing bundle", http.StatusInternalServerError)
		return
	}

	s.logger.Infof("Bundle published for user %s", userID)
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) HandleFetchBundle(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userID"]

	fetched, err := s.bundles.Fetch(r.Context(), userID)
	switch {
	case errors.Is(err, ErrBundleNotFound):
		http.Error(w, "unknown user", http.StatusNotFound)
		return
	case errors.Is(err, ErrNoOneTimeKeys):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	case err != nil:
		s.logger.Errorf("Error fetching bundle for user %s: %v", userID, err)
		http.Error(w, "error fetching bundle", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(fetched); err != nil {
		s.logger.Errorf("Error encoding bundle for user %s: %v", userID, err)
	}
}

func (s *Server) HandlePostMessage(w http.ResponseWriter, r *http.Request) {
	var msg common.InitialMessage
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		http.Error(w, "invalid message", http.StatusBadRequest)
		return
	}
	if err := s.validate.Struct(msg); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	sid := uuid.NewString()
	if err := s.messages.Put(r.Context(), sid, msg); err != nil {
		s.logger.Errorf("Error queuing initial message for session %s: %v", sid, err)
		http.Error(w, "error queuing message", http.StatusInternalServerError)
		return
	}

	s.logger.Infof("Initial message queued for session %s", sid)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(common.SessionCreated{SessionID: sid}); err != nil {
		s.logger.Errorf("Error encoding session id %s: %v", sid, err)
	}
}

func (s *Server) HandleGetMessage(w http.ResponseWriter, r *http.Request) {
	sid := mux.Vars(r)["sessionID"]

	msg, err := s.messages.Take(r.Context(), sid)
	if errors.Is(err, ErrMessageNotFound) {
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}
	if err != nil {
		s.logger.Errorf("Error fetching initial message for session %s: %v", sid, err)
		http.Error(w, "error fetching message", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(msg); err != nil {
		s.logger.Errorf("Error encoding initial message for session %s: %v", sid, err)
	}
}

// HandleBridge joins a live connection to its session. When both peers are
// present each receives "OK", then every frame is forwarded verbatim to the
// other side until either connection drops.
func (s *Server) HandleBridge(w http.ResponseWriter, r *http.Request) {
	sid := r.URL.Query().Get("session")
	if sid == "" {
		http.Error(w, "no session provided", http.StatusBadRequest)
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Errorf("Error upgrading to WebSocket: %v", err)
		return
	}
	conn := &bridgedConn{Conn: ws}

	peer, err := s.bridge.Rendezvous(sid, conn)
	if err != nil {
		s.logger.Infof("Session %s: %v", sid, err)
		ws.Close()
		return
	}

	if err := conn.write(websocket.TextMessage, []byte("OK")); err != nil {
		s.logger.Errorf("Session %s: error sending OK: %v", sid, err)
		ws.Close()
		peer.Close()
		return
	}
	s.logger.Infof("Session %s paired", sid)

	for {
		messageType, data, err := ws.ReadMessage()
		if err != nil {
			break
		}
		if err := peer.write(messageType, data); err != nil {
			break
		}
	}

	ws.Close()
	peer.Close()
	s.logger.Infof("Session %s closed", sid)
}
