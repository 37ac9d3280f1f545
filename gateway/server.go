// Package gateway is the read-side HTTP surface: REST views over ledger state
// and a websocket stream of ledger events. Mutations go through the RPC
// endpoint only.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"

	"github.com/euphoria-gg/betledger/core"
	"github.com/euphoria-gg/betledger/engine"
	"github.com/euphoria-gg/betledger/indexer"
)

// Server serves the REST and websocket gateway.
type Server struct {
	engine     *engine.Engine
	indexer    *indexer.Indexer
	hub        *Hub
	httpServer *http.Server
	upgrader   websocket.Upgrader
}

// NewServer creates a gateway Server on addr. idx may be nil.
func NewServer(addr string, eng *engine.Engine, idx *indexer.Indexer, hub *Hub) *Server {
	s := &Server{
		engine:  eng,
		indexer: idx,
		hub:     hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}

	router := mux.NewRouter()
	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.handleHealth).Methods("GET")
	api.HandleFunc("/matches/{type_id}/{id}", s.handleGetMatch).Methods("GET")
	api.HandleFunc("/balances/{account}/{token}", s.handleGetBalance).Methods("GET")
	api.HandleFunc("/commission/{token}", s.handleGetCommission).Methods("GET")
	api.HandleFunc("/root", s.handleGetRoot).Methods("GET")
	api.HandleFunc("/paused", s.handleGetPaused).Methods("GET")
	api.HandleFunc("/bettors/{bettor}/bets", s.handleGetBettorBets).Methods("GET")
	api.HandleFunc("/bets/{hash}", s.handleGetBet).Methods("GET")

	router.HandleFunc("/ws", s.handleWebSocket)

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      c.Handler(router),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start binds the port synchronously, then serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	go s.hub.Run()
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Printf("[gateway] server error: %v", err)
		}
	}()
	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now().Unix(),
	})
}

func (s *Server) handleGetMatch(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	typeID, err := strconv.ParseUint(vars["type_id"], 10, 64)
	if err != nil {
		http.Error(w, "bad type_id", http.StatusBadRequest)
		return
	}
	id, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "bad id", http.StatusBadRequest)
		return
	}
	m, err := s.engine.MatchData(typeID, id)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			http.Error(w, "match not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleGetBalance(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	bal, err := s.engine.Balance(vars["account"], vars["token"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"account": vars["account"],
		"token":   vars["token"],
		"balance": bal,
	})
}

func (s *Server) handleGetCommission(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	bal, err := s.engine.CommissionBalance(vars["token"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"token": vars["token"], "balance": bal})
}

func (s *Server) handleGetRoot(w http.ResponseWriter, r *http.Request) {
	root, err := s.engine.MerkleRoot()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"root": root})
}

func (s *Server) handleGetPaused(w http.ResponseWriter, r *http.Request) {
	paused, err := s.engine.Paused()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"paused": paused})
}

func (s *Server) handleGetBettorBets(w http.ResponseWriter, r *http.Request) {
	if s.indexer == nil {
		http.Error(w, "bet index disabled", http.StatusNotImplemented)
		return
	}
	bettor := mux.Vars(r)["bettor"]
	hashes, err := s.indexer.GetBetsByBettor(bettor)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bettor": bettor, "bets": hashes})
}

func (s *Server) handleGetBet(w http.ResponseWriter, r *http.Request) {
	if s.indexer == nil {
		http.Error(w, "bet index disabled", http.StatusNotImplemented)
		return
	}
	bet, err := s.indexer.GetBet(mux.Vars(r)["hash"])
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			http.Error(w, "bet not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, bet)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[gateway] websocket upgrade: %v", err)
		return
	}
	client := &Client{hub: s.hub, conn: conn, send: make(chan []byte, 64)}
	s.hub.register <- client
	go client.writePump()
	go client.readPump()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
