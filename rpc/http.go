package rpc

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"namemarket/core"
	"namemarket/observability"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeUnauthorized   = -32001
	codeServerError    = -32000
)

// RPCTokenEnv names the environment variable carrying the bearer token that
// guards administrative methods.
const RPCTokenEnv = "NAMEMARKET_RPC_TOKEN"

// Server exposes the marketplace over a single-endpoint JSON-RPC 2.0
// surface. Admin methods require the bearer token; everything else is open.
type Server struct {
	node      *core.Node
	authToken string
}

// NewServer wires an RPC server around the node, reading the admin token
// from the environment.
func NewServer(node *core.Node) *Server {
	return &Server{
		node:      node,
		authToken: strings.TrimSpace(os.Getenv(RPCTokenEnv)),
	}
}

// Start serves the RPC endpoint until the listener fails.
func (s *Server) Start(addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handle)
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return server.ListenAndServe()
}

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      int               `json:"id"`
}

type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, 0, codeInvalidRequest, "invalid_request", "POST required")
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, 0, codeParseError, "parse_error", err.Error())
		return
	}
	var req RPCRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, 0, codeParseError, "parse_error", err.Error())
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "invalid_request", "unsupported jsonrpc version")
		return
	}

	started := time.Now()
	outcome := s.dispatch(w, r, &req)
	observability.MarketMetrics().Observe(req.Method, outcome, time.Since(started))
}

// dispatch routes the request and reports the outcome label for metrics.
func (s *Server) dispatch(w http.ResponseWriter, r *http.Request, req *RPCRequest) string {
	switch req.Method {
	case "market_buy":
		return s.handleBuy(w, req)
	case "market_placeBid":
		return s.handlePlaceBid(w, req)
	case "market_settleBid":
		return s.handleSettleBid(w, req)
	case "market_refundBid":
		return s.handleRefundBid(w, req)
	case "market_getListing":
		return s.handleGetListing(w, req)
	case "market_settings":
		return s.handleGetSettings(w, req)
	case "market_getBalance":
		return s.handleGetBalance(w, req)
	case "market_setPause":
		return s.handleSetPause(w, r, req)
	case "market_transferOwner":
		return s.handleTransferOwner(w, r, req)
	case "market_changeSettings":
		return s.handleChangeSettings(w, r, req)
	default:
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, "method_not_found", fmt.Sprintf("unknown method %q", req.Method))
		return "error"
	}
}

func (s *Server) requireAuth(r *http.Request) *RPCError {
	if s.authToken == "" {
		return &RPCError{Code: codeUnauthorized, Message: "unauthorized", Data: "admin token not configured"}
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return &RPCError{Code: codeUnauthorized, Message: "unauthorized", Data: "bearer token required"}
	}
	supplied := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	if subtle.ConstantTimeCompare([]byte(supplied), []byte(s.authToken)) != 1 {
		return &RPCError{Code: codeUnauthorized, Message: "unauthorized", Data: "invalid token"}
	}
	return nil
}

func writeResult(w http.ResponseWriter, id int, result interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result})
}

func writeError(w http.ResponseWriter, status, id, code int, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(RPCResponse{
		JSONRPC: jsonRPCVersion,
		ID:      id,
		Error:   &RPCError{Code: code, Message: message, Data: data},
	})
}
