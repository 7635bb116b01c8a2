package api

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"

	"tradesim/internal/book"
	"tradesim/internal/config"
	"tradesim/internal/engine"
	"tradesim/internal/ledger"
	"tradesim/internal/news"
	"tradesim/internal/registry"
	"tradesim/internal/risk"
	"tradesim/pkg/types"
)

const maxOrderbookDepth = 20

// Handlers holds every collaborator the HTTP/WS surface reads or writes.
type Handlers struct {
	registry *registry.Registry
	book     *book.Book
	ledger   *ledger.Ledger
	risk     *risk.Gate
	news     *news.Engine
	engine   *engine.Engine
	history  *orderHistory
	cfg      config.ServerConfig
	hub      *Hub
	logger   *slog.Logger
}

// NewHandlers wires the HTTP/WS handlers over the simulation core.
func NewHandlers(
	reg *registry.Registry,
	b *book.Book,
	led *ledger.Ledger,
	riskGate *risk.Gate,
	newsEngine *news.Engine,
	eng *engine.Engine,
	cfg config.ServerConfig,
	hub *Hub,
	logger *slog.Logger,
) *Handlers {
	return &Handlers{
		registry: reg,
		book:     b,
		ledger:   led,
		risk:     riskGate,
		news:     newsEngine,
		engine:   eng,
		history:  newOrderHistory(),
		cfg:      cfg,
		hub:      hub,
		logger:   logger.With("component", "api-handlers"),
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, httpStatus int, status, message string) {
	writeJSON(w, httpStatus, ErrorResponse{Message: message, Status: status})
}

// HandleHealth returns a simple liveness response.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleOrders serves both verbs of /orders: POST submits a market or
// limit order, GET lists the caller's open and historical orders.
func (h *Handlers) HandleOrders(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		h.HandleListOrders(w, r)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_instrument", "malformed request body")
		return
	}

	if !h.registry.HasInstrument(req.Symbol) {
		writeError(w, http.StatusBadRequest, string(types.RejectInvalidInstrument), "unknown symbol")
		return
	}
	if req.Quantity < 1 {
		writeError(w, http.StatusBadRequest, string(types.RejectOrderSizeExceeded), "quantity must be at least 1")
		return
	}

	side, ok := parseSide(req.Side)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_instrument", "side must be \"buy\" or \"sell\"")
		return
	}

	var price float64
	switch req.OrderType {
	case "limit":
		if req.Price == nil || *req.Price <= 0 {
			writeError(w, http.StatusBadRequest, "invalid_instrument", "limit orders require price > 0")
			return
		}
		price = *req.Price
	case "market":
		// Translated to a very aggressive limit before entering the risk
		// gate: buy sweeps up through best_ask, sell sweeps down
		// through best_bid.
		var p float64
		var have bool
		if side == types.Buy {
			p, have = h.book.BestAsk(req.Symbol)
			p *= 10
		} else {
			p, have = h.book.BestBid(req.Symbol)
			p *= 0.1
		}
		if !have {
			writeError(w, http.StatusBadRequest, string(types.RejectNoLiquidity), "no liquidity on the opposite side")
			return
		}
		price = p
	default:
		writeError(w, http.StatusBadRequest, "invalid_instrument", "order_type must be \"market\" or \"limit\"")
		return
	}

	userID := resolveUserID(r)

	if ok, reason := h.risk.Check(userID, req.Symbol, side, req.Quantity); !ok {
		writeError(w, http.StatusBadRequest, string(reason), string(reason))
		return
	}

	result := h.book.Submit(book.SubmitRequest{
		UserID:   userID,
		Symbol:   req.Symbol,
		Side:     side,
		Price:    price,
		Quantity: req.Quantity,
		Kind:     types.OrderKindUser,
	})

	// Rate-limiting is by attempted, not filled, flow — once the book has
	// reported back, record the full submitted quantity, whatever filled.
	h.ledger.RecordTrade(userID, req.Symbol, req.Quantity, side)

	h.history.record(userID, types.Order{
		ID:           result.OrderID,
		UserID:       userID,
		Symbol:       req.Symbol,
		Side:         side,
		Price:        price,
		RemainingQty: req.Quantity - result.FilledQty,
		OriginalQty:  req.Quantity,
		Kind:         types.OrderKindUser,
		Status:       result.Status,
		AvgFillPrice: result.AvgFillPrice,
	})

	writeJSON(w, http.StatusOK, OrderResponse{
		OrderID:             result.OrderID,
		Status:              string(result.Status),
		ExecutionPrice:      result.AvgFillPrice,
		UnprocessedQuantity: req.Quantity - result.FilledQty,
	})
}

func parseSide(s string) (types.Side, bool) {
	switch s {
	case string(types.Buy):
		return types.Buy, true
	case string(types.Sell):
		return types.Sell, true
	default:
		return "", false
	}
}

// HandleOrderbook serves GET /orderbook/{symbol}?depth=.
func (h *Handlers) HandleOrderbook(w http.ResponseWriter, r *http.Request) {
	symbol := strings.TrimPrefix(r.URL.Path, "/orderbook/")
	symbol = strings.TrimSuffix(symbol, "/")
	if !h.registry.HasInstrument(symbol) {
		writeError(w, http.StatusBadRequest, string(types.RejectInvalidInstrument), "unknown symbol")
		return
	}

	depth := 10
	if raw := r.URL.Query().Get("depth"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			depth = parsed
		}
	}
	if depth > maxOrderbookDepth {
		depth = maxOrderbookDepth
	}

	writeJSON(w, http.StatusOK, h.book.Snapshot(symbol, depth))
}

// HandlePortfolio serves GET /portfolio for the resolved caller.
func (h *Handlers) HandlePortfolio(w http.ResponseWriter, r *http.Request) {
	userID := resolveUserID(r)

	positions := h.ledger.Positions(userID)
	marks := make(map[string]float64, len(positions))
	for symbol := range positions {
		marks[symbol] = h.markPrice(symbol)
	}

	views := make([]PositionView, 0, len(positions))
	for symbol, qty := range positions {
		mark := marks[symbol]
		views = append(views, PositionView{
			Symbol:        symbol,
			Quantity:      qty,
			MarkPrice:     mark,
			UnrealizedPnL: h.ledger.UnrealizedPnL(userID, map[string]float64{symbol: mark}),
		})
	}

	writeJSON(w, http.StatusOK, PortfolioResponse{
		UserID:        userID,
		Cash:          h.ledger.Cash(userID),
		Positions:     views,
		RealizedPnL:   h.ledger.RealizedPnL(userID),
		UnrealizedPnL: h.ledger.UnrealizedPnL(userID, marks),
	})
}

// markPrice reports a mark-to-market reference price without the
// side effect book.Mid has on the clamp's previous_mid state: that
// mutation belongs to the broadcast loop's cadence, not to an arbitrary
// portfolio poll.
func (h *Handlers) markPrice(symbol string) float64 {
	bid, okBid := h.book.ClampedBestBid(symbol)
	ask, okAsk := h.book.ClampedBestAsk(symbol)
	switch {
	case okBid && okAsk:
		return (bid + ask) / 2
	case okBid:
		return bid
	case okAsk:
		return ask
	}
	last, _ := h.book.LastTradedPrice(symbol)
	return last
}

// HandleListOrders serves GET /orders for the resolved caller.
func (h *Handlers) HandleListOrders(w http.ResponseWriter, r *http.Request) {
	userID := resolveUserID(r)
	writeJSON(w, http.StatusOK, h.history.list(userID, h.book))
}

// HandleAdminNews serves POST /admin/news: ad-hoc injection of a known event.
func (h *Handlers) HandleAdminNews(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req AdminNewsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_instrument", "malformed request body")
		return
	}

	h.news.InjectAdHoc(req.NewsID)
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "ok", "news_id": req.NewsID})
}

// HandleNewsStatus serves GET /news/status.
func (h *Handlers) HandleNewsStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.news.CurrentStatus())
}

// HandleNewsAll serves GET /news/all.
func (h *Handlers) HandleNewsAll(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.news.All())
}

// HandleNewsCandidates serves GET /news/candidates.
func (h *Handlers) HandleNewsCandidates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.news.Candidates())
}

// HandleNewsActive serves GET /news/active.
func (h *Handlers) HandleNewsActive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.news.Active())
}

// HandleWebSocket upgrades the connection and subscribes it to the
// engine's snapshot broadcaster.
func (h *Handlers) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(req *http.Request) bool {
			return isOriginAllowed(req.Header.Get("Origin"), h.cfg.AllowedOrigins, req.Host)
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	NewClient(h.hub, conn)
}

func isOriginAllowed(origin string, allowedOrigins []string, reqHost string) bool {
	if origin == "" {
		// Non-browser clients often omit Origin; keep this path functional.
		return true
	}

	originURL, err := url.Parse(origin)
	if err != nil {
		return false
	}

	normalized := normalizeOrigin(originURL.Scheme, originURL.Host)
	if normalized == "" {
		return false
	}

	if len(allowedOrigins) > 0 {
		for _, allowed := range allowedOrigins {
			if allowed == "*" {
				return true
			}
			u, err := url.Parse(allowed)
			if err != nil {
				continue
			}
			if normalized == normalizeOrigin(u.Scheme, u.Host) {
				return true
			}
		}
		return false
	}

	host := strings.ToLower(originURL.Hostname())
	if host == "localhost" || host == "127.0.0.1" || host == "::1" {
		return true
	}

	reqHostname := normalizeHost(reqHost)
	return reqHostname != "" && host == reqHostname
}

func normalizeOrigin(scheme, host string) string {
	if scheme == "" || host == "" {
		return ""
	}
	return strings.ToLower(scheme) + "://" + strings.ToLower(host)
}

func normalizeHost(hostport string) string {
	hostport = strings.TrimSpace(hostport)
	if hostport == "" {
		return ""
	}
	if host, _, err := net.SplitHostPort(hostport); err == nil {
		return strings.ToLower(host)
	}
	return strings.ToLower(hostport)
}
