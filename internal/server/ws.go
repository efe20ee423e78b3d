package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/warepick/warepick/internal/apperr"
	"github.com/warepick/warepick/internal/coordinator"
	"github.com/warepick/warepick/internal/scanner"
	"github.com/warepick/warepick/internal/types"
)

// scanDebounce suppresses repeats of the same code; hardware scanners
// and nervous thumbs both fire bursts.
const scanDebounce = time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type wsInbound struct {
	Type     string `json:"type"`
	UPC      string `json:"upc,omitempty"`
	Quantity *int   `json:"quantity,omitempty"`
}

type wsItem struct {
	UPC          string       `json:"upc"`
	ProductName  string       `json:"product_name"`
	RequestedQty int          `json:"requested_qty"`
	PickedQty    int          `json:"picked_qty"`
	Remaining    int          `json:"remaining"`
	IsComplete   bool         `json:"is_complete"`
	Mode         scanner.Mode `json:"mode"`
}

// pickerSession is one WebSocket connection bound to one claimed
// request. All writes happen on the read loop goroutine, so no write
// lock is needed.
type pickerSession struct {
	server   *Server
	conn     *websocket.Conn
	user     *types.User
	name     string
	lastUPC  string
	lastScan time.Time
}

// handlePickerWS runs the scanning session for one pick request. The
// connection is upgraded first so failures arrive as JSON frames the
// UI can show.
func (s *Server) handlePickerWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	sess := &pickerSession{
		server: s,
		conn:   conn,
		name:   strings.ToLower(chi.URLParam(r, "name")),
	}
	sess.run(r.Context(), r.URL.Query().Get("token"))
}

func (ps *pickerSession) run(ctx context.Context, token string) {
	s := ps.server

	user, err := s.resolveToken(ctx, token)
	if err != nil || !user.Role.CanPick() {
		ps.sendError(apperr.CodeTokenInvalid, "Authentication required")
		return
	}
	ps.user = user

	req, err := s.coord.Get(ctx, ps.name)
	if err != nil {
		ps.sendAppError(err)
		return
	}
	if req.Status != types.StatusInProgress {
		ps.sendError(apperr.CodeInvalidStatus,
			"Request is "+string(req.Status)+", not in_progress")
		return
	}
	if req.ClaimantID != user.ID && user.Role != types.RoleAdmin {
		ps.sendError(apperr.CodeRequestLocked, "Request is locked by another user")
		return
	}

	s.log.Info("picker session opened",
		zap.String("request", ps.name), zap.String("user", user.Username))
	defer s.log.Info("picker session closed", zap.String("request", ps.name))

	ps.sendInit(req)

	for {
		var msg wsInbound
		if err := ps.conn.ReadJSON(&msg); err != nil {
			return
		}
		switch msg.Type {
		case "manual_scan":
			ps.handleScan(ctx, msg)
		case "manual_update":
			ps.handleUpdate(ctx, msg)
		case "get_status":
			ps.handleGetStatus(ctx)
		case "stop":
			return
		default:
			ps.sendError(apperr.CodeValidation, "Unknown message type: "+msg.Type)
		}
	}
}

func (ps *pickerSession) handleScan(ctx context.Context, msg wsInbound) {
	code := strings.TrimSpace(msg.UPC)
	if code == "" {
		ps.sendError(apperr.CodeValidation, "UPC cannot be empty")
		return
	}

	now := time.Now()
	if code == ps.lastUPC && now.Sub(ps.lastScan) < scanDebounce {
		return
	}
	ps.lastUPC, ps.lastScan = code, now

	res, err := ps.server.coord.Scan(ctx, ps.user, ps.name, code)
	if err != nil {
		var appErr *apperr.Error
		if errors.As(err, &appErr) && appErr.Code == apperr.CodeValidation {
			// Code decodes fine but matches nothing in this request.
			ps.send(map[string]interface{}{
				"type":       "scan_result",
				"in_request": false,
				"upc":        code,
				"message":    "Barcode not in this pick request",
			})
			return
		}
		ps.sendAppError(err)
		return
	}

	ps.send(map[string]interface{}{
		"type":       "scan_result",
		"in_request": true,
		"updated":    res.Updated,
		"item":       itemView(res.Item, ps.server.threshold),
	})
}

func (ps *pickerSession) handleUpdate(ctx context.Context, msg wsInbound) {
	if msg.Quantity == nil {
		ps.sendError(apperr.CodeValidation, "Quantity is required")
		return
	}
	req, err := ps.server.coord.UpdateItem(ctx, ps.user, ps.name, msg.UPC,
		coordinator.ItemUpdate{Absolute: msg.Quantity})
	if err != nil {
		ps.sendAppError(err)
		return
	}
	ps.sendStatus(req)
}

func (ps *pickerSession) handleGetStatus(ctx context.Context) {
	req, err := ps.server.coord.Get(ctx, ps.name)
	if err != nil {
		ps.sendAppError(err)
		return
	}
	ps.sendStatus(req)
}

func (ps *pickerSession) sendInit(req *types.Request) {
	items := make([]wsItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, itemView(it, ps.server.threshold))
	}
	ps.send(map[string]interface{}{
		"type":            "init",
		"request_name":    req.Name,
		"user":            ps.user.Username,
		"items":           items,
		"total_requested": req.TotalRequested(),
		"total_picked":    req.TotalPicked(),
	})
}

func (ps *pickerSession) sendStatus(req *types.Request) {
	items := make([]wsItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, itemView(it, ps.server.threshold))
	}
	ps.send(map[string]interface{}{
		"type":            "status",
		"items":           items,
		"total_requested": req.TotalRequested(),
		"total_picked":    req.TotalPicked(),
		"completion_rate": req.CompletionRate(),
	})
}

func (ps *pickerSession) sendError(code, message string) {
	ps.send(map[string]interface{}{
		"type":    "error",
		"code":    code,
		"message": message,
	})
}

func (ps *pickerSession) sendAppError(err error) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		ps.server.log.Error("picker session error", zap.Error(err))
		appErr = apperr.Internal("")
	}
	ps.sendError(appErr.Code, appErr.Message)
}

func (ps *pickerSession) send(v interface{}) {
	_ = ps.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	_ = ps.conn.WriteJSON(v)
}

func itemView(it *types.Item, threshold int) wsItem {
	return wsItem{
		UPC:          it.UPC,
		ProductName:  it.ProductName,
		RequestedQty: it.RequestedQty,
		PickedQty:    it.PickedQty,
		Remaining:    it.Remaining(),
		IsComplete:   it.IsComplete(),
		Mode:         scanner.ModeFor(it, threshold),
	}
}
