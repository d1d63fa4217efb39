package handlers

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/AAWorks/binomial-pricer/internal/dispatch"
	"github.com/AAWorks/binomial-pricer/internal/dqn"
	"github.com/AAWorks/binomial-pricer/pkg/logger"
	"github.com/AAWorks/binomial-pricer/pkg/redis"
)

// Training stream message types
const (
	MessageLog    = "log"
	MessageResult = "result"
	MessageError  = "error"
)

const writeTimeout = 10 * time.Second

// TrainRequest is the first client message on /ws/train.
// Hyperparameters override the configured ones field by field.
type TrainRequest struct {
	ContractRequest
	Hyperparameters *dqn.Hyperparameters `json:"hyperparameters,omitempty"`
}

// TrainMessage is one server message of the training stream
type TrainMessage struct {
	Type   string                   `json:"type"`
	Entry  *dqn.LogEntry            `json:"entry,omitempty"`
	Result *dispatch.TrainingReport `json:"result,omitempty"`
	Error  string                   `json:"error,omitempty"`
	Status int                      `json:"status,omitempty"`
}

// TrainQuota admits training runs per client
type TrainQuota interface {
	Acquire(ctx context.Context, clientID string) (redis.QuotaDecision, error)
}

// TrainingHandler streams DQN training runs over websocket
// ⭐ SSOT: 학습 스트림은 이 핸들러에서만
type TrainingHandler struct {
	dispatcher *dispatch.Dispatcher
	quota      TrainQuota
	upgrader   websocket.Upgrader
	logger     *logger.Logger
	now        func() time.Time
}

// NewTrainingHandler creates a new training handler. quota may be nil.
func NewTrainingHandler(d *dispatch.Dispatcher, quota TrainQuota, log *logger.Logger) *TrainingHandler {
	return &TrainingHandler{
		dispatcher: d,
		quota:      quota,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
		logger: logger.OrNop(log),
		now:    time.Now,
	}
}

// Train runs one training session per connection
// GET /ws/train
func (h *TrainingHandler) Train(w http.ResponseWriter, r *http.Request) {
	if h.quota != nil {
		client := clientID(r)
		decision, err := h.quota.Acquire(r.Context(), client)
		switch {
		case err != nil:
			h.logger.WithError(err).Warn("Training quota check failed")
		case !decision.Allowed:
			h.logger.WithField("client", client).Info("Training quota exhausted")
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(decision.RetryAfter.Seconds()))))
			respondError(w, http.StatusTooManyRequests, "too many training runs, try again later")
			return
		}
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied
		h.logger.WithError(err).Debug("Websocket upgrade failed")
		return
	}
	defer conn.Close()
	// the server read timeout must not end a long training stream
	conn.SetReadDeadline(time.Time{})

	hp := h.dispatcher.Settings().DQN
	req := TrainRequest{Hyperparameters: &hp}
	if err := conn.ReadJSON(&req); err != nil {
		h.send(conn, nil, TrainMessage{Type: MessageError, Error: "invalid request: " + err.Error(), Status: http.StatusBadRequest})
		return
	}

	c, err := req.contract(h.now())
	if err != nil {
		h.send(conn, nil, TrainMessage{Type: MessageError, Error: err.Error(), Status: StatusFor(err)})
		return
	}

	// 클라이언트가 연결을 끊으면 학습 중단
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	var mu sync.Mutex
	onLog := func(e dqn.LogEntry) {
		if err := h.send(conn, &mu, TrainMessage{Type: MessageLog, Entry: &e}); err != nil {
			cancel()
		}
	}

	report, err := h.dispatcher.Train(ctx, c, req.Hyperparameters, onLog)
	if err != nil {
		h.logger.WithError(err).WithField("contract", c.String()).Warn("Training run failed")
		h.send(conn, &mu, TrainMessage{Type: MessageError, Error: err.Error(), Status: StatusFor(err)})
		return
	}

	// the log was already streamed
	report.Log = nil
	h.send(conn, &mu, TrainMessage{Type: MessageResult, Result: report})
	h.send(conn, &mu, closeMessage{})
}

// closeMessage asks send to perform a normal websocket close
type closeMessage struct{}

func (h *TrainingHandler) send(conn *websocket.Conn, mu *sync.Mutex, msg interface{}) error {
	if mu != nil {
		mu.Lock()
		defer mu.Unlock()
	}

	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if _, ok := msg.(closeMessage); ok {
		return conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"))
	}
	return conn.WriteJSON(msg)
}

// clientID identifies the caller by the first X-Forwarded-For hop, or the
// remote host
func clientID(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
