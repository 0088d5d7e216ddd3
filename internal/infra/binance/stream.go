package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"tickerboard/internal/domain"
	"tickerboard/internal/event"
	"tickerboard/internal/infra"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

const (
	maxRetries   = 10
	pingInterval = 30 * time.Second
	readTimeout  = 60 * time.Second
)

// tradeMessage is the subset of a Binance trade payload we use.
type tradeMessage struct {
	Symbol string `json:"s"` // BTCUSDT
	Price  string `json:"p"` // "64000.12"
}

// Stream is the push feed for crypto prices over the Binance trade stream.
// All registered channels share one connection; registering a new one reconnects.
type Stream struct {
	baseURL string
	inbox   chan<- event.Event
	metrics *infra.Metrics

	mu        sync.RWMutex
	keys      []string
	keySet    map[string]bool
	conn      *websocket.Conn
	connected bool

	writeMu sync.Mutex
	wake    chan struct{}
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewStream creates a stream worker. metrics may be nil.
func NewStream(baseURL string, inbox chan<- event.Event, metrics *infra.Metrics) *Stream {
	if metrics == nil {
		metrics = infra.GlobalMetrics
	}
	return &Stream{
		baseURL: strings.TrimRight(baseURL, "/"),
		inbox:   inbox,
		metrics: metrics,
		keySet:  make(map[string]bool),
		wake:    make(chan struct{}, 1),
	}
}

// Register adds a channel key such as "btcusdt@trade". Known keys are ignored.
// A new key tears down the current connection; the loop reconnects with every key.
func (s *Stream) Register(key string) {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return
	}

	s.mu.Lock()
	if s.keySet[key] {
		s.mu.Unlock()
		return
	}
	s.keySet[key] = true
	s.keys = append(s.keys, key)
	s.mu.Unlock()

	slog.Info("Stream registered", slog.String("key", key))

	select {
	case s.wake <- struct{}{}:
	default:
	}
	s.closeConnection()
}

// Keys returns the registered channel keys in registration order.
func (s *Stream) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.keys...)
}

// URL is the combined stream URL for the current key set.
func (s *Stream) URL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.baseURL + "/" + strings.Join(s.keys, "/")
}

// Connect starts the connection loop in the background.
func (s *Stream) Connect(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go s.connectionLoop(ctx)
	return nil
}

func (s *Stream) connectionLoop(ctx context.Context) {
	defer s.wg.Done()
	retryCount := 0
	for {
		if len(s.Keys()) == 0 {
			select {
			case <-ctx.Done():
				return
			case <-s.wake:
				continue
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-s.wake: // keys are read at dial time
		default:
		}

		if err := s.connect(ctx); err != nil {
			s.metrics.RecordError()
			slog.Warn("Stream connection failed", slog.Any("error", err), slog.Int("retry", retryCount))
			delay := infra.CalculateBackoff(retryCount)
			retryCount++
			if retryCount > maxRetries {
				retryCount = 0
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
				continue
			}
		}

		retryCount = 0

		// A key registered while dialing is missing from this URL.
		select {
		case <-s.wake:
			s.closeConnection()
			continue
		default:
		}

		connCtx, cancelConn := context.WithCancel(ctx)
		go s.pingLoop(connCtx)
		s.readLoop(ctx)
		cancelConn()
	}
}

func (s *Stream) connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	header := make(http.Header)
	header.Set("User-Agent", infra.DefaultUserAgent)

	url := s.URL()
	conn, _, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		return domain.NewNetworkError("dial", fmt.Errorf("%w: %v", domain.ErrConnectionFailed, err))
	}

	s.mu.Lock()
	s.conn = conn
	s.connected = true
	s.mu.Unlock()
	s.metrics.IncrementConnections()

	slog.Info("Stream connected", slog.String("url", url))
	return nil
}

func (s *Stream) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.threadSafeWrite(websocket.PingMessage, nil); err != nil {
				slog.Debug("Stream ping failed", slog.Any("error", err))
			}
		}
	}
}

func (s *Stream) threadSafeWrite(msgType int, data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.conn == nil {
		return fmt.Errorf("no conn")
	}
	return s.conn.WriteMessage(msgType, data)
}

func (s *Stream) readLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			s.closeConnection()
			return
		default:
		}

		s.mu.RLock()
		conn := s.conn
		s.mu.RUnlock()
		if conn == nil {
			return
		}

		conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			s.closeConnection()
			return
		}
		s.handleMessage(msg)
	}
}

func (s *Stream) handleMessage(msg []byte) {
	ev, err := parseTrade(msg)
	if err != nil {
		s.metrics.RecordMalformed()
		slog.Debug("Dropping stream payload", slog.Any("error", err))
		return
	}

	select {
	case s.inbox <- ev:
	default:
		event.ReleaseStreamTick(ev)
		s.metrics.RecordDropped()
	}
}

// parseTrade turns a trade payload into a pooled StreamTick.
func parseTrade(msg []byte) (*event.StreamTick, error) {
	var m tradeMessage
	if err := json.Unmarshal(msg, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedPayload, err)
	}

	symbol := domain.SymbolFromPair(m.Symbol)
	if symbol == "" {
		return nil, fmt.Errorf("%w: pair %q", domain.ErrInvalidSymbol, m.Symbol)
	}

	price, err := decimal.NewFromString(m.Price)
	if err != nil || !price.IsPositive() {
		return nil, fmt.Errorf("%w: price %q", domain.ErrMalformedPayload, m.Price)
	}

	ev := event.AcquireStreamTick()
	ev.Ts = time.Now()
	ev.Symbol = symbol
	ev.Price = price
	return ev, nil
}

func (s *Stream) closeConnection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
		s.metrics.DecrementConnections()
	}
	s.connected = false
}

// Disconnect stops the loop and closes the connection.
func (s *Stream) Disconnect() {
	if s.cancel != nil {
		s.cancel()
	}
	s.closeConnection()
	s.wg.Wait()
}

// IsConnected reports whether a connection is currently open.
func (s *Stream) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

var _ domain.StreamWorker = (*Stream)(nil)
