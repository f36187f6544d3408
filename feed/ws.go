package feed

import (
	"fmt"
	"math/big"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WS 订阅推送型参考价流并维护最新快照（执行者确保网络可达）。
// 仅做最小连接 + 读取；断线重连由调用方在 Run 外层处理。
type WS struct {
	Endpoint string // 例如 wss://feed.example.com
	Pair     string
	Dialer   *websocket.Dialer

	mu        sync.RWMutex
	value     *big.Int
	updatedAt int64
}

func NewWS(endpoint, pair string) *WS {
	return &WS{
		Endpoint: endpoint,
		Pair:     strings.ToUpper(pair),
		Dialer:   websocket.DefaultDialer,
	}
}

// Latest 返回最近一次推送的快照。
func (w *WS) Latest() (*big.Int, int64, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.value == nil {
		return nil, 0, ErrNoPrice
	}
	return new(big.Int).Set(w.value), w.updatedAt, nil
}

// Run 连接 combined stream 并循环读取价格推送，阻塞直到连接断开。
func (w *WS) Run() error {
	if w.Pair == "" {
		return fmt.Errorf("pair required")
	}
	u := url.URL{
		Scheme: "wss",
		Host:   strings.TrimPrefix(w.Endpoint, "wss://"),
		Path:   "/stream",
	}
	q := u.Query()
	q.Set("streams", strings.ToLower(w.Pair)+"@price")
	u.RawQuery = q.Encode()

	conn, _, err := w.Dialer.Dial(u.String(), nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	for {
		_ = conn.SetReadDeadline(time.Now().Add(30 * time.Second))
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		w.onRawMessage(message)
	}
}

func (w *WS) onRawMessage(raw []byte) {
	pair, price, updatedAt, err := ParsePriceUpdate(raw)
	if err != nil || pair != w.Pair {
		return
	}
	w.mu.Lock()
	w.value = price
	w.updatedAt = updatedAt
	w.mu.Unlock()
}
