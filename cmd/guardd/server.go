package main

import (
	"encoding/json"
	"errors"
	"math/big"
	"net/http"

	"depeg-guard-go/guard"
	"depeg-guard-go/posttrade"
)

// server 把引擎的生命周期操作暴露为最小 HTTP 接口，
// 供池执行环境在成交路径外做预演与回放。
type server struct {
	engine   *guard.Engine
	episodes *posttrade.Analyzer
}

func (s *server) register(mux *http.ServeMux) {
	mux.HandleFunc("/v1/pretrade", s.handlePreTrade)
	mux.HandleFunc("/v1/posttrade", s.handlePostTrade)
	mux.HandleFunc("/v1/observations", s.handleObservations)
	mux.HandleFunc("/v1/episodes", s.handleEpisodes)
}

type preTradeRequest struct {
	Pool      string `json:"pool"`
	Size      string `json:"size"`
	Direction string `json:"direction"`
	Tick      int64  `json:"tick"`
	Timestamp int64  `json:"timestamp"`
}

type preTradeResponse struct {
	Admit        bool   `json:"admit"`
	FeeBps       uint64 `json:"feeBps"`
	SizeCeiling  string `json:"sizeCeiling,omitempty"`
	DeviationBps int64  `json:"deviationBps"`
	Level        string `json:"level"`
	Reason       string `json:"reason,omitempty"`
}

func (s *server) handlePreTrade(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req preTradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	size, ok := new(big.Int).SetString(req.Size, 10)
	if !ok || req.Pool == "" {
		http.Error(w, "pool and decimal size required", http.StatusBadRequest)
		return
	}

	decision, err := s.engine.PreTrade(guard.PoolID(req.Pool), guard.TradeRequest{
		ProposedSize: size,
		Direction:    guard.Direction(req.Direction),
		CurrentTick:  req.Tick,
		Timestamp:    req.Timestamp,
	})
	if err != nil && !isRejection(err) {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	resp := preTradeResponse{
		Admit:        decision.Admit,
		FeeBps:       decision.FeeBps,
		DeviationBps: decision.DeviationBps,
		Level:        decision.Level.String(),
		Reason:       string(decision.Reason),
	}
	if decision.SizeCeiling != nil {
		resp.SizeCeiling = decision.SizeCeiling.String()
	}
	writeJSON(w, resp)
}

type postTradeRequest struct {
	Pool      string `json:"pool"`
	Tick      int64  `json:"tick"`
	Timestamp int64  `json:"timestamp"`
}

func (s *server) handlePostTrade(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req postTradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Pool == "" {
		http.Error(w, "pool required", http.StatusBadRequest)
		return
	}
	s.engine.PostTrade(guard.PoolID(req.Pool), req.Tick, req.Timestamp)
	writeJSON(w, map[string]bool{"ok": true})
}

func (s *server) handleObservations(w http.ResponseWriter, r *http.Request) {
	pool := r.URL.Query().Get("pool")
	if pool == "" {
		http.Error(w, "pool required", http.StatusBadRequest)
		return
	}
	writeJSON(w, map[string]int{"count": s.engine.ObservationCount(guard.PoolID(pool))})
}

func (s *server) handleEpisodes(w http.ResponseWriter, r *http.Request) {
	if s.episodes == nil {
		http.Error(w, "episode analytics disabled", http.StatusNotFound)
		return
	}
	writeJSON(w, map[string]interface{}{
		"stats":    s.episodes.Stats(),
		"episodes": s.episodes.Episodes(),
	})
}

// isRejection 拒绝类错误是正常业务结果，以 200 + reason 返回。
func isRejection(err error) bool {
	return errors.Is(err, guard.ErrStaleReference) ||
		errors.Is(err, guard.ErrSizeExceeded) ||
		errors.Is(err, guard.ErrCriticalDeviation)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
