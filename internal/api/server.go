package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"kvbench/internal/events"
	"kvbench/internal/logger"
	"kvbench/internal/metrics"
	"kvbench/internal/protocol"
	"kvbench/internal/scenario"

	"golang.org/x/net/websocket"
)

// Server はベンチマークを起動し結果を配信するAPIサーバー
type Server struct {
	addr     string
	defaults scenario.Config
	bus      *events.Bus

	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once

	mu         sync.RWMutex
	running    bool
	engine     *scenario.Engine
	config     scenario.Config
	runCancel  context.CancelFunc
	results    []scenario.ResultSummary
	lastError  string
	errorClass string
	wsClients  map[*websocket.Conn]bool

	server *http.Server
}

// NewServer は新しいAPIサーバーを作成する
// defaults はリクエストで指定されなかった接続先や設定に使う
func NewServer(addr string, defaults scenario.Config) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		addr:      addr,
		defaults:  defaults,
		bus:       events.NewBus(),
		ctx:       ctx,
		cancel:    cancel,
		wsClients: make(map[*websocket.Conn]bool),
	}
}

// Bus はイベントバスを返す
func (s *Server) Bus() *events.Bus {
	return s.bus
}

// Handler はルーティング済みのハンドラを返す
// 初回呼び出しでイベント配信を開始する
func (s *Server) Handler() http.Handler {
	s.once.Do(func() {
		go s.forwardEvents(s.bus.Subscribe())
		go s.broadcastLoop()
	})

	mux := http.NewServeMux()

	// API routes
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/results", s.handleResults)
	mux.HandleFunc("/api/metrics", s.handleMetrics)
	mux.HandleFunc("/api/events", s.handleEvents)
	mux.HandleFunc("/api/presets", s.handlePresets)
	mux.HandleFunc("/api/benchmark/start", s.handleBenchmarkStart)
	mux.HandleFunc("/api/benchmark/stop", s.handleBenchmarkStop)

	// WebSocket
	mux.Handle("/ws", websocket.Handler(s.handleWebSocket))

	return mux
}

// Start はサーバーを開始し、ctx がキャンセルされるまでブロックする
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("api", "API Server starting on http://%s", s.addr)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
		s.Close()
	}()

	if err := s.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close は実行中のベンチマークを止め、イベント配信を終了する
func (s *Server) Close() {
	s.cancel()
	s.bus.Close()
}

// StatusResponse はステータスレスポンス
type StatusResponse struct {
	Running     bool   `json:"running"`
	Benchmark   string `json:"benchmark,omitempty"`
	Target      string `json:"target,omitempty"`
	Mode        string `json:"mode,omitempty"`
	Ops         int    `json:"ops,omitempty"`
	Connections int    `json:"connections,omitempty"`
	Completed   int    `json:"completed"`
	LastError   string `json:"last_error,omitempty"`
	ErrorClass  string `json:"error_class,omitempty"`
}

func (s *Server) status() StatusResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()

	resp := StatusResponse{
		Running:    s.running,
		Completed:  len(s.results),
		LastError:  s.lastError,
		ErrorClass: s.errorClass,
	}
	if s.config.Name != "" {
		resp.Benchmark = s.config.Name
		resp.Target = s.config.Target()
		resp.Mode = string(s.config.Mode)
		resp.Ops = s.config.Ops
		resp.Connections = s.config.Connections
	}
	if s.running && s.engine != nil {
		resp.Completed = len(s.engine.Results())
	}
	return resp
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, s.status())
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.mu.RLock()
	results := s.results
	if s.running && s.engine != nil {
		results = scenario.Summarize(s.engine.Results())
	}
	s.mu.RUnlock()

	if results == nil {
		results = []scenario.ResultSummary{}
	}
	s.writeJSON(w, results)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.mu.RLock()
	engine := s.engine
	s.mu.RUnlock()

	if engine == nil {
		s.writeJSON(w, metrics.Snapshot{})
		return
	}
	s.writeJSON(w, engine.Metrics())
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, s.bus.History())
}

// BenchmarkRequest はベンチマーク開始リクエスト
// 指定のないフィールドはプリセット、次にサーバーの既定値を使う
type BenchmarkRequest struct {
	Preset      string   `json:"preset,omitempty"`
	Host        string   `json:"host,omitempty"`
	Port        int      `json:"port,omitempty"`
	Ops         int      `json:"ops,omitempty"`
	ValueSize   int      `json:"value_size,omitempty"`
	Mode        string   `json:"mode,omitempty"`
	ReadRatio   *float64 `json:"read_ratio,omitempty"`
	Connections int      `json:"connections,omitempty"`
	Timeout     string   `json:"timeout,omitempty"`
	Framing     string   `json:"framing,omitempty"`
	Seed        int64    `json:"seed,omitempty"`
}

func (s *Server) buildConfig(req BenchmarkRequest) (scenario.Config, error) {
	config := s.defaults
	if req.Preset != "" {
		preset, ok := scenario.GetPreset(req.Preset)
		if !ok {
			return config, errors.New("unknown preset: " + req.Preset)
		}
		preset.Host, preset.Port = s.defaults.Host, s.defaults.Port
		preset.Timeout, preset.DialTimeout = s.defaults.Timeout, s.defaults.DialTimeout
		preset.Framing = s.defaults.Framing
		config = preset
	}

	// オーバーライド
	if req.Host != "" {
		config.Host = req.Host
	}
	if req.Port > 0 {
		config.Port = req.Port
	}
	if req.Ops > 0 {
		config.Ops = req.Ops
	}
	if req.ValueSize > 0 {
		config.ValueSize = req.ValueSize
	}
	if req.Mode != "" {
		mode, err := scenario.ParseMode(req.Mode)
		if err != nil {
			return config, err
		}
		config.Mode = mode
	}
	if req.ReadRatio != nil {
		config.ReadRatio = *req.ReadRatio
	}
	if req.Connections > 0 {
		config.Connections = req.Connections
	}
	if req.Timeout != "" {
		d, err := time.ParseDuration(req.Timeout)
		if err != nil {
			return config, err
		}
		config.Timeout = d
	}
	if req.Framing != "" {
		framing, err := protocol.ParseFraming(req.Framing)
		if err != nil {
			return config, err
		}
		config.Framing = framing
	}
	if req.Seed != 0 {
		config.Seed = req.Seed
	}

	return config, config.Validate()
}

func (s *Server) handleBenchmarkStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req BenchmarkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	config, err := s.buildConfig(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		http.Error(w, "Benchmark already running", http.StatusConflict)
		return
	}

	engine := scenario.New(config)
	engine.SetEventBus(s.bus)

	runCtx, cancel := context.WithCancel(s.ctx)
	s.config = config
	s.engine = engine
	s.runCancel = cancel
	s.running = true
	s.results = nil
	s.lastError = ""
	s.errorClass = ""
	s.mu.Unlock()

	// バックグラウンドで実行
	go func() {
		defer cancel()
		results, err := engine.Run(runCtx)

		s.mu.Lock()
		s.running = false
		s.runCancel = nil
		if err != nil {
			s.lastError = err.Error()
			s.errorClass = scenario.Classify(err).String()
			s.results = scenario.Summarize(engine.Results())
		} else {
			s.results = scenario.Summarize(results)
		}
		s.mu.Unlock()

		if err != nil {
			logger.Error("api", "Benchmark failed: %v", err)
		} else {
			logger.Info("api", "Benchmark completed: %d workloads", len(results))
		}
	}()

	s.writeJSONStatus(w, http.StatusAccepted, map[string]string{"status": "started", "benchmark": config.Name, "target": config.Target()})
}

func (s *Server) handleBenchmarkStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.mu.Lock()
	if !s.running || s.runCancel == nil {
		s.mu.Unlock()
		http.Error(w, "No benchmark running", http.StatusBadRequest)
		return
	}
	s.runCancel()
	s.mu.Unlock()

	s.writeJSON(w, map[string]string{"status": "stop requested"})
}

// PresetInfo はプリセット情報
type PresetInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Ops         int    `json:"ops"`
	Mode        string `json:"mode"`
	Connections int    `json:"connections"`
}

func (s *Server) handlePresets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	presets := make([]PresetInfo, 0, len(scenario.ListPresets()))
	for _, name := range scenario.ListPresets() {
		config, _ := scenario.GetPreset(name)
		presets = append(presets, PresetInfo{
			Name:        name,
			Description: config.Description,
			Ops:         config.Ops,
			Mode:        string(config.Mode),
			Connections: config.Connections,
		})
	}

	s.writeJSON(w, presets)
}

// Message はWebSocketで配信するメッセージ
type Message struct {
	Type    string            `json:"type"`
	Event   *events.Event     `json:"event,omitempty"`
	Metrics *metrics.Snapshot `json:"metrics,omitempty"`
	Status  *StatusResponse   `json:"status,omitempty"`
}

// WebSocket handling
func (s *Server) handleWebSocket(ws *websocket.Conn) {
	s.mu.Lock()
	s.wsClients[ws] = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.wsClients, ws)
		s.mu.Unlock()
		_ = ws.Close()
	}()

	// 接続直後に現在の状態を送る
	status := s.status()
	_ = websocket.JSON.Send(ws, Message{Type: "status", Status: &status})

	// Keep connection alive
	for {
		var msg string
		if err := websocket.Message.Receive(ws, &msg); err != nil {
			break
		}
	}
}

// ClientCount は接続中のWebSocketクライアント数を返す
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.wsClients)
}

func (s *Server) broadcast(msg Message) {
	s.mu.RLock()
	clients := make([]*websocket.Conn, 0, len(s.wsClients))
	for ws := range s.wsClients {
		clients = append(clients, ws)
	}
	s.mu.RUnlock()

	for _, ws := range clients {
		if err := websocket.JSON.Send(ws, msg); err != nil {
			logger.Debug("api", "WebSocket send failed: %v", err)
		}
	}
}

// forwardEvents はバスのイベントをWebSocketクライアントへ流す
func (s *Server) forwardEvents(ch <-chan events.Event) {
	for ev := range ch {
		s.broadcast(Message{Type: "event", Event: &ev})
	}
}

// broadcastLoop は実行中のみ1秒ごとに途中経過を配信する
func (s *Server) broadcastLoop() {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.mu.RLock()
			engine := s.engine
			running := s.running
			s.mu.RUnlock()

			if !running || engine == nil {
				continue
			}
			s.broadcast(Message{Type: "metrics", Metrics: engine.Metrics()})
		}
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, data any) {
	s.writeJSONStatus(w, http.StatusOK, data)
}

func (s *Server) writeJSONStatus(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("api", "Failed to encode JSON: %v", err)
	}
}
