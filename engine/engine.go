package engine

import (
	"context"
	"log"
	"sync"
	"time"

	"tmscore/config"
	"tmscore/planner"
	"tmscore/store"
	"tmscore/tmsapi"
	"tmscore/tripstate"
)

type LogFunc func(format string, args ...any)

// Backend is the upstream TMS: it takes placements and answers health pings.
type Backend interface {
	planner.Backend
	Ping(ctx context.Context) (*tmsapi.PingResponse, error)
}

// Messenger is the part of the messaging client the engine drives.
type Messenger interface {
	IsConnected() bool
	Reconfigure(cfg *config.MessagingConfig) error
}

type Config struct {
	AppConfig  *config.Config
	ConfigPath string
	DB         *store.DB
	Backend    Backend
	TripState  *tripstate.Manager
	MsgClient  Messenger
	LogFunc    LogFunc
}

type Engine struct {
	cfg        *config.Config
	configPath string
	db         *store.DB
	tripState  *tripstate.Manager
	msgClient  Messenger
	planner    *planner.Planner
	Events     *EventBus
	logFn      LogFunc
	stopChan   chan struct{}

	mu               sync.Mutex
	backend          Backend
	backendConnected bool
	msgConnected     bool
}

func New(c Config) *Engine {
	logFn := c.LogFunc
	if logFn == nil {
		logFn = log.Printf
	}
	ts := c.TripState
	if ts == nil {
		ts = tripstate.NewManager(c.DB, nil)
	}
	e := &Engine{
		cfg:        c.AppConfig,
		configPath: c.ConfigPath,
		db:         c.DB,
		tripState:  ts,
		msgClient:  c.MsgClient,
		backend:    c.Backend,
		Events:     NewEventBus(),
		logFn:      logFn,
		stopChan:   make(chan struct{}),
	}
	var pb planner.Backend
	if c.Backend != nil {
		pb = c.Backend
	}
	e.planner = planner.NewPlanner(c.DB, pb, &plannerEmitter{bus: e.Events})
	return e
}

func (e *Engine) Start() {
	e.wireEventHandlers()

	e.checkConnectionStatus()
	go e.connectionHealthLoop()

	e.logFn("engine: started")
}

func (e *Engine) Stop() {
	select {
	case e.stopChan <- struct{}{}:
	default:
	}
	e.logFn("engine: stopped")
}

// Accessors
func (e *Engine) DB() *store.DB                 { return e.db }
func (e *Engine) AppConfig() *config.Config     { return e.cfg }
func (e *Engine) ConfigPath() string            { return e.configPath }
func (e *Engine) Planner() *planner.Planner     { return e.planner }
func (e *Engine) TripState() *tripstate.Manager { return e.tripState }
func (e *Engine) MsgClient() Messenger          { return e.msgClient }

// Status is the last known connectivity of the upstream backend and the broker.
type Status struct {
	BackendConfigured bool `json:"backend_configured"`
	BackendConnected  bool `json:"backend_connected"`
	MessagingUp       bool `json:"messaging_connected"`
}

func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Status{
		BackendConfigured: e.backend != nil,
		BackendConnected:  e.backendConnected,
		MessagingUp:       e.msgConnected,
	}
}

func (e *Engine) checkConnectionStatus() {
	e.mu.Lock()
	backend := e.backend
	e.mu.Unlock()

	if backend != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_, err := backend.Ping(ctx)
		cancel()
		e.transition(&e.backendConnected, err == nil, EventBackendConnected, EventBackendDisconnected, "backend", err)
	}

	if e.msgClient != nil {
		e.transition(&e.msgConnected, e.msgClient.IsConnected(), EventMessagingConnected, EventMessagingDisconnected, "messaging", nil)
	}
}

// transition flips *flag and emits the matching event when the state changed.
func (e *Engine) transition(flag *bool, up bool, onUp, onDown EventType, name string, err error) {
	e.mu.Lock()
	changed := *flag != up
	*flag = up
	e.mu.Unlock()
	if !changed {
		return
	}
	if up {
		e.Events.Emit(Event{Type: onUp, Payload: ConnectionEvent{Detail: name + " connected"}})
		return
	}
	detail := name + " disconnected"
	if err != nil {
		detail = err.Error()
	}
	e.Events.Emit(Event{Type: onDown, Payload: ConnectionEvent{Detail: detail}})
}

func (e *Engine) connectionHealthLoop() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-e.stopChan:
			return
		case <-ticker.C:
			e.checkConnectionStatus()
		}
	}
}

// ReconfigureBackend applies backend config changes live. An empty base URL
// turns upstream placement sync off.
func (e *Engine) ReconfigureBackend() {
	bc := e.cfg.Backend
	e.mu.Lock()
	switch {
	case bc.BaseURL == "":
		e.backend = nil
		e.backendConnected = false
		e.planner.SetBackend(nil)
	default:
		if c, ok := e.backend.(*tmsapi.Client); ok {
			c.Reconfigure(bc.BaseURL, bc.Token, bc.Timeout)
		} else {
			c := tmsapi.NewClient(bc.BaseURL, bc.Token, bc.Timeout)
			e.backend = c
			e.planner.SetBackend(c)
		}
	}
	e.mu.Unlock()
	e.logFn("engine: backend reconfigured (%q)", bc.BaseURL)
	e.checkConnectionStatus()
}

// ReconfigureMessaging reconnects messaging with current config.
func (e *Engine) ReconfigureMessaging() {
	if e.msgClient == nil {
		return
	}
	if err := e.msgClient.Reconfigure(&e.cfg.Messaging); err != nil {
		e.logFn("engine: messaging reconfigure error: %v", err)
	} else {
		e.logFn("engine: messaging reconfigured")
	}
	e.checkConnectionStatus()
}
