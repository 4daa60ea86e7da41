package www

import (
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"tmscore/scheduler"
)

const redacted = "********"

type configView struct {
	Database       string   `json:"database_driver"`
	Redis          string   `json:"redis_address"`
	BackendURL     string   `json:"backend_url"`
	BackendTimeout string   `json:"backend_timeout"`
	BackendToken   string   `json:"backend_token"`
	Messaging      string   `json:"messaging_backend"`
	Brokers        []string `json:"kafka_brokers"`
	MQTT           string   `json:"mqtt_broker"`
	AMQPURL        string   `json:"amqp_url"`
	StatusTopic    string   `json:"status_topic"`
	EventsTopic    string   `json:"events_topic"`
	StationID      string   `json:"station_id"`
	DefaultView    string   `json:"default_view"`
	HistoryLimit   int      `json:"history_limit"`
	BoardLimit     int      `json:"board_limit"`
}

func redact(s string) string {
	if s == "" {
		return ""
	}
	return redacted
}

func (h *Handlers) apiGetConfig(w http.ResponseWriter, r *http.Request) {
	cfg := h.engine.AppConfig()
	cfg.Lock()
	v := configView{
		Database:       cfg.Database.Driver,
		Redis:          cfg.Redis.Address,
		BackendURL:     cfg.Backend.BaseURL,
		BackendTimeout: cfg.Backend.Timeout.String(),
		BackendToken:   redact(cfg.Backend.Token),
		Messaging:      cfg.Messaging.Backend,
		Brokers:        cfg.Messaging.Kafka.Brokers,
		MQTT:           fmt.Sprintf("%s:%d", cfg.Messaging.MQTT.Broker, cfg.Messaging.MQTT.Port),
		AMQPURL:        redact(cfg.Messaging.AMQP.URL),
		StatusTopic:    cfg.Messaging.StatusTopic,
		EventsTopic:    cfg.Messaging.EventsTopic,
		StationID:      cfg.Messaging.StationID,
		DefaultView:    cfg.Scheduler.DefaultView,
		HistoryLimit:   cfg.Scheduler.HistoryLimit,
		BoardLimit:     cfg.Scheduler.BoardLimit,
	}
	cfg.Unlock()
	h.jsonOK(w, v)
}

func (h *Handlers) apiConfigSave(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	section := r.FormValue("section")
	cfg := h.engine.AppConfig()

	cfg.Lock()
	switch section {
	case "backend":
		cfg.Backend.BaseURL = strings.TrimSpace(r.FormValue("base_url"))
		if d, err := time.ParseDuration(r.FormValue("timeout")); err == nil {
			cfg.Backend.Timeout = d
		}
		if r.Form.Has("token") && r.FormValue("token") != redacted {
			cfg.Backend.Token = r.FormValue("token")
		}
	case "messaging":
		cfg.Messaging.Backend = r.FormValue("msg_backend")
		if brokers := r.FormValue("kafka_brokers"); brokers != "" {
			cfg.Messaging.Kafka.Brokers = splitTrim(brokers, ",")
		} else {
			cfg.Messaging.Kafka.Brokers = []string{}
		}
		cfg.Messaging.MQTT.Broker = r.FormValue("mqtt_broker")
		if p, err := strconv.Atoi(r.FormValue("mqtt_port")); err == nil {
			cfg.Messaging.MQTT.Port = p
		}
		if v := r.FormValue("amqp_url"); v != "" && v != redacted {
			cfg.Messaging.AMQP.URL = v
		}
		if v := r.FormValue("status_topic"); v != "" {
			cfg.Messaging.StatusTopic = v
		}
		if v := r.FormValue("events_topic"); v != "" {
			cfg.Messaging.EventsTopic = v
		}
	case "redis":
		cfg.Redis.Address = r.FormValue("redis_address")
		cfg.Redis.Password = r.FormValue("redis_password")
		if d, err := strconv.Atoi(r.FormValue("redis_db")); err == nil {
			cfg.Redis.DB = d
		}
	case "scheduler":
		cfg.Scheduler.DefaultView = string(scheduler.ParseViewMode(r.FormValue("default_view")))
		if n, err := strconv.Atoi(r.FormValue("history_limit")); err == nil && n > 0 {
			cfg.Scheduler.HistoryLimit = n
		}
		if n, err := strconv.Atoi(r.FormValue("board_limit")); err == nil && n > 0 {
			cfg.Scheduler.BoardLimit = n
		}
	default:
		cfg.Unlock()
		h.jsonError(w, "unknown section", http.StatusBadRequest)
		return
	}
	cfg.Unlock()

	if path := h.engine.ConfigPath(); path != "" {
		if err := cfg.Save(path); err != nil {
			log.Printf("config: save error: %v", err)
			h.jsonError(w, "failed to save: "+err.Error(), http.StatusInternalServerError)
			return
		}
	}

	// Hot-reload the affected subsystem
	switch section {
	case "backend":
		h.engine.ReconfigureBackend()
	case "messaging":
		h.engine.ReconfigureMessaging()
	}

	log.Printf("config: %s section saved by %s", section, getUsername(r))
	h.jsonOK(w, map[string]string{"saved": section})
}

func splitTrim(s, sep string) []string {
	parts := strings.Split(s, sep)
	var result []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
