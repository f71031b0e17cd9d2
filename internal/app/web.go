// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gorilla/websocket"

	"github.com/relabs-tech/odometry_computer/internal/config"
	"github.com/relabs-tech/odometry_computer/internal/telemetry"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsClient serializes writes to one websocket connection.
type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsClient) send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

// poseHub keeps the latest pose and streams every new one to connected
// websocket clients.
type poseHub struct {
	mu       sync.RWMutex
	last     telemetry.PoseMessage
	havePose bool
	clients  map[*wsClient]struct{}
}

func newPoseHub() *poseHub {
	return &poseHub{clients: make(map[*wsClient]struct{})}
}

// update stores p and broadcasts it. Clients that fail a write are dropped.
func (h *poseHub) update(p telemetry.PoseMessage) {
	payload, err := json.Marshal(p)
	if err != nil {
		log.Printf("web: json marshal error: %v", err)
		return
	}

	h.mu.Lock()
	h.last = p
	h.havePose = true
	clients := make([]*wsClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		if err := c.send(payload); err != nil {
			log.Printf("web: websocket write error, dropping client: %v", err)
			h.remove(c)
		}
	}
}

func (h *poseHub) latest() (telemetry.PoseMessage, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.last, h.havePose
}

func (h *poseHub) add(c *wsClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *poseHub) remove(c *wsClient) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()
	if ok {
		c.conn.Close()
	}
}

func (h *poseHub) clientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// handlePose serves the latest pose as JSON.
func (h *poseHub) handlePose(w http.ResponseWriter, r *http.Request) {
	p, ok := h.latest()
	if !ok {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(p); err != nil {
		log.Printf("web: json encode error: %v", err)
	}
}

// handleWS upgrades the connection and registers it for pose updates. The
// latest pose, if any, is sent right away. Registration and that first write
// share the client's write lock, so concurrent updates follow the snapshot.
func (h *poseHub) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("web: websocket upgrade error: %v", err)
		return
	}
	c := &wsClient{conn: conn}

	c.mu.Lock()
	h.add(c)
	if p, ok := h.latest(); ok {
		if payload, err := json.Marshal(p); err == nil {
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.mu.Unlock()
				h.remove(c)
				return
			}
		}
	}
	c.mu.Unlock()

	// Drain reads so close frames are handled.
	go func() {
		defer h.remove(c)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *poseHub) routes(staticDir string) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/pose", h.handlePose)
	mux.HandleFunc("/ws", h.handleWS)
	if staticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(staticDir)))
	}
	return mux
}

func RunWeb() error {
	cfg := config.Get()
	hub := newPoseHub()

	// 1) Connect to MQTT broker
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDWeb)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	defer client.Disconnect(250)
	log.Printf("web: connected to MQTT broker at %s", cfg.MQTTBroker)

	// 2) Subscribe to pose topic and fan each message out
	token := client.Subscribe(cfg.TopicPose, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var p telemetry.PoseMessage
		if err := json.Unmarshal(msg.Payload(), &p); err != nil {
			log.Printf("web: MQTT payload unmarshal error: %v", err)
			return
		}
		hub.update(p)
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Printf("web: subscribed to MQTT topic %s", cfg.TopicPose)

	// 3) API, websocket stream and static files
	addr := fmt.Sprintf(":%d", cfg.WebServerPort)
	log.Printf("web: server listening on %s", addr)
	return http.ListenAndServe(addr, hub.routes(cfg.WebStaticDir))
}
