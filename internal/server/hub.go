package server

import (
	"context"
	"crypto/rand"
	"log/slog"
	"math/big"
	"sort"
	"strings"
	"time"

	"github.com/ravipandeydu/interview-pro-sub002/internal/signaling"
)

const (
	presenceTimeout = 2 * time.Second
	codeWords       = 4
)

// Room is the set of participants sharing a room id.
type Room struct {
	ID      string
	members map[string]*Client
}

// others returns the members other than except, oldest first.
func (r *Room) others(except *Client) []*Client {
	out := make([]*Client, 0, len(r.members))
	for _, c := range r.members {
		if c != except {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].joinedAt.Equal(out[j].joinedAt) {
			return out[i].joinedAt.Before(out[j].joinedAt)
		}
		return out[i].id < out[j].id
	})
	return out
}

type inbound struct {
	client *Client
	msg    *signaling.Message
}

// Hub owns every room and client. All membership changes and relays happen
// on the goroutine running Run.
type Hub struct {
	rooms   map[string]*Room
	clients map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	inbound    chan inbound
	codes      chan chan string
	done       chan struct{}

	presence Presence
	logger   *slog.Logger
}

// NewHub creates a hub that mirrors membership into presence.
func NewHub(presence Presence, logger *slog.Logger) *Hub {
	if presence == nil {
		presence = NewMemoryPresence()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		rooms:      make(map[string]*Room),
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbound:    make(chan inbound),
		codes:      make(chan chan string),
		done:       make(chan struct{}),
		presence:   presence,
		logger:     logger,
	}
}

// Presence returns the membership store the hub writes to.
func (h *Hub) Presence() Presence {
	return h.presence
}

// Run processes hub events until ctx is cancelled. Remaining connections
// are closed on return.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				h.drop(c)
			}
			h.logger.Info("hub stopped")
			return nil

		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.logger.Debug("client registered", "client", c.id, "role", c.role)

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				h.logger.Debug("client unregistered", "client", c.id)
				h.drop(c)
			}

		case in := <-h.inbound:
			if _, ok := h.clients[in.client]; !ok {
				continue
			}
			h.handle(in.client, in.msg)

		case reply := <-h.codes:
			reply <- generateRoomCode(func(code string) bool {
				_, ok := h.rooms[code]
				return ok
			})
		}
	}
}

func (h *Hub) registerClient(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) unregisterClient(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// submit hands a message from c to the loop. A nil msg reports one that
// could not be decoded.
func (h *Hub) submit(c *Client, msg *signaling.Message) bool {
	select {
	case h.inbound <- inbound{client: c, msg: msg}:
		return true
	case <-h.done:
		return false
	}
}

// NewRoomCode returns a memorable code not used by any open room.
func (h *Hub) NewRoomCode(ctx context.Context) (string, error) {
	reply := make(chan string, 1)
	select {
	case h.codes <- reply:
	case <-h.done:
		return "", context.Canceled
	case <-ctx.Done():
		return "", ctx.Err()
	}
	return <-reply, nil
}

func (h *Hub) handle(c *Client, msg *signaling.Message) {
	if msg == nil {
		h.deliver(c, signaling.ErrorMessage("malformed message"))
		return
	}

	switch msg.Type {
	case signaling.TypeJoin:
		h.join(c, strings.TrimSpace(msg.RoomID))

	case signaling.TypeLeaveRoom:
		h.leave(c)

	case signaling.TypeOffer, signaling.TypeAnswer, signaling.TypeICECandidate:
		h.relay(c, msg)

	case signaling.TypeScreenShareUpdate:
		room, ok := h.rooms[c.roomID]
		if !ok {
			h.deliver(c, signaling.ErrorMessage("You must join a room first"))
			return
		}
		update := signaling.ScreenShareUpdate(msg.IsSharing)
		update.ID = c.id
		h.broadcast(room, c, update)

	default:
		h.logger.Debug("unknown message type", "client", c.id, "type", msg.Type)
		h.deliver(c, signaling.ErrorMessage("unknown message type "+msg.Type))
	}
}

func (h *Hub) join(c *Client, roomID string) {
	if roomID == "" {
		h.deliver(c, signaling.ErrorMessage("room id required"))
		return
	}
	if c.roomID != "" && c.roomID != roomID {
		h.leave(c)
	}

	room, ok := h.rooms[roomID]
	if !ok {
		room = &Room{ID: roomID, members: make(map[string]*Client)}
		h.rooms[roomID] = room
		h.logger.Info("room opened", "room", roomID)
	}

	present := room.others(c)
	participants := make([]signaling.Participant, len(present))
	for i, other := range present {
		participants[i] = other.participant()
	}

	// A repeated join only refreshes the member list.
	if c.roomID == roomID {
		h.deliver(c, signaling.UsersInRoom(c.id, participants))
		return
	}

	c.roomID = roomID
	c.joinedAt = time.Now().UTC()

	// The member list goes out first. A client dropped as too slow never
	// becomes a member and is not announced.
	h.deliver(c, signaling.UsersInRoom(c.id, participants))
	if _, ok := h.clients[c]; !ok {
		if len(room.members) == 0 {
			delete(h.rooms, roomID)
		}
		return
	}
	room.members[c.id] = c

	h.logger.Info("participant joined", "room", roomID, "client", c.id, "role", c.role, "present", len(present))
	h.broadcast(room, c, signaling.UserJoined(c.participant()))
	h.mirror(func(ctx context.Context) error {
		return h.presence.Add(ctx, roomID, c.participant())
	})
}

func (h *Hub) leave(c *Client) {
	room, ok := h.rooms[c.roomID]
	c.roomID = ""
	if !ok {
		return
	}
	if _, member := room.members[c.id]; !member {
		return
	}

	delete(room.members, c.id)
	h.logger.Info("participant left", "room", room.ID, "client", c.id)
	h.broadcast(room, c, signaling.UserLeft(c.id))
	h.mirror(func(ctx context.Context) error {
		return h.presence.Remove(ctx, room.ID, c.id)
	})

	if len(room.members) == 0 {
		delete(h.rooms, room.ID)
		h.logger.Info("room closed", "room", room.ID)
	}
}

// relay forwards a negotiation message to its target with the sender
// stamped in from.
func (h *Hub) relay(c *Client, msg *signaling.Message) {
	room, ok := h.rooms[c.roomID]
	if !ok {
		h.deliver(c, signaling.ErrorMessage("You must join a room first"))
		return
	}
	target, ok := room.members[msg.Target]
	if !ok || target == c {
		h.logger.Debug("relay target not in room", "room", room.ID, "client", c.id, "target", msg.Target)
		h.deliver(c, signaling.ErrorMessage("participant "+msg.Target+" is not in the room"))
		return
	}

	out := *msg
	out.From = c.id
	out.RoomID = ""
	h.deliver(target, &out)
}

func (h *Hub) broadcast(room *Room, except *Client, msg *signaling.Message) {
	for _, c := range room.others(except) {
		h.deliver(c, msg)
	}
}

// deliver queues msg for c. A client that cannot keep up is dropped.
func (h *Hub) deliver(c *Client, msg *signaling.Message) {
	select {
	case c.send <- msg:
	default:
		h.logger.Warn("client too slow, dropping", "client", c.id)
		h.drop(c)
	}
}

// drop removes c from its room and closes its send queue, which ends the
// write pump.
func (h *Hub) drop(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	h.leave(c)
	close(c.send)
}

func (h *Hub) mirror(fn func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), presenceTimeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		h.logger.Warn("presence update failed", "err", err)
	}
}

// generateRoomCode joins words from distinct pools with hyphens,
// e.g. "otter-maple-cobalt-brave". It retries while taken reports a clash.
func generateRoomCode(taken func(string) bool) string {
	for {
		pools := make([]int, len(wordPools))
		for i := range pools {
			pools[i] = i
		}
		// Partial Fisher-Yates picks codeWords distinct pools.
		words := make([]string, 0, codeWords)
		for i := 0; i < codeWords; i++ {
			j := i + randomIndex(len(pools)-i)
			pools[i], pools[j] = pools[j], pools[i]
			pool := wordPools[pools[i]]
			words = append(words, pool[randomIndex(len(pool))])
		}

		code := strings.Join(words, "-")
		if !taken(code) {
			return code
		}
	}
}

// randomIndex returns a uniformly random index below max.
func randomIndex(max int) int {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		panic("crypto/rand unavailable: " + err.Error())
	}
	return int(n.Int64())
}
