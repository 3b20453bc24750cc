package signaling

import (
	"time"

	pion "github.com/pion/webrtc/v4"
)

// Message is the single envelope for every event exchanged with the room
// coordination service. Type selects which of the other fields are set.
type Message struct {
	Type         string                 `json:"type"`
	RoomID       string                 `json:"roomId,omitempty"`
	ID           string                 `json:"id,omitempty"`
	IDs          []string               `json:"ids,omitempty"`
	Participants []Participant          `json:"participants,omitempty"`
	Role         string                 `json:"role,omitempty"`
	From         string                 `json:"from,omitempty"`
	Target       string                 `json:"target,omitempty"`
	SDU          string                 `json:"sdu,omitempty"`
	Candidate    *pion.ICECandidateInit `json:"candidate,omitempty"`
	IsSharing    bool                   `json:"isSharing,omitempty"`
	Error        string                 `json:"error,omitempty"`
}

// Message type constants.
const (
	TypeJoin      = "join"
	TypeLeaveRoom = "leaveRoom"

	TypeUsersInRoom = "usersInRoom"
	TypeUserJoined  = "userJoined"
	TypeUserLeft    = "userLeft"

	TypeOffer        = "offer"
	TypeAnswer       = "answer"
	TypeICECandidate = "iceCandidate"

	TypeScreenShareUpdate = "screenShareUpdate"
	TypeError             = "error"
)

// Participant roles.
const (
	RoleCandidate = "candidate"
	RoleRecruiter = "recruiter"
	RoleAdmin     = "admin"
)

// Participant is one member of a room as seen by the coordination service.
type Participant struct {
	ID       string    `json:"id" msgpack:"id"`
	UserID   string    `json:"userId,omitempty" msgpack:"user_id"`
	Role     string    `json:"role" msgpack:"role"`
	JoinedAt time.Time `json:"joinedAt" msgpack:"joined_at"`
}

// ValidRole reports whether role is one the service hands out.
func ValidRole(role string) bool {
	switch role {
	case RoleCandidate, RoleRecruiter, RoleAdmin:
		return true
	}
	return false
}

func Join(roomID string) *Message {
	return &Message{Type: TypeJoin, RoomID: roomID}
}

func LeaveRoom(roomID string) *Message {
	return &Message{Type: TypeLeaveRoom, RoomID: roomID}
}

// UsersInRoom tells a newcomer its own id and who was already present.
func UsersInRoom(self string, present []Participant) *Message {
	ids := make([]string, len(present))
	for i, p := range present {
		ids[i] = p.ID
	}
	return &Message{Type: TypeUsersInRoom, ID: self, IDs: ids, Participants: present}
}

func UserJoined(p Participant) *Message {
	return &Message{Type: TypeUserJoined, ID: p.ID, Role: p.Role, Participants: []Participant{p}}
}

func UserLeft(id string) *Message {
	return &Message{Type: TypeUserLeft, ID: id}
}

func Offer(target, sdu string) *Message {
	return &Message{Type: TypeOffer, Target: target, SDU: sdu}
}

func Answer(target, sdu string) *Message {
	return &Message{Type: TypeAnswer, Target: target, SDU: sdu}
}

func ICECandidate(target string, candidate pion.ICECandidateInit) *Message {
	return &Message{Type: TypeICECandidate, Target: target, Candidate: &candidate}
}

func ScreenShareUpdate(isSharing bool) *Message {
	return &Message{Type: TypeScreenShareUpdate, IsSharing: isSharing}
}

func ErrorMessage(text string) *Message {
	return &Message{Type: TypeError, Error: text}
}

// Relayed reports whether the message is addressed to a single participant
// and forwarded by the service.
func (m *Message) Relayed() bool {
	switch m.Type {
	case TypeOffer, TypeAnswer, TypeICECandidate:
		return true
	}
	return false
}
