package gateway

import "encoding/json"

// Inbound message types.
const (
	MsgCheckRoomStatus = "check_room_status"
	MsgInitializeRoom  = "initialize_room"
	MsgJoinRoom        = "join_room"
	MsgMove            = "move"
)

// Outbound message types sent directly to one connection. Room-wide events
// arrive through the broadcast bus and keep their bus names.
const (
	MsgRoomStatus = "room_status"
	MsgInit       = "init"
)

// Event is the websocket frame: a type tag plus an opaque payload.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func NewEvent(typ string, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{Type: typ, Payload: data}, nil
}

// roomRef decodes a room reference that clients send either as a bare string
// or as an object.
type roomRef struct {
	Room string
}

func (r *roomRef) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		return json.Unmarshal(b, &r.Room)
	}
	var obj struct {
		Room   string `json:"room"`
		RoomID string `json:"roomId"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	r.Room = obj.Room
	if r.Room == "" {
		r.Room = obj.RoomID
	}
	return nil
}

type initializePayload struct {
	Room   string `json:"room"`
	RoomID string `json:"roomId"`
	Time   string `json:"time"`
	Color  string `json:"color"`
}

func (p initializePayload) room() string {
	if p.Room != "" {
		return p.Room
	}
	return p.RoomID
}

type joinPayload struct {
	Room   string `json:"room"`
	RoomID string `json:"roomId"`
	Role   string `json:"role"`
}

func (p joinPayload) room() string {
	if p.Room != "" {
		return p.Room
	}
	return p.RoomID
}

type movePayload struct {
	Room      string `json:"room"`
	RoomID    string `json:"roomId"`
	From      string `json:"from"`
	To        string `json:"to"`
	Promotion string `json:"promotion"`
}

func (p movePayload) room() string {
	if p.Room != "" {
		return p.Room
	}
	return p.RoomID
}

type roomStatusPayload struct {
	Room   string `json:"room"`
	Status string `json:"status"`
}
