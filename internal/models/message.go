package models

import "time"

const (
	dateLayout = "January 02, 2006"
	timeLayout = "03:04 PM"
)

// Media is an inline attachment carried inside a message.
type Media struct {
	Type string `json:"type" cbor:"1,keyasint"`
	Name string `json:"name" cbor:"2,keyasint"`
	Data string `json:"data" cbor:"3,keyasint"`
}

// Message is the plaintext form of a chat message. Inside a room it only
// exists encrypted; see codec.
type Message struct {
	ID        string   `json:"id" cbor:"1,keyasint"`
	UserID    string   `json:"user_id" cbor:"2,keyasint"`
	Username  string   `json:"username,omitempty" cbor:"3,keyasint,omitempty"`
	ClientIP  string   `json:"client_ip,omitempty" cbor:"4,keyasint,omitempty"`
	Body      string   `json:"message" cbor:"5,keyasint"`
	Media     *Media   `json:"media,omitempty" cbor:"6,keyasint,omitempty"`
	Timestamp int64    `json:"timestamp" cbor:"7,keyasint"`
	Date      string   `json:"date" cbor:"8,keyasint"`
	Time      string   `json:"time" cbor:"9,keyasint"`
	ReadBy    []string `json:"read_by" cbor:"10,keyasint"`
}

// NewMessage is the caller-supplied part of a message.
type NewMessage struct {
	UserID   string
	Username string
	ClientIP string
	Body     string
	Media    *Media
}

// MessageView is a message annotated for one reader.
type MessageView struct {
	Message
	IsSent    bool `json:"is_sent"`
	IsRead    bool `json:"is_read"`
	ReadCount int  `json:"read_count"`
}

// Stamp sets the timestamp and the derived display date and time.
func (m *Message) Stamp(t time.Time) {
	m.Timestamp = t.UnixMilli()
	m.Date = t.Format(dateLayout)
	m.Time = t.Format(timeLayout)
}

// HasReader reports whether userID is in the read set.
func (m *Message) HasReader(userID string) bool {
	for _, id := range m.ReadBy {
		if id == userID {
			return true
		}
	}
	return false
}

// AddReader adds userID to the read set and reports whether it was new.
func (m *Message) AddReader(userID string) bool {
	if m.HasReader(userID) {
		return false
	}
	m.ReadBy = append(m.ReadBy, userID)
	return true
}

// ViewFor annotates the message for reader. The sender sees whether anyone
// else has read it; everybody else sees whether they have.
func (m *Message) ViewFor(reader string) MessageView {
	v := MessageView{
		Message:   *m,
		IsSent:    m.UserID == reader,
		ReadCount: len(m.ReadBy),
	}
	v.ReadBy = append([]string(nil), m.ReadBy...)
	if v.IsSent {
		v.IsRead = v.ReadCount > 1
	} else {
		v.IsRead = m.HasReader(reader)
	}
	return v
}
