package queue

import (
	"encoding/json"
	"strings"
)

// MessageVersion is bumped when the payload shape changes.
const MessageVersion = 2

// Message asks a worker to run one queued resume generation. The reservation
// fields let the worker refund the credit if generation fails.
type Message struct {
	ResumeID      string `json:"resumeId"`
	UserID        string `json:"userId"`
	ReservationID string `json:"reservationId"`
	Credits       int    `json:"credits"`
	RequestID     string `json:"requestId"`
	EnqueuedAt    string `json:"enqueuedAt"`
	Version       int    `json:"version"`
}

// Missing names the first id a worker needs but the message lacks, or "".
func (m Message) Missing() string {
	switch {
	case strings.TrimSpace(m.ResumeID) == "":
		return "resume id"
	case strings.TrimSpace(m.UserID) == "":
		return "user id"
	case strings.TrimSpace(m.ReservationID) == "":
		return "reservation id"
	}
	return ""
}

func EncodeMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

func DecodeMessage(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}
