package model

import "time"

// TicketStatus is the support ticket lifecycle enum.
type TicketStatus string

const (
	TicketOpen          TicketStatus = "open"
	TicketAwaitingUser  TicketStatus = "awaiting_user"
	TicketAwaitingAdmin TicketStatus = "awaiting_admin"
	TicketResolved      TicketStatus = "resolved"
	TicketClosed        TicketStatus = "closed"
)

// Valid reports whether s is a known status value.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketOpen, TicketAwaitingUser, TicketAwaitingAdmin, TicketResolved, TicketClosed:
		return true
	}
	return false
}

// Ticket is a support ticket with its message thread.
type Ticket struct {
	ID        string          `json:"id"`
	Subject   string          `json:"subject"`
	Status    TicketStatus    `json:"status"`
	Messages  []TicketMessage `json:"messages,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// TicketMessage is one entry of a ticket thread.
type TicketMessage struct {
	ID        string    `json:"id"`
	TicketID  string    `json:"ticket_id"`
	Body      string    `json:"body"`
	FromAdmin bool      `json:"from_admin"`
	CreatedAt time.Time `json:"created_at"`
}
