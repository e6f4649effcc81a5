package api

import (
	"context"
	"fmt"

	"forumkit/internal/model"
)

// ListTickets fetches the caller's support tickets (admins see all).
func (c *Client) ListTickets(ctx context.Context) ([]model.Ticket, error) {
	var out struct {
		Tickets []model.Ticket `json:"tickets"`
	}
	err := c.get(ctx, "/api/support/tickets", nil, &out)
	return out.Tickets, err
}

// GetTicket fetches one ticket with its full message thread.
func (c *Client) GetTicket(ctx context.Context, id string) (model.Ticket, error) {
	var out model.Ticket
	err := c.get(ctx, "/api/support/tickets/"+id, nil, &out)
	return out, err
}

// CreateTicket opens a new support ticket.
func (c *Client) CreateTicket(ctx context.Context, subject, body string) (model.Ticket, error) {
	in := map[string]string{"subject": subject, "body": body}

	var out model.Ticket
	err := c.post(ctx, "/api/support/tickets", in, &out)
	return out, err
}

// ReplyTicket appends a message to the ticket thread. The backend flips the
// status between awaiting_user and awaiting_admin based on who replied.
func (c *Client) ReplyTicket(ctx context.Context, id, body string) (model.TicketMessage, error) {
	in := map[string]string{"body": body}

	var out model.TicketMessage
	err := c.post(ctx, "/api/support/tickets/"+id+"/messages", in, &out)
	return out, err
}

// SetTicketStatus transitions a ticket (admin only). Unknown status values
// are rejected locally before any request is made.
func (c *Client) SetTicketStatus(ctx context.Context, id string, status model.TicketStatus) error {
	if !status.Valid() {
		return fmt.Errorf("invalid ticket status %q", status)
	}
	in := map[string]string{"status": string(status)}
	return c.put(ctx, "/api/support/tickets/"+id+"/status", in, nil)
}
