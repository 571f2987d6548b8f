package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
)

// Message is one mail as the gateway returns it.
type Message struct {
	ID         string    `json:"id"`
	From       string    `json:"from"`
	Subject    string    `json:"subject"`
	Body       string    `json:"body"`
	ReceivedAt time.Time `json:"received_at"`
}

// Mailbox is the mail-gateway collaborator: list unread notifications from
// one sender, acknowledge each after it has been stored.
type Mailbox interface {
	Unread(ctx context.Context, sender string, limit int) ([]Message, error)
	MarkRead(ctx context.Context, id string) error
}

type GatewayClient struct {
	http *resty.Client
}

func NewGatewayClient(baseURL string) *GatewayClient {
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second)
	return &GatewayClient{http: c}
}

func (c *GatewayClient) Unread(ctx context.Context, sender string, limit int) ([]Message, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"unread": "true",
			"sender": sender,
			"limit":  strconv.Itoa(limit),
		}).
		Get("/messages")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("mail gateway list status: %d", resp.StatusCode())
	}
	var msgs []Message
	if err := json.Unmarshal(resp.Body(), &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

func (c *GatewayClient) MarkRead(ctx context.Context, id string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", id).
		Post("/messages/{id}/read")
	if err != nil {
		return err
	}
	if resp.StatusCode() != http.StatusOK && resp.StatusCode() != http.StatusNoContent {
		return fmt.Errorf("mail gateway mark-read status: %d", resp.StatusCode())
	}
	return nil
}
