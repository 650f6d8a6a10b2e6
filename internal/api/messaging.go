package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/pribylovaa/dashboard-client/internal/apiclient"
	"github.com/pribylovaa/dashboard-client/internal/models"
)

// DefaultMessagesLimit — размер страницы сообщений диалога по умолчанию.
const DefaultMessagesLimit = 50

type MessagingAPI struct {
	c *apiclient.Client
}

func (m *MessagingAPI) Send(ctx context.Context, req models.SendMessageRequest) (*models.Message, error) {
	data, err := m.c.Post(ctx, "/messages", req)
	if err != nil {
		return nil, err
	}

	msg, err := decode[models.Message]("api.Messaging.Send", data)
	if err != nil {
		return nil, err
	}

	return &msg, nil
}

func (m *MessagingAPI) Conversations(ctx context.Context) ([]models.Conversation, error) {
	data, err := m.c.Get(ctx, "/messages/conversations", nil)
	if err != nil {
		return nil, err
	}

	return decodeList[models.Conversation]("api.Messaging.Conversations", data, "conversations")
}

// Messages — сообщения диалога; limit <= 0 заменяется на DefaultMessagesLimit.
func (m *MessagingAPI) Messages(ctx context.Context, conversationID string, limit int) ([]models.Message, error) {
	if limit <= 0 {
		limit = DefaultMessagesLimit
	}

	data, err := m.c.Get(ctx, "/messages", url.Values{
		"conversation_id": {conversationID},
		"limit":           {strconv.Itoa(limit)},
	})
	if err != nil {
		return nil, err
	}

	return decodeList[models.Message]("api.Messaging.Messages", data, "messages")
}

func (m *MessagingAPI) MarkRead(ctx context.Context, messageID string) error {
	_, err := m.c.Post(ctx, "/messages/read", models.MarkMessageReadRequest{MessageID: messageID})
	return err
}

func (m *MessagingAPI) UnreadCount(ctx context.Context) (int, error) {
	return unreadCount(ctx, m.c, "/messages/unread-count")
}

// unreadCount читает счётчик из data.count, data или корня ответа.
func unreadCount(ctx context.Context, c *apiclient.Client, path string) (int, error) {
	resp, err := c.Send(ctx, path, apiclient.RequestOptions{Method: http.MethodGet})
	if err != nil {
		return 0, err
	}

	return models.CountFrom(resp.Data, resp.Raw), nil
}
