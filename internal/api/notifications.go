package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/pribylovaa/dashboard-client/internal/apiclient"
	"github.com/pribylovaa/dashboard-client/internal/models"
)

// DefaultNotificationsLimit — размер страницы уведомлений по умолчанию.
const DefaultNotificationsLimit = 10

type NotificationsAPI struct {
	c *apiclient.Client
}

type ListNotificationsOptions struct {
	UnreadOnly bool
	Limit      int
}

func (n *NotificationsAPI) List(ctx context.Context, opts ListNotificationsOptions) ([]models.Notification, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultNotificationsLimit
	}

	data, err := n.c.Get(ctx, "/notifications", url.Values{
		"unread_only": {strconv.FormatBool(opts.UnreadOnly)},
		"limit":       {strconv.Itoa(limit)},
	})
	if err != nil {
		return nil, err
	}

	return decodeList[models.Notification]("api.Notifications.List", data, "notifications")
}

func (n *NotificationsAPI) UnreadCount(ctx context.Context) (int, error) {
	return unreadCount(ctx, n.c, "/notifications/unread-count")
}

func (n *NotificationsAPI) MarkRead(ctx context.Context, id string) error {
	_, err := n.c.Post(ctx, "/notifications/read", models.NotificationIDRequest{ID: id})
	return err
}

func (n *NotificationsAPI) MarkAllRead(ctx context.Context) error {
	_, err := n.c.Post(ctx, "/notifications/read-all", struct{}{})
	return err
}

// Delete — DELETE /notifications с телом {"id": ...}.
func (n *NotificationsAPI) Delete(ctx context.Context, id string) error {
	_, err := n.c.Request(ctx, "/notifications", apiclient.RequestOptions{
		Method: http.MethodDelete,
		Body:   models.NotificationIDRequest{ID: id},
	})
	return err
}
