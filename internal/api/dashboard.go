package api

import (
	"context"
	"fmt"

	"github.com/pribylovaa/dashboard-client/internal/apiclient"
	"github.com/pribylovaa/dashboard-client/internal/models"
)

const dashboardItemsPath = "/dashboard/items"

type DashboardAPI struct {
	c *apiclient.Client
}

func (d *DashboardAPI) Create(ctx context.Context, req models.DashboardItemRequest) (*models.DashboardItem, error) {
	data, err := d.c.Post(ctx, dashboardItemsPath, req)
	if err != nil {
		return nil, err
	}

	item, err := decode[models.DashboardItem]("api.Dashboard.Create", data)
	if err != nil {
		return nil, err
	}

	return &item, nil
}

func (d *DashboardAPI) List(ctx context.Context) ([]models.DashboardItem, error) {
	data, err := d.c.Get(ctx, dashboardItemsPath, nil)
	if err != nil {
		return nil, err
	}

	return decodeList[models.DashboardItem]("api.Dashboard.List", data, "items")
}

func (d *DashboardAPI) Update(ctx context.Context, id string, req models.DashboardItemRequest) (*models.DashboardItem, error) {
	const op = "api.Dashboard.Update"

	path, err := itemPath(dashboardItemsPath, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	data, err := d.c.Put(ctx, path, req)
	if err != nil {
		return nil, err
	}

	item, err := decode[models.DashboardItem](op, data)
	if err != nil {
		return nil, err
	}

	return &item, nil
}

func (d *DashboardAPI) Delete(ctx context.Context, id string) error {
	const op = "api.Dashboard.Delete"

	path, err := itemPath(dashboardItemsPath, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	_, err = d.c.Delete(ctx, path)
	return err
}
