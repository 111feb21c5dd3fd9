// Package geo resolves client IP addresses to approximate locations.
package geo

import (
	"context"
	"fmt"
	"time"

	"secure-auth/internal/auth/domain/model"
	"secure-auth/internal/auth/domain/repository"

	"github.com/go-resty/resty/v2"
)

// IPAPIClient looks addresses up with an ip-api.com compatible service.
type IPAPIClient struct {
	client *resty.Client
}

type ipAPIResponse struct {
	Status     string   `json:"status"`
	Message    string   `json:"message"`
	Country    string   `json:"country"`
	RegionName string   `json:"regionName"`
	City       string   `json:"city"`
	Zip        string   `json:"zip"`
	Lat        *float64 `json:"lat"`
	Lon        *float64 `json:"lon"`
}

// NewIPAPIClient creates a client for baseURL. timeout bounds each request in
// addition to any deadline on the caller's context.
func NewIPAPIClient(baseURL string, timeout time.Duration) *IPAPIClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	return &IPAPIClient{client: client}
}

// Locate returns an absent result, not an error, when the service has no data for ip.
func (c *IPAPIClient) Locate(ctx context.Context, ip string) (model.GeoResult, error) {
	var body ipAPIResponse
	res, err := c.client.R().
		SetContext(ctx).
		SetPathParam("ip", ip).
		SetResult(&body).
		Get("/json/{ip}")
	if err != nil {
		return model.AbsentGeo(), fmt.Errorf("geolocation request for %s: %w", ip, err)
	}
	if res.IsError() {
		return model.AbsentGeo(), fmt.Errorf("geolocation request for %s: %s", ip, res.Status())
	}
	if body.Status != "success" {
		return model.AbsentGeo(), nil
	}

	return model.NewGeoResult(&model.Location{
		Country:    body.Country,
		State:      body.RegionName,
		City:       body.City,
		PostalCode: body.Zip,
		Latitude:   body.Lat,
		Longitude:  body.Lon,
	}), nil
}

var _ repository.GeoLocator = (*IPAPIClient)(nil)
