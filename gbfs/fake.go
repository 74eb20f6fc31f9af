package gbfs

import (
	"context"
	"sync"
)

// FakeClient is a test implementation of Client serving the same feeds for every
// location.
type FakeClient struct {
	Information []StationInformation
	Status      []StationStatus
	Bikes       []FreeBike

	InformationErr error
	StatusErr      error
	BikesErr       error

	mu        sync.Mutex
	locations []string
}

func NewFakeClient() *FakeClient {
	return &FakeClient{}
}

func (c *FakeClient) StationInformation(ctx context.Context, location string) ([]StationInformation, error) {
	c.record(location)
	if c.InformationErr != nil {
		return nil, c.InformationErr
	}
	return c.Information, nil
}

func (c *FakeClient) StationStatus(ctx context.Context, location string) ([]StationStatus, error) {
	c.record(location)
	if c.StatusErr != nil {
		return nil, c.StatusErr
	}
	return c.Status, nil
}

func (c *FakeClient) FreeBikeStatus(ctx context.Context, location string) ([]FreeBike, error) {
	c.record(location)
	if c.BikesErr != nil {
		return nil, c.BikesErr
	}
	return c.Bikes, nil
}

// AddStation adds a station with matching information and status records.
func (c *FakeClient) AddStation(info StationInformation, status StationStatus) {
	status.StationID = info.StationID
	c.Information = append(c.Information, info)
	c.Status = append(c.Status, status)
}

// Locations returns every location requested so far, one entry per feed call.
func (c *FakeClient) Locations() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.locations...)
}

func (c *FakeClient) record(location string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.locations = append(c.locations, location)
}
