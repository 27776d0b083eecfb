package fetcher

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Fixture names, relative to the fixture root (directory or base URL).
const (
	BulletinFile   = "boe.json"
	AlertsFile     = "alertas.json"
	SubsidiesFile  = "subvenciones.json"
	SpendingFile   = "gasto.json"
	PromisesFile   = "promesas.json"
	BoundariesFile = "municipios.geojson"
)

// FixtureFiles lists the five collection fixtures in envelope order.
var FixtureFiles = []string{BulletinFile, AlertsFile, SubsidiesFile, SpendingFile, PromisesFile}

// Source reads a raw fixture document by name.
type Source interface {
	Read(ctx context.Context, name string) ([]byte, error)
}

// Loader produces the collections for one dashboard cycle.
type Loader interface {
	Load(ctx context.Context) (Collections, error)
	Boundaries(ctx context.Context) ([]Boundary, error)
}

// FetchAll reads the five fixtures concurrently and returns once every read
// has settled. Any failure fails the whole call.
func FetchAll(ctx context.Context, src Source) (Collections, error) {
	var c Collections
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return readInto(ctx, src, BulletinFile, &c.Bulletin) })
	g.Go(func() error { return readInto(ctx, src, AlertsFile, &c.Alerts) })
	g.Go(func() error { return readInto(ctx, src, SubsidiesFile, &c.Subsidies) })
	g.Go(func() error { return readInto(ctx, src, SpendingFile, &c.Spending) })
	g.Go(func() error { return readInto(ctx, src, PromisesFile, &c.Promises) })

	if err := g.Wait(); err != nil {
		return Collections{}, err
	}
	c.normalize()
	return c, nil
}

func readInto[T any](ctx context.Context, src Source, name string, dst *[]T) error {
	body, err := src.Read(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", name, err)
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return nil
}

// normalize replaces nil collections with empty ones so a JSON null and an
// empty array render the same way.
func (c *Collections) normalize() {
	if c.Bulletin == nil {
		c.Bulletin = []BulletinEntry{}
	}
	if c.Alerts == nil {
		c.Alerts = []Alert{}
	}
	if c.Subsidies == nil {
		c.Subsidies = []Subsidy{}
	}
	if c.Spending == nil {
		c.Spending = []SpendingLine{}
	}
	if c.Promises == nil {
		c.Promises = []Promise{}
	}
}

// FixtureLoader loads the collections from individual fixture documents.
type FixtureLoader struct {
	Source Source
}

// NewFixtureLoader returns a Loader reading fixtures from src.
func NewFixtureLoader(src Source) *FixtureLoader {
	return &FixtureLoader{Source: src}
}

func (l *FixtureLoader) Load(ctx context.Context) (Collections, error) {
	return FetchAll(ctx, l.Source)
}

func (l *FixtureLoader) Boundaries(ctx context.Context) ([]Boundary, error) {
	return readBoundaries(ctx, l.Source)
}

func readBoundaries(ctx context.Context, src Source) ([]Boundary, error) {
	body, err := src.Read(ctx, BoundariesFile)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", BoundariesFile, err)
	}
	return ParseBoundaries(body)
}
