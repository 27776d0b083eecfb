package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// EnvelopeTimeFormat is the layout of Metadata.GeneratedAt.
const EnvelopeTimeFormat = "2006-01-02 15:04:05"

// BuildEnvelope loads the five collections through src and stamps them
// with the generation time and version.
func BuildEnvelope(ctx context.Context, src Source, version string, now time.Time) (Envelope, error) {
	c, err := FetchAll(ctx, src)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		Collections: c,
		Metadata: Metadata{
			GeneratedAt: now.Format(EnvelopeTimeFormat),
			Version:     version,
		},
	}, nil
}

// EnvelopeLoader loads every collection from one envelope document instead
// of five fixture files. Boundaries still come from the fixture source.
type EnvelopeLoader struct {
	url        string
	client     *http.Client
	boundaries Source
}

// NewEnvelopeLoader returns a Loader backed by the aggregation endpoint at url.
func NewEnvelopeLoader(url string, client *http.Client, boundaries Source) *EnvelopeLoader {
	if client == nil {
		client = http.DefaultClient
	}
	return &EnvelopeLoader{url: url, client: client, boundaries: boundaries}
}

func (l *EnvelopeLoader) Load(ctx context.Context) (Collections, error) {
	body, err := getBody(ctx, l.client, l.url)
	if err != nil {
		return Collections{}, fmt.Errorf("failed to fetch envelope: %w", err)
	}
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Collections{}, fmt.Errorf("failed to parse envelope: %w", err)
	}
	env.Collections.normalize()
	return env.Collections, nil
}

func (l *EnvelopeLoader) Boundaries(ctx context.Context) ([]Boundary, error) {
	if l.boundaries == nil {
		return nil, fmt.Errorf("no boundary source configured")
	}
	return readBoundaries(ctx, l.boundaries)
}
