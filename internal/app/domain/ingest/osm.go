package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/looquest/looquest/internal/app/models"
	"github.com/looquest/looquest/internal/pkg/config"
	"github.com/looquest/looquest/internal/pkg/geo"
)

// Upserter is the slice of the restroom repository the importer needs.
type Upserter interface {
	UpsertFromSource(ctx context.Context, r *models.Restroom) (created bool, err error)
}

// BBox is a WGS84 bounding box for an import run.
type BBox struct {
	South float64 `json:"south" binding:"required"`
	West  float64 `json:"west" binding:"required"`
	North float64 `json:"north" binding:"required"`
	East  float64 `json:"east" binding:"required"`
}

// Result summarizes one import run.
type Result struct {
	Fetched int `json:"fetched"`
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

type overpassResponse struct {
	Elements []overpassElement `json:"elements"`
}

type overpassCenter struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type overpassElement struct {
	Type   string            `json:"type"`
	ID     int64             `json:"id"`
	Lat    float64           `json:"lat"`
	Lon    float64           `json:"lon"`
	Center *overpassCenter   `json:"center"`
	Tags   map[string]string `json:"tags"`
}

// Importer pulls amenity=toilets elements from the Overpass API and
// upserts them keyed by their OSM id.
type Importer struct {
	logger      *zap.Logger
	http        *http.Client
	overpassURL string
	repo        Upserter
}

func NewImporter(repo Upserter, cfg config.ExternalConfig, logger *zap.Logger) *Importer {
	return &Importer{
		logger:      logger,
		http:        &http.Client{Timeout: cfg.HTTPTimeout},
		overpassURL: cfg.OverpassURL,
		repo:        repo,
	}
}

// Run fetches all toilets inside the bbox and upserts them. Elements
// without usable coordinates are skipped, never fatal.
func (i *Importer) Run(ctx context.Context, box BBox) (*Result, error) {
	ctx, span := otel.Tracer("looquest/ingest").Start(ctx, "Importer.Run")
	defer span.End()

	if err := validateBBox(box); err != nil {
		return nil, err
	}

	elements, err := i.fetch(ctx, box)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("osm.elements", len(elements)))

	res := &Result{Fetched: len(elements)}
	for _, el := range elements {
		rm, ok := elementToRestroom(el)
		if !ok {
			res.Skipped++
			continue
		}
		created, err := i.repo.UpsertFromSource(ctx, rm)
		if err != nil {
			// One bad row should not abort a whole import run.
			i.logger.Warn("Failed to upsert OSM restroom",
				zap.String("source_id", *rm.SourceID), zap.Error(err))
			res.Skipped++
			continue
		}
		if created {
			res.Created++
		} else {
			res.Updated++
		}
	}

	i.logger.Info("OSM import finished",
		zap.Int("fetched", res.Fetched),
		zap.Int("created", res.Created),
		zap.Int("updated", res.Updated),
		zap.Int("skipped", res.Skipped))
	return res, nil
}

func (i *Importer) fetch(ctx context.Context, box BBox) ([]overpassElement, error) {
	query := fmt.Sprintf(
		`[out:json][timeout:25];(node["amenity"="toilets"](%[1]f,%[2]f,%[3]f,%[4]f);way["amenity"="toilets"](%[1]f,%[2]f,%[3]f,%[4]f););out center;`,
		box.South, box.West, box.North, box.East)

	form := url.Values{"data": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, i.overpassURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build overpass request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", "looquest/1.0")

	resp, err := i.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("overpass request failed: %w", models.ErrStoreUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("overpass returned status %d: %w", resp.StatusCode, models.ErrStoreUnavailable)
	}

	var out overpassResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode overpass response: %w", err)
	}
	return out.Elements, nil
}

func validateBBox(box BBox) error {
	if !geo.ValidCoordinates(box.South, box.West) || !geo.ValidCoordinates(box.North, box.East) {
		return fmt.Errorf("bbox corners out of range: %w", models.ErrInvalidArgument)
	}
	if box.South >= box.North {
		return fmt.Errorf("bbox south must be below north: %w", models.ErrInvalidArgument)
	}
	return nil
}

// elementToRestroom maps OSM tags onto the restroom model. Ways carry
// their coordinates in the center field.
func elementToRestroom(el overpassElement) (*models.Restroom, bool) {
	lat, lon := el.Lat, el.Lon
	if el.Center != nil {
		lat, lon = el.Center.Lat, el.Center.Lon
	}
	if !geo.ValidCoordinates(lat, lon) || (lat == 0 && lon == 0) {
		return nil, false
	}

	sourceID := el.Type + "/" + strconv.FormatInt(el.ID, 10)
	name := el.Tags["name"]
	if name == "" {
		name = "Public toilets"
	}

	rm := &models.Restroom{
		Name:            name,
		Latitude:        lat,
		Longitude:       lon,
		Accessibility:   wheelchairLevel(el.Tags["wheelchair"]),
		HasBabyChanging: el.Tags["changing_table"] == "yes",
		IsGenderNeutral: el.Tags["unisex"] == "yes",
		RequiresFee:     el.Tags["fee"] == "yes",
		Is24Hours:       el.Tags["opening_hours"] == "24/7",
		Source:          models.SourceOSM,
		SourceID:        &sourceID,
		Status:          models.StatusActive,
	}
	if hours, ok := el.Tags["opening_hours"]; ok {
		rm.OpeningHours = &hours
	}
	return rm, true
}

func wheelchairLevel(tag string) models.AccessibilityLevel {
	switch tag {
	case "yes":
		return models.AccessibilityFull
	case "limited":
		return models.AccessibilityPartial
	case "no":
		return models.AccessibilityNone
	}
	return models.AccessibilityUnknown
}
