package restroom

import (
	"fmt"
	"sort"

	"github.com/looquest/looquest/internal/app/models"
	"github.com/looquest/looquest/internal/pkg/cache"
	"github.com/looquest/looquest/internal/pkg/config"
	"github.com/looquest/looquest/internal/pkg/geo"
)

// NormalizeSearchParams validates a raw search request and fills in the
// defaults and caps from configuration.
func NormalizeSearchParams(p models.SearchParams, cfg config.SearchConfig) (models.SearchParams, error) {
	if !geo.ValidCoordinates(p.Latitude, p.Longitude) {
		return p, fmt.Errorf("latitude must be in [-90, 90] and longitude in [-180, 180]: %w", models.ErrInvalidArgument)
	}

	if p.RadiusMeters == 0 {
		p.RadiusMeters = cfg.DefaultRadiusMeters
	}
	if p.RadiusMeters < 0 || p.RadiusMeters > cfg.MaxRadiusMeters {
		return p, fmt.Errorf("radius must be in (0, %.0f]: %w", cfg.MaxRadiusMeters, models.ErrInvalidArgument)
	}

	if p.Limit == 0 {
		p.Limit = cfg.DefaultLimit
	}
	if p.Limit < 0 || p.Limit > cfg.MaxLimit {
		return p, fmt.Errorf("limit must be in (0, %d]: %w", cfg.MaxLimit, models.ErrInvalidArgument)
	}

	if p.Offset < 0 {
		return p, fmt.Errorf("offset must not be negative: %w", models.ErrInvalidArgument)
	}

	if p.Filters.MinRating != nil {
		if *p.Filters.MinRating < 1 || *p.Filters.MinRating > 5 {
			return p, fmt.Errorf("min_rating must be in [1, 5]: %w", models.ErrInvalidArgument)
		}
	}

	if p.Filters.Source != nil {
		switch models.RestroomSource(*p.Filters.Source) {
		case models.SourceUser, models.SourceOSM, models.SourcePartner:
		default:
			return p, fmt.Errorf("unknown source %q: %w", *p.Filters.Source, models.ErrInvalidArgument)
		}
	}

	return p, nil
}

// SortSearchResults orders hits by distance ascending, then average overall
// rating descending, then ID ascending. The SQL already orders this way; the
// same comparator is applied again so ordering holds for any result source.
func SortSearchResults(results []models.RestroomWithDistance) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].DistanceMeters != results[j].DistanceMeters {
			return results[i].DistanceMeters < results[j].DistanceMeters
		}
		if results[i].AvgOverall != results[j].AvgOverall {
			return results[i].AvgOverall > results[j].AvgOverall
		}
		return results[i].ID.String() < results[j].ID.String()
	})
}

// searchCacheKey builds a deterministic cache key for a normalized search.
func searchCacheKey(p models.SearchParams) (string, error) {
	b := cache.NewKeyBuilder("search").
		Add("lat", p.Latitude).
		Add("lon", p.Longitude).
		Add("radius", p.RadiusMeters).
		Add("limit", p.Limit).
		Add("offset", p.Offset).
		Add("filters", p.Filters)
	return b.Build()
}
