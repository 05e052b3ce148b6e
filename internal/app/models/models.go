package models

import (
	"time"

	"github.com/google/uuid"
)

// UserRole controls access to moderation and admin endpoints.
type UserRole string

const (
	RoleUser      UserRole = "user"
	RoleModerator UserRole = "moderator"
	RoleAdmin     UserRole = "admin"
	RolePartner   UserRole = "partner"
)

// AccessibilityLevel describes wheelchair access of a restroom.
type AccessibilityLevel string

const (
	AccessibilityFull    AccessibilityLevel = "full"
	AccessibilityPartial AccessibilityLevel = "partial"
	AccessibilityNone    AccessibilityLevel = "none"
	AccessibilityUnknown AccessibilityLevel = "unknown"
)

// RestroomSource records where a restroom record originated.
type RestroomSource string

const (
	SourceUser    RestroomSource = "user"
	SourceOSM     RestroomSource = "osm"
	SourcePartner RestroomSource = "partner"
)

// RestroomStatus is the lifecycle state of a restroom listing. Temporary
// closures (report-driven) stay visible in search results; permanent
// closures and pending listings do not.
type RestroomStatus string

const (
	StatusActive            RestroomStatus = "active"
	StatusTemporarilyClosed RestroomStatus = "temporarily_closed"
	StatusPermanentlyClosed RestroomStatus = "permanently_closed"
	StatusPending           RestroomStatus = "pending"
)

// ReportType classifies user reports against a restroom.
type ReportType string

const (
	ReportClosed     ReportType = "closed"
	ReportInaccurate ReportType = "inaccurate"
	ReportDirty      ReportType = "dirty"
	ReportSpam       ReportType = "spam"
	ReportOther      ReportType = "other"
)

func (t ReportType) Valid() bool {
	switch t {
	case ReportClosed, ReportInaccurate, ReportDirty, ReportSpam, ReportOther:
		return true
	}
	return false
}

// ReportStatus is the moderation state of a report.
type ReportStatus string

const (
	ReportOpen      ReportStatus = "open"
	ReportResolved  ReportStatus = "resolved"
	ReportDismissed ReportStatus = "dismissed"
)

type User struct {
	ID           uuid.UUID  `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	DisplayName  *string    `json:"display_name,omitempty"`
	AvatarURL    *string    `json:"avatar_url,omitempty"`
	Role         UserRole   `json:"role"`
	Points       int        `json:"points"`
	Badges       []string   `json:"badges"`
	IsActive     bool       `json:"is_active"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
}

// Restroom is a public restroom listing together with its cached review
// aggregates. The avg_* columns are denormalized and maintained by the
// review aggregate recompute path, never written by restroom CRUD.
type Restroom struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	Address     *string   `json:"address,omitempty"`
	City        *string   `json:"city,omitempty"`
	Country     *string   `json:"country,omitempty"`

	Accessibility   AccessibilityLevel `json:"accessibility"`
	HasBabyChanging bool               `json:"has_baby_changing"`
	IsGenderNeutral bool               `json:"is_gender_neutral"`
	RequiresFee     bool               `json:"requires_fee"`
	RequiresKey     bool               `json:"requires_key"`
	Is24Hours       bool               `json:"is_24_hours"`
	OpeningHours    *string            `json:"opening_hours,omitempty"`

	Source     RestroomSource `json:"source"`
	SourceID   *string        `json:"source_id,omitempty"`
	Status     RestroomStatus `json:"status"`
	IsVerified bool           `json:"is_verified"`

	AvgOverall       float64 `json:"avg_overall"`
	AvgCleanliness   float64 `json:"avg_cleanliness"`
	AvgAccessibility float64 `json:"avg_accessibility"`
	AvgPrivacy       float64 `json:"avg_privacy"`
	AvgSafety        float64 `json:"avg_safety"`
	AvgLighting      float64 `json:"avg_lighting"`
	ReviewCount      int     `json:"review_count"`

	CreatedBy *uuid.UUID `json:"created_by,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// RestroomWithDistance is a search hit: the restroom plus its great-circle
// distance in meters from the search origin.
type RestroomWithDistance struct {
	Restroom
	DistanceMeters float64 `json:"distance_meters"`
}

type Review struct {
	ID         uuid.UUID `json:"id"`
	RestroomID uuid.UUID `json:"restroom_id"`
	UserID     uuid.UUID `json:"user_id"`

	// All six rating dimensions are mandatory on every review.
	RatingOverall       int `json:"rating_overall"`
	RatingCleanliness   int `json:"rating_cleanliness"`
	RatingAccessibility int `json:"rating_accessibility"`
	RatingPrivacy       int `json:"rating_privacy"`
	RatingSafety        int `json:"rating_safety"`
	RatingLighting      int `json:"rating_lighting"`

	Comment      *string   `json:"comment,omitempty"`
	PhotoURLs    []string  `json:"photo_urls"`
	HelpfulCount int       `json:"helpful_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Favorite struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	RestroomID uuid.UUID `json:"restroom_id"`
	CreatedAt  time.Time `json:"created_at"`
}

type Report struct {
	ID         uuid.UUID    `json:"id"`
	RestroomID uuid.UUID    `json:"restroom_id"`
	UserID     uuid.UUID    `json:"user_id"`
	Type       ReportType   `json:"type"`
	Comment    *string      `json:"comment,omitempty"`
	Status     ReportStatus `json:"status"`
	ResolvedBy *uuid.UUID   `json:"resolved_by,omitempty"`
	ResolvedAt *time.Time   `json:"resolved_at,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
}

// SearchFilters narrows a proximity search. Nil pointer fields mean
// "no constraint". Wheelchair filters on accessibility in both
// directions: true keeps fully accessible restrooms, false keeps the
// inaccessible ones. IncludeClosed lifts the default status predicate so
// closed and pending listings also appear.
type SearchFilters struct {
	Wheelchair    *bool    `form:"wheelchair" json:"wheelchair,omitempty"`
	BabyChanging  *bool    `form:"baby_changing" json:"baby_changing,omitempty"`
	GenderNeutral *bool    `form:"gender_neutral" json:"gender_neutral,omitempty"`
	FreeOnly      *bool    `form:"free_only" json:"free_only,omitempty"`
	NoKey         *bool    `form:"no_key" json:"no_key,omitempty"`
	Open24Hours   *bool    `form:"open_24_hours" json:"open_24_hours,omitempty"`
	VerifiedOnly  *bool    `form:"verified_only" json:"verified_only,omitempty"`
	MinRating     *float64 `form:"min_rating" json:"min_rating,omitempty"`
	Source        *string  `form:"source" json:"source,omitempty"`
	IncludeClosed bool     `form:"include_closed" json:"include_closed,omitempty"`
}

// SearchParams is a validated proximity search request.
type SearchParams struct {
	Latitude     float64
	Longitude    float64
	RadiusMeters float64
	Limit        int
	Offset       int
	Filters      SearchFilters
}

// RouteSearchParams finds restrooms near the corridor between two points.
type RouteSearchParams struct {
	StartLat     float64
	StartLon     float64
	EndLat       float64
	EndLon       float64
	BufferMeters float64
	Limit        int
	Filters      SearchFilters
}

// RestroomAggregates is the recomputed rating summary for one restroom.
type RestroomAggregates struct {
	RestroomID       uuid.UUID `json:"restroom_id"`
	AvgOverall       float64   `json:"avg_overall"`
	AvgCleanliness   float64   `json:"avg_cleanliness"`
	AvgAccessibility float64   `json:"avg_accessibility"`
	AvgPrivacy       float64   `json:"avg_privacy"`
	AvgSafety        float64   `json:"avg_safety"`
	AvgLighting      float64   `json:"avg_lighting"`
	ReviewCount      int       `json:"review_count"`
}

// LeaderboardEntry is one row of the contribution leaderboard.
type LeaderboardEntry struct {
	UserID      uuid.UUID `json:"user_id"`
	Username    string    `json:"username"`
	DisplayName *string   `json:"display_name,omitempty"`
	Points      int       `json:"points"`
	ReviewCount int       `json:"review_count"`
	Rank        int       `json:"rank"`
}

// UserStats summarizes one user's contributions.
type UserStats struct {
	UserID          uuid.UUID `json:"user_id"`
	Points          int       `json:"points"`
	Badges          []string  `json:"badges"`
	ReviewCount     int       `json:"review_count"`
	RestroomCount   int       `json:"restroom_count"`
	FavoriteCount   int       `json:"favorite_count"`
	HelpfulReceived int       `json:"helpful_received"`
}
