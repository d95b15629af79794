package models

import (
	"time"

	"github.com/google/uuid"
)

// Coordinates is a geocoded latitude/longitude pair.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Period is the requested report date range as ISO date strings.
type Period struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

// ReportPayload is the assembled result of a generation request: resolved
// location, the requested period and the archive response for it.
type ReportPayload struct {
	Location        string           `json:"location"`
	Coordinates     Coordinates      `json:"coordinates"`
	RequestedPeriod Period           `json:"requestedPeriod"`
	WeatherData     *ArchiveResponse `json:"weatherData"`
}

// ReportDB represents a persisted report row.
type ReportDB struct {
	ReportID             uuid.UUID   `json:"reportId" db:"report_id"`
	UserID               uuid.UUID   `json:"userId" db:"user_id"`
	LocationName         string      `json:"locationName" db:"location_name"`
	SearchCity           string      `json:"searchCity" db:"search_city"`
	SearchCountry        *string     `json:"searchCountry,omitempty" db:"search_country"`
	Latitude             float64     `json:"latitude" db:"latitude"`
	Longitude            float64     `json:"longitude" db:"longitude"`
	RequestedStartDate   time.Time   `json:"requestedStartDate" db:"requested_start_date"`
	RequestedEndDate     time.Time   `json:"requestedEndDate" db:"requested_end_date"`
	APILatitude          float64     `json:"apiLatitude" db:"api_latitude"`
	APILongitude         float64     `json:"apiLongitude" db:"api_longitude"`
	Elevation            float64     `json:"elevation" db:"elevation"`
	GenerationTimeMS     float64     `json:"generationtimeMs" db:"generationtime_ms"`
	Timezone             string      `json:"timezone" db:"timezone"`
	TimezoneAbbreviation string      `json:"timezoneAbbreviation" db:"timezone_abbreviation"`
	UTCOffsetSeconds     int         `json:"utcOffsetSeconds" db:"utc_offset_seconds"`
	DailyUnits           Units       `json:"dailyUnits" db:"daily_units"`
	DailyData            DailySeries `json:"dailyData" db:"daily_data"`
	CreatedAt            time.Time   `json:"createdAt" db:"created_at"`
	UpdatedAt            time.Time   `json:"updatedAt" db:"updated_at"`
}

// ReportGeneratedEvent is published after a report has been persisted.
type ReportGeneratedEvent struct {
	ReportID    string `json:"report_id"`
	UserID      string `json:"user_id"`
	Location    string `json:"location"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	GeneratedAt int64  `json:"generated_at"`
}
