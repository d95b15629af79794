package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/climatescope/climatescope/internal/facades"
	"github.com/climatescope/climatescope/internal/logger"
	"github.com/climatescope/climatescope/internal/models"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// Error variables
var (
	ErrReportNotFound    = errors.New("report not found")
	ErrMalformedReportID = errors.New("malformed report id")
	ErrNotReportOwner    = errors.New("report belongs to another user")
)

const dateLayout = "2006-01-02"

// Geocoder resolves a free-text city to coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, city, country string) (*facades.GeocodeResult, error)
}

// ArchiveFetcher fetches a historical daily weather series.
type ArchiveFetcher interface {
	FetchDaily(ctx context.Context, lat, lng float64, startDate, endDate string, variables []string) (*models.ArchiveResponse, error)
}

// ReportWriter defines report write operations.
type ReportWriter interface {
	Save(ctx context.Context, report *models.ReportDB) error
	AppendUserReport(ctx context.Context, userID, reportID uuid.UUID) error
}

// ReportReader defines report read operations.
type ReportReader interface {
	GetByID(ctx context.Context, reportID uuid.UUID) (*models.ReportDB, error)
	GetIDsByUserID(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}

// KafkaWriter defines a Kafka writer abstraction.
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ReportService assembles, persists and retrieves weather reports.
type ReportService struct {
	geocoder    Geocoder
	archive     ArchiveFetcher
	writeRepo   ReportWriter
	readRepo    ReportReader
	kafkaWriter KafkaWriter
}

// NewReportService creates a new ReportService.
func NewReportService(
	geocoder Geocoder,
	archive ArchiveFetcher,
	writeRepo ReportWriter,
	readRepo ReportReader,
	kafkaWriter KafkaWriter,
) *ReportService {
	return &ReportService{
		geocoder:    geocoder,
		archive:     archive,
		writeRepo:   writeRepo,
		readRepo:    readRepo,
		kafkaWriter: kafkaWriter,
	}
}

// publishReportGenerated publishes a report-generated event. Publishing is
// best-effort: the report is already committed, so a broker failure only
// gets logged.
func (s *ReportService) publishReportGenerated(ctx context.Context, event models.ReportGeneratedEvent) {
	if s.kafkaWriter == nil {
		logger.Log.Warnw("Kafka writer not configured, skipping publishing", "report_id", event.ReportID)
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		logger.Log.Errorw("Failed to marshal report event for Kafka", "report_id", event.ReportID, "error", err)
		return
	}

	msg := kafka.Message{
		Key:   []byte(event.ReportID),
		Value: data,
	}

	if err := s.kafkaWriter.WriteMessages(ctx, msg); err != nil {
		logger.Log.Errorw("Failed to publish report event to Kafka", "report_id", event.ReportID, "error", err)
	} else {
		logger.Log.Infow("Report event published to Kafka", "report_id", event.ReportID)
	}
}

// Generate resolves the city to coordinates, fetches the daily weather
// series for the requested range and persists the combined report under the
// given user. The two upstream calls run strictly sequentially; any failure
// aborts the request with nothing persisted.
func (s *ReportService) Generate(
	ctx context.Context,
	userID uuid.UUID,
	city, country string,
	startDate, endDate string,
	variables []string,
) (*models.ReportDB, *models.ReportPayload, error) {
	geo, err := s.geocoder.Geocode(ctx, city, country)
	if err != nil {
		return nil, nil, err
	}

	archive, err := s.archive.FetchDaily(ctx, geo.Lat, geo.Lng, startDate, endDate, variables)
	if err != nil {
		return nil, nil, err
	}
	if err := archive.Validate(); err != nil {
		logger.Log.Errorw("weather archive returned inconsistent daily data", "error", err)
		return nil, nil, &facades.UpstreamError{Provider: "weather-archive", Message: err.Error()}
	}

	start, err := time.Parse(dateLayout, startDate)
	if err != nil {
		return nil, nil, err
	}
	end, err := time.Parse(dateLayout, endDate)
	if err != nil {
		return nil, nil, err
	}

	var searchCountry *string
	if country != "" {
		searchCountry = &country
	}

	report := &models.ReportDB{
		UserID:               userID,
		LocationName:         geo.Label,
		SearchCity:           city,
		SearchCountry:        searchCountry,
		Latitude:             geo.Lat,
		Longitude:            geo.Lng,
		RequestedStartDate:   start,
		RequestedEndDate:     end,
		APILatitude:          archive.Latitude,
		APILongitude:         archive.Longitude,
		Elevation:            archive.Elevation,
		GenerationTimeMS:     archive.GenerationTimeMS,
		Timezone:             archive.Timezone,
		TimezoneAbbreviation: archive.TimezoneAbbreviation,
		UTCOffsetSeconds:     archive.UTCOffsetSeconds,
		DailyUnits:           archive.DailyUnits,
		DailyData:            archive.Daily,
	}

	if err := s.writeRepo.Save(ctx, report); err != nil {
		logger.Log.Errorw("failed to save report", "userID", userID, "error", err)
		return nil, nil, err
	}
	if err := s.writeRepo.AppendUserReport(ctx, userID, report.ReportID); err != nil {
		logger.Log.Errorw("failed to append report to user list", "userID", userID, "reportID", report.ReportID, "error", err)
		return nil, nil, err
	}

	payload := &models.ReportPayload{
		Location:        geo.Label,
		Coordinates:     models.Coordinates{Lat: geo.Lat, Lng: geo.Lng},
		RequestedPeriod: models.Period{StartDate: startDate, EndDate: endDate},
		WeatherData:     archive,
	}

	s.publishReportGenerated(ctx, models.ReportGeneratedEvent{
		ReportID:    report.ReportID.String(),
		UserID:      userID.String(),
		Location:    geo.Label,
		StartDate:   startDate,
		EndDate:     endDate,
		GeneratedAt: time.Now().Unix(),
	})

	return report, payload, nil
}

// ListByUserID returns the identifiers of the caller's reports, newest first.
func (s *ReportService) ListByUserID(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	ids, err := s.readRepo.GetIDsByUserID(ctx, userID)
	if err != nil {
		logger.Log.Errorw("failed to list reports", "userID", userID, "error", err)
		return nil, err
	}
	return ids, nil
}

// GetByID loads a persisted report. Reports are owner-scoped: requesting
// another user's report yields ErrNotReportOwner.
func (s *ReportService) GetByID(ctx context.Context, userID uuid.UUID, reportID string) (*models.ReportDB, error) {
	id, err := uuid.Parse(reportID)
	if err != nil {
		return nil, ErrMalformedReportID
	}

	report, err := s.readRepo.GetByID(ctx, id)
	if err != nil {
		logger.Log.Errorw("failed to get report", "reportID", id, "error", err)
		return nil, err
	}
	if report == nil {
		return nil, ErrReportNotFound
	}
	if report.UserID != userID {
		logger.Log.Infow("report access denied", "reportID", id, "owner", report.UserID, "caller", userID)
		return nil, ErrNotReportOwner
	}

	return report, nil
}
