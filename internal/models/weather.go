package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
)

// Units maps a daily variable name to the unit string the provider reports
// for it, e.g. {"time": "iso8601", "temperature_2m_mean": "°C"}.
type Units map[string]string

// Value implements driver.Valuer so Units can be stored in a JSONB column.
func (u Units) Value() (driver.Value, error) {
	return json.Marshal(u)
}

// Scan implements sql.Scanner for reading Units back from JSONB.
func (u *Units) Scan(src any) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, u)
	case string:
		return json.Unmarshal([]byte(v), u)
	default:
		return fmt.Errorf("cannot scan %T into Units", src)
	}
}

// DailySeries holds the daily time series of an archive response: a shared
// time axis of ISO dates plus one value column per requested variable.
// Individual values may be null when the provider has no measurement.
type DailySeries struct {
	Time   []string
	Values map[string][]*float64
}

// MarshalJSON renders the series back into the provider's wire shape:
// {"time": [...], "<variable>": [...], ...}.
func (d DailySeries) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(d.Values)+1)
	out["time"] = d.Time
	for name, values := range d.Values {
		out[name] = values
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the provider's keyed-columns object. The "time" key
// is the axis; every other key becomes a value column.
func (d *DailySeries) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	d.Time = nil
	d.Values = make(map[string][]*float64, len(raw))

	for name, col := range raw {
		if name == "time" {
			if err := json.Unmarshal(col, &d.Time); err != nil {
				return fmt.Errorf("daily time axis: %w", err)
			}
			continue
		}
		var values []*float64
		if err := json.Unmarshal(col, &values); err != nil {
			return fmt.Errorf("daily column %q: %w", name, err)
		}
		d.Values[name] = values
	}

	return nil
}

// Value implements driver.Valuer so DailySeries can be stored in a JSONB column.
func (d DailySeries) Value() (driver.Value, error) {
	return json.Marshal(d)
}

// Scan implements sql.Scanner for reading DailySeries back from JSONB.
func (d *DailySeries) Scan(src any) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, d)
	case string:
		return json.Unmarshal([]byte(v), d)
	default:
		return fmt.Errorf("cannot scan %T into DailySeries", src)
	}
}

// ArchiveResponse is the subset of the weather archive response the service
// consumes and persists.
type ArchiveResponse struct {
	Latitude             float64     `json:"latitude"`
	Longitude            float64     `json:"longitude"`
	GenerationTimeMS     float64     `json:"generationtime_ms"`
	UTCOffsetSeconds     int         `json:"utc_offset_seconds"`
	Timezone             string      `json:"timezone"`
	TimezoneAbbreviation string      `json:"timezone_abbreviation"`
	Elevation            float64     `json:"elevation"`
	DailyUnits           Units       `json:"daily_units"`
	Daily                DailySeries `json:"daily"`
}

// Validate rejects responses that cannot be persisted as a consistent report:
// the time axis is mandatory, every value column must align with it, and the
// units map must cover every column.
func (r *ArchiveResponse) Validate() error {
	if len(r.Daily.Time) == 0 {
		return errors.New("daily response has no time axis")
	}
	for name, values := range r.Daily.Values {
		if len(values) != len(r.Daily.Time) {
			return fmt.Errorf("daily column %q has %d values for %d days", name, len(values), len(r.Daily.Time))
		}
		if _, ok := r.DailyUnits[name]; !ok {
			return fmt.Errorf("daily column %q has no unit", name)
		}
	}
	return nil
}
