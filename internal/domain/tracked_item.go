package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

type ListStatus string

const (
	StatusWatching  ListStatus = "watching"
	StatusCompleted ListStatus = "completed"
	StatusDropped   ListStatus = "dropped"
	StatusPlanned   ListStatus = "planned"
)

// AllStatuses lists the statuses a tracked item may carry. "on_hold" was
// dropped from the schema and is rejected.
var AllStatuses = []ListStatus{StatusWatching, StatusCompleted, StatusDropped, StatusPlanned}

func (s ListStatus) IsValid() bool {
	for _, v := range AllStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// TrackedItem is a user's relationship to one catalog entry.
type TrackedItem struct {
	UserID        uuid.UUID  `json:"-" gorm:"type:uuid;primaryKey"`
	ExternalID    string     `json:"externalId" gorm:"primaryKey"`
	Title         string     `json:"title" gorm:"not null;default:''"`
	PosterURL     string     `json:"posterUrl" gorm:"not null;default:''"`
	EpisodesTotal *int       `json:"episodesTotal"`
	Status        ListStatus `json:"status" gorm:"not null"`
	Position      int64      `json:"-" gorm:"not null;default:nextval('tracked_item_position_seq');index"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// ListStats is derived from a user's list on every read.
type ListStats struct {
	Total     int `json:"total"`
	Watching  int `json:"watching"`
	Planned   int `json:"planned"`
	Completed int `json:"completed"`
	Dropped   int `json:"dropped"`
}

func ComputeStats(items []*TrackedItem) ListStats {
	stats := ListStats{Total: len(items)}
	for _, item := range items {
		switch item.Status {
		case StatusWatching:
			stats.Watching++
		case StatusPlanned:
			stats.Planned++
		case StatusCompleted:
			stats.Completed++
		case StatusDropped:
			stats.Dropped++
		}
	}
	return stats
}

// NormalizeExternalID converts a catalog id that may arrive as a string or a
// JSON number into its canonical string form. It returns "" for values that
// cannot identify a catalog entry.
func NormalizeExternalID(v any) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return canonicalIDString(id)
	case int:
		return strconv.FormatInt(int64(id), 10)
	case int32:
		return strconv.FormatInt(int64(id), 10)
	case int64:
		return strconv.FormatInt(id, 10)
	case uint:
		return strconv.FormatUint(uint64(id), 10)
	case uint32:
		return strconv.FormatUint(uint64(id), 10)
	case uint64:
		return strconv.FormatUint(id, 10)
	case float32:
		return floatID(float64(id))
	case float64:
		return floatID(id)
	case jsonNumber:
		return numberID(id)
	case fmt.Stringer:
		return canonicalIDString(id.String())
	default:
		return ""
	}
}

// jsonNumber is satisfied by the json.Number of both encoding/json and
// goccy/go-json.
type jsonNumber interface {
	String() string
	Float64() (float64, error)
}

// numberID keeps integers exact and accepts integral floats such as 21.0.
func numberID(n jsonNumber) string {
	s := strings.TrimSpace(n.String())
	if _, err := strconv.ParseUint(s, 10, 64); err == nil {
		return canonicalIDString(s)
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return strconv.FormatInt(i, 10)
	}
	f, err := n.Float64()
	if err != nil {
		return ""
	}
	return floatID(f)
}

func canonicalIDString(s string) string {
	s = strings.TrimSpace(s)
	// "0021" and "21" name the same catalog entry.
	if n, err := strconv.ParseUint(s, 10, 64); err == nil {
		return strconv.FormatUint(n, 10)
	}
	return s
}

func floatID(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return ""
	}
	return strconv.FormatFloat(f, 'f', 0, 64)
}

// DailyActivity counts list entries last written on Date (UTC, YYYY-MM-DD).
type DailyActivity struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// ComputeDynamics buckets items by the UTC day of their last write over the
// days days ending at now, oldest first. Days without writes are present
// with a zero count.
func ComputeDynamics(items []*TrackedItem, days int, now time.Time) []DailyActivity {
	end := now.UTC().Truncate(24 * time.Hour)
	start := end.AddDate(0, 0, -(days - 1))

	out := make([]DailyActivity, days)
	index := make(map[string]int, days)
	for i := 0; i < days; i++ {
		d := start.AddDate(0, 0, i).Format(time.DateOnly)
		out[i] = DailyActivity{Date: d}
		index[d] = i
	}
	for _, it := range items {
		if i, ok := index[it.UpdatedAt.UTC().Format(time.DateOnly)]; ok {
			out[i].Count++
		}
	}
	return out
}
