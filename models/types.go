package models

import (
	"time"

	"github.com/lucianvotes/server/prediction"
	"github.com/lucianvotes/server/tally"
)

// Ad placement constants
const (
	PlacementBanner  = "banner"
	PlacementSidebar = "sidebar"
	PlacementMap     = "map"
)

// ValidPlacement reports whether p is a known ad slot
func ValidPlacement(p string) bool {
	switch p {
	case PlacementBanner, PlacementSidebar, PlacementMap:
		return true
	}
	return false
}

// Date layout for election days in requests
const DateLayout = "2006-01-02"

// Request types

type CreatePartyRequest struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Color   string `json:"color"`
	Leader  string `json:"leader"`
	LogoURL string `json:"logo_url"`
}

type CreateConstituencyRequest struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	District string `json:"district"`
}

// Nil fields are left unchanged
type UpdateConstituencyRequest struct {
	Name             *string `json:"name"`
	District         *string `json:"district"`
	PoliticalLeaning *string `json:"political_leaning"`
}

type CreateCandidateRequest struct {
	Name           string `json:"name"`
	PartyID        string `json:"party_id"`
	ConstituencyID string `json:"constituency_id"`
	Bio            string `json:"bio"`
	PhotoURL       string `json:"photo_url"`
}

type CreateElectionRequest struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	HeldOn string `json:"held_on"` // YYYY-MM-DD
}

type CandidateVotes struct {
	CandidateName string `json:"candidate_name"`
	PartyID       string `json:"party_id"`
	Votes         int    `json:"votes"`
}

// Replaces all results for one constituency in one election
type PutResultsRequest struct {
	ConstituencyID   string           `json:"constituency_id"`
	RegisteredVoters int              `json:"registered_voters"`
	Results          []CandidateVotes `json:"results"`
}

type EncodeMapRequest struct {
	Leanings []prediction.Assignment `json:"leanings"`
}

type SaveMapRequest struct {
	Leanings    []prediction.Assignment `json:"leanings"`
	SnapshotPNG string                  `json:"snapshot_png"` // base64 PNG
}

type CreateNewsRequest struct {
	Title    string `json:"title"`
	Body     string `json:"body"`
	Author   string `json:"author"`
	ImageURL string `json:"image_url"`
}

type CreateAdRequest struct {
	Title     string     `json:"title"`
	ImageURL  string     `json:"image_url"`
	LinkURL   string     `json:"link_url"`
	Placement string     `json:"placement"`
	StartsAt  *time.Time `json:"starts_at,omitempty"`
	EndsAt    *time.Time `json:"ends_at,omitempty"`
}

type RecordVisitRequest struct {
	Path     string `json:"path"`
	Referrer string `json:"referrer"`
}

type SubscribeRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Response types

type CreatedResponse struct {
	ID string `json:"id"`
}

type EncodeMapResponse struct {
	Map      string                     `json:"map"`
	ShareURL string                     `json:"share_url"`
	Seats    map[prediction.Leaning]int `json:"seats"`
}

// Restored is false when the map parameter was missing or could not be
// applied to the current constituencies
type DecodeMapResponse struct {
	Restored       bool                       `json:"restored"`
	Constituencies []Constituency             `json:"constituencies"`
	Seats          map[prediction.Leaning]int `json:"seats"`
}

type SaveMapResponse struct {
	ID          string `json:"id"`
	ShareSlug   string `json:"share_slug"`
	Map         string `json:"map"`
	ShareURL    string `json:"share_url"`
	SnapshotURL string `json:"snapshot_url"`
}

type AdClickResponse struct {
	LinkURL string `json:"link_url"`
}

type UploadResponse struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

type ElectionResults struct {
	Election Election      `json:"election"`
	Summary  tally.Summary `json:"summary"`
}

type SwingResponse struct {
	Election Election          `json:"election"`
	Against  Election          `json:"against"`
	Swing    tally.SwingReport `json:"swing"`
}

type PathCount struct {
	Path   string `json:"path"`
	Visits int    `json:"visits"`
}

type DailyCount struct {
	Day    string `json:"day"` // YYYY-MM-DD, UTC
	Visits int    `json:"visits"`
}

type AnalyticsSummary struct {
	Days           int          `json:"days"`
	TotalVisits    int          `json:"total_visits"`
	UniqueVisitors int          `json:"unique_visitors"`
	TopPaths       []PathCount  `json:"top_paths"`
	Daily          []DailyCount `json:"daily"`
	LastVisitAt    *time.Time   `json:"last_visit_at,omitempty"`
	LastVisitAgo   string       `json:"last_visit_ago,omitempty"`
}

// Domain types

type Party struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	Leader    string    `json:"leader"`
	LogoURL   string    `json:"logo_url"`
	CreatedAt time.Time `json:"created_at"`
}

type Constituency struct {
	ID               string             `json:"id"`
	Name             string             `json:"name"`
	District         string             `json:"district"`
	PoliticalLeaning prediction.Leaning `json:"political_leaning"`
	CreatedAt        time.Time          `json:"created_at"`
}

type Candidate struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	PartyID        *string   `json:"party_id,omitempty"`
	ConstituencyID string    `json:"constituency_id"`
	Bio            string    `json:"bio"`
	PhotoURL       string    `json:"photo_url"`
	CreatedAt      time.Time `json:"created_at"`
}

type Election struct {
	ID        string    `json:"id"`
	Label     string    `json:"label"`
	HeldOn    time.Time `json:"held_on"`
	CreatedAt time.Time `json:"created_at"`
}

type UserMap struct {
	ID          string                     `json:"id"`
	ShareSlug   string                     `json:"share_slug"`
	Leanings    []prediction.Assignment    `json:"leanings"`
	Encoded     string                     `json:"map"`
	SnapshotURL string                     `json:"snapshot_url"`
	Seats       map[prediction.Leaning]int `json:"seats"`
	CreatedAt   time.Time                  `json:"created_at"`
}

type NewsPost struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	Author      string    `json:"author"`
	ImageURL    string    `json:"image_url"`
	PublishedAt time.Time `json:"published_at"`
}

type Ad struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	ImageURL    string     `json:"image_url"`
	LinkURL     string     `json:"link_url"`
	Placement   string     `json:"placement"`
	Active      bool       `json:"active"`
	StartsAt    *time.Time `json:"starts_at,omitempty"`
	EndsAt      *time.Time `json:"ends_at,omitempty"`
	Impressions int        `json:"impressions"`
	Clicks      int        `json:"clicks"`
	CreatedAt   time.Time  `json:"created_at"`
}

type Subscriber struct {
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	SubscribedAt time.Time `json:"subscribed_at"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
