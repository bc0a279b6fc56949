// Package model defines the domain types used across the application.
package model

import "time"

// Hunt is a stored vehicle search profile. It is read-only to the pipeline.
type Hunt struct {
	ID              int64         `validate:"-"`
	Name            string        `validate:"required"`
	Make            string        `validate:"required"`
	Model           string        `validate:"required"`
	YearMin         int           `validate:"required,gte=1950"`
	YearMax         int           `validate:"required,gtefield=YearMin"`
	Series          string        `validate:"omitempty"`
	EngineFamily    string        `validate:"omitempty"`
	CabType         string        `validate:"omitempty,oneof=single extra dual"`
	BodyType        string        `validate:"omitempty,oneof=cab_chassis wagon ute troop_carrier"`
	MustHave        []string      `validate:"dive,required"`
	StrictKeywords  bool          `validate:"-"`
	Exclude         []KeywordRule `validate:"dive"`
	MinGapAbsBuy    int           `validate:"gte=0"`
	MinGapPctBuy    float64       `validate:"gte=0,lte=100"`
	ProvenExitValue int           `validate:"gte=0"`
	CriteriaVersion int           `validate:"gte=1"`
	Queries         []string      `validate:"dive,required"`
	IsActive        bool          `validate:"-"`
	CreatedAt       time.Time     `validate:"-"`
}

// RuleKind defines the type of keyword rule.
type RuleKind string

// Supported rule kinds.
const (
	RuleInclude   RuleKind = "include"
	RuleExclude   RuleKind = "exclude"
	RuleIncludeRe RuleKind = "include_re"
	RuleExcludeRe RuleKind = "exclude_re"
)

// RuleScope defines which part of a candidate a rule matches against.
type RuleScope string

// Supported rule scopes.
const (
	ScopeTitle   RuleScope = "title"
	ScopeContent RuleScope = "content"
	ScopeAll     RuleScope = "all"
)

// KeywordRule is a single word or regex rule attached to a hunt.
type KeywordRule struct {
	Kind  RuleKind  `json:"kind" validate:"oneof=include exclude include_re exclude_re"`
	Scope RuleScope `json:"scope" validate:"omitempty,oneof=title content all"`
	Value string    `json:"value" validate:"required"`
}

// Decision is the action recommended for a candidate.
type Decision string

// Supported decisions.
const (
	DecisionBuy    Decision = "BUY"
	DecisionWatch  Decision = "WATCH"
	DecisionIgnore Decision = "IGNORE"
)

// Actionable reports whether the decision warrants an alert.
func (d Decision) Actionable() bool {
	return d == DecisionBuy || d == DecisionWatch
}

// Rank orders decisions so that an upgrade can be detected.
func (d Decision) Rank() int {
	switch d {
	case DecisionBuy:
		return 2
	case DecisionWatch:
		return 1
	default:
		return 0
	}
}

// Confidence grades how much of a candidate was extracted reliably.
type Confidence string

// Supported confidence levels.
const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// PageType is the classifier verdict for a URL.
type PageType string

// Supported page types.
const (
	PageListing  PageType = "listing"
	PageArticle  PageType = "article"
	PageSearch   PageType = "search"
	PageCategory PageType = "category"
	PageLogin    PageType = "login"
	PageOther    PageType = "other"
)

// ListingKind describes what sort of offer a listing page is.
type ListingKind string

// Supported listing kinds.
const (
	KindRetail  ListingKind = "retail_listing"
	KindAuction ListingKind = "auction_lot"
	KindDealer  ListingKind = "dealer_stock"
	KindUnknown ListingKind = "unknown"
)

// IdentityKind records where a canonical identifier came from.
type IdentityKind string

// Supported identity kinds.
const (
	IdentitySource IdentityKind = "source"
	IdentityHash   IdentityKind = "hash"
)

// Candidate is one discovered, not-yet-verified listing.
// It is unique on (HuntID, CriteriaVersion, CanonicalID).
type Candidate struct {
	ID              int64
	HuntID          int64
	CriteriaVersion int
	CanonicalID     string
	IdentityKind    IdentityKind
	RunID           string

	SourceURL  string
	Domain     string
	SourceName string
	SourceTier int

	Title       string
	Year        int
	Make        string
	Model       string
	Variant     string
	Odometer    int
	AskingPrice int
	State       string

	Confidence   Confidence
	IsListing    bool
	ListingKind  ListingKind
	PageType     PageType
	Score        float64
	Decision     Decision
	RejectReason string
	Reasons      []string
	Tags         []string
	GapDollars   int
	GapPct       float64

	VerifiedFields  []string
	AlertEmitted    bool
	AlertedDecision Decision
	Stale           bool

	FirstSeenAt time.Time
	LastSeenAt  time.Time
}

// RunStatus is the lifecycle state of a run record.
type RunStatus string

// Supported run statuses.
const (
	RunRunning RunStatus = "running"
	RunSuccess RunStatus = "success"
	RunPartial RunStatus = "partial"
	RunFailed  RunStatus = "failed"
)

// Run is one invocation of the orchestrator against one hunt.
type Run struct {
	ID                 string
	HuntID             int64
	Status             RunStatus
	QueriesRun         int
	ResultsSeen        int
	Listings           int
	Articles           int
	CandidatesCreated  int
	CandidatesUpdated  int
	CandidatesRejected int
	AlertsEmitted      int
	RejectReasons      map[string]int
	Errors             []string
	Tier2Used          bool
	StartedAt          time.Time
	FinishedAt         *time.Time
}

// Alert is a one-shot notification for a candidate decision transition.
type Alert struct {
	ID          int64
	CandidateID int64
	HuntID      int64
	Decision    Decision
	Payload     string
	CreatedAt   time.Time
}
