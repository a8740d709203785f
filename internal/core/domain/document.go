package domain

import (
	"strings"
	"time"
)

type Category string

const (
	CategoryAcademic       Category = "ACA"
	CategoryAdministration Category = "ADM"
	CategoryResearch       Category = "CRE"
	CategoryFinancial      Category = "FIN"
	CategoryLegal          Category = "LEG"
	CategoryPersonnel      Category = "PER"
	CategoryStudentAffairs Category = "SAS"
)

var categories = []Category{
	CategoryAcademic,
	CategoryAdministration,
	CategoryResearch,
	CategoryFinancial,
	CategoryLegal,
	CategoryPersonnel,
	CategoryStudentAffairs,
}

// Categories returns the closed set of category codes in display order.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// ParseCategory normalizes a raw model answer into a known category code.
func ParseCategory(raw string) (Category, bool) {
	code := Category(strings.ToUpper(strings.TrimSpace(raw)))
	for _, c := range categories {
		if c == code {
			return c, true
		}
	}
	return "", false
}

type Funding string

const (
	FundingInternal Funding = "INT"
	FundingExternal Funding = "EXT"
)

// ParseFunding returns nil for empty, "null" or unknown values.
func ParseFunding(raw *string) *Funding {
	if raw == nil {
		return nil
	}
	switch Funding(strings.ToUpper(strings.TrimSpace(*raw))) {
	case FundingInternal:
		f := FundingInternal
		return &f
	case FundingExternal:
		f := FundingExternal
		return &f
	default:
		return nil
	}
}

type Classification struct {
	Category Category `json:"type"`
	Funding  *Funding `json:"funding"`
	Subject  string   `json:"subject"`
	Author   string   `json:"author"`
	Year     string   `json:"year_processed"`
}

// Metadata is the extended bibliographic record kept for CRE documents.
type Metadata struct {
	Title            *string  `json:"title"`
	Authors          []string `json:"authors"`
	PresentingAuthor *string  `json:"presenting_author"`
	Venue            *string  `json:"conference"`
	Date             *string  `json:"conference_date"`
	Location         *string  `json:"location"`
	Abstract         *string  `json:"abstract"`
	Keywords         []string `json:"keywords"`
}

// Result is the sidecar payload written next to every processed document.
type Result struct {
	Classification Classification `json:"classification"`
	Metadata       *Metadata      `json:"metadata"`
}

type DocumentStatus string

const (
	StatusProcessing DocumentStatus = "processing"
	StatusFiled      DocumentStatus = "filed"
	StatusFailed     DocumentStatus = "failed"
	StatusPartial    DocumentStatus = "partial"
)

type Stage string

const (
	StageQueued             Stage = "queued"
	StageParsing            Stage = "parsing"
	StageClassifying        Stage = "classifying"
	StageExtractingMetadata Stage = "extracting_metadata"
	StagePersisting         Stage = "persisting"
	StageRenaming           Stage = "renaming"
	StageRouting            Stage = "routing"
	StageDone               Stage = "done"
	StageFailed             Stage = "failed"
)

// Document is one processing run of a file picked from the intake queue.
type Document struct {
	ID              string         `json:"id"`
	SourcePath      string         `json:"source_path"`
	Filename        string         `json:"filename"`
	Status          DocumentStatus `json:"status"`
	Stage           Stage          `json:"stage"`
	Category        Category       `json:"category,omitempty"`
	DestinationPath string         `json:"destination_path,omitempty"`
	SidecarPath     string         `json:"sidecar_path,omitempty"`
	Error           string         `json:"error,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// Folders is the persisted source/destination pair.
type Folders struct {
	SourcePath      string `yaml:"source_path" json:"source_path"`
	DestinationPath string `yaml:"destination_path" json:"destination_path"`
}
