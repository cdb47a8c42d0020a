package constants

import (
	"fmt"
	"strings"
)

// ItemStatus is the lifecycle status stored on items rows.
type ItemStatus string

// Stable values (store these exact strings in DB).
const (
	ItemCaptured  ItemStatus = "captured"  // created by extraction or manual entry
	ItemConfirmed ItemStatus = "confirmed" // operator reviewed
	ItemEnriched  ItemStatus = "enriched"  // has market intelligence
	ItemPublished ItemStatus = "published" // visible on the auction page
)

var itemStatuses = []ItemStatus{ItemCaptured, ItemConfirmed, ItemEnriched, ItemPublished}

func ParseItemStatus(s string) (ItemStatus, error) {
	for _, v := range itemStatuses {
		if string(v) == strings.TrimSpace(s) {
			return v, nil
		}
	}
	return "", fmt.Errorf("unknown item status %q", s)
}

// PubliclyVisible reports whether items in this status appear on the auction page.
func (s ItemStatus) PubliclyVisible() bool {
	return s == ItemEnriched || s == ItemPublished
}

// EstateStatus is the aggregate status on estates rows.
type EstateStatus string

const (
	EstateDraft     EstateStatus = "draft"
	EstateLogging   EstateStatus = "logging"
	EstateReview    EstateStatus = "review"
	EstateEnriching EstateStatus = "enriching"
	EstatePublished EstateStatus = "published"
	EstateArchived  EstateStatus = "archived"
)

var estateStatuses = []EstateStatus{EstateDraft, EstateLogging, EstateReview, EstateEnriching, EstatePublished, EstateArchived}

func ParseEstateStatus(s string) (EstateStatus, error) {
	for _, v := range estateStatuses {
		if string(v) == strings.TrimSpace(s) {
			return v, nil
		}
	}
	return "", fmt.Errorf("unknown estate status %q", s)
}

// SessionStatus tracks one capture run.
type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionPaused    SessionStatus = "paused"
	SessionCompleted SessionStatus = "completed"
)

type Condition string

const (
	ConditionExcellent Condition = "excellent"
	ConditionGood      Condition = "good"
	ConditionFair      Condition = "fair"
	ConditionPoor      Condition = "poor"
	ConditionUnknown   Condition = "unknown"
)

var conditions = []Condition{ConditionExcellent, ConditionGood, ConditionFair, ConditionPoor, ConditionUnknown}

func ConditionsAsStringSlice() []string {
	out := make([]string, len(conditions))
	for i, c := range conditions {
		out[i] = string(c)
	}
	return out
}

// NormalizeCondition lower-cases the input and falls back to unknown.
func NormalizeCondition(s string) (Condition, bool) {
	n := strings.ToLower(strings.TrimSpace(s))
	for _, c := range conditions {
		if string(c) == n {
			return c, true
		}
	}
	return ConditionUnknown, false
}

// Confidence is the enrichment's self-reported pricing certainty.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

func NormalizeConfidence(s string) Confidence {
	switch Confidence(strings.ToLower(strings.TrimSpace(s))) {
	case ConfidenceHigh:
		return ConfidenceHigh
	case ConfidenceLow:
		return ConfidenceLow
	default:
		return ConfidenceMedium
	}
}

type ImageType string

const (
	ImageActual    ImageType = "actual"
	ImageReference ImageType = "reference"
)

type PropertyType string

const (
	PropertyResidential PropertyType = "residential"
	PropertyCommercial  PropertyType = "commercial"
	PropertyStorage     PropertyType = "storage"
	PropertyOther       PropertyType = "other"
)

func ParsePropertyType(s string) (PropertyType, error) {
	switch v := PropertyType(strings.ToLower(strings.TrimSpace(s))); v {
	case PropertyResidential, PropertyCommercial, PropertyStorage, PropertyOther:
		return v, nil
	}
	return "", fmt.Errorf("unknown property type %q", s)
}

// ExcerptLimit caps the transcript excerpt stored on each extracted item.
const ExcerptLimit = 2000
