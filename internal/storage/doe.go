package storage

import (
	"encoding/json"
	"errors"
	"time"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrNoCredits = errors.New("no optimization credits left")
)

// DefaultCredits is the balance of a user without a users row.
const DefaultCredits = 10

const (
	StatusDraft     = "draft"
	StatusOptimized = "optimized"
)

// Design is a user's DOE design. Parameters, PreviewData and
// OptimizationResult are stored as opaque JSON.
type Design struct {
	ID                 int64           `json:"id"`
	UserID             string          `json:"userId"`
	Name               string          `json:"name"`
	Mode               string          `json:"mode"`
	Status             string          `json:"status"`
	Parameters         json.RawMessage `json:"parameters"`
	PreviewData        json.RawMessage `json:"previewData"`
	OptimizationResult json.RawMessage `json:"optimizationResult"`
	PhaseMapURL        *string         `json:"phaseMapUrl"`
	CreatedAt          time.Time       `json:"createdAt"`
	UpdatedAt          time.Time       `json:"updatedAt"`
}

// DesignPatch lists the fields to change; nil leaves a field as is.
type DesignPatch struct {
	Name               *string
	Mode               *string
	Status             *string
	Parameters         json.RawMessage
	PreviewData        json.RawMessage
	OptimizationResult json.RawMessage
	PhaseMapURL        *string
}

// Empty reports whether the patch changes nothing.
func (p DesignPatch) Empty() bool {
	return p.Name == nil && p.Mode == nil && p.Status == nil &&
		p.Parameters == nil && p.PreviewData == nil && p.OptimizationResult == nil &&
		p.PhaseMapURL == nil
}

type Template struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	Description  *string         `json:"description"`
	Mode         string          `json:"mode"`
	Category     *string         `json:"category"`
	Parameters   json.RawMessage `json:"parameters"`
	ThumbnailURL *string         `json:"thumbnailUrl"`
	IsActive     bool            `json:"isActive"`
	DisplayOrder int             `json:"displayOrder"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

type TemplatePatch struct {
	Name         *string
	Description  *string
	Mode         *string
	Category     *string
	Parameters   json.RawMessage
	ThumbnailURL *string
	IsActive     *bool
	DisplayOrder *int
}

func (p TemplatePatch) Empty() bool {
	return p.Name == nil && p.Description == nil && p.Mode == nil && p.Category == nil &&
		p.Parameters == nil && p.ThumbnailURL == nil && p.IsActive == nil && p.DisplayOrder == nil
}

type User struct {
	ID                  string `json:"id"`
	Name                string `json:"name"`
	Email               string `json:"email"`
	Role                string `json:"role"`
	OptimizationCredits int    `json:"optimizationCredits"`
}
