// Package catalog serves the filter-coffee regions shown on the site.
package catalog

import (
	"context"
	"errors"
	"time"
)

// ErrRegionNotFound is returned when no region has the requested id.
var ErrRegionNotFound = errors.New("catalog: region not found")

// Media is a photo or video attached to a region.
type Media struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
}

// Region is a sourcing region and its filter pricing.
type Region struct {
	ID                       string    `json:"id"`
	Name                     string    `json:"name"`
	Location                 string    `json:"location"`
	Description              string    `json:"description"`
	SingleFilterPrice        float64   `json:"singlefilter_price"`
	DoubleFilterPrice        float64   `json:"doublefilter_price"`
	MixedFilterPrice         float64   `json:"mixedfilter_price"`
	AvgWeightPerSingleFilter float64   `json:"avg_weight_per_singlefilter"`
	AvgWeightPerDoubleFilter float64   `json:"avg_weight_per_doublefilter"`
	AvgWeightPerMixedFilter  float64   `json:"avg_weight_per_mixedfilter"`
	FreeNut                  float64   `json:"free_nut"`
	Rating                   float64   `json:"rating"`
	TotalReviews             int       `json:"total_reviews"`
	TotalSales               int       `json:"total_sales"`
	VisitCount               int       `json:"visit_count"`
	Features                 []string  `json:"features"`
	Media                    []Media   `json:"media"`
	UpdatedAt                time.Time `json:"updated_at"`
}

// Repository reads regions. List is ordered by name.
type Repository interface {
	List(ctx context.Context) ([]Region, error)
	GetByID(ctx context.Context, id string) (*Region, error)
}
