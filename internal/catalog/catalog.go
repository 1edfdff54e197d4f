// Package catalog filters, annotates and ranks service listings for browsing.
package catalog

import (
	"cmp"
	"strings"

	"golang.org/x/exp/slices"

	"marketBack/internal/geo"
	"marketBack/internal/models"
)

// Sort keys.
const (
	SortRating    = "rating"
	SortPriceLow  = "price_low"
	SortPriceHigh = "price_high"
	SortDistance  = "distance"
	SortReviews   = "reviews"
)

// CategoryAll disables the category filter.
const CategoryAll = "all"

var categories = []string{
	"electrician",
	"plumber",
	"tutor",
	"cleaner",
	"fitness trainer",
	"photographer",
	"gardener",
	"painter",
}

// Categories returns the category names offered in the marketplace.
func Categories() []string {
	return slices.Clone(categories)
}

type Query struct {
	Search   string
	Category string
	Sort     string
	Viewer   geo.Location
}

// Apply filters, annotates distances and sorts. The input slice is not modified.
func Apply(listings []models.Service, q Query) []models.Service {
	out := Filter(listings, q.Search, q.Category)
	Annotate(out, q.Viewer)
	Sort(out, q.Sort)
	return out
}

// Filter keeps listings whose title, description, category or provider name
// contains search, and whose category matches category unless it is "all".
func Filter(listings []models.Service, search, category string) []models.Service {
	needle := strings.ToLower(strings.TrimSpace(search))
	category = strings.TrimSpace(category)
	filterCategory := category != "" && !strings.EqualFold(category, CategoryAll)

	out := make([]models.Service, 0, len(listings))
	for _, s := range listings {
		if needle != "" && !matches(s, needle) {
			continue
		}
		if filterCategory && !strings.EqualFold(s.Category, category) {
			continue
		}
		out = append(out, s)
	}
	return out
}

func matches(s models.Service, needle string) bool {
	for _, field := range []string{s.Title, s.Description, s.Category, s.ProviderName} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

// Annotate sets DistanceKm for listings when both ends are known and clears
// it otherwise.
func Annotate(listings []models.Service, viewer geo.Location) {
	for i := range listings {
		listings[i].DistanceKm = geo.DistancePtr(viewer, listings[i].Point())
		if listings[i].DistanceKm != nil {
			listings[i].DistanceText = geo.FormatDistance(listings[i].DistanceKm)
		} else {
			listings[i].DistanceText = ""
		}
	}
}

// Sort orders listings in place by key. Ties keep their input order; an
// unknown key leaves the order untouched.
func Sort(listings []models.Service, key string) {
	var less func(a, b models.Service) int
	switch key {
	case SortRating, "":
		less = func(a, b models.Service) int { return cmp.Compare(b.AverageRating, a.AverageRating) }
	case SortPriceLow:
		less = func(a, b models.Service) int { return cmp.Compare(a.PricePerHour, b.PricePerHour) }
	case SortPriceHigh:
		less = func(a, b models.Service) int { return cmp.Compare(b.PricePerHour, a.PricePerHour) }
	case SortDistance:
		less = byDistance
	case SortReviews:
		less = func(a, b models.Service) int { return cmp.Compare(b.TotalReviews, a.TotalReviews) }
	default:
		return
	}
	slices.SortStableFunc(listings, less)
}

// byDistance puts unknown distances after every known one.
func byDistance(a, b models.Service) int {
	switch {
	case a.DistanceKm == nil && b.DistanceKm == nil:
		return 0
	case a.DistanceKm == nil:
		return 1
	case b.DistanceKm == nil:
		return -1
	}
	return cmp.Compare(*a.DistanceKm, *b.DistanceKm)
}

// ValidSort reports whether key is a supported sort key.
func ValidSort(key string) bool {
	switch key {
	case "", SortRating, SortPriceLow, SortPriceHigh, SortDistance, SortReviews:
		return true
	}
	return false
}
