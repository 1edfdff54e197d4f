package catalog

import (
	"testing"

	"marketBack/internal/geo"
	"marketBack/internal/models"
)

func ptr(v float64) *float64 { return &v }

func fixtures() []models.Service {
	return []models.Service{
		{ID: 1, Title: "Pipe repair", Category: "Plumber", ProviderName: "Anil", PricePerHour: 400, AverageRating: 4.5, TotalReviews: 10, Latitude: ptr(9.95), Longitude: ptr(76.27)},
		{ID: 2, Title: "Wiring", Category: "electrician", ProviderName: "Biju", PricePerHour: 600, AverageRating: 4.8, TotalReviews: 3},
		{ID: 3, Title: "Leak fixing", Description: "Bathroom plumbing", Category: "plumber", ProviderName: "Chacko", PricePerHour: 300, AverageRating: 4.5, TotalReviews: 25, Latitude: ptr(9.9312), Longitude: ptr(76.2673)},
		{ID: 4, Title: "Math lessons", Category: "Tutor", ProviderName: "Deepa Plumb", PricePerHour: 500, AverageRating: 3.9, TotalReviews: 7, Latitude: ptr(10.5), Longitude: ptr(76.2)},
	}
}

func ids(list []models.Service) []int64 {
	out := make([]int64, len(list))
	for i, s := range list {
		out[i] = s.ID
	}
	return out
}

func equalIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestFilterCategory(t *testing.T) {
	got := Filter(fixtures(), "", "plumber")
	if !equalIDs(ids(got), []int64{1, 3}) {
		t.Fatalf("unexpected listings %v", ids(got))
	}
	for _, s := range got {
		if s.Category != "Plumber" && s.Category != "plumber" {
			t.Fatalf("listing %d has category %s", s.ID, s.Category)
		}
	}

	if all := Filter(fixtures(), "", "all"); len(all) != 4 {
		t.Fatalf("expected all listings for category all, got %d", len(all))
	}
	if all := Filter(fixtures(), "", "ALL"); len(all) != 4 {
		t.Fatalf("expected category all to be case-insensitive, got %d", len(all))
	}
}

func TestFilterSearchAcrossFields(t *testing.T) {
	cases := []struct {
		search string
		want   []int64
	}{
		{"PLUMB", []int64{1, 3, 4}},
		{"bathroom", []int64{3}},
		{"biju", []int64{2}},
		{"nothing matches", []int64{}},
		{"  ", []int64{1, 2, 3, 4}},
	}
	for _, tc := range cases {
		if got := ids(Filter(fixtures(), tc.search, "")); !equalIDs(got, tc.want) {
			t.Fatalf("search %q: got %v, want %v", tc.search, got, tc.want)
		}
	}

	combined := Filter(fixtures(), "plumb", "tutor")
	if !equalIDs(ids(combined), []int64{4}) {
		t.Fatalf("expected search and category to combine, got %v", ids(combined))
	}
}

func TestSortKeys(t *testing.T) {
	cases := []struct {
		key  string
		want []int64
	}{
		{SortRating, []int64{2, 1, 3, 4}},
		{SortPriceLow, []int64{3, 1, 4, 2}},
		{SortPriceHigh, []int64{2, 4, 1, 3}},
		{SortReviews, []int64{3, 1, 4, 2}},
		{"bogus", []int64{1, 2, 3, 4}},
	}
	for _, tc := range cases {
		list := fixtures()
		Sort(list, tc.key)
		if got := ids(list); !equalIDs(got, tc.want) {
			t.Fatalf("sort %q: got %v, want %v", tc.key, got, tc.want)
		}
	}
}

func TestApplyDistanceUnknownLast(t *testing.T) {
	viewer := geo.At(9.9312, 76.2673)
	got := Apply(fixtures(), Query{Sort: SortDistance, Viewer: viewer})

	if !equalIDs(ids(got), []int64{3, 1, 4, 2}) {
		t.Fatalf("unexpected order %v", ids(got))
	}
	if got[0].DistanceKm == nil || *got[0].DistanceKm != 0 {
		t.Fatalf("expected zero distance for co-located listing")
	}
	if got[3].DistanceKm != nil || got[3].DistanceText != "" {
		t.Fatalf("expected listing without coordinates to have unknown distance")
	}
	if got[1].DistanceText == "" {
		t.Fatalf("expected formatted distance on known listing")
	}
}

func TestApplyUnknownViewer(t *testing.T) {
	got := Apply(fixtures(), Query{Sort: SortDistance, Viewer: geo.Unknown})
	for _, s := range got {
		if s.DistanceKm != nil {
			t.Fatalf("listing %d should have no distance without viewer location", s.ID)
		}
	}
	if !equalIDs(ids(got), []int64{1, 2, 3, 4}) {
		t.Fatalf("expected stable order when every distance is unknown, got %v", ids(got))
	}
}

func TestCategoriesIsCopy(t *testing.T) {
	c := Categories()
	c[0] = "changed"
	if Categories()[0] != "electrician" {
		t.Fatal("Categories must return a copy")
	}
}
