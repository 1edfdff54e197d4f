package repositories

import "marketBack/internal/models"

// summarizeRatings is the arithmetic mean over the full rating set.
func summarizeRatings(ratings []int) models.RatingSummary {
	if len(ratings) == 0 {
		return models.RatingSummary{}
	}
	sum := 0
	for _, r := range ratings {
		sum += r
	}
	return models.RatingSummary{
		Average: float64(sum) / float64(len(ratings)),
		Count:   len(ratings),
	}
}
