package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Review struct {
	ID                 string    `json:"id"`
	UserID             string    `json:"user"`
	UserName           string    `json:"userName"`
	ProductID          string    `json:"product"`
	Rating             int       `json:"rating"`
	Comment            string    `json:"comment"`
	IsVerifiedPurchase bool      `json:"isVerifiedPurchase"`
	CreatedAt          time.Time `json:"createdAt"`
}

func NewReview(userID, userName, productID string, rating int, comment string, verified bool, now time.Time) (*Review, error) {
	if rating < 1 || rating > 5 {
		return nil, Validation("Rating must be between 1 and 5")
	}
	comment = strings.TrimSpace(comment)
	if comment == "" {
		return nil, Validation("Comment is required")
	}
	return &Review{
		UserID:             userID,
		UserName:           userName,
		ProductID:          productID,
		Rating:             rating,
		Comment:            comment,
		IsVerifiedPurchase: verified,
		CreatedAt:          now,
	}, nil
}

type RatingSummary struct {
	AverageRating float64 `json:"averageRating"`
	NumReviews    int     `json:"numReviews"`
}

// SummarizeRatings reduces a rating sum and count to a mean rounded to one
// decimal place. No reviews yields {0, 0}.
func SummarizeRatings(sum, count int64) RatingSummary {
	if count == 0 {
		return RatingSummary{}
	}
	mean := decimal.NewFromInt(sum).Div(decimal.NewFromInt(count)).Round(1)
	return RatingSummary{
		AverageRating: mean.InexactFloat64(),
		NumReviews:    int(count),
	}
}
