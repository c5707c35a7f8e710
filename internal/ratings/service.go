// Package ratings records post-ride scores and aggregates them per user.
package ratings

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/chachabrian/rideon-backend/internal/models"
	apperrors "github.com/chachabrian/rideon-backend/pkg/errors"
	"github.com/chachabrian/rideon-backend/pkg/logger"
	"github.com/chachabrian/rideon-backend/pkg/utils"
	"gorm.io/gorm"
)

var errDuplicateRating = apperrors.Conflict("You have already rated this ride", nil)

type Service struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewService(db *gorm.DB, log *logger.Logger) *Service {
	return &Service{db: db, log: log}
}

// Input carries the overall score and the optional category scores
type Input struct {
	Rating          *int    `json:"rating"`
	Punctuality     *int    `json:"punctuality"`
	Communication   *int    `json:"communication"`
	Cleanliness     *int    `json:"cleanliness"`
	Professionalism *int    `json:"professionalism"`
	Comment         *string `json:"comment"`

	// Clear lists category scores sent as an explicit null. An omitted
	// category is left unchanged on update.
	Clear []string `json:"-"`
}

var categories = []string{"punctuality", "communication", "cleanliness", "professionalism"}

func (in *Input) UnmarshalJSON(data []byte) error {
	type plain Input
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*in = Input(p)
	for _, name := range categories {
		if v, ok := raw[name]; ok && string(bytes.TrimSpace(v)) == "null" {
			in.Clear = append(in.Clear, name)
		}
	}
	return nil
}

func checkScore(fields apperrors.FieldErrors, field string, v *int) {
	if v != nil && (*v < 1 || *v > 5) {
		fields.Add(field, "Ensure this value is between 1 and 5.")
	}
}

func (in Input) validate(requireRating bool) error {
	fields := apperrors.FieldErrors{}
	if in.Rating == nil && requireRating {
		fields.Add("rating", "This field is required.")
	}
	checkScore(fields, "rating", in.Rating)
	checkScore(fields, "punctuality", in.Punctuality)
	checkScore(fields, "communication", in.Communication)
	checkScore(fields, "cleanliness", in.Cleanliness)
	checkScore(fields, "professionalism", in.Professionalism)
	return fields.Err("Invalid rating")
}

func (in Input) apply(r *models.Rating) {
	if in.Rating != nil {
		r.Rating = *in.Rating
	}
	if in.Punctuality != nil {
		r.Punctuality = in.Punctuality
	}
	if in.Communication != nil {
		r.Communication = in.Communication
	}
	if in.Cleanliness != nil {
		r.Cleanliness = in.Cleanliness
	}
	if in.Professionalism != nil {
		r.Professionalism = in.Professionalism
	}
	if in.Comment != nil {
		r.Comment = strings.TrimSpace(*in.Comment)
	}
	for _, name := range in.Clear {
		switch name {
		case "punctuality":
			r.Punctuality = nil
		case "communication":
			r.Communication = nil
		case "cleanliness":
			r.Cleanliness = nil
		case "professionalism":
			r.Professionalism = nil
		}
	}
}

// Create lets a participant of a completed ride rate the other participant
func (s *Service) Create(ctx context.Context, user *models.User, rideID uint, in Input) (*models.Rating, error) {
	db := s.db.WithContext(ctx)

	var ride models.Ride
	if err := db.First(&ride, rideID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrRideNotFound
		}
		return nil, apperrors.Internal("Failed to load ride", err)
	}
	if !ride.IsParticipant(user.ID) {
		return nil, apperrors.Forbidden("You can only rate rides you participated in", nil)
	}
	if ride.Status != models.RideStatusCompleted {
		return nil, apperrors.Invalid("ride", "You can only rate completed rides.")
	}
	rated := ride.Counterpart(user.ID)
	if rated == 0 {
		return nil, apperrors.Invalid("ride", "This ride has no driver to rate.")
	}
	if err := in.validate(true); err != nil {
		return nil, err
	}

	var existing int64
	if err := db.Model(&models.Rating{}).
		Where("ride_id = ? AND rater_id = ? AND rated_id = ?", ride.ID, user.ID, rated).
		Count(&existing).Error; err != nil {
		return nil, apperrors.Internal("Failed to check ratings", err)
	}
	if existing > 0 {
		return nil, errDuplicateRating
	}

	rating := &models.Rating{RideID: ride.ID, RaterID: user.ID, RatedID: rated}
	in.apply(rating)

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(rating).Error; err != nil {
			return err
		}
		return syncDriverRating(tx, rated)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, errDuplicateRating
		}
		return nil, apperrors.Internal("Failed to save rating", err)
	}

	s.log.Info("Ride rated",
		logger.Uint("ride_id", ride.ID),
		logger.Uint("rater_id", user.ID),
		logger.Uint("rated_id", rated),
		logger.Int("rating", rating.Rating),
	)
	return rating, nil
}

// ListForRide returns a ride's ratings to its participants
func (s *Service) ListForRide(ctx context.Context, user *models.User, rideID uint) ([]models.Rating, error) {
	db := s.db.WithContext(ctx)

	var ride models.Ride
	if err := db.First(&ride, rideID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrRideNotFound
		}
		return nil, apperrors.Internal("Failed to load ride", err)
	}
	if !ride.IsParticipant(user.ID) {
		return nil, apperrors.ErrNotRideParticipant
	}

	var ratings []models.Rating
	if err := db.Preload("Rater").Preload("Rated").
		Where("ride_id = ?", rideID).
		Order("created_at DESC, id DESC").
		Find(&ratings).Error; err != nil {
		return nil, apperrors.Internal("Failed to load ratings", err)
	}
	return ratings, nil
}

func (s *Service) Get(ctx context.Context, id uint) (*models.Rating, error) {
	var rating models.Rating
	if err := s.db.WithContext(ctx).Preload("Rater").Preload("Rated").First(&rating, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrRatingNotFound
		}
		return nil, apperrors.Internal("Failed to load rating", err)
	}
	return &rating, nil
}

func (s *Service) owned(ctx context.Context, user *models.User, id uint) (*models.Rating, error) {
	rating, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if rating.RaterID != user.ID {
		return nil, apperrors.Forbidden("You can only modify your own ratings", nil)
	}
	return rating, nil
}

// Update changes the scores of a rating the caller gave
func (s *Service) Update(ctx context.Context, user *models.User, id uint, in Input) (*models.Rating, error) {
	rating, err := s.owned(ctx, user, id)
	if err != nil {
		return nil, err
	}
	if err := in.validate(false); err != nil {
		return nil, err
	}
	in.apply(rating)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(rating).Select(
			"rating", "punctuality", "communication", "cleanliness", "professionalism", "comment",
		).Updates(rating).Error; err != nil {
			return err
		}
		return syncDriverRating(tx, rating.RatedID)
	})
	if err != nil {
		return nil, apperrors.Internal("Failed to update rating", err)
	}
	return rating, nil
}

func (s *Service) Delete(ctx context.Context, user *models.User, id uint) error {
	rating, err := s.owned(ctx, user, id)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.Rating{}, rating.ID).Error; err != nil {
			return err
		}
		return syncDriverRating(tx, rating.RatedID)
	})
	if err != nil {
		return apperrors.Internal("Failed to delete rating", err)
	}
	return nil
}

// Summary aggregates every rating a user has received. Averages with no
// underlying scores are null.
type Summary struct {
	UserID                 uint     `json:"user_id"`
	TotalRatings           int64    `json:"total_ratings"`
	AverageRating          *float64 `json:"average_rating"`
	AveragePunctuality     *float64 `json:"average_punctuality"`
	AverageCommunication   *float64 `json:"average_communication"`
	AverageCleanliness     *float64 `json:"average_cleanliness"`
	AverageProfessionalism *float64 `json:"average_professionalism"`
}

type aggregateRow struct {
	Total           int64
	Rating          *float64
	Punctuality     *float64
	Communication   *float64
	Cleanliness     *float64
	Professionalism *float64
}

func aggregate(db *gorm.DB, userID uint) (*aggregateRow, error) {
	var row aggregateRow
	err := db.Model(&models.Rating{}).
		Select(`COUNT(*) AS total,
			AVG(rating) AS rating,
			AVG(punctuality) AS punctuality,
			AVG(communication) AS communication,
			AVG(cleanliness) AS cleanliness,
			AVG(professionalism) AS professionalism`).
		Where("rated_id = ?", userID).
		Scan(&row).Error
	return &row, err
}

func round(v *float64) *float64 {
	if v == nil {
		return nil
	}
	r := utils.Round2(*v)
	return &r
}

// Aggregate summarises the ratings received by userID
func (s *Service) Aggregate(ctx context.Context, userID uint) (*Summary, error) {
	db := s.db.WithContext(ctx)

	var exists int64
	if err := db.Model(&models.User{}).Where("id = ?", userID).Count(&exists).Error; err != nil {
		return nil, apperrors.Internal("Failed to load user", err)
	}
	if exists == 0 {
		return nil, apperrors.ErrUserNotFound
	}

	row, err := aggregate(db, userID)
	if err != nil {
		return nil, apperrors.Internal("Failed to aggregate ratings", err)
	}
	return &Summary{
		UserID:                 userID,
		TotalRatings:           row.Total,
		AverageRating:          round(row.Rating),
		AveragePunctuality:     round(row.Punctuality),
		AverageCommunication:   round(row.Communication),
		AverageCleanliness:     round(row.Cleanliness),
		AverageProfessionalism: round(row.Professionalism),
	}, nil
}

// syncDriverRating keeps DriverProfile.rating equal to the overall average
// received by the driver, or the default when nothing is left.
func syncDriverRating(tx *gorm.DB, userID uint) error {
	row, err := aggregate(tx, userID)
	if err != nil {
		return fmt.Errorf("aggregate ratings: %w", err)
	}
	value := models.DefaultDriverRating
	if row.Rating != nil {
		value = utils.Round2(*row.Rating)
	}
	return tx.Model(&models.DriverProfile{}).Where("user_id = ?", userID).Update("rating", value).Error
}
