package models

// Rating is one participant's score of the other for a completed ride
type Rating struct {
	Model
	RideID          uint   `json:"ride_id" gorm:"not null;uniqueIndex:idx_rating_triple"`
	RaterID         uint   `json:"rater_id" gorm:"not null;uniqueIndex:idx_rating_triple"`
	Rater           *User  `json:"rater,omitempty" gorm:"foreignKey:RaterID;constraint:OnDelete:CASCADE"`
	RatedID         uint   `json:"rated_user_id" gorm:"not null;uniqueIndex:idx_rating_triple;index"`
	Rated           *User  `json:"rated_user,omitempty" gorm:"foreignKey:RatedID;constraint:OnDelete:CASCADE"`
	Rating          int    `json:"rating" gorm:"not null;check:rating >= 1 AND rating <= 5"`
	Punctuality     *int   `json:"punctuality"`
	Communication   *int   `json:"communication"`
	Cleanliness     *int   `json:"cleanliness"`
	Professionalism *int   `json:"professionalism"`
	Comment         string `json:"comment" gorm:"type:text"`
}

func (Rating) TableName() string {
	return "ratings"
}
