package models

import (
	"time"

	"github.com/google/uuid"
)

// Enrollment gives a user access to a purchased course.
type Enrollment struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID     uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_enrollments_user_course"`
	CourseID   uuid.UUID `gorm:"column:course_id;type:uuid;not null;uniqueIndex:idx_enrollments_user_course"`
	EnrolledAt time.Time `gorm:"column:enrolled_at;autoCreateTime"`
}
