package http

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"schoolschedule/internal/apperr"
)

const dateLayout = "2006-01-02"

type studentRequest struct {
	Name           string `json:"name" validate:"required,max=255"`
	BirthDate      string `json:"birth_date" validate:"required,datetime=2006-01-02"`
	ParentID       *int32 `json:"parent_id" validate:"omitempty,gt=0"`
	StudentGroupID *int32 `json:"student_group_id" validate:"omitempty,gt=0"`
}

type studentUpdateRequest struct {
	Name           *string `json:"name" validate:"omitempty,min=1,max=255"`
	BirthDate      *string `json:"birth_date" validate:"omitempty,datetime=2006-01-02"`
	ParentID       *int32  `json:"parent_id" validate:"omitempty,gt=0"`
	StudentGroupID *int32  `json:"student_group_id" validate:"omitempty,gt=0"`
}

type parentRequest struct {
	Name           string  `json:"name" validate:"required,max=255"`
	AdditionalInfo *string `json:"additional_info"`
}

type parentUpdateRequest struct {
	Name           *string `json:"name" validate:"omitempty,min=1,max=255"`
	AdditionalInfo *string `json:"additional_info"`
}

type teacherRequest struct {
	Name string `json:"name" validate:"required,max=255"`
}

type teacherUpdateRequest struct {
	Name *string `json:"name" validate:"omitempty,min=1,max=255"`
}

type studentGroupRequest struct {
	Direction *string `json:"direction" validate:"omitempty,max=255"`
	FreeSpots int32   `json:"free_spots" validate:"gte=0"`
	TeacherID *int32  `json:"teacher_id" validate:"omitempty,gt=0"`
}

type studentGroupUpdateRequest struct {
	Direction *string `json:"direction" validate:"omitempty,max=255"`
	FreeSpots *int32  `json:"free_spots" validate:"omitempty,gte=0"`
	TeacherID *int32  `json:"teacher_id" validate:"omitempty,gt=0"`
}

type lessonRequest struct {
	Topic          string `json:"topic" validate:"required,max=255"`
	ScheduledAt    string `json:"scheduled_at" validate:"required,datetime=2006-01-02"`
	StudentGroupID *int32 `json:"student_group_id" validate:"omitempty,gt=0"`
}

// lessonUpdateRequest treats an absent or null student_group_id as "no
// group".
type lessonUpdateRequest struct {
	Topic          *string `json:"topic" validate:"omitempty,min=1,max=255"`
	ScheduledAt    *string `json:"scheduled_at" validate:"omitempty,datetime=2006-01-02"`
	StudentGroupID *int32  `json:"student_group_id" validate:"omitempty,gt=0"`
}

type attendanceRequest struct {
	StudentID  int32   `json:"student_id" validate:"required,gt=0"`
	LessonID   int32   `json:"lesson_id" validate:"required,gt=0"`
	IsPresent  bool    `json:"is_present"`
	SkipReason *string `json:"skip_reason" validate:"omitempty,max=1024"`
}

type attendanceUpdateRequest struct {
	IsPresent  *bool   `json:"is_present"`
	SkipReason *string `json:"skip_reason" validate:"omitempty,max=1024"`
}

type userRequest struct {
	Username string  `json:"username" validate:"required,min=3,max=64"`
	Password string  `json:"password" validate:"required,min=6,max=72"`
	Role     string  `json:"role" validate:"omitempty,oneof=user teacher director admin"`
	FullName *string `json:"full_name" validate:"omitempty,max=255"`
}

type userUpdateRequest struct {
	Username *string `json:"username" validate:"omitempty,min=3,max=64"`
	Password *string `json:"password" validate:"omitempty,min=6,max=72"`
	Role     *string `json:"role" validate:"omitempty,oneof=user teacher director admin"`
	FullName *string `json:"full_name" validate:"omitempty,max=255"`
}

type loginForm struct {
	Username string `validate:"required"`
	Password string `validate:"required"`
}

func parseDate(raw string) (pgtype.Date, error) {
	parsed, err := time.Parse(dateLayout, raw)
	if err != nil {
		return pgtype.Date{}, apperr.Wrap(apperr.KindBadRequest, "invalid date", err)
	}
	return pgtype.Date{Time: parsed, Valid: true}, nil
}

// parseOptionalDate maps nil to an unset date, which leaves the column as is.
func parseOptionalDate(raw *string) (pgtype.Date, error) {
	if raw == nil {
		return pgtype.Date{}, nil
	}
	return parseDate(*raw)
}
