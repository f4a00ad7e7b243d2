package db

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type Role string

const (
	RoleUser     Role = "user"
	RoleTeacher  Role = "teacher"
	RoleDirector Role = "director"
	RoleAdmin    Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleTeacher, RoleDirector, RoleAdmin:
		return true
	}
	return false
}

type Teacher struct {
	ID   int32  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

type Parent struct {
	ID             int32   `db:"id" json:"id"`
	Name           string  `db:"name" json:"name"`
	AdditionalInfo *string `db:"additional_info" json:"additional_info"`
}

type StudentGroup struct {
	ID        int32   `db:"id" json:"id"`
	Direction *string `db:"direction" json:"direction"`
	FreeSpots int32   `db:"free_spots" json:"free_spots"`
	TeacherID *int32  `db:"teacher_id" json:"teacher_id"`
}

type Student struct {
	ID             int32       `db:"id" json:"id"`
	Name           string      `db:"name" json:"name"`
	BirthDate      pgtype.Date `db:"birth_date" json:"birth_date"`
	ParentID       *int32      `db:"parent_id" json:"parent_id"`
	StudentGroupID *int32      `db:"student_group_id" json:"student_group_id"`
}

type Lesson struct {
	ID             int32       `db:"id" json:"id"`
	Topic          string      `db:"topic" json:"topic"`
	ScheduledAt    pgtype.Date `db:"scheduled_at" json:"scheduled_at"`
	StudentGroupID *int32      `db:"student_group_id" json:"student_group_id"`
}

type Attendance struct {
	ID         int32   `db:"id" json:"id"`
	StudentID  int32   `db:"student_id" json:"student_id"`
	LessonID   int32   `db:"lesson_id" json:"lesson_id"`
	IsPresent  bool    `db:"is_present" json:"is_present"`
	SkipReason *string `db:"skip_reason" json:"skip_reason"`
}

type Document struct {
	ID         uuid.UUID `db:"id" json:"id"`
	Name       string    `db:"name" json:"name"`
	UploadedAt time.Time `db:"uploaded_at" json:"uploaded_at"`
	TeacherID  int32     `db:"teacher_id" json:"teacher_id"`
}

type User struct {
	ID           int32   `db:"id" json:"id"`
	Username     string  `db:"username" json:"username"`
	PasswordHash string  `db:"password" json:"-"`
	Role         Role    `db:"role" json:"role"`
	FullName     *string `db:"full_name" json:"full_name"`
}

// Joined views returned by read endpoints.

type StudentWithRelations struct {
	Student
	Parent       *Parent       `json:"parent"`
	StudentGroup *StudentGroup `json:"student_group"`
}

type StudentGroupWithRelations struct {
	StudentGroup
	Teacher *Teacher `json:"teacher"`
}

type TeacherWithGroups struct {
	Teacher
	StudentGroups []StudentGroup `json:"student_groups"`
}

type LessonWithGroup struct {
	Lesson
	StudentGroup *StudentGroup `json:"student_group"`
}

type AttendanceWithRelations struct {
	Attendance
	Student Student `json:"student"`
	Lesson  Lesson  `json:"lesson"`
}
