package user

import (
	"github.com/pkg/errors"

	"github.com/d2718/camp-demo/core"
)

// Role marks which of the four kinds of user a record represents.
type Role string

const (
	RoleAdmin   Role = "Admin"
	RoleBoss    Role = "Boss"
	RoleTeacher Role = "Teacher"
	RoleStudent Role = "Student"
)

func ParseRole(s string) (Role, error) {
	switch Role(core.CleanString(s)) {
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleBoss:
		return RoleBoss, nil
	case RoleTeacher:
		return RoleTeacher, nil
	case RoleStudent:
		return RoleStudent, nil
	}
	return "", errors.Errorf("%q is not a valid role", s)
}

// BaseUser is the information common to all four kinds of user.
type BaseUser struct {
	// Uname uniquely identifies each user.
	Uname string `json:"uname" db:"uname" validate:"required,alphanum"`
	Role  Role   `json:"role" db:"role"`
	// Salt for hashing the user's password in the credentials store. It is
	// generated by the academic store when the user row is inserted.
	Salt  string `json:"-" db:"salt"`
	Email string `json:"email" db:"email" validate:"omitempty,email"`
}

// Base supports the User interface; every concrete user embeds a BaseUser.
func (b *BaseUser) Base() *BaseUser { return b }

// User is any of the four concrete user types.
type User interface {
	Base() *BaseUser
}

// Admin can add users and courses and maintain the calendar.
type Admin struct {
	BaseUser
}

// Boss can see all students' progress and generate parent emails.
type Boss struct {
	BaseUser
}

// Teacher can see and update the progress of their own students.
type Teacher struct {
	BaseUser
	// Display name.
	Name string `json:"name" db:"name" validate:"required,nomarkup"`
}

// Student wraps everything about a student except their pace goals.
type Student struct {
	BaseUser
	Last string `json:"last" db:"last" validate:"required,nomarkup"`
	// The rest of the student's name (first, middle initial, etc.).
	Rest string `json:"rest" db:"rest" validate:"required,nomarkup"`
	// Uname of the student's teacher.
	Teacher string `json:"teacher" db:"teacher" validate:"required,alphanum"`
	// Parent email address.
	Parent string `json:"parent" db:"parent" validate:"omitempty,email"`
	// Exam marks as entered by the teacher; nil until the exam is taken.
	FallExam   *string `json:"fall_exam,omitempty" db:"fall_exam"`
	SpringExam *string `json:"spring_exam,omitempty" db:"spring_exam"`
	// Portion of each semester grade the exam counts for.
	FallExamFraction   float64 `json:"fall_exam_fraction" db:"fall_exam_fraction"`
	SpringExamFraction float64 `json:"spring_exam_fraction" db:"spring_exam_fraction"`
	// Homework notices that count against each semester grade.
	FallNotices   int16 `json:"fall_notices" db:"fall_notices"`
	SpringNotices int16 `json:"spring_notices" db:"spring_notices"`
}

// FullName renders "Rest Last".
func (s *Student) FullName() string {
	return s.Rest + " " + s.Last
}

// Validate applies the field rules for a user record entered by hand or
// ingested from CSV.
func Validate(u User) error {
	var err error
	switch u := u.(type) {
	case *Admin:
		err = core.Validate.Struct(&u.BaseUser)
	case *Boss:
		err = core.Validate.Struct(&u.BaseUser)
	case *Teacher:
		err = core.Validate.Struct(u)
	case *Student:
		err = core.Validate.Struct(u)
	default:
		return errors.Errorf("unhandled user type %T", u)
	}
	if err != nil {
		return core.NewValidationError(err)
	}
	return nil
}
