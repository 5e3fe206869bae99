package models

type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
)

// Identity is the already-authorized caller supplied by the identity
// collaborator. No authentication happens in this service.
type Identity struct {
	UserID       int64
	Role         Role
	ClassIDs     Int64List // managed classes for teachers
	DepartmentID *int64
}

func (id Identity) Staff() bool { return id.Role == RoleTeacher || id.Role == RoleAdmin }

func (id Identity) ManagesClass(classID int64) bool {
	if id.Role == RoleAdmin {
		return true
	}
	return id.Role == RoleTeacher && id.ClassIDs.Contains(classID)
}

type Department struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

type Class struct {
	ID           int64  `db:"id" json:"id"`
	Name         string `db:"name" json:"name"`
	Grade        int    `db:"grade" json:"grade"`
	DepartmentID int64  `db:"department_id" json:"department_id"`
}

type Student struct {
	ID        int64  `db:"id" json:"id"`
	StudentNo string `db:"student_no" json:"student_no"`
	Name      string `db:"name" json:"name"`
	ClassID   int64  `db:"class_id" json:"class_id"`
	UserID    *int64 `db:"user_id" json:"user_id,omitempty"`
}
