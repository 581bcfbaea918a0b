package models

import (
	"time"
)

// Host platform tables. Figures only reads them.

type Site struct {
	ID     uint   `gorm:"primarykey"        json:"id"`
	Domain string `gorm:"type:varchar(100)" json:"domain"`
	Name   string `gorm:"type:varchar(50)"  json:"name"`
}

func (Site) TableName() string { return "django_site" }

type User struct {
	ID          uint         `gorm:"primarykey"`
	Username    string       `gorm:"type:varchar(150);uniqueIndex"`
	Email       string       `gorm:"type:varchar(254)"`
	FirstName   string       `gorm:"type:varchar(30)"`
	LastName    string       `gorm:"type:varchar(150)"`
	IsActive    bool         `gorm:"not null;default:true"`
	IsStaff     bool         `gorm:"not null;default:false"`
	IsSuperuser bool         `gorm:"not null;default:false"`
	DateJoined  time.Time    `gorm:"not null"`
	Profile     *UserProfile `gorm:"foreignKey:UserID"`
}

func (User) TableName() string { return "auth_user" }

// IsGlobalStaff reports whether the user may see every course on the platform.
func (u User) IsGlobalStaff() bool {
	return u.IsActive && (u.IsStaff || u.IsSuperuser)
}

func (u User) FullName() *string {
	if u.Profile == nil || u.Profile.Name == "" {
		return nil
	}
	return &u.Profile.Name
}

type UserProfile struct {
	ID               uint       `gorm:"primarykey"`
	UserID           uint       `gorm:"uniqueIndex;not null"`
	Name             string     `gorm:"type:varchar(255)"`
	Country          string     `gorm:"type:varchar(2)"`
	YearOfBirth      *int       `gorm:"column:year_of_birth"`
	Gender           *string    `gorm:"type:varchar(6)"`
	LevelOfEducation *string    `gorm:"type:varchar(6)"`
	Language         string     `gorm:"type:varchar(255)"`
	Bio              *string    `gorm:"type:varchar(3000)"`
	ProfileImageAt   *time.Time `gorm:"column:profile_image_uploaded_at"`
}

func (UserProfile) TableName() string { return "auth_userprofile" }

type CourseOverview struct {
	ID                 string `gorm:"primarykey;type:varchar(255)"`
	DisplayName        string `gorm:"type:text"`
	DisplayNumber      string `gorm:"column:display_number_with_default;type:text"`
	DisplayOrg         string `gorm:"column:display_org_with_default;type:text"`
	Org                string `gorm:"type:text"`
	Start              *time.Time
	End                *time.Time
	SelfPaced          bool     `gorm:"not null;default:false"`
	Language           *string  `gorm:"type:varchar(255)"`
	LowestPassingGrade *float64 `gorm:"type:decimal(5,2)"`
	Created            time.Time
	Modified           time.Time
}

func (CourseOverview) TableName() string { return "course_overviews_courseoverview" }

// Name falls back to the course id when the display name is empty.
func (c CourseOverview) Name() string {
	if c.DisplayName == "" {
		return c.ID
	}
	return c.DisplayName
}

type CourseEnrollment struct {
	ID       uint      `gorm:"primarykey"`
	UserID   uint      `gorm:"not null;index"`
	CourseID string    `gorm:"type:varchar(255);not null;index"`
	Created  time.Time `gorm:"index"`
	IsActive bool      `gorm:"not null;default:true"`
	Mode     string    `gorm:"type:varchar(100)"`
	User     User      `gorm:"foreignKey:UserID"`
}

func (CourseEnrollment) TableName() string { return "student_courseenrollment" }

// CourseEnrollmentAllowed lists invitations for users who have not enrolled yet.
type CourseEnrollmentAllowed struct {
	ID       uint   `gorm:"primarykey"`
	Email    string `gorm:"type:varchar(255)"`
	CourseID string `gorm:"type:varchar(255);index"`
	UserID   *uint
	Created  time.Time
}

func (CourseEnrollmentAllowed) TableName() string { return "student_courseenrollmentallowed" }

const (
	CourseRoleStaff      = "staff"
	CourseRoleInstructor = "instructor"
	CourseRoleCCXCoach   = "ccx_coach"
)

// CourseAdminRoles are excluded from learner counts.
var CourseAdminRoles = []string{CourseRoleStaff, CourseRoleInstructor, CourseRoleCCXCoach}

type CourseAccessRole struct {
	ID       uint   `gorm:"primarykey"`
	UserID   uint   `gorm:"not null;index"`
	Org      string `gorm:"type:varchar(64)"`
	CourseID string `gorm:"type:varchar(255);index"`
	Role     string `gorm:"type:varchar(64)"`
	User     User   `gorm:"foreignKey:UserID"`
}

func (CourseAccessRole) TableName() string { return "student_courseaccessrole" }

type GeneratedCertificate struct {
	ID          uint      `gorm:"primarykey"`
	UserID      uint      `gorm:"not null;index"`
	CourseID    string    `gorm:"type:varchar(255);index"`
	Grade       string    `gorm:"type:varchar(5)"`
	Status      string    `gorm:"type:varchar(32)"`
	CreatedDate time.Time `gorm:"column:created_date"`
}

func (GeneratedCertificate) TableName() string { return "certificates_generatedcertificate" }

// StudentModule tracks learner state per courseware block. Its modified
// timestamp is the activity signal for active learner counts.
type StudentModule struct {
	ID        uint   `gorm:"primarykey"`
	StudentID uint   `gorm:"column:student_id;not null;index"`
	CourseID  string `gorm:"type:varchar(255);index"`
	ModuleID  string `gorm:"column:module_id;type:varchar(255)"`
	Created   time.Time
	Modified  time.Time `gorm:"index"`
}

func (StudentModule) TableName() string { return "courseware_studentmodule" }

type Organization struct {
	ID        uint   `gorm:"primarykey"`
	Name      string `gorm:"type:varchar(255)"`
	ShortName string `gorm:"type:varchar(255)"`
	Active    bool   `gorm:"not null;default:true"`
}

func (Organization) TableName() string { return "organizations_organization" }

type OrganizationSite struct {
	ID             uint `gorm:"primarykey"`
	OrganizationID uint `gorm:"not null;index"`
	SiteID         uint `gorm:"not null;index"`
}

func (OrganizationSite) TableName() string { return "organizations_organization_sites" }

type OrganizationCourse struct {
	ID             uint   `gorm:"primarykey"`
	OrganizationID uint   `gorm:"not null;index"`
	CourseID       string `gorm:"type:varchar(255);index"`
	Active         bool   `gorm:"not null;default:true"`
}

func (OrganizationCourse) TableName() string { return "organizations_organizationcourse" }

type UserOrganizationMapping struct {
	ID             uint `gorm:"primarykey"`
	UserID         uint `gorm:"not null;index"`
	OrganizationID uint `gorm:"not null;index"`
	IsActive       bool `gorm:"not null;default:true"`
	IsAMCAdmin     bool `gorm:"column:is_amc_admin;not null;default:false"`
}

func (UserOrganizationMapping) TableName() string { return "organizations_userorganizationmapping" }

// HostModels is the set of host tables, used to build test databases.
func HostModels() []any {
	return []any{
		&Site{},
		&User{},
		&UserProfile{},
		&CourseOverview{},
		&CourseEnrollment{},
		&CourseEnrollmentAllowed{},
		&CourseAccessRole{},
		&GeneratedCertificate{},
		&StudentModule{},
		&Organization{},
		&OrganizationSite{},
		&OrganizationCourse{},
		&UserOrganizationMapping{},
	}
}
