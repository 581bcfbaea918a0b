// Package sites resolves which courses, users and enrollments belong to a
// site. Every other package goes through it for site scoped host data.
package sites

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"figures/internal/models"

	"gorm.io/gorm"
)

// IntegrityError reports host data breaking the one organization per course
// and one site per organization assumption of multisite mode.
type IntegrityError struct {
	CourseID string
	Reason   string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("site integrity violation for course %s: %s", e.CourseID, e.Reason)
}

func IsIntegrityError(err error) bool {
	var integrityErr *IntegrityError
	return errors.As(err, &integrityErr)
}

type Scope struct {
	DB            *gorm.DB
	Mode          models.SiteMode
	DefaultSiteID uint
}

func NewScope(db *gorm.DB, config models.AppConfiguration) Scope {
	mode := config.SiteMode
	if mode == "" {
		mode = models.SiteModeStandalone
	}
	return Scope{DB: db, Mode: mode, DefaultSiteID: config.DefaultSiteID}
}

func (s Scope) db(ctx context.Context) *gorm.DB {
	return s.DB.WithContext(ctx)
}

func (s Scope) DefaultSite(ctx context.Context) (models.Site, error) {
	var site models.Site
	if err := s.db(ctx).First(&site, s.DefaultSiteID).Error; err != nil {
		return models.Site{}, fmt.Errorf("default site %d: %w", s.DefaultSiteID, err)
	}
	return site, nil
}

func (s Scope) AllSites(ctx context.Context) ([]models.Site, error) {
	if s.Mode == models.SiteModeStandalone {
		site, err := s.DefaultSite(ctx)
		if err != nil {
			return nil, err
		}
		return []models.Site{site}, nil
	}

	var sites []models.Site
	err := s.db(ctx).Order("id").Find(&sites).Error
	return sites, err
}

// CurrentSite maps a request host to its site, falling back to the default site.
func (s Scope) CurrentSite(ctx context.Context, host string) (models.Site, error) {
	if s.Mode != models.SiteModeStandalone {
		domain := host
		if h, _, err := net.SplitHostPort(host); err == nil {
			domain = h
		}

		var site models.Site
		err := s.db(ctx).Where("domain = ?", strings.ToLower(domain)).First(&site).Error
		if err == nil {
			return site, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Site{}, err
		}
	}
	return s.DefaultSite(ctx)
}

// SiteOrg is the organization short name a microsite serves: the first DNS
// label of its domain.
func SiteOrg(site models.Site) string {
	label, _, _ := strings.Cut(site.Domain, ".")
	return label
}

// SiteForCourse returns the site owning a course, or nil when a multisite
// course has no organization mapping.
func (s Scope) SiteForCourse(ctx context.Context, courseID string) (*models.Site, error) {
	switch s.Mode {
	case models.SiteModeMultisite:
		return s.multisiteSiteForCourse(ctx, courseID)
	case models.SiteModeMicrosite:
		site, err := s.SiteForCourseOrg(ctx, courseID)
		if err != nil {
			return nil, err
		}
		return &site, nil
	default:
		site, err := s.DefaultSite(ctx)
		if err != nil {
			return nil, err
		}
		return &site, nil
	}
}

func (s Scope) multisiteSiteForCourse(ctx context.Context, courseID string) (*models.Site, error) {
	var orgCourses []models.OrganizationCourse
	if err := s.db(ctx).Where("course_id = ?", courseID).Find(&orgCourses).Error; err != nil {
		return nil, err
	}
	if len(orgCourses) == 0 {
		return nil, nil
	}
	if len(orgCourses) > 1 {
		return nil, &IntegrityError{CourseID: courseID, Reason: fmt.Sprintf("%d organizations", len(orgCourses))}
	}

	var sites []models.Site
	err := s.db(ctx).
		Where("id IN (?)", s.db(ctx).Model(&models.OrganizationSite{}).
			Select("site_id").
			Where("organization_id = ?", orgCourses[0].OrganizationID)).
		Find(&sites).Error
	if err != nil {
		return nil, err
	}
	if len(sites) != 1 {
		return nil, &IntegrityError{
			CourseID: courseID,
			Reason:   fmt.Sprintf("organization %d has %d sites", orgCourses[0].OrganizationID, len(sites)),
		}
	}
	return &sites[0], nil
}

// SiteForCourseOrg finds the microsite of a course. A site whose
// organization label equals the course org wins; otherwise the longest label
// found in the course id does. The default site serves courses no microsite
// claims.
func (s Scope) SiteForCourseOrg(ctx context.Context, courseID string) (models.Site, error) {
	site, err := s.DefaultSite(ctx)
	if err != nil {
		return models.Site{}, err
	}
	if s.Mode != models.SiteModeMicrosite {
		return site, nil
	}

	var courseOrg string
	var orgs []string
	if err = s.db(ctx).Model(&models.CourseOverview{}).Where("id = ?", courseID).Pluck("org", &orgs).Error; err != nil {
		return models.Site{}, err
	}
	if len(orgs) > 0 {
		courseOrg = orgs[0]
	}

	var candidates []models.Site
	if err = s.db(ctx).Order("id").Find(&candidates).Error; err != nil {
		return models.Site{}, err
	}
	longest := 0
	for _, candidate := range candidates {
		org := SiteOrg(candidate)
		if org == "" {
			continue
		}
		if org == courseOrg {
			return candidate, nil
		}
		if len(org) > longest && strings.Contains(courseID, org) {
			site, longest = candidate, len(org)
		}
	}
	return site, nil
}

func (s Scope) OrganizationsForSite(ctx context.Context, site models.Site) ([]models.Organization, error) {
	var orgs []models.Organization
	err := s.db(ctx).
		Where("id IN (?)", s.siteOrganizationIDs(ctx, site)).
		Order("id").
		Find(&orgs).Error
	return orgs, err
}

func (s Scope) siteOrganizationIDs(ctx context.Context, site models.Site) *gorm.DB {
	return s.db(ctx).Model(&models.OrganizationSite{}).Select("organization_id").Where("site_id = ?", site.ID)
}

// courseKeysQuery selects the ids of the site's courses, or nil when every
// course belongs to the site.
func (s Scope) courseKeysQuery(ctx context.Context, site models.Site) *gorm.DB {
	switch s.Mode {
	case models.SiteModeMultisite:
		return s.db(ctx).Model(&models.OrganizationCourse{}).
			Select("course_id").
			Where("organization_id IN (?)", s.siteOrganizationIDs(ctx, site))
	case models.SiteModeMicrosite:
		return s.db(ctx).Model(&models.CourseOverview{}).
			Select("id").
			Where("org = ?", SiteOrg(site))
	default:
		return nil
	}
}

// ScopeCourseIDs restricts query, whose column is a course id, to the site's courses.
func (s Scope) ScopeCourseIDs(ctx context.Context, query *gorm.DB, column string, site models.Site) *gorm.DB {
	if keys := s.courseKeysQuery(ctx, site); keys != nil {
		return query.Where(column+" IN (?)", keys)
	}
	return query
}

func (s Scope) CourseKeysForSite(ctx context.Context, site models.Site) ([]string, error) {
	var ids []string
	err := s.CoursesQuery(ctx, site).Order("id").Pluck("id", &ids).Error
	return ids, err
}

// CoursesQuery is the course overviews of the site, ready for filtering and paging.
func (s Scope) CoursesQuery(ctx context.Context, site models.Site) *gorm.DB {
	query := s.db(ctx).Model(&models.CourseOverview{})
	return s.ScopeCourseIDs(ctx, query, "course_overviews_courseoverview.id", site)
}

func (s Scope) CoursesForSite(ctx context.Context, site models.Site) ([]models.CourseOverview, error) {
	var courses []models.CourseOverview
	err := s.CoursesQuery(ctx, site).Order("id").Find(&courses).Error
	return courses, err
}

// userIDsQuery selects the ids of the site's users, or nil when every user
// belongs to the site.
func (s Scope) userIDsQuery(ctx context.Context, site models.Site) *gorm.DB {
	switch s.Mode {
	case models.SiteModeMultisite:
		return s.db(ctx).Model(&models.UserOrganizationMapping{}).
			Select("user_id").
			Where("organization_id IN (?)", s.siteOrganizationIDs(ctx, site))
	case models.SiteModeMicrosite:
		return s.db(ctx).Model(&models.CourseEnrollment{}).
			Select("user_id").
			Where("course_id LIKE ?", "%"+SiteOrg(site)+"%")
	default:
		return nil
	}
}

// ScopeUserIDs restricts query, whose column is a user id, to the site's users.
func (s Scope) ScopeUserIDs(ctx context.Context, query *gorm.DB, column string, site models.Site) *gorm.DB {
	if ids := s.userIDsQuery(ctx, site); ids != nil {
		return query.Where(column+" IN (?)", ids)
	}
	return query
}

func (s Scope) UserIDsForSite(ctx context.Context, site models.Site) ([]uint, error) {
	var ids []uint
	err := s.UsersQuery(ctx, site).Order("id").Pluck("id", &ids).Error
	return ids, err
}

// UsersQuery is the users of the site, ready for filtering and paging.
func (s Scope) UsersQuery(ctx context.Context, site models.Site) *gorm.DB {
	query := s.db(ctx).Model(&models.User{})
	return s.ScopeUserIDs(ctx, query, "auth_user.id", site)
}

func (s Scope) UsersForSite(ctx context.Context, site models.Site) ([]models.User, error) {
	var users []models.User
	err := s.UsersQuery(ctx, site).Order("id").Find(&users).Error
	return users, err
}

// CourseEnrollmentsQuery is the enrollments in the site's courses.
func (s Scope) CourseEnrollmentsQuery(ctx context.Context, site models.Site) *gorm.DB {
	query := s.db(ctx).Model(&models.CourseEnrollment{})
	return s.ScopeCourseIDs(ctx, query, "student_courseenrollment.course_id", site)
}

func (s Scope) CourseEnrollmentsForSite(ctx context.Context, site models.Site) ([]models.CourseEnrollment, error) {
	var enrollments []models.CourseEnrollment
	err := s.CourseEnrollmentsQuery(ctx, site).Order("id").Find(&enrollments).Error
	return enrollments, err
}

// CourseInSite reports whether a course belongs to the site.
func (s Scope) CourseInSite(ctx context.Context, site models.Site, courseID string) (bool, error) {
	var count int64
	err := s.CoursesQuery(ctx, site).Where("course_overviews_courseoverview.id = ?", courseID).Count(&count).Error
	return count > 0, err
}

// UserInSite reports whether a user belongs to the site.
func (s Scope) UserInSite(ctx context.Context, site models.Site, userID uint) (bool, error) {
	var count int64
	err := s.UsersQuery(ctx, site).Where("auth_user.id = ?", userID).Count(&count).Error
	return count > 0, err
}
