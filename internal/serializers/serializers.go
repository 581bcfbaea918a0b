// Package serializers turns host and metrics rows into API payloads.
package serializers

import (
	"fmt"
	"net/url"
	"strings"

	"figures/internal/metrics"
	"figures/internal/models"

	"gorm.io/gorm"
)

// Serializer loads the related rows a payload needs. Lookups are batched per
// page so a list never issues a query per row.
type Serializer struct {
	DB              *gorm.DB
	Metrics         metrics.Metrics
	ProfileImageURL string
}

func New(db *gorm.DB, m metrics.Metrics, profileImageURL string) Serializer {
	return Serializer{DB: db, Metrics: m, ProfileImageURL: strings.TrimSuffix(profileImageURL, "/")}
}

func CourseIndex(course models.CourseOverview) models.CourseIndex {
	return models.CourseIndex{
		ID:     course.ID,
		Name:   course.Name(),
		Org:    course.DisplayOrg,
		Number: course.DisplayNumber,
	}
}

func UserIndex(user models.User) models.UserIndex {
	return models.UserIndex{ID: user.ID, Username: user.Username, Fullname: user.FullName()}
}

func CourseOverviewSummary(course models.CourseOverview) models.CourseOverviewSummary {
	return models.CourseOverviewSummary{
		ID:                 course.ID,
		DisplayName:        course.DisplayName,
		Org:                course.Org,
		LowestPassingGrade: course.LowestPassingGrade,
		Language:           course.Language,
	}
}

func Site(site models.Site) models.SiteResponse {
	return models.SiteResponse{ID: site.ID, Domain: site.Domain, Name: site.Name}
}

func Sites(sites []models.Site) []models.SiteResponse {
	result := make([]models.SiteResponse, 0, len(sites))
	for _, site := range sites {
		result = append(result, Site(site))
	}
	return result
}

func SiteDailyMetrics(rows []models.SiteDailyMetrics, site models.Site) []models.SiteDailyMetricsResponse {
	result := make([]models.SiteDailyMetricsResponse, 0, len(rows))
	for _, row := range rows {
		result = append(result, models.SiteDailyMetricsResponse{SiteDailyMetrics: row, Site: Site(site)})
	}
	return result
}

func LanguageProficiencies(profile *models.UserProfile) []string {
	if profile == nil || profile.Language == "" {
		return []string{}
	}
	return []string{profile.Language}
}

var profileImageSizes = []struct {
	name string
	size int
}{
	{"full", 500},
	{"large", 120},
	{"medium", 50},
	{"small", 30},
}

// ProfileImage builds the image URLs of a user, falling back to the default
// images when none was uploaded.
func (s Serializer) ProfileImage(user models.User) models.ProfileImage {
	hasImage := user.Profile != nil && user.Profile.ProfileImageAt != nil
	urls := make(map[string]string, len(profileImageSizes))
	for _, size := range profileImageSizes {
		if hasImage {
			urls[size.name] = fmt.Sprintf("%s/%s_%d.jpg?v=%d",
				s.ProfileImageURL, url.PathEscape(user.Username), size.size, user.Profile.ProfileImageAt.Unix())
		} else {
			urls[size.name] = fmt.Sprintf("%s/default_%d.png", s.ProfileImageURL, size.size)
		}
	}
	return models.ProfileImage{
		ImageURLFull:   urls["full"],
		ImageURLLarge:  urls["large"],
		ImageURLMedium: urls["medium"],
		ImageURLSmall:  urls["small"],
		HasImage:       hasImage,
	}
}
