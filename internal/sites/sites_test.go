package sites

import (
	"context"
	"testing"

	"figures/internal/models"
	"figures/internal/tests"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandalone(t *testing.T) {
	ctx := context.Background()
	db := tests.NewSQLiteDB(t)
	defaultSite := tests.NewSite(t, db, "example.com")
	scope := Scope{DB: db, Mode: models.SiteModeStandalone, DefaultSiteID: defaultSite.ID}

	joined := tests.Day(2024, 1, 1)
	alice := tests.NewUser(t, db, "alice", joined)
	tests.NewUser(t, db, "bob", joined)
	course := tests.NewCourse(t, db, "edX", "Demo", joined)
	tests.NewCourse(t, db, "MITx", "6.00", joined)
	tests.Enroll(t, db, alice, course.ID, joined)

	t.Run("every course belongs to the default site", func(t *testing.T) {
		site, err := scope.SiteForCourse(ctx, course.ID)
		require.NoError(t, err)
		require.NotNil(t, site)
		assert.Equal(t, defaultSite.ID, site.ID)

		keys, err := scope.CourseKeysForSite(ctx, defaultSite)
		require.NoError(t, err)
		assert.Len(t, keys, 2)
	})

	t.Run("every user belongs to the default site", func(t *testing.T) {
		ids, err := scope.UserIDsForSite(ctx, defaultSite)
		require.NoError(t, err)
		assert.Len(t, ids, 2)
	})

	t.Run("enrollments", func(t *testing.T) {
		enrollments, err := scope.CourseEnrollmentsForSite(ctx, defaultSite)
		require.NoError(t, err)
		assert.Len(t, enrollments, 1)
	})

	t.Run("current site ignores the host", func(t *testing.T) {
		site, err := scope.CurrentSite(ctx, "anything.example.org:8080")
		require.NoError(t, err)
		assert.Equal(t, defaultSite.ID, site.ID)
	})
}

func TestMultisite(t *testing.T) {
	ctx := context.Background()
	db := tests.NewSQLiteDB(t)
	defaultSite := tests.NewSite(t, db, "example.com")
	alpha := tests.NewSite(t, db, "alpha.example.com")
	beta := tests.NewSite(t, db, "beta.example.com")
	scope := Scope{DB: db, Mode: models.SiteModeMultisite, DefaultSiteID: defaultSite.ID}

	joined := tests.Day(2024, 1, 1)
	alphaOrg := tests.NewOrganization(t, db, "alpha", alpha)
	betaOrg := tests.NewOrganization(t, db, "beta", beta)

	alphaCourse := tests.NewCourse(t, db, "alpha", "A101", joined)
	betaCourse := tests.NewCourse(t, db, "beta", "B101", joined)
	orphanCourse := tests.NewCourse(t, db, "orphan", "O101", joined)
	tests.MapCourse(t, db, alphaOrg, alphaCourse.ID)
	tests.MapCourse(t, db, betaOrg, betaCourse.ID)

	alice := tests.NewUser(t, db, "alice", joined)
	bob := tests.NewUser(t, db, "bob", joined)
	tests.MapUser(t, db, alphaOrg, alice)
	tests.MapUser(t, db, betaOrg, bob)
	tests.Enroll(t, db, alice, alphaCourse.ID, joined)
	tests.Enroll(t, db, bob, betaCourse.ID, joined)

	t.Run("course maps to its organization's site", func(t *testing.T) {
		site, err := scope.SiteForCourse(ctx, alphaCourse.ID)
		require.NoError(t, err)
		require.NotNil(t, site)
		assert.Equal(t, alpha.ID, site.ID)
	})

	t.Run("course without organization has no site", func(t *testing.T) {
		site, err := scope.SiteForCourse(ctx, orphanCourse.ID)
		require.NoError(t, err)
		assert.Nil(t, site)
	})

	t.Run("site sees only its courses users and enrollments", func(t *testing.T) {
		keys, err := scope.CourseKeysForSite(ctx, alpha)
		require.NoError(t, err)
		assert.Equal(t, []string{alphaCourse.ID}, keys)

		ids, err := scope.UserIDsForSite(ctx, alpha)
		require.NoError(t, err)
		assert.Equal(t, []uint{alice.ID}, ids)

		enrollments, err := scope.CourseEnrollmentsForSite(ctx, beta)
		require.NoError(t, err)
		require.Len(t, enrollments, 1)
		assert.Equal(t, bob.ID, enrollments[0].UserID)

		orgs, err := scope.OrganizationsForSite(ctx, beta)
		require.NoError(t, err)
		require.Len(t, orgs, 1)
		assert.Equal(t, "beta", orgs[0].ShortName)
	})

	t.Run("membership checks", func(t *testing.T) {
		in, err := scope.CourseInSite(ctx, alpha, betaCourse.ID)
		require.NoError(t, err)
		assert.False(t, in)

		in, err = scope.UserInSite(ctx, beta, bob.ID)
		require.NoError(t, err)
		assert.True(t, in)
	})

	t.Run("current site by host", func(t *testing.T) {
		site, err := scope.CurrentSite(ctx, "beta.example.com:443")
		require.NoError(t, err)
		assert.Equal(t, beta.ID, site.ID)

		site, err = scope.CurrentSite(ctx, "unknown.example.com")
		require.NoError(t, err)
		assert.Equal(t, defaultSite.ID, site.ID)
	})

	t.Run("course in two organizations is an integrity error", func(t *testing.T) {
		tests.MapCourse(t, db, betaOrg, orphanCourse.ID)
		tests.MapCourse(t, db, alphaOrg, orphanCourse.ID)

		_, err := scope.SiteForCourse(ctx, orphanCourse.ID)
		require.Error(t, err)
		assert.True(t, IsIntegrityError(err))
	})

	t.Run("organization on two sites is an integrity error", func(t *testing.T) {
		shared := tests.NewOrganization(t, db, "shared", alpha, beta)
		course := tests.NewCourse(t, db, "shared", "S101", joined)
		tests.MapCourse(t, db, shared, course.ID)

		_, err := scope.SiteForCourse(ctx, course.ID)
		assert.True(t, IsIntegrityError(err))
	})
}

func TestMicrosite(t *testing.T) {
	ctx := context.Background()
	db := tests.NewSQLiteDB(t)
	defaultSite := tests.NewSite(t, db, "example.com")
	acme := tests.NewSite(t, db, "acme.example.com")
	scope := Scope{DB: db, Mode: models.SiteModeMicrosite, DefaultSiteID: defaultSite.ID}

	joined := tests.Day(2024, 1, 1)
	acmeCourse := tests.NewCourse(t, db, "acme", "Safety", joined)
	otherCourse := tests.NewCourse(t, db, "globex", "Sales", joined)

	alice := tests.NewUser(t, db, "alice", joined)
	bob := tests.NewUser(t, db, "bob", joined)
	tests.Enroll(t, db, alice, acmeCourse.ID, joined)
	tests.Enroll(t, db, bob, otherCourse.ID, joined)

	assert.Equal(t, "acme", SiteOrg(acme))

	t.Run("course org picks the microsite", func(t *testing.T) {
		site, err := scope.SiteForCourse(ctx, acmeCourse.ID)
		require.NoError(t, err)
		assert.Equal(t, acme.ID, site.ID)
	})

	t.Run("unclaimed course falls back to the default site", func(t *testing.T) {
		site, err := scope.SiteForCourseOrg(ctx, otherCourse.ID)
		require.NoError(t, err)
		assert.Equal(t, defaultSite.ID, site.ID)
	})

	t.Run("courses and users of the org", func(t *testing.T) {
		keys, err := scope.CourseKeysForSite(ctx, acme)
		require.NoError(t, err)
		assert.Equal(t, []string{acmeCourse.ID}, keys)

		users, err := scope.UsersForSite(ctx, acme)
		require.NoError(t, err)
		require.Len(t, users, 1)
		assert.Equal(t, "alice", users[0].Username)
	})
}

func TestMicrositeOverlappingLabels(t *testing.T) {
	ctx := context.Background()
	db := tests.NewSQLiteDB(t)
	defaultSite := tests.NewSite(t, db, "example.com")
	abc := tests.NewSite(t, db, "abc.example.com")
	ab := tests.NewSite(t, db, "ab.example.com")
	scope := Scope{DB: db, Mode: models.SiteModeMicrosite, DefaultSiteID: defaultSite.ID}

	joined := tests.Day(2024, 1, 1)
	abcCourse := tests.NewCourse(t, db, "abc", "Safety", joined)
	abCourse := tests.NewCourse(t, db, "ab", "Sales", joined)

	site, err := scope.SiteForCourse(ctx, abcCourse.ID)
	require.NoError(t, err)
	assert.Equal(t, abc.ID, site.ID)

	site, err = scope.SiteForCourse(ctx, abCourse.ID)
	require.NoError(t, err)
	assert.Equal(t, ab.ID, site.ID)

	// Without a course overview the longest label in the id wins.
	fallback, err := scope.SiteForCourseOrg(ctx, "course-v1:abc+Unlisted+run")
	require.NoError(t, err)
	assert.Equal(t, abc.ID, fallback.ID)
}
