package handlers

import (
	"net/http"
	"sort"

	"github.com/damacus/storx-files/internal/models"
	"github.com/damacus/storx-files/internal/services"
	"github.com/damacus/storx-files/internal/utils"
	"github.com/labstack/echo/v4"
)

// PageData is passed to every full-page template
type PageData struct {
	Title         string
	CSRFToken     string
	Authenticated bool
	Endpoint      string
	Error         string
	Groups        []models.BucketGroup
	FileCount     int
}

type DashboardHandler struct {
	lister *services.Lister
}

func NewDashboardHandler(lister *services.Lister) *DashboardHandler {
	return &DashboardHandler{lister: lister}
}

// Dashboard renders every bucket with its files
func (h *DashboardHandler) Dashboard(c echo.Context) error {
	creds, err := GetCredentialsOrRedirect(c)
	if creds == nil {
		return err
	}
	data, err := h.pageData(c, creds)
	if services.IsCredentialError(err) {
		c.SetCookie(utils.ExpiredCookie(utils.CookieName))
		return c.Redirect(http.StatusSeeOther, "/?error=session_expired")
	}
	if err != nil {
		return err
	}
	return c.Render(http.StatusOK, "dashboard", data)
}

// Tree renders only the bucket tree, for refreshing after a change
func (h *DashboardHandler) Tree(c echo.Context) error {
	creds, err := GetCredentials(c)
	if err != nil {
		return err
	}
	data, err := h.pageData(c, creds)
	if services.IsCredentialError(err) {
		return echo.NewHTTPError(http.StatusUnauthorized, "Session is no longer valid")
	}
	if err != nil {
		return err
	}
	return c.Render(http.StatusOK, "bucket_tree", data)
}

func (h *DashboardHandler) pageData(c echo.Context, creds *services.Credentials) (PageData, error) {
	result, err := h.lister.ListAll(c.Request().Context(), *creds)
	if err != nil {
		return PageData{}, err
	}

	return PageData{
		Title:         "Dashboard",
		CSRFToken:     csrfToken(c),
		Authenticated: true,
		Endpoint:      creds.Endpoint,
		Groups:        GroupByBucket(result),
		FileCount:     len(result.Files),
	}, nil
}

// GroupByBucket arranges a listing into buckets sorted by name, files
// sorted by key. Buckets without files are kept.
func GroupByBucket(result models.ListResult) []models.BucketGroup {
	index := make(map[string]int, len(result.Buckets))
	groups := make([]models.BucketGroup, 0, len(result.Buckets))
	add := func(name string) int {
		if i, ok := index[name]; ok {
			return i
		}
		index[name] = len(groups)
		groups = append(groups, models.BucketGroup{Name: name})
		return index[name]
	}

	for _, name := range result.Buckets {
		add(name)
	}
	for _, f := range result.Files {
		i := add(f.Bucket)
		groups[i].Files = append(groups[i].Files, f)
	}

	sort.Slice(groups, func(i, j int) bool { return groups[i].Name < groups[j].Name })
	for _, g := range groups {
		sort.Slice(g.Files, func(i, j int) bool { return g.Files[i].Key < g.Files[j].Key })
	}
	return groups
}
