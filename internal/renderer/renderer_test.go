package renderer

import (
	"bytes"
	"html/template"
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/damacus/storx-files/internal/models"
	"github.com/damacus/storx-files/views"
)

func TestTemplateRenderer_RenderUnknownTemplate(t *testing.T) {
	r := &TemplateRenderer{
		Templates: make(map[string]*template.Template),
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := r.Render(rec, "nonexistent", nil, c)

	assert.Error(t, err)
	httpErr, ok := err.(*echo.HTTPError)
	assert.True(t, ok)
	assert.Equal(t, http.StatusInternalServerError, httpErr.Code)
	assert.Contains(t, httpErr.Message, "Template not found")
}

func TestSelfExecutingTemplates(t *testing.T) {
	assert.True(t, selfExecutingTemplates["bucket_tree"])
	for _, page := range []string{"login", "dashboard"} {
		assert.False(t, selfExecutingTemplates[page], "page template %q should not be self executing", page)
	}
}

func TestNew_ParsesEmbeddedViews(t *testing.T) {
	r, err := New(views.FS)
	require.NoError(t, err)

	for _, name := range []string{"login", "dashboard", "bucket_tree"} {
		assert.Contains(t, r.Templates, name)
	}
}

func TestNew_MissingTemplate(t *testing.T) {
	_, err := New(fstest.MapFS{})
	assert.Error(t, err)
}

type pageData struct {
	Title         string
	CSRFToken     string
	Authenticated bool
	Endpoint      string
	Error         string
	Groups        []models.BucketGroup
	FileCount     int
}

func TestRender_DashboardEscapesNames(t *testing.T) {
	r, err := New(views.FS)
	require.NoError(t, err)

	data := pageData{
		Title:         "Dashboard",
		CSRFToken:     "tok123",
		Authenticated: true,
		Endpoint:      "https://gateway.storx.io",
		Groups: []models.BucketGroup{
			{Name: "mail", Files: []models.FileRecord{{FileName: "<script>x</script>.eml", Key: "in/<script>x</script>.eml", Bucket: "mail", Size: "0.01 MB"}}},
			{Name: "empty"},
		},
		FileCount: 1,
	}

	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, "dashboard", data, nil))

	out := buf.String()
	assert.Contains(t, out, `content="tok123"`)
	assert.Contains(t, out, "&lt;script&gt;x&lt;/script&gt;.eml")
	assert.NotContains(t, out, "<script>x</script>")
	assert.Contains(t, out, "This bucket is empty.")
	assert.Contains(t, out, "1 files in 2 buckets")
}

func TestRender_LoginShowsError(t *testing.T) {
	r, err := New(views.FS)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, "login", pageData{Title: "Sign in", Error: "access_denied"}, nil))

	assert.Contains(t, buf.String(), "Sign in failed: access_denied")
	assert.Contains(t, buf.String(), `href="/api/auth/login"`)
}

func TestTemplateRenderer_RenderSelfExecutingTemplate(t *testing.T) {
	r, err := New(views.FS)
	require.NoError(t, err)

	var buf bytes.Buffer
	err = r.Render(&buf, "bucket_tree", pageData{}, nil)

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "No buckets yet")
	assert.NotContains(t, buf.String(), "<html")
}
