package templates_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	templates "github.com/civichero/civichero-api/templates/html"
)

func TestRenderGenericEmailEscapesContent(t *testing.T) {
	html := templates.RenderGenericEmail("Report Received", `<script>alert("x")</script>`)

	assert.NotContains(t, html, "<script>")
	assert.Contains(t, html, "&lt;script&gt;")
}

func TestRenderGenericEmailConvertsNewlines(t *testing.T) {
	html := templates.RenderGenericEmail("Report Received", "line one\nline two")

	assert.Contains(t, html, "line one<br>line two")
}

func TestRenderReportResolvedIncludesPoints(t *testing.T) {
	html := templates.RenderReportResolved("Asha", "issue", "Pothole", 10)

	assert.Contains(t, html, "Asha")
	assert.Contains(t, html, "Pothole")
	assert.Contains(t, html, "10 points")
}

func TestRenderDriveJoinedIncludesDate(t *testing.T) {
	html := templates.RenderDriveJoined("Asha", "Lake cleanup", "January 2, 2026")

	assert.Contains(t, html, "Lake cleanup")
	assert.Contains(t, html, "January 2, 2026")
}
