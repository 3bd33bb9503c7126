package templates

import (
	"fmt"
)

// RenderReportSubmitted builds the HTML body acknowledging a freshly
// submitted issue or violation report. kind is a human label such as
// "issue" or "violation".
func RenderReportSubmitted(name, kind, title string) string {
	body := fmt.Sprintf(
		"Hi %s,\n\nThanks for looking out for your community! Your %s report \"%s\" has been received and is now awaiting review.\n\nWe will email you again once it has been resolved.",
		name, kind, title,
	)
	return RenderGenericEmail("Report Received", body)
}

// RenderReportResolved builds the HTML body announcing that a report was
// resolved, including the points awarded for it.
func RenderReportResolved(name, kind, title string, points int) string {
	body := fmt.Sprintf(
		"Hi %s,\n\nGreat news! Your %s report \"%s\" has been marked as resolved.\n\nYou earned %d points for helping your community. Keep it up!",
		name, kind, title, points,
	)
	return RenderGenericEmail("Report Resolved", body)
}

// RenderDriveJoined confirms a user's registration for a community drive.
func RenderDriveJoined(name, driveTitle, driveDate string) string {
	body := fmt.Sprintf(
		"Hi %s,\n\nYou are signed up for \"%s\" on %s.\n\nSee you there!",
		name, driveTitle, driveDate,
	)
	return RenderGenericEmail("Drive Registration Confirmed", body)
}

// RenderWelcome greets a newly registered user.
func RenderWelcome(name string) string {
	body := fmt.Sprintf(
		"Hi %s,\n\nWelcome to CivicHero! Report issues, flag violations, and join community drives to earn points and make your neighborhood better.",
		name,
	)
	return RenderGenericEmail("Welcome to CivicHero", body)
}
