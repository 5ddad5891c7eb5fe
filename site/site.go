// Package site serves the marketing pages and the form endpoints.
package site

import (
	"embed"
	"io/fs"

	"github.com/dalemusser/corpsite/templates"
)

//go:embed templates static
var content embed.FS

// TemplateSets returns the shared layout set and the page set for
// templates.Engine.Boot.
func TemplateSets() (shared templates.Set, pages templates.Set) {
	shared = templates.Set{Name: "layout", FS: content, Patterns: []string{"templates/layout/*.gohtml"}}
	pages = templates.Set{Name: "pages", FS: content, Patterns: []string{"templates/pages/*.gohtml"}}
	return shared, pages
}

// StaticFS holds css/, js/ and friends, rooted for /static/.
func StaticFS() fs.FS {
	sub, err := fs.Sub(content, "static")
	if err != nil {
		// Only possible if the embed directive above changes.
		panic(err)
	}
	return sub
}

// Job is one open position on the careers pages.
type Job struct {
	Title    string
	Location string
	Type     string
	Summary  string
}

// Openings lists the positions shown on /careers.
var Openings = []Job{
	{
		Title:    "Backend Engineer",
		Location: "Remote",
		Type:     "Full-time",
		Summary:  "Design and run the services behind our client projects, from APIs to data pipelines.",
	},
	{
		Title:    "Frontend Developer",
		Location: "Hybrid",
		Type:     "Full-time",
		Summary:  "Build fast, accessible interfaces with a strong eye for detail.",
	},
	{
		Title:    "Project Coordinator",
		Location: "On-site",
		Type:     "Contract",
		Summary:  "Keep client engagements on schedule and everyone in the loop.",
	},
}

// DemoOpenings lists the positions shown on /demo/careers.
var DemoOpenings = []Job{
	{
		Title:    "Demo Role: Support Specialist",
		Location: "Remote",
		Type:     "Part-time",
		Summary:  "A sample listing that shows how openings appear on the demo site.",
	},
}

// Services are the choices offered by the business contact form.
var Services = []string{
	"Web development",
	"Cloud & infrastructure",
	"Consulting",
	"Support & maintenance",
	"Other",
}
