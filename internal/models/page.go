package models

// Page is a rendered document captured from the browser.
type Page struct {
	URL  string
	HTML string
}
