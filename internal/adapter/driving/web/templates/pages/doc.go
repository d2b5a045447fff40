// Package pages holds the page bodies rendered inside templates.Layout.
package pages
