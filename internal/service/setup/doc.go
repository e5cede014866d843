// Package setup edits the persisted settings and the stored shell password.
package setup
