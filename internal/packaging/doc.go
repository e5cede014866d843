// Package packaging builds deployable robot packages.
//
// A package is identified by the uuid attribute on the root element of the
// project's manifest.xml. Build zips the whole project directory into
// <uuid>.pkg next to it (in the parent directory), with entry names relative
// to the project root. The build is never incremental.
package packaging
