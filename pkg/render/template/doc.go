// Package template provides the template seam renderers build on: a small
// TemplateRenderer contract plus a pongo2-backed Engine that loads templates
// from a directory or an fs.FS, caches compiled templates, and exposes
// filter and global-context registration.
package template
