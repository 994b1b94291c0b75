// Package types defines the Library and table interfaces, the book, member
// and loan entities, and the standard errors for the librarian catalog.
package types
