// Package server holds the component registry of a running update-manager.
//
// Components (the database, for one) are registered by name at startup and
// looked up by consumers either untyped (LookupComponent) or through the
// generic Lookup accessor, which also checks the component's type.
package server
