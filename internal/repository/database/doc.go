// Package database implements the persistent key-value store of the update manager.
//
// Items live in namespaces and are addressed by dotted keys: the first segment
// names a stored JSON record, further segments walk into nested objects, so
// "update_manager.klipper_path" reads the "klipper_path" field of the
// "update_manager" record. The Store is backed by a local SQLite database.
package database
